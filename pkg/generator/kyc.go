package generator

import (
	"sort"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

var documentPatterns = map[string]string{
	model.DocPassport:      "??#######",
	model.DocDriverLicense: "?########",
	model.DocNationalID:    "#########",
}

// KYCResult is the output of the KYC synthesizer
type KYCResult struct {
	Events []model.KYCEvent
	// Clusters lists the customer ids sharing one identity document, pairs
	// first then triples. The first member is the document owner.
	Clusters [][]int64
}

type document struct {
	kind   string
	number string
}

func drawDocument(s *Stream, country string) document {
	var kind string
	if driverLicenseCountries[country] {
		kind = []string{model.DocDriverLicense, model.DocPassport}[s.Weighted([]int{60, 40})]
	} else {
		kind = []string{model.DocPassport, model.DocNationalID, model.DocDriverLicense}[s.Weighted([]int{50, 30, 20})]
	}
	return document{kind: kind, number: s.Bothify(documentPatterns[kind])}
}

// SynthesizeKYC emits onboarding verification events. Synthetic identity rings
// are modelled as clusters of customers presenting the same document.
func SynthesizeKYC(pop *Population, p Params, w Window, s *Stream) *KYCResult {
	docs := make(map[int64]document, len(pop.Customers))
	for _, c := range pop.Customers {
		docs[c.ID] = drawDocument(s, c.HomeCountry)
	}

	result := &KYCResult{}
	clustered := make(map[int64]bool)
	picked := s.Sample(len(pop.Customers), p.DuplicatePairs*2+p.DuplicateTriples*3)
	sizes := make([]int, 0, p.DuplicatePairs+p.DuplicateTriples)
	for i := 0; i < p.DuplicatePairs; i++ {
		sizes = append(sizes, 2)
	}
	for i := 0; i < p.DuplicateTriples; i++ {
		sizes = append(sizes, 3)
	}
	next := 0
	for _, size := range sizes {
		if next+size > len(picked) {
			break
		}
		members := make([]int64, 0, size)
		for _, idx := range picked[next : next+size] {
			members = append(members, int64(idx+1))
		}
		next += size
		for _, id := range members {
			docs[id] = docs[members[0]]
			clustered[id] = true
		}
		result.Clusters = append(result.Clusters, members)
	}

	var candidates []int64
	for _, c := range pop.Customers {
		if !clustered[c.ID] {
			candidates = append(candidates, c.ID)
		}
	}
	failing := make(map[int64]bool)
	for _, idx := range s.Sample(len(candidates), min(p.KYCFailCount, len(candidates))) {
		failing[candidates[idx]] = true
	}

	ids := NewSequence(1)
	for _, c := range pop.Customers {
		doc := docs[c.ID]
		ev := model.KYCEvent{
			CustomerID:         c.ID,
			DeviceID:           c.PrimaryDevice(),
			KYCType:            model.KYCOnboarding,
			DocumentType:       doc.kind,
			DocumentNumberHash: sha256Hex(doc.number),
		}

		if failing[c.ID] {
			failed := ev
			failed.KYCEventID = ids.Next()
			failed.Timestamp = s.TimeBetween(w.Start, w.Last())
			failed.FaceMatchScore = s.IntRange(0, 60)
			failed.VerificationStatus = model.KYCFailed
			failed.GeoLocation = s.GeoLocation()
			failed.IPAddress = s.IPv4()
			result.Events = append(result.Events, failed)

			retry := ev
			retry.KYCEventID = ids.Next()
			retry.KYCType = model.KYCOnboardingRetry
			retry.Timestamp, _ = w.Clamp(failed.Timestamp.Add(s.Days(1, 14)))
			retry.FaceMatchScore = s.IntRange(80, 100)
			retry.VerificationStatus = model.KYCVerified
			retry.GeoLocation = s.GeoLocation()
			retry.IPAddress = s.IPv4()
			result.Events = append(result.Events, retry)
			continue
		}

		ev.KYCEventID = ids.Next()
		ev.Timestamp = s.TimeBetween(w.Start, w.End)
		ev.FaceMatchScore = s.IntRange(80, 100)
		ev.VerificationStatus = model.KYCVerified
		ev.GeoLocation = s.GeoLocation()
		ev.IPAddress = s.IPv4()
		result.Events = append(result.Events, ev)
	}

	sort.SliceStable(result.Events, func(i, j int) bool {
		return result.Events[i].Timestamp.Before(result.Events[j].Timestamp)
	})
	return result
}
