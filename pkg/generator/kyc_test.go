package generator

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

func TestDrawDocumentPatterns(t *testing.T) {
	patterns := map[string]*regexp.Regexp{
		model.DocPassport:      regexp.MustCompile(`^[A-Z]{2}[0-9]{7}$`),
		model.DocDriverLicense: regexp.MustCompile(`^[A-Z][0-9]{8}$`),
		model.DocNationalID:    regexp.MustCompile(`^[0-9]{9}$`),
	}

	tests := []struct {
		country string
		allowed []string
	}{
		{"US", []string{model.DocDriverLicense, model.DocPassport}},
		{"AU", []string{model.DocDriverLicense, model.DocPassport}},
		{"DE", []string{model.DocPassport, model.DocNationalID, model.DocDriverLicense}},
		{"NG", []string{model.DocPassport, model.DocNationalID, model.DocDriverLicense}},
	}

	for _, tt := range tests {
		t.Run(tt.country, func(t *testing.T) {
			s := NewStream(11)
			seen := make(map[string]bool)
			for i := 0; i < 200; i++ {
				doc := drawDocument(s, tt.country)
				require.Contains(t, tt.allowed, doc.kind)
				assert.Regexp(t, patterns[doc.kind], doc.number)
				seen[doc.kind] = true
			}
			assert.Len(t, seen, len(tt.allowed))
		})
	}
}

func kycFixture(t *testing.T) (Params, Window, *KYCResult) {
	t.Helper()
	p := mediumParams()
	p.DuplicatePairs = 3
	p.DuplicateTriples = 2
	p.KYCFailCount = 15
	w := p.Window()
	pop := BuildPopulation(p, NewStream(1))
	return p, w, SynthesizeKYC(pop, p, w, NewStream(2))
}

func TestSynthesizeKYCClusters(t *testing.T) {
	p, _, result := kycFixture(t)
	require.Len(t, result.Clusters, p.DuplicatePairs+p.DuplicateTriples)

	hashes := make(map[int64]string)
	for _, ev := range result.Events {
		hashes[ev.CustomerID] = ev.DocumentNumberHash
	}

	clustered := make(map[int64]bool)
	clusterHashes := make(map[string]bool)
	for i, members := range result.Clusters {
		if i < p.DuplicatePairs {
			assert.Len(t, members, 2)
		} else {
			assert.Len(t, members, 3)
		}
		for _, id := range members {
			assert.False(t, clustered[id], "customer %d is in two clusters", id)
			clustered[id] = true
			assert.Equal(t, hashes[members[0]], hashes[id])
		}
		clusterHashes[hashes[members[0]]] = true
	}
	assert.Len(t, clusterHashes, len(result.Clusters))

	for id, hash := range hashes {
		if !clustered[id] {
			assert.False(t, clusterHashes[hash], "customer %d shares a cluster document", id)
		}
	}
}

func TestSynthesizeKYCVerificationFlow(t *testing.T) {
	p, w, result := kycFixture(t)

	byCustomer := make(map[int64][]model.KYCEvent)
	for i, ev := range result.Events {
		if i > 0 {
			assert.False(t, ev.Timestamp.Before(result.Events[i-1].Timestamp), "events are not sorted")
		}
		byCustomer[ev.CustomerID] = append(byCustomer[ev.CustomerID], ev)
	}
	require.Len(t, byCustomer, p.Customers)

	clustered := make(map[int64]bool)
	for _, members := range result.Clusters {
		for _, id := range members {
			clustered[id] = true
		}
	}

	failed := 0
	for id, events := range byCustomer {
		switch len(events) {
		case 1:
			ev := events[0]
			assert.Equal(t, model.KYCOnboarding, ev.KYCType)
			assert.Equal(t, model.KYCVerified, ev.VerificationStatus)
			assert.GreaterOrEqual(t, ev.FaceMatchScore, 80)
			assert.LessOrEqual(t, ev.FaceMatchScore, 100)
		case 2:
			failed++
			assert.False(t, clustered[id], "cluster member %d failed verification", id)

			first, retry := events[0], events[1]
			assert.Equal(t, model.KYCOnboarding, first.KYCType)
			assert.Equal(t, model.KYCFailed, first.VerificationStatus)
			assert.GreaterOrEqual(t, first.FaceMatchScore, 0)
			assert.LessOrEqual(t, first.FaceMatchScore, 60)

			assert.Equal(t, model.KYCOnboardingRetry, retry.KYCType)
			assert.Equal(t, model.KYCVerified, retry.VerificationStatus)
			assert.GreaterOrEqual(t, retry.FaceMatchScore, 80)
			assert.LessOrEqual(t, retry.FaceMatchScore, 100)
			assert.Equal(t, first.DocumentNumberHash, retry.DocumentNumberHash)

			gap := retry.Timestamp.Sub(first.Timestamp)
			assert.Positive(t, gap)
			if !retry.Timestamp.Equal(w.End) {
				assert.GreaterOrEqual(t, gap, 24*time.Hour)
				assert.LessOrEqual(t, gap, 14*24*time.Hour)
			}
		default:
			t.Fatalf("customer %d has %d kyc events", id, len(events))
		}
	}
	assert.Equal(t, p.KYCFailCount, failed)
}
