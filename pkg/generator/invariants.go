package generator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// ErrInvariantViolation is wrapped by every consistency failure of a dataset
var ErrInvariantViolation = errors.New("dataset invariant violated")

// maxReported caps the violations listed in one error
const maxReported = 10

type violations struct {
	list  []string
	total int
}

func (v *violations) add(format string, args ...interface{}) {
	v.total++
	if len(v.list) < maxReported {
		v.list = append(v.list, fmt.Sprintf(format, args...))
	}
}

func (v *violations) err() error {
	if v.total == 0 {
		return nil
	}
	msg := strings.Join(v.list, "; ")
	if v.total > len(v.list) {
		msg += fmt.Sprintf("; and %d more", v.total-len(v.list))
	}
	return fmt.Errorf("%w: %s", ErrInvariantViolation, msg)
}

// CheckInvariants asserts referential and temporal consistency across the
// four collections. It returns nil or an error wrapping ErrInvariantViolation.
func CheckInvariants(d *Dataset) error {
	v := &violations{}
	w := d.Params.Window()

	customers := make(map[int64]*model.Customer, len(d.Customers))
	deviceOwner := make(map[int64]int64)
	for i, c := range d.Customers {
		if c.ID != int64(i+1) {
			v.add("customer at position %d has id %d", i, c.ID)
		}
		customers[c.ID] = c
		devices := append([]int64{}, c.Devices...)
		if c.AttackerDevice != 0 {
			if c.HasDevice(c.AttackerDevice) {
				v.add("customer %d attacker device %d is also trusted", c.ID, c.AttackerDevice)
			}
			devices = append(devices, c.AttackerDevice)
		}
		for _, dev := range devices {
			if owner, ok := deviceOwner[dev]; ok && owner != c.ID {
				v.add("device %d shared by customers %d and %d", dev, owner, c.ID)
			}
			deviceOwner[dev] = c.ID
		}
	}

	ato := make(map[int64]bool, len(d.ATOCustomers))
	for _, id := range d.ATOCustomers {
		ato[id] = true
		if c := customers[id]; c == nil || !c.IsATOTarget() {
			v.add("takeover target %d has no attacker device", id)
		}
	}
	for _, c := range d.Customers {
		if c.IsATOTarget() && !ato[c.ID] {
			v.add("customer %d has an attacker device but is not a takeover target", c.ID)
		}
	}

	checkAuth(d, customers, w, v)
	txByID := checkPayments(d, customers, ato, w, v)
	checkDisputes(d, customers, txByID, w, v)
	checkKYC(d, customers, w, v)

	return v.err()
}

func checkAuth(d *Dataset, customers map[int64]*model.Customer, w Window, v *violations) {
	type session struct {
		success   *model.AuthEvent
		successes int
		failures  []*model.AuthEvent
	}
	sessions := make(map[int64]*session)

	for i := range d.AuthLogs {
		ev := &d.AuthLogs[i]
		if i > 0 && ev.Timestamp.Before(d.AuthLogs[i-1].Timestamp) {
			v.add("auth event %d out of timestamp order", ev.AuthEventID)
		}
		if !w.Contains(ev.Timestamp) {
			v.add("auth event %d outside the window", ev.AuthEventID)
		}
		c := customers[ev.CustomerID]
		if c == nil {
			v.add("auth event %d references unknown customer %d", ev.AuthEventID, ev.CustomerID)
			continue
		}
		if !c.HasDevice(ev.DeviceID) && ev.DeviceID != c.AttackerDevice {
			v.add("auth event %d uses device %d not owned by customer %d", ev.AuthEventID, ev.DeviceID, c.ID)
		}

		s := sessions[ev.SessionID]
		if s == nil {
			s = &session{}
			sessions[ev.SessionID] = s
		}
		switch ev.AuthStatus {
		case model.AuthStatusSuccess:
			s.successes++
			s.success = ev
			if ev.FailureReason != "" {
				v.add("successful auth event %d has failure reason %q", ev.AuthEventID, ev.FailureReason)
			}
		case model.AuthStatusFailure:
			s.failures = append(s.failures, ev)
		default:
			v.add("auth event %d has status %q", ev.AuthEventID, ev.AuthStatus)
		}
	}

	for id, s := range sessions {
		if s.successes != 1 {
			v.add("session %d has %d successful logins", id, s.successes)
			continue
		}
		if s.success.LoginAttempts != len(s.failures)+1 {
			v.add("session %d success reports %d attempts after %d failures", id, s.success.LoginAttempts, len(s.failures))
		}
		seen := make(map[int]bool, len(s.failures))
		for _, f := range s.failures {
			if !f.Timestamp.Before(s.success.Timestamp) {
				v.add("session %d failure %d is not before its success", id, f.AuthEventID)
			}
			if f.LoginAttempts < 1 || f.LoginAttempts > len(s.failures) || seen[f.LoginAttempts] {
				v.add("session %d has failure attempt number %d", id, f.LoginAttempts)
			}
			seen[f.LoginAttempts] = true
		}
	}

	if len(d.CompromisedTimes) != len(d.ATOCustomers) {
		v.add("%d compromise times for %d takeover targets", len(d.CompromisedTimes), len(d.ATOCustomers))
	}
	for _, id := range d.ATOCustomers {
		if _, ok := d.CompromisedTimes[id]; !ok {
			v.add("takeover target %d was never compromised", id)
		}
	}
}

func checkPayments(d *Dataset, customers map[int64]*model.Customer, ato map[int64]bool, w Window, v *violations) map[int64]*model.Transaction {
	holders := make(map[string]*model.Customer, len(customers))
	for _, c := range customers {
		holders[c.CardToken] = c
	}
	scenario := make(map[int64]bool, len(d.ScenarioTxIDs))
	for _, id := range d.ScenarioTxIDs {
		scenario[id] = true
	}

	txByID := make(map[int64]*model.Transaction, len(d.Payments))
	injected := make(map[int64]int)
	for i := range d.Payments {
		tx := &d.Payments[i]
		if _, dup := txByID[tx.MessageID]; dup {
			v.add("duplicate transaction id %d", tx.MessageID)
		}
		txByID[tx.MessageID] = tx

		if !w.Contains(tx.Timestamp) {
			v.add("transaction %d outside the window", tx.MessageID)
		}
		if !tx.Amount.IsPositive() {
			v.add("transaction %d has non-positive amount %s", tx.MessageID, tx.Amount)
		}
		if tx.RiskScore < 0 || tx.RiskScore > 100 {
			v.add("transaction %d risk score %d", tx.MessageID, tx.RiskScore)
		}
		approved := tx.ResponseCode == model.ResponseApproved
		if approved != tx.Approved() || approved != (tx.AuthCode != "") {
			v.add("transaction %d status %s, response %s and auth code %q disagree",
				tx.MessageID, tx.Status, tx.ResponseCode, tx.AuthCode)
		}

		c := holders[tx.CardNumberToken]
		if c == nil {
			v.add("transaction %d card token has no holder", tx.MessageID)
			continue
		}
		if scenario[tx.MessageID] {
			injected[c.ID]++
			if tx.DeviceID != c.AttackerDevice {
				v.add("fraud transaction %d does not use the attacker device", tx.MessageID)
			}
			if at, ok := d.CompromisedTimes[c.ID]; ok && tx.Timestamp.Before(at.Add(minFraudDelay*time.Second)) {
				v.add("fraud transaction %d precedes the takeover of customer %d", tx.MessageID, c.ID)
			}
		} else if !c.HasDevice(tx.DeviceID) {
			v.add("transaction %d uses device %d not trusted by customer %d", tx.MessageID, tx.DeviceID, c.ID)
		}
	}

	for id := range d.CompromisedTimes {
		if !ato[id] {
			v.add("compromised customer %d is not a takeover target", id)
		}
		if injected[id] != 1 {
			v.add("compromised customer %d has %d fraud transactions", id, injected[id])
		}
	}
	if len(injected) != len(d.CompromisedTimes) {
		v.add("fraud transactions for %d customers, %d compromised", len(injected), len(d.CompromisedTimes))
	}
	return txByID
}

func checkDisputes(d *Dataset, customers map[int64]*model.Customer, txByID map[int64]*model.Transaction, w Window, v *violations) {
	for i := range d.Disputes {
		dispute := &d.Disputes[i]
		if i > 0 && dispute.Timestamp.Before(d.Disputes[i-1].Timestamp) {
			v.add("dispute %d out of timestamp order", dispute.DisputeID)
		}
		tx := txByID[dispute.TransactionID]
		if tx == nil {
			v.add("dispute %d references missing transaction %d", dispute.DisputeID, dispute.TransactionID)
			continue
		}
		if !tx.Approved() {
			v.add("dispute %d filed against declined transaction %d", dispute.DisputeID, tx.MessageID)
		}
		if c := customers[dispute.CustomerID]; c == nil || c.CardToken != tx.CardNumberToken {
			v.add("dispute %d customer %d does not hold the card of transaction %d",
				dispute.DisputeID, dispute.CustomerID, tx.MessageID)
		}
		if !dispute.Timestamp.After(tx.Timestamp) {
			v.add("dispute %d is not filed after transaction %d", dispute.DisputeID, tx.MessageID)
		}
		if dispute.Timestamp.After(w.End) {
			v.add("dispute %d filed after the window", dispute.DisputeID)
		}

		closed := dispute.Status == model.DisputeClosed
		if closed != (dispute.ResolutionTimestamp != nil) {
			v.add("dispute %d status %s disagrees with its resolution", dispute.DisputeID, dispute.Status)
		}
		if r := dispute.ResolutionTimestamp; r != nil {
			if !r.After(dispute.Timestamp) || r.After(w.End) {
				v.add("dispute %d resolution %s outside (filing, window end]", dispute.DisputeID, model.FormatTime(*r))
			}
		}
	}
}

func checkKYC(d *Dataset, customers map[int64]*model.Customer, w Window, v *violations) {
	perCustomer := make(map[int64][]*model.KYCEvent, len(customers))
	for i := range d.KYCEvents {
		ev := &d.KYCEvents[i]
		if i > 0 && ev.Timestamp.Before(d.KYCEvents[i-1].Timestamp) {
			v.add("kyc event %d out of timestamp order", ev.KYCEventID)
		}
		if !w.Contains(ev.Timestamp) {
			v.add("kyc event %d outside the window", ev.KYCEventID)
		}
		c := customers[ev.CustomerID]
		if c == nil {
			v.add("kyc event %d references unknown customer %d", ev.KYCEventID, ev.CustomerID)
			continue
		}
		if ev.DeviceID != c.PrimaryDevice() {
			v.add("kyc event %d does not use the primary device of customer %d", ev.KYCEventID, c.ID)
		}
		if ev.FaceMatchScore < 0 || ev.FaceMatchScore > 100 {
			v.add("kyc event %d face match score %d", ev.KYCEventID, ev.FaceMatchScore)
		}
		perCustomer[c.ID] = append(perCustomer[c.ID], ev)
	}

	for _, c := range d.Customers {
		events := perCustomer[c.ID]
		switch len(events) {
		case 1:
			if events[0].VerificationStatus != model.KYCVerified || events[0].KYCType != model.KYCOnboarding {
				v.add("customer %d single kyc event is %s %s", c.ID, events[0].KYCType, events[0].VerificationStatus)
			}
		case 2:
			failed, retry := events[0], events[1]
			if failed.VerificationStatus != model.KYCFailed || retry.VerificationStatus != model.KYCVerified ||
				retry.KYCType != model.KYCOnboardingRetry || !retry.Timestamp.After(failed.Timestamp) {
				v.add("customer %d kyc events are not a failure followed by a later retry", c.ID)
			}
		default:
			v.add("customer %d has %d kyc events", c.ID, len(events))
		}
	}

	hashes := make(map[int64]string, len(d.KYCEvents))
	for _, ev := range d.KYCEvents {
		hashes[ev.CustomerID] = ev.DocumentNumberHash
	}
	for _, cluster := range d.IdentityClusters {
		for _, id := range cluster[1:] {
			if hashes[id] != hashes[cluster[0]] {
				v.add("identity cluster member %d does not share the document of %d", id, cluster[0])
			}
		}
	}
}
