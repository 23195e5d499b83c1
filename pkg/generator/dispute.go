package generator

import (
	"fmt"
	"sort"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

// Share of all payments that turn into friendly fraud claims
const friendlyFraudRate = 0.002

type disputeSynth struct {
	s       *Stream
	window  Window
	ids     *Sequence
	holders map[string]*model.Customer
	out     []model.Dispute
}

// SynthesizeDisputes files a chargeback for every post-takeover transaction and
// friendly fraud claims against a sample of ordinary approved transactions.
// Output is sorted by filing time.
func SynthesizeDisputes(txs []model.Transaction, scenarioTxIDs []int64, pop *Population, w Window, s *Stream) ([]model.Dispute, error) {
	d := &disputeSynth{
		s:       s,
		window:  w,
		ids:     NewSequence(1),
		holders: pop.CustomerByToken(),
	}

	byID := make(map[int64]*model.Transaction, len(txs))
	for i := range txs {
		byID[txs[i].MessageID] = &txs[i]
	}

	scenario := make(map[int64]bool, len(scenarioTxIDs))
	for _, id := range scenarioTxIDs {
		tx, ok := byID[id]
		if !ok {
			return nil, fmt.Errorf("fraud transaction %d not found in payments", id)
		}
		scenario[id] = true
		if err := d.fraud(tx); err != nil {
			return nil, err
		}
	}

	var eligible []*model.Transaction
	for i := range txs {
		if txs[i].Approved() && !scenario[txs[i].MessageID] {
			eligible = append(eligible, &txs[i])
		}
	}
	quota := min(len(eligible), int(friendlyFraudRate*float64(len(txs))))
	for _, i := range s.Sample(len(eligible), quota) {
		if err := d.friendly(eligible[i]); err != nil {
			return nil, err
		}
	}

	sort.SliceStable(d.out, func(i, j int) bool {
		return d.out[i].Timestamp.Before(d.out[j].Timestamp)
	})
	return d.out, nil
}

func (d *disputeSynth) base(tx *model.Transaction) (model.Dispute, error) {
	holder, ok := d.holders[tx.CardNumberToken]
	if !ok {
		return model.Dispute{}, fmt.Errorf("transaction %d: no customer holds card token %s", tx.MessageID, tx.CardNumberToken)
	}
	return model.Dispute{
		DisputeID:     d.ids.Next(),
		TransactionID: tx.MessageID,
		CustomerID:    holder.ID,
		MerchantID:    tx.MerchantID,
		Amount:        tx.Amount,
		Currency:      tx.Currency,
	}, nil
}

func (d *disputeSynth) fraud(tx *model.Transaction) error {
	dispute, err := d.base(tx)
	if err != nil {
		return err
	}

	dispute.ReasonCode = Pick(d.s, []string{model.ReasonFraud, model.ReasonTriangulation})
	dispute.Stage = model.StageChargebackInitiated
	if d.s.Chance(0.3) {
		dispute.Stage = model.StageArbitration
	}
	dispute.EvidenceProvided = model.EvidenceNo
	if d.s.Chance(0.7) {
		dispute.EvidenceProvided = model.EvidenceYes
	}

	filed, clamped := d.window.Clamp(tx.Timestamp.Add(d.s.Days(1, 90)))
	dispute.Timestamp = filed
	if clamped {
		dispute.Status = model.DisputeOpen
		dispute.Stage = model.StagePreArbitration
		dispute.EvidenceProvided = model.EvidenceNo
	} else {
		d.resolve(&dispute, filed.Add(d.s.Days(1, 60)))
	}

	d.out = append(d.out, dispute)
	return nil
}

func (d *disputeSynth) friendly(tx *model.Transaction) error {
	dispute, err := d.base(tx)
	if err != nil {
		return err
	}

	dispute.ReasonCode = model.ReasonFriendlyFraud
	dispute.Stage = model.StageChargebackInitiated
	dispute.EvidenceProvided = model.EvidenceNo

	filed, clamped := d.window.Clamp(tx.Timestamp.Add(d.s.Days(5, 60)))
	dispute.Timestamp = filed
	switch {
	case clamped:
		dispute.Status = model.DisputeOpen
		dispute.Stage = model.StageInvestigation
	case d.s.Chance(0.9):
		d.resolve(&dispute, filed.Add(d.s.Days(1, 30)))
	default:
		dispute.Status = model.DisputeOpen
	}

	d.out = append(d.out, dispute)
	return nil
}

// resolve closes the dispute at the given time unless that falls past the
// window, in which case it stays open
func (d *disputeSynth) resolve(dispute *model.Dispute, at time.Time) {
	if at.After(d.window.End) {
		dispute.Status = model.DisputeOpen
		return
	}
	dispute.Status = model.DisputeClosed
	dispute.ResolutionTimestamp = &at
}
