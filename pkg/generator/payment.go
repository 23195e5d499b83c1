package generator

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

const (
	transactionMean = 10
	// Share of traffic that goes to the most popular merchants
	popularMerchantBias = 0.8
	popularMerchants    = 200

	unknownDevicePenalty = 20
)

var largeAmount = decimal.NewFromInt(2000)

// PaymentResult is the output of the payment synthesizer
type PaymentResult struct {
	Transactions []model.Transaction
	// ScenarioTxIDs are the post-takeover fraudulent transactions
	ScenarioTxIDs []int64
}

// riskFactors is the additive part of the risk score that does not depend
// on the device
func riskFactors(amount decimal.Decimal, c *model.Customer, m *model.Merchant) int {
	score := 0
	if amount.GreaterThan(largeAmount) {
		score += 30
	}
	if c.HomeCountry != m.Country {
		score += 20
	}
	if m.Category == model.MerchantHighRisk {
		score += 20
	}
	return score
}

// declineProbability grows with the risk score
func declineProbability(score int) float64 {
	switch {
	case score > 80:
		return 0.2
	case score > 50:
		return 0.1
	default:
		return 0.03
	}
}

// declineResponse picks the response code of a declined transaction. The
// riskiest ones are flagged as suspected fraud.
func declineResponse(s *Stream, score int) string {
	if score > 80 {
		return model.ResponseSuspectedFraud
	}
	return Pick(s, declineCodes)
}

func clampScore(score int) int {
	return min(100, max(0, score))
}

// SynthesizePayments emits per-customer card traffic followed by exactly one
// fraudulent charge per compromised customer. The output keeps generation
// order.
func SynthesizePayments(pop *Population, compromised map[int64]time.Time, w Window, s *Stream) *PaymentResult {
	ids := NewSequence(1)
	result := &PaymentResult{}

	for _, c := range pop.Customers {
		count := max(1, s.Poisson(transactionMean))
		for i := 0; i < count; i++ {
			var merchantID int64
			if s.Chance(popularMerchantBias) {
				merchantID = int64(s.IntRange(1, min(len(pop.Merchants), popularMerchants)))
			} else {
				merchantID = int64(s.IntRange(1, len(pop.Merchants)))
			}
			m := pop.Merchant(merchantID)

			tx := model.Transaction{
				MessageID:       ids.Next(),
				CardNumberToken: c.CardToken,
				MerchantID:      m.ID,
				DeviceID:        Pick(s, c.Devices),
				Channel:         Pick(s, paymentChannels),
				MCC:             m.MCC,
				Country:         m.Country,
				GatewayProvider: c.CardNetwork,
			}
			if s.Chance(0.98) {
				tx.Amount = s.Amount(1, 500)
			} else {
				tx.Amount = s.Amount(500, 10000)
			}
			tx.Currency = currencyFor(s, m.Country)
			tx.Timestamp = s.TimeBetween(w.Start, w.Last())
			tx.IPAddress = s.IPv4()

			score := riskFactors(tx.Amount, c, m)
			if tx.DeviceID != c.PrimaryDevice() {
				score += 5
			}
			tx.RiskScore = clampScore(score + s.IntRange(-5, 5))

			if s.Chance(declineProbability(tx.RiskScore)) {
				tx.Status = model.StatusDeclined
				tx.ResponseCode = declineResponse(s, tx.RiskScore)
			} else {
				tx.Status = model.StatusApproved
				tx.ResponseCode = model.ResponseApproved
				tx.AuthCode = s.Digits(6)
			}
			tx.ISOMessageHex = s.Hex(s.IntRange(8, 16))

			result.Transactions = append(result.Transactions, tx)
		}
	}

	victims := make([]int64, 0, len(compromised))
	for id := range compromised {
		victims = append(victims, id)
	}
	sort.Slice(victims, func(i, j int) bool { return victims[i] < victims[j] })

	highRisk := pop.HighRiskMerchants()
	for _, id := range victims {
		c := pop.Customer(id)

		var merchantID int64
		if s.Chance(0.5) && len(highRisk) > 0 {
			merchantID = Pick(s, highRisk)
		} else {
			merchantID = int64(s.IntRange(1, len(pop.Merchants)))
		}
		m := pop.Merchant(merchantID)

		tx := model.Transaction{
			MessageID:       ids.Next(),
			CardNumberToken: c.CardToken,
			MerchantID:      m.ID,
			DeviceID:        c.AttackerDevice,
			Channel:         Pick(s, cardNotPresent),
			MCC:             m.MCC,
			Country:         m.Country,
			GatewayProvider: c.CardNetwork,
			Status:          model.StatusApproved,
			ResponseCode:    model.ResponseApproved,
		}
		if s.Chance(0.7) {
			tx.Amount = s.Amount(500, 10000)
		} else {
			tx.Amount = s.Amount(1, 500)
		}
		tx.Currency = currencyFor(s, m.Country)

		at := compromised[id].Add(s.Seconds(minFraudDelay, maxFraudDelay))
		if at.After(w.Last()) {
			at = w.Last()
		}
		tx.Timestamp = at
		tx.IPAddress = s.IPv4()

		score := riskFactors(tx.Amount, c, m) + unknownDevicePenalty
		tx.RiskScore = min(100, score+s.IntRange(0, 5))
		tx.AuthCode = s.Digits(6)
		tx.ISOMessageHex = s.Hex(s.IntRange(8, 16))

		result.Transactions = append(result.Transactions, tx)
		result.ScenarioTxIDs = append(result.ScenarioTxIDs, tx.MessageID)
	}

	return result
}
