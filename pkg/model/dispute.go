package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	ReasonFraud         = "FRAUD"
	ReasonTriangulation = "TRIANGULATION"
	ReasonFriendlyFraud = "FRIENDLY_FRAUD"

	StageArbitration         = "Arbitration"
	StageChargebackInitiated = "Chargeback Initiated"
	StagePreArbitration      = "Pre-Arbitration"
	StageInvestigation       = "Investigation"

	DisputeOpen   = "Open"
	DisputeClosed = "Closed"

	EvidenceYes = "Yes"
	EvidenceNo  = "No"
)

var disputeColumns = []string{
	"dispute_id", "transaction_id", "customer_id", "merchant_id", "amount", "currency",
	"timestamp", "dispute_reason_code", "dispute_stage", "status", "evidence_provided",
	"resolution_timestamp",
}

// Dispute is a chargeback filed against an approved transaction
type Dispute struct {
	DisputeID           int64           `json:"dispute_id"`
	TransactionID       int64           `json:"transaction_id"`
	CustomerID          int64           `json:"customer_id"`
	MerchantID          int64           `json:"merchant_id"`
	Amount              decimal.Decimal `json:"amount"`
	Currency            string          `json:"currency"`
	Timestamp           time.Time       `json:"timestamp"`
	ReasonCode          string          `json:"dispute_reason_code"`
	Stage               string          `json:"dispute_stage"`
	Status              string          `json:"status"`
	EvidenceProvided    string          `json:"evidence_provided"`
	ResolutionTimestamp *time.Time      `json:"resolution_timestamp,omitempty"`
}

func (d Dispute) Collection() Collection { return CollectionDisputes }

func (d Dispute) RecordID() int64 { return d.DisputeID }

func (d Dispute) Fields() map[string]interface{} {
	resolution := ""
	if d.ResolutionTimestamp != nil {
		resolution = FormatTime(*d.ResolutionTimestamp)
	}
	return map[string]interface{}{
		"dispute_id":           d.DisputeID,
		"transaction_id":       d.TransactionID,
		"customer_id":          d.CustomerID,
		"merchant_id":          d.MerchantID,
		"amount":               d.Amount.StringFixed(2),
		"currency":             d.Currency,
		"timestamp":            FormatTime(d.Timestamp),
		"dispute_reason_code":  d.ReasonCode,
		"dispute_stage":        d.Stage,
		"status":               d.Status,
		"evidence_provided":    d.EvidenceProvided,
		"resolution_timestamp": resolution,
	}
}
