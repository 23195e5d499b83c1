package model

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	StatusApproved = "approved"
	StatusDeclined = "declined"

	ResponseApproved       = "00"
	ResponseSuspectedFraud = "07"
)

var paymentColumns = []string{
	"message_id", "card_number_token", "merchant_id", "device_id", "amount", "currency",
	"mcc", "channel", "country", "response_code", "auth_code", "iso_message_hex",
	"gateway_provider", "status", "risk_score", "ip_address", "timestamp",
}

// Transaction is a card payment authorization message
type Transaction struct {
	MessageID       int64           `json:"message_id"`
	CardNumberToken string          `json:"card_number_token"`
	MerchantID      int64           `json:"merchant_id"`
	DeviceID        int64           `json:"device_id"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency"`
	MCC             int             `json:"mcc"`
	Channel         string          `json:"channel"`
	Country         string          `json:"country"`
	ResponseCode    string          `json:"response_code"`
	AuthCode        string          `json:"auth_code"`
	ISOMessageHex   string          `json:"iso_message_hex"`
	GatewayProvider string          `json:"gateway_provider"`
	Status          string          `json:"status"`
	RiskScore       int             `json:"risk_score"`
	IPAddress       string          `json:"ip_address"`
	Timestamp       time.Time       `json:"timestamp"`
}

func (t Transaction) Collection() Collection { return CollectionPayments }

func (t Transaction) RecordID() int64 { return t.MessageID }

func (t Transaction) Fields() map[string]interface{} {
	return map[string]interface{}{
		"message_id":        t.MessageID,
		"card_number_token": t.CardNumberToken,
		"merchant_id":       t.MerchantID,
		"device_id":         t.DeviceID,
		"amount":            t.Amount.StringFixed(2),
		"currency":          t.Currency,
		"mcc":               int64(t.MCC),
		"channel":           t.Channel,
		"country":           t.Country,
		"response_code":     t.ResponseCode,
		"auth_code":         t.AuthCode,
		"iso_message_hex":   t.ISOMessageHex,
		"gateway_provider":  t.GatewayProvider,
		"status":            t.Status,
		"risk_score":        int64(t.RiskScore),
		"ip_address":        t.IPAddress,
		"timestamp":         FormatTime(t.Timestamp),
	}
}

// Approved reports whether the transaction was authorized
func (t Transaction) Approved() bool {
	return t.Status == StatusApproved
}
