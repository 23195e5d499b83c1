package store

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

type setter[T any] func(r *T, v interface{}) error

var paymentSetters = map[string]setter[model.Transaction]{
	"card_number_token": stringField(func(r *model.Transaction) *string { return &r.CardNumberToken }),
	"merchant_id":       int64Field(func(r *model.Transaction) *int64 { return &r.MerchantID }),
	"device_id":         int64Field(func(r *model.Transaction) *int64 { return &r.DeviceID }),
	"amount":            decimalField(func(r *model.Transaction) *decimal.Decimal { return &r.Amount }),
	"currency":          stringField(func(r *model.Transaction) *string { return &r.Currency }),
	"mcc":               intField(func(r *model.Transaction) *int { return &r.MCC }),
	"channel":           stringField(func(r *model.Transaction) *string { return &r.Channel }),
	"country":           stringField(func(r *model.Transaction) *string { return &r.Country }),
	"response_code":     stringField(func(r *model.Transaction) *string { return &r.ResponseCode }),
	"auth_code":         stringField(func(r *model.Transaction) *string { return &r.AuthCode }),
	"iso_message_hex":   stringField(func(r *model.Transaction) *string { return &r.ISOMessageHex }),
	"gateway_provider":  stringField(func(r *model.Transaction) *string { return &r.GatewayProvider }),
	"status":            stringField(func(r *model.Transaction) *string { return &r.Status }),
	"risk_score":        intField(func(r *model.Transaction) *int { return &r.RiskScore }),
	"ip_address":        stringField(func(r *model.Transaction) *string { return &r.IPAddress }),
	"timestamp":         timeField(func(r *model.Transaction) *time.Time { return &r.Timestamp }),
}

var authSetters = map[string]setter[model.AuthEvent]{
	"session_id":     int64Field(func(r *model.AuthEvent) *int64 { return &r.SessionID }),
	"customer_id":    int64Field(func(r *model.AuthEvent) *int64 { return &r.CustomerID }),
	"device_id":      int64Field(func(r *model.AuthEvent) *int64 { return &r.DeviceID }),
	"timestamp":      timeField(func(r *model.AuthEvent) *time.Time { return &r.Timestamp }),
	"auth_type":      stringField(func(r *model.AuthEvent) *string { return &r.AuthType }),
	"ip_address":     stringField(func(r *model.AuthEvent) *string { return &r.IPAddress }),
	"channel":        stringField(func(r *model.AuthEvent) *string { return &r.Channel }),
	"location":       stringField(func(r *model.AuthEvent) *string { return &r.Location }),
	"auth_status":    stringField(func(r *model.AuthEvent) *string { return &r.AuthStatus }),
	"failure_reason": stringField(func(r *model.AuthEvent) *string { return &r.FailureReason }),
	"login_attempts": intField(func(r *model.AuthEvent) *int { return &r.LoginAttempts }),
}

var disputeSetters = map[string]setter[model.Dispute]{
	"transaction_id":       int64Field(func(r *model.Dispute) *int64 { return &r.TransactionID }),
	"customer_id":          int64Field(func(r *model.Dispute) *int64 { return &r.CustomerID }),
	"merchant_id":          int64Field(func(r *model.Dispute) *int64 { return &r.MerchantID }),
	"amount":               decimalField(func(r *model.Dispute) *decimal.Decimal { return &r.Amount }),
	"currency":             stringField(func(r *model.Dispute) *string { return &r.Currency }),
	"timestamp":            timeField(func(r *model.Dispute) *time.Time { return &r.Timestamp }),
	"dispute_reason_code":  stringField(func(r *model.Dispute) *string { return &r.ReasonCode }),
	"dispute_stage":        stringField(func(r *model.Dispute) *string { return &r.Stage }),
	"status":               stringField(func(r *model.Dispute) *string { return &r.Status }),
	"evidence_provided":    stringField(func(r *model.Dispute) *string { return &r.EvidenceProvided }),
	"resolution_timestamp": optionalTimeField(func(r *model.Dispute) **time.Time { return &r.ResolutionTimestamp }),
}

var kycSetters = map[string]setter[model.KYCEvent]{
	"customer_id":          int64Field(func(r *model.KYCEvent) *int64 { return &r.CustomerID }),
	"device_id":            int64Field(func(r *model.KYCEvent) *int64 { return &r.DeviceID }),
	"timestamp":            timeField(func(r *model.KYCEvent) *time.Time { return &r.Timestamp }),
	"kyc_type":             stringField(func(r *model.KYCEvent) *string { return &r.KYCType }),
	"document_type":        stringField(func(r *model.KYCEvent) *string { return &r.DocumentType }),
	"document_number_hash": stringField(func(r *model.KYCEvent) *string { return &r.DocumentNumberHash }),
	"face_match_score":     intField(func(r *model.KYCEvent) *int { return &r.FaceMatchScore }),
	"verification_status":  stringField(func(r *model.KYCEvent) *string { return &r.VerificationStatus }),
	"geo_location":         stringField(func(r *model.KYCEvent) *string { return &r.GeoLocation }),
	"ip_address":           stringField(func(r *model.KYCEvent) *string { return &r.IPAddress }),
}

// ApplyPatch returns a copy of rec with the fields in patch replaced. Keys
// must name updatable columns of the record's collection; the primary key is
// never updatable.
func ApplyPatch(rec model.Record, patch map[string]interface{}) (model.Record, error) {
	switch r := rec.(type) {
	case model.Transaction:
		return applyPatch(r, paymentSetters, patch)
	case model.AuthEvent:
		return applyPatch(r, authSetters, patch)
	case model.Dispute:
		return applyPatch(r, disputeSetters, patch)
	case model.KYCEvent:
		return applyPatch(r, kycSetters, patch)
	default:
		return nil, fmt.Errorf("cannot patch %T: %w", rec, ErrInvalidRecord)
	}
}

// UpdatableFields lists the patchable columns of a collection in name order
func UpdatableFields(c model.Collection) []string {
	var names []string
	switch c {
	case model.CollectionPayments:
		names = keys(paymentSetters)
	case model.CollectionAuthLogs:
		names = keys(authSetters)
	case model.CollectionDisputes:
		names = keys(disputeSetters)
	case model.CollectionKYCEvents:
		names = keys(kycSetters)
	}
	sort.Strings(names)
	return names
}

func keys[T any](m map[string]setter[T]) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}

func applyPatch[T model.Record](rec T, setters map[string]setter[T], patch map[string]interface{}) (model.Record, error) {
	// Apply in key order so the reported error is deterministic
	names := make([]string, 0, len(patch))
	for k := range patch {
		names = append(names, k)
	}
	sort.Strings(names)

	for _, name := range names {
		set, ok := setters[name]
		if !ok {
			return nil, fmt.Errorf("%s: %w", name, ErrUnknownField)
		}
		if err := set(&rec, patch[name]); err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
	}
	return rec, nil
}

func stringField[T any](field func(*T) *string) setter[T] {
	return func(r *T, v interface{}) error {
		s, ok := v.(string)
		if !ok {
			return fmt.Errorf("expected string, got %T: %w", v, ErrInvalidValue)
		}
		*field(r) = s
		return nil
	}
}

func int64Field[T any](field func(*T) *int64) setter[T] {
	return func(r *T, v interface{}) error {
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		*field(r) = n
		return nil
	}
}

func intField[T any](field func(*T) *int) setter[T] {
	return func(r *T, v interface{}) error {
		n, err := toInt64(v)
		if err != nil {
			return err
		}
		*field(r) = int(n)
		return nil
	}
}

func decimalField[T any](field func(*T) *decimal.Decimal) setter[T] {
	return func(r *T, v interface{}) error {
		var (
			d   decimal.Decimal
			err error
		)
		switch x := v.(type) {
		case string:
			d, err = decimal.NewFromString(x)
		case json.Number:
			d, err = decimal.NewFromString(x.String())
		case float64:
			d = decimal.NewFromFloat(x)
		default:
			return fmt.Errorf("expected decimal, got %T: %w", v, ErrInvalidValue)
		}
		if err != nil {
			return fmt.Errorf("%v: %w", err, ErrInvalidValue)
		}
		*field(r) = d
		return nil
	}
}

func timeField[T any](field func(*T) *time.Time) setter[T] {
	return func(r *T, v interface{}) error {
		t, err := toTime(v)
		if err != nil {
			return err
		}
		*field(r) = t
		return nil
	}
}

// optionalTimeField accepts nil to clear the value
func optionalTimeField[T any](field func(*T) **time.Time) setter[T] {
	return func(r *T, v interface{}) error {
		if v == nil {
			*field(r) = nil
			return nil
		}
		t, err := toTime(v)
		if err != nil {
			return err
		}
		*field(r) = &t
		return nil
	}
}

func toInt64(v interface{}) (int64, error) {
	switch x := v.(type) {
	case int:
		return int64(x), nil
	case int64:
		return x, nil
	case json.Number:
		n, err := x.Int64()
		if err != nil {
			return 0, fmt.Errorf("%v: %w", err, ErrInvalidValue)
		}
		return n, nil
	case float64:
		if x != math.Trunc(x) || math.Abs(x) > 1<<53 {
			return 0, fmt.Errorf("expected integer, got %v: %w", x, ErrInvalidValue)
		}
		return int64(x), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T: %w", v, ErrInvalidValue)
	}
}

func toTime(v interface{}) (time.Time, error) {
	s, ok := v.(string)
	if !ok {
		return time.Time{}, fmt.Errorf("expected timestamp string, got %T: %w", v, ErrInvalidValue)
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%v: %w", err, ErrInvalidValue)
	}
	return t.UTC(), nil
}
