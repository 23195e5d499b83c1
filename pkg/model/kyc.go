package model

import "time"

const (
	KYCOnboarding      = "Onboarding"
	KYCOnboardingRetry = "Onboarding Retry"

	KYCFailed   = "failed"
	KYCVerified = "verified"

	DocPassport      = "Passport"
	DocDriverLicense = "Driver License"
	DocNationalID    = "National ID"
)

var kycColumns = []string{
	"kyc_event_id", "customer_id", "device_id", "timestamp", "kyc_type", "document_type",
	"document_number_hash", "face_match_score", "verification_status", "geo_location", "ip_address",
}

// KYCEvent is an identity verification attempt
type KYCEvent struct {
	KYCEventID         int64     `json:"kyc_event_id"`
	CustomerID         int64     `json:"customer_id"`
	DeviceID           int64     `json:"device_id"`
	Timestamp          time.Time `json:"timestamp"`
	KYCType            string    `json:"kyc_type"`
	DocumentType       string    `json:"document_type"`
	DocumentNumberHash string    `json:"document_number_hash"`
	FaceMatchScore     int       `json:"face_match_score"`
	VerificationStatus string    `json:"verification_status"`
	GeoLocation        string    `json:"geo_location"`
	IPAddress          string    `json:"ip_address"`
}

func (k KYCEvent) Collection() Collection { return CollectionKYCEvents }

func (k KYCEvent) RecordID() int64 { return k.KYCEventID }

func (k KYCEvent) Fields() map[string]interface{} {
	return map[string]interface{}{
		"kyc_event_id":         k.KYCEventID,
		"customer_id":          k.CustomerID,
		"device_id":            k.DeviceID,
		"timestamp":            FormatTime(k.Timestamp),
		"kyc_type":             k.KYCType,
		"document_type":        k.DocumentType,
		"document_number_hash": k.DocumentNumberHash,
		"face_match_score":     int64(k.FaceMatchScore),
		"verification_status":  k.VerificationStatus,
		"geo_location":         k.GeoLocation,
		"ip_address":           k.IPAddress,
	}
}
