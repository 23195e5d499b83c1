package schema

import (
	"fmt"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

const paymentSchema = `{
	"type": "record",
	"name": "Payment",
	"namespace": "com.fraudsim",
	"fields": [
		{"name": "message_id", "type": "long"},
		{"name": "card_number_token", "type": "string"},
		{"name": "merchant_id", "type": "long"},
		{"name": "device_id", "type": "long"},
		{"name": "amount", "type": "string"},
		{"name": "currency", "type": "string"},
		{"name": "mcc", "type": "long"},
		{"name": "channel", "type": "string"},
		{"name": "country", "type": "string"},
		{"name": "response_code", "type": "string"},
		{"name": "auth_code", "type": "string"},
		{"name": "iso_message_hex", "type": "string"},
		{"name": "gateway_provider", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "risk_score", "type": "long"},
		{"name": "ip_address", "type": "string"},
		{"name": "timestamp", "type": "string"}
	]
}`

const authSchema = `{
	"type": "record",
	"name": "AuthEvent",
	"namespace": "com.fraudsim",
	"fields": [
		{"name": "auth_event_id", "type": "long"},
		{"name": "session_id", "type": "long"},
		{"name": "customer_id", "type": "long"},
		{"name": "device_id", "type": "long"},
		{"name": "timestamp", "type": "string"},
		{"name": "auth_type", "type": "string"},
		{"name": "ip_address", "type": "string"},
		{"name": "channel", "type": "string"},
		{"name": "location", "type": "string"},
		{"name": "auth_status", "type": "string"},
		{"name": "failure_reason", "type": "string"},
		{"name": "login_attempts", "type": "long"}
	]
}`

const disputeSchema = `{
	"type": "record",
	"name": "Dispute",
	"namespace": "com.fraudsim",
	"fields": [
		{"name": "dispute_id", "type": "long"},
		{"name": "transaction_id", "type": "long"},
		{"name": "customer_id", "type": "long"},
		{"name": "merchant_id", "type": "long"},
		{"name": "amount", "type": "string"},
		{"name": "currency", "type": "string"},
		{"name": "timestamp", "type": "string"},
		{"name": "dispute_reason_code", "type": "string"},
		{"name": "dispute_stage", "type": "string"},
		{"name": "status", "type": "string"},
		{"name": "evidence_provided", "type": "string"},
		{"name": "resolution_timestamp", "type": "string", "default": ""}
	]
}`

const kycSchema = `{
	"type": "record",
	"name": "KYCEvent",
	"namespace": "com.fraudsim",
	"fields": [
		{"name": "kyc_event_id", "type": "long"},
		{"name": "customer_id", "type": "long"},
		{"name": "device_id", "type": "long"},
		{"name": "timestamp", "type": "string"},
		{"name": "kyc_type", "type": "string"},
		{"name": "document_type", "type": "string"},
		{"name": "document_number_hash", "type": "string"},
		{"name": "face_match_score", "type": "long"},
		{"name": "verification_status", "type": "string"},
		{"name": "geo_location", "type": "string"},
		{"name": "ip_address", "type": "string"}
	]
}`

// AvroSchema returns the Avro record schema of a collection. Field order
// follows model.Columns.
func AvroSchema(c model.Collection) (string, error) {
	switch c {
	case model.CollectionPayments:
		return paymentSchema, nil
	case model.CollectionAuthLogs:
		return authSchema, nil
	case model.CollectionDisputes:
		return disputeSchema, nil
	case model.CollectionKYCEvents:
		return kycSchema, nil
	default:
		return "", fmt.Errorf("no schema for collection %s", c)
	}
}

// Subject returns the registry subject of the value schema for topic
func Subject(topic string) string {
	return topic + "-value"
}
