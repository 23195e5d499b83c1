package model

import "time"

const (
	AuthTypePassword = "password"
	AuthType2FA      = "2FA"

	AuthStatusSuccess = "success"
	AuthStatusFailure = "failure"

	FailureWrongPassword = "Wrong password"
	FailureOTPMismatch   = "OTP mismatch"
)

var authColumns = []string{
	"auth_event_id", "session_id", "customer_id", "device_id", "timestamp", "auth_type",
	"ip_address", "channel", "location", "auth_status", "failure_reason", "login_attempts",
}

// AuthEvent is one login attempt. A session is a run of failures terminated by
// exactly one success.
type AuthEvent struct {
	AuthEventID   int64     `json:"auth_event_id"`
	SessionID     int64     `json:"session_id"`
	CustomerID    int64     `json:"customer_id"`
	DeviceID      int64     `json:"device_id"`
	Timestamp     time.Time `json:"timestamp"`
	AuthType      string    `json:"auth_type"`
	IPAddress     string    `json:"ip_address"`
	Channel       string    `json:"channel"`
	Location      string    `json:"location"`
	AuthStatus    string    `json:"auth_status"`
	FailureReason string    `json:"failure_reason"`
	LoginAttempts int       `json:"login_attempts"`
}

func (e AuthEvent) Collection() Collection { return CollectionAuthLogs }

func (e AuthEvent) RecordID() int64 { return e.AuthEventID }

func (e AuthEvent) Fields() map[string]interface{} {
	return map[string]interface{}{
		"auth_event_id":  e.AuthEventID,
		"session_id":     e.SessionID,
		"customer_id":    e.CustomerID,
		"device_id":      e.DeviceID,
		"timestamp":      FormatTime(e.Timestamp),
		"auth_type":      e.AuthType,
		"ip_address":     e.IPAddress,
		"channel":        e.Channel,
		"location":       e.Location,
		"auth_status":    e.AuthStatus,
		"failure_reason": e.FailureReason,
		"login_attempts": int64(e.LoginAttempts),
	}
}
