package generator

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

func emitSession(seed int64, c *model.Customer, failures int) []model.AuthEvent {
	start := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	a := &authSynth{
		s:        NewStream(seed),
		window:   Window{Start: start, End: start.AddDate(0, 1, 0)},
		events:   NewSequence(1),
		sessions: NewSequence(1),
	}
	a.emit(session{
		customer: c,
		device:   c.PrimaryDevice(),
		success:  start.Add(time.Hour),
		channel:  "Web",
		location: "US",
		failures: failures,
	})
	return a.out
}

func TestEmitOrdersFailuresBeforeSuccess(t *testing.T) {
	customers := map[string]*model.Customer{
		"password": {ID: 1, Devices: []int64{1}},
		"2fa":      {ID: 2, Devices: []int64{2}, TwoFactor: true},
	}

	otpSeen := false
	for name, c := range customers {
		for failures := 0; failures <= 4; failures++ {
			for seed := int64(0); seed < 20; seed++ {
				t.Run(fmt.Sprintf("%s/%d/%d", name, failures, seed), func(t *testing.T) {
					events := emitSession(seed, c, failures)
					require.Len(t, events, failures+1)

					success := events[len(events)-1]
					assert.Equal(t, model.AuthStatusSuccess, success.AuthStatus)
					assert.Empty(t, success.FailureReason)
					assert.Equal(t, failures+1, success.LoginAttempts)

					for i, ev := range events[:failures] {
						assert.Equal(t, model.AuthStatusFailure, ev.AuthStatus)
						assert.Equal(t, i+1, ev.LoginAttempts)
						assert.True(t, ev.Timestamp.Before(events[i+1].Timestamp),
							"attempt %d at %s is not before %s", ev.LoginAttempts, ev.Timestamp, events[i+1].Timestamp)
						assert.LessOrEqual(t, success.Timestamp.Sub(ev.Timestamp), maxBackdate)
						assert.Equal(t, success.SessionID, ev.SessionID)

						if ev.FailureReason == model.FailureOTPMismatch {
							otpSeen = true
							assert.Equal(t, failures, ev.LoginAttempts, "only the last failure can be an OTP mismatch")
							assert.Equal(t, model.AuthType2FA, ev.AuthType)
							assert.Equal(t, success.Timestamp.Add(-otpLead), ev.Timestamp)
							assert.True(t, c.TwoFactor)
							assert.Greater(t, failures, 1)
						} else {
							assert.Equal(t, model.FailureWrongPassword, ev.FailureReason)
							assert.Equal(t, model.AuthTypePassword, ev.AuthType)
						}
					}
				})
			}
		}
	}
	assert.True(t, otpSeen)
}

func TestEmitSingleFailureIsNeverOTP(t *testing.T) {
	c := &model.Customer{ID: 1, Devices: []int64{1}, TwoFactor: true}
	for seed := int64(0); seed < 50; seed++ {
		events := emitSession(seed, c, 1)
		require.Len(t, events, 2)
		assert.Equal(t, model.FailureWrongPassword, events[0].FailureReason)
		assert.Equal(t, events[1].Timestamp.Add(-failureSpacing), events[0].Timestamp)
		assert.Equal(t, model.AuthType2FA, events[1].AuthType)
	}
}
