package generator

import (
	"sort"
	"time"

	"github.com/therealutkarshpriyadarshi/fraudsim/pkg/model"
)

const (
	sessionMean = 12

	// Password failures are spaced this far apart, counting back from success
	failureSpacing = 5 * time.Second
	// An OTP failure lands this long before the success it precedes
	otpLead = 2 * time.Second
	// Longest back-dating any session can need
	maxBackdate = 4 * failureSpacing
	// The first fraudulent charge follows a takeover by at least this much
	minFraudDelay = 60
	maxFraudDelay = 86400
)

// AuthResult is the output of the authentication synthesizer
type AuthResult struct {
	Events []model.AuthEvent
	// CompromisedTimes maps each takeover target to the success time of the
	// attacker's login
	CompromisedTimes map[int64]time.Time
}

type authSynth struct {
	s        *Stream
	window   Window
	events   *Sequence
	sessions *Sequence
	out      []model.AuthEvent
}

// session describes one login session before it is expanded into events
type session struct {
	customer *model.Customer
	device   int64
	success  time.Time
	channel  string
	location string
	failures int
}

// SynthesizeAuth emits login sessions for every customer plus one attacker
// session per takeover target, sorted by timestamp.
func SynthesizeAuth(pop *Population, w Window, s *Stream) *AuthResult {
	a := &authSynth{
		s:        s,
		window:   w,
		events:   NewSequence(1),
		sessions: NewSequence(1),
	}
	compromised := make(map[int64]time.Time, len(pop.ATOCustomers))

	earliest := w.Start.Add(maxBackdate)
	for _, c := range pop.Customers {
		count := max(1, s.Poisson(sessionMean))
		for i := 0; i < count; i++ {
			failures := 0
			if s.Chance(0.2) {
				failures = 1
				if s.Chance(0.1) {
					failures = s.IntRange(2, 4)
				}
			}
			sess := session{
				customer: c,
				failures: failures,
				success:  s.TimeBetween(earliest, w.End),
				device:   Pick(s, c.Devices),
				channel:  Pick(s, authChannels),
				location: locationFor(s, c.HomeCountry),
			}
			if s.Chance(0.05) {
				sess.location = locationFor(s, s.CountryCodeExcept(c.HomeCountry))
			}
			a.emit(sess)
		}

		if c.IsATOTarget() {
			// leave room for the fraudulent charge that follows the takeover
			latest := w.Last().Add(-minFraudDelay * time.Second)
			sess := session{
				customer: c,
				device:   c.AttackerDevice,
				success:  s.TimeBetween(earliest, latest),
			}
			sess.location = locationFor(s, s.CountryCodeExcept(c.HomeCountry))
			sess.channel = Pick(s, authChannels)
			sess.failures = s.IntRange(1, 4)
			a.emit(sess)
			compromised[c.ID] = sess.success
		}
	}

	sort.SliceStable(a.out, func(i, j int) bool {
		return a.out[i].Timestamp.Before(a.out[j].Timestamp)
	})

	return &AuthResult{Events: a.out, CompromisedTimes: compromised}
}

// emit expands a session into its failure events and the terminating success.
// With 2FA and more than one failure the last failure may be an OTP mismatch.
func (a *authSynth) emit(sess session) {
	c := sess.customer
	sessionID := a.sessions.Next()

	otp := c.TwoFactor && sess.failures > 1 && a.s.Chance(0.5)
	passwordFailures := sess.failures
	if otp {
		passwordFailures--
	}

	base := model.AuthEvent{
		SessionID:  sessionID,
		CustomerID: c.ID,
		DeviceID:   sess.device,
		Channel:    sess.channel,
		Location:   sess.location,
	}

	for attempt := 1; attempt <= passwordFailures; attempt++ {
		ev := base
		ev.AuthEventID = a.events.Next()
		ev.Timestamp = sess.success.Add(-failureSpacing * time.Duration(passwordFailures-attempt+1))
		ev.AuthType = model.AuthTypePassword
		ev.IPAddress = a.s.IPv4()
		ev.AuthStatus = model.AuthStatusFailure
		ev.FailureReason = model.FailureWrongPassword
		ev.LoginAttempts = attempt
		a.out = append(a.out, ev)
	}

	if otp {
		ev := base
		ev.AuthEventID = a.events.Next()
		ev.Timestamp = sess.success.Add(-otpLead)
		ev.AuthType = model.AuthType2FA
		ev.IPAddress = a.s.IPv4()
		ev.AuthStatus = model.AuthStatusFailure
		ev.FailureReason = model.FailureOTPMismatch
		ev.LoginAttempts = passwordFailures + 1
		a.out = append(a.out, ev)
	}

	ev := base
	ev.AuthEventID = a.events.Next()
	ev.Timestamp = sess.success
	ev.AuthType = model.AuthTypePassword
	if c.TwoFactor {
		ev.AuthType = model.AuthType2FA
	}
	ev.IPAddress = a.s.IPv4()
	ev.AuthStatus = model.AuthStatusSuccess
	ev.LoginAttempts = sess.failures + 1
	a.out = append(a.out, ev)
}
