package generator

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalidParams is wrapped by every parameter validation failure
var ErrInvalidParams = errors.New("invalid generator parameters")

// MinWindow is the shortest simulation window accepted
const MinWindow = time.Hour

// Component stream offsets added to the run seed
const (
	streamPopulation int64 = iota
	streamAuth
	streamPayments
	streamDisputes
	streamKYC
)

// Params are the inputs of a generator run
type Params struct {
	Customers           int     `validate:"min=1"`
	Merchants           int     `validate:"min=1"`
	MultipleDeviceRatio float64 `validate:"gte=0,lte=1"`
	ATORatio            float64 `validate:"gte=0,lte=1"`
	TwoFactorRatio      float64 `validate:"gte=0,lte=1"`
	// ATOCustomers, when set, selects the takeover targets explicitly instead of
	// sampling ATORatio of the population
	ATOCustomers     []int64 `validate:"omitempty,unique,dive,min=1"`
	Start            time.Time
	End              time.Time
	DuplicatePairs   int `validate:"min=0"`
	DuplicateTriples int `validate:"min=0"`
	KYCFailCount     int `validate:"min=0"`
	Seed             int64
}

// DefaultParams mirrors the three year production-sized run
func DefaultParams() Params {
	return Params{
		Customers:           100000,
		Merchants:           1000,
		MultipleDeviceRatio: 0.1,
		ATORatio:            0.01,
		TwoFactorRatio:      0.3,
		Start:               time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC),
		End:                 time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC),
		DuplicatePairs:      100,
		DuplicateTriples:    10,
		KYCFailCount:        500,
		Seed:                42,
	}
}

// Window returns the simulation window in UTC
func (p Params) Window() Window {
	return Window{Start: p.Start.UTC(), End: p.End.UTC()}
}

// ParamError lists every problem found in a parameter set
type ParamError struct {
	Problems []string
}

func (e *ParamError) Error() string {
	return fmt.Sprintf("%s: %s", ErrInvalidParams, strings.Join(e.Problems, "; "))
}

func (e *ParamError) Unwrap() error {
	return ErrInvalidParams
}

var validate = validator.New()

// Validate checks field ranges and cross-field constraints. It never truncates
// a request silently.
func (p Params) Validate() error {
	var problems []string

	if err := validate.Struct(p); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			return fmt.Errorf("%w: %v", ErrInvalidParams, err)
		}
		for _, fe := range verrs {
			problems = append(problems, describeFieldError(fe))
		}
	}

	if p.Start.IsZero() || p.End.IsZero() {
		problems = append(problems, "start and end of the simulation window are required")
	} else if p.End.Sub(p.Start) < MinWindow {
		problems = append(problems, fmt.Sprintf("window %s..%s must span at least %s",
			p.Start.Format(time.RFC3339), p.End.Format(time.RFC3339), MinWindow))
	}

	for _, id := range p.ATOCustomers {
		if id > int64(p.Customers) {
			problems = append(problems, fmt.Sprintf("ato customer %d outside population 1..%d", id, p.Customers))
		}
	}

	clustered := p.DuplicatePairs*2 + p.DuplicateTriples*3
	if clustered > p.Customers {
		problems = append(problems, fmt.Sprintf("duplicate identity clusters need %d customers, population is %d",
			clustered, p.Customers))
	} else if p.KYCFailCount > p.Customers-clustered {
		problems = append(problems, fmt.Sprintf("kyc fail count %d exceeds the %d customers outside identity clusters",
			p.KYCFailCount, p.Customers-clustered))
	}

	if len(problems) > 0 {
		return &ParamError{Problems: problems}
	}
	return nil
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min", "gte":
		return fmt.Sprintf("%s must be >= %s", fe.Field(), fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be <= %s", fe.Field(), fe.Param())
	case "unique":
		return fmt.Sprintf("%s must not contain duplicates", fe.Field())
	default:
		return fmt.Sprintf("%s failed %s validation", fe.Field(), fe.Tag())
	}
}

// Window is the closed simulation interval [Start, End]
type Window struct {
	Start time.Time
	End   time.Time
}

// Last is the latest instant an event that can still be disputed may carry.
// Keeping it one second before End leaves room for a dispute filed at End.
func (w Window) Last() time.Time {
	return w.End.Add(-time.Second)
}

// Clamp caps t at the window end and reports whether it had to
func (w Window) Clamp(t time.Time) (time.Time, bool) {
	if t.After(w.End) {
		return w.End, true
	}
	return t, false
}

// Contains reports whether t falls inside the window
func (w Window) Contains(t time.Time) bool {
	return !t.Before(w.Start) && !t.After(w.End)
}
