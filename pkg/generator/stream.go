package generator

import (
	"encoding/hex"
	"fmt"
	"math"
	"math/rand"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// Stream is a deterministic source of random draws. Every synthesizer owns
// exactly one stream; nothing in this package touches global random state.
type Stream struct {
	faker *gofakeit.Faker
	rnd   *rand.Rand
}

// NewStream creates a stream seeded with seed. The faker and the numeric
// draws share the same underlying source.
func NewStream(seed int64) *Stream {
	faker := gofakeit.NewCustom(rand.NewSource(seed).(rand.Source64))
	return &Stream{
		faker: faker,
		rnd:   faker.Rand,
	}
}

// Float64 returns a uniform value in [0,1)
func (s *Stream) Float64() float64 {
	return s.rnd.Float64()
}

// Chance returns true with probability p
func (s *Stream) Chance(p float64) bool {
	return s.rnd.Float64() < p
}

// IntRange returns a uniform integer in [lo, hi]
func (s *Stream) IntRange(lo, hi int) int {
	if hi <= lo {
		return lo
	}
	return lo + s.rnd.Intn(hi-lo+1)
}

// Intn returns a uniform integer in [0, n)
func (s *Stream) Intn(n int) int {
	return s.rnd.Intn(n)
}

// Uniform returns a uniform float in [lo, hi)
func (s *Stream) Uniform(lo, hi float64) float64 {
	return lo + s.rnd.Float64()*(hi-lo)
}

// Amount returns a uniform currency amount in [lo, hi] rounded to cents
func (s *Stream) Amount(lo, hi float64) decimal.Decimal {
	return decimal.NewFromFloat(s.Uniform(lo, hi)).Round(2)
}

// Poisson draws from a Poisson distribution using Knuth's multiplication method
func (s *Stream) Poisson(mean float64) int {
	limit := math.Exp(-mean)
	k := 0
	p := 1.0
	for {
		p *= s.rnd.Float64()
		if p <= limit {
			return k
		}
		k++
	}
}

// Pick returns a uniformly chosen element of items
func Pick[T any](s *Stream, items []T) T {
	return items[s.rnd.Intn(len(items))]
}

// Weighted returns an index drawn proportionally to weights
func (s *Stream) Weighted(weights []int) int {
	total := 0
	for _, w := range weights {
		total += w
	}
	n := s.rnd.Intn(total)
	for i, w := range weights {
		if n < w {
			return i
		}
		n -= w
	}
	return len(weights) - 1
}

// Sample draws k distinct indices from [0, n) in selection order
func (s *Stream) Sample(n, k int) []int {
	if k > n {
		k = n
	}
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	for i := 0; i < k; i++ {
		j := i + s.rnd.Intn(n-i)
		idx[i], idx[j] = idx[j], idx[i]
	}
	return idx[:k]
}

// TimeBetween returns a uniform timestamp in [lo, hi] with second precision
func (s *Stream) TimeBetween(lo, hi time.Time) time.Time {
	span := hi.Unix() - lo.Unix()
	if span <= 0 {
		return lo
	}
	return lo.Add(time.Duration(s.rnd.Int63n(span+1)) * time.Second)
}

// Seconds returns a uniform duration in [lo, hi] seconds
func (s *Stream) Seconds(lo, hi int) time.Duration {
	return time.Duration(s.IntRange(lo, hi)) * time.Second
}

// Days returns a uniform duration in [lo, hi] days
func (s *Stream) Days(lo, hi int) time.Duration {
	return time.Duration(s.IntRange(lo, hi)) * 24 * time.Hour
}

// Hex returns n random bytes hex encoded
func (s *Stream) Hex(n int) string {
	buf := make([]byte, n)
	s.rnd.Read(buf)
	return hex.EncodeToString(buf)
}

// Digits returns a zero padded random number with n digits
func (s *Stream) Digits(n int) string {
	limit := int(math.Pow10(n))
	return fmt.Sprintf("%0*d", n, s.rnd.Intn(limit))
}

// CountryCode returns a random ISO 3166 alpha-2 code
func (s *Stream) CountryCode() string {
	return s.faker.CountryAbr()
}

// CountryCodeExcept returns a random country code different from cc
func (s *Stream) CountryCodeExcept(cc string) string {
	for {
		if other := s.faker.CountryAbr(); other != cc {
			return other
		}
	}
}

// IPv4 returns a random dotted quad
func (s *Stream) IPv4() string {
	return s.faker.IPv4Address()
}

// CardNumber returns a Luhn-valid card number for the network
func (s *Stream) CardNumber(network CardNetwork) string {
	return s.faker.CreditCardNumber(&gofakeit.CreditCardOptions{
		Types: []string{network.fakerType},
	})
}

// Bothify replaces every '?' in pattern with an upper case letter and every
// '#' with a digit
func (s *Stream) Bothify(pattern string) string {
	return strings.ToUpper(s.faker.Numerify(s.faker.Lexify(pattern)))
}

// GeoLocation returns "lat,lon" with four decimals
func (s *Stream) GeoLocation() string {
	return fmt.Sprintf("%.4f,%.4f", s.faker.Latitude(), s.faker.Longitude())
}
