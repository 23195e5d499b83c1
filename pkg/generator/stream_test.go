package generator

import (
	"regexp"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStreamIsReproducible(t *testing.T) {
	a, b := NewStream(99), NewStream(99)
	for i := 0; i < 50; i++ {
		require.Equal(t, a.IntRange(0, 1000), b.IntRange(0, 1000))
		require.Equal(t, a.IPv4(), b.IPv4())
		require.Equal(t, a.CountryCode(), b.CountryCode())
		require.Equal(t, a.Bothify("??###"), b.Bothify("??###"))
	}
}

func TestStreamRanges(t *testing.T) {
	s := NewStream(1)
	lo := time.Date(2022, 1, 1, 0, 0, 0, 0, time.UTC)
	hi := lo.Add(10 * time.Second)

	for i := 0; i < 500; i++ {
		n := s.IntRange(-5, 5)
		assert.GreaterOrEqual(t, n, -5)
		assert.LessOrEqual(t, n, 5)

		amount := s.Amount(1, 500)
		assert.True(t, amount.Equal(amount.Round(2)))
		assert.True(t, amount.GreaterThanOrEqual(decimal.NewFromInt(1)))
		assert.True(t, amount.LessThanOrEqual(decimal.NewFromInt(500)))

		ts := s.TimeBetween(lo, hi)
		assert.False(t, ts.Before(lo))
		assert.False(t, ts.After(hi))
		assert.Zero(t, ts.Nanosecond())
	}

	assert.Equal(t, 3, s.IntRange(3, 3))
	assert.Equal(t, lo, s.TimeBetween(lo, lo))
}

func TestStreamSample(t *testing.T) {
	s := NewStream(5)

	picked := s.Sample(100, 30)
	require.Len(t, picked, 30)
	seen := make(map[int]bool)
	for _, i := range picked {
		assert.False(t, seen[i], "index %d drawn twice", i)
		assert.True(t, i >= 0 && i < 100)
		seen[i] = true
	}

	assert.Len(t, s.Sample(3, 10), 3)
	assert.Empty(t, s.Sample(10, 0))
}

func TestStreamPoissonMean(t *testing.T) {
	s := NewStream(11)
	total := 0
	const draws = 5000
	for i := 0; i < draws; i++ {
		total += s.Poisson(10)
	}
	mean := float64(total) / draws
	assert.InDelta(t, 10, mean, 0.5)
}

func TestStreamFormats(t *testing.T) {
	s := NewStream(3)

	assert.Regexp(t, regexp.MustCompile(`^[A-Z]{2}[0-9]{7}$`), s.Bothify("??#######"))
	assert.Regexp(t, regexp.MustCompile(`^-?\d+\.\d{4},-?\d+\.\d{4}$`), s.GeoLocation())
	assert.Regexp(t, regexp.MustCompile(`^\d{6}$`), s.Digits(6))
	assert.Len(t, s.Hex(8), 16)
	assert.Regexp(t, regexp.MustCompile(`^\d+\.\d+\.\d+\.\d+$`), s.IPv4())

	for i := 0; i < 50; i++ {
		assert.NotEqual(t, "US", s.CountryCodeExcept("US"))
	}
}

func TestStreamWeighted(t *testing.T) {
	s := NewStream(8)
	counts := make([]int, 2)
	for i := 0; i < 2000; i++ {
		counts[s.Weighted([]int{60, 40})]++
	}
	assert.InDelta(t, 0.6, float64(counts[0])/2000, 0.05)
	assert.Equal(t, 0, s.Weighted([]int{1, 0}))
}

func TestCardNumbersPerNetwork(t *testing.T) {
	s := NewStream(4)
	for _, network := range cardNetworks {
		number := s.CardNumber(network)
		assert.Regexp(t, regexp.MustCompile(`^\d{13,19}$`), number, network.Name)
	}
}

func TestLocationAndCurrency(t *testing.T) {
	s := NewStream(2)

	assert.Regexp(t, regexp.MustCompile(`^[A-Za-z .]+, GB$`), locationFor(s, "GB"))
	assert.Equal(t, "QQ", locationFor(s, "QQ"))

	assert.Equal(t, "EUR", currencyFor(s, "DE"))
	assert.Contains(t, fallbackCurrencies, currencyFor(s, "QQ"))
}

func TestSequence(t *testing.T) {
	seq := NewSequence(1)
	assert.Equal(t, int64(1), seq.Peek())
	assert.Equal(t, int64(1), seq.Next())
	assert.Equal(t, int64(2), seq.Next())
	assert.Equal(t, int64(3), seq.Peek())
}
