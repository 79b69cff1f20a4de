package pricing

import (
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"hyperion/internal/domain/option"
)

func TestNormCdf_KnownValues(t *testing.T) {
	cases := []struct {
		x    float64
		want float64
	}{
		{0, 0.5},
		{1, 0.8413447461},
		{-1, 0.1586552539},
		{1.96, 0.9750021049},
		{-1.96, 0.0249978951},
		{3, 0.9986501020},
	}

	for _, c := range cases {
		assert.InDelta(t, c.want, normCdf(c.x), 1e-6, "N(%v)", c.x)
	}
}

func TestNormCdf_Symmetry(t *testing.T) {
	for _, x := range []float64{0.1, 0.5, 1.3, 2.7} {
		assert.InDelta(t, 1.0, normCdf(x)+normCdf(-x), 1e-9)
	}
}

func TestBlackScholes_AtTheMoneyOneDay(t *testing.T) {
	// spot=strike=1600, iv=180% annualized, 1 day to expiry
	// Closed-form zero-rate value: 60.11675
	got := blackScholes(option.TypeCall, 1600, 1600, 1, 1.8)
	assert.InDelta(t, 60.1167530, got, 1e-3)

	// Zero rate makes the ATM put worth exactly the ATM call
	put := blackScholes(option.TypePut, 1600, 1600, 1, 1.8)
	assert.InDelta(t, got, put, 1e-9)
}

func TestBlackScholes_PutCallParity(t *testing.T) {
	// Zero-rate parity: call - put = spot - strike
	for _, strike := range []float64{1400, 1600, 1850} {
		call := blackScholes(option.TypeCall, 1600, strike, 7, 0.8)
		put := blackScholes(option.TypePut, 1600, strike, 7, 0.8)
		assert.InDelta(t, 1600-strike, call-put, 1e-6, "strike %v", strike)
	}
}

func TestBlackScholes_MonotonicInVolAndExpiry(t *testing.T) {
	lowVol := blackScholes(option.TypeCall, 1600, 1600, 7, 0.5)
	highVol := blackScholes(option.TypeCall, 1600, 1600, 7, 1.5)
	assert.Greater(t, highVol, lowVol)

	short := blackScholes(option.TypeCall, 1600, 1600, 1, 0.8)
	long := blackScholes(option.TypeCall, 1600, 1600, 28, 0.8)
	assert.Greater(t, long, short)
}

func TestBlackScholes_IntrinsicFloor(t *testing.T) {
	// Deep in the money converges to intrinsic value
	call := blackScholes(option.TypeCall, 1600, 100, 1, 0.8)
	assert.InDelta(t, 1500, call, 1)

	put := blackScholes(option.TypePut, 100, 1600, 1, 0.8)
	assert.InDelta(t, 1500, put, 1)
}

func TestUnitPremium_GuardsDegenerateInputs(t *testing.T) {
	// Zero vol divides by zero inside d1; the result must clamp to zero
	// instead of propagating NaN
	got := unitPremium(option.TypeCall, decimal.NewFromInt(1600), decimal.NewFromInt(1600), 1, decimal.Zero)
	assert.True(t, got.IsZero())
}

func TestUnitPremium_MatchesFloatModel(t *testing.T) {
	got := unitPremium(option.TypeCall,
		decimal.NewFromInt(1600), decimal.NewFromInt(1600), 1, decimal.RequireFromString("1.8"))

	want := blackScholes(option.TypeCall, 1600, 1600, 1, 1.8)
	assert.InDelta(t, want, got.InexactFloat64(), 1e-9)
	assert.False(t, math.IsNaN(got.InexactFloat64()))
}
