package pricing

import (
	"math"

	"github.com/shopspring/decimal"

	"hyperion/internal/domain/option"
)

// daysPerYear converts expiry days to the year fraction used by the model
const daysPerYear = 365.0

// normCdf is the standard normal CDF approximated with the
// Abramowitz & Stegun 26.2.17 polynomial (absolute error < 7.5e-8)
func normCdf(x float64) float64 {
	if x < 0 {
		return 1 - normCdf(-x)
	}

	const (
		p  = 0.2316419
		b1 = 0.319381530
		b2 = -0.356563782
		b3 = 1.781477937
		b4 = -1.821255978
		b5 = 1.330274429
	)

	k := 1 / (1 + p*x)
	poly := k * (b1 + k*(b2+k*(b3+k*(b4+k*b5))))
	return 1 - normPdf(x)*poly
}

// normPdf is the standard normal probability density function
func normPdf(x float64) float64 {
	return math.Exp(-x*x/2) / math.Sqrt(2*math.Pi)
}

// blackScholes returns the zero-rate Black-Scholes value of one unit
//
// Call = S*N(d1) - K*N(d2); Put = K*N(-d2) - S*N(-d1)
func blackScholes(typ option.Type, spot, strike, expiryDaysF, vol float64) float64 {
	t := expiryDaysF / daysPerYear
	sqrtT := math.Sqrt(t)

	d1 := (math.Log(spot/strike) + 0.5*vol*vol*t) / (vol * sqrtT)
	d2 := d1 - vol*sqrtT

	if typ == option.TypeCall {
		return spot*normCdf(d1) - strike*normCdf(d2)
	}
	return strike*normCdf(-d2) - spot*normCdf(-d1)
}

// unitPremium evaluates the model on decimal inputs and returns the per-unit
// premium as a decimal rounded to 18 places, floored at zero
func unitPremium(typ option.Type, spot, strike decimal.Decimal, expiryDays int32, vol decimal.Decimal) decimal.Decimal {
	value := blackScholes(typ,
		spot.InexactFloat64(),
		strike.InexactFloat64(),
		float64(expiryDays),
		vol.InexactFloat64(),
	)
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(value).Round(18)
}
