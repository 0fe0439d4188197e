package services

import (
	"math"
	"testing"
	"time"

	"papertrader/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		InitialCash:             100000,
		RiskFreeRate:            0.0416,
		AnnualizationCutoffDays: 365,
		TradingDaysPerYear:      252,
		CalendarDaysPerYear:     365,
		RefreshInterval:         time.Minute,
		SettlementGrace:         time.Minute,
		PriceEpsilon:            0.005,
	}
}

func floatPtr(v float64) *float64 {
	return &v
}

func TestComputeGreeksDegradedMode(t *testing.T) {
	calc := NewGreeksCalculator(testConfig())
	now := time.Date(2025, 6, 2, 15, 0, 0, 0, time.UTC)
	future := now.AddDate(0, 1, 0)

	t.Run("nil implied volatility", func(t *testing.T) {
		g := calc.Compute("call", 100, 100, future, nil, now)
		assert.Nil(t, g.Delta)
		assert.Nil(t, g.Gamma)
		assert.Nil(t, g.Theta)
		assert.Nil(t, g.Vega)
		assert.Nil(t, g.ImpliedVolatility)
	})

	t.Run("zero implied volatility passes through", func(t *testing.T) {
		iv := floatPtr(0)
		g := calc.Compute("call", 100, 100, future, iv, now)
		assert.Nil(t, g.Delta)
		require.NotNil(t, g.ImpliedVolatility)
		assert.Equal(t, 0.0, *g.ImpliedVolatility)
	})

	t.Run("negative implied volatility", func(t *testing.T) {
		g := calc.Compute("put", 100, 100, future, floatPtr(-0.3), now)
		assert.Nil(t, g.Delta)
		require.NotNil(t, g.ImpliedVolatility)
		assert.Equal(t, -0.3, *g.ImpliedVolatility)
	})

	t.Run("expired contract", func(t *testing.T) {
		g := calc.Compute("call", 100, 100, now.Add(-time.Hour), floatPtr(0.2), now)
		assert.Nil(t, g.Delta)
		assert.Nil(t, g.Theta)
		require.NotNil(t, g.ImpliedVolatility)
		assert.Equal(t, 0.2, *g.ImpliedVolatility)
	})

	t.Run("expiring exactly now", func(t *testing.T) {
		g := calc.Compute("call", 100, 100, now, floatPtr(0.2), now)
		assert.Nil(t, g.Delta)
	})

	t.Run("degenerate underlying price", func(t *testing.T) {
		g := calc.Compute("call", 0, 100, future, floatPtr(0.2), now)
		assert.Nil(t, g.Delta)
	})
}

func TestComputeGreeksThetaPerDay(t *testing.T) {
	calc := NewGreeksCalculator(testConfig())
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	// 63 trading-day-convention days gives exactly T = 63/252 = 0.25.
	expiration := now.Add(63 * 24 * time.Hour)
	g := calc.Compute("call", 100, 100, expiration, floatPtr(0.2), now)

	require.NotNil(t, g.Theta)
	require.NotNil(t, g.Delta)
	require.NotNil(t, g.Gamma)
	require.NotNil(t, g.Vega)

	S, K, sigma, r, bigT := 100.0, 100.0, 0.2, 0.0416, 0.25
	sqrtT := math.Sqrt(bigT)
	d1 := (math.Log(S/K) + (r+0.5*sigma*sigma)*bigT) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	annualTheta := -S*stdNormPDF(d1)*sigma/(2*sqrtT) - r*K*math.Exp(-r*bigT)*stdNormCDF(d2)

	assert.InDelta(t, annualTheta/365, *g.Theta, 1e-10)
	assert.Negative(t, *g.Theta)

	// ATM call delta sits a bit above 0.5.
	assert.Greater(t, *g.Delta, 0.5)
	assert.Less(t, *g.Delta, 0.65)
	assert.Positive(t, *g.Gamma)
	assert.Positive(t, *g.Vega)
}

func TestComputeGreeksPutCallRelationship(t *testing.T) {
	calc := NewGreeksCalculator(testConfig())
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)
	expiration := now.Add(90 * 24 * time.Hour)

	call := calc.Compute("call", 105, 100, expiration, floatPtr(0.25), now)
	put := calc.Compute("put", 105, 100, expiration, floatPtr(0.25), now)

	require.NotNil(t, call.Delta)
	require.NotNil(t, put.Delta)

	// Zero dividend yield: call delta minus put delta equals one.
	assert.InDelta(t, 1.0, *call.Delta-*put.Delta, 1e-10)
	assert.InDelta(t, *call.Gamma, *put.Gamma, 1e-10)
	assert.InDelta(t, *call.Vega, *put.Vega, 1e-10)
}

func TestComputeGreeksAnnualizationCutoff(t *testing.T) {
	calc := NewGreeksCalculator(testConfig())
	now := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)

	// A contract just under the cutoff uses the trading-day divisor, so its
	// effective T is larger than the same raw day count over calendar days.
	short := calc.Compute("call", 100, 100, now.Add(364*24*time.Hour), floatPtr(0.2), now)
	long := calc.Compute("call", 100, 100, now.Add(366*24*time.Hour), floatPtr(0.2), now)

	require.NotNil(t, short.Vega)
	require.NotNil(t, long.Vega)

	// 364/252 > 366/365, so vega (monotonic in T) must be larger short-dated.
	assert.Greater(t, *short.Vega, *long.Vega)
}
