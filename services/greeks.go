package services

import (
	"math"
	"time"

	"papertrader/config"
	"papertrader/interfaces"
)

// GreeksCalculator prices option sensitivities with closed-form
// Black-Scholes-Merton for European exercise. The risk-free rate is a fixed
// constant and the dividend yield is assumed zero, so computed Greeks drift
// from real market makers; that is an accepted simplification for a paper
// simulator. American-style early exercise is not modeled.
type GreeksCalculator struct {
	riskFreeRate       float64
	cutoffDays         float64
	tradingDaysPerYear float64
	calendarDays       float64
}

// NewGreeksCalculator creates a Greeks calculator from policy configuration.
func NewGreeksCalculator(cfg *config.Config) *GreeksCalculator {
	return &GreeksCalculator{
		riskFreeRate:       cfg.RiskFreeRate,
		cutoffDays:         cfg.AnnualizationCutoffDays,
		tradingDaysPerYear: cfg.TradingDaysPerYear,
		calendarDays:       cfg.CalendarDaysPerYear,
	}
}

// Compute returns delta, gamma, per-day theta, and vega for a contract.
// Degraded mode: when implied volatility is unknown or non-positive, the
// contract is expired, or the math goes non-finite, all Greeks come back nil
// with the implied volatility passed through unchanged. Callers must treat
// nil as "unavailable", not zero. Compute never fails.
func (g *GreeksCalculator) Compute(optionType string, underlying, strike float64, expiration time.Time, impliedVolatility *float64, now time.Time) interfaces.Greeks {
	out := interfaces.Greeks{ImpliedVolatility: impliedVolatility}

	if impliedVolatility == nil || *impliedVolatility <= 0 {
		return out
	}
	if underlying <= 0 || strike <= 0 {
		return out
	}

	days := expiration.Sub(now).Hours() / 24
	if days <= 0 {
		return out
	}

	// Short-dated contracts annualize over trading days, long-dated over
	// calendar days.
	divisor := g.tradingDaysPerYear
	if days > g.cutoffDays {
		divisor = g.calendarDays
	}
	t := days / divisor

	sigma := *impliedVolatility
	r := g.riskFreeRate
	sqrtT := math.Sqrt(t)

	d1 := (math.Log(underlying/strike) + (r+0.5*sigma*sigma)*t) / (sigma * sqrtT)
	d2 := d1 - sigma*sqrtT
	pdfD1 := stdNormPDF(d1)

	var delta, thetaAnnual float64
	if optionType == "put" {
		delta = stdNormCDF(d1) - 1
		thetaAnnual = -underlying*pdfD1*sigma/(2*sqrtT) + r*strike*math.Exp(-r*t)*stdNormCDF(-d2)
	} else {
		delta = stdNormCDF(d1)
		thetaAnnual = -underlying*pdfD1*sigma/(2*sqrtT) - r*strike*math.Exp(-r*t)*stdNormCDF(d2)
	}

	gamma := pdfD1 / (underlying * sigma * sqrtT)
	vega := underlying * pdfD1 * sqrtT
	theta := thetaAnnual / 365 // per-day decay, the unit the rest of the system expects

	if !isFinite(delta) || !isFinite(gamma) || !isFinite(theta) || !isFinite(vega) {
		return out
	}

	out.Delta = &delta
	out.Gamma = &gamma
	out.Theta = &theta
	out.Vega = &vega
	return out
}

func stdNormCDF(x float64) float64 {
	return 0.5 * math.Erfc(-x/math.Sqrt2)
}

func stdNormPDF(x float64) float64 {
	return math.Exp(-0.5*x*x) / math.Sqrt(2*math.Pi)
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}
