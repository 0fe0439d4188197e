package services

import (
	"testing"
	"time"

	"papertrader/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPortfolio() *interfaces.Portfolio {
	return &interfaces.Portfolio{
		UserID:       "test",
		CashBalance:  100000,
		InitialValue: 100000,
	}
}

func expiredCall(underlying string, strike, premium float64, contracts int, expiration time.Time) *interfaces.OptionHolding {
	return &interfaces.OptionHolding{
		Symbol:          FormatOptionSymbol(underlying, expiration, "call", strike),
		Underlying:      underlying,
		Contracts:       contracts,
		PurchasePremium: premium,
		CurrentPremium:  premium,
		OptionType:      "call",
		Strike:          strike,
		Expiration:      expiration,
	}
}

func expiredPut(underlying string, strike, premium float64, contracts int, expiration time.Time) *interfaces.OptionHolding {
	h := expiredCall(underlying, strike, premium, contracts, expiration)
	h.OptionType = "put"
	h.Symbol = FormatOptionSymbol(underlying, expiration, "put", strike)
	return h
}

func TestSettleExpiredITMCall(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 2, now.Add(-2*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"AAPL": 120}, now)

	assert.True(t, result.Changed)
	assert.Empty(t, result.Portfolio.Options)

	// Exercise debits strike x contracts x 100 and credits the shares.
	assert.Equal(t, 100000.0-20000.0, result.Portfolio.CashBalance)
	holding := result.Portfolio.FindHolding("AAPL")
	require.NotNil(t, holding)
	assert.Equal(t, 200.0, holding.Shares)
	assert.Equal(t, 100.0, holding.CostBasis)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, interfaces.TxTypeOptionExercise, tx.Type)
	assert.Equal(t, "AAPL", tx.Ticker)
	assert.Equal(t, 2.0, tx.Quantity)
	assert.Equal(t, 20000.0, tx.TotalAmount)
	require.NotNil(t, tx.RealizedPL)
	assert.Equal(t, 3000.0, *tx.RealizedPL) // (20 - 5) x 2 x 100

	// Input portfolio is untouched.
	assert.Len(t, portfolio.Options, 1)
	assert.Equal(t, 100000.0, portfolio.CashBalance)
}

func TestSettleExpiredITMCallMergesCostBasis(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Holdings = []*interfaces.StockHolding{
		{Ticker: "AAPL", Shares: 100, CostBasis: 50},
	}
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 1, now.Add(-2*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"AAPL": 120}, now)

	holding := result.Portfolio.FindHolding("AAPL")
	require.NotNil(t, holding)
	assert.Equal(t, 200.0, holding.Shares)
	// (50x100 + 100x100) / 200
	assert.Equal(t, 75.0, holding.CostBasis)
}

func TestSettleExpiredOTMPut(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredPut("TSLA", 50, 3, 1, now.Add(-2*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"TSLA": 60}, now)

	assert.True(t, result.Changed)
	assert.Empty(t, result.Portfolio.Options)
	assert.Equal(t, 100000.0, result.Portfolio.CashBalance)
	assert.Empty(t, result.Portfolio.Holdings)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, interfaces.TxTypeOptionExpire, tx.Type)
	require.NotNil(t, tx.RealizedPL)
	assert.Equal(t, -300.0, *tx.RealizedPL) // -3 x 1 x 100
}

func TestSettleExpiredITMPut(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Holdings = []*interfaces.StockHolding{
		{Ticker: "TSLA", Shares: 150, CostBasis: 40},
	}
	portfolio.Options = []*interfaces.OptionHolding{
		expiredPut("TSLA", 50, 2, 1, now.Add(-2*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"TSLA": 30}, now)

	assert.True(t, result.Changed)
	assert.Empty(t, result.Portfolio.Options)
	assert.Equal(t, 100000.0+5000.0, result.Portfolio.CashBalance)

	holding := result.Portfolio.FindHolding("TSLA")
	require.NotNil(t, holding)
	assert.Equal(t, 50.0, holding.Shares)

	require.Len(t, result.Transactions, 1)
	tx := result.Transactions[0]
	assert.Equal(t, interfaces.TxTypeOptionExercise, tx.Type)
	require.NotNil(t, tx.RealizedPL)
	assert.Equal(t, (20.0-2.0)*100, *tx.RealizedPL)
}

func TestSettleExpiredPutWithoutCoveringShares(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Holdings = []*interfaces.StockHolding{
		{Ticker: "TSLA", Shares: 50, CostBasis: 40}, // needs 100 to cover
	}
	portfolio.Options = []*interfaces.OptionHolding{
		expiredPut("TSLA", 50, 2, 1, now.Add(-2*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"TSLA": 30}, now)

	// Short assignment is not simulated: holding stays open, nothing moves.
	assert.False(t, result.Changed)
	assert.Len(t, result.Portfolio.Options, 1)
	assert.Equal(t, 100000.0, result.Portfolio.CashBalance)
	assert.Equal(t, 50.0, result.Portfolio.FindHolding("TSLA").Shares)
	assert.Empty(t, result.Transactions)
}

func TestSettleExpiredIdempotent(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 2, now.Add(-2*time.Hour)),
	}
	quotes := map[string]float64{"AAPL": 120}

	first := engine.SettleExpired(portfolio, nil, quotes, now)
	assert.True(t, first.Changed)

	second := engine.SettleExpired(first.Portfolio, first.Transactions, quotes, now)
	assert.False(t, second.Changed)
	assert.Equal(t, first.Portfolio.CashBalance, second.Portfolio.CashBalance)
	assert.Len(t, second.Transactions, len(first.Transactions))
}

func TestSettleExpiredMissingQuoteDefers(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 1, now.Add(-2*time.Hour)),
		expiredCall("MSFT", 300, 4, 1, now.Add(-2*time.Hour)),
	}

	// Quote available for only one of the two underlyings.
	result := engine.SettleExpired(portfolio, nil, map[string]float64{"AAPL": 120}, now)

	assert.True(t, result.Changed)
	require.Len(t, result.Portfolio.Options, 1)
	assert.Equal(t, "MSFT", result.Portfolio.Options[0].Underlying)
	require.Len(t, result.Transactions, 1)
	assert.Equal(t, "AAPL", result.Transactions[0].Ticker)
}

func TestSettleExpiredGraceBuffer(t *testing.T) {
	engine := NewSettlementEngine(testConfig()) // one-minute grace
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 1, now.Add(-30*time.Second)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"AAPL": 120}, now)

	// Inside the grace window the holding is not yet eligible.
	assert.False(t, result.Changed)
	assert.Len(t, result.Portfolio.Options, 1)
}

func TestSettleExpiredLeavesUnexpiredAlone(t *testing.T) {
	engine := NewSettlementEngine(testConfig())
	now := time.Date(2025, 6, 20, 16, 0, 0, 0, time.UTC)

	portfolio := testPortfolio()
	portfolio.Options = []*interfaces.OptionHolding{
		expiredCall("AAPL", 100, 5, 1, now.Add(30*24*time.Hour)),
	}

	result := engine.SettleExpired(portfolio, nil, map[string]float64{"AAPL": 120}, now)

	assert.False(t, result.Changed)
	assert.Len(t, result.Portfolio.Options, 1)
	assert.Empty(t, result.Transactions)
}
