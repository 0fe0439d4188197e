package database

import (
	"context"
	"testing"
	"time"

	"papertrader/interfaces"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreFreshPortfolio(t *testing.T) {
	store := NewMemoryStore(50000)

	portfolio, txs, err := store.Load(context.Background(), "u1")
	require.NoError(t, err)
	assert.Equal(t, 50000.0, portfolio.CashBalance)
	assert.Equal(t, 50000.0, portfolio.InitialValue)
	assert.Empty(t, txs)
}

func TestMemoryStoreIsolatesCopies(t *testing.T) {
	store := NewMemoryStore(50000)
	ctx := context.Background()

	saved := &interfaces.Portfolio{
		UserID:      "u1",
		CashBalance: 40000,
		Holdings: []*interfaces.StockHolding{
			{Ticker: "AAPL", Shares: 10, CostBasis: 100},
		},
	}
	require.NoError(t, store.Save(ctx, "u1", saved, []*interfaces.Transaction{
		{ID: "t1", Type: interfaces.TxTypeBuy, Ticker: "AAPL", Timestamp: time.Now()},
	}))

	// Mutating what the caller handed in or got back must not leak into
	// the stored state.
	saved.Holdings[0].Shares = 999

	loaded, txs, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 10.0, loaded.Holdings[0].Shares)
	require.Len(t, txs, 1)

	loaded.CashBalance = 0
	again, _, err := store.Load(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, 40000.0, again.CashBalance)
}

func TestMemoryStoreSubscribe(t *testing.T) {
	store := NewMemoryStore(50000)
	ctx := context.Background()

	var notified *interfaces.Portfolio
	store.Subscribe("u1", func(p *interfaces.Portfolio) {
		notified = p
	})

	require.NoError(t, store.Save(ctx, "u1", &interfaces.Portfolio{UserID: "u1", CashBalance: 123}, nil))
	require.NotNil(t, notified)
	assert.Equal(t, 123.0, notified.CashBalance)
}
