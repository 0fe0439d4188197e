package database

import (
	"context"
	"sync"
	"time"

	"papertrader/interfaces"
)

// MemoryStore implements the PortfolioStore interface in process memory.
// It backs local-only anonymous sessions where nothing should touch disk.
type MemoryStore struct {
	initialCash float64

	mu           sync.RWMutex
	portfolios   map[string]*interfaces.Portfolio
	transactions map[string][]*interfaces.Transaction
	subscribers  map[string][]func(*interfaces.Portfolio)
}

// NewMemoryStore creates a new in-memory portfolio store
func NewMemoryStore(initialCash float64) *MemoryStore {
	return &MemoryStore{
		initialCash:  initialCash,
		portfolios:   make(map[string]*interfaces.Portfolio),
		transactions: make(map[string][]*interfaces.Transaction),
		subscribers:  make(map[string][]func(*interfaces.Portfolio)),
	}
}

// Load returns deep copies so callers can mutate freely before saving.
func (s *MemoryStore) Load(ctx context.Context, userID string) (*interfaces.Portfolio, []*interfaces.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.portfolios[userID]
	if !ok {
		return &interfaces.Portfolio{
			UserID:       userID,
			CashBalance:  s.initialCash,
			InitialValue: s.initialCash,
			UpdatedAt:    time.Now(),
		}, nil, nil
	}

	txs := make([]*interfaces.Transaction, len(s.transactions[userID]))
	for i, tx := range s.transactions[userID] {
		c := *tx
		txs[i] = &c
	}

	return p.Clone(), txs, nil
}

// Save replaces the stored state wholesale, then notifies subscribers.
func (s *MemoryStore) Save(ctx context.Context, userID string, portfolio *interfaces.Portfolio, transactions []*interfaces.Transaction) error {
	s.mu.Lock()
	s.portfolios[userID] = portfolio.Clone()
	txs := make([]*interfaces.Transaction, len(transactions))
	for i, tx := range transactions {
		c := *tx
		txs[i] = &c
	}
	s.transactions[userID] = txs
	subs := s.subscribers[userID]
	s.mu.Unlock()

	for _, fn := range subs {
		fn(portfolio.Clone())
	}
	return nil
}

// Subscribe registers a callback invoked after every successful save.
func (s *MemoryStore) Subscribe(userID string, fn func(*interfaces.Portfolio)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[userID] = append(s.subscribers[userID], fn)
}
