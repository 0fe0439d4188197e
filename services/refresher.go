package services

import (
	"context"
	"fmt"
	"math"
	"sync"
	"sync/atomic"
	"time"

	"papertrader/config"
	"papertrader/interfaces"

	"github.com/sirupsen/logrus"
)

// Session tracks who owns the document-backed state and whether its initial
// load has completed. All refresh activity is suppressed until the session is
// loaded, so a stale default portfolio can never overwrite real data.
type Session struct {
	mu     sync.RWMutex
	userID string
	loaded bool
}

// NewSession creates a session for a user. It starts unloaded.
func NewSession(userID string) *Session {
	return &Session{userID: userID}
}

// MarkLoaded records that the initial portfolio load finished.
func (s *Session) MarkLoaded() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.loaded = true
}

// SetUser switches the session owner and resets the loaded flag.
func (s *Session) SetUser(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.userID = userID
	s.loaded = false
}

// Snapshot returns the current owner and whether the session is ready.
func (s *Session) Snapshot() (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.userID, s.loaded
}

// PriceRefresher periodically fetches fresh quotes and option chains for held
// positions, updates holding prices, runs expiration settlement, and persists
// the merged result when something actually changed. It is the only component
// that calls the store on behalf of the scheduler; buy/sell actions write
// through PortfolioService.
type PriceRefresher struct {
	store      interfaces.PortfolioStore
	quotes     interfaces.QuoteProvider
	chains     interfaces.OptionChainProvider
	normalizer *ContractNormalizer
	engine     *SettlementEngine
	session    *Session

	interval time.Duration
	epsilon  float64
	busy     atomic.Bool
	logger   *logrus.Logger
}

// NewPriceRefresher creates a new price refresher
func NewPriceRefresher(
	cfg *config.Config,
	store interfaces.PortfolioStore,
	quotes interfaces.QuoteProvider,
	chains interfaces.OptionChainProvider,
	normalizer *ContractNormalizer,
	engine *SettlementEngine,
	session *Session,
) *PriceRefresher {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &PriceRefresher{
		store:      store,
		quotes:     quotes,
		chains:     chains,
		normalizer: normalizer,
		engine:     engine,
		session:    session,
		interval:   cfg.RefreshInterval,
		epsilon:    cfg.PriceEpsilon,
		logger:     logger,
	}
}

// Run ticks until the context is cancelled. Ticks never overlap: if the
// previous tick's write has not resolved, the new tick is skipped rather than
// racing a second settlement over the same holdings.
func (r *PriceRefresher) Run(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.logger.WithField("interval", r.interval).Info("Price refresher started")

	for {
		select {
		case <-ctx.Done():
			r.logger.Info("Price refresher stopped")
			return
		case <-ticker.C:
			if err := r.Refresh(ctx); err != nil {
				r.logger.WithError(err).Error("Refresh tick failed")
			}
		}
	}
}

// Refresh runs one fetch → normalize → settle → persist pass. It is also the
// manual trigger for clients regaining visibility.
func (r *PriceRefresher) Refresh(ctx context.Context) error {
	if !r.busy.CompareAndSwap(false, true) {
		r.logger.Debug("Previous refresh still in flight, skipping tick")
		return nil
	}
	defer r.busy.Store(false)

	userID, ready := r.session.Snapshot()
	if !ready {
		r.logger.Debug("Session not loaded yet, suppressing refresh")
		return nil
	}

	now := time.Now()
	portfolio, transactions, err := r.store.Load(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load portfolio: %w", err)
	}

	tickers := heldTickers(portfolio)
	if len(tickers) == 0 {
		return nil
	}

	quotes, err := r.quotes.GetQuotes(ctx, tickers)
	if err != nil {
		return fmt.Errorf("failed to fetch quotes: %w", err)
	}

	changed := false

	for _, holding := range portfolio.Holdings {
		q, ok := quotes[holding.Ticker]
		if !ok {
			continue
		}
		if math.Abs(q.Price-holding.CurrentPrice) > r.epsilon {
			holding.CurrentPrice = q.Price
			changed = true
		}
	}

	if r.refreshOptionPremiums(ctx, portfolio, quotes, now) {
		changed = true
	}

	underlyingPrices := make(map[string]float64, len(quotes))
	for symbol, q := range quotes {
		underlyingPrices[symbol] = q.Price
	}

	result := r.engine.SettleExpired(portfolio, transactions, underlyingPrices, now)
	if result.Changed {
		portfolio = result.Portfolio
		transactions = result.Transactions
		changed = true
	}

	if !changed {
		// Price-unchanged refresh: no write.
		return nil
	}

	// The session may have been torn down while we were fetching; never
	// persist on behalf of an owner that is gone or different.
	currentUser, stillReady := r.session.Snapshot()
	if !stillReady || currentUser != userID {
		r.logger.WithField("user_id", userID).Warn("Session changed mid-refresh, discarding result")
		return nil
	}

	portfolio.UpdatedAt = now
	if err := r.store.Save(ctx, userID, portfolio, transactions); err != nil {
		return fmt.Errorf("failed to persist refresh: %w", err)
	}

	r.logger.WithFields(logrus.Fields{
		"tickers": len(tickers),
		"settled": result.Changed,
	}).Info("Refresh persisted")

	return nil
}

// refreshOptionPremiums re-prices open option holdings from fresh chains.
// Chain fetch failures are logged and skipped; the holding keeps its last
// premium until the next pass.
func (r *PriceRefresher) refreshOptionPremiums(ctx context.Context, portfolio *interfaces.Portfolio, quotes map[string]*interfaces.Quote, now time.Time) bool {
	byUnderlying := make(map[string][]*interfaces.OptionHolding)
	for _, holding := range portfolio.Options {
		byUnderlying[holding.Underlying] = append(byUnderlying[holding.Underlying], holding)
	}

	changed := false
	for underlying, holdings := range byUnderlying {
		q, ok := quotes[underlying]
		if !ok {
			continue
		}

		chain, err := r.chains.GetOptionChain(ctx, underlying)
		if err != nil {
			r.logger.WithError(err).WithField("underlying", underlying).Warn("Failed to fetch option chain")
			continue
		}

		normalized := r.normalizer.Normalize(chain.Contracts, underlying, q.Price, now)
		bySymbol := make(map[string]*interfaces.OptionContractQuote, len(normalized))
		for _, contract := range normalized {
			bySymbol[contract.Symbol] = contract
		}

		for _, holding := range holdings {
			contract, ok := bySymbol[holding.Symbol]
			if !ok {
				continue
			}
			if math.Abs(contract.Price-holding.CurrentPremium) > r.epsilon {
				holding.CurrentPremium = contract.Price
				changed = true
			}
		}
	}

	return changed
}

// heldTickers collects the distinct tickers the portfolio needs quotes for:
// stock holdings plus option underlyings.
func heldTickers(portfolio *interfaces.Portfolio) []string {
	seen := make(map[string]bool)
	tickers := make([]string, 0, len(portfolio.Holdings)+len(portfolio.Options))

	for _, h := range portfolio.Holdings {
		if !seen[h.Ticker] {
			seen[h.Ticker] = true
			tickers = append(tickers, h.Ticker)
		}
	}
	for _, o := range portfolio.Options {
		if !seen[o.Underlying] {
			seen[o.Underlying] = true
			tickers = append(tickers, o.Underlying)
		}
	}

	return tickers
}
