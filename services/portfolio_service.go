package services

import (
	"context"
	"fmt"
	"time"

	"papertrader/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// PortfolioService executes the explicit buy/sell actions against the latest
// persisted state. Every mutation reads fresh state, applies the change, and
// writes the full portfolio plus the appended transaction back atomically.
type PortfolioService struct {
	store  interfaces.PortfolioStore
	logger *logrus.Logger
}

// NewPortfolioService creates a new portfolio service
func NewPortfolioService(store interfaces.PortfolioStore) *PortfolioService {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &PortfolioService{
		store:  store,
		logger: logger,
	}
}

// Get returns the current portfolio.
func (s *PortfolioService) Get(ctx context.Context, userID string) (*interfaces.Portfolio, error) {
	portfolio, _, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}
	return portfolio, nil
}

// Transactions returns the full audit log.
func (s *PortfolioService) Transactions(ctx context.Context, userID string) ([]*interfaces.Transaction, error) {
	_, transactions, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	return transactions, nil
}

// BuyStock purchases shares at the given price.
func (s *PortfolioService) BuyStock(ctx context.Context, userID, ticker string, shares, price float64) (*interfaces.Portfolio, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive")
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	portfolio, transactions, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	cost := shares * price
	if cost > portfolio.CashBalance {
		return nil, fmt.Errorf("insufficient cash: need %.2f, have %.2f", cost, portfolio.CashBalance)
	}

	portfolio.CashBalance -= cost
	if existing := portfolio.FindHolding(ticker); existing != nil {
		totalShares := existing.Shares + shares
		existing.CostBasis = (existing.CostBasis*existing.Shares + price*shares) / totalShares
		existing.Shares = totalShares
		existing.CurrentPrice = price
	} else {
		portfolio.Holdings = append(portfolio.Holdings, &interfaces.StockHolding{
			Ticker:       ticker,
			Shares:       shares,
			CostBasis:    price,
			CurrentPrice: price,
		})
	}
	portfolio.UpdatedAt = time.Now()

	transactions = append(transactions, &interfaces.Transaction{
		ID:          uuid.NewString(),
		Type:        interfaces.TxTypeBuy,
		Ticker:      ticker,
		Quantity:    shares,
		Price:       price,
		TotalAmount: cost,
		Timestamp:   time.Now(),
	})

	if err := s.store.Save(ctx, userID, portfolio, transactions); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticker": ticker,
		"shares": shares,
		"price":  price,
	}).Info("Bought stock")

	return portfolio, nil
}

// SellStock sells shares at the given price, realizing P&L against the
// weighted-average cost basis.
func (s *PortfolioService) SellStock(ctx context.Context, userID, ticker string, shares, price float64) (*interfaces.Portfolio, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive")
	}
	if price <= 0 {
		return nil, fmt.Errorf("price must be positive")
	}

	portfolio, transactions, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	holding := portfolio.FindHolding(ticker)
	if holding == nil {
		return nil, fmt.Errorf("no holding for %s", ticker)
	}
	if shares > holding.Shares {
		return nil, fmt.Errorf("cannot sell %.2f shares of %s, only %.2f held", shares, ticker, holding.Shares)
	}

	proceeds := shares * price
	realized := (price - holding.CostBasis) * shares

	portfolio.CashBalance += proceeds
	holding.Shares -= shares
	holding.CurrentPrice = price
	if holding.Shares <= 0 {
		portfolio.RemoveHolding(ticker)
	}
	portfolio.UpdatedAt = time.Now()

	transactions = append(transactions, &interfaces.Transaction{
		ID:          uuid.NewString(),
		Type:        interfaces.TxTypeSell,
		Ticker:      ticker,
		Quantity:    shares,
		Price:       price,
		TotalAmount: proceeds,
		Timestamp:   time.Now(),
		RealizedPL:  &realized,
	})

	if err := s.store.Save(ctx, userID, portfolio, transactions); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"ticker":      ticker,
		"shares":      shares,
		"price":       price,
		"realized_pl": realized,
	}).Info("Sold stock")

	return portfolio, nil
}

// BuyOptionRequest describes an option purchase. Premium is per share.
type BuyOptionRequest struct {
	Underlying string    `json:"underlying" binding:"required"`
	OptionType string    `json:"option_type" binding:"required,oneof=call put"`
	Strike     float64   `json:"strike" binding:"required,gt=0"`
	Expiration time.Time `json:"expiration" binding:"required"`
	Contracts  int       `json:"contracts" binding:"required,gte=1"`
	Premium    float64   `json:"premium" binding:"required,gt=0"`
}

// BuyOption purchases option contracts, merging into an existing holding of
// the same contract at weighted-average premium.
func (s *PortfolioService) BuyOption(ctx context.Context, userID string, req *BuyOptionRequest) (*interfaces.Portfolio, error) {
	if req.Contracts < 1 {
		return nil, fmt.Errorf("contract count must be at least 1")
	}

	portfolio, transactions, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	cost := req.Premium * float64(req.Contracts*interfaces.ContractMultiplier)
	if cost > portfolio.CashBalance {
		return nil, fmt.Errorf("insufficient cash: need %.2f, have %.2f", cost, portfolio.CashBalance)
	}

	symbol := FormatOptionSymbol(req.Underlying, req.Expiration, req.OptionType, req.Strike)

	portfolio.CashBalance -= cost
	merged := false
	for _, holding := range portfolio.Options {
		if holding.Symbol == symbol {
			totalContracts := holding.Contracts + req.Contracts
			holding.PurchasePremium = (holding.PurchasePremium*float64(holding.Contracts) + req.Premium*float64(req.Contracts)) / float64(totalContracts)
			holding.Contracts = totalContracts
			holding.CurrentPremium = req.Premium
			merged = true
			break
		}
	}
	if !merged {
		portfolio.Options = append(portfolio.Options, &interfaces.OptionHolding{
			Symbol:          symbol,
			Underlying:      req.Underlying,
			Contracts:       req.Contracts,
			PurchasePremium: req.Premium,
			CurrentPremium:  req.Premium,
			OptionType:      req.OptionType,
			Strike:          req.Strike,
			Expiration:      req.Expiration,
		})
	}
	portfolio.UpdatedAt = time.Now()

	transactions = append(transactions, &interfaces.Transaction{
		ID:           uuid.NewString(),
		Type:         interfaces.TxTypeOptionBuy,
		Ticker:       req.Underlying,
		Quantity:     float64(req.Contracts),
		Price:        req.Premium,
		TotalAmount:  cost,
		Timestamp:    time.Now(),
		OptionSymbol: symbol,
		OptionType:   req.OptionType,
		Strike:       req.Strike,
	})

	if err := s.store.Save(ctx, userID, portfolio, transactions); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":    symbol,
		"contracts": req.Contracts,
		"premium":   req.Premium,
	}).Info("Bought option contracts")

	return portfolio, nil
}

// SellOption sells option contracts at the given premium. Holdings reduced
// to zero contracts are removed, never retained.
func (s *PortfolioService) SellOption(ctx context.Context, userID, symbol string, contracts int, premium float64) (*interfaces.Portfolio, error) {
	if contracts < 1 {
		return nil, fmt.Errorf("contract count must be at least 1")
	}
	if premium < 0 {
		return nil, fmt.Errorf("premium cannot be negative")
	}

	portfolio, transactions, err := s.store.Load(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load portfolio: %w", err)
	}

	var holding *interfaces.OptionHolding
	idx := -1
	for i, o := range portfolio.Options {
		if o.Symbol == symbol {
			holding = o
			idx = i
			break
		}
	}
	if holding == nil {
		return nil, fmt.Errorf("no option holding for %s", symbol)
	}
	if contracts > holding.Contracts {
		return nil, fmt.Errorf("cannot sell %d contracts of %s, only %d held", contracts, symbol, holding.Contracts)
	}

	shares := float64(contracts * interfaces.ContractMultiplier)
	proceeds := premium * shares
	realized := (premium - holding.PurchasePremium) * shares

	portfolio.CashBalance += proceeds
	holding.Contracts -= contracts
	holding.CurrentPremium = premium
	if holding.Contracts == 0 {
		portfolio.Options = append(portfolio.Options[:idx], portfolio.Options[idx+1:]...)
	}
	portfolio.UpdatedAt = time.Now()

	transactions = append(transactions, &interfaces.Transaction{
		ID:           uuid.NewString(),
		Type:         interfaces.TxTypeOptionSell,
		Ticker:       holding.Underlying,
		Quantity:     float64(contracts),
		Price:        premium,
		TotalAmount:  proceeds,
		Timestamp:    time.Now(),
		RealizedPL:   &realized,
		OptionSymbol: symbol,
		OptionType:   holding.OptionType,
		Strike:       holding.Strike,
	})

	if err := s.store.Save(ctx, userID, portfolio, transactions); err != nil {
		return nil, fmt.Errorf("failed to save portfolio: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"symbol":      symbol,
		"contracts":   contracts,
		"premium":     premium,
		"realized_pl": realized,
	}).Info("Sold option contracts")

	return portfolio, nil
}
