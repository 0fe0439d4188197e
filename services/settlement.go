package services

import (
	"time"

	"papertrader/config"
	"papertrader/interfaces"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// SettlementEngine resolves expired option holdings into cash and underlying
// shares at intrinsic value. SettleExpired is pure: it computes a proposed
// portfolio and transaction list on copies and leaves persistence to the
// caller, which must write both together. Re-running after a successful
// persist is a no-op because settled holdings no longer exist.
type SettlementEngine struct {
	grace  time.Duration
	logger *logrus.Logger
}

// SettlementResult is the proposed post-settlement state.
type SettlementResult struct {
	Portfolio    *interfaces.Portfolio
	Transactions []*interfaces.Transaction
	Changed      bool
}

// NewSettlementEngine creates a settlement engine. The grace duration keeps
// settlement from racing the exact expiry instant: a holding becomes eligible
// only once its expiration is at least that far in the past.
func NewSettlementEngine(cfg *config.Config) *SettlementEngine {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &SettlementEngine{
		grace:  cfg.SettlementGrace,
		logger: logger,
	}
}

// SettleExpired partitions option holdings into expired and open, settles
// each expired holding against the underlying's quote, and returns the
// proposed new state. Holdings with no quote this pass stay open and are
// retried on the next run. Put exercises without covering shares are skipped:
// short assignment is not simulated.
func (e *SettlementEngine) SettleExpired(portfolio *interfaces.Portfolio, transactions []*interfaces.Transaction, underlyingQuotes map[string]float64, now time.Time) *SettlementResult {
	result := &SettlementResult{
		Portfolio:    portfolio.Clone(),
		Transactions: append([]*interfaces.Transaction{}, transactions...),
	}

	cutoff := now.Add(-e.grace)
	remaining := make([]*interfaces.OptionHolding, 0, len(result.Portfolio.Options))

	for _, holding := range result.Portfolio.Options {
		if !holding.Expiration.Before(cutoff) {
			remaining = append(remaining, holding)
			continue
		}

		underlyingPrice, ok := underlyingQuotes[holding.Underlying]
		if !ok {
			// No quote this pass: defer, never guess a settlement price.
			e.logger.WithFields(logrus.Fields{
				"symbol":     holding.Symbol,
				"underlying": holding.Underlying,
			}).Warn("No quote for expired option, deferring settlement")
			remaining = append(remaining, holding)
			continue
		}

		tx, settled := e.settleHolding(result.Portfolio, holding, underlyingPrice, now)
		if !settled {
			remaining = append(remaining, holding)
			continue
		}

		result.Transactions = append(result.Transactions, tx)
		result.Changed = true
	}

	result.Portfolio.Options = remaining
	if result.Changed {
		result.Portfolio.UpdatedAt = now
	}

	return result
}

// settleHolding applies one holding's settlement to the portfolio copy and
// returns the audit transaction. A false return means the holding must stay
// open.
func (e *SettlementEngine) settleHolding(portfolio *interfaces.Portfolio, holding *interfaces.OptionHolding, underlyingPrice float64, now time.Time) (*interfaces.Transaction, bool) {
	shares := float64(holding.Contracts * interfaces.ContractMultiplier)
	intrinsic := intrinsicValue(holding.OptionType, underlyingPrice, holding.Strike)

	if intrinsic <= 0 {
		// Out of the money: expires worthless, full premium lost.
		realized := -holding.PurchasePremium * shares
		e.logger.WithFields(logrus.Fields{
			"symbol":      holding.Symbol,
			"underlying":  holding.Underlying,
			"price":       underlyingPrice,
			"strike":      holding.Strike,
			"realized_pl": realized,
		}).Info("Option expired worthless")

		return &interfaces.Transaction{
			ID:           uuid.NewString(),
			Type:         interfaces.TxTypeOptionExpire,
			Ticker:       holding.Underlying,
			Quantity:     float64(holding.Contracts),
			Price:        0,
			TotalAmount:  0,
			Timestamp:    now,
			RealizedPL:   &realized,
			OptionSymbol: holding.Symbol,
			OptionType:   holding.OptionType,
			Strike:       holding.Strike,
		}, true
	}

	exerciseAmount := holding.Strike * shares

	if holding.OptionType == "put" {
		existing := portfolio.FindHolding(holding.Underlying)
		if existing == nil || existing.Shares < shares {
			// Short assignment is out of scope; reject and keep the
			// holding open.
			e.logger.WithFields(logrus.Fields{
				"symbol":     holding.Symbol,
				"underlying": holding.Underlying,
				"needed":     shares,
			}).Warn("Insufficient shares to cover put exercise, skipping")
			return nil, false
		}

		existing.Shares -= shares
		if existing.Shares <= 0 {
			portfolio.RemoveHolding(holding.Underlying)
		}
		portfolio.CashBalance += exerciseAmount
	} else {
		// Call exercise: buy shares at strike, merging into any existing
		// position at weighted-average cost basis.
		portfolio.CashBalance -= exerciseAmount
		if existing := portfolio.FindHolding(holding.Underlying); existing != nil {
			totalShares := existing.Shares + shares
			existing.CostBasis = (existing.CostBasis*existing.Shares + holding.Strike*shares) / totalShares
			existing.Shares = totalShares
		} else {
			portfolio.Holdings = append(portfolio.Holdings, &interfaces.StockHolding{
				Ticker:       holding.Underlying,
				Shares:       shares,
				CostBasis:    holding.Strike,
				CurrentPrice: underlyingPrice,
			})
		}
	}

	realized := (intrinsic - holding.PurchasePremium) * shares
	e.logger.WithFields(logrus.Fields{
		"symbol":      holding.Symbol,
		"underlying":  holding.Underlying,
		"price":       underlyingPrice,
		"strike":      holding.Strike,
		"intrinsic":   intrinsic,
		"realized_pl": realized,
	}).Info("Option exercised at expiration")

	return &interfaces.Transaction{
		ID:           uuid.NewString(),
		Type:         interfaces.TxTypeOptionExercise,
		Ticker:       holding.Underlying,
		Quantity:     float64(holding.Contracts),
		Price:        intrinsic,
		TotalAmount:  exerciseAmount,
		Timestamp:    now,
		RealizedPL:   &realized,
		OptionSymbol: holding.Symbol,
		OptionType:   holding.OptionType,
		Strike:       holding.Strike,
	}, true
}
