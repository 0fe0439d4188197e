package database

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"papertrader/interfaces"
	"papertrader/models"

	"github.com/sirupsen/logrus"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// LocalStore implements the PortfolioStore interface using SQLite
type LocalStore struct {
	db          *gorm.DB
	initialCash float64
	logger      *logrus.Logger

	mu          sync.RWMutex
	subscribers map[string][]func(*interfaces.Portfolio)
}

// NewLocalStore creates a new SQLite-backed portfolio store. Portfolios that
// have never been saved are materialized with the given starting cash.
func NewLocalStore(dbPath string, initialCash float64) (*LocalStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.AutoMigrate(
		&models.DBPortfolio{},
		&models.DBStockHolding{},
		&models.DBOptionHolding{},
		&models.DBTransaction{},
	); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &LocalStore{
		db:          db,
		initialCash: initialCash,
		logger:      log,
		subscribers: make(map[string][]func(*interfaces.Portfolio)),
	}, nil
}

// Load materializes the portfolio and its transaction log for a user.
// A user with no saved portfolio gets a fresh one at the starting cash.
func (s *LocalStore) Load(ctx context.Context, userID string) (*interfaces.Portfolio, []*interfaces.Transaction, error) {
	var dbPortfolio models.DBPortfolio
	result := s.db.WithContext(ctx).Where("user_id = ?", userID).First(&dbPortfolio)
	if result.Error != nil {
		if result.Error == gorm.ErrRecordNotFound {
			s.logger.WithField("user_id", userID).Info("No saved portfolio, starting fresh")
			return &interfaces.Portfolio{
				UserID:       userID,
				CashBalance:  s.initialCash,
				InitialValue: s.initialCash,
				UpdatedAt:    time.Now(),
			}, nil, nil
		}
		return nil, nil, fmt.Errorf("failed to load portfolio: %w", result.Error)
	}

	portfolio := &interfaces.Portfolio{
		UserID:       dbPortfolio.UserID,
		CashBalance:  dbPortfolio.CashBalance,
		InitialValue: dbPortfolio.InitialValue,
		UpdatedAt:    dbPortfolio.UpdatedAt,
	}

	var dbHoldings []*models.DBStockHolding
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&dbHoldings).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load stock holdings: %w", err)
	}
	for _, h := range dbHoldings {
		portfolio.Holdings = append(portfolio.Holdings, &interfaces.StockHolding{
			Ticker:       h.Ticker,
			Shares:       h.Shares,
			CostBasis:    h.CostBasis,
			CurrentPrice: h.CurrentPrice,
		})
	}

	var dbOptions []*models.DBOptionHolding
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Find(&dbOptions).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load option holdings: %w", err)
	}
	for _, o := range dbOptions {
		portfolio.Options = append(portfolio.Options, &interfaces.OptionHolding{
			Symbol:          o.Symbol,
			Underlying:      o.Underlying,
			Contracts:       o.Contracts,
			PurchasePremium: o.PurchasePremium,
			CurrentPremium:  o.CurrentPremium,
			OptionType:      o.OptionType,
			Strike:          o.Strike,
			Expiration:      o.Expiration,
		})
	}

	var dbTxs []*models.DBTransaction
	if err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("timestamp ASC").Find(&dbTxs).Error; err != nil {
		return nil, nil, fmt.Errorf("failed to load transactions: %w", err)
	}
	transactions := make([]*interfaces.Transaction, len(dbTxs))
	for i, tx := range dbTxs {
		transactions[i] = &interfaces.Transaction{
			ID:           tx.TxID,
			Type:         tx.Type,
			Ticker:       tx.Ticker,
			Quantity:     tx.Quantity,
			Price:        tx.Price,
			TotalAmount:  tx.TotalAmount,
			Timestamp:    tx.Timestamp,
			RealizedPL:   tx.RealizedPL,
			OptionSymbol: tx.OptionSymbol,
			OptionType:   tx.OptionType,
			Strike:       tx.Strike,
		}
	}

	return portfolio, transactions, nil
}

// Save writes the full portfolio state and any new transactions in a single
// database transaction. Portfolio rows are written before transaction rows so
// an interrupted write can lose audit detail but never cash.
func (s *LocalStore) Save(ctx context.Context, userID string, portfolio *interfaces.Portfolio, transactions []*interfaces.Transaction) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		dbPortfolio := models.DBPortfolio{
			UserID:       userID,
			CashBalance:  portfolio.CashBalance,
			InitialValue: portfolio.InitialValue,
		}
		var existing models.DBPortfolio
		if err := tx.Where("user_id = ?", userID).First(&existing).Error; err == nil {
			dbPortfolio.ID = existing.ID
			dbPortfolio.CreatedAt = existing.CreatedAt
		}
		if err := tx.Save(&dbPortfolio).Error; err != nil {
			return fmt.Errorf("failed to save portfolio: %w", err)
		}

		// Full-state write: replace holdings wholesale (last-writer-wins).
		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.DBStockHolding{}).Error; err != nil {
			return fmt.Errorf("failed to clear stock holdings: %w", err)
		}
		for _, h := range portfolio.Holdings {
			row := models.DBStockHolding{
				UserID:       userID,
				Ticker:       h.Ticker,
				Shares:       h.Shares,
				CostBasis:    h.CostBasis,
				CurrentPrice: h.CurrentPrice,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save stock holding %s: %w", h.Ticker, err)
			}
		}

		if err := tx.Unscoped().Where("user_id = ?", userID).Delete(&models.DBOptionHolding{}).Error; err != nil {
			return fmt.Errorf("failed to clear option holdings: %w", err)
		}
		for _, o := range portfolio.Options {
			row := models.DBOptionHolding{
				UserID:          userID,
				Symbol:          o.Symbol,
				Underlying:      o.Underlying,
				Contracts:       o.Contracts,
				PurchasePremium: o.PurchasePremium,
				CurrentPremium:  o.CurrentPremium,
				OptionType:      o.OptionType,
				Strike:          o.Strike,
				Expiration:      o.Expiration,
			}
			if err := tx.Create(&row).Error; err != nil {
				return fmt.Errorf("failed to save option holding %s: %w", o.Symbol, err)
			}
		}

		// Transactions are insert-only; rows already present are left alone.
		for _, t := range transactions {
			row := models.DBTransaction{
				TxID:         t.ID,
				UserID:       userID,
				Type:         t.Type,
				Ticker:       t.Ticker,
				Quantity:     t.Quantity,
				Price:        t.Price,
				TotalAmount:  t.TotalAmount,
				Timestamp:    t.Timestamp,
				RealizedPL:   t.RealizedPL,
				OptionSymbol: t.OptionSymbol,
				OptionType:   t.OptionType,
				Strike:       t.Strike,
			}
			if err := tx.Where(models.DBTransaction{TxID: t.ID}).FirstOrCreate(&row).Error; err != nil {
				return fmt.Errorf("failed to save transaction %s: %w", t.ID, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	s.notify(userID, portfolio)
	return nil
}

// Subscribe registers a callback invoked with the new portfolio state after
// every successful save for the user.
func (s *LocalStore) Subscribe(userID string, fn func(*interfaces.Portfolio)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subscribers[userID] = append(s.subscribers[userID], fn)
}

func (s *LocalStore) notify(userID string, portfolio *interfaces.Portfolio) {
	s.mu.RLock()
	subs := s.subscribers[userID]
	s.mu.RUnlock()

	for _, fn := range subs {
		fn(portfolio.Clone())
	}
}

// Close closes the database connection
func (s *LocalStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}
