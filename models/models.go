package models

import (
	"time"

	"gorm.io/gorm"
)

// DBPortfolio represents the portfolio aggregate root in the database
type DBPortfolio struct {
	gorm.Model
	UserID       string `gorm:"uniqueIndex"`
	CashBalance  float64
	InitialValue float64
}

// DBStockHolding represents a share position in the database
type DBStockHolding struct {
	gorm.Model
	UserID       string `gorm:"index:idx_user_ticker,unique"`
	Ticker       string `gorm:"index:idx_user_ticker,unique"`
	Shares       float64
	CostBasis    float64
	CurrentPrice float64
}

// DBOptionHolding represents an open option position in the database
type DBOptionHolding struct {
	gorm.Model
	UserID          string `gorm:"index:idx_user_symbol,unique"`
	Symbol          string `gorm:"index:idx_user_symbol,unique"`
	Underlying      string `gorm:"index"`
	Contracts       int
	PurchasePremium float64
	CurrentPremium  float64
	OptionType      string
	Strike          float64
	Expiration      time.Time
}

// DBTransaction represents one audit-log entry in the database.
// Rows are insert-only: nothing updates or deletes them.
type DBTransaction struct {
	gorm.Model
	TxID         string `gorm:"uniqueIndex"`
	UserID       string `gorm:"index"`
	Type         string `gorm:"index"`
	Ticker       string
	Quantity     float64
	Price        float64
	TotalAmount  float64
	Timestamp    time.Time `gorm:"index"`
	RealizedPL   *float64
	OptionSymbol string
	OptionType   string
	Strike       float64
}

// TableName overrides for cleaner table names
func (DBPortfolio) TableName() string {
	return "portfolios"
}

func (DBStockHolding) TableName() string {
	return "stock_holdings"
}

func (DBOptionHolding) TableName() string {
	return "option_holdings"
}

func (DBTransaction) TableName() string {
	return "transactions"
}
