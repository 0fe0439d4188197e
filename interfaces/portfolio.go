package interfaces

import (
	"time"
)

// Transaction types recorded in the append-only audit log.
const (
	TxTypeBuy            = "BUY"
	TxTypeSell           = "SELL"
	TxTypeOptionBuy      = "OPTION_BUY"
	TxTypeOptionSell     = "OPTION_SELL"
	TxTypeOptionExercise = "OPTION_EXERCISE"
	TxTypeOptionExpire   = "OPTION_EXPIRE"
)

// ContractMultiplier is the number of underlying shares controlled by one
// option contract.
const ContractMultiplier = 100

// StockHolding is a share position in the portfolio.
type StockHolding struct {
	Ticker       string  `json:"ticker"`
	Shares       float64 `json:"shares"`
	CostBasis    float64 `json:"cost_basis"` // weighted-average per share
	CurrentPrice float64 `json:"current_price"`
}

// OptionHolding is an open option position. Premiums are per share,
// i.e. per 1/100 of a contract.
type OptionHolding struct {
	Symbol          string    `json:"symbol"` // OCC format, e.g. TSLA251219C00400000
	Underlying      string    `json:"underlying"`
	Contracts       int       `json:"contracts"`
	PurchasePremium float64   `json:"purchase_premium"`
	CurrentPremium  float64   `json:"current_premium"`
	OptionType      string    `json:"option_type"` // "call" or "put"
	Strike          float64   `json:"strike"`
	Expiration      time.Time `json:"expiration"`
}

// Portfolio is the single-owner aggregate mutated only through buy/sell
// actions and expiration settlement.
type Portfolio struct {
	UserID       string           `json:"user_id"`
	CashBalance  float64          `json:"cash_balance"`
	Holdings     []*StockHolding  `json:"holdings"`
	Options      []*OptionHolding `json:"options"`
	InitialValue float64          `json:"initial_value"` // immutable P&L baseline
	UpdatedAt    time.Time        `json:"updated_at"`
}

// Clone returns a deep copy of the portfolio. Settlement computes proposed
// state on a copy so a failed persist never corrupts the loaded aggregate.
func (p *Portfolio) Clone() *Portfolio {
	out := &Portfolio{
		UserID:       p.UserID,
		CashBalance:  p.CashBalance,
		InitialValue: p.InitialValue,
		UpdatedAt:    p.UpdatedAt,
		Holdings:     make([]*StockHolding, len(p.Holdings)),
		Options:      make([]*OptionHolding, len(p.Options)),
	}
	for i, h := range p.Holdings {
		c := *h
		out.Holdings[i] = &c
	}
	for i, o := range p.Options {
		c := *o
		out.Options[i] = &c
	}
	return out
}

// FindHolding returns the stock holding for a ticker, or nil.
func (p *Portfolio) FindHolding(ticker string) *StockHolding {
	for _, h := range p.Holdings {
		if h.Ticker == ticker {
			return h
		}
	}
	return nil
}

// RemoveHolding drops the stock holding for a ticker if present.
func (p *Portfolio) RemoveHolding(ticker string) {
	for i, h := range p.Holdings {
		if h.Ticker == ticker {
			p.Holdings = append(p.Holdings[:i], p.Holdings[i+1:]...)
			return
		}
	}
}

// Transaction is one entry in the append-only audit log. Entries are never
// mutated or deleted after being appended.
type Transaction struct {
	ID           string    `json:"id"`
	Type         string    `json:"type"`
	Ticker       string    `json:"ticker"`
	Quantity     float64   `json:"quantity"`
	Price        float64   `json:"price"`
	TotalAmount  float64   `json:"total_amount"`
	Timestamp    time.Time `json:"timestamp"`
	RealizedPL   *float64  `json:"realized_pl,omitempty"`
	OptionSymbol string    `json:"option_symbol,omitempty"`
	OptionType   string    `json:"option_type,omitempty"`
	Strike       float64   `json:"strike,omitempty"`
}
