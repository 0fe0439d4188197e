package interfaces

import (
	"context"
	"time"
)

// Greeks are option price sensitivities. Nil fields mean "unavailable"
// (unknown implied volatility or expired contract), which callers must not
// treat as zero. Theta is per-day decay, not annualized.
type Greeks struct {
	Delta             *float64 `json:"delta"`
	Gamma             *float64 `json:"gamma"`
	Theta             *float64 `json:"theta"`
	Vega              *float64 `json:"vega"`
	ImpliedVolatility *float64 `json:"implied_volatility"`
}

// OptionContractQuote is a normalized option contract record, rebuilt from
// scratch on every market-data refresh and never mutated in place.
type OptionContractQuote struct {
	Symbol       string    `json:"symbol"`
	Underlying   string    `json:"underlying"`
	OptionType   string    `json:"option_type"` // "call" or "put"
	Strike       float64   `json:"strike"`
	Expiration   time.Time `json:"expiration"`
	LastPrice    float64   `json:"last_price"`
	Bid          float64   `json:"bid"`
	Ask          float64   `json:"ask"`
	Price        float64   `json:"price"` // tradable close, floored at intrinsic value
	OpenInterest int64     `json:"open_interest"`
	Volume       int64     `json:"volume"`
	Greeks       Greeks    `json:"greeks"`
}

// RawOptionContract is one loosely-typed option-chain leg as returned by a
// market-data provider. Expiration may be a date string, epoch seconds, or
// epoch milliseconds; the normalizer is the only code that touches it.
type RawOptionContract struct {
	ContractSymbol    string   `json:"contractSymbol"`
	OptionType        string   `json:"type"`
	Strike            float64  `json:"strike"`
	LastPrice         float64  `json:"lastPrice"`
	Bid               float64  `json:"bid"`
	Ask               float64  `json:"ask"`
	ImpliedVolatility *float64 `json:"impliedVolatility"`
	OpenInterest      int64    `json:"openInterest"`
	Volume            int64    `json:"volume"`
	Expiration        any      `json:"expiration"`
}

// OptionChain is the raw provider payload for one underlying.
type OptionChain struct {
	Underlying      string               `json:"underlying"`
	UnderlyingPrice float64              `json:"underlying_price"`
	Expirations     []time.Time          `json:"expirations"`
	Contracts       []*RawOptionContract `json:"contracts"`
}

// Quote is a stock quote.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	Bid       float64   `json:"bid"`
	Ask       float64   `json:"ask"`
	Timestamp time.Time `json:"timestamp"`
}

// QuoteProvider fetches stock quotes. Partial results are allowed: tickers
// absent from the returned map simply had no data this pass.
type QuoteProvider interface {
	GetQuotes(ctx context.Context, tickers []string) (map[string]*Quote, error)
}

// OptionChainProvider fetches the raw option chain for an underlying.
type OptionChainProvider interface {
	GetOptionChain(ctx context.Context, underlying string) (*OptionChain, error)
}

// PortfolioStore persists the portfolio aggregate together with its
// transaction log. Save must write both or neither; when the backend cannot
// guarantee that, the portfolio is written first so a mid-write crash loses
// only audit detail, never cash. Implementations: SQLite-backed store for
// authenticated sessions, in-memory store for local-only sessions.
type PortfolioStore interface {
	Load(ctx context.Context, userID string) (*Portfolio, []*Transaction, error)
	Save(ctx context.Context, userID string, portfolio *Portfolio, transactions []*Transaction) error
	Subscribe(userID string, fn func(*Portfolio))
}
