package services

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"papertrader/interfaces"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/sirupsen/logrus"
)

// AlpacaMarketData implements QuoteProvider and OptionChainProvider against
// Alpaca's market data APIs: the SDK for stock snapshots, raw HTTP for the
// options snapshot endpoint.
type AlpacaMarketData struct {
	mdClient  *marketdata.Client
	apiKey    string
	secretKey string
	baseURL   string
	client    *http.Client
	logger    *logrus.Logger
}

// NewAlpacaMarketData creates a new Alpaca market data service
func NewAlpacaMarketData(apiKey, secretKey string) *AlpacaMarketData {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &AlpacaMarketData{
		mdClient: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: secretKey,
		}),
		apiKey:    apiKey,
		secretKey: secretKey,
		baseURL:   "https://data.alpaca.markets",
		client:    &http.Client{Timeout: 30 * time.Second},
		logger:    logger,
	}
}

// GetQuotes fetches latest snapshots for the given tickers. Tickers missing
// from Alpaca's response are simply absent from the result; callers tolerate
// partial data.
func (s *AlpacaMarketData) GetQuotes(ctx context.Context, tickers []string) (map[string]*interfaces.Quote, error) {
	if len(tickers) == 0 {
		return map[string]*interfaces.Quote{}, nil
	}

	snapshots, err := s.mdClient.GetSnapshots(tickers, marketdata.GetSnapshotRequest{})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch snapshots: %w", err)
	}

	quotes := make(map[string]*interfaces.Quote, len(snapshots))
	for symbol, snapshot := range snapshots {
		if snapshot == nil {
			continue
		}

		quote := &interfaces.Quote{Symbol: symbol}
		if snapshot.LatestTrade != nil {
			quote.Price = snapshot.LatestTrade.Price
			quote.Timestamp = snapshot.LatestTrade.Timestamp
		}
		if snapshot.LatestQuote != nil {
			quote.Bid = snapshot.LatestQuote.BidPrice
			quote.Ask = snapshot.LatestQuote.AskPrice
			if quote.Price == 0 {
				quote.Price = (quote.Bid + quote.Ask) / 2
				quote.Timestamp = snapshot.LatestQuote.Timestamp
			}
		}
		if quote.Price == 0 {
			continue
		}

		quotes[symbol] = quote
	}

	s.logger.WithFields(logrus.Fields{
		"requested": len(tickers),
		"returned":  len(quotes),
	}).Debug("Fetched stock quotes")

	return quotes, nil
}

// alpacaOptionSnapshots represents Alpaca's options snapshot response
type alpacaOptionSnapshots struct {
	Snapshots     map[string]alpacaOptionSnapshot `json:"snapshots"`
	NextPageToken *string                         `json:"next_page_token"`
}

type alpacaOptionSnapshot struct {
	LatestQuote       *alpacaOptionQuote `json:"latestQuote"`
	LatestTrade       *alpacaOptionTrade `json:"latestTrade"`
	ImpliedVolatility float64            `json:"impliedVolatility"`
}

type alpacaOptionQuote struct {
	BidPrice float64 `json:"bp"`
	AskPrice float64 `json:"ap"`
	BidSize  int64   `json:"bs"`
	AskSize  int64   `json:"as"`
}

type alpacaOptionTrade struct {
	Price float64 `json:"p"`
	Size  int64   `json:"s"`
}

// GetOptionChain fetches the option chain snapshot for an underlying and
// reshapes it into raw contract rows. Contract terms (strike, expiration,
// type) are carried in the OCC symbol; legs whose symbol fails to parse are
// skipped.
func (s *AlpacaMarketData) GetOptionChain(ctx context.Context, underlying string) (*interfaces.OptionChain, error) {
	url := fmt.Sprintf("%s/v1beta1/options/snapshots/%s?feed=indicative&limit=1000", s.baseURL, underlying)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, err
	}

	req.Header.Set("APCA-API-KEY-ID", s.apiKey)
	req.Header.Set("APCA-API-SECRET-KEY", s.secretKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch option chain: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("API error %d: %s", resp.StatusCode, string(body))
	}

	var payload alpacaOptionSnapshots
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("failed to decode option chain: %w", err)
	}

	chain := &interfaces.OptionChain{Underlying: underlying}
	expirations := make(map[time.Time]bool)

	for symbol, snapshot := range payload.Snapshots {
		components, err := ParseOptionSymbol(symbol)
		if err != nil {
			s.logger.WithError(err).WithField("symbol", symbol).Debug("Skipping unparseable option symbol")
			continue
		}

		raw := &interfaces.RawOptionContract{
			ContractSymbol: symbol,
			OptionType:     components.OptionType,
			Strike:         components.Strike,
			Expiration:     components.Expiration.Format("2006-01-02"),
		}
		if snapshot.LatestTrade != nil {
			raw.LastPrice = snapshot.LatestTrade.Price
		}
		if snapshot.LatestQuote != nil {
			raw.Bid = snapshot.LatestQuote.BidPrice
			raw.Ask = snapshot.LatestQuote.AskPrice
		}
		if snapshot.ImpliedVolatility > 0 {
			iv := snapshot.ImpliedVolatility
			raw.ImpliedVolatility = &iv
		}

		chain.Contracts = append(chain.Contracts, raw)
		if !expirations[components.Expiration] {
			expirations[components.Expiration] = true
			chain.Expirations = append(chain.Expirations, components.Expiration)
		}
	}

	s.logger.WithFields(logrus.Fields{
		"underlying": underlying,
		"contracts":  len(chain.Contracts),
	}).Debug("Fetched option chain")

	return chain, nil
}
