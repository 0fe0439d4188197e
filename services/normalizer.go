package services

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"papertrader/interfaces"

	"github.com/sirupsen/logrus"
)

// epochMillisThreshold separates epoch seconds from epoch milliseconds:
// values with more than 10 digits are milliseconds.
const epochMillisThreshold = 9_999_999_999

// ContractNormalizer converts raw provider option-chain rows into uniform
// OptionContractQuote records. It is the only boundary that touches the
// loosely-typed provider payload; everything downstream sees strict types.
type ContractNormalizer struct {
	greeks *GreeksCalculator
	logger *logrus.Logger
}

// NewContractNormalizer creates a new contract normalizer
func NewContractNormalizer(greeks *GreeksCalculator) *ContractNormalizer {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	return &ContractNormalizer{
		greeks: greeks,
		logger: logger,
	}
}

// Normalize produces one record per parseable raw contract. Contracts whose
// expiration cannot be parsed are dropped, not returned as placeholders, so
// the output may be shorter than the input.
func (n *ContractNormalizer) Normalize(raw []*interfaces.RawOptionContract, underlying string, underlyingPrice float64, now time.Time) []*interfaces.OptionContractQuote {
	out := make([]*interfaces.OptionContractQuote, 0, len(raw))

	for _, rc := range raw {
		expiration, err := parseExpiration(rc.Expiration)
		if err != nil {
			n.logger.WithFields(logrus.Fields{
				"symbol": rc.ContractSymbol,
				"value":  fmt.Sprintf("%v", rc.Expiration),
			}).Debug("Dropping contract with unparseable expiration")
			continue
		}

		// Tradable close with fallback: last trade, then bid, then ask.
		price := rc.LastPrice
		if price <= 0 {
			price = rc.Bid
		}
		if price <= 0 {
			price = rc.Ask
		}
		if price < 0 {
			price = 0
		}

		// Illiquid quotes frequently under-report deep-in-the-money
		// contracts; floor the price at intrinsic value so below-intrinsic
		// quotes never reach P&L or settlement math.
		intrinsic := intrinsicValue(rc.OptionType, underlyingPrice, rc.Strike)
		if intrinsic > price {
			price = intrinsic
		}

		quote := &interfaces.OptionContractQuote{
			Symbol:       rc.ContractSymbol,
			Underlying:   underlying,
			OptionType:   rc.OptionType,
			Strike:       rc.Strike,
			Expiration:   expiration,
			LastPrice:    rc.LastPrice,
			Bid:          rc.Bid,
			Ask:          rc.Ask,
			Price:        price,
			OpenInterest: rc.OpenInterest,
			Volume:       rc.Volume,
			Greeks:       n.greeks.Compute(rc.OptionType, underlyingPrice, rc.Strike, expiration, rc.ImpliedVolatility, now),
		}

		out = append(out, quote)
	}

	return out
}

// intrinsicValue is the immediate exercise value of a contract, per share.
func intrinsicValue(optionType string, underlyingPrice, strike float64) float64 {
	if optionType == "put" {
		return math.Max(0, strike-underlyingPrice)
	}
	return math.Max(0, underlyingPrice-strike)
}

var expirationLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02 15:04:05",
	"01/02/2006",
}

// parseExpiration accepts the expiration encodings seen across market-data
// providers: date strings, epoch seconds, and epoch milliseconds.
func parseExpiration(v any) (time.Time, error) {
	switch val := v.(type) {
	case time.Time:
		return val, nil
	case string:
		for _, layout := range expirationLayouts {
			if t, err := time.Parse(layout, val); err == nil {
				return t, nil
			}
		}
		// Some providers send epoch values as strings.
		if epoch, err := strconv.ParseInt(val, 10, 64); err == nil {
			return epochToTime(epoch), nil
		}
		return time.Time{}, fmt.Errorf("unrecognized expiration string %q", val)
	case float64:
		return epochToTime(int64(val)), nil
	case int64:
		return epochToTime(val), nil
	case int:
		return epochToTime(int64(val)), nil
	case json.Number:
		epoch, err := val.Int64()
		if err != nil {
			return time.Time{}, fmt.Errorf("invalid numeric expiration %q: %w", val.String(), err)
		}
		return epochToTime(epoch), nil
	case nil:
		return time.Time{}, fmt.Errorf("missing expiration")
	default:
		return time.Time{}, fmt.Errorf("unsupported expiration type %T", v)
	}
}

func epochToTime(epoch int64) time.Time {
	if epoch > epochMillisThreshold || epoch < -epochMillisThreshold {
		return time.UnixMilli(epoch).UTC()
	}
	return time.Unix(epoch, 0).UTC()
}
