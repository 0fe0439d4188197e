package services

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// OptionSymbolComponents holds the parsed pieces of an OCC option symbol
// such as TSLA251219C00400000.
type OptionSymbolComponents struct {
	Underlying string
	Expiration time.Time
	OptionType string // "call" or "put"
	Strike     float64
}

// ParseOptionSymbol parses an OCC-format option symbol. The trailing 8 digits
// are the strike times 1000, preceded by C or P, preceded by a YYMMDD date;
// whatever remains in front is the underlying ticker.
func ParseOptionSymbol(symbol string) (*OptionSymbolComponents, error) {
	s := strings.TrimPrefix(symbol, "O:")
	if len(s) < 16 {
		return nil, fmt.Errorf("option symbol too short: %q", symbol)
	}

	strikeRaw := s[len(s)-8:]
	typeRaw := s[len(s)-9 : len(s)-8]
	dateRaw := s[len(s)-15 : len(s)-9]
	underlying := s[:len(s)-15]

	if underlying == "" {
		return nil, fmt.Errorf("option symbol missing underlying: %q", symbol)
	}

	strikeThousandths, err := strconv.ParseInt(strikeRaw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid strike in option symbol %q: %w", symbol, err)
	}

	expiration, err := time.Parse("060102", dateRaw)
	if err != nil {
		return nil, fmt.Errorf("invalid expiration in option symbol %q: %w", symbol, err)
	}

	var optionType string
	switch typeRaw {
	case "C":
		optionType = "call"
	case "P":
		optionType = "put"
	default:
		return nil, fmt.Errorf("invalid option type %q in symbol %q", typeRaw, symbol)
	}

	return &OptionSymbolComponents{
		Underlying: underlying,
		Expiration: expiration,
		OptionType: optionType,
		Strike:     float64(strikeThousandths) / 1000,
	}, nil
}

// FormatOptionSymbol builds the OCC-format symbol for a contract.
func FormatOptionSymbol(underlying string, expiration time.Time, optionType string, strike float64) string {
	typeChar := "C"
	if optionType == "put" {
		typeChar = "P"
	}
	return fmt.Sprintf("%s%s%s%08d",
		strings.ToUpper(underlying),
		expiration.Format("060102"),
		typeChar,
		int64(strike*1000+0.5),
	)
}
