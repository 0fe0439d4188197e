package controllers

import (
	"net/http"
	"strings"
	"time"

	"papertrader/interfaces"
	"papertrader/services"

	"github.com/gin-gonic/gin"
)

// OptionsController serves normalized option chains with computed Greeks
type OptionsController struct {
	quotes     interfaces.QuoteProvider
	chains     interfaces.OptionChainProvider
	normalizer *services.ContractNormalizer
}

// NewOptionsController creates a new options controller
func NewOptionsController(quotes interfaces.QuoteProvider, chains interfaces.OptionChainProvider, normalizer *services.ContractNormalizer) *OptionsController {
	return &OptionsController{
		quotes:     quotes,
		chains:     chains,
		normalizer: normalizer,
	}
}

// HandleGetOptionChain returns the normalized chain for an underlying,
// grouped by expiration date.
// GET /api/v1/options/:symbol
func (oc *OptionsController) HandleGetOptionChain(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	ctx := c.Request.Context()

	quotes, err := oc.quotes.GetQuotes(ctx, []string{symbol})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch underlying quote",
			"details": err.Error(),
		})
		return
	}
	quote, ok := quotes[symbol]
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "no quote for " + symbol})
		return
	}

	chain, err := oc.chains.GetOptionChain(ctx, symbol)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to fetch option chain",
			"details": err.Error(),
		})
		return
	}

	normalized := oc.normalizer.Normalize(chain.Contracts, symbol, quote.Price, time.Now())

	grouped := make(map[string][]*interfaces.OptionContractQuote)
	for _, contract := range normalized {
		key := contract.Expiration.Format("2006-01-02")
		grouped[key] = append(grouped[key], contract)
	}

	c.JSON(http.StatusOK, gin.H{
		"underlying":       symbol,
		"underlying_price": quote.Price,
		"expirations":      grouped,
		"contract_count":   len(normalized),
	})
}
