package controllers

import (
	"net/http"
	"strings"

	"papertrader/interfaces"
	"papertrader/services"

	"github.com/gin-gonic/gin"
)

// ResearchController handles AI-assisted stock research requests
type ResearchController struct {
	researchService  *services.ResearchService
	portfolioService *services.PortfolioService
	quotes           interfaces.QuoteProvider
	session          *services.Session
}

// NewResearchController creates a new research controller
func NewResearchController(researchService *services.ResearchService, portfolioService *services.PortfolioService, quotes interfaces.QuoteProvider, session *services.Session) *ResearchController {
	return &ResearchController{
		researchService:  researchService,
		portfolioService: portfolioService,
		quotes:           quotes,
		session:          session,
	}
}

// HandleResearchTicker generates a research note for a ticker
// POST /api/v1/research/:symbol
func (rc *ResearchController) HandleResearchTicker(c *gin.Context) {
	symbol := strings.ToUpper(c.Param("symbol"))
	if symbol == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "symbol required"})
		return
	}

	ctx := c.Request.Context()

	var currentPrice float64
	if quotes, err := rc.quotes.GetQuotes(ctx, []string{symbol}); err == nil {
		if q, ok := quotes[symbol]; ok {
			currentPrice = q.Price
		}
	}

	var portfolio *interfaces.Portfolio
	if userID, ready := rc.session.Snapshot(); ready {
		portfolio, _ = rc.portfolioService.Get(ctx, userID)
	}

	research, err := rc.researchService.AnalyzeTicker(symbol, currentPrice, portfolio)
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{
			"error":   "Failed to generate research",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"research": research,
	})
}
