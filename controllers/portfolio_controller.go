package controllers

import (
	"net/http"

	"papertrader/services"

	"github.com/gin-gonic/gin"
)

// PortfolioController handles portfolio and trading operations
type PortfolioController struct {
	portfolioService *services.PortfolioService
	refresher        *services.PriceRefresher
	session          *services.Session
}

// NewPortfolioController creates a new portfolio controller
func NewPortfolioController(portfolioService *services.PortfolioService, refresher *services.PriceRefresher, session *services.Session) *PortfolioController {
	return &PortfolioController{
		portfolioService: portfolioService,
		refresher:        refresher,
		session:          session,
	}
}

// HandleGetPortfolio returns the current portfolio
// GET /api/v1/portfolio
func (pc *PortfolioController) HandleGetPortfolio(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Session not loaded yet",
		})
		return
	}

	portfolio, err := pc.portfolioService.Get(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load portfolio",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"portfolio": portfolio,
	})
}

// HandleListTransactions returns the audit log
// GET /api/v1/portfolio/transactions
func (pc *PortfolioController) HandleListTransactions(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"error": "Session not loaded yet",
		})
		return
	}

	transactions, err := pc.portfolioService.Transactions(c.Request.Context(), userID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Failed to load transactions",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"count":        len(transactions),
	})
}

// StockTradeRequest is the payload for stock buy/sell actions
type StockTradeRequest struct {
	Ticker string  `json:"ticker" binding:"required"`
	Shares float64 `json:"shares" binding:"required,gt=0"`
	Price  float64 `json:"price" binding:"required,gt=0"`
}

// HandleBuyStock buys shares
// POST /api/v1/portfolio/stocks/buy
func (pc *PortfolioController) HandleBuyStock(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session not loaded yet"})
		return
	}

	var req StockTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	portfolio, err := pc.portfolioService.BuyStock(c.Request.Context(), userID, req.Ticker, req.Shares, req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to buy stock",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Stock purchased",
		"portfolio": portfolio,
	})
}

// HandleSellStock sells shares
// POST /api/v1/portfolio/stocks/sell
func (pc *PortfolioController) HandleSellStock(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session not loaded yet"})
		return
	}

	var req StockTradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	portfolio, err := pc.portfolioService.SellStock(c.Request.Context(), userID, req.Ticker, req.Shares, req.Price)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to sell stock",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Stock sold",
		"portfolio": portfolio,
	})
}

// HandleBuyOption buys option contracts
// POST /api/v1/portfolio/options/buy
func (pc *PortfolioController) HandleBuyOption(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session not loaded yet"})
		return
	}

	var req services.BuyOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	portfolio, err := pc.portfolioService.BuyOption(c.Request.Context(), userID, &req)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to buy option",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Option contracts purchased",
		"portfolio": portfolio,
	})
}

// SellOptionRequest is the payload for option sells
type SellOptionRequest struct {
	Symbol    string  `json:"symbol" binding:"required"`
	Contracts int     `json:"contracts" binding:"required,gte=1"`
	Premium   float64 `json:"premium" binding:"required,gt=0"`
}

// HandleSellOption sells option contracts
// POST /api/v1/portfolio/options/sell
func (pc *PortfolioController) HandleSellOption(c *gin.Context) {
	userID, ready := pc.session.Snapshot()
	if !ready {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Session not loaded yet"})
		return
	}

	var req SellOptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Invalid request",
			"details": err.Error(),
		})
		return
	}

	portfolio, err := pc.portfolioService.SellOption(c.Request.Context(), userID, req.Symbol, req.Contracts, req.Premium)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error":   "Failed to sell option",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":   "Option contracts sold",
		"portfolio": portfolio,
	})
}

// HandleRefresh triggers an immediate price refresh + settlement pass. This
// is the endpoint clients hit when the dashboard tab regains visibility.
// POST /api/v1/portfolio/refresh
func (pc *PortfolioController) HandleRefresh(c *gin.Context) {
	if err := pc.refresher.Refresh(c.Request.Context()); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   "Refresh failed",
			"details": err.Error(),
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "Refresh completed",
	})
}
