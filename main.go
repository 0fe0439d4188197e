package main

import (
	"context"

	"papertrader/config"
	"papertrader/controllers"
	"papertrader/database"
	"papertrader/interfaces"
	"papertrader/services"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil {
		logger.Info("No .env file found, using environment variables")
	}

	cfg := config.Load()

	// Empty DATABASE_PATH selects the in-memory store: a local-only session
	// that never touches disk.
	var store interfaces.PortfolioStore
	if cfg.DatabasePath == "" {
		logger.Info("Using in-memory portfolio store")
		store = database.NewMemoryStore(cfg.InitialCash)
	} else {
		localStore, err := database.NewLocalStore(cfg.DatabasePath, cfg.InitialCash)
		if err != nil {
			logger.WithError(err).Fatal("Failed to open portfolio store")
		}
		defer localStore.Close()
		store = localStore
	}

	marketData := services.NewAlpacaMarketData(cfg.AlpacaAPIKey, cfg.AlpacaSecretKey)
	greeks := services.NewGreeksCalculator(cfg)
	normalizer := services.NewContractNormalizer(greeks)
	engine := services.NewSettlementEngine(cfg)
	portfolioService := services.NewPortfolioService(store)
	researchService := services.NewResearchService(cfg.GeminiAPIKey)

	session := services.NewSession(cfg.UserID)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Refresh activity stays suppressed until the initial load completes.
	if _, _, err := store.Load(ctx, cfg.UserID); err != nil {
		logger.WithError(err).Fatal("Initial portfolio load failed")
	}
	session.MarkLoaded()

	refresher := services.NewPriceRefresher(cfg, store, marketData, marketData, normalizer, engine, session)
	go refresher.Run(ctx)

	portfolioController := controllers.NewPortfolioController(portfolioService, refresher, session)
	optionsController := controllers.NewOptionsController(marketData, marketData, normalizer)
	researchController := controllers.NewResearchController(researchService, portfolioService, marketData, session)

	router := gin.Default()
	api := router.Group("/api/v1")
	{
		api.GET("/portfolio", portfolioController.HandleGetPortfolio)
		api.GET("/portfolio/transactions", portfolioController.HandleListTransactions)
		api.POST("/portfolio/stocks/buy", portfolioController.HandleBuyStock)
		api.POST("/portfolio/stocks/sell", portfolioController.HandleSellStock)
		api.POST("/portfolio/options/buy", portfolioController.HandleBuyOption)
		api.POST("/portfolio/options/sell", portfolioController.HandleSellOption)
		api.POST("/portfolio/refresh", portfolioController.HandleRefresh)
		api.GET("/options/:symbol", optionsController.HandleGetOptionChain)
		api.POST("/research/:symbol", researchController.HandleResearchTicker)
	}

	logger.WithField("port", cfg.Port).Info("Starting server")
	if err := router.Run(":" + cfg.Port); err != nil {
		logger.WithError(err).Fatal("Server exited")
	}
}
