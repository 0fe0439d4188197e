package config

import (
	"os"
	"strconv"
	"time"
)

// Config holds runtime configuration loaded from the environment.
// Policy constants (settlement grace, annualization cutoff, price epsilon)
// are empirically chosen defaults, not precision requirements, so they are
// kept configurable.
type Config struct {
	Port         string
	DatabasePath string // empty selects the in-memory store
	UserID       string

	AlpacaAPIKey    string
	AlpacaSecretKey string
	GeminiAPIKey    string

	InitialCash float64

	// Greeks policy
	RiskFreeRate            float64
	AnnualizationCutoffDays float64
	TradingDaysPerYear      float64
	CalendarDaysPerYear     float64

	// Refresh/settlement policy
	RefreshInterval time.Duration
	SettlementGrace time.Duration
	PriceEpsilon    float64
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:         getEnv("PORT", "8080"),
		DatabasePath: getEnv("DATABASE_PATH", "data/papertrader.db"),
		UserID:       getEnv("USER_ID", "local"),

		AlpacaAPIKey:    os.Getenv("APCA_API_KEY_ID"),
		AlpacaSecretKey: os.Getenv("APCA_API_SECRET_KEY"),
		GeminiAPIKey:    os.Getenv("GEMINI_API_KEY"),

		InitialCash: getEnvFloat("INITIAL_CASH", 100000),

		RiskFreeRate:            getEnvFloat("RISK_FREE_RATE", 0.0416),
		AnnualizationCutoffDays: getEnvFloat("ANNUALIZATION_CUTOFF_DAYS", 365),
		TradingDaysPerYear:      252,
		CalendarDaysPerYear:     365,

		RefreshInterval: getEnvDuration("REFRESH_INTERVAL", 3*time.Minute),
		SettlementGrace: getEnvDuration("SETTLEMENT_GRACE", time.Minute),
		PriceEpsilon:    getEnvFloat("PRICE_EPSILON", 0.005),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
