package config

import (
	"log/slog"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"

	"github.com/mdjukic/settleup/internal/models"
	"github.com/mdjukic/settleup/pkg/errors"
)

// Config holds everything the server needs from the environment.
type Config struct {
	Port         string
	DBPath       string
	JWTSecret    string
	TokenTTL     time.Duration
	BaseCurrency models.Currency
	FXRatesPath  string
	FXCacheTTL   time.Duration
}

// Load reads configuration from the environment, with an optional .env
// file for local development.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("no .env file found, using environment")
	}

	cfg := &Config{
		Port:         getEnv("PORT", "8080"),
		DBPath:       getEnv("DB_PATH", "data/settleup.db"),
		JWTSecret:    os.Getenv("JWT_SECRET"),
		TokenTTL:     getDuration("TOKEN_TTL", 24*time.Hour),
		BaseCurrency: models.BaseCurrency,
		FXRatesPath:  getEnv("FX_RATES_PATH", "data/rates.json"),
		FXCacheTTL:   getDuration("FX_CACHE_TTL", 24*time.Hour),
	}

	if cfg.JWTSecret == "" {
		return nil, errors.New(errors.KindValidation, "JWT_SECRET must be set")
	}
	if raw := os.Getenv("BASE_CURRENCY"); raw != "" {
		cur, err := models.ParseCurrency(raw)
		if err != nil {
			return nil, err
		}
		cfg.BaseCurrency = cur
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	raw := os.Getenv(key)
	if raw == "" {
		return fallback
	}
	if d, err := time.ParseDuration(raw); err == nil {
		return d
	}
	// plain integers are read as hours
	if h, err := strconv.Atoi(raw); err == nil {
		return time.Duration(h) * time.Hour
	}
	slog.Warn("unparseable duration, using default", "key", key, "value", raw)
	return fallback
}
