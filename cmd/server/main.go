package main

import (
	"log/slog"
	"net/http"
	"os"

	"github.com/mdjukic/settleup/internal/auth"
	"github.com/mdjukic/settleup/internal/config"
	"github.com/mdjukic/settleup/internal/currency"
	"github.com/mdjukic/settleup/internal/events"
	"github.com/mdjukic/settleup/internal/server"
	"github.com/mdjukic/settleup/internal/service"
	"github.com/mdjukic/settleup/internal/storage/sqlite"
	"github.com/mdjukic/settleup/pkg/logging"
)

func main() {
	logging.Setup()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	store, err := sqlite.New(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize storage", "error", err)
		os.Exit(1)
	}
	defer store.Close()
	slog.Info("Storage initialized", "database", cfg.DBPath)

	rates := currency.NewSnapshot()
	if err := rates.LoadFile(cfg.FXRatesPath); err != nil {
		// amounts are carried unconverted when rates are absent, so a
		// missing table degrades rather than blocks startup
		slog.Warn("FX rates unavailable, amounts will be carried unconverted",
			"path", cfg.FXRatesPath, "error", err)
	}
	normalizer := currency.NewNormalizer(cfg.BaseCurrency, currency.NewCachedProvider(rates, cfg.FXCacheTTL))

	bus := events.NewBus()
	bus.Subscribe(events.LogHandler())

	jwtManager := auth.NewJWTManager(cfg.JWTSecret, cfg.TokenTTL)
	authSvc := service.NewAuthService(auth.NewPasswordAuthenticator(store), jwtManager)
	ledger := service.NewLedgerService(store, normalizer, bus)
	settlements := service.NewSettlementService(store, normalizer, bus)
	recurring := service.NewRecurringService(store, ledger, bus)

	srv := server.New(authSvc, ledger, settlements, recurring, jwtManager)

	addr := ":" + cfg.Port
	slog.Info("Server starting", "address", addr, "base_currency", cfg.BaseCurrency)
	if err := http.ListenAndServe(addr, srv.Handler()); err != nil {
		slog.Error("Server failed", "error", err)
		os.Exit(1)
	}
}
