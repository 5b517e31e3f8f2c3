package main

import (
	"context"
	"fmt"
	"os"

	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/observability"
	"storefront/internal/repository/promo"
	"storefront/internal/seed"
)

func main() {
	cfg := config.FromEnv()
	logger, err := observability.NewLogger("seed")
	if err != nil {
		fmt.Fprintf(os.Stderr, "init logger: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	pricing, err := config.LoadPricing(cfg.PricingFile)
	if err != nil {
		logger.Fatal("load pricing config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := db.Connect(ctx, cfg.DBConnString, logger)
	if err != nil {
		logger.Fatal("connect db", zap.Error(err))
	}
	defer pool.Close()

	n, err := seed.Apply(ctx, promo.NewPostgres(pool), pricing.PromoCodes, logger)
	if err != nil {
		logger.Fatal("seed apply", zap.Error(err))
	}

	logger.Info("seed applied", zap.Int("promo_codes", n))
}
