package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"storefront/internal/config"
	"storefront/internal/db"
	"storefront/internal/geoip"
	"storefront/internal/httpserver"
	"storefront/internal/observability"
	"storefront/internal/repository/promo"
	"storefront/internal/repository/state"
	catalogsvc "storefront/internal/service/catalog"
	currencysvc "storefront/internal/service/currency"
	deliverysvc "storefront/internal/service/delivery"
	pricingsvc "storefront/internal/service/pricing"
	sessionsvc "storefront/internal/service/session"
	"storefront/internal/storeapi"
)

// redisStateTTL bounds how long untouched shopper state lives in Redis.
const redisStateTTL = 30 * 24 * time.Hour

func main() {
	cfg := config.FromEnv()
	logger, err := observability.NewLogger("api")
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
	readyChecks := map[string]httpserver.ReadyCheck{}

	var pool *pgxpool.Pool
	if cfg.StateBackend == config.BackendPostgres || cfg.PromoSource == config.BackendPostgres {
		pool, err = db.Connect(ctx, cfg.DBConnString, logger)
		if err != nil {
			logger.Fatal("connect to db", zap.Error(err))
		}
		defer pool.Close()
		readyChecks["postgres"] = pool.Ping
	}

	var repo state.Repository
	switch cfg.StateBackend {
	case config.BackendMemory:
		repo = state.NewMemory()
	case config.BackendPostgres:
		repo = state.NewPostgres(pool)
	case config.BackendRedis:
		client := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr, Password: cfg.RedisPassword})
		defer client.Close()
		if err := client.Ping(ctx).Err(); err != nil {
			logger.Fatal("connect to redis", zap.String("addr", cfg.RedisAddr), zap.Error(err))
		}
		repo = state.NewRedis(client, redisStateTTL)
		readyChecks["redis"] = func(ctx context.Context) error { return client.Ping(ctx).Err() }
	default:
		logger.Fatal("unknown state backend", zap.String("backend", cfg.StateBackend))
	}

	var promos promo.Book = promo.NewStatic(pricing.PromoCodes)
	if cfg.PromoSource == config.BackendPostgres {
		promos = promo.NewPostgres(pool)
	}

	api := storeapi.NewClient(cfg.StoreAPIURL, cfg.UpstreamTimeout)
	rates := currencysvc.NewService(pricing, currencysvc.NewHTTPRateSource(cfg.RatesAPIURL, cfg.UpstreamTimeout), repo, logger)
	engine := pricingsvc.NewEngine(pricing, promos, api, logger)

	registry := sessionsvc.NewRegistry(sessionsvc.Deps{
		Repo:         repo,
		Currency:     rates,
		Engine:       engine,
		Resolver:     deliverysvc.NewResolver(pricing),
		Locator:      geoip.NewClient(cfg.GeoIPURL, cfg.UpstreamTimeout),
		Profiles:     api,
		Products:     api,
		Debounce:     cfg.SearchDebounce,
		FetchTimeout: cfg.UpstreamTimeout,
		Logger:       logger,
	}, cfg.SessionIdleTTL)

	runCtx, stopRegistry := context.WithCancel(ctx)
	defer stopRegistry()
	go registry.Run(runCtx)

	gin.SetMode(gin.ReleaseMode)
	srv, err := httpserver.New(cfg.HTTPAddr, logger, httpserver.Deps{
		Sessions:    sessionsvc.NewService(repo),
		Shoppers:    registry,
		Catalog:     catalogsvc.New(api),
		ReadyChecks: readyChecks,
		CORSOrigins: cfg.CORSOrigins,
	})
	if err != nil {
		logger.Fatal("init server", zap.Error(err))
	}

	serverErr := make(chan error, 1)
	go func() {
		logger.Info("starting http server",
			zap.String("addr", cfg.HTTPAddr),
			zap.String("state_backend", cfg.StateBackend),
			zap.String("promo_source", cfg.PromoSource),
			zap.String("base_currency", pricing.BaseCurrency))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-stopCh:
		logger.Info("received signal, shutting down", zap.String("signal", sig.String()))
	case err := <-serverErr:
		logger.Error("server error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", zap.Error(err))
	} else {
		logger.Info("server stopped")
	}
}
