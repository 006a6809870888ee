package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"makemodel/internal/cache"
	"makemodel/internal/config"
	"makemodel/internal/database"
	"makemodel/internal/handler"
	"makemodel/internal/metrics"
	"makemodel/internal/service"
	"makemodel/internal/store/postgres"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to read .env", "error", err)
	}

	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		slog.Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	level, _ := config.ParseLogLevel(cfg.LogLevel)
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewDB(ctx, cfg.DatabaseURI)
	if err != nil {
		slog.Error("failed to connect to DB", "error", err)
		os.Exit(1)
	}
	defer database.CloseDB(db)

	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db); err != nil {
			slog.Error("failed to migrate DB schema", "error", err)
			os.Exit(1)
		}
	}
	st := postgres.New(db)

	// Metrics
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	rec := metrics.New(reg)

	// Services
	settlements, err := service.NewSettlementCalculator(st, cfg.PlatformFeeRate, nil, rec)
	if err != nil {
		slog.Error("invalid settlement configuration", "error", err)
		os.Exit(1)
	}
	machine := service.NewOrderStateMachine(service.DefaultTransitionTable(), settlements, nil, rec)
	orderSvc := service.NewOrderService(st, service.NewOrderNumberGenerator(nil), machine, nil)

	ledgerOpts := []service.PaymentLedgerOption{service.WithPaymentMetrics(rec)}
	if cfg.RedisURL != "" {
		redisClient, err := cache.New(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}
		defer redisClient.Close()

		guard, err := cache.NewIdempotencyGuard(redisClient, cfg.WebhookDedupeTTL, "payment-webhook")
		if err != nil {
			slog.Error("failed to build webhook guard", "error", err)
			os.Exit(1)
		}
		ledgerOpts = append(ledgerOpts, service.WithDeliveryGuard(guard))
	}
	ledger := service.NewPaymentLedger(st, machine, cfg.PaymentProvider, ledgerOpts...)

	router := handler.NewRouter(handler.Deps{
		Auth:        service.NewAuthService(st),
		Orders:      orderSvc,
		Payments:    ledger,
		Settlements: settlements,
		Tokens:      handler.TokenIssuer{Secret: cfg.JWTSecret, TTL: cfg.JWTTTL},
		Ping:        st.Ping,
		Metrics:     promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSOrigins: cfg.CORSOrigins,
	})

	srv := &http.Server{
		Addr:         cfg.RunAddress,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	slog.Info("starting server", "addr", cfg.RunAddress)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("server failed", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	slog.Info("shutting down...")

	ctxShut, cancelShut := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancelShut()

	if err := srv.Shutdown(ctxShut); err != nil {
		slog.Error("server shutdown failed", "error", err)
	}

	slog.Info("server stopped")
}
