package main

import (
	"context"
	"net/http"
	"os"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/haber021/coop-kiosk-backend/api/routes"
	"github.com/haber021/coop-kiosk-backend/internal/auth"
	"github.com/haber021/coop-kiosk-backend/internal/catalog"
	"github.com/haber021/coop-kiosk-backend/internal/members"
	"github.com/haber021/coop-kiosk-backend/internal/money"
	"github.com/haber021/coop-kiosk-backend/internal/refunds"
	"github.com/haber021/coop-kiosk-backend/internal/scan"
	"github.com/haber021/coop-kiosk-backend/internal/settlement"
	"github.com/haber021/coop-kiosk-backend/internal/stock"
	"github.com/haber021/coop-kiosk-backend/internal/transactions"
	"github.com/haber021/coop-kiosk-backend/pkg/config"
	"github.com/haber021/coop-kiosk-backend/pkg/db"
	"github.com/haber021/coop-kiosk-backend/pkg/logger"
	"github.com/haber021/coop-kiosk-backend/pkg/metrics"
	"github.com/haber021/coop-kiosk-backend/pkg/migrate"
	"github.com/haber021/coop-kiosk-backend/pkg/redis"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	kioskMetrics := metrics.NewKioskMetrics(registry)

	gormDB := dbClient.DB()
	tx := db.FromGorm(gormDB)
	memberRepo := members.NewRepository(gormDB)
	txnRepo := transactions.NewRepository(gormDB)

	memberService, err := members.NewService(tx, memberRepo, cfg.PIN)
	if err != nil {
		logg.Error(context.Background(), "failed to create member service", err)
		os.Exit(1)
	}

	catalogService, err := catalog.NewService(catalog.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create catalog service", err)
		os.Exit(1)
	}

	stockService, err := stock.NewService(tx, gormDB)
	if err != nil {
		logg.Error(context.Background(), "failed to create stock service", err)
		os.Exit(1)
	}

	scanService, err := scan.NewService(redisClient, cfg.Kiosk.ScanSessionTTL)
	if err != nil {
		logg.Error(context.Background(), "failed to create scan service", err)
		os.Exit(1)
	}

	authService, err := auth.NewService(memberRepo, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	calculator, err := money.NewCalculator(cfg.Kiosk.VAT(), cfg.Kiosk.MaxLineQuantity)
	if err != nil {
		logg.Error(context.Background(), "failed to create money calculator", err)
		os.Exit(1)
	}

	settlementService, err := settlement.NewService(settlement.ServiceParams{
		Tx:          tx,
		TxnRepo:     txnRepo,
		MemberRepo:  memberRepo,
		Authorizer:  authService,
		Calculator:  calculator,
		DefaultRate: cfg.Kiosk.DefaultPatronage(),
		Metrics:     kioskMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create settlement service", err)
		os.Exit(1)
	}

	refundService, err := refunds.NewService(refunds.ServiceParams{
		Tx:      tx,
		TxnRepo: txnRepo,
		Metrics: kioskMetrics,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create refund service", err)
		os.Exit(1)
	}

	transactionService, err := transactions.NewService(txnRepo)
	if err != nil {
		logg.Error(context.Background(), "failed to create transaction service", err)
		os.Exit(1)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr: addr,
		Handler: routes.NewRouter(routes.RouterParams{
			Config:     cfg,
			Logger:     logg,
			DBPinger:   dbClient,
			Redis:      redisClient,
			Registry:   registry,
			MemberRepo: memberRepo,
			AuthSvc:    authService,
			MemberSvc:  memberService,
			CatalogSvc: catalogService,
			StockSvc:   stockService,
			ScanSvc:    scanService,
			SettleSvc:  settlementService,
			RefundSvc:  refundService,
			TxnSvc:     transactionService,
		}),
	}

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logg.Error(ctx, "api server stopped unexpectedly", err)
		os.Exit(1)
	}
}
