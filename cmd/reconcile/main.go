// Command reconcile runs a single reconciliation cycle and exits.
// It is meant to be invoked by an external scheduler such as cron.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/config"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/persistence"
	repo "github.com/has-1997/jetback-mvp/internal/interface/repository"
	"github.com/has-1997/jetback-mvp/internal/usecase"
	"github.com/has-1997/jetback-mvp/pkg/logger"
	"github.com/has-1997/jetback-mvp/pkg/metrics"

	"github.com/prometheus/client_golang/prometheus"
)

func main() {
	os.Exit(run())
}

func run() int {
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Error("Failed to load config", "error", err)
		return 1
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()

	if cfg.StoreDriver != config.StoreDriverMongo {
		log.Error("One-shot reconciliation needs a persistent store", "storeDriver", cfg.StoreDriver)
		return 1
	}

	// SIGTERM stops unstarted records; started writes still complete
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	mongoClient, err := persistence.NewMongoClient(ctx, persistence.MongoOptions{
		URI:            cfg.MongoURI,
		Username:       cfg.MongoUser,
		Password:       cfg.MongoPassword,
		AppName:        "jetback-reconcile",
		ConnectTimeout: cfg.MongoConnectTimeout,
	})
	if err != nil {
		log.Error("Failed to connect to MongoDB", "error", err)
		return 1
	}
	defer mongoClient.Disconnect(context.Background())

	var runRepo repository.ReconciliationRunRepository = repo.NoopReconciliationRunRepository{}
	if cfg.PostgresURI != "" {
		gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
		if err != nil {
			log.Error("Failed to connect to PostgreSQL", "error", err)
			return 1
		}
		gormRunRepo := repo.NewGormReconciliationRunRepository(gormDB)
		if err := gormRunRepo.Migrate(); err != nil {
			log.Error("Failed to migrate run history", "error", err)
			return 1
		}
		runRepo = gormRunRepo
	}

	var fareRepo repository.FareQuoteRepository = repo.NewDuffelFareQuoteRepository(repo.FareClientOptions{
		BaseURL:   cfg.FareAPIURL,
		Token:     cfg.FareAPIToken,
		Version:   cfg.FareAPIVersion,
		Timeout:   cfg.FareQuoteTimeout,
		RateLimit: cfg.FareRateLimit,
		RateBurst: cfg.FareRateBurst,
	}, log)
	if cfg.QuoteCacheTTL > 0 {
		fareRepo = repo.NewCachedFareQuoteRepository(fareRepo, cfg.QuoteCacheTTL, log)
	}

	db := persistence.GetDatabase(mongoClient, cfg.MongoDB)
	reconciler := usecase.NewReconciler(
		repo.NewMongoTrackedBookingRepository(db),
		fareRepo,
		runRepo,
		metrics.NewMetrics("jetback", prometheus.NewRegistry()),
		log,
		usecase.ReconcilerConfig{
			Concurrency:  cfg.ReconcileConcurrency,
			QuoteTimeout: cfg.FareQuoteTimeout,
			WriteTimeout: cfg.ReconcileWriteTimeout,
		},
	)

	report, err := reconciler.RunCycle(ctx)
	if err != nil {
		log.Error("Reconciliation cycle failed", "error", err)
		return 1
	}

	log.Info("Reconciliation cycle completed",
		"runID", report.RunID,
		"candidates", report.Candidates,
		"transitioned", report.Transitioned,
		"unchanged", report.Unchanged,
		"failed", report.Failed,
		"skipped", report.Skipped,
		"aborted", report.Aborted)

	return 0
}
