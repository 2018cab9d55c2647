package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/has-1997/jetback-mvp/internal/domain/repository"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/config"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/messaging"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/oauth"
	"github.com/has-1997/jetback-mvp/internal/infrastructure/persistence"
	"github.com/has-1997/jetback-mvp/internal/interface/api"
	"github.com/has-1997/jetback-mvp/internal/interface/gmail"
	"github.com/has-1997/jetback-mvp/internal/interface/queue"
	repo "github.com/has-1997/jetback-mvp/internal/interface/repository"
	"github.com/has-1997/jetback-mvp/internal/usecase"
	"github.com/has-1997/jetback-mvp/pkg/logger"
	"github.com/has-1997/jetback-mvp/pkg/metrics"
	"github.com/has-1997/jetback-mvp/pkg/utils"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.mongodb.org/mongo-driver/mongo"
	"google.golang.org/api/option"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.NewLogger("info").Fatal("Failed to load config", "error", err)
	}

	log := logger.NewLogger(cfg.LogLevel)
	defer log.Sync()
	log.Info("Starting jetback service", "version", cfg.AppVersion)

	// Set up context with cancellation
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Set up record store
	var (
		mongoClient *mongo.Client
		bookingRepo repository.TrackedBookingRepository
		emailRepo   repository.EmailRepository
	)
	switch cfg.StoreDriver {
	case config.StoreDriverMemory:
		log.Warn("Using in-memory store; bookings are lost on restart")
		bookingRepo = repo.NewMemoryTrackedBookingRepository()
		emailRepo = repo.NewMemoryEmailRepository()
	default:
		log.Info("Connecting to MongoDB")
		mongoClient, err = persistence.NewMongoClient(ctx, persistence.MongoOptions{
			URI:            cfg.MongoURI,
			Username:       cfg.MongoUser,
			Password:       cfg.MongoPassword,
			AppName:        "jetback-server",
			ConnectTimeout: cfg.MongoConnectTimeout,
		})
		if err != nil {
			log.Fatal("Failed to connect to MongoDB", "error", err)
		}
		db := persistence.GetDatabase(mongoClient, cfg.MongoDB)
		bookingRepo = repo.NewMongoTrackedBookingRepository(db)
		emailRepo = repo.NewMongoEmailRepository(db)
	}

	// Run history is optional
	var runRepo repository.ReconciliationRunRepository = repo.NoopReconciliationRunRepository{}
	if cfg.PostgresURI != "" {
		gormDB, err := persistence.NewPostgresDB(cfg.PostgresURI)
		if err != nil {
			log.Fatal("Failed to connect to PostgreSQL", "error", err)
		}
		gormRunRepo := repo.NewGormReconciliationRunRepository(gormDB)
		if err := gormRunRepo.Migrate(); err != nil {
			log.Fatal("Failed to migrate run history", "error", err)
		}
		runRepo = gormRunRepo
	}

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics("jetback", registry)

	// Fare provider, shared across bookings on the same route within the cache TTL
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

	ingestion := usecase.NewIngestionService(utils.NewBookingEmailParser(log), bookingRepo, emailRepo, m, log)
	reconciler := usecase.NewReconciler(bookingRepo, fareRepo, runRepo, m, log, usecase.ReconcilerConfig{
		Concurrency:  cfg.ReconcileConcurrency,
		QuoteTimeout: cfg.FareQuoteTimeout,
		WriteTimeout: cfg.ReconcileWriteTimeout,
	})

	if cfg.ReconcileEnabled {
		scheduler := usecase.NewScheduler(reconciler, cfg.ReconcileInterval, log)
		go scheduler.Run(ctx)
	} else {
		log.Info("Reconciliation scheduler disabled")
	}

	// Gmail ingestion source
	if cfg.GmailEnabled() {
		gmailOAuth := oauth.NewGmailOAuth(cfg.GmailClientID, cfg.GmailClientSecret, cfg.GmailRefreshToken, "", log)
		service, err := gmail.NewGmailService(ctx, option.WithTokenSource(gmailOAuth.TokenSource(ctx)))
		if err != nil {
			log.Fatal("Failed to create Gmail service", "error", err)
		}
		poller := gmail.NewGmailPoller(service, ingestion, emailRepo, log, cfg.GmailPollInterval, cfg.GmailQuery)
		go poller.StartPolling(ctx)
	}

	// Queue ingestion source
	var rabbit *messaging.RabbitMQConsumer
	if cfg.RabbitMQURL != "" {
		rabbit, err = messaging.NewRabbitMQConsumer(cfg.RabbitMQURL, cfg.RabbitMQQueue, log)
		if err != nil {
			log.Fatal("Failed to connect to RabbitMQ", "error", err)
		}
		deliveries, err := rabbit.Consume()
		if err != nil {
			log.Fatal("Failed to consume from RabbitMQ", "error", err)
		}
		go queue.NewEmailConsumer(ingestion, cfg.RabbitMQRetryDelay, log).Run(ctx, deliveries)
	}

	// Set up HTTP server
	gin.SetMode(gin.ReleaseMode)
	handler := api.NewHandler(ingestion, reconciler, runRepo, log)
	router := api.NewRouter(handler, api.RouterConfig{
		IngestRateLimit: cfg.IngestRateLimit,
		IngestRateBurst: cfg.IngestRateBurst,
		Gatherer:        registry,
	}, log)

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}

	// Start HTTP server in a goroutine
	go func() {
		log.Info("Starting HTTP server", "port", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal("HTTP server error", "error", err)
		}
	}()

	// Wait for interrupt signal
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigChan
	log.Info("Received signal", "signal", sig.String())

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown error", "error", err)
	}

	cancel() // stop scheduler, pollers and consumers

	// an in-flight cycle finishes its started writes before we disconnect
	for reconciler.Running() && shutdownCtx.Err() == nil {
		time.Sleep(100 * time.Millisecond)
	}
	if reconciler.Running() {
		log.Warn("Reconciliation cycle still running at shutdown")
	}

	if rabbit != nil {
		rabbit.Close()
	}

	if mongoClient != nil {
		if err := mongoClient.Disconnect(shutdownCtx); err != nil {
			log.Error("MongoDB disconnect error", "error", err)
		}
	}

	log.Info("jetback service stopped")
}
