package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/autorespond/cmd/mainconfig"
	"github.com/wolfman30/autorespond/internal/api/router"
	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/internal/booking"
	"github.com/wolfman30/autorespond/internal/catalog"
	appconfig "github.com/wolfman30/autorespond/internal/config"
	"github.com/wolfman30/autorespond/internal/conversation"
	"github.com/wolfman30/autorespond/internal/http/handlers"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/internal/worker"
	"github.com/wolfman30/autorespond/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting autorespond API server",
		"env", cfg.Env,
		"port", cfg.Port,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metricsHandler, appMetrics := setupMetrics()

	// Storage
	pool := connectPostgresPool(ctx, cfg.DatabaseURL, logger)
	if pool != nil {
		defer pool.Close()
	}
	var rdb *redis.Client
	if needsRedis(cfg) {
		var err error
		if rdb, err = connectRedis(ctx, cfg, logger); err != nil {
			logger.Error("redis unavailable; falling back to in-memory stores", "error", err)
		} else {
			defer func() { _ = rdb.Close() }()
		}
	}
	awsCfg := loadAWS(ctx, cfg, logger)

	var s3Client catalog.S3API
	if awsCfg != nil && cfg.KnowledgeBucket != "" {
		s3Client = mainconfig.NewS3Client(*awsCfg, cfg)
	}
	catalogStore, err := buildCatalog(cfg, pool, s3Client)
	if err != nil {
		logger.Error("failed to load catalog", "error", err)
		os.Exit(1)
	}
	convStore, convDB := buildConversationStore(pool)
	if convDB != nil {
		defer func() { _ = convDB.Close() }()
	}

	// AI
	llmClient, closeLLM, err := conversation.BuildLLMClient(ctx, buildLLMProviders(cfg, awsCfg), logger)
	if err != nil {
		logger.Error("failed to build LLM client", "error", err)
		os.Exit(1)
	}
	defer closeLLM()
	var aiGenerator autorespond.AIGenerator
	if llmClient != nil {
		aiGenerator = conversation.NewAIResponder(llmClient, conversation.ResponderOptions{
			MaxTokens:   int32(cfg.LLMMaxTokens),
			Temperature: float32(cfg.LLMTemperature),
			Timeout:     cfg.LLMTimeout,
		}, logger)
	} else {
		logger.Warn("no AI provider configured; replies use deterministic fallback")
	}

	// Transports
	smsSender := buildSMSSender(cfg, logger)
	emailSender := buildEmailSender(cfg, awsCfg, logger)

	// Booking dialogue
	machineOpts := booking.MachineOptions{
		Store:   buildBookingStore(cfg, rdb),
		Catalog: catalogStore,
		Logger:  logger,
	}
	if notifier := booking.NewHandoffNotifier(emailSender, cfg.BookingNotifyEmail, businessName(ctx, catalogStore, cfg), logger); notifier != nil {
		machineOpts.Notifier = notifier
	}
	machine := booking.NewMachine(machineOpts)

	engine, err := autorespond.NewEngine(autorespond.Options{
		Config:  autorespondConfig(cfg),
		Clients: buildClientStore(pool),
		Catalog: catalogStore,
		AI:      aiGenerator,
		Booking: autorespond.MachineFlow(machine),
		SMS:     smsSender,
		Email:   emailSender,
		Log:     convStore,
		Dedupe:  buildDeduper(cfg, pool, rdb),
		Logger:  logger,
		Metrics: appMetrics,
	})
	if err != nil {
		logger.Error("invalid auto-response configuration", "error", err)
		os.Exit(1)
	}

	// Inbound processing
	var inbound messaging.Inbound = worker.NewInline(engine, logger)
	var workerPool *worker.Pool
	if cfg.InboundWorkers > 0 {
		workerPool = worker.NewPool(engine, worker.PoolOptions{
			Workers:    cfg.InboundWorkers,
			QueueSize:  cfg.InboundQueueSize,
			JobTimeout: cfg.InboundJobTimeout,
		}, logger)
		workerPool.Start(ctx)
		inbound = workerPool
	}

	twilioSecret := cfg.TwilioWebhookSecret
	if twilioSecret == "" {
		twilioSecret = cfg.TwilioAuthToken
	}
	messagingHandler := messaging.NewHandler(messaging.HandlerOptions{
		Inbound:           inbound,
		TwilioAuthToken:   twilioSecret,
		PublicBaseURL:     cfg.PublicBaseURL,
		EmailWebhookToken: cfg.EmailWebhookToken,
		Logger:            logger,
		Metrics:           appMetrics,
	})

	checks := map[string]handlers.Pinger{}
	if pool != nil {
		checks["postgres"] = pool
	}
	if rdb != nil {
		checks["redis"] = redisPinger{client: rdb}
	}

	// Setup router
	r := router.New(&router.Config{
		Logger:               logger,
		MessagingHandler:     messagingHandler,
		HealthHandler:        handlers.NewHealthHandler(checks),
		MetricsHandler:       metricsHandler,
		WebhookRatePerSecond: cfg.WebhookRatePerSecond,
		WebhookBurst:         cfg.WebhookBurst,
		AdminAuthSecret:      cfg.AdminJWTSecret,
		AdminBooking:         handlers.NewAdminBookingHandler(machine, logger),
		AdminConversations:   handlers.NewAdminConversationsHandler(convStore, logger),
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
	}
	if workerPool != nil {
		if err := workerPool.Shutdown(shutdownCtx); err != nil {
			logger.Error("inbound queue did not drain", "error", err)
		}
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}
