package main

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/autorespond/cmd/mainconfig"
	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/internal/booking"
	"github.com/wolfman30/autorespond/internal/catalog"
	"github.com/wolfman30/autorespond/internal/clients"
	appconfig "github.com/wolfman30/autorespond/internal/config"
	"github.com/wolfman30/autorespond/internal/conversation"
	"github.com/wolfman30/autorespond/internal/events"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/internal/notify"
	"github.com/wolfman30/autorespond/internal/observability/metrics"
	"github.com/wolfman30/autorespond/pkg/logging"
)

const conversationMemoryLimit = 1000

func setupMetrics() (http.Handler, *metrics.AutoRespondMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewAutoRespondMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), m
}

func autorespondConfig(cfg *appconfig.Config) autorespond.Config {
	return autorespond.Config{
		Enabled:             cfg.AutoRespondEnabled,
		ConfidenceThreshold: cfg.ConfidenceThreshold,
		MaxResponseLength:   cfg.MaxResponseLength,
		BusinessHoursOnly:   cfg.BusinessHoursOnly,
		BusinessHours: autorespond.BusinessHours{
			Start:    cfg.BusinessHoursStart,
			End:      cfg.BusinessHoursEnd,
			Timezone: cfg.BusinessHoursTZ,
		},
		ExcludedKeywords:     cfg.ExcludedKeywords,
		ExcludedDomains:      cfg.ExcludedDomains,
		AutoRespondAddresses: cfg.AutoRespondAddresses,
	}
}

// connectPostgresPool returns nil when no URL is configured or the database is unreachable.
func connectPostgresPool(ctx context.Context, url string, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(url) == "" {
		return nil
	}
	pool, err := pgxpool.New(ctx, url)
	if err != nil {
		logger.Error("failed to create postgres pool", "error", err)
		return nil
	}
	if err := pool.Ping(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		pool.Close()
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

// needsRedis reports whether any component was configured onto redis.
func needsRedis(cfg *appconfig.Config) bool {
	return cfg.BookingStateBackend == "redis" || cfg.DedupeBackend == "redis"
}

func connectRedis(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (*redis.Client, error) {
	opts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		opts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", cfg.RedisAddr, err)
	}
	logger.Info("connected to redis", "addr", cfg.RedisAddr)
	return client, nil
}

type redisPinger struct {
	client *redis.Client
}

func (p redisPinger) Ping(ctx context.Context) error {
	return p.client.Ping(ctx).Err()
}

// buildCatalog prefers a catalog file, then postgres, then the built-in demo profile.
// A configured knowledge bucket overrides the knowledge corpus of whichever store wins.
func buildCatalog(cfg *appconfig.Config, pool *pgxpool.Pool, s3Client catalog.S3API) (catalog.Store, error) {
	var store catalog.Store
	switch {
	case cfg.CatalogFile != "":
		static, err := catalog.LoadFile(cfg.CatalogFile)
		if err != nil {
			return nil, err
		}
		store = static
	case pool != nil:
		store = catalog.NewPostgresStore(pool)
	default:
		profile := catalog.DefaultProfile()
		if cfg.BusinessName != "" {
			profile.Business.BusinessName = cfg.BusinessName
		}
		if cfg.BusinessType != "" {
			profile.Business.BusinessType = cfg.BusinessType
		}
		store = catalog.NewStaticStore(profile)
	}
	if cfg.KnowledgeBucket != "" && s3Client != nil {
		store = catalog.NewS3KnowledgeStore(store, s3Client, cfg.KnowledgeBucket, cfg.KnowledgeKey)
	}
	return store, nil
}

func buildClientStore(pool *pgxpool.Pool) autorespond.ClientStore {
	if pool != nil {
		return clients.NewPostgresRepository(pool)
	}
	return clients.NewInMemoryRepository()
}

type conversationStore interface {
	autorespond.ConversationLog
	ListByClient(ctx context.Context, clientID string, limit int) ([]conversation.StoredConversation, error)
}

func buildConversationStore(pool *pgxpool.Pool) (conversationStore, *sql.DB) {
	if pool == nil {
		return conversation.NewMemoryLog(conversationMemoryLimit), nil
	}
	db := stdlib.OpenDBFromPool(pool)
	return conversation.NewConversationStore(db), db
}

func buildBookingStore(cfg *appconfig.Config, rdb *redis.Client) booking.StateStore {
	if cfg.BookingStateBackend == "redis" && rdb != nil {
		return booking.NewRedisStore(rdb, cfg.BookingStateTTL)
	}
	return booking.NewMemoryStore()
}

// buildDeduper resolves DEDUPE_BACKEND; "auto" picks postgres, then redis, then memory.
func buildDeduper(cfg *appconfig.Config, pool *pgxpool.Pool, rdb *redis.Client) autorespond.Deduplicator {
	backend := cfg.DedupeBackend
	if backend == "auto" || backend == "" {
		switch {
		case pool != nil:
			backend = "postgres"
		case rdb != nil:
			backend = "redis"
		default:
			backend = "memory"
		}
	}
	switch {
	case backend == "postgres" && pool != nil:
		return events.NewProcessedStore(pool)
	case backend == "redis" && rdb != nil:
		return events.NewRedisProcessedStore(rdb, cfg.DedupeTTL)
	default:
		return events.NewMemoryProcessedStore(cfg.DedupeTTL)
	}
}

func buildSMSSender(cfg *appconfig.Config, logger *logging.Logger) autorespond.SMSTransport {
	if cfg.TwilioAccountSID != "" && cfg.TwilioAuthToken != "" {
		return messaging.NewTwilioSender(cfg.TwilioAccountSID, cfg.TwilioAuthToken, cfg.TwilioFromNumber, logger)
	}
	logger.Warn("twilio credentials missing; SMS replies are logged only")
	return messaging.NewStubSMSSender(logger)
}

func buildEmailSender(cfg *appconfig.Config, awsCfg *aws.Config, logger *logging.Logger) notify.EmailSender {
	var sesClient *sesv2.Client
	if awsCfg != nil && cfg.SESFromEmail != "" {
		sesClient = sesv2.NewFromConfig(*awsCfg)
	}
	return notify.BuildEmailSender(notify.ProviderConfig{
		Provider: cfg.EmailProvider,
		SendGrid: notify.SendGridConfig{
			APIKey:    cfg.SendGridAPIKey,
			FromEmail: cfg.SendGridFromEmail,
			FromName:  cfg.SendGridFromName,
		},
		SES: notify.SESConfig{
			FromEmail: cfg.SESFromEmail,
			FromName:  cfg.SendGridFromName,
		},
	}, sesClient, logger)
}

func buildLLMProviders(cfg *appconfig.Config, awsCfg *aws.Config) conversation.ProviderConfig {
	providers := conversation.ProviderConfig{
		OpenAIAPIKey:   cfg.OpenAIAPIKey,
		OpenAIModel:    cfg.OpenAIModel,
		OpenAIBaseURL:  cfg.OpenAIBaseURL,
		BedrockModelID: cfg.BedrockModelID,
		GeminiAPIKey:   cfg.GeminiAPIKey,
		GeminiModelID:  cfg.GeminiModelID,
	}
	if awsCfg != nil && cfg.BedrockModelID != "" {
		providers.Bedrock = bedrockruntime.NewFromConfig(*awsCfg)
	}
	return providers
}

// needsAWS reports whether any configured component talks to AWS.
func needsAWS(cfg *appconfig.Config) bool {
	return cfg.BedrockModelID != "" || cfg.SESFromEmail != "" || cfg.KnowledgeBucket != ""
}

func loadAWS(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *aws.Config {
	if !needsAWS(cfg) {
		return nil
	}
	awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
	if err != nil {
		logger.Error("failed to load AWS config; AWS-backed components disabled", "error", err)
		return nil
	}
	return &awsCfg
}

// businessName is used in operator emails; the catalog wins over configuration.
func businessName(ctx context.Context, store catalog.Store, cfg *appconfig.Config) string {
	if settings, err := store.BusinessSettings(ctx); err == nil && settings.BusinessName != "" {
		return settings.BusinessName
	}
	if cfg.BusinessName != "" {
		return cfg.BusinessName
	}
	return "our team"
}
