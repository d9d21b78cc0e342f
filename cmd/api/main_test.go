package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/wolfman30/autorespond/internal/booking"
	"github.com/wolfman30/autorespond/internal/clients"
	appconfig "github.com/wolfman30/autorespond/internal/config"
	"github.com/wolfman30/autorespond/internal/conversation"
	"github.com/wolfman30/autorespond/internal/events"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/pkg/logging"
)

func TestSetupMetricsExposesMetrics(t *testing.T) {
	handler, metrics := setupMetrics()
	if handler == nil || metrics == nil {
		t.Fatalf("expected non-nil handler and metrics")
	}

	metrics.ObserveInbound("sms", "accepted")

	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rr.Code)
	}
	if !strings.Contains(rr.Body.String(), "autorespond_inbound_total") {
		t.Fatalf("expected inbound counter to be exported")
	}
}

func TestConnectPostgresPoolEmptyURLReturnsNil(t *testing.T) {
	if pool := connectPostgresPool(context.Background(), "", logging.Discard()); pool != nil {
		t.Fatalf("expected nil pool for empty URL")
	}
}

func TestAutorespondConfigIsValid(t *testing.T) {
	cfg := appconfig.Load()
	if err := autorespondConfig(cfg).Validate(); err != nil {
		t.Fatalf("default configuration should validate: %v", err)
	}
}

func TestBuildCatalogDefaultsToDemoProfile(t *testing.T) {
	store, err := buildCatalog(&appconfig.Config{BusinessName: "Lumen Spa"}, nil, nil)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	settings, err := store.BusinessSettings(context.Background())
	if err != nil {
		t.Fatalf("settings: %v", err)
	}
	if settings.BusinessName != "Lumen Spa" {
		t.Fatalf("expected configured business name, got %q", settings.BusinessName)
	}
	if got := businessName(context.Background(), store, &appconfig.Config{}); got != "Lumen Spa" {
		t.Fatalf("expected catalog business name, got %q", got)
	}
}

func TestBuildCatalogFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "catalog.yaml")
	body := "business:\n  name: File Spa\nservices:\n  - name: Scalp Detox\n    price: 80\n"
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	store, err := buildCatalog(&appconfig.Config{CatalogFile: path}, nil, nil)
	if err != nil {
		t.Fatalf("build catalog: %v", err)
	}
	services, err := store.ListServices(context.Background())
	if err != nil || len(services) != 1 || services[0].Name != "Scalp Detox" {
		t.Fatalf("unexpected services %v (err %v)", services, err)
	}

	if _, err := buildCatalog(&appconfig.Config{CatalogFile: filepath.Join(t.TempDir(), "missing.yaml")}, nil, nil); err == nil {
		t.Fatalf("expected error for missing catalog file")
	}
}

func TestMemoryFallbacksWithoutInfrastructure(t *testing.T) {
	cfg := &appconfig.Config{BookingStateBackend: "redis", DedupeBackend: "auto", DedupeTTL: time.Hour}

	if _, ok := buildClientStore(nil).(*clients.InMemoryRepository); !ok {
		t.Fatalf("expected in-memory client store")
	}
	store, db := buildConversationStore(nil)
	if db != nil {
		t.Fatalf("expected no sql handle without postgres")
	}
	if _, ok := store.(*conversation.MemoryLog); !ok {
		t.Fatalf("expected in-memory conversation log, got %T", store)
	}
	if _, ok := buildBookingStore(cfg, nil).(*booking.MemoryStore); !ok {
		t.Fatalf("expected memory booking store when redis is unavailable")
	}
	if _, ok := buildDeduper(cfg, nil, nil).(*events.MemoryProcessedStore); !ok {
		t.Fatalf("expected memory dedupe store")
	}
}

func TestRedisBackedStores(t *testing.T) {
	mr := miniredis.RunT(t)
	cfg := &appconfig.Config{
		RedisAddr:           mr.Addr(),
		BookingStateBackend: "redis",
		BookingStateTTL:     time.Hour,
		DedupeBackend:       "auto",
		DedupeTTL:           time.Hour,
	}
	if !needsRedis(cfg) {
		t.Fatalf("expected redis to be required")
	}
	rdb, err := connectRedis(context.Background(), cfg, logging.Discard())
	if err != nil {
		t.Fatalf("connect redis: %v", err)
	}
	defer rdb.Close()

	if _, ok := buildBookingStore(cfg, rdb).(*booking.RedisStore); !ok {
		t.Fatalf("expected redis booking store")
	}
	if _, ok := buildDeduper(cfg, nil, rdb).(*events.RedisProcessedStore); !ok {
		t.Fatalf("expected redis dedupe store")
	}
	if err := (redisPinger{client: rdb}).Ping(context.Background()); err != nil {
		t.Fatalf("ping: %v", err)
	}

	mr.Close()
	if _, err := connectRedis(context.Background(), cfg, logging.Discard()); err == nil {
		t.Fatalf("expected error when redis is down")
	}
}

func TestBuildSMSSender(t *testing.T) {
	logger := logging.Discard()
	if _, ok := buildSMSSender(&appconfig.Config{}, logger).(*messaging.StubSMSSender); !ok {
		t.Fatalf("expected stub sender without credentials")
	}
	cfg := &appconfig.Config{TwilioAccountSID: "AC123", TwilioAuthToken: "token", TwilioFromNumber: "+15550001111"}
	if _, ok := buildSMSSender(cfg, logger).(*messaging.TwilioSender); !ok {
		t.Fatalf("expected twilio sender")
	}
}

func TestNeedsAWS(t *testing.T) {
	if needsAWS(&appconfig.Config{}) {
		t.Fatalf("expected AWS to be optional")
	}
	if loadAWS(context.Background(), &appconfig.Config{}, logging.Discard()) != nil {
		t.Fatalf("expected no AWS config when nothing needs it")
	}
	if !needsAWS(&appconfig.Config{BedrockModelID: "anthropic.claude-3-haiku"}) {
		t.Fatalf("expected bedrock to require AWS")
	}
}
