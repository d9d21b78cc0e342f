package config

import (
	"reflect"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "ENV", "LOG_LEVEL", "AUTORESPOND_ENABLED", "CONFIDENCE_THRESHOLD",
		"MAX_RESPONSE_LENGTH", "EXCLUDED_KEYWORDS", "EXCLUDED_DOMAINS",
		"AUTORESPOND_ADDRESSES", "BOOKING_STATE_BACKEND", "BOOKING_STATE_TTL",
	} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if !cfg.AutoRespondEnabled {
		t.Fatalf("expected auto-respond enabled by default")
	}
	if cfg.ConfidenceThreshold != 0.7 {
		t.Fatalf("expected default threshold 0.7, got %v", cfg.ConfidenceThreshold)
	}
	if cfg.MaxResponseLength != 320 {
		t.Fatalf("expected default max length 320, got %d", cfg.MaxResponseLength)
	}
	if !reflect.DeepEqual(cfg.ExcludedKeywords, DefaultExcludedKeywords) {
		t.Fatalf("unexpected default keywords: %v", cfg.ExcludedKeywords)
	}
	if len(cfg.AutoRespondAddresses) != 0 {
		t.Fatalf("expected no auto-respond addresses, got %v", cfg.AutoRespondAddresses)
	}
	if cfg.BookingStateBackend != "memory" {
		t.Fatalf("expected memory backend, got %s", cfg.BookingStateBackend)
	}
	if cfg.BookingStateTTL != 7*24*time.Hour {
		t.Fatalf("expected 7 day ttl, got %s", cfg.BookingStateTTL)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("AUTORESPOND_ENABLED", "false")
	t.Setenv("CONFIDENCE_THRESHOLD", "0.85")
	t.Setenv("MAX_RESPONSE_LENGTH", "160")
	t.Setenv("EXCLUDED_KEYWORDS", " refund , ,lawsuit")
	t.Setenv("EXCLUDED_DOMAINS", "none")
	t.Setenv("AUTORESPOND_ADDRESSES", "hello@glo.example,book@glo.example")
	t.Setenv("BOOKING_STATE_BACKEND", " Redis ")
	t.Setenv("LLM_TIMEOUT", "5s")

	cfg := Load()
	if cfg.AutoRespondEnabled {
		t.Fatalf("expected disabled")
	}
	if cfg.ConfidenceThreshold != 0.85 || cfg.MaxResponseLength != 160 {
		t.Fatalf("unexpected numeric overrides: %v %d", cfg.ConfidenceThreshold, cfg.MaxResponseLength)
	}
	if !reflect.DeepEqual(cfg.ExcludedKeywords, []string{"refund", "lawsuit"}) {
		t.Fatalf("unexpected keywords: %v", cfg.ExcludedKeywords)
	}
	if cfg.ExcludedDomains == nil || len(cfg.ExcludedDomains) != 0 {
		t.Fatalf("expected explicit empty domain list, got %v", cfg.ExcludedDomains)
	}
	if len(cfg.AutoRespondAddresses) != 2 {
		t.Fatalf("expected two addresses, got %v", cfg.AutoRespondAddresses)
	}
	if cfg.BookingStateBackend != "redis" {
		t.Fatalf("expected redis backend, got %q", cfg.BookingStateBackend)
	}
	if cfg.LLMTimeout != 5*time.Second {
		t.Fatalf("expected 5s timeout, got %s", cfg.LLMTimeout)
	}
}

func TestInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("CONFIDENCE_THRESHOLD", "high")
	t.Setenv("MAX_RESPONSE_LENGTH", "lots")
	t.Setenv("BOOKING_STATE_TTL", "forever")
	cfg := Load()
	if cfg.ConfidenceThreshold != 0.7 || cfg.MaxResponseLength != 320 || cfg.BookingStateTTL != 7*24*time.Hour {
		t.Fatalf("expected defaults for invalid values, got %v %d %s", cfg.ConfidenceThreshold, cfg.MaxResponseLength, cfg.BookingStateTTL)
	}
}

func TestLoadInboundProcessing(t *testing.T) {
	t.Setenv("INBOUND_WORKERS", "")
	t.Setenv("DEDUPE_BACKEND", "")
	t.Setenv("WEBHOOK_RATE_PER_SECOND", "")
	cfg := Load()
	if cfg.InboundWorkers != 0 {
		t.Fatalf("expected inline processing by default, got %d workers", cfg.InboundWorkers)
	}
	if cfg.DedupeBackend != "auto" || cfg.DedupeTTL != 72*time.Hour {
		t.Fatalf("unexpected dedupe defaults: %q %s", cfg.DedupeBackend, cfg.DedupeTTL)
	}
	if cfg.WebhookRatePerSecond != 5 || cfg.WebhookBurst != 20 {
		t.Fatalf("unexpected rate limit defaults: %v %d", cfg.WebhookRatePerSecond, cfg.WebhookBurst)
	}

	t.Setenv("INBOUND_WORKERS", "8")
	t.Setenv("DEDUPE_BACKEND", "Postgres")
	t.Setenv("BOOKING_NOTIFY_EMAIL", "frontdesk@glo.example")
	cfg = Load()
	if cfg.InboundWorkers != 8 || cfg.DedupeBackend != "postgres" {
		t.Fatalf("unexpected overrides: %d %q", cfg.InboundWorkers, cfg.DedupeBackend)
	}
	if cfg.BookingNotifyEmail != "frontdesk@glo.example" {
		t.Fatalf("unexpected notify email %q", cfg.BookingNotifyEmail)
	}
}
