package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/wolfman30/autorespond/internal/autorespond"
	"github.com/wolfman30/autorespond/internal/booking"
	"github.com/wolfman30/autorespond/internal/http/handlers"
	"github.com/wolfman30/autorespond/internal/messaging"
	"github.com/wolfman30/autorespond/pkg/logging"
)

type recordingInbound struct {
	mu   sync.Mutex
	msgs []autorespond.InboundMessage
}

func (r *recordingInbound) Handle(_ context.Context, msg autorespond.InboundMessage) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return nil
}

type fakeBooking struct{}

func (fakeBooking) State(_ context.Context, sender string) (booking.ConversationState, bool, error) {
	return booking.ConversationState{Sender: sender, Phase: booking.PhaseService}, true, nil
}

func (fakeBooking) Reset(context.Context, string) error { return nil }

const adminSecret = "router-secret"

func newTestRouter(t *testing.T, inbound *recordingInbound) http.Handler {
	t.Helper()
	logger := logging.Discard()
	return New(&Config{
		Logger:           logger,
		MessagingHandler: messaging.NewHandler(messaging.HandlerOptions{Inbound: inbound, Logger: logger}),
		MetricsHandler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte("# metrics"))
		}),
		AdminAuthSecret: adminSecret,
		AdminBooking:    handlers.NewAdminBookingHandler(fakeBooking{}, logger),
	})
}

func TestRouterHealthEndpoint(t *testing.T) {
	router := newTestRouter(t, &recordingInbound{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
	var resp map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("failed to decode health response: %v", err)
	}
	if resp["status"] != "ok" {
		t.Errorf("expected status 'ok', got %v", resp["status"])
	}
}

func TestRouterMetricsEndpoint(t *testing.T) {
	router := newTestRouter(t, &recordingInbound{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK || !strings.Contains(rr.Body.String(), "# metrics") {
		t.Fatalf("unexpected metrics response %d %q", rr.Code, rr.Body.String())
	}
}

func TestRouterTwilioWebhook(t *testing.T) {
	inbound := &recordingInbound{}
	router := newTestRouter(t, inbound)

	form := url.Values{
		"MessageSid": {"SM123"},
		"AccountSid": {"AC123"},
		"From":       {"5551234567"},
		"To":         {"+15559876543"},
		"Body":       {"Hi, do you have openings Friday?"},
	}
	req := httptest.NewRequest(http.MethodPost, "/webhooks/twilio/sms", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d: %s", http.StatusOK, rr.Code, rr.Body.String())
	}
	if len(inbound.msgs) != 1 {
		t.Fatalf("expected one inbound message, got %d", len(inbound.msgs))
	}
	if got := inbound.msgs[0].From; got != "+15551234567" {
		t.Fatalf("expected normalized sender, got %q", got)
	}
}

func TestRouterWebhookMethodNotAllowed(t *testing.T) {
	router := newTestRouter(t, &recordingInbound{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/webhooks/twilio/sms", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status %d, got %d", http.StatusMethodNotAllowed, rr.Code)
	}
}

func TestRouterAdminRequiresToken(t *testing.T) {
	router := newTestRouter(t, &recordingInbound{})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/booking/%2B15551234567", nil))
	if rr.Code != http.StatusUnauthorized {
		t.Fatalf("expected status %d, got %d", http.StatusUnauthorized, rr.Code)
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "ops",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Minute)),
	}).SignedString([]byte(adminSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	req := httptest.NewRequest(http.MethodGet, "/admin/booking/%2B15551234567", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr = httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rr.Code)
	}
}

func TestRouterAdminDisabledWithoutSecret(t *testing.T) {
	logger := logging.Discard()
	router := New(&Config{
		Logger:           logger,
		MessagingHandler: messaging.NewHandler(messaging.HandlerOptions{Inbound: &recordingInbound{}, Logger: logger}),
		AdminBooking:     handlers.NewAdminBookingHandler(fakeBooking{}, logger),
	})

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/admin/booking/%2B15551234567", nil))
	if rr.Code != http.StatusNotFound {
		t.Fatalf("expected status %d, got %d", http.StatusNotFound, rr.Code)
	}
}
