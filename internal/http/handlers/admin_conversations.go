package handlers

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/wolfman30/autorespond/internal/conversation"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// ConversationLister reads the exchange log.
type ConversationLister interface {
	ListByClient(ctx context.Context, clientID string, limit int) ([]conversation.StoredConversation, error)
}

// AdminConversationsHandler serves the per-client exchange history.
type AdminConversationsHandler struct {
	store  ConversationLister
	logger *logging.Logger
}

func NewAdminConversationsHandler(store ConversationLister, logger *logging.Logger) *AdminConversationsHandler {
	return &AdminConversationsHandler{store: store, logger: logging.OrDefault(logger)}
}

// ConversationItem is one logged exchange in list responses.
type ConversationItem struct {
	ID               string   `json:"id"`
	Channel          string   `json:"channel"`
	Inbound          string   `json:"inbound"`
	Outbound         string   `json:"outbound"`
	Confidence       float64  `json:"confidence"`
	AIGenerated      bool     `json:"ai_generated"`
	FallbackResponse bool     `json:"fallback_response"`
	BookingFlow      bool     `json:"booking_flow"`
	SuggestedActions []string `json:"suggested_actions,omitempty"`
	CreatedAt        string   `json:"created_at"`
}

// ConversationsResponse is the list payload.
type ConversationsResponse struct {
	ClientID      string             `json:"client_id"`
	Conversations []ConversationItem `json:"conversations"`
}

// List returns the newest exchanges for a client.
// GET /admin/clients/{clientID}/conversations?limit=N
func (h *AdminConversationsHandler) List(w http.ResponseWriter, r *http.Request) {
	clientID := pathParam(r, "clientID")
	if clientID == "" {
		writeError(w, http.StatusBadRequest, "missing clientID")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 200 {
		limit = 50
	}

	rows, err := h.store.ListByClient(r.Context(), clientID, limit)
	if err != nil {
		h.logger.Error("list conversations failed", "client_id", clientID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list conversations")
		return
	}

	items := make([]ConversationItem, 0, len(rows))
	for _, row := range rows {
		items = append(items, ConversationItem{
			ID:               row.ID.String(),
			Channel:          string(row.Channel),
			Inbound:          row.Inbound,
			Outbound:         row.Outbound,
			Confidence:       row.Confidence,
			AIGenerated:      row.Metadata.AIGenerated,
			FallbackResponse: row.Metadata.FallbackResponse,
			BookingFlow:      row.Metadata.BookingFlow,
			SuggestedActions: row.Metadata.SuggestedActions,
			CreatedAt:        row.CreatedAt.UTC().Format(time.RFC3339),
		})
	}
	writeJSON(w, http.StatusOK, ConversationsResponse{ClientID: clientID, Conversations: items})
}
