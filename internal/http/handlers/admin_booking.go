package handlers

import (
	"context"
	"errors"
	"net/http"

	"github.com/wolfman30/autorespond/internal/booking"
	"github.com/wolfman30/autorespond/internal/http/middleware"
	"github.com/wolfman30/autorespond/pkg/logging"
)

// BookingAdmin is the operator view of the SMS booking dialogue.
type BookingAdmin interface {
	State(ctx context.Context, sender string) (booking.ConversationState, bool, error)
	Reset(ctx context.Context, sender string) error
}

// AdminBookingHandler lets operators inspect or clear a sender's booking dialogue.
type AdminBookingHandler struct {
	machine BookingAdmin
	logger  *logging.Logger
}

func NewAdminBookingHandler(machine BookingAdmin, logger *logging.Logger) *AdminBookingHandler {
	return &AdminBookingHandler{machine: machine, logger: logging.OrDefault(logger)}
}

// GetState returns the stored dialogue.
// GET /admin/booking/{address}
func (h *AdminBookingHandler) GetState(w http.ResponseWriter, r *http.Request) {
	sender := pathParam(r, "address")
	if sender == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}
	state, ok, err := h.machine.State(r.Context(), sender)
	if err != nil {
		h.logger.Error("load booking state failed", "sender", sender, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load booking state")
		return
	}
	if !ok {
		writeError(w, http.StatusNotFound, "no booking dialogue for sender")
		return
	}
	writeJSON(w, http.StatusOK, state)
}

// Reset clears the stored dialogue so the sender starts over.
// DELETE /admin/booking/{address}
func (h *AdminBookingHandler) Reset(w http.ResponseWriter, r *http.Request) {
	sender := pathParam(r, "address")
	if sender == "" {
		writeError(w, http.StatusBadRequest, "missing address")
		return
	}
	if err := h.machine.Reset(r.Context(), sender); err != nil {
		status := http.StatusInternalServerError
		if errors.Is(err, booking.ErrLockTimeout) {
			status = http.StatusConflict
		}
		h.logger.Error("reset booking state failed", "sender", sender, "error", err)
		writeError(w, status, "failed to reset booking state")
		return
	}
	operator, _ := middleware.AdminSubject(r.Context())
	h.logger.Info("booking state reset", "sender", sender, "operator", operator)
	w.WriteHeader(http.StatusNoContent)
}
