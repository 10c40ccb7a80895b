// Package handler provides HTTP handlers for the admin API.
package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/steveluke1457/Mr-Bot/internal/middleware"
	"github.com/steveluke1457/Mr-Bot/internal/model"
	"github.com/steveluke1457/Mr-Bot/internal/ticket"
	"github.com/steveluke1457/Mr-Bot/pkg/logger"
)

// TicketStore reads live ticket sessions.
type TicketStore interface {
	Sessions() []model.TicketSession
	Session(channelID string) (model.TicketSession, bool)
}

// TicketCloser closes tickets on behalf of a moderator.
type TicketCloser interface {
	ForceClose(ctx context.Context, channelID string, moderator model.Actor) (model.Reply, error)
}

// EventSource reads the ticket event history.
type EventSource interface {
	RecentEvents(ctx context.Context, ownerID string, afterSequence uint64, limit int) ([]model.TicketEvent, uint64, error)
}

// TicketListResponse is the body of GET /tickets.
type TicketListResponse struct {
	Tickets []model.TicketSession `json:"tickets"`
	Total   int                   `json:"total"`
}

// EventListResponse is the body of GET /events.
type EventListResponse struct {
	Events       []model.TicketEvent `json:"events"`
	LastSequence uint64              `json:"last_sequence"`
}

// TicketHandler handles ticket endpoints.
type TicketHandler struct {
	store  TicketStore
	closer TicketCloser
	events EventSource
	logger *logger.Logger
}

// NewTicketHandler creates a ticket handler. events may be nil when no
// event stream is configured.
func NewTicketHandler(store TicketStore, closer TicketCloser, events EventSource, log *logger.Logger) *TicketHandler {
	return &TicketHandler{
		store:  store,
		closer: closer,
		events: events,
		logger: log,
	}
}

// List handles GET /api/v1/tickets
func (h *TicketHandler) List(w http.ResponseWriter, r *http.Request) {
	sessions := h.store.Sessions()
	if sessions == nil {
		sessions = []model.TicketSession{}
	}
	writeJSON(w, http.StatusOK, TicketListResponse{Tickets: sessions, Total: len(sessions)})
}

// Get handles GET /api/v1/tickets/{channelID}
func (h *TicketHandler) Get(w http.ResponseWriter, r *http.Request) {
	channelID := chi.URLParam(r, "channelID")
	if err := middleware.ValidateChannelID(channelID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sess, ok := h.store.Session(channelID)
	if !ok {
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	}
	writeJSON(w, http.StatusOK, sess)
}

// Close handles DELETE /api/v1/tickets/{channelID}
func (h *TicketHandler) Close(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	channelID := chi.URLParam(r, "channelID")
	if err := middleware.ValidateChannelID(channelID); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	moderator := model.Actor{ID: middleware.GetUserID(ctx)}
	reply, err := h.closer.ForceClose(ctx, channelID, moderator)
	switch {
	case errors.Is(err, ticket.ErrNotATicketChannel):
		writeError(w, http.StatusNotFound, "ticket not found")
		return
	case err != nil:
		writeError(w, http.StatusInternalServerError, "failed to close ticket")
		return
	}

	h.logger.Info("ticket closed via api",
		zap.String("channel_id", channelID),
		zap.String("moderator_id", moderator.ID),
		zap.String("correlation_id", middleware.GetCorrelationID(ctx)),
	)
	writeJSON(w, http.StatusAccepted, map[string]string{"message": reply.Content})
}

// Events handles GET /api/v1/events
func (h *TicketHandler) Events(w http.ResponseWriter, r *http.Request) {
	if h.events == nil {
		writeError(w, http.StatusServiceUnavailable, "event stream not configured")
		return
	}

	ownerID := r.URL.Query().Get("owner")
	if ownerID != "" {
		if err := middleware.ValidateActorID(ownerID); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}

	var after uint64
	if a := r.URL.Query().Get("after"); a != "" {
		parsed, err := strconv.ParseUint(a, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid after sequence")
			return
		}
		after = parsed
	}
	limit := queryInt(r, "limit", 50, 1, 500)

	events, last, err := h.events.RecentEvents(r.Context(), ownerID, after, limit)
	if err != nil {
		h.logger.Error("failed to read ticket events", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to read events")
		return
	}
	if events == nil {
		events = []model.TicketEvent{}
	}
	if last == 0 {
		last = after
	}
	writeJSON(w, http.StatusOK, EventListResponse{Events: events, LastSequence: last})
}
