package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/cleaning-roster/internal/application"
)

type rosterService interface {
	Join(ctx context.Context, externalID, instanceID string) error
	Leave(ctx context.Context, externalID, instanceID string) error
	Finish(ctx context.Context, externalID, instanceID string) error
	SetLeaveLock(ctx context.Context, locked bool) bool
	LeaveLocked() bool
}

// RosterHandler serves the participation actions and the leave lock toggle.
type RosterHandler struct {
	service   rosterService
	responder responder
	logger    *slog.Logger
}

// NewRosterHandler constructs a roster handler.
func NewRosterHandler(service rosterService, logger *slog.Logger) *RosterHandler {
	base := defaultLogger(logger)
	return &RosterHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *RosterHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "RosterHandler", operation, attrs...)
}

type actorRequest struct {
	ExternalID string `json:"external_id"`
}

type lockRequest struct {
	Locked bool `json:"locked"`
}

type lockResponse struct {
	Locked bool `json:"locked"`
}

// Join handles POST /cleanings/{id}/join.
func (h *RosterHandler) Join(w http.ResponseWriter, r *http.Request) {
	h.participationAction(w, r, "Join", h.service.Join)
}

// Leave handles POST /cleanings/{id}/leave.
func (h *RosterHandler) Leave(w http.ResponseWriter, r *http.Request) {
	h.participationAction(w, r, "Leave", h.service.Leave)
}

// Finish handles POST /cleanings/{id}/finish.
func (h *RosterHandler) Finish(w http.ResponseWriter, r *http.Request) {
	h.participationAction(w, r, "Finish", h.service.Finish)
}

func (h *RosterHandler) participationAction(w http.ResponseWriter, r *http.Request, operation string, action func(ctx context.Context, externalID, instanceID string) error) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	instanceID, ok := InstanceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(instanceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstanceID)
		return
	}

	var req actorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), operation, "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), operation,
		"instance_id", instanceID,
		"external_id", req.ExternalID,
	)

	if err := action(r.Context(), req.ExternalID, instanceID); err != nil {
		logger.ErrorContext(r.Context(), "participation action failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "participation action applied")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// SetLock handles POST /lock.
func (h *RosterHandler) SetLock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req lockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	locked := h.service.SetLeaveLock(r.Context(), req.Locked)
	h.log(r.Context(), "SetLock", "locked", locked).InfoContext(r.Context(), "leave lock toggled")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lockResponse{Locked: locked})
}

// GetLock handles GET /lock.
func (h *RosterHandler) GetLock(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, lockResponse{Locked: h.service.LeaveLocked()})
}
