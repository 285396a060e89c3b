package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/persistence"
)

type userService interface {
	SyncUsers(ctx context.Context, members []application.Member) (application.SyncSummary, error)
	ListUsers(ctx context.Context) ([]persistence.User, error)
}

// UserHandler serves membership sync and user listing.
type UserHandler struct {
	service   userService
	responder responder
	logger    *slog.Logger
}

// NewUserHandler constructs a user handler.
func NewUserHandler(service userService, logger *slog.Logger) *UserHandler {
	base := defaultLogger(logger)
	return &UserHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *UserHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "UserHandler", operation, attrs...)
}

type memberRequest struct {
	ExternalID  string `json:"external_id"`
	DisplayName string `json:"display_name"`
	HasRole     bool   `json:"has_role"`
}

type syncRequest struct {
	Members []memberRequest `json:"members"`
}

type syncResponse struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Total   int `json:"total"`
}

type userDTO struct {
	ExternalID  string    `json:"external_id"`
	DisplayName string    `json:"display_name"`
	HasRole     bool      `json:"has_role"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type userListResponse struct {
	Users []userDTO `json:"users"`
}

func toUserDTO(user persistence.User) userDTO {
	return userDTO{
		ExternalID:  user.ExternalID,
		DisplayName: user.DisplayName,
		HasRole:     user.HasRole,
		CreatedAt:   user.CreatedAt,
		UpdatedAt:   user.UpdatedAt,
	}
}

// Sync handles POST /users/sync.
func (h *UserHandler) Sync(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req syncRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Sync", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	members := make([]application.Member, 0, len(req.Members))
	for _, member := range req.Members {
		members = append(members, application.Member{
			ExternalID:  member.ExternalID,
			DisplayName: member.DisplayName,
			HasRole:     member.HasRole,
		})
	}

	logger := h.log(r.Context(), "Sync", "member_count", len(members))

	summary, err := h.service.SyncUsers(r.Context(), members)
	if err != nil {
		logger.ErrorContext(r.Context(), "membership sync failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("created", summary.Created, "updated", summary.Updated).InfoContext(r.Context(), "membership synced")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, syncResponse{
		Created: summary.Created,
		Updated: summary.Updated,
		Total:   summary.Total,
	})
}

// List handles GET /users.
func (h *UserHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	users, err := h.service.ListUsers(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]userDTO, 0, len(users))
	for _, user := range users {
		dtos = append(dtos, toUserDTO(user))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, userListResponse{Users: dtos})
}
