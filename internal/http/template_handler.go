package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/persistence"
)

type templateService interface {
	CreateTemplate(ctx context.Context, input application.TemplateInput) (persistence.Template, error)
	UpdateTemplate(ctx context.Context, id string, input application.TemplateInput) (persistence.Template, error)
	DeleteTemplate(ctx context.Context, id string) error
	TemplateByID(ctx context.Context, id string) (*persistence.Template, error)
	ListTemplates(ctx context.Context) ([]persistence.Template, error)
}

// TemplateHandler serves template management.
type TemplateHandler struct {
	service   templateService
	responder responder
	logger    *slog.Logger
}

// NewTemplateHandler constructs a template handler.
func NewTemplateHandler(service templateService, logger *slog.Logger) *TemplateHandler {
	base := defaultLogger(logger)
	return &TemplateHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *TemplateHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "TemplateHandler", operation, attrs...)
}

type templateRequest struct {
	Name            string `json:"name"`
	Place           string `json:"place"`
	Instructions    string `json:"instructions"`
	MaxParticipants int    `json:"max_participants"`
}

func (r templateRequest) toInput() application.TemplateInput {
	return application.TemplateInput{
		Name:            r.Name,
		Place:           r.Place,
		Instructions:    r.Instructions,
		MaxParticipants: r.MaxParticipants,
	}
}

type templateDTO struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Place           string    `json:"place"`
	Instructions    string    `json:"instructions"`
	MaxParticipants int       `json:"max_participants"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type templateListResponse struct {
	Templates []templateDTO `json:"templates"`
}

func toTemplateDTO(template persistence.Template) templateDTO {
	return templateDTO{
		ID:              template.ID,
		Name:            template.Name,
		Place:           template.Place,
		Instructions:    template.Instructions,
		MaxParticipants: template.MaxParticipants,
		CreatedAt:       template.CreatedAt,
		UpdatedAt:       template.UpdatedAt,
	}
}

// Create handles POST /templates.
func (h *TemplateHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Create", "template_name", req.Name)

	template, err := h.service.CreateTemplate(r.Context(), req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "template creation failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.With("template_id", template.ID).InfoContext(r.Context(), "template created")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toTemplateDTO(template))
}

// Update handles PUT /templates/{id}.
func (h *TemplateHandler) Update(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	var req templateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	logger := h.log(r.Context(), "Update", "template_id", templateID)

	template, err := h.service.UpdateTemplate(r.Context(), templateID, req.toInput())
	if err != nil {
		logger.ErrorContext(r.Context(), "template update failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "template updated")
	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTemplateDTO(template))
}

// Delete handles DELETE /templates/{id}.
func (h *TemplateHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	logger := h.log(r.Context(), "Delete", "template_id", templateID)

	if err := h.service.DeleteTemplate(r.Context(), templateID); err != nil {
		logger.ErrorContext(r.Context(), "template deletion failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "template deleted")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

// Get handles GET /templates/{id}.
func (h *TemplateHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templateID, ok := TemplateIDFromContext(r.Context())
	if !ok || strings.TrimSpace(templateID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidTemplateID)
		return
	}

	template, err := h.service.TemplateByID(r.Context(), templateID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toTemplateDTO(*template))
}

// List handles GET /templates.
func (h *TemplateHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	templates, err := h.service.ListTemplates(r.Context())
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]templateDTO, 0, len(templates))
	for _, template := range templates {
		dtos = append(dtos, toTemplateDTO(template))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, templateListResponse{Templates: dtos})
}
