package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

type scheduleService interface {
	ScheduleInstances(ctx context.Context, input application.ScheduleInput) ([]persistence.InstanceSpec, error)
	RemoveInstance(ctx context.Context, id string) error
	InstanceByID(ctx context.Context, id string) (*persistence.InstanceDetail, error)
	ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error)
}

// ScheduleHandler serves cleaning scheduling and reads.
type ScheduleHandler struct {
	service   scheduleService
	responder responder
	logger    *slog.Logger
}

// NewScheduleHandler constructs a schedule handler.
func NewScheduleHandler(service scheduleService, logger *slog.Logger) *ScheduleHandler {
	base := defaultLogger(logger)
	return &ScheduleHandler{service: service, responder: newResponder(base), logger: base}
}

func (h *ScheduleHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ScheduleHandler", operation, attrs...)
}

type scheduleRequest struct {
	TemplateID string `json:"template_id"`
	DateStart  string `json:"date_start"`
	DateEnd    string `json:"date_end"`
	Repeat     int    `json:"repeat"`
}

type instanceDTO struct {
	ID           string       `json:"id"`
	TemplateID   string       `json:"template_id"`
	DateStart    string       `json:"date_start"`
	DateEnd      string       `json:"date_end"`
	Started      bool         `json:"started"`
	Finished     bool         `json:"finished"`
	ThreadRef    string       `json:"thread_ref,omitempty"`
	Template     *templateDTO `json:"template,omitempty"`
	Participants []userDTO    `json:"participants"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}

type scheduleResponse struct {
	Instances []instanceDTO `json:"instances"`
}

type instanceListResponse struct {
	Instances []instanceDTO `json:"instances"`
}

func toInstanceDTO(detail persistence.InstanceDetail) instanceDTO {
	dto := instanceDTO{
		ID:         detail.ID,
		TemplateID: detail.TemplateID,
		DateStart:  string(detail.DateStart),
		DateEnd:    string(detail.DateEnd),
		Started:    detail.Started,
		Finished:   detail.Finished,
		ThreadRef:  detail.ThreadRef,
		CreatedAt:  detail.CreatedAt,
		UpdatedAt:  detail.UpdatedAt,
	}
	template := toTemplateDTO(detail.Template)
	dto.Template = &template
	dto.Participants = make([]userDTO, 0, len(detail.Participants))
	for _, participant := range detail.Participants {
		dto.Participants = append(dto.Participants, toUserDTO(participant))
	}
	return dto
}

// Create handles POST /cleanings.
func (h *ScheduleHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req scheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.log(r.Context(), "Create", "error_kind", "bad_request").ErrorContext(r.Context(), "failed to decode request", "error", err)
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	start, err := dates.Parse(req.DateStart)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateRange)
		return
	}
	end, err := dates.Parse(req.DateEnd)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidDateRange)
		return
	}

	logger := h.log(r.Context(), "Create", "template_id", req.TemplateID, "repeat", req.Repeat)

	specs, err := h.service.ScheduleInstances(r.Context(), application.ScheduleInput{
		TemplateID: req.TemplateID,
		DateStart:  start,
		DateEnd:    end,
		Repeat:     req.Repeat,
	})
	if err != nil {
		logger.ErrorContext(r.Context(), "scheduling failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	instances := make([]instanceDTO, 0, len(specs))
	for _, spec := range specs {
		instances = append(instances, instanceDTO{
			ID:           spec.ID,
			TemplateID:   spec.TemplateID,
			DateStart:    string(spec.DateStart),
			DateEnd:      string(spec.DateEnd),
			ThreadRef:    spec.ThreadRef,
			Participants: []userDTO{},
		})
	}

	logger.With("instance_count", len(instances)).InfoContext(r.Context(), "cleanings scheduled")
	h.responder.writeJSON(r.Context(), w, http.StatusCreated, scheduleResponse{Instances: instances})
}

// Get handles GET /cleanings/{id}.
func (h *ScheduleHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	instanceID, ok := InstanceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(instanceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstanceID)
		return
	}

	detail, err := h.service.InstanceByID(r.Context(), instanceID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toInstanceDTO(*detail))
}

// List handles GET /cleanings?from=&to=.
func (h *ScheduleHandler) List(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	span, err := spanFromQuery(r)
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	details, err := h.service.ListInstances(r.Context(), span)
	if err != nil {
		h.log(r.Context(), "List").ErrorContext(r.Context(), "listing failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	instances := make([]instanceDTO, 0, len(details))
	for _, detail := range details {
		instances = append(instances, toInstanceDTO(detail))
	}
	h.responder.writeJSON(r.Context(), w, http.StatusOK, instanceListResponse{Instances: instances})
}

// Delete handles DELETE /cleanings/{id}.
func (h *ScheduleHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	instanceID, ok := InstanceIDFromContext(r.Context())
	if !ok || strings.TrimSpace(instanceID) == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidInstanceID)
		return
	}

	logger := h.log(r.Context(), "Delete", "instance_id", instanceID)

	if err := h.service.RemoveInstance(r.Context(), instanceID); err != nil {
		logger.ErrorContext(r.Context(), "removal failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	logger.InfoContext(r.Context(), "cleaning removed")
	h.responder.writeJSON(r.Context(), w, http.StatusNoContent, nil)
}

func spanFromQuery(r *http.Request) (dates.Span, error) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	if from == "" || to == "" {
		return dates.Span{}, errInvalidDateRange
	}
	start, err := dates.Parse(from)
	if err != nil {
		return dates.Span{}, errInvalidDateRange
	}
	end, err := dates.Parse(to)
	if err != nil {
		return dates.Span{}, errInvalidDateRange
	}
	span := dates.Span{Start: start, End: end}
	if !span.Valid() {
		return dates.Span{}, errInvalidDateRange
	}
	return span, nil
}
