package http

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/dates"
)

type reportService interface {
	UserReport(ctx context.Context, span dates.Span) (string, error)
	TemplateReport(ctx context.Context) (string, error)
}

// ReportHandler serves the plain-text reports. When a request names no
// range, the default window (the resolved semester) is used.
type ReportHandler struct {
	service     reportService
	defaultSpan func(ctx context.Context) dates.Span
	responder   responder
	logger      *slog.Logger
}

// NewReportHandler constructs a report handler. defaultSpan supplies the
// reporting window when the query names none; nil means a range is
// required.
func NewReportHandler(service reportService, defaultSpan func(ctx context.Context) dates.Span, logger *slog.Logger) *ReportHandler {
	base := defaultLogger(logger)
	return &ReportHandler{service: service, defaultSpan: defaultSpan, responder: newResponder(base), logger: base}
}

func (h *ReportHandler) log(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return handlerLogger(ctx, h.logger, "ReportHandler", operation, attrs...)
}

type reportResponse struct {
	Report string `json:"report"`
}

// Users handles GET /reports/users.
func (h *ReportHandler) Users(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var span dates.Span
	if r.URL.Query().Get("from") == "" && r.URL.Query().Get("to") == "" && h.defaultSpan != nil {
		span = h.defaultSpan(r.Context())
	} else {
		parsed, err := spanFromQuery(r)
		if err != nil {
			h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
			return
		}
		span = parsed
	}

	report, err := h.service.UserReport(r.Context(), span)
	if err != nil {
		h.log(r.Context(), "Users").ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reportResponse{Report: report})
}

// Templates handles GET /reports/templates.
func (h *ReportHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	report, err := h.service.TemplateReport(r.Context())
	if err != nil {
		h.log(r.Context(), "Templates").ErrorContext(r.Context(), "report failed", "error", err, "error_kind", application.ErrorKind(err))
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reportResponse{Report: report})
}
