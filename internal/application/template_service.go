package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/cleaning-roster/internal/persistence"
)

// TemplateService orchestrates validation, persistence, and auditing for
// cleaning templates.
type TemplateService struct {
	templates   persistence.TemplateRepository
	instances   persistence.InstanceRepository
	messenger   Messenger
	notifier    Notifier
	idGenerator func() string
	logger      *slog.Logger
}

// NewTemplateService constructs a template service with the provided
// dependencies.
func NewTemplateService(templates persistence.TemplateRepository, instances persistence.InstanceRepository, messenger Messenger, notifier Notifier, idGenerator func() string, logger *slog.Logger) *TemplateService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if messenger == nil {
		messenger = NopMessenger{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &TemplateService{
		templates:   templates,
		instances:   instances,
		messenger:   messenger,
		notifier:    notifier,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (s *TemplateService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "TemplateService", operation, attrs...)
}

// CreateTemplate validates input and persists a new template.
func (s *TemplateService) CreateTemplate(ctx context.Context, input TemplateInput) (template persistence.Template, err error) {
	logger := s.loggerWith(ctx, "CreateTemplate", "template_name", input.Name)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to create template", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("template_id", template.ID).InfoContext(ctx, "template created")
	}()

	vErr := validateTemplateInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	template = persistence.Template{
		ID:              s.idGenerator(),
		Name:            strings.TrimSpace(input.Name),
		Place:           strings.TrimSpace(input.Place),
		Instructions:    strings.TrimSpace(input.Instructions),
		MaxParticipants: input.MaxParticipants,
	}

	change, err := s.templates.CreateTemplate(ctx, template)
	if err != nil {
		err = mapGatewayError(err)
		template = persistence.Template{}
		return
	}

	if change.Changed() {
		notify(ctx, logger, "audit", func(ctx context.Context) error {
			return s.notifier.PostAuditLog(ctx, fmt.Sprintf("Template %s (%s) created.", template.ID, template.Name))
		})
	}
	return
}

// UpdateTemplate validates input and replaces the template's fields. When
// the instructions change, the instruction message in every thread of the
// template's cleanings is rewritten best-effort.
func (s *TemplateService) UpdateTemplate(ctx context.Context, id string, input TemplateInput) (template persistence.Template, err error) {
	logger := s.loggerWith(ctx, "UpdateTemplate", "template_id", id)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to update template", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "template updated")
	}()

	vErr := validateTemplateInput(input)
	if vErr.HasErrors() {
		err = vErr
		return
	}

	existing, err := s.templates.TemplateByID(ctx, id)
	if err != nil {
		err = mapGatewayError(err)
		return
	}
	if existing == nil {
		err = ErrTemplateNotFound
		return
	}

	template = persistence.Template{
		ID:              id,
		Name:            strings.TrimSpace(input.Name),
		Place:           strings.TrimSpace(input.Place),
		Instructions:    strings.TrimSpace(input.Instructions),
		MaxParticipants: input.MaxParticipants,
	}

	change, err := s.templates.UpdateTemplate(ctx, template)
	if err != nil {
		err = mapGatewayError(err)
		template = persistence.Template{}
		return
	}

	if change.Changed() {
		notify(ctx, logger, "audit", func(ctx context.Context) error {
			return s.notifier.PostAuditLog(ctx, fmt.Sprintf("Template %s (%s) updated.", template.ID, template.Name))
		})
	}

	if existing.Instructions != template.Instructions {
		s.propagateInstructions(ctx, logger, id, template.Instructions)
	}
	return
}

// propagateInstructions rewrites the instruction message in every live
// thread of the template's cleanings.
func (s *TemplateService) propagateInstructions(ctx context.Context, logger *slog.Logger, templateID, instructions string) {
	details, err := s.instances.ListInstancesForTemplate(ctx, templateID)
	if err != nil {
		logger.WarnContext(ctx, "failed to list cleanings for instruction update", "error", err)
		return
	}
	for _, detail := range details {
		if detail.ThreadRef == "" {
			continue
		}
		notify(ctx, logger.With("instance_id", detail.ID), "instructions", func(ctx context.Context) error {
			return s.messenger.UpdateInstructions(ctx, detail.ThreadRef, instructions)
		})
	}
}

// DeleteTemplate removes an unused template.
func (s *TemplateService) DeleteTemplate(ctx context.Context, id string) error {
	logger := s.loggerWith(ctx, "DeleteTemplate", "template_id", id)

	change, err := s.templates.DeleteTemplate(ctx, id)
	if err != nil {
		err = mapGatewayError(err)
		logger.ErrorContext(ctx, "failed to delete template", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "template deleted")
	if change.Changed() {
		notify(ctx, logger, "audit", func(ctx context.Context) error {
			return s.notifier.PostAuditLog(ctx, fmt.Sprintf("Template %s deleted.", id))
		})
	}
	return nil
}

// TemplateByID fetches one template.
func (s *TemplateService) TemplateByID(ctx context.Context, id string) (*persistence.Template, error) {
	template, err := s.templates.TemplateByID(ctx, id)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	if template == nil {
		return nil, ErrTemplateNotFound
	}
	return template, nil
}

// ListTemplates returns every template.
func (s *TemplateService) ListTemplates(ctx context.Context) ([]persistence.Template, error) {
	templates, err := s.templates.ListTemplates(ctx)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return templates, nil
}

func validateTemplateInput(input TemplateInput) *ValidationError {
	vErr := &ValidationError{}

	if strings.TrimSpace(input.Name) == "" {
		vErr.add("name", "name is required")
	}
	if strings.TrimSpace(input.Place) == "" {
		vErr.add("place", "place is required")
	}
	if input.MaxParticipants < 1 {
		vErr.add("max_participants", "max participants must be at least 1")
	}

	return vErr
}
