package application

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
	"github.com/example/cleaning-roster/internal/recurrence"
)

// ScheduleService turns templates into dated cleanings: it expands the
// weekly repetition, provisions one discussion thread per occurrence, and
// persists the whole run atomically.
type ScheduleService struct {
	templates   persistence.TemplateRepository
	instances   persistence.InstanceRepository
	messenger   Messenger
	notifier    Notifier
	idGenerator func() string
	logger      *slog.Logger
}

// NewScheduleService constructs a schedule service with the provided
// dependencies.
func NewScheduleService(templates persistence.TemplateRepository, instances persistence.InstanceRepository, messenger Messenger, notifier Notifier, idGenerator func() string, logger *slog.Logger) *ScheduleService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if messenger == nil {
		messenger = NopMessenger{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &ScheduleService{
		templates:   templates,
		instances:   instances,
		messenger:   messenger,
		notifier:    notifier,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (s *ScheduleService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "ScheduleService", operation, attrs...)
}

// ScheduleInstances creates Repeat weekly cleanings from the template,
// starting at the input's date range. Threads are provisioned before the
// write; if persisting fails every provisioned thread is deleted again, so
// a rejected run leaves neither rows nor threads behind.
func (s *ScheduleService) ScheduleInstances(ctx context.Context, input ScheduleInput) (created []persistence.InstanceSpec, err error) {
	logger := s.loggerWith(ctx, "ScheduleInstances",
		"template_id", input.TemplateID,
		"repeat", input.Repeat,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to schedule cleanings", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("instance_count", len(created)).InfoContext(ctx, "cleanings scheduled")
	}()

	template, err := s.templates.TemplateByID(ctx, input.TemplateID)
	if err != nil {
		err = mapGatewayError(err)
		return
	}
	if template == nil {
		err = ErrTemplateNotFound
		return
	}

	occurrences, err := recurrence.Expand(input.TemplateID, input.DateStart, input.DateEnd, input.Repeat)
	if err != nil {
		err = mapRecurrenceError(err)
		return
	}

	specs := make([]persistence.InstanceSpec, 0, len(occurrences))
	for _, occurrence := range occurrences {
		threadName := fmt.Sprintf("%s %s - %s", template.Name, occurrence.Span.Start, occurrence.Span.End)
		threadRef, threadErr := s.messenger.CreateThread(ctx, threadName, template.Instructions)
		if threadErr != nil {
			s.discardThreads(ctx, logger, specs)
			err = fmt.Errorf("provision thread for %s: %w", threadName, threadErr)
			return
		}
		specs = append(specs, persistence.InstanceSpec{
			ID:         s.idGenerator(),
			TemplateID: occurrence.TemplateID,
			DateStart:  occurrence.Span.Start,
			DateEnd:    occurrence.Span.End,
			ThreadRef:  threadRef,
		})
	}

	if _, err = s.instances.CreateInstances(ctx, specs); err != nil {
		s.discardThreads(ctx, logger, specs)
		err = mapGatewayError(err)
		return
	}

	created = specs
	notify(ctx, logger, "audit", func(ctx context.Context) error {
		return s.notifier.PostAuditLog(ctx, fmt.Sprintf(
			"Scheduled %d cleaning(s) of template %s starting %s.",
			len(specs), template.ID, input.DateStart,
		))
	})
	return
}

// discardThreads deletes threads provisioned for a run that did not persist.
func (s *ScheduleService) discardThreads(ctx context.Context, logger *slog.Logger, specs []persistence.InstanceSpec) {
	for _, spec := range specs {
		if spec.ThreadRef == "" {
			continue
		}
		notify(ctx, logger.With("thread_ref", spec.ThreadRef), "thread_cleanup", func(ctx context.Context) error {
			return s.messenger.DeleteThread(ctx, spec.ThreadRef)
		})
	}
}

// RemoveInstance deletes the cleaning and its thread.
func (s *ScheduleService) RemoveInstance(ctx context.Context, id string) error {
	logger := s.loggerWith(ctx, "RemoveInstance", "instance_id", id)

	detail, err := s.instances.InstanceByID(ctx, id)
	if err != nil {
		err = mapGatewayError(err)
		logger.ErrorContext(ctx, "failed to load cleaning", "error", err, "error_kind", ErrorKind(err))
		return err
	}
	if detail == nil {
		logger.ErrorContext(ctx, "failed to remove cleaning", "error", ErrInstanceNotFound, "error_kind", ErrorKind(ErrInstanceNotFound))
		return ErrInstanceNotFound
	}

	if _, err := s.instances.RemoveInstance(ctx, id); err != nil {
		err = mapGatewayError(err)
		logger.ErrorContext(ctx, "failed to remove cleaning", "error", err, "error_kind", ErrorKind(err))
		return err
	}

	logger.InfoContext(ctx, "cleaning removed")
	if detail.ThreadRef != "" {
		notify(ctx, logger, "thread_cleanup", func(ctx context.Context) error {
			return s.messenger.DeleteThread(ctx, detail.ThreadRef)
		})
	}
	notify(ctx, logger, "audit", func(ctx context.Context) error {
		return s.notifier.PostAuditLog(ctx, fmt.Sprintf("Cleaning %s removed.", id))
	})
	return nil
}

// ListInstances returns cleanings whose date range intersects span.
func (s *ScheduleService) ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	details, err := s.instances.ListInstances(ctx, span)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return details, nil
}

// InstanceByID fetches one cleaning with its template and roster.
func (s *ScheduleService) InstanceByID(ctx context.Context, id string) (*persistence.InstanceDetail, error) {
	detail, err := s.instances.InstanceByID(ctx, id)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	if detail == nil {
		return nil, ErrInstanceNotFound
	}
	return detail, nil
}

func mapRecurrenceError(err error) error {
	vErr := &ValidationError{}
	switch {
	case errors.Is(err, recurrence.ErrInvalidRange):
		vErr.add("dates", "end date must not precede start date")
	case errors.Is(err, recurrence.ErrInvalidRepeat):
		vErr.add("repeat", "repeat must be at least 1")
	default:
		return err
	}
	return vErr
}
