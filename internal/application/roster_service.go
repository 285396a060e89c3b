package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// RosterGateway is the slice of the persistence gateway the roster state
// machine drives: participation writes plus the leave lock.
type RosterGateway interface {
	persistence.InstanceRepository
	persistence.LeaveLock
}

// RosterService runs the join/leave/finish state machine. The gateway
// enforces every guard atomically; this service supplies today's date,
// translates rejections, and delivers the post-commit notifications.
type RosterService struct {
	gateway   RosterGateway
	messenger Messenger
	notifier  Notifier
	now       func() time.Time
	location  *time.Location
	logger    *slog.Logger
}

// NewRosterService constructs a roster service with the provided
// dependencies. The location anchors "today" for the past-date join guard.
func NewRosterService(gateway RosterGateway, messenger Messenger, notifier Notifier, now func() time.Time, location *time.Location, logger *slog.Logger) *RosterService {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	if messenger == nil {
		messenger = NopMessenger{}
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &RosterService{
		gateway:   gateway,
		messenger: messenger,
		notifier:  notifier,
		now:       now,
		location:  location,
		logger:    defaultLogger(logger),
	}
}

func (s *RosterService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "RosterService", operation, attrs...)
}

func (s *RosterService) today() dates.Date {
	return dates.FromTime(s.now(), s.location)
}

// Join adds the user to the cleaning's roster. On success the thread gets a
// join message and the audit log a line; joining a cleaning that already
// started additionally raises the high-visibility advisory.
func (s *RosterService) Join(ctx context.Context, externalID, instanceID string) (err error) {
	logger := s.loggerWith(ctx, "Join",
		"external_id", externalID,
		"instance_id", instanceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to join cleaning", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user joined cleaning")
	}()

	result, err := s.gateway.Join(ctx, externalID, instanceID, s.today())
	if err != nil {
		err = mapGatewayError(err)
		return
	}
	if !result.Changed() {
		return
	}

	if result.ThreadRef != "" {
		notify(ctx, logger, "thread", func(ctx context.Context) error {
			return s.notifier.PostChannelMessage(ctx, result.ThreadRef, fmt.Sprintf("%s joined.", result.User.DisplayName))
		})
	}
	notify(ctx, logger, "audit", func(ctx context.Context) error {
		return s.notifier.PostAuditLog(ctx, fmt.Sprintf("%s joined cleaning %s.", result.User.DisplayName, instanceID))
	})
	if result.AlreadyStarted {
		notify(ctx, logger, "important", func(ctx context.Context) error {
			return s.notifier.PostImportantLog(ctx, fmt.Sprintf(
				"%s joined cleaning %s after it already started.", result.User.DisplayName, instanceID,
			))
		})
	}
	return
}

// Leave removes the user from the cleaning's roster. On success the thread
// gets a leave message, the user loses thread access, and the
// high-visibility log records the withdrawal.
func (s *RosterService) Leave(ctx context.Context, externalID, instanceID string) (err error) {
	logger := s.loggerWith(ctx, "Leave",
		"external_id", externalID,
		"instance_id", instanceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to leave cleaning", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "user left cleaning")
	}()

	result, err := s.gateway.Leave(ctx, externalID, instanceID)
	if err != nil {
		err = mapGatewayError(err)
		return
	}
	if !result.Changed() {
		return
	}

	if result.ThreadRef != "" {
		notify(ctx, logger, "thread", func(ctx context.Context) error {
			return s.notifier.PostChannelMessage(ctx, result.ThreadRef, fmt.Sprintf("%s left.", result.User.DisplayName))
		})
		notify(ctx, logger, "thread_access", func(ctx context.Context) error {
			return s.messenger.RevokeThreadAccess(ctx, result.ThreadRef, externalID)
		})
	}
	notify(ctx, logger, "important", func(ctx context.Context) error {
		return s.notifier.PostImportantLog(ctx, fmt.Sprintf("%s left cleaning %s.", result.User.DisplayName, instanceID))
	})
	return
}

// Finish marks the cleaning done on behalf of a participant, archives its
// thread, and records the completion in the audit log.
func (s *RosterService) Finish(ctx context.Context, externalID, instanceID string) (err error) {
	logger := s.loggerWith(ctx, "Finish",
		"external_id", externalID,
		"instance_id", instanceID,
	)
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to finish cleaning", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.InfoContext(ctx, "cleaning finished")
	}()

	result, err := s.gateway.FinishInstance(ctx, externalID, instanceID)
	if err != nil {
		err = mapGatewayError(err)
		return
	}
	if !result.Changed() {
		return
	}

	if result.ThreadRef != "" {
		notify(ctx, logger, "thread_archive", func(ctx context.Context) error {
			return s.messenger.ArchiveThread(ctx, result.ThreadRef)
		})
	}
	notify(ctx, logger, "audit", func(ctx context.Context) error {
		return s.notifier.PostAuditLog(ctx, fmt.Sprintf("Cleaning %s finished by %s.", instanceID, externalID))
	})
	return
}

// SetLeaveLock toggles the process-wide block on leaving started cleanings
// and announces the new state in the high-visibility log.
func (s *RosterService) SetLeaveLock(ctx context.Context, locked bool) bool {
	logger := s.loggerWith(ctx, "SetLeaveLock", "locked", locked)

	state := s.gateway.SetLeaveLock(locked)
	logger.InfoContext(ctx, "leave lock changed")

	text := "Leaving started cleanings is now unlocked."
	if state {
		text = "Leaving started cleanings is now locked."
	}
	notify(ctx, logger, "important", func(ctx context.Context) error {
		return s.notifier.PostImportantLog(ctx, text)
	})
	return state
}

// LeaveLocked reports the current lock state.
func (s *RosterService) LeaveLocked() bool {
	return s.gateway.LeaveLocked()
}
