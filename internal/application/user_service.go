package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/example/cleaning-roster/internal/persistence"
)

// UserService keeps the local user table in step with the upstream
// membership system.
type UserService struct {
	users       persistence.UserRepository
	notifier    Notifier
	idGenerator func() string
	logger      *slog.Logger
}

// NewUserService constructs a user service with the provided dependencies.
func NewUserService(users persistence.UserRepository, notifier Notifier, idGenerator func() string, logger *slog.Logger) *UserService {
	if idGenerator == nil {
		idGenerator = func() string { return "" }
	}
	if notifier == nil {
		notifier = NopNotifier{}
	}
	return &UserService{
		users:       users,
		notifier:    notifier,
		idGenerator: idGenerator,
		logger:      defaultLogger(logger),
	}
}

func (s *UserService) loggerWith(ctx context.Context, operation string, attrs ...any) *slog.Logger {
	return serviceLogger(ctx, s.logger, "UserService", operation, attrs...)
}

// SyncUsers upserts every member. The sync is idempotent: unchanged members
// produce no writes and no audit noise, fresh inserts are audited, and plain
// renames are only logged.
func (s *UserService) SyncUsers(ctx context.Context, members []Member) (summary SyncSummary, err error) {
	logger := s.loggerWith(ctx, "SyncUsers", "member_count", len(members))
	defer func() {
		if err != nil {
			logger.ErrorContext(ctx, "failed to sync users", "error", err, "error_kind", ErrorKind(err))
			return
		}
		logger.With("created", summary.Created, "updated", summary.Updated).InfoContext(ctx, "users synced")
	}()

	for _, member := range members {
		externalID := strings.TrimSpace(member.ExternalID)
		if externalID == "" {
			vErr := &ValidationError{}
			vErr.add("external_id", "external id is required")
			err = vErr
			return
		}

		result, upsertErr := s.users.UpsertUser(ctx, persistence.User{
			ID:          s.idGenerator(),
			ExternalID:  externalID,
			DisplayName: strings.TrimSpace(member.DisplayName),
			HasRole:     member.HasRole,
		})
		if upsertErr != nil {
			err = mapGatewayError(upsertErr)
			return
		}

		summary.Total++
		switch {
		case result.Created:
			summary.Created++
			notify(ctx, logger, "audit", func(ctx context.Context) error {
				return s.notifier.PostAuditLog(ctx, fmt.Sprintf("User %s (%s) registered.", result.User.DisplayName, externalID))
			})
		case result.Changed():
			summary.Updated++
			logger.InfoContext(ctx, "user updated", "external_id", externalID)
		}
	}
	return
}

// UserByExternalID fetches one user.
func (s *UserService) UserByExternalID(ctx context.Context, externalID string) (*persistence.User, error) {
	user, err := s.users.UserByExternalID(ctx, externalID)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

// ListUsers returns every known user.
func (s *UserService) ListUsers(ctx context.Context) ([]persistence.User, error) {
	users, err := s.users.ListUsers(ctx)
	if err != nil {
		return nil, mapGatewayError(err)
	}
	return users, nil
}
