// Package persistence defines the storage gateway the roster services run
// on: models, repository interfaces, and the sentinel errors write guards
// reject with. All mutations are atomic — every guard check runs inside the
// same transaction as the write it protects.
package persistence

import (
	"context"

	"github.com/example/cleaning-roster/internal/dates"
)

// UserRepository stores community members synced from the membership system.
type UserRepository interface {
	// UpsertUser inserts user or updates the row with the same ExternalID.
	// The update only fires — and the result only reports a change — when
	// DisplayName or HasRole actually differ from the stored values.
	UpsertUser(ctx context.Context, user User) (UpsertResult, error)
	// UserByExternalID returns nil without error when no such user exists.
	UserByExternalID(ctx context.Context, externalID string) (*User, error)
	ListUsers(ctx context.Context) ([]User, error)
}

// TemplateRepository stores reusable cleaning definitions.
type TemplateRepository interface {
	CreateTemplate(ctx context.Context, template Template) (Change, error)
	// UpdateTemplate replaces fields directly. Existing instances are not
	// re-validated against a reduced MaxParticipants.
	UpdateTemplate(ctx context.Context, template Template) (Change, error)
	// DeleteTemplate fails with ErrTemplateInUse while instances reference
	// the template.
	DeleteTemplate(ctx context.Context, id string) (Change, error)
	// TemplateByID returns nil without error when no such template exists.
	TemplateByID(ctx context.Context, id string) (*Template, error)
	ListTemplates(ctx context.Context) ([]Template, error)
}

// InstanceRepository stores scheduled occurrences and their rosters.
type InstanceRepository interface {
	// CreateInstance checks the overlap invariant against every instance of
	// the spec's template before inserting; ErrOverlap performs no write.
	CreateInstance(ctx context.Context, spec InstanceSpec) (Change, error)
	// CreateInstances applies specs in order inside one transaction: each
	// spec's overlap check sees the prior specs, and any failure rolls the
	// whole batch back.
	CreateInstances(ctx context.Context, specs []InstanceSpec) ([]Change, error)
	// StartInstance sets started unconditionally and is idempotent.
	StartInstance(ctx context.Context, id string) (Change, error)
	// FinishInstance requires the actor to be a known user and a current
	// participant of the instance.
	FinishInstance(ctx context.Context, actorExternalID, instanceID string) (FinishResult, error)
	// Join adds the actor to the roster after the guard sequence passes:
	// unknown user, unknown instance, finished, already joined, capacity,
	// past end date. The insert itself is idempotent.
	Join(ctx context.Context, actorExternalID, instanceID string, today dates.Date) (JoinResult, error)
	// Leave removes the actor from the roster after its guard sequence:
	// unknown user, unknown instance, not a participant, finished, and the
	// leave lock for started instances.
	Leave(ctx context.Context, actorExternalID, instanceID string) (LeaveResult, error)
	// RemoveInstance deletes the instance and its participant links.
	RemoveInstance(ctx context.Context, id string) (Change, error)
	// MarkNextWeekNotified records that the upcoming-week reminder was sent.
	MarkNextWeekNotified(ctx context.Context, id string) (Change, error)
	// InstanceByID returns nil without error when no such instance exists.
	InstanceByID(ctx context.Context, id string) (*InstanceDetail, error)
	// ListInstances returns instances whose date range intersects span.
	ListInstances(ctx context.Context, span dates.Span) ([]InstanceDetail, error)
	ListInstancesForTemplate(ctx context.Context, templateID string) ([]InstanceDetail, error)
}

// LeaveLock is the process-wide flag gating withdrawal from started
// instances. It is owned by the gateway and resets to unlocked on restart.
type LeaveLock interface {
	SetLeaveLock(locked bool) bool
	LeaveLocked() bool
}

// Gateway bundles every storage capability the services depend on.
type Gateway interface {
	UserRepository
	TemplateRepository
	InstanceRepository
	LeaveLock
}
