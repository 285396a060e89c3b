package persistence

import "errors"

// Domain guard violations. Each one is an expected, recoverable rejection of
// a write: the operation performs no mutation when it returns one of these.
var (
	// ErrUserNotFound is returned when the acting user is unknown.
	ErrUserNotFound = errors.New("persistence: user not found")
	// ErrInstanceNotFound is returned when the target instance is unknown.
	ErrInstanceNotFound = errors.New("persistence: instance not found")
	// ErrTemplateNotFound is returned when the target template is unknown.
	ErrTemplateNotFound = errors.New("persistence: template not found")
	// ErrOverlap is returned when a new instance's date range intersects an
	// existing instance of the same template.
	ErrOverlap = errors.New("persistence: instance dates overlap an existing instance")
	// ErrCapacityExceeded is returned when an instance roster is full.
	ErrCapacityExceeded = errors.New("persistence: instance is at capacity")
	// ErrAlreadyJoined is returned when the actor is already on the roster.
	ErrAlreadyJoined = errors.New("persistence: user already joined")
	// ErrAlreadyFinished is returned for roster changes on a finished instance.
	ErrAlreadyFinished = errors.New("persistence: instance already finished")
	// ErrInstancePast is returned when joining an instance that ended before
	// today.
	ErrInstancePast = errors.New("persistence: instance ended in the past")
	// ErrNotParticipant is returned when the actor is not on the roster.
	ErrNotParticipant = errors.New("persistence: user is not a participant")
	// ErrLeaveLocked is returned when leaving a started instance while the
	// leave lock is engaged.
	ErrLeaveLocked = errors.New("persistence: leaving started instances is locked")
	// ErrTemplateInUse is returned when deleting a template that instances
	// still reference.
	ErrTemplateInUse = errors.New("persistence: template is referenced by instances")
)

// Storage-level failures mapped from the SQLite driver.
var (
	// ErrDuplicate is returned on unique constraint violations.
	ErrDuplicate = errors.New("persistence: duplicate record")
	// ErrConstraintViolation is returned on check constraint violations.
	ErrConstraintViolation = errors.New("persistence: constraint violation")
	// ErrForeignKeyViolation is returned when a referenced row is missing.
	ErrForeignKeyViolation = errors.New("persistence: foreign key violation")
)

// IsGuardError reports whether err is one of the expected domain guard
// rejections, as opposed to a storage or programming failure.
func IsGuardError(err error) bool {
	for _, sentinel := range []error{
		ErrUserNotFound, ErrInstanceNotFound, ErrTemplateNotFound,
		ErrOverlap, ErrCapacityExceeded, ErrAlreadyJoined,
		ErrAlreadyFinished, ErrInstancePast, ErrNotParticipant,
		ErrLeaveLocked, ErrTemplateInUse,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
