package application

import (
	"errors"

	"github.com/example/cleaning-roster/internal/persistence"
)

var (
	// ErrUnauthorized is returned when the acting principal lacks permission
	// for an operation.
	ErrUnauthorized = errors.New("application: unauthorized")
	// ErrUserNotFound is returned when the acting user is unknown.
	ErrUserNotFound = errors.New("application: user not found")
	// ErrInstanceNotFound is returned when the target cleaning does not exist.
	ErrInstanceNotFound = errors.New("application: cleaning not found")
	// ErrTemplateNotFound is returned when the target template does not exist.
	ErrTemplateNotFound = errors.New("application: template not found")
	// ErrOverlap is returned when a new cleaning's dates collide with an
	// existing cleaning of the same template.
	ErrOverlap = errors.New("application: cleaning dates overlap an existing cleaning")
	// ErrCapacityExceeded is returned when the cleaning is full.
	ErrCapacityExceeded = errors.New("application: cleaning is full")
	// ErrAlreadyJoined is returned when the user already joined the cleaning.
	ErrAlreadyJoined = errors.New("application: already joined")
	// ErrAlreadyFinished is returned for changes to a finished cleaning.
	ErrAlreadyFinished = errors.New("application: cleaning already finished")
	// ErrInstancePast is returned when joining a cleaning that already ended.
	ErrInstancePast = errors.New("application: cleaning already ended")
	// ErrNotParticipant is returned when the user is not on the roster.
	ErrNotParticipant = errors.New("application: not a participant")
	// ErrLeaveLocked is returned when leaving is locked for started cleanings.
	ErrLeaveLocked = errors.New("application: leaving is currently locked")
	// ErrTemplateInUse is returned when deleting a template that cleanings
	// still reference.
	ErrTemplateInUse = errors.New("application: template still has cleanings")
)

// ValidationError captures field level validation issues that callers can
// surface to users.
type ValidationError struct {
	FieldErrors map[string]string
}

// Error implements the error interface.
func (v *ValidationError) Error() string {
	return "validation failed"
}

// HasErrors reports whether any field level issues were recorded.
func (v *ValidationError) HasErrors() bool {
	return v != nil && len(v.FieldErrors) > 0
}

// add records a field level validation error.
func (v *ValidationError) add(field, message string) {
	if v.FieldErrors == nil {
		v.FieldErrors = make(map[string]string)
	}
	v.FieldErrors[field] = message
}

// gatewayErrors pairs each storage guard sentinel with its domain
// counterpart.
var gatewayErrors = []struct {
	storage error
	domain  error
}{
	{persistence.ErrUserNotFound, ErrUserNotFound},
	{persistence.ErrInstanceNotFound, ErrInstanceNotFound},
	{persistence.ErrTemplateNotFound, ErrTemplateNotFound},
	{persistence.ErrOverlap, ErrOverlap},
	{persistence.ErrCapacityExceeded, ErrCapacityExceeded},
	{persistence.ErrAlreadyJoined, ErrAlreadyJoined},
	{persistence.ErrAlreadyFinished, ErrAlreadyFinished},
	{persistence.ErrInstancePast, ErrInstancePast},
	{persistence.ErrNotParticipant, ErrNotParticipant},
	{persistence.ErrLeaveLocked, ErrLeaveLocked},
	{persistence.ErrTemplateInUse, ErrTemplateInUse},
}

// mapGatewayError translates persistence sentinels into the domain taxonomy
// so handler code never matches on storage errors directly.
func mapGatewayError(err error) error {
	if err == nil {
		return nil
	}
	for _, pair := range gatewayErrors {
		if errors.Is(err, pair.storage) {
			return pair.domain
		}
	}
	if errors.Is(err, persistence.ErrConstraintViolation) {
		vErr := &ValidationError{}
		vErr.add("input", "rejected by a storage constraint")
		return vErr
	}
	return err
}
