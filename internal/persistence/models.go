package persistence

import (
	"time"

	"github.com/example/cleaning-roster/internal/dates"
)

// User represents a community member known to the roster. ExternalID is the
// stable identity assigned by the upstream membership system; users are
// upserted on every membership sync and never deleted here.
type User struct {
	ID          string
	ExternalID  string
	DisplayName string
	HasRole     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Template is a reusable cleaning definition that instances are scheduled
// from.
type Template struct {
	ID              string
	MaxParticipants int
	Place           string
	Name            string
	Instructions    string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Instance is one dated occurrence of a template. Lifecycle flags move
// strictly forward: created, then started, then finished.
type Instance struct {
	ID           string
	TemplateID   string
	DateStart    dates.Date
	DateEnd      dates.Date
	Started      bool
	Finished     bool
	ThreadRef    string
	SentNextWeek bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Span returns the inclusive date range the instance covers.
func (i Instance) Span() dates.Span {
	return dates.Span{Start: i.DateStart, End: i.DateEnd}
}

// InstanceSpec carries the fields needed to create one instance.
type InstanceSpec struct {
	ID         string
	TemplateID string
	DateStart  dates.Date
	DateEnd    dates.Date
	ThreadRef  string
}

// InstanceDetail is the denormalized read view used by almost every caller:
// the instance joined with its template and current roster.
type InstanceDetail struct {
	Instance
	Template     Template
	Participants []User
}

// HasParticipant reports whether the roster contains the given external
// identity.
func (d InstanceDetail) HasParticipant(externalID string) bool {
	for _, p := range d.Participants {
		if p.ExternalID == externalID {
			return true
		}
	}
	return false
}

// Change reports the outcome of a mutation so notifiers can distinguish
// real state changes from no-ops.
type Change struct {
	Count int64
	NewID string
}

// Changed reports whether the mutation touched any row.
func (c Change) Changed() bool { return c.Count > 0 }

// UpsertResult reports the outcome of a user upsert.
type UpsertResult struct {
	Change
	Created bool
	User    User
}

// JoinResult reports the outcome of a successful join, including the data
// the caller needs for post-commit notifications.
type JoinResult struct {
	Change
	User           User
	ThreadRef      string
	AlreadyStarted bool
}

// LeaveResult reports the outcome of a successful leave.
type LeaveResult struct {
	Change
	User      User
	ThreadRef string
}

// FinishResult reports the outcome of a successful finish.
type FinishResult struct {
	Change
	ThreadRef string
}
