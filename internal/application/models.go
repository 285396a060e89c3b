// Package application holds the roster services: template management,
// scheduling, the join/leave/finish state machine, membership sync, and the
// text reports. Services validate input, delegate atomic writes to the
// persistence gateway, and deliver audit notifications after the write
// commits.
package application

import (
	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// TemplateInput carries the editable fields of a cleaning template.
type TemplateInput struct {
	Name            string
	Place           string
	Instructions    string
	MaxParticipants int
}

// ScheduleInput describes a run of cleanings to create from one template:
// the first occurrence's date range, repeated weekly Repeat times.
type ScheduleInput struct {
	TemplateID string
	DateStart  dates.Date
	DateEnd    dates.Date
	Repeat     int
}

// Member is one upstream membership record fed into SyncUsers.
type Member struct {
	ExternalID  string
	DisplayName string
	HasRole     bool
}

// SyncSummary reports what a membership sync changed.
type SyncSummary struct {
	Created int
	Updated int
	Total   int
}

// UserAssignments pairs a user with the cleanings they joined inside the
// reporting window.
type UserAssignments struct {
	User        persistence.User
	InstanceIDs []string
}
