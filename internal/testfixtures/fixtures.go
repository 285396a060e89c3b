// Package testfixtures provides deterministic fixtures, clocks, and a
// temporary SQLite harness for roster tests.
package testfixtures

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

var (
	userCounter     uint64
	templateCounter uint64
	instanceCounter uint64
)

// ----------------------------- User fixtures -----------------------------

// UserOption configures a generated user fixture.
type UserOption func(*persistence.User)

// NewUserFixture returns a deterministic user with optional overrides.
func NewUserFixture(opts ...UserOption) persistence.User {
	idx := atomic.AddUint64(&userCounter, 1)
	user := persistence.User{
		ID:          fmt.Sprintf("user-%03d", idx),
		ExternalID:  fmt.Sprintf("ext-%03d", idx),
		DisplayName: fmt.Sprintf("Member %03d", idx),
	}
	for _, opt := range opts {
		opt(&user)
	}
	return user
}

// WithUserID overrides the generated user ID.
func WithUserID(id string) UserOption {
	return func(u *persistence.User) { u.ID = id }
}

// WithExternalID overrides the generated external identity.
func WithExternalID(externalID string) UserOption {
	return func(u *persistence.User) { u.ExternalID = externalID }
}

// WithDisplayName overrides the generated display name.
func WithDisplayName(name string) UserOption {
	return func(u *persistence.User) { u.DisplayName = name }
}

// WithRole sets the role flag on the generated fixture.
func WithRole(hasRole bool) UserOption {
	return func(u *persistence.User) { u.HasRole = hasRole }
}

// --------------------------- Template fixtures ---------------------------

// TemplateOption configures a generated template fixture.
type TemplateOption func(*persistence.Template)

// NewTemplateFixture returns a deterministic template with optional
// overrides. The default capacity is two participants.
func NewTemplateFixture(opts ...TemplateOption) persistence.Template {
	idx := atomic.AddUint64(&templateCounter, 1)
	template := persistence.Template{
		ID:              fmt.Sprintf("template-%03d", idx),
		MaxParticipants: 2,
		Place:           fmt.Sprintf("Room %03d", idx),
		Name:            fmt.Sprintf("Cleaning %03d", idx),
		Instructions:    "Sweep, mop, take out the trash.",
	}
	for _, opt := range opts {
		opt(&template)
	}
	return template
}

// WithTemplateID overrides the generated template ID.
func WithTemplateID(id string) TemplateOption {
	return func(t *persistence.Template) { t.ID = id }
}

// WithMaxParticipants overrides the template capacity.
func WithMaxParticipants(max int) TemplateOption {
	return func(t *persistence.Template) { t.MaxParticipants = max }
}

// WithTemplateName overrides the template name.
func WithTemplateName(name string) TemplateOption {
	return func(t *persistence.Template) { t.Name = name }
}

// WithPlace overrides the template place.
func WithPlace(place string) TemplateOption {
	return func(t *persistence.Template) { t.Place = place }
}

// --------------------------- Instance fixtures ---------------------------

// InstanceOption configures a generated instance spec.
type InstanceOption func(*persistence.InstanceSpec)

// NewInstanceSpec returns a deterministic instance spec for the template.
// Each call shifts the default week-long range forward by a week so specs
// for the same template never collide unless a test asks them to.
func NewInstanceSpec(templateID string, opts ...InstanceOption) persistence.InstanceSpec {
	idx := atomic.AddUint64(&instanceCounter, 1)
	start := dates.FromTime(ReferenceTime(), time.UTC).AddDays(int(idx) * 7)
	spec := persistence.InstanceSpec{
		ID:         fmt.Sprintf("instance-%03d", idx),
		TemplateID: templateID,
		DateStart:  start,
		DateEnd:    start.AddDays(6),
		ThreadRef:  fmt.Sprintf("thread-%03d", idx),
	}
	for _, opt := range opts {
		opt(&spec)
	}
	return spec
}

// WithInstanceID overrides the generated instance ID.
func WithInstanceID(id string) InstanceOption {
	return func(s *persistence.InstanceSpec) { s.ID = id }
}

// WithSpan overrides the generated date range.
func WithSpan(start, end dates.Date) InstanceOption {
	return func(s *persistence.InstanceSpec) {
		s.DateStart = start
		s.DateEnd = end
	}
}

// WithThreadRef overrides the generated thread reference.
func WithThreadRef(ref string) InstanceOption {
	return func(s *persistence.InstanceSpec) { s.ThreadRef = ref }
}
