// Package sweep implements the weekly notification pass: reminding next
// week's crews, starting the current week's cleanings, and chasing last
// week's unfinished ones.
package sweep

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/example/cleaning-roster/internal/application"
	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// Gateway is the slice of the persistence gateway the sweep reads and
// advances.
type Gateway interface {
	ListInstances(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error)
	StartInstance(ctx context.Context, id string) (persistence.Change, error)
	MarkNextWeekNotified(ctx context.Context, id string) (persistence.Change, error)
}

// Buckets are the three Monday-start windows one sweep looks at.
type Buckets struct {
	Previous dates.Span
	Current  dates.Span
	Next     dates.Span
}

// BucketsAt computes the windows around the week containing ref, evaluated
// in loc.
func BucketsAt(ref time.Time, loc *time.Location) Buckets {
	current := dates.WeekOf(ref, loc)
	return Buckets{
		Previous: current.Shift(-7),
		Current:  current,
		Next:     current.Shift(7),
	}
}

// Sweeper runs the weekly pass.
type Sweeper struct {
	gateway  Gateway
	notifier application.Notifier
	now      func() time.Time
	location *time.Location
	logger   *slog.Logger
}

// New constructs a sweeper with the provided dependencies.
func New(gateway Gateway, notifier application.Notifier, now func() time.Time, location *time.Location, logger *slog.Logger) *Sweeper {
	if now == nil {
		now = time.Now
	}
	if location == nil {
		location = time.UTC
	}
	if notifier == nil {
		notifier = application.NopNotifier{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Sweeper{
		gateway:  gateway,
		notifier: notifier,
		now:      now,
		location: location,
		logger:   logger,
	}
}

// Run executes one sweep. Finished cleanings are skipped everywhere. The
// per-cleaning work runs concurrently and one cleaning's failure never
// stops the others; only a failure to load the windows fails the run.
func (s *Sweeper) Run(ctx context.Context) error {
	buckets := BucketsAt(s.now(), s.location)
	logger := s.logger.With("component", "sweep",
		"week_start", buckets.Current.Start,
	)

	previous, err := s.unfinished(ctx, buckets.Previous)
	if err != nil {
		return fmt.Errorf("sweep: load previous week: %w", err)
	}
	current, err := s.unfinished(ctx, buckets.Current)
	if err != nil {
		return fmt.Errorf("sweep: load current week: %w", err)
	}
	next, err := s.unfinished(ctx, buckets.Next)
	if err != nil {
		return fmt.Errorf("sweep: load next week: %w", err)
	}

	var wg sync.WaitGroup
	run := func(instanceID string, task func(ctx context.Context) error) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := task(ctx); err != nil {
				logger.ErrorContext(ctx, "sweep task failed", "instance_id", instanceID, "error", err)
			}
		}()
	}

	for _, detail := range next {
		detail := detail
		if detail.SentNextWeek {
			continue
		}
		run(detail.ID, func(ctx context.Context) error { return s.remindNextWeek(ctx, detail) })
	}
	for _, detail := range current {
		detail := detail
		if detail.Started {
			continue
		}
		run(detail.ID, func(ctx context.Context) error { return s.start(ctx, detail) })
	}
	for _, detail := range previous {
		detail := detail
		run(detail.ID, func(ctx context.Context) error { return s.chaseUnfinished(ctx, detail) })
	}

	wg.Wait()
	logger.InfoContext(ctx, "sweep completed",
		"previous", len(previous), "current", len(current), "next", len(next),
	)
	return nil
}

func (s *Sweeper) unfinished(ctx context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	details, err := s.gateway.ListInstances(ctx, span)
	if err != nil {
		return nil, err
	}
	kept := details[:0]
	for _, detail := range details {
		if !detail.Finished {
			kept = append(kept, detail)
		}
	}
	return kept, nil
}

// remindNextWeek posts the upcoming-cleaning reminder into the thread and
// then records the flag. A crash between the two repeats the reminder once
// on the next run, which beats flagging a reminder that never went out.
func (s *Sweeper) remindNextWeek(ctx context.Context, detail persistence.InstanceDetail) error {
	if detail.ThreadRef != "" {
		text := "You have a cleaning next week"
		if roster := rosterNames(detail); roster != "" {
			text += ": " + roster
		}
		if err := s.notifier.PostChannelMessage(ctx, detail.ThreadRef, text); err != nil {
			return fmt.Errorf("remind %s: %w", detail.ID, err)
		}
	}
	if _, err := s.gateway.MarkNextWeekNotified(ctx, detail.ID); err != nil {
		return fmt.Errorf("flag %s: %w", detail.ID, err)
	}
	return nil
}

// start moves the cleaning into its active week and posts the completion
// prompt participants confirm through.
func (s *Sweeper) start(ctx context.Context, detail persistence.InstanceDetail) error {
	if _, err := s.gateway.StartInstance(ctx, detail.ID); err != nil {
		return fmt.Errorf("start %s: %w", detail.ID, err)
	}
	if detail.ThreadRef == "" {
		return nil
	}
	if err := s.notifier.PostChannelMessage(ctx, detail.ThreadRef, "Has the cleaning been finished?"); err != nil {
		return fmt.Errorf("prompt %s: %w", detail.ID, err)
	}
	return nil
}

// chaseUnfinished catches up cleanings that slipped past their week without
// starting and warns the roster that the cleaning is still open. A catch-up
// start goes through the regular start path so the thread still receives the
// completion prompt before the warning.
func (s *Sweeper) chaseUnfinished(ctx context.Context, detail persistence.InstanceDetail) error {
	if !detail.Started {
		if err := s.start(ctx, detail); err != nil {
			return fmt.Errorf("catch-up %s: %w", detail.ID, err)
		}
	}
	if detail.ThreadRef == "" {
		return nil
	}
	text := "Reminder: the cleaning is not finished or confirmed"
	if roster := rosterNames(detail); roster != "" {
		text += "\n" + roster
	}
	if err := s.notifier.PostChannelMessage(ctx, detail.ThreadRef, text); err != nil {
		return fmt.Errorf("warn %s: %w", detail.ID, err)
	}
	return nil
}

func rosterNames(detail persistence.InstanceDetail) string {
	names := make([]string, 0, len(detail.Participants))
	for _, participant := range detail.Participants {
		names = append(names, participant.DisplayName)
	}
	return strings.Join(names, ", ")
}
