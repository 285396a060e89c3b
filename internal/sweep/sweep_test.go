package sweep

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/persistence"
)

// sweepGateway is an in-memory Gateway that records starts and flags.
type sweepGateway struct {
	mu       sync.Mutex
	details  []persistence.InstanceDetail
	started  map[string]int
	flagged  map[string]int
	listErr  error
	startErr error
}

func newSweepGateway(details ...persistence.InstanceDetail) *sweepGateway {
	return &sweepGateway{
		details: details,
		started: make(map[string]int),
		flagged: make(map[string]int),
	}
}

func (g *sweepGateway) ListInstances(_ context.Context, span dates.Span) ([]persistence.InstanceDetail, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.listErr != nil {
		return nil, g.listErr
	}
	var matched []persistence.InstanceDetail
	for _, detail := range g.details {
		if detail.Span().Overlaps(span) {
			matched = append(matched, detail)
		}
	}
	return matched, nil
}

func (g *sweepGateway) StartInstance(_ context.Context, id string) (persistence.Change, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.startErr != nil {
		return persistence.Change{}, g.startErr
	}
	g.started[id]++
	return persistence.Change{Count: 1}, nil
}

func (g *sweepGateway) MarkNextWeekNotified(_ context.Context, id string) (persistence.Change, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.flagged[id]++
	for i := range g.details {
		if g.details[i].ID == id {
			g.details[i].SentNextWeek = true
		}
	}
	return persistence.Change{Count: 1}, nil
}

// threadRecorder captures channel messages keyed by thread.
type threadRecorder struct {
	mu       sync.Mutex
	messages map[string][]string
	err      error
}

func newThreadRecorder() *threadRecorder {
	return &threadRecorder{messages: make(map[string][]string)}
}

func (r *threadRecorder) PostChannelMessage(_ context.Context, channelRef, text string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return r.err
	}
	r.messages[channelRef] = append(r.messages[channelRef], text)
	return nil
}

func (r *threadRecorder) PostAuditLog(context.Context, string) error     { return nil }
func (r *threadRecorder) PostImportantLog(context.Context, string) error { return nil }

func (r *threadRecorder) count(threadRef string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.messages[threadRef])
}

// reference is a Wednesday; its week runs 2026-03-09 to 2026-03-15.
var reference = time.Date(2026, time.March, 11, 8, 0, 0, 0, time.UTC)

func instance(id string, start, end dates.Date, opts func(*persistence.InstanceDetail)) persistence.InstanceDetail {
	detail := persistence.InstanceDetail{
		Instance: persistence.Instance{
			ID:         id,
			TemplateID: "template-1",
			DateStart:  start,
			DateEnd:    end,
			ThreadRef:  "thread-" + id,
		},
		Participants: []persistence.User{{ExternalID: "ext-1", DisplayName: "Alice"}},
	}
	if opts != nil {
		opts(&detail)
	}
	return detail
}

func TestBucketsAtComputesMondayWindows(t *testing.T) {
	t.Parallel()

	buckets := BucketsAt(reference, time.UTC)

	if buckets.Current.Start != "2026-03-09" || buckets.Current.End != "2026-03-15" {
		t.Fatalf("unexpected current week: %+v", buckets.Current)
	}
	if buckets.Previous.Start != "2026-03-02" || buckets.Previous.End != "2026-03-08" {
		t.Fatalf("unexpected previous week: %+v", buckets.Previous)
	}
	if buckets.Next.Start != "2026-03-16" || buckets.Next.End != "2026-03-22" {
		t.Fatalf("unexpected next week: %+v", buckets.Next)
	}
}

func TestBucketsAtOnSundayStaysInSameWeek(t *testing.T) {
	t.Parallel()

	sunday := time.Date(2026, time.March, 15, 23, 0, 0, 0, time.UTC)
	buckets := BucketsAt(sunday, time.UTC)

	if buckets.Current.Start != "2026-03-09" {
		t.Fatalf("Sunday must belong to the Monday-start week, got %+v", buckets.Current)
	}
}

func TestRunNotifiesAndAdvancesAllBuckets(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway(
		instance("prev", "2026-03-02", "2026-03-08", nil),
		instance("curr", "2026-03-09", "2026-03-15", nil),
		instance("next", "2026-03-16", "2026-03-22", nil),
	)
	recorder := newThreadRecorder()
	sweeper := New(gateway, recorder, func() time.Time { return reference }, time.UTC, nil)

	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if gateway.flagged["next"] != 1 || recorder.count("thread-next") != 1 {
		t.Fatalf("next week not reminded: flags=%v messages=%d", gateway.flagged, recorder.count("thread-next"))
	}
	if gateway.started["curr"] != 1 || recorder.count("thread-curr") != 1 {
		t.Fatalf("current week not started: starts=%v", gateway.started)
	}
	// Previous week gets the catch-up start with its completion prompt,
	// then the unfinished warning.
	if gateway.started["prev"] != 1 || recorder.count("thread-prev") != 2 {
		t.Fatalf("previous week not chased: starts=%v messages=%d", gateway.started, recorder.count("thread-prev"))
	}
}

func TestRunWarnsStartedButUnfinishedPreviousWeek(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway(
		instance("prev", "2026-03-02", "2026-03-08", func(d *persistence.InstanceDetail) {
			d.Started = true
		}),
	)
	recorder := newThreadRecorder()
	sweeper := New(gateway, recorder, func() time.Time { return reference }, time.UTC, nil)

	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	if len(gateway.started) != 0 {
		t.Fatalf("an already started cleaning must not restart: %v", gateway.started)
	}
	// Only the warning, not a second completion prompt.
	if recorder.count("thread-prev") != 1 {
		t.Fatalf("expected exactly the unfinished warning, got %v", recorder.messages["thread-prev"])
	}
}

func TestRunSkipsFinishedAndFlaggedInstances(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway(
		instance("prev", "2026-03-02", "2026-03-08", func(d *persistence.InstanceDetail) {
			d.Finished = true
			d.Started = true
		}),
		instance("curr", "2026-03-09", "2026-03-15", func(d *persistence.InstanceDetail) {
			d.Started = true
		}),
		instance("next", "2026-03-16", "2026-03-22", func(d *persistence.InstanceDetail) {
			d.SentNextWeek = true
		}),
	)
	recorder := newThreadRecorder()
	sweeper := New(gateway, recorder, func() time.Time { return reference }, time.UTC, nil)

	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run failed: %v", err)
	}

	for _, thread := range []string{"thread-prev", "thread-curr", "thread-next"} {
		if recorder.count(thread) != 0 {
			t.Fatalf("expected silence on %s, got %v", thread, recorder.messages[thread])
		}
	}
	if len(gateway.started) != 0 || len(gateway.flagged) != 0 {
		t.Fatalf("expected no writes: starts=%v flags=%v", gateway.started, gateway.flagged)
	}
}

func TestRunTwiceSendsNextWeekReminderOnce(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway(
		instance("next", "2026-03-16", "2026-03-22", nil),
	)
	recorder := newThreadRecorder()
	sweeper := New(gateway, recorder, func() time.Time { return reference }, time.UTC, nil)

	for i := 0; i < 2; i++ {
		if err := sweeper.Run(context.Background()); err != nil {
			t.Fatalf("run %d failed: %v", i+1, err)
		}
	}

	if recorder.count("thread-next") != 1 || gateway.flagged["next"] != 1 {
		t.Fatalf("reminder repeated: messages=%d flags=%d", recorder.count("thread-next"), gateway.flagged["next"])
	}
}

func TestRunIsolatesPerInstanceFailures(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway(
		instance("curr", "2026-03-09", "2026-03-15", nil),
		instance("next", "2026-03-16", "2026-03-22", nil),
	)
	gateway.startErr = fmt.Errorf("start is broken")
	recorder := newThreadRecorder()
	sweeper := New(gateway, recorder, func() time.Time { return reference }, time.UTC, nil)

	if err := sweeper.Run(context.Background()); err != nil {
		t.Fatalf("run must not fail on per-instance errors, got %v", err)
	}

	// The broken start stops the current-week prompt but not the reminder.
	if recorder.count("thread-next") != 1 {
		t.Fatalf("next-week reminder lost to an unrelated failure")
	}
}

func TestRunFailsWhenWindowLoadFails(t *testing.T) {
	t.Parallel()

	gateway := newSweepGateway()
	gateway.listErr = fmt.Errorf("storage down")
	sweeper := New(gateway, newThreadRecorder(), func() time.Time { return reference }, time.UTC, nil)

	if err := sweeper.Run(context.Background()); err == nil {
		t.Fatalf("expected the run to fail when windows cannot load")
	}
}
