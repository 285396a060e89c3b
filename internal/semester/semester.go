// Package semester resolves the date window that reports and listings cover.
//
// The window comes from institutional timetable pages that publish semester
// ranges as plain "YYYY-MM-DD - YYYY-MM-DD" text. Resolution is best effort:
// a page that cannot be fetched or parsed is skipped, and when no published
// window contains today the resolver degrades to the configured fallback so
// the rest of the system keeps working.
package semester

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"time"

	"github.com/example/cleaning-roster/internal/dates"
	"github.com/example/cleaning-roster/internal/logging"
)

var windowPattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s*-\s*(\d{4}-\d{2}-\d{2})`)

// maxBodyBytes bounds how much of a timetable page is read.
const maxBodyBytes = 1 << 20

// Resolver determines the current semester window.
type Resolver struct {
	client   *http.Client
	urls     []string
	fallback dates.Span
	location *time.Location
	now      func() time.Time
	logger   *slog.Logger
}

// NewResolver builds a Resolver probing urls in order. A nil client gets a
// bounded default; a nil now uses the wall clock.
func NewResolver(urls []string, fallback dates.Span, location *time.Location, client *http.Client, now func() time.Time, logger *slog.Logger) *Resolver {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	if location == nil {
		location = time.UTC
	}
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		client:   client,
		urls:     urls,
		fallback: fallback,
		location: location,
		now:      now,
		logger:   logger,
	}
}

// Current returns the semester window containing today. When today falls in
// none of the published windows the most recent window is returned with its
// end extended by a year, and with nothing published at all the configured
// fallback is used. Current never fails.
func (r *Resolver) Current(ctx context.Context) dates.Span {
	logger := logging.FromContextOr(ctx, r.logger)
	today := dates.FromTime(r.now(), r.location)

	var windows []dates.Span
	for _, url := range r.urls {
		window, err := r.fetchWindow(ctx, url)
		if err != nil {
			logger.Warn("semester window fetch failed", "url", url, "error", err)
			continue
		}
		windows = append(windows, window)
	}

	for _, window := range windows {
		if window.Contains(today) {
			return window
		}
	}

	if len(windows) > 0 {
		// Between semesters: stretch the last known window so scheduling
		// keeps a bounded horizon until the next timetable is published.
		last := windows[len(windows)-1]
		extended := last.End.Time(r.location).AddDate(1, 0, 0)
		last.End = dates.FromTime(extended, r.location)
		return last
	}

	logger.Warn("no semester window resolved, using fallback", "start", r.fallback.Start, "end", r.fallback.End)
	return r.fallback
}

func (r *Resolver) fetchWindow(ctx context.Context, url string) (dates.Span, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return dates.Span{}, fmt.Errorf("build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return dates.Span{}, fmt.Errorf("fetch: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return dates.Span{}, fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return dates.Span{}, fmt.Errorf("read body: %w", err)
	}

	match := windowPattern.FindSubmatch(body)
	if match == nil {
		return dates.Span{}, fmt.Errorf("no date window found")
	}

	start, err := dates.Parse(string(match[1]))
	if err != nil {
		return dates.Span{}, err
	}
	end, err := dates.Parse(string(match[2]))
	if err != nil {
		return dates.Span{}, err
	}

	window := dates.Span{Start: start, End: end}
	if !window.Valid() {
		return dates.Span{}, fmt.Errorf("inverted window %s - %s", start, end)
	}
	return window, nil
}
