// Package recurrence expands a scheduling request into the dated occurrences
// it produces. The roster supports exactly one recurrence shape: a base date
// range repeated on a 7-day cadence, so occurrence i covers the base range
// shifted by 7*i days.
package recurrence

import (
	"errors"

	"github.com/example/cleaning-roster/internal/dates"
)

// ErrInvalidRange indicates the base date range is malformed or inverted.
var ErrInvalidRange = errors.New("recurrence: invalid date range")

// ErrInvalidRepeat indicates the repeat count is below one.
var ErrInvalidRepeat = errors.New("recurrence: repeat count must be at least 1")

// Occurrence is one generated instance span for a template.
type Occurrence struct {
	TemplateID string
	Span       dates.Span
}

// Expand generates repeat occurrences for templateID starting from the
// inclusive [start, end] base range, stepping each subsequent occurrence
// forward by exactly seven days.
//
// When the base range is at most seven days long the produced occurrences
// never overlap one another, which is what keeps a bulk-scheduled series
// compatible with the per-template overlap invariant.
func Expand(templateID string, start, end dates.Date, repeat int) ([]Occurrence, error) {
	span := dates.Span{Start: start, End: end}
	if !span.Valid() {
		return nil, ErrInvalidRange
	}
	if repeat < 1 {
		return nil, ErrInvalidRepeat
	}

	occurrences := make([]Occurrence, 0, repeat)
	for i := 0; i < repeat; i++ {
		occurrences = append(occurrences, Occurrence{
			TemplateID: templateID,
			Span:       span,
		})
		span = span.Shift(7)
	}

	return occurrences, nil
}
