// Package timewindow narrows a message sequence to a recency window or a
// calendar day.
package timewindow

import (
	"fmt"
	"time"

	"github.com/wen-tracker-go/internal/models"
)

// Kind selects the filtering behavior
type Kind string

const (
	KindNone  Kind = "none"
	KindHours Kind = "hours"
	KindToday Kind = "today"
	KindDate  Kind = "date"
)

// Spec describes one filter. The zero value passes everything through.
type Spec struct {
	Kind  Kind
	Hours int
	Date  time.Time // UTC calendar day for KindDate
}

// None returns a pass-through spec
func None() Spec {
	return Spec{Kind: KindNone}
}

// LastHours keeps messages from the last n hours
func LastHours(n int) Spec {
	return Spec{Kind: KindHours, Hours: n}
}

// Today keeps messages since 00:00 UTC of the current day
func Today() Spec {
	return Spec{Kind: KindToday}
}

// Day keeps messages within the full UTC calendar day of d
func Day(d time.Time) Spec {
	return Spec{Kind: KindDate, Date: d}
}

// ParseDay parses a YYYY-MM-DD date into a day spec
func ParseDay(s string) (Spec, error) {
	d, err := time.ParseInLocation("2006-01-02", s, time.UTC)
	if err != nil {
		return Spec{}, fmt.Errorf("invalid date %q (want YYYY-MM-DD): %w", s, err)
	}
	return Day(d), nil
}

// Apply filters messages against the spec using the current clock.
// Order is preserved; messages without a parseable timestamp are excluded
// from any filtered result.
func (s Spec) Apply(messages []models.Message) []models.Message {
	return s.applyAt(messages, time.Now().UTC())
}

func (s Spec) applyAt(messages []models.Message, now time.Time) []models.Message {
	if s.Kind == KindNone || s.Kind == "" {
		return messages
	}

	var lower, upper time.Time
	switch s.Kind {
	case KindHours:
		lower = now.Add(-time.Duration(s.Hours) * time.Hour)
	case KindToday:
		lower = now.Truncate(24 * time.Hour)
	case KindDate:
		lower = s.Date.UTC().Truncate(24 * time.Hour)
		upper = lower.Add(24*time.Hour - time.Millisecond)
	}

	filtered := make([]models.Message, 0, len(messages))
	for _, m := range messages {
		if m.ServerTimestamp.IsZero() {
			continue
		}
		ts := m.ServerTimestamp.Time()
		if ts.Before(lower) {
			continue
		}
		if !upper.IsZero() && ts.After(upper) {
			continue
		}
		filtered = append(filtered, m)
	}
	return filtered
}
