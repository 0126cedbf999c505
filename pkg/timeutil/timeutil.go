// Package timeutil holds small duration helpers shared by the CLI adapters.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ParseInterval parses an update interval like "30s", "5m" or "2h".
// A bare integer is read as minutes.
func ParseInterval(s string) (time.Duration, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return 0, fmt.Errorf("empty interval")
	}

	unit := time.Minute
	switch s[len(s)-1] {
	case 's':
		unit = time.Second
		s = s[:len(s)-1]
	case 'm':
		unit = time.Minute
		s = s[:len(s)-1]
	case 'h':
		unit = time.Hour
		s = s[:len(s)-1]
	}

	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid interval %q (use formats like 30s, 5m, 2h)", s)
	}
	return time.Duration(n) * unit, nil
}

// FormatInterval renders a duration the way it was given: "30s", "5m",
// "1h30m", "2h".
func FormatInterval(d time.Duration) string {
	seconds := int(d.Seconds())
	switch {
	case seconds < 60:
		return fmt.Sprintf("%ds", seconds)
	case seconds < 3600:
		return fmt.Sprintf("%dm", seconds/60)
	default:
		hours := seconds / 3600
		minutes := (seconds % 3600) / 60
		if minutes > 0 {
			return fmt.Sprintf("%dh%dm", hours, minutes)
		}
		return fmt.Sprintf("%dh", hours)
	}
}

// FormatSpan renders a message time span: minutes only under an hour,
// otherwise elapsed hours plus remainder minutes. Spans of a day or more
// stay in hours to keep the display convention uniform.
func FormatSpan(d time.Duration) string {
	if d < 0 {
		d = 0
	}
	minutes := int(d.Minutes())
	if minutes < 60 {
		return fmt.Sprintf("%dm", minutes)
	}
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}
