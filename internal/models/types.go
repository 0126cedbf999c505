package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// Timestamp is a message creation time in milliseconds since epoch.
// The canonical API sends it as a JSON number; some adapters send a digit
// string or an ISO-8601 string. Anything unparseable decodes to zero so the
// time-window filter can exclude it.
type Timestamp int64

// UnmarshalJSON accepts numbers, digit strings and RFC3339 strings
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	raw := string(data)
	if raw == "null" {
		*t = 0
		return nil
	}

	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*t = Timestamp(n)
		return nil
	}

	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		*t = 0
		return nil
	}

	if n, err := strconv.ParseInt(s, 10, 64); err == nil {
		*t = Timestamp(n)
		return nil
	}
	if ts, err := time.Parse(time.RFC3339, s); err == nil {
		*t = Timestamp(ts.UnixMilli())
		return nil
	}

	*t = 0
	return nil
}

// Time converts the timestamp to a UTC time.Time
func (t Timestamp) Time() time.Time {
	return time.UnixMilli(int64(t)).UTC()
}

// IsZero reports whether the timestamp failed to parse or was absent
func (t Timestamp) IsZero() bool {
	return t == 0
}

// Format renders the timestamp for display, e.g. "2025-08-16 01:08:58 UTC"
func (t Timestamp) Format() string {
	if t.IsZero() {
		return "Unknown"
	}
	return t.Time().Format("2006-01-02 15:04:05") + " UTC"
}

// SenderContext identifies the author of a message
type SenderContext struct {
	FID         int64  `json:"fid,omitempty"`
	Username    string `json:"username,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
}

// Message is one chat entry as returned by the upstream API.
// Read-only to this system; never persisted beyond a single analysis cycle.
type Message struct {
	ID              string        `json:"messageId"`
	Type            string        `json:"type"`
	Text            string        `json:"message"`
	SenderFID       int64         `json:"senderFid,omitempty"`
	Sender          SenderContext `json:"senderContext"`
	ServerTimestamp Timestamp     `json:"serverTimestamp"`
}

// UnmarshalJSON tolerates the adapter variants that carry the body under
// "text" instead of "message" and the timestamp under "timestamp"
func (m *Message) UnmarshalJSON(data []byte) error {
	type messageAlias Message
	aux := struct {
		*messageAlias
		AltText      string    `json:"text"`
		AltTimestamp Timestamp `json:"timestamp"`
	}{messageAlias: (*messageAlias)(m)}

	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}

	if m.Text == "" && aux.AltText != "" {
		m.Text = aux.AltText
	}
	if m.ServerTimestamp.IsZero() && !aux.AltTimestamp.IsZero() {
		m.ServerTimestamp = aux.AltTimestamp
	}
	return nil
}

// SenderName resolves a display name: username, then displayName, then
// "User<fid>", then "Unknown"
func (m *Message) SenderName() string {
	if m.Sender.Username != "" {
		return m.Sender.Username
	}
	if m.Sender.DisplayName != "" {
		return m.Sender.DisplayName
	}
	fid := m.Sender.FID
	if fid == 0 {
		fid = m.SenderFID
	}
	if fid != 0 {
		return fmt.Sprintf("User%d", fid)
	}
	return "Unknown"
}

// Page is one API response: a batch of messages plus the cursor to the next
// batch, if any. Consumed once and discarded.
type Page struct {
	Messages   []Message
	NextCursor string
}

// MatchResult records the classifier output for one matching message
type MatchResult struct {
	Message           Message  `json:"message"`
	OccurrenceCount   int      `json:"occurrenceCount"`
	MatchedSubstrings []string `json:"matchedSubstrings"`
}

// AnalysisSummary is the aggregate output of one analysis cycle.
// Immutable once returned.
type AnalysisSummary struct {
	TotalMessagesSeen int           `json:"totalMessagesSeen"`
	MessagesWithMatch int           `json:"messagesWithMatch"`
	TotalOccurrences  int           `json:"totalOccurrences"`
	Matches           []MatchResult `json:"matches"`
	FirstTimestamp    Timestamp     `json:"firstTimestamp,omitempty"`
	LastTimestamp     Timestamp     `json:"lastTimestamp,omitempty"`
	TimeSpan          string        `json:"timeSpan"`
}

// Snapshot captures the counts of one completed cycle for trend tracking
type Snapshot struct {
	TotalOccurrences  int       `json:"totalOccurrences"`
	MessagesWithMatch int       `json:"messagesWithMatch"`
	TotalMessagesSeen int       `json:"totalMessagesSeen"`
	TakenAt           time.Time `json:"takenAt"`
}

// FetchMode selects the pagination strategy
type FetchMode string

const (
	FetchModeSingle FetchMode = "single"
	FetchModeRecent FetchMode = "recent"
	FetchModeAll    FetchMode = "all"
)

// ParseFetchMode validates a fetch mode string, defaulting empty to recent
func ParseFetchMode(s string) (FetchMode, error) {
	switch FetchMode(s) {
	case FetchModeSingle, FetchModeRecent, FetchModeAll:
		return FetchMode(s), nil
	case "":
		return FetchModeRecent, nil
	default:
		return "", fmt.Errorf("unknown fetch mode: %s", s)
	}
}
