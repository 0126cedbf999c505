package models

import (
	"encoding/json"
	"testing"
)

func TestTimestampUnmarshal(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  Timestamp
	}{
		{"number", `1755306538000`, 1755306538000},
		{"digit string", `"1755306538000"`, 1755306538000},
		{"rfc3339", `"2025-08-16T01:08:58Z"`, Timestamp(1755306538000)},
		{"null", `null`, 0},
		{"garbage string", `"yesterday"`, 0},
		{"object", `{"ms":1}`, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var ts Timestamp
			if err := json.Unmarshal([]byte(tt.input), &ts); err != nil {
				t.Fatalf("Unmarshal(%s) returned error: %v", tt.input, err)
			}
			if ts != tt.want {
				t.Errorf("Unmarshal(%s) = %d, want %d", tt.input, ts, tt.want)
			}
		})
	}
}

func TestTimestampFormat(t *testing.T) {
	if got := Timestamp(1755306538000).Format(); got != "2025-08-16 01:08:58 UTC" {
		t.Errorf("Format() = %q", got)
	}
	if got := Timestamp(0).Format(); got != "Unknown" {
		t.Errorf("zero Format() = %q, want Unknown", got)
	}
}

func TestMessageUnmarshalAltFields(t *testing.T) {
	raw := `{"messageId":"m1","type":"text","text":"wen moon","timestamp":1755306538000}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if m.Text != "wen moon" {
		t.Errorf("Text = %q, want body from the alternate field", m.Text)
	}
	if m.ServerTimestamp != 1755306538000 {
		t.Errorf("ServerTimestamp = %d, want the alternate timestamp", m.ServerTimestamp)
	}
}

func TestMessageUnmarshalCanonicalWins(t *testing.T) {
	raw := `{"messageId":"m1","type":"text","message":"canonical","text":"alternate","serverTimestamp":1,"timestamp":2}`
	var m Message
	if err := json.Unmarshal([]byte(raw), &m); err != nil {
		t.Fatalf("Unmarshal returned error: %v", err)
	}
	if m.Text != "canonical" {
		t.Errorf("Text = %q, canonical field must win", m.Text)
	}
	if m.ServerTimestamp != 1 {
		t.Errorf("ServerTimestamp = %d, canonical field must win", m.ServerTimestamp)
	}
}

func TestSenderName(t *testing.T) {
	tests := []struct {
		name string
		msg  Message
		want string
	}{
		{"username", Message{Sender: SenderContext{Username: "alice", DisplayName: "Alice"}}, "alice"},
		{"display name", Message{Sender: SenderContext{DisplayName: "Alice"}}, "Alice"},
		{"context fid", Message{Sender: SenderContext{FID: 42}}, "User42"},
		{"top-level fid", Message{SenderFID: 99}, "User99"},
		{"nothing", Message{}, "Unknown"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.msg.SenderName(); got != tt.want {
				t.Errorf("SenderName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseFetchMode(t *testing.T) {
	for input, want := range map[string]FetchMode{
		"single": FetchModeSingle,
		"recent": FetchModeRecent,
		"all":    FetchModeAll,
		"":       FetchModeRecent,
	} {
		got, err := ParseFetchMode(input)
		if err != nil {
			t.Errorf("ParseFetchMode(%q) returned error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("ParseFetchMode(%q) = %q, want %q", input, got, want)
		}
	}
	if _, err := ParseFetchMode("bulk"); err == nil {
		t.Error("ParseFetchMode(\"bulk\") succeeded, want error")
	}
}
