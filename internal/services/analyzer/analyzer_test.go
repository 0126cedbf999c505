package analyzer

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/cache"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/timewindow"
)

func testLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func textMsg(id, text string, ts int64) models.Message {
	return models.Message{ID: id, Type: "text", Text: text, ServerTimestamp: models.Timestamp(ts)}
}

func TestAnalyze(t *testing.T) {
	base := time.Date(2025, 8, 16, 0, 0, 0, 0, time.UTC).UnixMilli()
	messages := []models.Message{
		textMsg("m1", "wen token?", base),
		textMsg("m2", "WENWEN moon", base+90*60*1000),
		textMsg("m3", "no matches here", base+60*1000),
		{ID: "m4", Type: "reaction", Text: "wen", ServerTimestamp: models.Timestamp(base)},
		textMsg("m5", "", base),
	}

	summary := Analyze(messages)

	if summary.TotalMessagesSeen != 5 {
		t.Errorf("TotalMessagesSeen = %d, want 5", summary.TotalMessagesSeen)
	}
	if summary.MessagesWithMatch != 2 {
		t.Errorf("MessagesWithMatch = %d, want 2", summary.MessagesWithMatch)
	}
	if summary.TotalOccurrences != 3 {
		t.Errorf("TotalOccurrences = %d, want 3", summary.TotalOccurrences)
	}

	// Newest first
	if summary.Matches[0].Message.ID != "m2" || summary.Matches[1].Message.ID != "m1" {
		t.Errorf("match order = [%s %s], want [m2 m1]",
			summary.Matches[0].Message.ID, summary.Matches[1].Message.ID)
	}
	if summary.Matches[0].OccurrenceCount != 2 {
		t.Errorf("m2 occurrence count = %d, want 2", summary.Matches[0].OccurrenceCount)
	}

	if int64(summary.FirstTimestamp) != base {
		t.Errorf("FirstTimestamp = %d, want %d", summary.FirstTimestamp, base)
	}
	if int64(summary.LastTimestamp) != base+90*60*1000 {
		t.Errorf("LastTimestamp = %d, want %d", summary.LastTimestamp, base+90*60*1000)
	}
	if summary.TimeSpan != "1h 30m" {
		t.Errorf("TimeSpan = %q, want %q", summary.TimeSpan, "1h 30m")
	}
}

func TestAnalyzeEmpty(t *testing.T) {
	summary := Analyze(nil)
	if summary.TotalMessagesSeen != 0 || summary.MessagesWithMatch != 0 || summary.TotalOccurrences != 0 {
		t.Errorf("counts = %d/%d/%d, want zeros",
			summary.TotalMessagesSeen, summary.MessagesWithMatch, summary.TotalOccurrences)
	}
	if summary.Matches == nil {
		t.Error("Matches is nil, want empty slice")
	}
	if summary.TimeSpan != "0m" {
		t.Errorf("TimeSpan = %q, want %q", summary.TimeSpan, "0m")
	}
	if !summary.FirstTimestamp.IsZero() || !summary.LastTimestamp.IsZero() {
		t.Error("timestamps should stay zero for empty input")
	}
}

func TestAnalyzeSingleMatch(t *testing.T) {
	summary := Analyze([]models.Message{textMsg("m1", "wen", 1700000000000)})
	if summary.TimeSpan != "0m" {
		t.Errorf("TimeSpan = %q, want %q for a single match", summary.TimeSpan, "0m")
	}
	if summary.FirstTimestamp != summary.LastTimestamp {
		t.Error("first and last timestamp should coincide for a single match")
	}
}

// mockFetcher returns canned pages and records the calls it receives
type mockFetcher struct {
	page        *models.Page
	messages    []models.Message
	err         error
	singleCalls int
	recentCalls int
	allCalls    int
	lastWindow  fetcher.Window
}

func (m *mockFetcher) FetchSinglePage(ctx context.Context, url, token string) (*models.Page, error) {
	m.singleCalls++
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func (m *mockFetcher) FetchRecent(ctx context.Context, baseURL, token string, maxPages int, window fetcher.Window) ([]models.Message, error) {
	m.recentCalls++
	m.lastWindow = window
	return m.messages, m.err
}

func (m *mockFetcher) FetchAll(ctx context.Context, baseURL, token string) ([]models.Message, error) {
	m.allCalls++
	return m.messages, m.err
}

func TestPipelineRunValidation(t *testing.T) {
	p := NewPipeline(&mockFetcher{}, cache.Disabled(), testLogger())

	if _, err := p.Run(context.Background(), Request{Token: "t"}); err == nil {
		t.Error("expected error for missing URL")
	}
	if _, err := p.Run(context.Background(), Request{URL: "http://example.com"}); err == nil {
		t.Error("expected error for missing token")
	}
}

func TestPipelineRunRecent(t *testing.T) {
	mf := &mockFetcher{messages: []models.Message{textMsg("m1", "wen wen", 1700000000000)}}
	p := NewPipeline(mf, cache.Disabled(), testLogger())

	summary, err := p.Run(context.Background(), Request{
		URL:         "http://example.com/api",
		Token:       "token",
		Mode:        models.FetchModeRecent,
		MaxPages:    3,
		TargetHours: 12,
		Filter:      timewindow.None(),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if mf.recentCalls != 1 {
		t.Errorf("FetchRecent called %d times, want 1", mf.recentCalls)
	}
	if mf.lastWindow.Hours != 12 {
		t.Errorf("window hours = %d, want 12", mf.lastWindow.Hours)
	}
	if summary.TotalOccurrences != 2 {
		t.Errorf("TotalOccurrences = %d, want 2", summary.TotalOccurrences)
	}
}

func TestPipelineRunSinglePropagatesError(t *testing.T) {
	upErr := &fetcher.UpstreamError{StatusCode: 401, Body: "Unauthorized"}
	p := NewPipeline(&mockFetcher{err: upErr}, cache.Disabled(), testLogger())

	_, err := p.Run(context.Background(), Request{
		URL:   "http://example.com/api",
		Token: "token",
		Mode:  models.FetchModeSingle,
	})
	if err == nil {
		t.Fatal("expected upstream error to propagate")
	}
	var got *fetcher.UpstreamError
	if !errors.As(err, &got) || got.StatusCode != 401 {
		t.Errorf("error = %v, want the original 401 UpstreamError", err)
	}
}

func TestPipelineRunAppliesFilter(t *testing.T) {
	now := time.Now().UTC()
	mf := &mockFetcher{messages: []models.Message{
		textMsg("fresh", "wen", now.Add(-time.Hour).UnixMilli()),
		textMsg("stale", "wen", now.Add(-48*time.Hour).UnixMilli()),
	}}
	p := NewPipeline(mf, cache.Disabled(), testLogger())

	summary, err := p.Run(context.Background(), Request{
		URL:    "http://example.com/api",
		Token:  "token",
		Mode:   models.FetchModeAll,
		Filter: timewindow.LastHours(24),
	})
	if err != nil {
		t.Fatalf("Run returned error: %v", err)
	}
	if summary.TotalMessagesSeen != 1 {
		t.Errorf("TotalMessagesSeen = %d, want 1 after filtering", summary.TotalMessagesSeen)
	}
}
