package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/middleware"
	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/analyzer"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/snapshot"
)

// Prometheus collectors register globally, so every test shares one instance
var testMetrics = middleware.NewMetrics()

type mockPipeline struct {
	summary *models.AnalysisSummary
	err     error
	lastReq analyzer.Request
}

func (m *mockPipeline) Run(ctx context.Context, req analyzer.Request) (*models.AnalysisSummary, error) {
	m.lastReq = req
	if m.err != nil {
		return nil, m.err
	}
	return m.summary, nil
}

type mockPageFetcher struct {
	page *models.Page
	err  error
}

func (m *mockPageFetcher) FetchSinglePage(ctx context.Context, url, token string) (*models.Page, error) {
	if m.err != nil {
		return nil, m.err
	}
	return m.page, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Fetch: config.FetchConfig{Mode: "recent", MaxPages: 5, TargetHours: 24},
		I18n:  config.I18nConfig{DefaultLanguage: "en"},
	}
}

func newTestServer(t *testing.T, cfg *config.Config, pipeline Analyzer, pageFetcher PageFetcher) *Server {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	snapshots, err := snapshot.NewManager(&config.Config{
		Snapshots: config.SnapshotConfig{Backend: "memory", MaxHistory: 10},
	}, log)
	if err != nil {
		t.Fatalf("failed to build snapshot manager: %v", err)
	}

	limiter := middleware.NewRateLimiter(&config.Config{}, log)
	return NewServer(cfg, pipeline, pageFetcher, i18n.Default(), limiter, testMetrics, snapshots, log)
}

func TestHandleHealth(t *testing.T) {
	server := newTestServer(t, testConfig(), &mockPipeline{}, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body map[string]string
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf(`status field = %q, want "ok"`, body["status"])
	}
}

func TestHandleWenData(t *testing.T) {
	pipeline := &mockPipeline{summary: &models.AnalysisSummary{
		TotalMessagesSeen: 10,
		MessagesWithMatch: 2,
		TotalOccurrences:  3,
		Matches:           []models.MatchResult{},
		TimeSpan:          "45m",
	}}
	server := newTestServer(t, testConfig(), pipeline, &mockPageFetcher{})

	payload := `{"apiUrl":"http://example.com/api","apiToken":"secret","fetchMode":"recent","targetHours":12}`
	req := httptest.NewRequest(http.MethodPost, "/api/wen-data", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200, body: %s", rec.Code, rec.Body.String())
	}

	var summary models.AnalysisSummary
	if err := json.NewDecoder(rec.Body).Decode(&summary); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if summary.TotalOccurrences != 3 {
		t.Errorf("TotalOccurrences = %d, want 3", summary.TotalOccurrences)
	}

	if pipeline.lastReq.TargetHours != 12 {
		t.Errorf("pipeline TargetHours = %d, want 12", pipeline.lastReq.TargetHours)
	}
	if pipeline.lastReq.Mode != models.FetchModeRecent {
		t.Errorf("pipeline Mode = %q, want recent", pipeline.lastReq.Mode)
	}
	// MaxPages left unset falls back to the server config
	if pipeline.lastReq.MaxPages != 5 {
		t.Errorf("pipeline MaxPages = %d, want config default 5", pipeline.lastReq.MaxPages)
	}
}

func TestHandleWenDataMissingCredentials(t *testing.T) {
	server := newTestServer(t, testConfig(), &mockPipeline{}, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/wen-data", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400 when URL and token are absent", rec.Code)
	}
}

func TestHandleWenDataConfiguredUpstream(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.URL = "http://upstream.internal/api"
	cfg.Upstream.Token = "server-token"
	pipeline := &mockPipeline{summary: &models.AnalysisSummary{Matches: []models.MatchResult{}, TimeSpan: "0m"}}
	server := newTestServer(t, cfg, pipeline, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodPost, "/api/wen-data", strings.NewReader(`{}`))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 with server-side upstream, body: %s", rec.Code, rec.Body.String())
	}
	if pipeline.lastReq.URL != "http://upstream.internal/api" || pipeline.lastReq.Token != "server-token" {
		t.Errorf("pipeline request = %q/%q, want the configured upstream", pipeline.lastReq.URL, pipeline.lastReq.Token)
	}
}

func TestHandleWenDataUpstreamFailure(t *testing.T) {
	pipeline := &mockPipeline{err: &fetcher.UpstreamError{StatusCode: 401, Body: "Unauthorized"}}
	server := newTestServer(t, testConfig(), pipeline, &mockPageFetcher{})

	payload := `{"apiUrl":"http://example.com/api","apiToken":"bad","fetchMode":"single"}`
	req := httptest.NewRequest(http.MethodPost, "/api/wen-data", strings.NewReader(payload))
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("status = %d, want 502 for upstream failures", rec.Code)
	}
}

func TestHandleTestConnection(t *testing.T) {
	t.Run("success", func(t *testing.T) {
		pf := &mockPageFetcher{page: &models.Page{}}
		server := newTestServer(t, testConfig(), &mockPipeline{}, pf)

		payload := `{"apiUrl":"http://example.com/api","apiToken":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/test-connection", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		var body map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&body)
		if body["success"] != true {
			t.Errorf("success = %v, want true", body["success"])
		}
	})

	t.Run("upstream failure still returns 200", func(t *testing.T) {
		pf := &mockPageFetcher{err: &fetcher.UpstreamError{StatusCode: 403, Body: "Forbidden"}}
		server := newTestServer(t, testConfig(), &mockPipeline{}, pf)

		payload := `{"apiUrl":"http://example.com/api","apiToken":"secret"}`
		req := httptest.NewRequest(http.MethodPost, "/api/test-connection", strings.NewReader(payload))
		rec := httptest.NewRecorder()
		server.Router().ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 even on failure", rec.Code)
		}
		var body map[string]interface{}
		json.NewDecoder(rec.Body).Decode(&body)
		if body["success"] != false {
			t.Errorf("success = %v, want false", body["success"])
		}
		if body["error"] == "" {
			t.Error("error field should describe the failure")
		}
	})
}

func TestHandleMessagesRequiresUpstream(t *testing.T) {
	server := newTestServer(t, testConfig(), &mockPipeline{}, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("status = %d, want 503 without a configured upstream", rec.Code)
	}
}

func TestHandleMessagesProxiesPage(t *testing.T) {
	cfg := testConfig()
	cfg.Upstream.URL = "http://upstream.internal/api"
	cfg.Upstream.Token = "server-token"
	pf := &mockPageFetcher{page: &models.Page{
		Messages:   []models.Message{{ID: "m1", Type: "text", Text: "wen"}},
		NextCursor: "c1",
	}}
	server := newTestServer(t, cfg, &mockPipeline{}, pf)

	req := httptest.NewRequest(http.MethodGet, "/api/messages", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Result struct {
			Messages []models.Message `json:"messages"`
		} `json:"result"`
		Next struct {
			Cursor string `json:"cursor"`
		} `json:"next"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(body.Result.Messages) != 1 || body.Result.Messages[0].ID != "m1" {
		t.Errorf("messages = %+v, want the proxied page", body.Result.Messages)
	}
	if body.Next.Cursor != "c1" {
		t.Errorf("cursor = %q, want c1", body.Next.Cursor)
	}
}

func TestHandleHistoryEmpty(t *testing.T) {
	server := newTestServer(t, testConfig(), &mockPipeline{}, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodGet, "/api/history", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var body struct {
		Snapshots []models.Snapshot `json:"snapshots"`
	}
	if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
		t.Fatalf("invalid response body: %v", err)
	}
	if len(body.Snapshots) != 0 {
		t.Errorf("got %d snapshots, want 0", len(body.Snapshots))
	}
}

func TestCORSPreflight(t *testing.T) {
	server := newTestServer(t, testConfig(), &mockPipeline{}, &mockPageFetcher{})

	req := httptest.NewRequest(http.MethodOptions, "/api/wen-data", nil)
	rec := httptest.NewRecorder()
	server.Router().ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200 for preflight", rec.Code)
	}
	if got := rec.Header().Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q, want *", got)
	}
}
