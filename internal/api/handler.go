// Package api exposes the analysis pipeline over HTTP for the browser
// dashboard, and proxies the upstream endpoint so clients never see its URL.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/middleware"
	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/analyzer"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/snapshot"
	"github.com/wen-tracker-go/internal/services/timewindow"
	"github.com/wen-tracker-go/pkg/markdown"
	"github.com/wen-tracker-go/pkg/report"
)

// Analyzer runs the shared analysis pipeline
type Analyzer interface {
	Run(ctx context.Context, req analyzer.Request) (*models.AnalysisSummary, error)
}

// PageFetcher issues single authenticated upstream requests
type PageFetcher interface {
	FetchSinglePage(ctx context.Context, url, token string) (*models.Page, error)
}

// Server handles dashboard API requests
type Server struct {
	cfg       *config.Config
	pipeline  Analyzer
	fetcher   PageFetcher
	loc       *i18n.Localizer
	limiter   middleware.RateLimiter
	metrics   *middleware.Metrics
	snapshots *snapshot.Manager
	logger    *logrus.Logger
}

// NewServer creates an API server
func NewServer(
	cfg *config.Config,
	pipeline Analyzer,
	pageFetcher PageFetcher,
	loc *i18n.Localizer,
	limiter middleware.RateLimiter,
	metrics *middleware.Metrics,
	snapshots *snapshot.Manager,
	logger *logrus.Logger,
) *Server {
	return &Server{
		cfg:       cfg,
		pipeline:  pipeline,
		fetcher:   pageFetcher,
		loc:       loc,
		limiter:   limiter,
		metrics:   metrics,
		snapshots: snapshots,
		logger:    logger,
	}
}

// Router builds the route table
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	router.Use(s.corsMiddleware)
	router.Use(s.rateLimitMiddleware)
	router.Use(s.metricsMiddleware)

	router.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)
	router.HandleFunc("/api/wen-data", s.handleWenData).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/test-connection", s.handleTestConnection).Methods(http.MethodPost, http.MethodOptions)
	router.HandleFunc("/api/report", s.handleReport).Methods(http.MethodGet)
	router.HandleFunc("/api/messages", s.handleMessages).Methods(http.MethodGet)
	router.HandleFunc("/api/history", s.handleHistory).Methods(http.MethodGet)

	return router
}

type wenDataRequest struct {
	APIURL      string `json:"apiUrl"`
	APIToken    string `json:"apiToken"`
	FetchMode   string `json:"fetchMode"`
	MaxPages    int    `json:"maxPages"`
	TargetHours int    `json:"targetHours"`
	TodayOnly   bool   `json:"todayOnly"`
	Lang        string `json:"lang"`
}

// applyDefaults fills unset fields from the server configuration so the
// upstream URL and token can stay hidden server-side
func (r *wenDataRequest) applyDefaults(cfg *config.Config) {
	if r.APIURL == "" {
		r.APIURL = cfg.Upstream.URL
	}
	if r.APIToken == "" {
		r.APIToken = cfg.Upstream.Token
	}
	if r.FetchMode == "" {
		r.FetchMode = cfg.Fetch.Mode
	}
	if r.MaxPages <= 0 {
		r.MaxPages = cfg.Fetch.MaxPages
	}
	if r.TargetHours <= 0 {
		r.TargetHours = cfg.Fetch.TargetHours
	}
	if r.Lang == "" {
		r.Lang = cfg.I18n.DefaultLanguage
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) handleWenData(w http.ResponseWriter, r *http.Request) {
	var req wenDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.applyDefaults(s.cfg)

	if req.APIURL == "" || req.APIToken == "" {
		writeError(w, http.StatusBadRequest, "API URL and Token are required")
		return
	}

	mode, err := models.ParseFetchMode(req.FetchMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	filter := timewindow.LastHours(req.TargetHours)
	if req.TodayOnly {
		filter = timewindow.Today()
	}

	summary, err := s.pipeline.Run(r.Context(), analyzer.Request{
		URL:         req.APIURL,
		Token:       req.APIToken,
		Mode:        mode,
		MaxPages:    req.MaxPages,
		TargetHours: req.TargetHours,
		TodayOnly:   req.TodayOnly,
		Filter:      filter,
	})
	if err != nil {
		s.logger.WithError(err).Error("Pipeline run failed")
		s.metrics.RecordUpstreamError(string(mode))
		s.metrics.RecordAnalysis(string(mode), "error", 0, 0)
		writeError(w, upstreamStatus(err), err.Error())
		return
	}

	s.metrics.RecordAnalysis(string(mode), "success", summary.TotalMessagesSeen, summary.TotalOccurrences)
	s.saveSnapshot(r.Context(), req.APIURL, summary)

	writeJSON(w, http.StatusOK, summary)
}

func (s *Server) handleTestConnection(w http.ResponseWriter, r *http.Request) {
	var req wenDataRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	req.applyDefaults(s.cfg)

	if req.APIURL == "" || req.APIToken == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   "API URL and Token are required",
		})
		return
	}

	if _, err := s.fetcher.FetchSinglePage(r.Context(), req.APIURL, req.APIToken); err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"success": false,
			"error":   err.Error(),
		})
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"message": s.loc.Get(req.Lang, "connection_ok"),
	})
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Upstream.URL == "" || s.cfg.Upstream.Token == "" {
		writeError(w, http.StatusServiceUnavailable, "no upstream configured")
		return
	}

	lang := r.URL.Query().Get("lang")
	if lang == "" {
		lang = s.cfg.I18n.DefaultLanguage
	}

	mode, err := models.ParseFetchMode(r.URL.Query().Get("mode"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	summary, err := s.pipeline.Run(r.Context(), analyzer.Request{
		URL:         s.cfg.Upstream.URL,
		Token:       s.cfg.Upstream.Token,
		Mode:        mode,
		MaxPages:    s.cfg.Fetch.MaxPages,
		TargetHours: s.cfg.Fetch.TargetHours,
		TodayOnly:   s.cfg.Fetch.TodayOnly,
		Filter:      timewindow.LastHours(s.cfg.Fetch.TargetHours),
	})
	if err != nil {
		s.logger.WithError(err).Error("Report pipeline run failed")
		writeError(w, upstreamStatus(err), err.Error())
		return
	}

	md := report.FormatMarkdown(summary, s.loc, report.Options{Lang: lang})
	page := markdown.WrapPage(s.loc.Get(lang, "report_title"), markdown.ToHTML(md))

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(page))
}

// handleMessages proxies one upstream page without exposing the upstream URL
func (s *Server) handleMessages(w http.ResponseWriter, r *http.Request) {
	if s.cfg.Upstream.URL == "" || s.cfg.Upstream.Token == "" {
		writeError(w, http.StatusServiceUnavailable, "no upstream configured")
		return
	}

	target := s.cfg.Upstream.URL
	if cursor := r.URL.Query().Get("cursor"); cursor != "" {
		u, err := url.Parse(target)
		if err != nil {
			writeError(w, http.StatusInternalServerError, "invalid upstream URL")
			return
		}
		q := u.Query()
		q.Set("cursor", cursor)
		u.RawQuery = q.Encode()
		target = u.String()
	}

	page, err := s.fetcher.FetchSinglePage(r.Context(), target, s.cfg.Upstream.Token)
	if err != nil {
		s.metrics.RecordUpstreamError("single")
		writeError(w, upstreamStatus(err), err.Error())
		return
	}

	resp := map[string]interface{}{
		"result": map[string]interface{}{"messages": page.Messages},
	}
	if page.NextCursor != "" {
		resp["next"] = map[string]string{"cursor": page.NextCursor}
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleHistory returns recent snapshots for dashboard trend charts
func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	if s.snapshots == nil || s.cfg.Upstream.URL == "" {
		writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": []models.Snapshot{}})
		return
	}

	snaps, err := s.snapshots.History(r.Context(), snapshot.ConversationKey(s.cfg.Upstream.URL), 50)
	if err != nil {
		s.logger.WithError(err).Error("Failed to load snapshot history")
		writeError(w, http.StatusInternalServerError, "failed to load history")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"snapshots": snaps})
}

func (s *Server) saveSnapshot(ctx context.Context, apiURL string, summary *models.AnalysisSummary) {
	if s.snapshots == nil {
		return
	}
	snap := &models.Snapshot{
		TotalOccurrences:  summary.TotalOccurrences,
		MessagesWithMatch: summary.MessagesWithMatch,
		TotalMessagesSeen: summary.TotalMessagesSeen,
		TakenAt:           time.Now().UTC(),
	}
	if err := s.snapshots.Save(ctx, snapshot.ConversationKey(apiURL), snap); err != nil {
		s.logger.WithError(err).Warn("Failed to save snapshot")
	}
}

// corsMiddleware mirrors the headers the original dashboard backend sent
func (s *Server) corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")

		if r.Method == http.MethodOptions {
			w.Header().Set("Access-Control-Max-Age", "86400")
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) rateLimitMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		client := clientAddr(r)
		if !s.limiter.Allow(client) {
			s.metrics.RecordRateLimitExceeded(client)
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(recorder, r)
		s.metrics.RecordHTTPRequest(r.URL.Path, http.StatusText(recorder.status), time.Since(start))
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func clientAddr(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// upstreamStatus maps pipeline errors to response codes: upstream failures
// become 502, everything else is a caller mistake
func upstreamStatus(err error) int {
	var upstream *fetcher.UpstreamError
	if errors.As(err, &upstream) {
		return http.StatusBadGateway
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
