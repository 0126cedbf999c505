// Package analyzer turns a fetched message sequence into an AnalysisSummary
// and exposes the shared fetch/filter/classify/aggregate pipeline used by
// every adapter.
package analyzer

import (
	"context"
	"fmt"
	"sort"

	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/cache"
	"github.com/wen-tracker-go/internal/services/classifier"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/timewindow"
	"github.com/wen-tracker-go/pkg/timeutil"
)

// Analyze classifies every text message and aggregates the results.
// A summary is always produced, even over zero messages.
func Analyze(messages []models.Message) *models.AnalysisSummary {
	summary := &models.AnalysisSummary{
		TotalMessagesSeen: len(messages),
		Matches:           []models.MatchResult{},
		TimeSpan:          "0m",
	}

	for _, m := range messages {
		if m.Type != "text" || m.Text == "" {
			continue
		}
		count, matches := classifier.Count(m.Text)
		if count == 0 {
			continue
		}
		summary.Matches = append(summary.Matches, models.MatchResult{
			Message:           m,
			OccurrenceCount:   count,
			MatchedSubstrings: matches,
		})
		summary.TotalOccurrences += count
	}

	summary.MessagesWithMatch = len(summary.Matches)

	// Newest first; stable so equal timestamps keep fetch order
	sort.SliceStable(summary.Matches, func(i, j int) bool {
		return summary.Matches[i].Message.ServerTimestamp > summary.Matches[j].Message.ServerTimestamp
	})

	if len(summary.Matches) > 0 {
		first := summary.Matches[0].Message.ServerTimestamp
		last := first
		for _, mr := range summary.Matches {
			ts := mr.Message.ServerTimestamp
			if ts < first {
				first = ts
			}
			if ts > last {
				last = ts
			}
		}
		summary.FirstTimestamp = first
		summary.LastTimestamp = last
		summary.TimeSpan = timeutil.FormatSpan(last.Time().Sub(first.Time()))
	}

	return summary
}

// Fetcher abstracts the pagination client
type Fetcher interface {
	FetchSinglePage(ctx context.Context, url, token string) (*models.Page, error)
	FetchRecent(ctx context.Context, baseURL, token string, maxPages int, window fetcher.Window) ([]models.Message, error)
	FetchAll(ctx context.Context, baseURL, token string) ([]models.Message, error)
}

// Request describes one pipeline invocation
type Request struct {
	URL         string
	Token       string
	Mode        models.FetchMode
	MaxPages    int
	TargetHours int
	TodayOnly   bool
	Filter      timewindow.Spec
}

func (r Request) cacheKey() string {
	return fmt.Sprintf("%s|%s|%s|%d|%d|%t|%s|%d|%s",
		r.URL, r.Token, r.Mode, r.MaxPages, r.TargetHours, r.TodayOnly,
		r.Filter.Kind, r.Filter.Hours, r.Filter.Date.Format("2006-01-02"))
}

// Pipeline is the one shared fetch/filter/classify/aggregate implementation.
// Stateless between invocations; each Run builds fresh values.
type Pipeline struct {
	fetcher Fetcher
	cache   cache.Service
	logger  *logrus.Logger
}

// NewPipeline creates a pipeline
func NewPipeline(f Fetcher, cacheSvc cache.Service, logger *logrus.Logger) *Pipeline {
	return &Pipeline{
		fetcher: f,
		cache:   cacheSvc,
		logger:  logger,
	}
}

// Run executes one full analysis cycle. Single-page mode propagates upstream
// failures; the multi-page modes analyze whatever was collected before a
// failure truncated pagination.
func (p *Pipeline) Run(ctx context.Context, req Request) (*models.AnalysisSummary, error) {
	if req.URL == "" {
		return nil, fmt.Errorf("API URL is required")
	}
	if req.Token == "" {
		return nil, fmt.Errorf("API token is required")
	}

	key := req.cacheKey()
	if summary, found := p.cache.Get(ctx, key); found {
		return summary, nil
	}

	var (
		messages []models.Message
		err      error
	)

	switch req.Mode {
	case models.FetchModeSingle:
		var page *models.Page
		page, err = p.fetcher.FetchSinglePage(ctx, req.URL, req.Token)
		if err != nil {
			return nil, err
		}
		messages = page.Messages
	case models.FetchModeAll:
		messages, err = p.fetcher.FetchAll(ctx, req.URL, req.Token)
	default:
		window := fetcher.Window{Hours: req.TargetHours, Today: req.TodayOnly}
		messages, err = p.fetcher.FetchRecent(ctx, req.URL, req.Token, req.MaxPages, window)
	}
	if err != nil {
		return nil, err
	}

	filtered := req.Filter.Apply(messages)

	p.logger.WithFields(logrus.Fields{
		"mode":     req.Mode,
		"fetched":  len(messages),
		"filtered": len(filtered),
	}).Debug("Running analysis")

	summary := Analyze(filtered)

	if err := p.cache.Set(ctx, key, summary); err != nil {
		p.logger.WithError(err).Warn("Failed to cache summary")
	}

	return summary, nil
}
