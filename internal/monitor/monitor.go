// Package monitor wraps the analysis pipeline in a terminal-refreshing
// timer loop.
package monitor

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/middleware"
	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/analyzer"
	"github.com/wen-tracker-go/internal/services/snapshot"
	"github.com/wen-tracker-go/pkg/report"
	"github.com/wen-tracker-go/pkg/timeutil"
)

const clearScreen = "\x1b[2J\x1b[H"

// Runner abstracts the pipeline
type Runner interface {
	Run(ctx context.Context, req analyzer.Request) (*models.AnalysisSummary, error)
}

// Notifier pushes count increases somewhere external
type Notifier interface {
	NotifyIncrease(ctx context.Context, previous, current int, summary *models.AnalysisSummary) error
}

// State is the explicit per-monitor state object passed into each render.
// The pipeline itself stays stateless; this is all the memory a monitor has.
type State struct {
	LastCount  int
	HasLast    bool
	CycleCount int
	StartedAt  time.Time
}

// Monitor re-runs the pipeline on a fixed interval and redraws the
// terminal. Cycles never overlap: the next fetch starts only after the
// previous render completes.
type Monitor struct {
	pipeline  Runner
	request   analyzer.Request
	interval  time.Duration
	loc       *i18n.Localizer
	lang      string
	notifier  Notifier
	snapshots *snapshot.Manager
	metrics   *middleware.Metrics
	out       io.Writer
	logger    *logrus.Logger
	state     State
}

// Config assembles a monitor
type Config struct {
	Pipeline  Runner
	Request   analyzer.Request
	Interval  time.Duration
	Localizer *i18n.Localizer
	Lang      string
	Notifier  Notifier // optional
	Snapshots *snapshot.Manager
	Metrics   *middleware.Metrics
	Out       io.Writer
	Logger    *logrus.Logger
}

// New creates a monitor
func New(cfg Config) *Monitor {
	return &Monitor{
		pipeline:  cfg.Pipeline,
		request:   cfg.Request,
		interval:  cfg.Interval,
		loc:       cfg.Localizer,
		lang:      cfg.Lang,
		notifier:  cfg.Notifier,
		snapshots: cfg.Snapshots,
		metrics:   cfg.Metrics,
		out:       cfg.Out,
		logger:    cfg.Logger,
	}
}

// Run executes the monitor loop until the context is cancelled. A failed
// cycle is reported and retried on the next tick; successive failures never
// crash the loop.
func (m *Monitor) Run(ctx context.Context) error {
	m.state.StartedAt = time.Now().UTC()

	fmt.Fprintf(m.out, "Starting WEN monitor (interval %s)...\n", timeutil.FormatInterval(m.interval))

	m.runCycle(ctx)

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			fmt.Fprintln(m.out, "\nWEN monitor stopped")
			return nil
		case <-ticker.C:
			m.runCycle(ctx)
		}
	}
}

func (m *Monitor) runCycle(ctx context.Context) {
	summary, err := m.pipeline.Run(ctx, m.request)
	if err != nil {
		m.logger.WithError(err).Error("Monitor cycle failed")
		fmt.Fprintf(m.out, "Error fetching data: %v (retrying on next interval)\n", err)
		m.metrics.RecordMonitorCycle("error")
		return
	}

	m.state.CycleCount++
	m.render(summary)
	m.metrics.RecordMonitorCycle("success")
	m.metrics.RecordAnalysis(string(m.request.Mode), "success", summary.TotalMessagesSeen, summary.TotalOccurrences)

	if m.notifier != nil && m.state.HasLast && summary.TotalOccurrences > m.state.LastCount {
		if err := m.notifier.NotifyIncrease(ctx, m.state.LastCount, summary.TotalOccurrences, summary); err != nil {
			m.logger.WithError(err).Warn("Failed to send notification")
		}
	}

	if m.snapshots != nil {
		snap := &models.Snapshot{
			TotalOccurrences:  summary.TotalOccurrences,
			MessagesWithMatch: summary.MessagesWithMatch,
			TotalMessagesSeen: summary.TotalMessagesSeen,
			TakenAt:           time.Now().UTC(),
		}
		if err := m.snapshots.Save(ctx, snapshot.ConversationKey(m.request.URL), snap); err != nil {
			m.logger.WithError(err).Warn("Failed to save snapshot")
		}
	}

	m.state.LastCount = summary.TotalOccurrences
	m.state.HasLast = true
}

func (m *Monitor) render(summary *models.AnalysisSummary) {
	get := func(id string) string { return m.loc.Get(m.lang, id) }
	now := time.Now().UTC()
	rule := strings.Repeat("=", 50)

	fmt.Fprint(m.out, clearScreen)
	fmt.Fprintln(m.out, rule)
	fmt.Fprintln(m.out, "      "+get("monitor_title"))
	fmt.Fprintln(m.out, rule)
	fmt.Fprintln(m.out)

	fmt.Fprintf(m.out, "%s: %d %s\n\n", get("monitor_count"), summary.TotalOccurrences, m.trend(summary.TotalOccurrences))

	fmt.Fprintln(m.out, get("monitor_summary")+":")
	fmt.Fprintf(m.out, "   %s: %d\n", get("monitor_analyzed"), summary.TotalMessagesSeen)
	fmt.Fprintf(m.out, "   %s: %d\n", get("monitor_with_wen"), summary.MessagesWithMatch)
	fmt.Fprintf(m.out, "   %s:  %s\n\n", get("monitor_span"), summary.TimeSpan)

	uptime := now.Sub(m.state.StartedAt).Truncate(time.Second)
	fmt.Fprintln(m.out, get("monitor_status")+":")
	fmt.Fprintf(m.out, "   %s: %s\n", get("monitor_interval"), timeutil.FormatInterval(m.interval))
	fmt.Fprintf(m.out, "   %s:  %d\n", get("monitor_updates"), m.state.CycleCount)
	fmt.Fprintf(m.out, "   %s:    %s\n", get("monitor_uptime"), uptime)
	fmt.Fprintf(m.out, "   %s:     %s\n", get("monitor_last"), now.Format("15:04:05")+" UTC")

	if len(summary.Matches) > 0 {
		fmt.Fprintln(m.out)
		fmt.Fprintln(m.out, get("monitor_recent")+":")
		limit := 3
		if len(summary.Matches) < limit {
			limit = len(summary.Matches)
		}
		for i := 0; i < limit; i++ {
			match := summary.Matches[i]
			fmt.Fprintf(m.out, "   %d. @%s: %s\n", i+1, match.Message.SenderName(),
				strings.Join(match.MatchedSubstrings, ", "))
			fmt.Fprintf(m.out, "      %q\n", report.Preview(match.Message.Text, 50))
		}
	}

	fmt.Fprintln(m.out)
	fmt.Fprintln(m.out, get("monitor_stop_hint"))
}

// trend renders the change indicator against the previous cycle
func (m *Monitor) trend(current int) string {
	if !m.state.HasLast {
		return "(first run)"
	}
	diff := current - m.state.LastCount
	switch {
	case diff > 0:
		return fmt.Sprintf("(+%d)", diff)
	case diff < 0:
		return fmt.Sprintf("(%d)", diff)
	default:
		return "(no change)"
	}
}
