package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/middleware"
	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/monitor"
	"github.com/wen-tracker-go/internal/notifier"
	"github.com/wen-tracker-go/internal/services/analyzer"
	"github.com/wen-tracker-go/internal/services/cache"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/snapshot"
	"github.com/wen-tracker-go/internal/services/timewindow"
	"github.com/wen-tracker-go/pkg/logger"
	"github.com/wen-tracker-go/pkg/timeutil"
)

func main() {
	var (
		urlFlag      = flag.String("url", "", "Farcaster API URL")
		tokenFlag    = flag.String("token", "", "Bearer token for authentication")
		intervalFlag = flag.String("interval", "5m", "Polling interval (e.g. 30s, 5m, 1h; bare number means minutes)")
		recentFlag   = flag.Bool("recent", false, "Fetch recent messages using pagination")
		allFlag      = flag.Bool("all", false, "Fetch ALL messages until no more cursor is available")
		maxPages     = flag.Int("max-pages", 5, "Maximum number of pages to fetch with -recent")
		targetHours  = flag.Int("target-hours", 24, "Target hours to look back with -recent")
		todayFlag    = flag.Bool("today", false, "Filter messages to TODAY only (UTC)")
		langFlag     = flag.String("lang", "en", "Display language")
		envFile      = flag.String("env", ".env", "Path to .env file")
	)
	flag.Parse()

	godotenv.Load(*envFile)

	apiURL := *urlFlag
	if apiURL == "" {
		apiURL = os.Getenv("WEN_API_URL")
	}
	token := *tokenFlag
	if token == "" {
		token = os.Getenv("WEN_API_TOKEN")
	}
	if apiURL == "" || token == "" {
		fmt.Fprintln(os.Stderr, "Error: API URL and token are required (use -url/-token or WEN_API_URL/WEN_API_TOKEN)")
		os.Exit(1)
	}

	interval, err := timeutil.ParseInterval(*intervalFlag)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: invalid interval %q: %v\n", *intervalFlag, err)
		os.Exit(1)
	}
	if interval < 10*time.Second {
		fmt.Fprintf(os.Stderr, "Warning: interval %s is very short, the upstream API may rate-limit you\n", timeutil.FormatInterval(interval))
	}
	if interval > 24*time.Hour {
		fmt.Fprintf(os.Stderr, "Warning: interval %s is longer than a day\n", timeutil.FormatInterval(interval))
	}

	log, err := logger.NewLogger(&config.LoggingConfig{Level: "warn", Format: "text", Output: "stderr"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	loc, err := i18n.NewLocalizer(&config.I18nConfig{
		DefaultLanguage: "en",
		Languages:       []string{"en", "zh"},
		Directory:       "configs/i18n",
	})
	if err != nil {
		loc = i18n.Default()
	}

	mode := models.FetchModeSingle
	switch {
	case *allFlag:
		mode = models.FetchModeAll
	case *recentFlag:
		mode = models.FetchModeRecent
	}
	filter := timewindow.None()
	if *todayFlag {
		filter = timewindow.Today()
	}

	client := fetcher.NewClient(fetcher.DefaultTimeout, log)
	pipeline := analyzer.NewPipeline(client, cache.Disabled(), log)
	metrics := middleware.NewMetrics()

	snapshots, err := snapshot.NewManager(&config.Config{
		Snapshots: config.SnapshotConfig{Backend: "memory", MaxHistory: 100},
	}, log)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize snapshot store: %v\n", err)
		os.Exit(1)
	}

	var notify monitor.Notifier
	if botToken := os.Getenv("TELEGRAM_BOT_TOKEN"); botToken != "" {
		chatID, err := strconv.ParseInt(os.Getenv("TELEGRAM_CHAT_ID"), 10, 64)
		if err != nil {
			fmt.Fprintln(os.Stderr, "Warning: TELEGRAM_CHAT_ID is missing or invalid, notifications disabled")
		} else {
			tg, err := notifier.NewTelegram(botToken, chatID, log)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Warning: Telegram notifier unavailable: %v\n", err)
			} else {
				notify = tg
			}
		}
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := monitor.New(monitor.Config{
		Pipeline: pipeline,
		Request: analyzer.Request{
			URL:         apiURL,
			Token:       token,
			Mode:        mode,
			MaxPages:    *maxPages,
			TargetHours: *targetHours,
			TodayOnly:   *todayFlag,
			Filter:      filter,
		},
		Interval:  interval,
		Localizer: loc,
		Lang:      *langFlag,
		Notifier:  notify,
		Snapshots: snapshots,
		Metrics:   metrics,
		Out:       os.Stdout,
		Logger:    log,
	})

	if err := m.Run(ctx); err != nil && ctx.Err() == nil {
		fmt.Fprintf(os.Stderr, "Monitor stopped: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("\nMonitor stopped.")
}
