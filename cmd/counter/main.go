package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"

	"github.com/joho/godotenv"

	"github.com/wen-tracker-go/internal/config"
	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/models"
	"github.com/wen-tracker-go/internal/services/analyzer"
	"github.com/wen-tracker-go/internal/services/cache"
	"github.com/wen-tracker-go/internal/services/fetcher"
	"github.com/wen-tracker-go/internal/services/timewindow"
	"github.com/wen-tracker-go/pkg/logger"
	"github.com/wen-tracker-go/pkg/report"
)

type options struct {
	url         string
	token       string
	recent      bool
	all         bool
	maxPages    int
	targetHours int
	today       bool
	date        string
	verbose     bool
	jsonOut     bool
	lang        string
	envFile     string
}

func main() {
	var opts options
	flag.StringVar(&opts.url, "url", "", "Farcaster API URL")
	flag.StringVar(&opts.url, "u", "", "Farcaster API URL (shorthand)")
	flag.StringVar(&opts.token, "token", "", "Bearer token for authentication")
	flag.StringVar(&opts.token, "t", "", "Bearer token (shorthand)")
	flag.BoolVar(&opts.recent, "recent", false, "Fetch recent messages using pagination")
	flag.BoolVar(&opts.all, "all", false, "Fetch ALL messages until no more cursor is available")
	flag.IntVar(&opts.maxPages, "max-pages", 5, "Maximum number of pages to fetch with -recent")
	flag.IntVar(&opts.targetHours, "target-hours", 24, "Target hours to look back with -recent")
	flag.BoolVar(&opts.today, "today", false, "Filter messages to TODAY only (UTC)")
	flag.StringVar(&opts.date, "date", "", "Filter messages to one UTC calendar day (YYYY-MM-DD)")
	flag.BoolVar(&opts.verbose, "verbose", false, "Show detailed message information")
	flag.BoolVar(&opts.verbose, "v", false, "Show detailed message information (shorthand)")
	flag.BoolVar(&opts.jsonOut, "json", false, "Output results in JSON format")
	flag.StringVar(&opts.lang, "lang", "en", "Report language")
	flag.StringVar(&opts.envFile, "env", ".env", "Path to .env file")
	flag.Parse()

	// Load .env file if exists
	godotenv.Load(opts.envFile)

	if opts.url == "" {
		opts.url = os.Getenv("WEN_API_URL")
	}
	if opts.token == "" {
		opts.token = os.Getenv("WEN_API_TOKEN")
	}
	if opts.url == "" || opts.token == "" {
		fmt.Fprintln(os.Stderr, "Error: API URL and token are required (use -url/-token or WEN_API_URL/WEN_API_TOKEN)")
		os.Exit(1)
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
	case opts.all:
		mode = models.FetchModeAll
	case opts.recent:
		mode = models.FetchModeRecent
	}

	filter := timewindow.None()
	switch {
	case opts.date != "":
		filter, err = timewindow.ParseDay(opts.date)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
	case opts.today:
		filter = timewindow.Today()
	}

	client := fetcher.NewClient(fetcher.DefaultTimeout, log)
	pipeline := analyzer.NewPipeline(client, cache.Disabled(), log)

	summary, err := pipeline.Run(context.Background(), analyzer.Request{
		URL:         opts.url,
		Token:       opts.token,
		Mode:        mode,
		MaxPages:    opts.maxPages,
		TargetHours: opts.targetHours,
		TodayOnly:   opts.today,
		Filter:      filter,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if opts.jsonOut {
		data, err := json.MarshalIndent(summary, "", "  ")
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		fmt.Println(string(data))
		return
	}

	fmt.Println(report.FormatText(summary, loc, report.Options{Verbose: opts.verbose, Lang: opts.lang}))
}
