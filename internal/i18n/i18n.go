package i18n

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"github.com/nicksnyder/go-i18n/v2/i18n"
	"golang.org/x/text/language"

	"github.com/wen-tracker-go/internal/config"
)

// defaultMessages backs every label with English so the CLI tools work
// without message files on disk
var defaultMessages = map[string]string{
	"report_title":      "WEN COUNTER RESULTS",
	"total_messages":    "Total messages analyzed",
	"messages_with_wen": "Messages containing WEN",
	"total_wen_count":   "Total WEN count",
	"time_range":        "TIME RANGE",
	"first_message":     "First message",
	"last_message":      "Last message",
	"time_span":         "Time span",
	"matches_header":    "MESSAGES WITH WEN (newest first)",
	"no_matches":        "No WEN variations found in any messages.",
	"match_time":        "Time",
	"match_count":       "WEN count",
	"match_list":        "Matches",
	"match_message_id":  "Message ID",
	"match_sender_fid":  "Sender FID",
	"match_text":        "Text",
	"monitor_title":     "WEN MONITOR - LIVE TRACKING",
	"monitor_count":     "WEN COUNT",
	"monitor_summary":   "SUMMARY",
	"monitor_status":    "MONITOR STATUS",
	"monitor_interval":  "Update interval",
	"monitor_updates":   "Updates so far",
	"monitor_uptime":    "Running time",
	"monitor_last":      "Last update",
	"monitor_recent":    "RECENT WEN MESSAGES",
	"monitor_stop_hint": "Press Ctrl+C to stop monitoring",
	"monitor_span":      "Message timespan",
	"monitor_analyzed":  "Messages analyzed",
	"monitor_with_wen":  "Messages with WEN",
	"connection_ok":     "Connection successful",
	"connection_failed": "Connection failed",
}

// Localizer manages internationalization of report output
type Localizer struct {
	bundle          *i18n.Bundle
	defaultLanguage string
	localizers      map[string]*i18n.Localizer
}

// NewLocalizer creates a localizer from the configured message files
func NewLocalizer(cfg *config.I18nConfig) (*Localizer, error) {
	bundle := i18n.NewBundle(language.English)
	bundle.RegisterUnmarshalFunc("json", json.Unmarshal)

	// Load language files
	for _, lang := range cfg.Languages {
		path := filepath.Join(cfg.Directory, lang+".json")
		if _, err := bundle.LoadMessageFile(path); err != nil {
			return nil, fmt.Errorf("failed to load language file %s: %w", lang, err)
		}
	}

	localizers := make(map[string]*i18n.Localizer)
	for _, lang := range cfg.Languages {
		localizers[lang] = i18n.NewLocalizer(bundle, lang)
	}

	return &Localizer{
		bundle:          bundle,
		defaultLanguage: cfg.DefaultLanguage,
		localizers:      localizers,
	}, nil
}

// Default returns a localizer backed only by the built-in English labels,
// for adapters that run without a configs directory
func Default() *Localizer {
	bundle := i18n.NewBundle(language.English)
	return &Localizer{
		bundle:          bundle,
		defaultLanguage: "en",
		localizers:      map[string]*i18n.Localizer{},
	}
}

// Get returns the localized label for messageID, falling back to the
// default language and then to built-in English
func (l *Localizer) Get(lang, messageID string) string {
	localizer, exists := l.localizers[lang]
	if !exists {
		localizer = l.localizers[l.defaultLanguage]
	}

	if localizer != nil {
		msg, err := localizer.Localize(&i18n.LocalizeConfig{MessageID: messageID})
		if err == nil && msg != "" {
			return msg
		}
	}

	if def, ok := defaultMessages[messageID]; ok {
		return def
	}
	return messageID
}
