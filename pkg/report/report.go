// Package report renders an AnalysisSummary for humans: plain text for the
// CLI, markdown for the web dashboard.
package report

import (
	"fmt"
	"strings"

	"github.com/wen-tracker-go/internal/i18n"
	"github.com/wen-tracker-go/internal/models"
)

// Options controls report rendering
type Options struct {
	Verbose bool
	Lang    string
}

// FormatText renders the one-shot CLI report
func FormatText(summary *models.AnalysisSummary, loc *i18n.Localizer, opts Options) string {
	var out []string
	rule := strings.Repeat("=", 50)

	out = append(out, rule)
	out = append(out, loc.Get(opts.Lang, "report_title"))
	out = append(out, rule)
	out = append(out, fmt.Sprintf("%s: %d", loc.Get(opts.Lang, "total_messages"), summary.TotalMessagesSeen))
	out = append(out, fmt.Sprintf("%s: %d", loc.Get(opts.Lang, "messages_with_wen"), summary.MessagesWithMatch))
	out = append(out, fmt.Sprintf("%s: %d", loc.Get(opts.Lang, "total_wen_count"), summary.TotalOccurrences))

	if !summary.FirstTimestamp.IsZero() && !summary.LastTimestamp.IsZero() {
		out = append(out, "")
		out = append(out, loc.Get(opts.Lang, "time_range")+":")
		out = append(out, fmt.Sprintf("%s: %s", loc.Get(opts.Lang, "first_message"), summary.FirstTimestamp.Format()))
		out = append(out, fmt.Sprintf("%s:  %s", loc.Get(opts.Lang, "last_message"), summary.LastTimestamp.Format()))
		out = append(out, fmt.Sprintf("%s:     %s", loc.Get(opts.Lang, "time_span"), summary.TimeSpan))
	}

	out = append(out, "")

	if len(summary.Matches) == 0 {
		out = append(out, loc.Get(opts.Lang, "no_matches"))
		return strings.Join(out, "\n")
	}

	out = append(out, loc.Get(opts.Lang, "matches_header")+":")
	out = append(out, strings.Repeat("-", 40))

	for i, match := range summary.Matches {
		msg := match.Message
		out = append(out, fmt.Sprintf("%d. @%s", i+1, msg.SenderName()))
		out = append(out, fmt.Sprintf("   %s: %s", loc.Get(opts.Lang, "match_time"), msg.ServerTimestamp.Format()))
		out = append(out, fmt.Sprintf("   %s: %d", loc.Get(opts.Lang, "match_count"), match.OccurrenceCount))
		out = append(out, fmt.Sprintf("   %s: %s", loc.Get(opts.Lang, "match_list"), strings.Join(match.MatchedSubstrings, ", ")))
		if opts.Verbose {
			out = append(out, fmt.Sprintf("   %s: %s", loc.Get(opts.Lang, "match_message_id"), msg.ID))
			out = append(out, fmt.Sprintf("   %s: %d", loc.Get(opts.Lang, "match_sender_fid"), senderFID(msg)))
			out = append(out, fmt.Sprintf("   %s: %q", loc.Get(opts.Lang, "match_text"), msg.Text))
		}
		out = append(out, "")
	}

	return strings.Join(out, "\n")
}

// FormatMarkdown renders the dashboard report body
func FormatMarkdown(summary *models.AnalysisSummary, loc *i18n.Localizer, opts Options) string {
	var b strings.Builder

	fmt.Fprintf(&b, "# %s\n\n", loc.Get(opts.Lang, "report_title"))
	fmt.Fprintf(&b, "- **%s**: %d\n", loc.Get(opts.Lang, "total_messages"), summary.TotalMessagesSeen)
	fmt.Fprintf(&b, "- **%s**: %d\n", loc.Get(opts.Lang, "messages_with_wen"), summary.MessagesWithMatch)
	fmt.Fprintf(&b, "- **%s**: %d\n", loc.Get(opts.Lang, "total_wen_count"), summary.TotalOccurrences)

	if !summary.FirstTimestamp.IsZero() && !summary.LastTimestamp.IsZero() {
		fmt.Fprintf(&b, "\n## %s\n\n", loc.Get(opts.Lang, "time_range"))
		fmt.Fprintf(&b, "- %s: %s\n", loc.Get(opts.Lang, "first_message"), summary.FirstTimestamp.Format())
		fmt.Fprintf(&b, "- %s: %s\n", loc.Get(opts.Lang, "last_message"), summary.LastTimestamp.Format())
		fmt.Fprintf(&b, "- %s: %s\n", loc.Get(opts.Lang, "time_span"), summary.TimeSpan)
	}

	b.WriteString("\n")

	if len(summary.Matches) == 0 {
		fmt.Fprintf(&b, "%s\n", loc.Get(opts.Lang, "no_matches"))
		return b.String()
	}

	fmt.Fprintf(&b, "## %s\n\n", loc.Get(opts.Lang, "matches_header"))
	for i, match := range summary.Matches {
		msg := match.Message
		fmt.Fprintf(&b, "%d. **@%s** (%s): %s\n", i+1, msg.SenderName(),
			msg.ServerTimestamp.Format(), strings.Join(match.MatchedSubstrings, ", "))
		fmt.Fprintf(&b, "   > %s\n", Preview(msg.Text, 120))
	}

	return b.String()
}

// Preview truncates message text for compact displays
func Preview(text string, max int) string {
	runes := []rune(text)
	if len(runes) <= max {
		return text
	}
	return string(runes[:max-3]) + "..."
}

func senderFID(m models.Message) int64 {
	if m.Sender.FID != 0 {
		return m.Sender.FID
	}
	return m.SenderFID
}
