// Package fetcher retrieves messages from the cursor-paginated
// direct-cast conversation API.
package fetcher

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/wen-tracker-go/internal/models"
)

// DefaultTimeout bounds a single page fetch
const DefaultTimeout = 30 * time.Second

// UpstreamError reports a failed page fetch: a non-2xx status, a transport
// failure, or an unparseable body.
type UpstreamError struct {
	StatusCode int
	Body       string
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		msg := fmt.Sprintf("API error: %d %s", e.StatusCode, http.StatusText(e.StatusCode))
		if e.Body != "" {
			msg += ": " + e.Body
		}
		return msg
	}
	return fmt.Sprintf("upstream request failed: %v", e.Err)
}

func (e *UpstreamError) Unwrap() error {
	return e.Err
}

// Window bounds how far back FetchRecent paginates
type Window struct {
	Hours int  // look back N hours
	Today bool // stop at 00:00 UTC of the current day instead
}

// Cutoff resolves the window to an absolute lower bound
func (w Window) Cutoff(now time.Time) time.Time {
	if w.Today {
		return now.UTC().Truncate(24 * time.Hour)
	}
	return now.Add(-time.Duration(w.Hours) * time.Hour)
}

// Client fetches pages from the upstream API. One HTTP request at a time;
// page fetches are never retried.
type Client struct {
	httpClient *http.Client
	logger     *logrus.Logger
}

// NewClient creates a fetcher client. A zero timeout means DefaultTimeout.
func NewClient(timeout time.Duration, logger *logrus.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger,
	}
}

// pageEnvelope is the upstream response shape. A body without
// result.messages decodes to an empty page rather than an error.
type pageEnvelope struct {
	Result struct {
		Messages []models.Message `json:"messages"`
	} `json:"result"`
	Next struct {
		Cursor string `json:"cursor"`
	} `json:"next"`
}

// FetchSinglePage issues exactly one authenticated GET and returns the page.
// Unlike the multi-page modes, failures propagate to the caller.
func (c *Client) FetchSinglePage(ctx context.Context, rawURL, token string) (*models.Page, error) {
	reqCtx, cancel := context.WithTimeout(ctx, c.httpClient.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(reqCtx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &UpstreamError{Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		snippet := string(body)
		if len(snippet) > 200 {
			snippet = snippet[:200]
		}
		return nil, &UpstreamError{StatusCode: resp.StatusCode, Body: snippet}
	}

	var envelope pageEnvelope
	if err := json.Unmarshal(body, &envelope); err != nil {
		return nil, &UpstreamError{Err: fmt.Errorf("malformed response body: %w", err)}
	}

	return &models.Page{
		Messages:   envelope.Result.Messages,
		NextCursor: envelope.Next.Cursor,
	}, nil
}

// FetchRecent paginates until maxPages pages have been fetched, the oldest
// message seen predates the target window, or the upstream stops returning a
// cursor. A page failure truncates pagination and returns what was already
// collected.
func (c *Client) FetchRecent(ctx context.Context, baseURL, token string, maxPages int, window Window) ([]models.Message, error) {
	base, err := stripCursor(baseURL)
	if err != nil {
		return nil, err
	}

	cutoff := window.Cutoff(time.Now().UTC())
	var all []models.Message
	current := base

	for pageCount := 1; pageCount <= maxPages; pageCount++ {
		page, err := c.FetchSinglePage(ctx, current, token)
		if err != nil {
			c.logger.WithError(err).WithField("page", pageCount).Warn("Page fetch failed, returning partial result")
			return all, nil
		}

		if len(page.Messages) == 0 {
			break
		}
		all = append(all, page.Messages...)

		oldest := oldestTimestamp(page.Messages)
		if !oldest.IsZero() && oldest.Time().Before(cutoff) {
			c.logger.WithFields(logrus.Fields{
				"page":   pageCount,
				"oldest": oldest.Format(),
			}).Debug("Window covered, stopping pagination")
			break
		}

		if page.NextCursor == "" {
			break
		}
		current, err = withCursor(base, page.NextCursor)
		if err != nil {
			return all, nil
		}
	}

	return all, nil
}

// FetchAll paginates with no page limit until the upstream omits the cursor.
// Intended for full-history extraction; the caller accepts the cost.
func (c *Client) FetchAll(ctx context.Context, baseURL, token string) ([]models.Message, error) {
	base, err := stripCursor(baseURL)
	if err != nil {
		return nil, err
	}

	var all []models.Message
	current := base

	for pageCount := 1; ; pageCount++ {
		page, err := c.FetchSinglePage(ctx, current, token)
		if err != nil {
			c.logger.WithError(err).WithField("page", pageCount).Warn("Page fetch failed, returning partial result")
			return all, nil
		}

		if len(page.Messages) == 0 {
			break
		}
		all = append(all, page.Messages...)

		c.logger.WithFields(logrus.Fields{
			"page":     pageCount,
			"messages": len(page.Messages),
			"total":    len(all),
		}).Debug("Fetched page")

		if page.NextCursor == "" {
			break
		}
		current, err = withCursor(base, page.NextCursor)
		if err != nil {
			return all, nil
		}
	}

	return all, nil
}

// stripCursor removes any caller-supplied cursor parameter so pagination
// always starts fresh from the base URL
func stripCursor(rawURL string) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Del("cursor")
	u.RawQuery = q.Encode()
	return u.String(), nil
}

// withCursor sets the cursor query parameter on the base URL
func withCursor(baseURL, cursor string) (string, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return "", fmt.Errorf("invalid base URL: %w", err)
	}
	q := u.Query()
	q.Set("cursor", cursor)
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func oldestTimestamp(messages []models.Message) models.Timestamp {
	var oldest models.Timestamp
	for _, m := range messages {
		if m.ServerTimestamp.IsZero() {
			continue
		}
		if oldest.IsZero() || m.ServerTimestamp < oldest {
			oldest = m.ServerTimestamp
		}
	}
	return oldest
}
