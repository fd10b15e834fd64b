package summarizer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	readability "codeberg.org/readeck/go-readability/v2"
)

const (
	maxLinkText  = 4 * 1024
	maxLinks     = 3
	fetchTimeout = 15 * time.Second
)

var reURL = regexp.MustCompile(`https?://[^\s)>\]]+`)

// LinkEnricher fetches URLs mentioned in a session log and extracts their
// readable text, so the model can reason about shared pages (status
// dashboards, paste links) instead of opaque URLs.
type LinkEnricher struct {
	http   *http.Client
	logger *slog.Logger
}

// NewLinkEnricher creates an enricher with a bounded fetch timeout.
func NewLinkEnricher(logger *slog.Logger) *LinkEnricher {
	return &LinkEnricher{
		http:   &http.Client{Timeout: fetchTimeout},
		logger: logger,
	}
}

// Context returns one "URL:\ntext" block per distinct link found in the
// log, up to maxLinks. Fetch failures are logged and skipped; an empty
// string means there is nothing to add.
func (e *LinkEnricher) Context(ctx context.Context, log []string) string {
	seen := make(map[string]bool)
	var blocks []string
	for _, line := range log {
		for _, raw := range reURL.FindAllString(line, -1) {
			if seen[raw] || len(blocks) >= maxLinks {
				continue
			}
			seen[raw] = true
			text, err := e.fetch(ctx, raw)
			if err != nil {
				e.logger.Debug("link fetch failed", "url", raw, "error", err)
				continue
			}
			blocks = append(blocks, fmt.Sprintf("%s:\n%s", raw, text))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func (e *LinkEnricher) fetch(ctx context.Context, rawURL string) (string, error) {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("summarizer: invalid URL: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}
	req.Header.Set("User-Agent", "deskbot/1.0")

	resp, err := e.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summarizer: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("summarizer: HTTP %d", resp.StatusCode)
	}

	if !strings.Contains(resp.Header.Get("Content-Type"), "text/html") {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxLinkText))
		return string(body), nil
	}

	article, err := readability.FromReader(resp.Body, parsed)
	if err != nil {
		return "", fmt.Errorf("summarizer: parse: %w", err)
	}

	var buf bytes.Buffer
	if err := article.RenderText(&buf); err != nil {
		return "", fmt.Errorf("summarizer: render: %w", err)
	}
	text := buf.String()
	if len(text) > maxLinkText {
		text = text[:maxLinkText] + "\n... [truncated]"
	}
	return text, nil
}
