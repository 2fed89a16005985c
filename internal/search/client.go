// Package search finds playable media URLs for free-text queries by scraping
// the public YouTube results page. No API key is required.
package search

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"time"

	"go.uber.org/zap"

	"cadenza/pkg/resolve"
)

// fallbackUserAgent identifies requests when no generated browser signature
// is supplied at construction time.
const fallbackUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

const (
	defaultBaseURL = "https://www.youtube.com"
	searchTimeout  = 10 * time.Second

	// maxResultsPageSize caps how much of the results page is read; the
	// first match appears well within the first megabyte.
	maxResultsPageSize = 4 << 20
)

// watchURLPattern matches plain video links on the results page, skipping
// playlist and channel entries.
var watchURLPattern = regexp.MustCompile(`"url":"/watch\?v=([a-zA-Z0-9_-]{11})`)

// Client scrapes the results page and reports candidates in page order.
type Client struct {
	baseURL   string
	userAgent string
	client    *http.Client
	logger    *zap.Logger
}

// NewClient builds a search client identifying itself with userAgent; blank
// arguments fall back to the public endpoint and a pinned browser signature.
func NewClient(baseURL, userAgent string, logger *zap.Logger) *Client {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	if userAgent == "" {
		userAgent = fallbackUserAgent
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		baseURL:   baseURL,
		userAgent: userAgent,
		client:    &http.Client{Timeout: searchTimeout},
		logger:    logger.Named("search"),
	}
}

// Search returns candidate records for query, each carrying "url" and "id".
// Duplicate video ids are collapsed, keeping the first occurrence.
func (c *Client) Search(ctx context.Context, query string) ([]resolve.Record, error) {
	searchURL := fmt.Sprintf("%s/results?search_query=%s", c.baseURL, url.QueryEscape(query))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, searchURL, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching results page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("results page returned status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResultsPageSize))
	if err != nil {
		return nil, fmt.Errorf("reading results page: %w", err)
	}

	matches := watchURLPattern.FindAllStringSubmatch(string(body), -1)
	seen := make(map[string]bool, len(matches))
	var records []resolve.Record
	for _, m := range matches {
		id := m[1]
		if seen[id] {
			continue
		}
		seen[id] = true
		records = append(records, resolve.Record{
			"id":  id,
			"url": fmt.Sprintf("%s/watch?v=%s", c.baseURL, id),
		})
	}

	c.logger.Debug("Search complete",
		zap.String("query", query),
		zap.Int("results", len(records)))
	return records, nil
}
