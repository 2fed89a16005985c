package resolve

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	acceptHeader = "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8"

	// maxPageSize bounds how much of a scraped page is read into memory.
	maxPageSize = 2 << 20
)

// ErrTooManyRedirects is returned when a fetch passes the redirect cap.
var ErrTooManyRedirects = errors.New("too many redirects")

func newHTTPClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return ErrTooManyRedirects
			}
			return nil
		},
	}
}

// fetchPage retrieves pageURL with browser-like headers and returns the body
// capped at maxPageSize.
func fetchPage(ctx context.Context, client *http.Client, pageURL, userAgent string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptHeader)

	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetching page: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxPageSize))
	if err != nil {
		return "", fmt.Errorf("reading response body: %w", err)
	}
	return string(body), nil
}

// scriptByID returns the inner text of the first <script> tag carrying the
// given id attribute, or ok=false when the page has none.
func scriptByID(page, id string) (string, bool) {
	marker := `<script id="` + id + `"`
	start := strings.Index(page, marker)
	if start < 0 {
		return "", false
	}
	rest := page[start:]
	open := strings.Index(rest, ">")
	if open < 0 {
		return "", false
	}
	rest = rest[open+1:]
	end := strings.Index(rest, "</script>")
	if end < 0 {
		return "", false
	}
	return rest[:end], true
}

// asMap narrows an arbitrary value to a Record, returning nil when the value
// is neither a Record nor a plain map.
func asMap(v any) Record {
	switch m := v.(type) {
	case Record:
		return m
	case map[string]any:
		return m
	default:
		return nil
	}
}

// asSlice narrows an arbitrary value to a []any.
func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

// getString reads a string field from a record, returning "" when the key is
// absent or holds a non-string.
func getString(m Record, key string) string {
	s, _ := m[key].(string)
	return s
}

// asInt coerces the numeric shapes JSON decoding and engines produce into an
// int. Anything unrecognized counts as zero.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case uint:
		return int(n)
	case float64:
		return int(n)
	case string:
		parsed, err := strconv.Atoi(strings.TrimSpace(n))
		if err != nil {
			return 0
		}
		return parsed
	default:
		return 0
	}
}

// stringList reads a list of strings from an arbitrary value, keeping only
// non-blank trimmed entries in order.
func stringList(v any) []string {
	var out []string
	for _, entry := range asSlice(v) {
		s, ok := entry.(string)
		if !ok {
			continue
		}
		if trimmed := strings.TrimSpace(s); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

// firstNonBlank returns the first value that is non-empty after trimming.
func firstNonBlank(values ...string) string {
	for _, v := range values {
		if trimmed := strings.TrimSpace(v); trimmed != "" {
			return trimmed
		}
	}
	return ""
}
