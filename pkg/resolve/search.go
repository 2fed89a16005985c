package resolve

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"golang.org/x/text/unicode/norm"
)

var collapseSpaces = regexp.MustCompile(`\s+`)

// buildSearchQuery renders track metadata as a free-text search query:
// the title followed by every artist, NFKC-normalized so fullwidth and
// compatibility forms match their plain counterparts, with runs of
// whitespace collapsed to single spaces.
func buildSearchQuery(meta TrackMeta) string {
	parts := make([]string, 0, len(meta.Artists)+1)
	if meta.Title != "" {
		parts = append(parts, meta.Title)
	}
	parts = append(parts, meta.Artists...)

	query := norm.NFKC.String(strings.Join(parts, " "))
	return strings.TrimSpace(collapseSpaces.ReplaceAllString(query, " "))
}

// searchTopURL runs the query against the search provider and returns the
// URL of the first result.
func (r *Resolver) searchTopURL(ctx context.Context, query string) (string, error) {
	results, err := r.search.Search(ctx, query)
	if err != nil {
		return "", fmt.Errorf("searching %q: %w", query, err)
	}
	if len(results) == 0 {
		return "", fmt.Errorf("%w: %q", ErrSearchNoResults, query)
	}
	topURL := strings.TrimSpace(getString(results[0], "url"))
	if topURL == "" {
		return "", fmt.Errorf("%w: top result for %q has no url", ErrSearchResultMalformed, query)
	}
	return topURL, nil
}
