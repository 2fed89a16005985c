package spotify

import (
	"context"

	"go.uber.org/zap"

	"cadenza/internal/core"
	"cadenza/internal/extractor"
	"cadenza/pkg/resolve"
)

// fallbackUserAgent is used when the extractor cannot offer a browser
// signature. Kept current enough to pass basic bot checks.
const fallbackUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// NewTrackFetcher picks the metadata source based on configured credentials:
// with a client ID and secret the Web API is used, otherwise the public embed
// page is scraped. The API path authenticates eagerly and fails fast.
func NewTrackFetcher(ctx context.Context, config *core.SpotifyConfig, logger *zap.Logger) (resolve.TrackFetcher, error) {
	if config.ClientID != "" && config.ClientSecret != "" {
		client := NewClient(config, logger)
		if err := client.Authenticate(ctx); err != nil {
			return nil, err
		}
		return client, nil
	}

	userAgent := extractor.UserAgent()
	if userAgent == "" {
		userAgent = fallbackUserAgent
	}
	return resolve.NewEmbedFetcher(userAgent, logger), nil
}
