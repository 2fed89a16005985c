// Package spotify fetches track metadata from the Spotify Web API using
// client-credentials authentication.
package spotify

import (
	"context"
	"fmt"
	"strings"

	"github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"go.uber.org/zap"
	"golang.org/x/oauth2/clientcredentials"

	"cadenza/internal/core"
	"cadenza/pkg/resolve"
)

type Client struct {
	config *core.SpotifyConfig
	logger *zap.Logger
	client *spotify.Client
}

func NewClient(config *core.SpotifyConfig, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		config: config,
		logger: logger.Named("spotify"),
	}
}

// Authenticate exchanges the configured credentials for an access token.
// The resulting client refreshes tokens on its own; the initial exchange is
// done eagerly so bad credentials fail at startup, not on the first track.
func (c *Client) Authenticate(ctx context.Context) error {
	ccfg := &clientcredentials.Config{
		ClientID:     c.config.ClientID,
		ClientSecret: c.config.ClientSecret,
		TokenURL:     spotifyauth.TokenURL,
	}

	if _, err := ccfg.Token(ctx); err != nil {
		return fmt.Errorf("requesting client-credentials token: %w", err)
	}

	c.client = spotify.New(ccfg.Client(ctx))
	c.logger.Info("Authenticated with client credentials")
	return nil
}

// FetchTrack loads a track by ID and reduces it to title and artists.
func (c *Client) FetchTrack(ctx context.Context, trackID string) (resolve.TrackMeta, error) {
	if c.client == nil {
		return resolve.TrackMeta{}, fmt.Errorf("client not authenticated")
	}

	track, err := c.client.GetTrack(ctx, spotify.ID(trackID))
	if err != nil {
		return resolve.TrackMeta{}, fmt.Errorf("%w: %w", resolve.ErrSpotifyFetchFailed, err)
	}

	meta := convertTrack(track)
	if meta.Title == "" || len(meta.Artists) == 0 {
		return resolve.TrackMeta{}, fmt.Errorf("%w: track %s has no usable title or artists", resolve.ErrSpotifyMetadataIncomplete, trackID)
	}

	c.logger.Debug("Fetched track metadata",
		zap.String("track_id", trackID),
		zap.String("title", meta.Title),
		zap.Strings("artists", meta.Artists))
	return meta, nil
}

func convertTrack(track *spotify.FullTrack) resolve.TrackMeta {
	var artists []string
	for _, artist := range track.Artists {
		if name := strings.TrimSpace(artist.Name); name != "" {
			artists = append(artists, name)
		}
	}

	return resolve.TrackMeta{
		Title:   strings.TrimSpace(track.Name),
		Artists: artists,
	}
}
