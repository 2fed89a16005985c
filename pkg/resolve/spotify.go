package resolve

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"go.uber.org/zap"
)

const (
	spotifyHost     = "open.spotify.com"
	embedBaseURL    = "https://" + spotifyHost + "/embed/track/"
	embedQuery      = "?utm_source=oembed"
	embedPayloadTag = "__NEXT_DATA__"

	// entityPath locates the track entity inside the embed page payload.
	entityPath = "props.pageProps.state.data.entity"

	embedFetchTimeout = 20 * time.Second
)

// SpotifyTrackID reports whether reference is a Spotify track URL and
// extracts the track identifier. Only http(s) URLs on open.spotify.com with
// a path of exactly /track/<id> qualify, where <id> is non-empty ASCII
// alphanumeric. Anything else, including unparseable input, yields ok=false.
func SpotifyTrackID(reference string) (string, bool) {
	u, err := url.Parse(strings.TrimSpace(reference))
	if err != nil {
		return "", false
	}
	switch strings.ToLower(u.Scheme) {
	case "http", "https":
	default:
		return "", false
	}
	if !strings.EqualFold(u.Hostname(), spotifyHost) {
		return "", false
	}
	segments := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(segments) != 2 || segments[0] != "track" {
		return "", false
	}
	id := strings.TrimSpace(segments[1])
	if id == "" || !isAlphanumeric(id) {
		return "", false
	}
	return id, true
}

func isAlphanumeric(s string) bool {
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		default:
			return false
		}
	}
	return true
}

// EmbedFetcher reads track metadata off the public Spotify embed page, which
// needs no credentials. The page ships its data as a JSON payload inside a
// script tag; the fetcher scrapes and navigates that payload.
type EmbedFetcher struct {
	client    *http.Client
	baseURL   string
	userAgent string
	logger    *zap.Logger
}

// NewEmbedFetcher creates an embed page fetcher identifying itself with the
// given User-Agent on every request.
func NewEmbedFetcher(userAgent string, logger *zap.Logger) *EmbedFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EmbedFetcher{
		client:    newHTTPClient(embedFetchTimeout),
		baseURL:   embedBaseURL,
		userAgent: userAgent,
		logger:    logger.Named("spotify"),
	}
}

// FetchTrack retrieves title and artists for a track identifier. Payload
// fields the page no longer carries degrade into ErrSpotifyMetadataIncomplete
// rather than a crash.
func (f *EmbedFetcher) FetchTrack(ctx context.Context, trackID string) (TrackMeta, error) {
	pageURL := f.baseURL + trackID + embedQuery
	page, err := fetchPage(ctx, f.client, pageURL, f.userAgent)
	if err != nil {
		return TrackMeta{}, fmt.Errorf("%w: %w", ErrSpotifyFetchFailed, err)
	}

	payload, ok := scriptByID(page, embedPayloadTag)
	if !ok || strings.TrimSpace(payload) == "" {
		return TrackMeta{}, fmt.Errorf("%w: no %s script in embed page", ErrSpotifyPayloadMissing, embedPayloadTag)
	}
	if !gjson.Valid(payload) {
		return TrackMeta{}, fmt.Errorf("%w: embed payload is not valid JSON", ErrSpotifyPayloadMalformed)
	}

	entity := gjson.Get(payload, entityPath)
	title := firstNonBlank(entity.Get("title").String(), entity.Get("name").String())

	var artists []string
	for _, a := range entity.Get("artists").Array() {
		if name := strings.TrimSpace(a.Get("name").String()); name != "" {
			artists = append(artists, name)
		}
	}

	if title == "" || len(artists) == 0 {
		return TrackMeta{}, fmt.Errorf("%w: track %s", ErrSpotifyMetadataIncomplete, trackID)
	}

	f.logger.Debug("Fetched track metadata",
		zap.String("track_id", trackID),
		zap.String("title", title),
		zap.Strings("artists", artists))

	return TrackMeta{Title: title, Artists: artists}, nil
}
