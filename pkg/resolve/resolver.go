package resolve

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
)

// Config tunes where the resolver places its artifacts. Zero values pick
// sensible per-user defaults.
type Config struct {
	// OutputDir receives downloaded assets; defaults to the temp directory.
	OutputDir string
	// CacheDir is scratch space reserved for the engine; defaults to a
	// cadenza directory under the user cache dir.
	CacheDir string
}

// Resolver is the single entry point of the pipeline. It classifies a
// reference, routes Spotify tracks through metadata fetch and search, and
// hands media URLs to the engine. One Resolver is safe for concurrent use as
// long as its collaborators are; concurrent resolutions of the same media id
// share an output path and are the caller's responsibility to serialize.
type Resolver struct {
	engine Engine
	tracks TrackFetcher
	search Searcher
	logger *zap.Logger

	outputDir string
	cacheDir  string
}

// NewResolver wires the pipeline. All three collaborators are required;
// logger may be nil.
func NewResolver(cfg Config, engine Engine, tracks TrackFetcher, search Searcher, logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	outputDir := cfg.OutputDir
	if outputDir == "" {
		outputDir = os.TempDir()
	}
	cacheDir := cfg.CacheDir
	if cacheDir == "" {
		if userCache, err := os.UserCacheDir(); err == nil {
			cacheDir = filepath.Join(userCache, "cadenza")
		} else {
			cacheDir = filepath.Join(os.TempDir(), "cadenza-cache")
		}
	}
	return &Resolver{
		engine:    engine,
		tracks:    tracks,
		search:    search,
		logger:    logger.Named("resolve"),
		outputDir: outputDir,
		cacheDir:  cacheDir,
	}
}

// Resolve turns a reference into a downloaded asset with normalized
// metadata. Spotify track URLs are resolved to a playable URL first; any
// other reference goes straight to the engine. Blank references fail before
// any network or filesystem access.
func (r *Resolver) Resolve(ctx context.Context, reference string, ov Overrides) (CanonicalResult, error) {
	reference = strings.TrimSpace(reference)
	if reference == "" {
		return CanonicalResult{}, fmt.Errorf("%w: blank reference", ErrInvalidReference)
	}

	if trackID, ok := SpotifyTrackID(reference); ok {
		r.logger.Info("Resolving Spotify track", zap.String("track_id", trackID))
		return r.resolveSpotify(ctx, trackID, ov)
	}

	r.logger.Info("Resolving media URL", zap.String("url", reference))
	return r.resolveMedia(ctx, reference, ov)
}

// resolveSpotify fetches catalog metadata for the track, finds a playable
// URL for it, and re-enters the media path. Caller overrides win over the
// fetched metadata field by field.
func (r *Resolver) resolveSpotify(ctx context.Context, trackID string, ov Overrides) (CanonicalResult, error) {
	meta, err := r.tracks.FetchTrack(ctx, trackID)
	if err != nil {
		return CanonicalResult{}, err
	}

	query := buildSearchQuery(meta)
	mediaURL, err := r.searchTopURL(ctx, query)
	if err != nil {
		return CanonicalResult{}, err
	}
	r.logger.Debug("Matched Spotify track",
		zap.String("track_id", trackID),
		zap.String("query", query),
		zap.String("url", mediaURL))

	merged := ov.mergedWith(Overrides{Title: meta.Title, Artists: meta.Artists})
	return r.resolveMedia(ctx, mediaURL, merged)
}
