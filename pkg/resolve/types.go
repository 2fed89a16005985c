// Package resolve turns a music track reference (a direct video URL or a
// Spotify track URL) into a downloaded audio asset with normalized metadata.
package resolve

import (
	"context"
	"errors"
	"strings"
)

// UnknownArtist is the sentinel artist used when no source yields any name.
const UnknownArtist = "Unknown Artist"

// Pipeline error kinds. Wrapped errors carry context; match with errors.Is.
var (
	// ErrInvalidReference is returned for a blank reference before any I/O.
	ErrInvalidReference = errors.New("invalid reference")
	// ErrSpotifyFetchFailed is returned when the embed page cannot be fetched.
	ErrSpotifyFetchFailed = errors.New("spotify fetch failed")
	// ErrSpotifyPayloadMissing is returned when the embed page has no payload script.
	ErrSpotifyPayloadMissing = errors.New("spotify payload missing")
	// ErrSpotifyPayloadMalformed is returned when the embedded payload is not valid JSON.
	ErrSpotifyPayloadMalformed = errors.New("spotify payload malformed")
	// ErrSpotifyMetadataIncomplete is returned when title or artists are missing.
	ErrSpotifyMetadataIncomplete = errors.New("spotify metadata incomplete")
	// ErrSearchNoResults is returned when the search provider finds nothing.
	ErrSearchNoResults = errors.New("search returned no results")
	// ErrSearchResultMalformed is returned when the top result has no usable URL.
	ErrSearchResultMalformed = errors.New("search result malformed")
	// ErrExtractionFailed is returned when the engine produces no record.
	ErrExtractionFailed = errors.New("extraction failed")
)

// Record is the loosely structured metadata mapping produced by an extraction
// engine. Field access goes through the navigation helpers, which return zero
// values instead of panicking on missing or mistyped entries.
type Record map[string]any

// TrackMeta is the title/artists pair fetched from a catalog source.
type TrackMeta struct {
	Title   string
	Artists []string
}

// Overrides carries optional caller-supplied replacements for the derived
// title and artist list. A blank title means "do not override"; an artist
// list whose entries are all blank after trimming is likewise ignored.
// Overrides replace their field wholesale, never merging partially.
type Overrides struct {
	Title   string
	Artists []string
}

// normalized returns a trimmed copy: blank title collapses to "", the artist
// list keeps only non-blank trimmed entries in order. The receiver's slice is
// never aliased, so callers' values stay untouched.
func (o Overrides) normalized() Overrides {
	out := Overrides{Title: strings.TrimSpace(o.Title)}
	for _, artist := range o.Artists {
		if trimmed := strings.TrimSpace(artist); trimmed != "" {
			out.Artists = append(out.Artists, trimmed)
		}
	}
	return out
}

// mergedWith fills absent fields from fallback, field by field. The receiver
// (the caller's choice) always wins where present.
func (o Overrides) mergedWith(fallback Overrides) Overrides {
	merged := o.normalized()
	fb := fallback.normalized()
	if merged.Title == "" {
		merged.Title = fb.Title
	}
	if len(merged.Artists) == 0 {
		merged.Artists = fb.Artists
	}
	return merged
}

// CanonicalResult is the normalized outcome of one resolution. Artists is
// never empty. The thumbnail fields are absent (zero) when no thumbnail
// source existed; ThumbnailIsSquare holds only when both dimensions were
// resolved and are exactly equal, independent of how the thumbnail was
// selected.
type CanonicalResult struct {
	Path              string   `json:"path"`
	OriginalURL       string   `json:"original_url"`
	Title             string   `json:"title"`
	Artists           []string `json:"artists"`
	ThumbnailURL      string   `json:"thumbnail_url,omitempty"`
	ThumbnailWidth    int      `json:"thumbnail_width,omitempty"`
	ThumbnailHeight   int      `json:"thumbnail_height,omitempty"`
	ThumbnailIsSquare bool     `json:"thumbnail_is_square"`
}

// FixupPolicy controls whether the engine may correct stream metadata after
// download. With no post-processing tool assumed present the pipeline always
// runs with FixupNever and accepts possibly inaccurate duration metadata.
type FixupPolicy string

const (
	FixupAuto  FixupPolicy = "auto"
	FixupNever FixupPolicy = "never"
)

// EngineConfig is the extraction policy handed to the engine on every call.
type EngineConfig struct {
	// FormatSelector is a quality expression of slash-separated clauses,
	// e.g. "bestaudio[ext=m4a]/bestaudio": first clause that matches wins.
	FormatSelector string
	// DisablePostprocessing forbids any transform of the downloaded stream.
	DisablePostprocessing bool
	// Verbose makes the engine write progress diagnostics to stdout.
	Verbose bool
	// Fixup selects the metadata correction policy.
	Fixup FixupPolicy
	// PlaylistLimit bounds how many collection entries the engine may touch.
	PlaylistLimit int
	// SingleItemOnly restricts extraction to one item even for collection URLs.
	SingleItemOnly bool
	// InsecureSkipVerify disables TLS certificate validation on engine requests.
	InsecureSkipVerify bool
	// OutputPathTemplate is the full output path with {uploader_id}, {id},
	// {title} and {ext} placeholders.
	OutputPathTemplate string
	// CacheDir is the engine scratch directory, created if absent.
	CacheDir string
}

// Engine retrieves a media stream for a URL and reports its metadata as a
// Record. The realized output path must be exposed under the "filepath" key.
type Engine interface {
	Extract(ctx context.Context, url string, cfg EngineConfig) (Record, error)
}

// TrackFetcher looks up catalog metadata for a Spotify track identifier.
type TrackFetcher interface {
	FetchTrack(ctx context.Context, trackID string) (TrackMeta, error)
}

// Searcher returns an ordered list of candidate records for a free-text
// query. Records are consumed opaquely; the pipeline only reads "url".
type Searcher interface {
	Search(ctx context.Context, query string) ([]Record, error)
}
