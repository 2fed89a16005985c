package resolve

import (
	"context"
	"errors"
	"path/filepath"
	"reflect"
	"testing"
)

func TestSelectThumbnail(t *testing.T) {
	tests := []struct {
		name       string
		record     Record
		expected   thumbnail
		expectedOK bool
	}{
		{
			name: "Largest square beats larger non-square",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "a", "width": 100, "height": 100},
				map[string]any{"url": "b", "width": 300, "height": 100},
				map[string]any{"url": "c", "width": 200, "height": 202},
			}},
			expected:   thumbnail{URL: "c", Width: 200, Height: 202},
			expectedOK: true,
		},
		{
			name: "No square falls back to largest overall",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "a", "width": 300, "height": 100},
				map[string]any{"url": "b", "width": 50, "height": 53},
			}},
			expected:   thumbnail{URL: "a", Width: 300, Height: 100},
			expectedOK: true,
		},
		{
			name: "Equal area keeps the earlier entry",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "first", "width": 100, "height": 100},
				map[string]any{"url": "second", "width": 100, "height": 100},
			}},
			expected:   thumbnail{URL: "first", Width: 100, Height: 100},
			expectedOK: true,
		},
		{
			name: "String dimensions are parsed",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "a", "width": "640", "height": "640"},
			}},
			expected:   thumbnail{URL: "a", Width: 640, Height: 640},
			expectedOK: true,
		},
		{
			name: "Unparseable dimensions degrade to area zero",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "a", "width": "wide", "height": 100},
				map[string]any{"url": "b", "width": 10, "height": 10},
			}},
			expected:   thumbnail{URL: "b", Width: 10, Height: 10},
			expectedOK: true,
		},
		{
			name: "Non-mapping entries are skipped",
			record: Record{"thumbnails": []any{
				"garbage",
				map[string]any{"url": "a", "width": 10, "height": 10},
			}},
			expected:   thumbnail{URL: "a", Width: 10, Height: 10},
			expectedOK: true,
		},
		{
			name:       "Scalar fallback without dimensions",
			record:     Record{"thumbnail": "https://img.example/cover.jpg"},
			expected:   thumbnail{URL: "https://img.example/cover.jpg"},
			expectedOK: true,
		},
		{
			name:       "No thumbnail source at all",
			record:     Record{"title": "t"},
			expectedOK: false,
		},
		{
			name: "All-zero candidates still pick the first",
			record: Record{"thumbnails": []any{
				map[string]any{"url": "a"},
				map[string]any{"url": "b", "width": -5, "height": 10},
			}},
			expected:   thumbnail{URL: "a"},
			expectedOK: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := selectThumbnail(tt.record)
			if ok != tt.expectedOK {
				t.Fatalf("selectThumbnail() ok = %v, want %v", ok, tt.expectedOK)
			}
			if got != tt.expected {
				t.Errorf("selectThumbnail() = %+v, want %+v", got, tt.expected)
			}
		})
	}
}

func TestRecordArtists(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected []string
	}{
		{
			name:     "Explicit artists list",
			record:   Record{"artists": []any{"A", " B ", ""}, "artist": "ignored"},
			expected: []string{"A", "B"},
		},
		{
			name:     "Single artist field",
			record:   Record{"artist": "Solo Artist"},
			expected: []string{"Solo Artist"},
		},
		{
			name:     "Uploader fallback",
			record:   Record{"uploader": "Channel Uploads"},
			expected: []string{"Channel Uploads"},
		},
		{
			name:     "Channel fallback",
			record:   Record{"channel": "The Channel"},
			expected: []string{"The Channel"},
		},
		{
			name:     "Nothing yields sentinel",
			record:   Record{"title": "t"},
			expected: []string{UnknownArtist},
		},
		{
			name:     "Blank entries fall through",
			record:   Record{"artists": []any{"  ", ""}, "artist": "  ", "uploader": "Up"},
			expected: []string{"Up"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := recordArtists(tt.record)
			if !reflect.DeepEqual(got, tt.expected) {
				t.Errorf("recordArtists() = %v, want %v", got, tt.expected)
			}
		})
	}
}

func TestResolver_resolveMedia_Normalization(t *testing.T) {
	tests := []struct {
		name      string
		record    Record
		overrides Overrides
		check     func(t *testing.T, result CanonicalResult)
	}{
		{
			name: "Title falls back to file stem",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"uploader": "Up",
			},
			check: func(t *testing.T, result CanonicalResult) {
				if result.Title != "chan-vid1" {
					t.Errorf("title = %q, want %q", result.Title, "chan-vid1")
				}
			},
		},
		{
			name: "Override replaces artists wholesale",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"artists":  []any{"Kept1", "Kept2"},
			},
			overrides: Overrides{Artists: []string{"A", ""}},
			check: func(t *testing.T, result CanonicalResult) {
				if !reflect.DeepEqual(result.Artists, []string{"A"}) {
					t.Errorf("artists = %v, want [A]", result.Artists)
				}
			},
		},
		{
			name: "All-blank override is ignored",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"artists":  []any{"Kept"},
			},
			overrides: Overrides{Artists: []string{" ", ""}},
			check: func(t *testing.T, result CanonicalResult) {
				if !reflect.DeepEqual(result.Artists, []string{"Kept"}) {
					t.Errorf("artists = %v, want [Kept]", result.Artists)
				}
			},
		},
		{
			name: "Square tolerance pick reports exact equality only",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"thumbnails": []any{
					map[string]any{"url": "c", "width": 200, "height": 202},
				},
			},
			check: func(t *testing.T, result CanonicalResult) {
				if result.ThumbnailURL != "c" || result.ThumbnailWidth != 200 || result.ThumbnailHeight != 202 {
					t.Errorf("thumbnail = %q %dx%d, want c 200x202",
						result.ThumbnailURL, result.ThumbnailWidth, result.ThumbnailHeight)
				}
				if result.ThumbnailIsSquare {
					t.Error("thumbnail_is_square = true, want false for 200x202")
				}
			},
		},
		{
			name: "Equal resolved dimensions are square",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"thumbnails": []any{
					map[string]any{"url": "sq", "width": 640, "height": 640},
				},
			},
			check: func(t *testing.T, result CanonicalResult) {
				if !result.ThumbnailIsSquare {
					t.Error("thumbnail_is_square = false, want true for 640x640")
				}
			},
		},
		{
			name: "Absent thumbnail is never square",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
			},
			check: func(t *testing.T, result CanonicalResult) {
				if result.ThumbnailURL != "" {
					t.Errorf("thumbnail url = %q, want empty", result.ThumbnailURL)
				}
				if result.ThumbnailIsSquare {
					t.Error("thumbnail_is_square = true, want false without a thumbnail")
				}
			},
		},
		{
			name: "Scalar thumbnail fallback is never square",
			record: Record{
				"filepath":  "/tmp/music/chan-vid1.m4a",
				"thumbnail": "https://img.example/cover.jpg",
			},
			check: func(t *testing.T, result CanonicalResult) {
				if result.ThumbnailURL != "https://img.example/cover.jpg" {
					t.Errorf("thumbnail url = %q, want the scalar fallback", result.ThumbnailURL)
				}
				if result.ThumbnailWidth != 0 || result.ThumbnailHeight != 0 {
					t.Errorf("thumbnail dimensions = %dx%d, want unresolved",
						result.ThumbnailWidth, result.ThumbnailHeight)
				}
				if result.ThumbnailIsSquare {
					t.Error("thumbnail_is_square = true, want false for a dimensionless fallback")
				}
			},
		},
		{
			name: "Candidate without dimensions is never square",
			record: Record{
				"filepath": "/tmp/music/chan-vid1.m4a",
				"thumbnails": []any{
					map[string]any{"url": "bare"},
				},
			},
			check: func(t *testing.T, result CanonicalResult) {
				if result.ThumbnailURL != "bare" {
					t.Errorf("thumbnail url = %q, want bare", result.ThumbnailURL)
				}
				if result.ThumbnailIsSquare {
					t.Error("thumbnail_is_square = true, want false when the candidate had no dimensions")
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := &stubEngine{record: tt.record}
			resolver := newTestResolver(engine, &stubFetcher{}, &stubSearcher{})

			result, err := resolver.resolveMedia(context.Background(), "https://media.example/v", tt.overrides)
			if err != nil {
				t.Fatalf("resolveMedia() unexpected error: %v", err)
			}
			if result.Path != "/tmp/music/chan-vid1.m4a" {
				t.Errorf("path = %q, want the record filepath", result.Path)
			}
			tt.check(t, result)
		})
	}
}

func TestResolver_resolveMedia_Failures(t *testing.T) {
	tests := []struct {
		name   string
		engine *stubEngine
	}{
		{name: "Engine error", engine: &stubEngine{err: errors.New("boom")}},
		{name: "Nil record", engine: &stubEngine{}},
		{name: "Record without filepath", engine: &stubEngine{record: Record{"title": "t"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resolver := newTestResolver(tt.engine, &stubFetcher{}, &stubSearcher{})
			_, err := resolver.resolveMedia(context.Background(), "https://media.example/v", Overrides{})
			if !errors.Is(err, ErrExtractionFailed) {
				t.Errorf("resolveMedia() error = %v, want ErrExtractionFailed", err)
			}
		})
	}
}

func TestResolver_engineConfig(t *testing.T) {
	engine := &stubEngine{record: Record{"filepath": "/tmp/music/a-b.m4a"}}
	resolver := newTestResolver(engine, &stubFetcher{}, &stubSearcher{})

	if _, err := resolver.resolveMedia(context.Background(), "https://media.example/v", Overrides{}); err != nil {
		t.Fatalf("resolveMedia() unexpected error: %v", err)
	}

	cfg := engine.lastCfg
	if cfg.FormatSelector != "bestaudio[ext=m4a]/bestaudio" {
		t.Errorf("FormatSelector = %q, want bestaudio[ext=m4a]/bestaudio", cfg.FormatSelector)
	}
	if !cfg.DisablePostprocessing || !cfg.Verbose || !cfg.SingleItemOnly || !cfg.InsecureSkipVerify {
		t.Errorf("policy flags = %+v, want all enabled", cfg)
	}
	if cfg.Fixup != FixupNever {
		t.Errorf("Fixup = %q, want %q", cfg.Fixup, FixupNever)
	}
	if cfg.PlaylistLimit != 1 {
		t.Errorf("PlaylistLimit = %d, want 1", cfg.PlaylistLimit)
	}
	expectedTemplate := filepath.Join("/tmp/music", "{uploader_id}-{id}.{ext}")
	if cfg.OutputPathTemplate != expectedTemplate {
		t.Errorf("OutputPathTemplate = %q, want %q", cfg.OutputPathTemplate, expectedTemplate)
	}
}
