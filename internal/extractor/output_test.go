package extractor

import (
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestExpandOutputPath(t *testing.T) {
	tests := []struct {
		name     string
		template string
		video    *youtube.Video
		ext      string
		expected string
	}{
		{
			name:     "Channel id and video id",
			template: "/tmp/music/{uploader_id}-{id}.{ext}",
			video:    &youtube.Video{ID: "vid1", ChannelID: "UCabc", Author: "Author"},
			ext:      "m4a",
			expected: "/tmp/music/UCabc-vid1.m4a",
		},
		{
			name:     "Author fallback when channel id missing",
			template: "/tmp/music/{uploader_id}-{id}.{ext}",
			video:    &youtube.Video{ID: "vid1", Author: "Some Artist"},
			ext:      "webm",
			expected: "/tmp/music/Some Artist-vid1.webm",
		},
		{
			name:     "Unknown uploader placeholder",
			template: "/tmp/music/{uploader_id}-{id}.{ext}",
			video:    &youtube.Video{ID: "vid1"},
			ext:      "m4a",
			expected: "/tmp/music/unknown-vid1.m4a",
		},
		{
			name:     "Unsafe characters replaced in title",
			template: "/tmp/music/{title}.{ext}",
			video:    &youtube.Video{ID: "vid1", Title: `A/B: "C"?`},
			ext:      "m4a",
			expected: "/tmp/music/A-B- -C--.m4a",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := expandOutputPath(tt.template, tt.video, tt.ext)
			if got != tt.expected {
				t.Errorf("expandOutputPath() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestSanitizePathComponent(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{name: "Clean name untouched", input: "Plain Name", expected: "Plain Name"},
		{name: "Separators replaced", input: `a/b\c`, expected: "a-b-c"},
		{name: "Control characters replaced", input: "a\x00b\x1fc", expected: "a-b-c"},
		{name: "Result trimmed", input: "  spaced  ", expected: "spaced"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := sanitizePathComponent(tt.input)
			if got != tt.expected {
				t.Errorf("sanitizePathComponent(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestIsPlaylistURL(t *testing.T) {
	tests := []struct {
		name     string
		url      string
		expected bool
	}{
		{
			name:     "Bare playlist URL",
			url:      "https://www.youtube.com/playlist?list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf",
			expected: true,
		},
		{
			name:     "Watch URL with list parameter keeps the video",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ&list=PLrAXtmErZgOeiKm4sgNOknGvNjby9efdf",
			expected: false,
		},
		{
			name:     "Plain watch URL",
			url:      "https://www.youtube.com/watch?v=dQw4w9WgXcQ",
			expected: false,
		},
		{
			name:     "Short list parameter is not a playlist id",
			url:      "https://www.youtube.com/watch?list=short",
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := isPlaylistURL(tt.url)
			if got != tt.expected {
				t.Errorf("isPlaylistURL(%q) = %v, want %v", tt.url, got, tt.expected)
			}
		})
	}
}
