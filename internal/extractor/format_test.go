package extractor

import (
	"testing"

	"github.com/kkdai/youtube/v2"
)

func TestParseFormatSelector(t *testing.T) {
	tests := []struct {
		name     string
		selector string
		expected []formatClause
	}{
		{
			name:     "Preferred container with fallback",
			selector: "bestaudio[ext=m4a]/bestaudio",
			expected: []formatClause{{ext: "m4a"}, {}},
		},
		{
			name:     "Single unfiltered clause",
			selector: "bestaudio",
			expected: []formatClause{{}},
		},
		{
			name:     "Empty selector matches anything",
			selector: "",
			expected: []formatClause{{}},
		},
		{
			name:     "Blank clauses are dropped",
			selector: "bestaudio[ext=webm]//",
			expected: []formatClause{{ext: "webm"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseFormatSelector(tt.selector)
			if len(got) != len(tt.expected) {
				t.Fatalf("parseFormatSelector(%q) = %v, want %v", tt.selector, got, tt.expected)
			}
			for i := range got {
				if got[i] != tt.expected[i] {
					t.Errorf("parseFormatSelector(%q)[%d] = %v, want %v", tt.selector, i, got[i], tt.expected[i])
				}
			}
		})
	}
}

func TestPickAudioFormat(t *testing.T) {
	formats := []youtube.Format{
		{ItagNo: 22, MimeType: `video/mp4; codecs="avc1.64001F, mp4a.40.2"`, Bitrate: 2000000, AudioChannels: 2, Width: 1280, Height: 720},
		{ItagNo: 140, MimeType: `audio/mp4; codecs="mp4a.40.2"`, Bitrate: 130000, AudioChannels: 2},
		{ItagNo: 251, MimeType: `audio/webm; codecs="opus"`, Bitrate: 160000, AudioChannels: 2},
		{ItagNo: 250, MimeType: `audio/webm; codecs="opus"`, AverageBitrate: 70000, AudioChannels: 2},
	}

	tests := []struct {
		name         string
		selector     string
		expectedItag int
	}{
		{
			name:         "Container preference beats higher bitrate",
			selector:     "bestaudio[ext=m4a]/bestaudio",
			expectedItag: 140,
		},
		{
			name:         "Unfiltered picks highest bitrate audio",
			selector:     "bestaudio",
			expectedItag: 251,
		},
		{
			name:         "Unmatched container falls through to next clause",
			selector:     "bestaudio[ext=ogg]/bestaudio",
			expectedItag: 251,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := pickAudioFormat(formats, parseFormatSelector(tt.selector))
			if err != nil {
				t.Fatalf("pickAudioFormat() unexpected error: %v", err)
			}
			if got.ItagNo != tt.expectedItag {
				t.Errorf("pickAudioFormat() itag = %d, want %d", got.ItagNo, tt.expectedItag)
			}
		})
	}

	t.Run("No audio-only formats", func(t *testing.T) {
		videoOnly := []youtube.Format{
			{ItagNo: 22, MimeType: "video/mp4", AudioChannels: 2, Width: 1280, Height: 720},
		}
		if _, err := pickAudioFormat(videoOnly, parseFormatSelector("bestaudio")); err == nil {
			t.Error("pickAudioFormat() expected error for video-only formats")
		}
	})

	t.Run("No clause matches", func(t *testing.T) {
		if _, err := pickAudioFormat(formats, parseFormatSelector("bestaudio[ext=ogg]")); err == nil {
			t.Error("pickAudioFormat() expected error when no clause matches")
		}
	})
}

func TestMimeToExt(t *testing.T) {
	tests := []struct {
		name     string
		mimeType string
		expected string
	}{
		{name: "Audio mp4 becomes m4a", mimeType: `audio/mp4; codecs="mp4a.40.2"`, expected: "m4a"},
		{name: "Video mp4 stays mp4", mimeType: `video/mp4; codecs="avc1"`, expected: "mp4"},
		{name: "Webm passes through", mimeType: "audio/webm", expected: "webm"},
		{name: "3gpp shortens", mimeType: "video/3gpp", expected: "3gp"},
		{name: "Garbage yields empty", mimeType: "not-a-mime", expected: ""},
		{name: "Empty input", mimeType: "", expected: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := mimeToExt(tt.mimeType)
			if got != tt.expected {
				t.Errorf("mimeToExt(%q) = %q, want %q", tt.mimeType, got, tt.expected)
			}
		})
	}
}
