package extractor

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
)

var extFilterRegex = regexp.MustCompile(`\[ext=([a-z0-9]+)\]`)

// formatClause is one alternative of a quality expression. A blank ext
// matches any container.
type formatClause struct {
	ext string
}

// parseFormatSelector splits a slash-separated quality expression such as
// "bestaudio[ext=m4a]/bestaudio" into ordered clauses. An empty or
// unrecognized expression degrades to a single match-anything clause.
func parseFormatSelector(selector string) []formatClause {
	var clauses []formatClause
	for _, raw := range strings.Split(selector, "/") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		clause := formatClause{}
		if m := extFilterRegex.FindStringSubmatch(raw); m != nil {
			clause.ext = m[1]
		}
		clauses = append(clauses, clause)
	}
	if len(clauses) == 0 {
		clauses = append(clauses, formatClause{})
	}
	return clauses
}

// pickAudioFormat selects the highest-bitrate audio-only format accepted by
// the earliest clause that matches anything.
func pickAudioFormat(formats []youtube.Format, clauses []formatClause) (*youtube.Format, error) {
	audio := make([]youtube.Format, 0, len(formats))
	for _, f := range formats {
		if f.AudioChannels > 0 && f.Width == 0 && f.Height == 0 {
			audio = append(audio, f)
		}
	}
	if len(audio) == 0 {
		return nil, errors.New("no audio-only formats available")
	}

	for _, clause := range clauses {
		var best *youtube.Format
		for i := range audio {
			f := &audio[i]
			if clause.ext != "" && mimeToExt(f.MimeType) != clause.ext {
				continue
			}
			if best == nil || bitrateForFormat(f) > bitrateForFormat(best) {
				best = f
			}
		}
		if best != nil {
			return best, nil
		}
	}
	return nil, fmt.Errorf("no audio format matches selector clauses %v", clauses)
}

func bitrateForFormat(f *youtube.Format) int {
	if f.Bitrate > 0 {
		return f.Bitrate
	}
	return f.AverageBitrate
}

// mimeToExt maps a MIME type to the container extension used in quality
// expressions and file names. Audio inside an mp4 container is m4a.
func mimeToExt(mimeType string) string {
	media := mimeType
	if i := strings.Index(media, ";"); i >= 0 {
		media = media[:i]
	}
	parts := strings.Split(strings.TrimSpace(media), "/")
	if len(parts) != 2 || parts[1] == "" {
		return ""
	}
	switch parts[1] {
	case "mp4":
		if parts[0] == "audio" {
			return "m4a"
		}
		return "mp4"
	case "3gpp":
		return "3gp"
	default:
		return parts[1]
	}
}
