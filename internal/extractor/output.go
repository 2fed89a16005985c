package extractor

import (
	"regexp"
	"strings"

	"github.com/kkdai/youtube/v2"
)

var unsafePathChars = regexp.MustCompile(`[<>:"/\\|?*\x00-\x1F]`)

// sanitizePathComponent replaces characters that are unsafe in file names on
// common filesystems.
func sanitizePathComponent(s string) string {
	return strings.TrimSpace(unsafePathChars.ReplaceAllString(s, "-"))
}

// expandOutputPath fills the {uploader_id}, {id}, {title} and {ext}
// placeholders of template with sanitized video attributes.
func expandOutputPath(template string, video *youtube.Video, ext string) string {
	uploaderID := sanitizePathComponent(video.ChannelID)
	if uploaderID == "" {
		uploaderID = sanitizePathComponent(video.Author)
	}
	if uploaderID == "" {
		uploaderID = "unknown"
	}
	replacer := strings.NewReplacer(
		"{uploader_id}", uploaderID,
		"{id}", sanitizePathComponent(video.ID),
		"{title}", sanitizePathComponent(video.Title),
		"{ext}", ext,
	)
	return replacer.Replace(template)
}
