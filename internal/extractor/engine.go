// Package extractor adapts the YouTube innertube client into the extraction
// engine contract: fetch one media item, download its best audio stream and
// report the realized file alongside the raw metadata record.
package extractor

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"

	"github.com/kkdai/youtube/v2"
	"go.uber.org/zap"

	"cadenza/pkg/resolve"
)

// playlistURLRegex recognizes collection identifiers in watch and playlist
// URLs.
var playlistURLRegex = regexp.MustCompile(`[?&]list=([A-Za-z0-9_-]{13,42})`)

// Engine downloads audio streams and produces extraction records.
type Engine struct {
	logger *zap.Logger
}

func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("extractor")}
}

// Extract fetches the media item behind mediaURL, downloads the audio stream
// selected by cfg.FormatSelector and returns the raw record. The realized
// output path is reported under the "filepath" key.
func (e *Engine) Extract(ctx context.Context, mediaURL string, cfg resolve.EngineConfig) (resolve.Record, error) {
	// No post-processing tool is assumed present, so transforms and fixups
	// cannot be honored. Refusing is better than silently skipping them.
	if !cfg.DisablePostprocessing {
		return nil, errors.New("post-processing transforms are not supported")
	}
	if cfg.Fixup == resolve.FixupAuto {
		return nil, errors.New("metadata fixup requires a post-processing tool")
	}

	if cfg.CacheDir != "" {
		if err := os.MkdirAll(cfg.CacheDir, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache dir: %w", err)
		}
	}

	client := e.newClient(cfg)
	video, err := e.lookupVideo(ctx, client, mediaURL, cfg)
	if err != nil {
		return nil, err
	}

	format, err := pickAudioFormat(video.Formats, parseFormatSelector(cfg.FormatSelector))
	if err != nil {
		return nil, err
	}
	ext := mimeToExt(format.MimeType)
	if ext == "" {
		ext = "bin"
	}

	template := cfg.OutputPathTemplate
	if template == "" {
		template = filepath.Join(os.TempDir(), "{uploader_id}-{id}.{ext}")
	}
	outPath := expandOutputPath(template, video, ext)
	if abs, absErr := filepath.Abs(outPath); absErr == nil {
		outPath = abs
	}
	if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
		return nil, fmt.Errorf("creating output dir: %w", err)
	}

	e.logger.Info("Downloading audio stream",
		zap.String("video_id", video.ID),
		zap.Int("itag", format.ItagNo),
		zap.String("mime_type", format.MimeType),
		zap.String("path", outPath))
	if cfg.Verbose {
		fmt.Printf("downloading %s (itag %d, %s) -> %s\n", video.ID, format.ItagNo, format.MimeType, outPath)
	}

	written, err := e.download(ctx, client, video, format, outPath)
	if err != nil {
		return nil, err
	}
	if cfg.Verbose {
		fmt.Printf("downloaded %d bytes to %s\n", written, outPath)
	}

	return buildRecord(video, mediaURL, ext, outPath), nil
}

func (e *Engine) newClient(cfg resolve.EngineConfig) *youtube.Client {
	transport := http.DefaultTransport.(*http.Transport).Clone()
	if cfg.InsecureSkipVerify {
		if transport.TLSClientConfig == nil {
			transport.TLSClientConfig = &tls.Config{}
		}
		transport.TLSClientConfig.InsecureSkipVerify = true
	}
	return &youtube.Client{HTTPClient: &http.Client{Transport: transport}}
}

// lookupVideo resolves mediaURL to a single video. Collection URLs without a
// direct video id are narrowed to their first entry.
func (e *Engine) lookupVideo(ctx context.Context, client *youtube.Client, mediaURL string, cfg resolve.EngineConfig) (*youtube.Video, error) {
	if cfg.SingleItemOnly && isPlaylistURL(mediaURL) {
		playlist, err := client.GetPlaylistContext(ctx, mediaURL)
		if err != nil {
			return nil, fmt.Errorf("fetching playlist: %w", err)
		}
		entries := playlist.Videos
		if cfg.PlaylistLimit > 0 && len(entries) > cfg.PlaylistLimit {
			entries = entries[:cfg.PlaylistLimit]
		}
		if len(entries) == 0 {
			return nil, errors.New("playlist has no entries")
		}
		e.logger.Debug("Narrowed playlist to first entry",
			zap.String("playlist_id", playlist.ID),
			zap.String("video_id", entries[0].ID))
		video, err := client.VideoFromPlaylistEntryContext(ctx, entries[0])
		if err != nil {
			return nil, fmt.Errorf("fetching playlist entry: %w", err)
		}
		return video, nil
	}

	video, err := client.GetVideoContext(ctx, mediaURL)
	if err != nil {
		return nil, fmt.Errorf("fetching video: %w", err)
	}
	return video, nil
}

// isPlaylistURL reports whether mediaURL names a collection without also
// naming a concrete video.
func isPlaylistURL(mediaURL string) bool {
	if !playlistURLRegex.MatchString(mediaURL) {
		return false
	}
	u, err := url.Parse(mediaURL)
	if err != nil {
		return true
	}
	return u.Query().Get("v") == ""
}

// download streams the chosen format into outPath, staging through a .part
// file so a partial write never masquerades as a finished asset.
func (e *Engine) download(ctx context.Context, client *youtube.Client, video *youtube.Video, format *youtube.Format, outPath string) (int64, error) {
	stream, size, err := client.GetStreamContext(ctx, video, format)
	if err != nil {
		return 0, fmt.Errorf("opening stream: %w", err)
	}
	defer stream.Close()

	partPath := outPath + ".part"
	out, err := os.Create(partPath)
	if err != nil {
		return 0, fmt.Errorf("creating %s: %w", partPath, err)
	}

	written, err := io.Copy(out, &contextReader{ctx: ctx, r: stream})
	closeErr := out.Close()
	if err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("writing stream: %w", err)
	}
	if size > 0 && written != size {
		e.logger.Warn("Stream size mismatch",
			zap.String("video_id", video.ID),
			zap.Int64("expected", size),
			zap.Int64("written", written))
	}

	if err := os.Rename(partPath, outPath); err != nil {
		_ = os.Remove(partPath)
		return 0, fmt.Errorf("finalizing %s: %w", outPath, err)
	}
	return written, nil
}

// contextReader aborts long stream reads once the context is done.
type contextReader struct {
	ctx context.Context
	r   io.Reader
}

func (c *contextReader) Read(p []byte) (int, error) {
	select {
	case <-c.ctx.Done():
		return 0, c.ctx.Err()
	default:
		return c.r.Read(p)
	}
}

func buildRecord(video *youtube.Video, mediaURL, ext, outPath string) resolve.Record {
	thumbnails := make([]any, 0, len(video.Thumbnails))
	for _, t := range video.Thumbnails {
		thumbnails = append(thumbnails, map[string]any{
			"url":    t.URL,
			"width":  int(t.Width),
			"height": int(t.Height),
		})
	}
	return resolve.Record{
		"id":          video.ID,
		"title":       video.Title,
		"uploader":    video.Author,
		"uploader_id": video.ChannelID,
		"channel":     video.Author,
		"duration":    int(video.Duration.Seconds()),
		"ext":         ext,
		"webpage_url": mediaURL,
		"filepath":    outPath,
		"thumbnails":  thumbnails,
	}
}
