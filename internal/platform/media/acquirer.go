package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/pipeline"
)

// YtDlpAcquirer fetches remote media with yt-dlp and resolves upload sources
// to their already-saved files. Downloads are normalized to 16 kHz mono WAV
// by yt-dlp's ffmpeg post-processor so the extraction stage can be skipped
// for URL sources.
type YtDlpAcquirer struct {
	binary     string
	retries    int
	retryDelay time.Duration
	logger     *slog.Logger
}

// YtDlpOption customizes a YtDlpAcquirer.
type YtDlpOption func(*YtDlpAcquirer)

// WithBinary overrides the yt-dlp binary path.
func WithBinary(path string) YtDlpOption {
	return func(a *YtDlpAcquirer) { a.binary = path }
}

// NewYtDlpAcquirer creates an acquirer that retries failed downloads up to
// retries times, waiting retryDelay between attempts.
func NewYtDlpAcquirer(retries int, retryDelay time.Duration, logger *slog.Logger, opts ...YtDlpOption) *YtDlpAcquirer {
	a := &YtDlpAcquirer{
		binary:     "yt-dlp",
		retries:    retries,
		retryDelay: retryDelay,
		logger:     logger.With("component", "ytdlp_acquirer"),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Acquire resolves the source to a local file path. Upload sources must
// already exist on disk; URL sources are downloaded into destDir.
func (a *YtDlpAcquirer) Acquire(ctx context.Context, source domain.Source, destDir string) (string, error) {
	if source.Kind == domain.SourceKindUpload {
		info, err := os.Stat(source.Path)
		if err != nil {
			return "", fmt.Errorf("%w: uploaded file missing: %v", pipeline.ErrAcquisition, err)
		}
		if info.Size() == 0 {
			return "", fmt.Errorf("%w: uploaded file is empty", pipeline.ErrAcquisition)
		}
		return source.Path, nil
	}

	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating download dir: %v", pipeline.ErrAcquisition, err)
	}

	var lastErr error
	for attempt := 0; attempt <= a.retries; attempt++ {
		if attempt > 0 {
			a.logger.Warn("retrying download",
				"attempt", attempt,
				"max_retries", a.retries,
				"error", lastErr)
			select {
			case <-time.After(a.retryDelay):
			case <-ctx.Done():
				return "", fmt.Errorf("%w: %v", pipeline.ErrAcquisition, ctx.Err())
			}
		}

		path, err := a.download(ctx, source.Address, destDir)
		if err == nil {
			return path, nil
		}
		lastErr = err
		if ctx.Err() != nil {
			break
		}
	}

	return "", fmt.Errorf("%w: %v", pipeline.ErrAcquisition, lastErr)
}

func (a *YtDlpAcquirer) download(ctx context.Context, url, destDir string) (string, error) {
	if _, err := exec.LookPath(a.binary); err != nil {
		return "", fmt.Errorf("%s not found in PATH: %w", a.binary, err)
	}

	// --print after_move:filepath reports the final post-processed path on
	// stdout, so no output-template guessing is needed.
	args := []string{
		"--no-playlist",
		"--format", "bestaudio/best",
		"--extract-audio",
		"--audio-format", "wav",
		"--audio-quality", "0",
		"--postprocessor-args", "ffmpeg:-ar 16000 -ac 1",
		"--output", filepath.Join(destDir, "%(id)s.%(ext)s"),
		"--print", "after_move:filepath",
		"--no-simulate",
		"--quiet",
		url,
	}

	cmd := exec.CommandContext(ctx, a.binary, args...)
	out, err := cmd.Output()
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			return "", fmt.Errorf("yt-dlp failed: %w: %s", err, string(exitErr.Stderr))
		}
		return "", fmt.Errorf("yt-dlp failed: %w", err)
	}

	path := trimNewline(string(out))
	if path == "" {
		return "", fmt.Errorf("yt-dlp reported no output file for %s", url)
	}
	if _, err := os.Stat(path); err != nil {
		return "", fmt.Errorf("yt-dlp output missing: %w", err)
	}
	return path, nil
}

func trimNewline(s string) string {
	for len(s) > 0 && (s[len(s)-1] == '\n' || s[len(s)-1] == '\r') {
		s = s[:len(s)-1]
	}
	return s
}
