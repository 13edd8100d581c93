package media

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/scribe-dev/scribe-api/internal/pipeline"
)

// FFmpegExtractor converts arbitrary media files into 16 kHz mono WAV for the
// transcription engine. Files that already carry the normalized extension are
// passed through untouched.
type FFmpegExtractor struct {
	binary string
	logger *slog.Logger
}

// NewFFmpegExtractor creates an extractor using the ffmpeg binary from PATH.
func NewFFmpegExtractor(logger *slog.Logger) *FFmpegExtractor {
	return &FFmpegExtractor{
		binary: "ffmpeg",
		logger: logger.With("component", "ffmpeg_extractor"),
	}
}

// ExtractAudio writes a normalized WAV next to destDir and returns its path.
func (f *FFmpegExtractor) ExtractAudio(ctx context.Context, mediaPath, destDir string) (string, error) {
	if strings.EqualFold(filepath.Ext(mediaPath), ".wav") {
		return mediaPath, nil
	}

	if _, err := exec.LookPath(f.binary); err != nil {
		return "", fmt.Errorf("%w: %s not found in PATH: %v", pipeline.ErrProcessing, f.binary, err)
	}
	if err := os.MkdirAll(destDir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating audio dir: %v", pipeline.ErrProcessing, err)
	}

	base := strings.TrimSuffix(filepath.Base(mediaPath), filepath.Ext(mediaPath))
	outPath := filepath.Join(destDir, base+".wav")

	// -vn drops any video stream; -ar/-ac normalize the sample rate and
	// channel count the transcription model expects.
	args := []string{
		"-i", mediaPath,
		"-vn",
		"-acodec", "pcm_s16le",
		"-ar", "16000",
		"-ac", "1",
		"-y",
		outPath,
	}

	cmd := exec.CommandContext(ctx, f.binary, args...)
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("%w: ffmpeg failed: %v: %s", pipeline.ErrProcessing, err, tail(string(out), 512))
	}

	f.logger.Debug("extracted audio", "input", mediaPath, "output", outPath)
	return outPath, nil
}

// tail returns at most n trailing bytes of s; ffmpeg puts the useful error on
// the last lines of a very chatty log.
func tail(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return "..." + s[len(s)-n:]
}
