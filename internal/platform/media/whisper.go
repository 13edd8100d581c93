package media

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/pipeline"
)

// unknownSpeaker labels segments before diarization has attributed them.
const unknownSpeaker = "UNKNOWN"

// progressLine matches whisper-cli's periodic progress report on stderr.
var progressLine = regexp.MustCompile(`progress\s*=\s*(\d+)%`)

// WhisperEngine transcribes normalized audio by shelling out to whisper-cli
// and parsing its JSON output file.
type WhisperEngine struct {
	binary    string
	modelPath string
	language  string
	logger    *slog.Logger
}

// NewWhisperEngine creates a transcription engine for the given model file
// and language hint.
func NewWhisperEngine(modelPath, language string, logger *slog.Logger) (*WhisperEngine, error) {
	if modelPath == "" {
		return nil, fmt.Errorf("%w: whisper model path is required", pipeline.ErrInvalidConfig)
	}
	return &WhisperEngine{
		binary:    "whisper-cli",
		modelPath: modelPath,
		language:  language,
		logger:    logger.With("component", "whisper_engine"),
	}, nil
}

// whisperOutput mirrors the JSON file whisper-cli writes with --output-json.
type whisperOutput struct {
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// Transcribe runs whisper-cli on audioPath and returns the ordered segments.
// Progress reported by the binary is forwarded to the progress callback.
func (w *WhisperEngine) Transcribe(ctx context.Context, audioPath string, progress pipeline.ProgressFunc) (*pipeline.Transcript, error) {
	if _, err := exec.LookPath(w.binary); err != nil {
		return nil, fmt.Errorf("%w: %s not found in PATH: %v", pipeline.ErrProcessing, w.binary, err)
	}

	outBase := strings.TrimSuffix(audioPath, filepath.Ext(audioPath))
	args := []string{
		"--model", w.modelPath,
		"--file", audioPath,
		"--output-json",
		"--output-file", outBase,
		"--print-progress",
		"--no-prints",
	}
	if w.language != "" {
		args = append(args, "--language", w.language)
	}

	cmd := exec.CommandContext(ctx, w.binary, args...)
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", pipeline.ErrProcessing, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("%w: starting whisper-cli: %v", pipeline.ErrProcessing, err)
	}

	var lastLines []string
	scanner := bufio.NewScanner(stderr)
	for scanner.Scan() {
		line := scanner.Text()
		if m := progressLine.FindStringSubmatch(line); m != nil {
			if pct, err := strconv.Atoi(m[1]); err == nil && progress != nil {
				progress(pct)
			}
			continue
		}
		lastLines = append(lastLines, line)
		if len(lastLines) > 8 {
			lastLines = lastLines[1:]
		}
	}

	if err := cmd.Wait(); err != nil {
		return nil, fmt.Errorf("%w: whisper-cli failed: %v: %s",
			pipeline.ErrProcessing, err, strings.Join(lastLines, " | "))
	}
	if progress != nil {
		progress(100)
	}

	return w.parseOutput(outBase + ".json")
}

func (w *WhisperEngine) parseOutput(jsonPath string) (*pipeline.Transcript, error) {
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		return nil, fmt.Errorf("%w: reading transcription output: %v", pipeline.ErrProcessing, err)
	}

	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("%w: parsing transcription output: %v", pipeline.ErrInvalidResponse, err)
	}

	transcript := &pipeline.Transcript{
		Segments: make([]domain.Segment, 0, len(out.Transcription)),
	}
	var text strings.Builder
	for _, seg := range out.Transcription {
		trimmed := strings.TrimSpace(seg.Text)
		if trimmed == "" {
			continue
		}
		transcript.Segments = append(transcript.Segments, domain.Segment{
			Start:   float64(seg.Offsets.From) / 1000,
			End:     float64(seg.Offsets.To) / 1000,
			Text:    trimmed,
			Speaker: unknownSpeaker,
		})
		if text.Len() > 0 {
			text.WriteByte(' ')
		}
		text.WriteString(trimmed)
	}
	transcript.Text = text.String()

	w.logger.Debug("parsed transcription", "segments", len(transcript.Segments))
	return transcript, nil
}
