package gemini

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"google.golang.org/genai"

	"github.com/scribe-dev/scribe-api/internal/config"
	"github.com/scribe-dev/scribe-api/internal/domain"
	"github.com/scribe-dev/scribe-api/internal/pipeline"
)

// maxTranscriptChars bounds how much transcript text is sent to the API.
// Long recordings are summarized from their head, matching the original
// behavior of the service.
const maxTranscriptChars = 8000

// generateFunc issues one generation request. It is a field rather than a
// direct client call so tests can substitute canned responses.
type generateFunc func(
	ctx context.Context,
	model string,
	contents []*genai.Content,
	cfg *genai.GenerateContentConfig,
) (*genai.GenerateContentResponse, error)

// Summarizer implements pipeline.SummaryEngine using Google's Gemini API.
// Each Summarize call makes a single generation attempt: a summarization
// round-trip takes long enough that silent retries would stall failure
// reporting for the whole task.
type Summarizer struct {
	logger   *slog.Logger
	model    string
	generate generateFunc
}

// NewSummarizer creates a Summarizer from the LLM configuration. The context
// is used for client initialization only.
func NewSummarizer(ctx context.Context, logger *slog.Logger, cfg config.LLMConfig) (*Summarizer, error) {
	if logger == nil {
		return nil, errors.New("logger cannot be nil")
	}
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("%w: gemini API key cannot be empty", pipeline.ErrInvalidConfig)
	}
	if cfg.ModelName == "" {
		return nil, fmt.Errorf("%w: model name cannot be empty", pipeline.ErrInvalidConfig)
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.GeminiAPIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Gemini client: %v", pipeline.ErrInvalidConfig, err)
	}

	return &Summarizer{
		logger:   logger.With("component", "gemini_summarizer"),
		model:    cfg.ModelName,
		generate: client.Models.GenerateContent,
	}, nil
}

// Summarize sends the transcript to Gemini and parses the structured
// response. The transcript is truncated to maxTranscriptChars.
func (s *Summarizer) Summarize(ctx context.Context, text string) (*domain.Summary, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyTranscript
	}

	prompt := buildPrompt(text)
	raw, err := s.call(ctx, prompt)
	if err != nil {
		return nil, err
	}

	return parseSummary(raw)
}

func buildPrompt(text string) string {
	runes := []rune(text)
	if len(runes) > maxTranscriptChars {
		text = string(runes[:maxTranscriptChars])
	}
	return `Analyze this transcript. Respond with JSON {"title": "", "summary": "", "tags": []}. ` +
		`Write the title and summary in the transcript's language: ` + text
}

// call makes a single generation attempt. Failures surface immediately so
// the task reports its error without a multi-minute silent retry window;
// acquisition is the only pipeline stage that retries.
func (s *Summarizer) call(ctx context.Context, prompt string) (string, error) {
	s.logger.InfoContext(ctx, "calling Gemini API", "model", s.model)

	resp, err := s.generate(ctx, s.model, genai.Text(prompt), &genai.GenerateContentConfig{
		ResponseMIMEType: "application/json",
	})
	if err != nil {
		s.logger.ErrorContext(ctx, "Gemini API call failed", "error", err)
		return "", fmt.Errorf("%w: %v", pipeline.ErrSummarization, err)
	}

	return extractText(resp)
}

// extractText pulls the text payload out of a generation response,
// distinguishing safety blocks from structurally empty responses.
func extractText(resp *genai.GenerateContentResponse) (string, error) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", fmt.Errorf("%w: no content generated", pipeline.ErrInvalidResponse)
	}

	candidate := resp.Candidates[0]
	if candidate.FinishReason == genai.FinishReasonSafety {
		return "", ErrContentBlocked
	}
	if candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", fmt.Errorf("%w: empty content in response", pipeline.ErrInvalidResponse)
	}

	var sb strings.Builder
	for _, part := range candidate.Content.Parts {
		sb.WriteString(part.Text)
	}
	return sb.String(), nil
}

// parseSummary decodes the model's JSON, tolerating markdown code fences the
// model sometimes wraps around it.
func parseSummary(raw string) (*domain.Summary, error) {
	cleaned := strings.TrimSpace(raw)
	cleaned = strings.TrimPrefix(cleaned, "```json")
	cleaned = strings.TrimPrefix(cleaned, "```")
	cleaned = strings.TrimSuffix(cleaned, "```")
	cleaned = strings.TrimSpace(cleaned)

	var summary domain.Summary
	if err := json.Unmarshal([]byte(cleaned), &summary); err != nil {
		return nil, fmt.Errorf("%w: failed to parse JSON response: %v", pipeline.ErrInvalidResponse, err)
	}
	if summary.Title == "" && summary.Summary == "" {
		return nil, fmt.Errorf("%w: response carries no title or summary", pipeline.ErrInvalidResponse)
	}
	return &summary, nil
}
