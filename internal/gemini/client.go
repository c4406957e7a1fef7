// Package gemini implements integration with Google's Gemini AI API.
// It generates chat replies, media descriptions and search summaries for the bot.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"google.golang.org/genai"

	"github.com/edgard/scribebot/internal/config"
	"github.com/edgard/scribebot/internal/resilience"
	"github.com/edgard/scribebot/internal/retry"
	"github.com/edgard/scribebot/internal/sanitize"
)

// ErrNoContent is returned when a response carries no usable text.
var ErrNoContent = errors.New("gemini returned no content")

const (
	breakerFailures    = 5
	breakerOpenTimeout = time.Minute
)

// Client defines the interface for AI operations used throughout the application.
type Client interface {
	// GenerateText returns the model's reply to a free-form user message.
	GenerateText(ctx context.Context, prompt string) (string, error)

	// Describe returns a description of text extracted from a photo or document.
	Describe(ctx context.Context, extracted string) (string, error)

	// Summarize returns a summary of web search results for query.
	Summarize(ctx context.Context, query string, hits []SearchHit) (string, error)
}

// contentGenerator is the subset of *genai.Models the client calls.
type contentGenerator interface {
	GenerateContent(ctx context.Context, model string, contents []*genai.Content, config *genai.GenerateContentConfig) (*genai.GenerateContentResponse, error)
}

type sdkClient struct {
	models           contentGenerator
	log              *slog.Logger
	contentConfig    *genai.GenerateContentConfig
	defaultModelName string
	descriptionModel string
	timeout          time.Duration
	policy           retry.Policy
	breaker          *resilience.CircuitBreaker
	plain            *sanitize.Policy
}

// NewClient creates a new Gemini AI client with the provided configuration.
// It initializes the connection to the Gemini API and sets up necessary parameters.
//
//nolint:ireturn // callers depend on the interface so tests can fake it
func NewClient(
	ctx context.Context,
	cfg config.GeminiConfig,
	log *slog.Logger,
) (Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	gi, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	c := newSDKClient(gi.Models, cfg, log)
	c.log.Info("Gemini client initialized successfully", "model", c.defaultModelName, "description_model", c.descriptionModel)
	return c, nil
}

func newSDKClient(models contentGenerator, cfg config.GeminiConfig, log *slog.Logger) *sdkClient {
	if log == nil {
		log = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	temperature := cfg.Temperature
	baseCfg := &genai.GenerateContentConfig{
		Temperature: &temperature,

		SafetySettings: []*genai.SafetySetting{
			{Category: genai.HarmCategoryHarassment, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
			{Category: genai.HarmCategoryHateSpeech, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
			{Category: genai.HarmCategorySexuallyExplicit, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
			{Category: genai.HarmCategoryDangerousContent, Threshold: genai.HarmBlockThresholdBlockOnlyHigh},
		},
	}

	return &sdkClient{
		models:           models,
		log:              log.With("component", "gemini_client"),
		contentConfig:    baseCfg,
		defaultModelName: cfg.ModelName,
		descriptionModel: cfg.DescriptionModel(),
		timeout:          cfg.Timeout,
		policy:           cfg.RetryPolicy(),
		breaker: resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			Name:        "gemini",
			MaxFailures: breakerFailures,
			OpenTimeout: breakerOpenTimeout,
		}, log),
		plain: sanitize.NewTelegramPolicy(),
	}
}

func (c *sdkClient) GenerateText(ctx context.Context, prompt string) (string, error) {
	c.log.DebugContext(ctx, "Generating reply", "prompt_length", len(prompt))

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, prompt)
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini reply generation failed", "error", err)
		return "", fmt.Errorf("gemini reply generation failed: %w", err)
	}

	if err := checkBlocked(resp); err != nil {
		c.log.WarnContext(ctx, "Gemini reply blocked", "error", err)
		return "", err
	}

	text := c.plain.SanitizeText(resp.Text())
	if text == "" {
		c.log.WarnContext(ctx, "Gemini reply is empty", "finish_reason", finishReason(resp))
		return "", ErrNoContent
	}
	return text, nil
}

func (c *sdkClient) Describe(ctx context.Context, extracted string) (string, error) {
	c.log.DebugContext(ctx, "Generating description", "model", c.descriptionModel, "text_length", len(extracted))

	resp, err := c.generateContentWithRetries(ctx, c.descriptionModel, descriptionPrompt(extracted))
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini description failed", "error", err)
		return "", fmt.Errorf("gemini description failed: %w", err)
	}

	text, ok := FirstPartText(resp)
	if !ok {
		c.log.WarnContext(ctx, "Gemini description missing", "finish_reason", finishReason(resp))
		return "", ErrNoContent
	}
	if text = c.plain.SanitizeText(text); text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func (c *sdkClient) Summarize(ctx context.Context, query string, hits []SearchHit) (string, error) {
	c.log.DebugContext(ctx, "Generating search summary", "hits", len(hits))

	resp, err := c.generateContentWithRetries(ctx, c.defaultModelName, summaryPrompt(query, hits))
	if err != nil {
		c.log.ErrorContext(ctx, "Gemini summary failed", "error", err)
		return "", fmt.Errorf("gemini summary failed: %w", err)
	}

	text := c.plain.SanitizeText(resp.Text())
	if text == "" {
		return "", ErrNoContent
	}
	return text, nil
}

func (c *sdkClient) generateContentWithRetries(ctx context.Context, modelName, prompt string) (*genai.GenerateContentResponse, error) {
	contents := []*genai.Content{genai.NewContentFromText(prompt, genai.RoleUser)}

	var resp *genai.GenerateContentResponse
	err := c.breaker.Execute(ctx, func(ctx context.Context) error {
		return retry.Do(ctx, c.policy,
			func(err error) bool { return isRetriable(ctx, err) },
			func(attempt int, delay time.Duration, err error) {
				c.log.InfoContext(ctx, "Retrying Gemini API call", "attempt", attempt, "max_retries", c.policy.MaxRetries, "delay", delay, "error", err)
			},
			func(ctx context.Context) error {
				callCtx, cancel := c.withTimeout(ctx)
				defer cancel()

				r, err := c.models.GenerateContent(callCtx, modelName, contents, c.contentConfig)
				if err != nil {
					return err
				}
				resp = r
				return nil
			})
	})
	if err != nil {
		return nil, err
	}
	if resp == nil {
		return nil, ErrNoContent
	}
	return resp, nil
}

func (c *sdkClient) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if c.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, c.timeout)
}

// isRetriable reports whether err is a rate limit, a transient server error,
// or a per-attempt timeout while the caller's context is still alive.
func isRetriable(parent context.Context, err error) bool {
	var apiErr genai.APIError
	var apiErrPtr *genai.APIError
	switch {
	case errors.As(err, &apiErr):
		return retriableCode(apiErr.Code)
	case errors.As(err, &apiErrPtr):
		return retriableCode(apiErrPtr.Code)
	case errors.Is(err, context.DeadlineExceeded):
		return parent.Err() == nil
	default:
		return false
	}
}

func retriableCode(code int) bool {
	switch code {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	default:
		return false
	}
}

// FirstPartText returns the text of the first part of the first candidate.
// The second result is false when any level of that chain is missing or the
// text is blank.
func FirstPartText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}
	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 {
		return "", false
	}
	part := candidate.Content.Parts[0]
	if part == nil || strings.TrimSpace(part.Text) == "" {
		return "", false
	}
	return part.Text, true
}

func checkBlocked(resp *genai.GenerateContentResponse) error {
	if resp.PromptFeedback == nil {
		return nil
	}
	switch resp.PromptFeedback.BlockReason {
	case "", genai.BlockedReasonUnspecified:
		return nil
	}
	reason := fmt.Sprintf("%v", resp.PromptFeedback.BlockReason)
	if resp.PromptFeedback.BlockReasonMessage != "" {
		reason = resp.PromptFeedback.BlockReasonMessage
	}
	return fmt.Errorf("%w: blocked by safety filter: %s", ErrNoContent, reason)
}

func finishReason(resp *genai.GenerateContentResponse) string {
	if resp == nil || len(resp.Candidates) == 0 || resp.Candidates[0] == nil {
		return "unknown"
	}
	return fmt.Sprintf("%v", resp.Candidates[0].FinishReason)
}
