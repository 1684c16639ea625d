package openai

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"go.uber.org/zap"

	"github.com/kailas-cloud/lorelink/internal/domain"
	"github.com/kailas-cloud/lorelink/internal/metrics"
)

const systemPrompt = "You summarize tabletop campaign wiki entries. " +
	"Reply with at most two plain sentences. Keep proper names exactly as written. No markdown."

// Summarizer shortens long entity descriptions using an OpenAI-compatible chat API.
type Summarizer struct {
	client    *openai.Client
	model     string
	maxTokens int
	timeout   time.Duration
	logger    *zap.Logger
}

// Config holds the summarizer settings.
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	MaxTokens int
	Timeout   time.Duration
	Logger    *zap.Logger
}

// NewSummarizer creates an OpenAI-compatible summarizer.
func NewSummarizer(cfg *Config) *Summarizer {
	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}
	maxTokens := cfg.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 120
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Summarizer{
		client:    openai.NewClientWithConfig(clientCfg),
		model:     cfg.Model,
		maxTokens: maxTokens,
		timeout:   cfg.Timeout,
		logger:    logger,
	}
}

// Summarize implements domain.Summarizer. Errors wrap domain.ErrSummarizerError.
func (s *Summarizer) Summarize(ctx context.Context, description string) (string, error) {
	summary, _, err := s.SummarizeWithUsage(ctx, description)
	return summary, err
}

// SummarizeWithUsage is Summarize that also returns the tokens billed for the request.
func (s *Summarizer) SummarizeWithUsage(ctx context.Context, description string) (string, int, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	req := openai.ChatCompletionRequest{
		Model: s.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: description},
		},
		MaxTokens:   s.maxTokens,
		Temperature: 0.2,
	}

	start := time.Now()
	resp, err := s.client.CreateChatCompletion(ctx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.SummarizerRequestsTotal.WithLabelValues("error").Inc()
		s.logger.Debug("Summarizer request failed", zap.String("model", s.model), zap.Duration("duration", duration), zap.Error(err))
		return "", 0, parseAPIError(err)
	}

	tokens := resp.Usage.TotalTokens
	metrics.SummarizerTokensTotal.Add(float64(tokens))

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		metrics.SummarizerRequestsTotal.WithLabelValues("error").Inc()
		return "", tokens, fmt.Errorf("empty completion: %w", domain.ErrSummarizerError)
	}

	metrics.SummarizerRequestsTotal.WithLabelValues("success").Inc()
	metrics.SummarizerRequestDuration.Observe(duration.Seconds())

	return strings.TrimSpace(resp.Choices[0].Message.Content), tokens, nil
}

// HealthCheck verifies API availability via ListModels (free endpoint).
func (s *Summarizer) HealthCheck(ctx context.Context) error {
	if _, err := s.client.ListModels(ctx); err != nil {
		return fmt.Errorf("list models: %w", err)
	}
	return nil
}

// parseAPIError extracts a human-readable error from the API response.
// All errors are wrapped with domain.ErrSummarizerError.
func parseAPIError(err error) error {
	wrap := domain.ErrSummarizerError

	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("summarizer API error %d: %s: %w", reqErr.HTTPStatusCode, detail, wrap)
		}
		return fmt.Errorf("summarizer API error %d: %s: %w", reqErr.HTTPStatusCode, string(reqErr.Body), wrap)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("summarizer API error %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, wrap)
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("summarizer timed out: %w", wrap)
	}
	return fmt.Errorf("summarizer request failed: %w", wrap)
}

// extractDetail extracts the "detail" field from a JSON error body.
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
