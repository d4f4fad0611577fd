// internal/llmclient/gemini_client.go
package llmclient

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"go.uber.org/zap"
	"google.golang.org/genai"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
)

// GeminiClient implements schemas.LLMClient on the Google GenAI SDK.
type GeminiClient struct {
	client     *genai.Client
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
	policy     *callPolicy
}

// Ensure GeminiClient implements the interface.
var _ schemas.LLMClient = (*GeminiClient)(nil)

// NewGeminiClient initializes the SDK client. cfg.Endpoint, when set, replaces the API base URL.
func NewGeminiClient(ctx context.Context, cfg config.LLMConfig, logger *zap.Logger) (*GeminiClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("Gemini API key is required")
	}

	log := logger.Named("llm_client.gemini")
	httpClient := newHTTPClient(cfg, log)

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: httpClient,
	}
	if cfg.Endpoint != "" {
		clientConfig.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.Endpoint}
	}

	client, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	return &GeminiClient{
		client:     client,
		httpClient: httpClient,
		logger:     log,
		config:     cfg,
		policy:     newCallPolicy(cfg),
	}, nil
}

// Generate runs GenerateContent and returns the response text.
func (c *GeminiClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	genConfig := c.buildGenerateConfig(req)

	var text string
	operation := func() error {
		start := time.Now()
		resp, err := c.client.Models.GenerateContent(ctx, c.config.Model, genai.Text(req.UserPrompt), genConfig)
		if err != nil {
			return c.classifyError(ctx, err)
		}
		if resp == nil || len(resp.Candidates) == 0 {
			return backoff.Permanent(ErrNoChoices)
		}

		text = resp.Text()
		if text == "" {
			c.logger.Warn("Gemini returned a candidate without text", zap.String("finish_reason", string(resp.Candidates[0].FinishReason)))
			return backoff.Permanent(ErrNoChoices)
		}

		fields := []zap.Field{zap.Duration("duration", time.Since(start))}
		if resp.UsageMetadata != nil {
			fields = append(fields,
				zap.Int32("prompt_tokens", resp.UsageMetadata.PromptTokenCount),
				zap.Int32("completion_tokens", resp.UsageMetadata.CandidatesTokenCount),
			)
		}
		c.logger.Debug("Completion received", fields...)
		return nil
	}

	if err := c.policy.do(ctx, operation); err != nil {
		return "", err
	}
	return text, nil
}

func (c *GeminiClient) buildGenerateConfig(req schemas.GenerationRequest) *genai.GenerateContentConfig {
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := float32(req.Options.Temperature)
	if temperature == 0 {
		temperature = c.config.Temperature
	}

	genConfig := &genai.GenerateContentConfig{
		MaxOutputTokens: int32(maxTokens),
		Temperature:     genai.Ptr(temperature),
	}
	if req.SystemPrompt != "" {
		genConfig.SystemInstruction = genai.NewContentFromText(req.SystemPrompt, genai.RoleUser)
	}
	return genConfig
}

// classifyError maps SDK errors onto the package's error types and retry semantics.
func (c *GeminiClient) classifyError(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return backoff.Permanent(ctx.Err())
	}

	var sdkErr genai.APIError
	if errors.As(err, &sdkErr) {
		apiErr := &APIError{Provider: "gemini", StatusCode: sdkErr.Code, Body: sdkErr.Message}
		c.logger.Error("Gemini API returned error status", zap.Int("status", sdkErr.Code), zap.Bool("transient", apiErr.Transient()))
		if apiErr.Transient() {
			return apiErr
		}
		return backoff.Permanent(apiErr)
	}

	c.logger.Warn("Network error during Gemini request, retrying...", zap.Error(err))
	return fmt.Errorf("gemini request failed: %w", err)
}

// Close releases idle connections held by the SDK's HTTP client.
func (c *GeminiClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
