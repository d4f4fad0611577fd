// internal/llmclient/openai_client.go
package llmclient

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	json "github.com/json-iterator/go"
	"go.uber.org/zap"

	"github.com/xkilldash9x/xpathfinder/api/schemas"
	"github.com/xkilldash9x/xpathfinder/internal/config"
)

const defaultOpenAIEndpoint = "https://api.openai.com/v1/completions"

// OpenAIClient talks to an OpenAI-compatible text completions endpoint
// (request: prompt + max_tokens, response: choices[].text).
type OpenAIClient struct {
	apiKey     string
	endpoint   string
	httpClient *http.Client
	logger     *zap.Logger
	config     config.LLMConfig
	policy     *callPolicy
}

// Ensure OpenAIClient implements the interface.
var _ schemas.LLMClient = (*OpenAIClient)(nil)

// -- Completions API Request/Response Structures --

type completionRequest struct {
	Model       string  `json:"model"`
	Prompt      string  `json:"prompt"`
	MaxTokens   int     `json:"max_tokens"`
	Temperature float64 `json:"temperature"`
}

type completionChoice struct {
	Text         string `json:"text"`
	Index        int    `json:"index"`
	FinishReason string `json:"finish_reason"`
}

type completionResponse struct {
	ID      string             `json:"id"`
	Choices []completionChoice `json:"choices"`
	Usage   struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
}

// NewOpenAIClient initializes the client.
func NewOpenAIClient(cfg config.LLMConfig, logger *zap.Logger) (*OpenAIClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("OpenAI API key is required")
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = defaultOpenAIEndpoint
	}

	log := logger.Named("llm_client.openai")
	return &OpenAIClient{
		apiKey:     cfg.APIKey,
		endpoint:   endpoint,
		config:     cfg,
		httpClient: newHTTPClient(cfg, log),
		logger:     log,
		policy:     newCallPolicy(cfg),
	}, nil
}

// Generate sends the prompt to the completions endpoint and returns the first choice's text.
func (c *OpenAIClient) Generate(ctx context.Context, req schemas.GenerationRequest) (string, error) {
	body, err := json.Marshal(c.buildRequestPayload(req))
	if err != nil {
		return "", fmt.Errorf("failed to marshal request payload: %w", err)
	}

	var text string
	operation := func() error {
		var opErr error
		text, opErr = c.doRequest(ctx, body)
		return opErr
	}

	if err := c.policy.do(ctx, operation); err != nil {
		return "", err
	}
	return text, nil
}

func (c *OpenAIClient) doRequest(ctx context.Context, body []byte) (string, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to create HTTP request: %w", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return "", backoff.Permanent(ctx.Err())
		}
		c.logger.Warn("Network error during completion request, retrying...", zap.Error(err))
		return "", fmt.Errorf("failed to execute HTTP request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Provider: "openai", StatusCode: resp.StatusCode, Body: string(respBody)}
		c.logger.Error("Completion API returned error status", zap.Int("status", resp.StatusCode), zap.Bool("transient", apiErr.Transient()))
		if apiErr.Transient() {
			return "", apiErr
		}
		return "", backoff.Permanent(apiErr)
	}

	var payload completionResponse
	if err := json.Unmarshal(respBody, &payload); err != nil {
		return "", backoff.Permanent(fmt.Errorf("failed to decode response payload: %w", err))
	}
	if len(payload.Choices) == 0 {
		return "", backoff.Permanent(ErrNoChoices)
	}

	c.logger.Debug("Completion received",
		zap.Duration("duration", time.Since(start)),
		zap.Int("prompt_tokens", payload.Usage.PromptTokens),
		zap.Int("completion_tokens", payload.Usage.CompletionTokens),
		zap.String("finish_reason", payload.Choices[0].FinishReason),
	)
	return payload.Choices[0].Text, nil
}

func (c *OpenAIClient) buildRequestPayload(req schemas.GenerationRequest) completionRequest {
	maxTokens := req.Options.MaxTokens
	if maxTokens <= 0 {
		maxTokens = c.config.MaxTokens
	}
	temperature := req.Options.Temperature
	if temperature == 0 {
		temperature = float64(c.config.Temperature)
	}

	// The completions endpoint has no system channel; instructions lead the prompt.
	prompt := req.UserPrompt
	if s := strings.TrimSpace(req.SystemPrompt); s != "" {
		prompt = s + "\n\n" + req.UserPrompt
	}

	return completionRequest{
		Model:       c.config.Model,
		Prompt:      prompt,
		MaxTokens:   maxTokens,
		Temperature: temperature,
	}
}

// Close releases idle connections.
func (c *OpenAIClient) Close() error {
	c.httpClient.CloseIdleConnections()
	return nil
}
