package llmclient

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xkilldash9x/xpathfinder/internal/config"
)

const geminiSuccessBody = `{
  "candidates": [
    {
      "content": {"role": "model", "parts": [{"text": "//textarea[@name='q']"}]},
      "finishReason": "STOP"
    }
  ],
  "usageMetadata": {"promptTokenCount": 12, "candidatesTokenCount": 5, "totalTokenCount": 17}
}`

// setupGeminiClient rigs up a GeminiClient pointed at a mock HTTP server.
func setupGeminiClient(t *testing.T, handler http.HandlerFunc) *GeminiClient {
	t.Helper()
	server := newTestServer(t, handler)
	logger, _ := setupTestLogger(t)

	cfg := getValidLLMConfig(config.ProviderGemini)
	cfg.Endpoint = server.URL

	client, err := NewGeminiClient(context.Background(), cfg, logger)
	require.NoError(t, err, "NewGeminiClient initialization failed")
	client.policy.backoffFactory = fastBackoff
	return client
}

func TestNewGeminiClient_MissingAPIKey(t *testing.T) {
	logger, _ := setupTestLogger(t)
	cfg := getValidLLMConfig(config.ProviderGemini)
	cfg.APIKey = ""

	client, err := NewGeminiClient(context.Background(), cfg, logger)
	assert.Nil(t, client)
	assert.ErrorContains(t, err, "Gemini API key is required")
}

func TestGeminiBuildGenerateConfig(t *testing.T) {
	client := setupGeminiClient(t, nil)
	client.config.Temperature = 0.4

	genConfig := client.buildGenerateConfig(createTestRequest())
	assert.Equal(t, int32(32), genConfig.MaxOutputTokens)
	require.NotNil(t, genConfig.Temperature)
	assert.InDelta(t, 0.4, *genConfig.Temperature, 1e-6)
	require.NotNil(t, genConfig.SystemInstruction)
	require.Len(t, genConfig.SystemInstruction.Parts, 1)
	assert.Equal(t, "Return only an XPath.", genConfig.SystemInstruction.Parts[0].Text)

	req := createTestRequest()
	req.SystemPrompt = ""
	req.Options.MaxTokens = 0
	genConfig = client.buildGenerateConfig(req)
	assert.Equal(t, int32(64), genConfig.MaxOutputTokens)
	assert.Nil(t, genConfig.SystemInstruction)
}

func TestGeminiGenerate_Success(t *testing.T) {
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.True(t, strings.HasSuffix(r.URL.Path, "test-model:generateContent"), "unexpected path %s", r.URL.Path)

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		assert.Contains(t, string(body), "input id='q'")
		assert.Contains(t, string(body), "maxOutputTokens")

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(geminiSuccessBody))
	})

	text, err := client.Generate(context.Background(), createTestRequest())
	require.NoError(t, err)
	assert.Equal(t, "//textarea[@name='q']", text)
}

func TestGeminiGenerate_NoCandidates(t *testing.T) {
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"candidates": []}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())
	assert.ErrorIs(t, err, ErrNoChoices)
}

func TestGeminiGenerate_PermanentAPIError(t *testing.T) {
	client := setupGeminiClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": {"code": 400, "message": "API key not valid", "status": "INVALID_ARGUMENT"}}`))
	})

	_, err := client.Generate(context.Background(), createTestRequest())

	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "expected *APIError, got %T: %v", err, err)
	assert.Equal(t, "gemini", apiErr.Provider)
	assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)
	assert.Contains(t, apiErr.Body, "API key not valid")
}
