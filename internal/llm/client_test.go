package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewClient_RequiresAPIKey(t *testing.T) {
	_, err := NewClient(context.Background(), DefaultOpenAIConfig(), "")
	assert.ErrorContains(t, err, "API key is required")

	_, err = NewClient(context.Background(), DefaultGeminiConfig(), "")
	assert.ErrorContains(t, err, "API key is required")
}

func TestOpenAIClient_Generate(t *testing.T) {
	var got struct {
		Model       string  `json:"model"`
		Temperature float32 `json:"temperature"`
		MaxTokens   int     `json:"max_tokens"`
		Messages    []struct {
			Role    string `json:"role"`
			Content string `json:"content"`
		} `json:"messages"`
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"c1","object":"chat.completion","choices":[{"index":0,"message":{"role":"assistant","content":"== Page =="},"finish_reason":"stop"}]}`))
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = srv.URL + "/v1/"
	client, err := NewOpenAIClient(cfg, "sk-test")
	require.NoError(t, err)

	text, err := client.Generate(context.Background(), Request{
		System:      "be neutral",
		Prompt:      "write BetStop",
		Tier:        TierAdvanced,
		Temperature: 0.3,
		MaxTokens:   4000,
	})
	require.NoError(t, err)
	assert.Equal(t, "== Page ==", text)

	assert.Equal(t, "gpt-4o", got.Model)
	assert.InDelta(t, 0.3, got.Temperature, 0.0001)
	assert.Equal(t, 4000, got.MaxTokens)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "write BetStop", got.Messages[1].Content)
}

func TestOpenAIClient_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad model","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	cfg := DefaultOpenAIConfig()
	cfg.BaseURL = srv.URL + "/v1"
	client, err := NewOpenAIClient(cfg, "sk-test")
	require.NoError(t, err)

	_, err = client.Generate(context.Background(), Request{Prompt: "x", Tier: TierAdvanced})
	assert.ErrorContains(t, err, "failed to generate content")
}

func TestClientFunc(t *testing.T) {
	boom := errors.New("boom")
	var c Client = ClientFunc(func(_ context.Context, req Request) (string, error) {
		if req.Prompt == "fail" {
			return "", boom
		}
		return "echo: " + req.Prompt, nil
	})

	out, err := c.Generate(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "echo: hi", out)

	_, err = c.Generate(context.Background(), Request{Prompt: "fail"})
	assert.ErrorIs(t, err, boom)
	assert.NoError(t, c.Close())
}
