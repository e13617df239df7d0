package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type chatRequest struct {
	Model       string   `json:"model"`
	Temperature float32  `json:"temperature"`
	MaxTokens   int      `json:"max_tokens"`
	Stop        []string `json:"stop"`
	Messages    []struct {
		Role    string `json:"role"`
		Content string `json:"content"`
	} `json:"messages"`
}

func chatReply(content string) map[string]any {
	return map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1,
		"model":   "gpt-4o-mini",
		"choices": []map[string]any{{
			"index":         0,
			"finish_reason": "stop",
			"message":       map[string]any{"role": "assistant", "content": content},
		}},
	}
}

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:       "test-key",
		BaseURL:      srv.URL + "/v1",
		CleanupModel: "gpt-4o-mini",
		TitleModel:   "gpt-4o-mini",
		TTSModel:     "tts-1",
		TTSVoice:     "alloy",
		TTSSpeed:     1.0,
		AudioFormat:  "mp3",
	})
}

func TestGenerateTitleRequest(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply("The Headline"))
	})

	title, err := client.GenerateTitle(context.Background(), "Some article text")

	require.NoError(t, err)
	assert.Equal(t, "The Headline", title)
	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 20, got.MaxTokens)
	assert.Equal(t, []string{"\n"}, got.Stop)
	assert.InDelta(t, 0.3, got.Temperature, 0.001)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "Article Content: Some article text", got.Messages[1].Content)
}

func TestSummarizeRequest(t *testing.T) {
	var got chatRequest
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(chatReply("Short summary."))
	})

	summary, err := client.Summarize(context.Background(), "Long text")

	require.NoError(t, err)
	assert.Equal(t, "Short summary.", summary)
	assert.Equal(t, 100, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 0.001)
}

func TestCleanTextServerError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error":{"message":"overloaded","type":"server_error"}}`))
	})

	_, err := client.CleanText(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "chat completion failed")
}

func TestCleanTextNoChoices(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"x","object":"chat.completion","choices":[]}`))
	})

	_, err := client.CleanText(context.Background(), "text")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestSynthesize(t *testing.T) {
	audio := []byte("ID3-fake-mp3-bytes")
	var got map[string]any
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/audio/speech", r.URL.Path)
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "audio/mpeg")
		_, _ = w.Write(audio)
	})

	var buf bytes.Buffer
	err := client.Synthesize(context.Background(), "Hello world.", &buf)

	require.NoError(t, err)
	assert.Equal(t, audio, buf.Bytes())
	assert.Equal(t, "tts-1", got["model"])
	assert.Equal(t, "alloy", got["voice"])
	assert.Equal(t, "Hello world.", got["input"])
	assert.Equal(t, "mp3", got["response_format"])
}

func TestSynthesizeError(t *testing.T) {
	client := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	})

	var buf bytes.Buffer
	err := client.Synthesize(context.Background(), "Hello", &buf)

	require.Error(t, err)
	assert.Zero(t, buf.Len())
}
