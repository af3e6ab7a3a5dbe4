package perception

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) (*GeminiClient, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := DefaultGeminiConfig("test-key")
	cfg.BaseURL = srv.URL
	cfg.MaxRetries = 2
	cfg.RetryBackoffBase = time.Millisecond
	cfg.RetryBackoffMax = 5 * time.Millisecond
	return NewGeminiClientWithConfig(cfg), srv
}

func geminiTextResponse(text string) string {
	return `{"candidates":[{"content":{"parts":[{"text":"` + text + `"}],"role":"model"},"finishReason":"STOP"}]}`
}

func TestGeminiClient_RetriesRateLimit(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(geminiTextResponse("bonjour")))
	})

	text, err := client.Complete(context.Background(), "salut")
	require.NoError(t, err)
	assert.Equal(t, "bonjour", text)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestGeminiClient_DoesNotRetryClientError(t *testing.T) {
	var calls int32
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte(`{"error":{"code":400,"message":"bad"}}`))
	})

	_, err := client.Complete(context.Background(), "salut")
	require.Error(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
}

func TestGeminiClient_ForcedToolChoice(t *testing.T) {
	var captured GeminiRequest
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&captured))
		w.Write([]byte(`{"candidates":[{"content":{"parts":[{"functionCall":{"name":"track_progress","args":{"item":"lecture"}}}],"role":"model"},"finishReason":"STOP"}]}`))
	})

	tools := []types.ToolDefinition{{Name: "track_progress", Description: "log progress"}}
	resp, err := client.CompleteWithTools(context.Background(), "sys", nil, "c'est fait",
		tools, types.ToolChoice{Mode: types.ToolChoiceForced, Tool: "track_progress"})
	require.NoError(t, err)

	require.NotNil(t, captured.ToolConfig)
	require.NotNil(t, captured.ToolConfig.FunctionCallingConfig)
	assert.Equal(t, "ANY", captured.ToolConfig.FunctionCallingConfig.Mode)
	assert.Equal(t, []string{"track_progress"}, captured.ToolConfig.FunctionCallingConfig.AllowedFunctionNames)

	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "track_progress", resp.ToolCalls[0].Name)
	assert.Equal(t, "lecture", resp.ToolCalls[0].Args["item"])
}

func TestBackoffDelay_Capped(t *testing.T) {
	cfg := DefaultGeminiConfig("k")
	cfg.RetryBackoffBase = 100 * time.Millisecond
	cfg.RetryBackoffMax = 300 * time.Millisecond
	c := NewGeminiClientWithConfig(cfg)

	assert.Equal(t, 100*time.Millisecond, c.backoffDelay(1))
	assert.Equal(t, 200*time.Millisecond, c.backoffDelay(2))
	assert.Equal(t, 300*time.Millisecond, c.backoffDelay(3))
	assert.Equal(t, 300*time.Millisecond, c.backoffDelay(10))
}
