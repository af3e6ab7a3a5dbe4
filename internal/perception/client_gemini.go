package perception

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/thomasgenty15-afk/Sophia-sub002/internal/logging"
	"github.com/thomasgenty15-afk/Sophia-sub002/internal/types"
)

// GeminiClient implements types.LLMClient against the Gemini REST API.
// Rate-limit and transient failures are retried with bounded exponential
// backoff and a capped delay; everything else surfaces immediately.
type GeminiClient struct {
	apiKey           string
	baseURL          string
	model            string
	httpClient       *http.Client
	maxRetries       int
	retryBackoffBase time.Duration
	retryBackoffMax  time.Duration
}

// NewGeminiClient creates a Gemini client with default config.
func NewGeminiClient(apiKey string) *GeminiClient {
	return NewGeminiClientWithConfig(DefaultGeminiConfig(apiKey))
}

// NewGeminiClientWithConfig creates a Gemini client with custom config.
func NewGeminiClientWithConfig(cfg GeminiConfig) *GeminiClient {
	return &GeminiClient{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		model:   cfg.Model,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		maxRetries:       cfg.MaxRetries,
		retryBackoffBase: cfg.RetryBackoffBase,
		retryBackoffMax:  cfg.RetryBackoffMax,
	}
}

// Complete sends a prompt and returns the completion.
func (c *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	return c.CompleteWithSystem(ctx, "", prompt)
}

// CompleteWithSystem sends a prompt with a system instruction.
func (c *GeminiClient) CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	resp, err := c.CompleteWithTools(ctx, systemPrompt, nil, userPrompt, nil, types.ToolChoice{Mode: types.ToolChoiceNone})
	if err != nil {
		return "", err
	}
	return resp.Text, nil
}

// CompleteWithTools sends the conversation with tool declarations and a
// tool-choice mode. With ToolChoiceForced the provider must return exactly
// one call to the named tool.
func (c *GeminiClient) CompleteWithTools(ctx context.Context, systemPrompt string, history []types.Message, userMessage string, tools []types.ToolDefinition, choice types.ToolChoice) (*types.LLMToolResponse, error) {
	if c.apiKey == "" {
		return nil, fmt.Errorf("API key not configured")
	}

	req := c.buildRequest(systemPrompt, history, userMessage, tools, choice)

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/models/%s:generateContent?key=%s", c.baseURL, c.model, c.apiKey)

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			delay := c.backoffDelay(attempt)
			logging.APIDebug("retrying completion (attempt %d/%d) after %v: %v", attempt, c.maxRetries, delay, lastErr)
			select {
			case <-time.After(delay):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		resp, retryable, err := c.doRequest(ctx, url, body)
		if err == nil {
			return resp, nil
		}
		lastErr = err
		if !retryable {
			return nil, err
		}
	}
	return nil, fmt.Errorf("completion service failed after %d retries: %w", c.maxRetries, lastErr)
}

// buildRequest assembles the wire request from history plus the new turn.
func (c *GeminiClient) buildRequest(systemPrompt string, history []types.Message, userMessage string, tools []types.ToolDefinition, choice types.ToolChoice) *GeminiRequest {
	contents := make([]GeminiContent, 0, len(history)+1)
	for _, m := range history {
		role := "user"
		if m.Role == "assistant" {
			role = "model"
		}
		contents = append(contents, GeminiContent{
			Role:  role,
			Parts: []GeminiPart{{Text: m.Content}},
		})
	}
	contents = append(contents, GeminiContent{
		Role:  "user",
		Parts: []GeminiPart{{Text: userMessage}},
	})

	req := &GeminiRequest{
		Contents: contents,
		GenerationConfig: &GeminiGenerationConfig{
			Temperature:     0.4,
			MaxOutputTokens: 2048,
		},
	}

	if systemPrompt != "" {
		req.SystemInstruction = &GeminiContent{
			Parts: []GeminiPart{{Text: systemPrompt}},
		}
	}

	if len(tools) > 0 {
		decls := make([]GeminiFunctionDeclaration, 0, len(tools))
		for _, t := range tools {
			decls = append(decls, GeminiFunctionDeclaration{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.InputSchema,
			})
		}
		req.Tools = []GeminiTool{{FunctionDeclarations: decls}}
	}

	switch choice.Mode {
	case types.ToolChoiceNone:
		if len(tools) > 0 {
			req.ToolConfig = &GeminiToolConfig{
				FunctionCallingConfig: &GeminiFunctionCallingConfig{Mode: "NONE"},
			}
		}
	case types.ToolChoiceForced:
		cfg := &GeminiFunctionCallingConfig{Mode: "ANY"}
		if choice.Tool != "" {
			cfg.AllowedFunctionNames = []string{choice.Tool}
		}
		req.ToolConfig = &GeminiToolConfig{FunctionCallingConfig: cfg}
	default:
		// AUTO is the provider default; no tool config needed.
	}

	return req
}

// doRequest performs one HTTP round trip. The second return value reports
// whether the failure is retryable (rate limit or transient server error).
func (c *GeminiClient) doRequest(ctx context.Context, url string, body []byte) (*types.LLMToolResponse, bool, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, false, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	start := time.Now()
	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		// Network-level errors are transient by assumption.
		return nil, true, fmt.Errorf("request failed: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read response: %w", err)
	}

	if httpResp.StatusCode == http.StatusTooManyRequests || httpResp.StatusCode >= 500 {
		return nil, true, fmt.Errorf("gemini API returned %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
	}
	if httpResp.StatusCode != http.StatusOK {
		return nil, false, fmt.Errorf("gemini API returned %d: %s", httpResp.StatusCode, truncate(string(respBody), 200))
	}

	var resp GeminiResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, false, fmt.Errorf("failed to parse response: %w", err)
	}
	if resp.Error != nil {
		return nil, false, fmt.Errorf("gemini API error %d: %s", resp.Error.Code, resp.Error.Message)
	}
	if len(resp.Candidates) == 0 {
		return nil, false, fmt.Errorf("no candidates in response")
	}

	out := &types.LLMToolResponse{
		StopReason: resp.Candidates[0].FinishReason,
	}
	for _, part := range resp.Candidates[0].Content.Parts {
		if part.Text != "" {
			out.Text += part.Text
		}
		if part.FunctionCall != nil {
			out.ToolCalls = append(out.ToolCalls, types.ToolCall{
				ID:   fmt.Sprintf("call_%d", len(out.ToolCalls)),
				Name: part.FunctionCall.Name,
				Args: part.FunctionCall.Args,
			})
		}
	}

	logging.API("completion ok: model=%s tokens=%d duration=%v tool_calls=%d",
		c.model, resp.UsageMetadata.TotalTokenCount, time.Since(start), len(out.ToolCalls))
	return out, false, nil
}

// backoffDelay computes the bounded exponential delay for an attempt.
func (c *GeminiClient) backoffDelay(attempt int) time.Duration {
	delay := c.retryBackoffBase
	for i := 1; i < attempt; i++ {
		delay *= 2
		if delay >= c.retryBackoffMax {
			return c.retryBackoffMax
		}
	}
	if delay > c.retryBackoffMax {
		return c.retryBackoffMax
	}
	return delay
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
