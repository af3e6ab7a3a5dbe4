package types

import (
	"context"
)

// LLMClient defines the interface for the completion service.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	CompleteWithSystem(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	// CompleteWithTools sends the conversation with tool definitions and a
	// tool-choice mode. ToolChoiceForced must be honored by the provider:
	// it is used for already-confirmed deterministic mutations where the
	// model is only asked to fill the arguments.
	CompleteWithTools(ctx context.Context, systemPrompt string, history []Message, userMessage string, tools []ToolDefinition, choice ToolChoice) (*LLMToolResponse, error)
}

// ToolDefinition describes a tool the completion service may propose.
type ToolDefinition struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	InputSchema map[string]interface{} `json:"input_schema"` // JSON Schema for parameters
}

// ToolChoiceMode selects how the provider may use the declared tools.
type ToolChoiceMode string

const (
	ToolChoiceAuto   ToolChoiceMode = "auto"   // model decides
	ToolChoiceNone   ToolChoiceMode = "none"   // text only
	ToolChoiceForced ToolChoiceMode = "forced" // must call the named tool
)

// ToolChoice carries the mode plus the forced tool name when applicable.
type ToolChoice struct {
	Mode ToolChoiceMode `json:"mode"`
	Tool string         `json:"tool,omitempty"`
}

// ToolCall represents a tool invocation proposed by the model. Args stay
// untyped here; the dispatcher narrows them into a tagged union at its
// boundary before any handler sees them.
type ToolCall struct {
	ID   string                 `json:"id"`
	Name string                 `json:"name"`
	Args map[string]interface{} `json:"args"`
}

// LLMToolResponse contains the text and/or single tool call from the model.
type LLMToolResponse struct {
	Text       string     `json:"text"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	StopReason string     `json:"stop_reason,omitempty"`
}

// Snippet is one ranked context fragment from semantic recall.
type Snippet struct {
	Content string  `json:"content"`
	Score   float64 `json:"score"`
}

// RecallService returns ranked context snippets for a query. Opaque; the
// orchestrator only injects the snippets into prompts.
type RecallService interface {
	Recall(ctx context.Context, query string, topK int) ([]Snippet, error)
}
