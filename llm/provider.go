// Package llm provides LLM provider abstractions.
//
// LLM Provider interface - the abstract interface for LLM providers.
// Each provider implementation hides:
// - API client initialization and authentication
// - Request/response format conversion
// - Provider-specific error handling

package llm

import (
	"context"
)

// ToolChoice controls whether the model may call tools on a request.
// The tool definitions must accompany every request whose transcript
// contains tool_use or tool_result blocks, so disabling tools is done
// through the choice rather than by omitting the definitions.
type ToolChoice string

const (
	// ToolChoiceAuto lets the model decide whether to call tools.
	ToolChoiceAuto ToolChoice = "auto"

	// ToolChoiceNone forbids tool calls, forcing a plain text reply.
	ToolChoiceNone ToolChoice = "none"
)

// Provider defines the abstract interface for LLM providers.
// Implementations hide provider-specific details while exposing
// a consistent interface for chat completions.
type Provider interface {
	// Name returns the provider name (for logging/debugging).
	Name() string

	// Model returns the current model being used.
	Model() string

	// ChatWithTools sends a chat completion request with tool definitions.
	// With ToolChoiceAuto the LLM may respond with tool calls in
	// LLMResponse.ToolCalls; with ToolChoiceNone it must answer in text.
	ChatWithTools(ctx context.Context, messages []ChatMessage, tools []ToolDefinition, choice ToolChoice) (LLMResponse, error)
}
