// Package model provides domain types shared across packages.
package model

import (
	"fmt"
	"strings"
)

// ToolKind identifies one of the fixed tool capabilities a session may use.
type ToolKind string

const (
	ToolLocal ToolKind = "local"
	ToolAWS   ToolKind = "aws"
	ToolWeb   ToolKind = "web"
	ToolGlob  ToolKind = "glob"
	ToolGrep  ToolKind = "grep"
	ToolRead  ToolKind = "read"
)

// AllToolKinds returns the declared tool enum in presentation order.
func AllToolKinds() []ToolKind {
	return []ToolKind{ToolLocal, ToolAWS, ToolWeb, ToolGlob, ToolGrep, ToolRead}
}

// ParseToolKind parses a tool name (case-insensitive).
func ParseToolKind(s string) (ToolKind, error) {
	kind := ToolKind(strings.ToLower(strings.TrimSpace(s)))
	switch kind {
	case ToolLocal, ToolAWS, ToolWeb, ToolGlob, ToolGrep, ToolRead:
		return kind, nil
	default:
		return "", fmt.Errorf("unknown tool: %q", s)
	}
}

// ModelChoice identifies one of the supported synthesis models.
type ModelChoice string

const (
	ModelHaiku  ModelChoice = "haiku"
	ModelSonnet ModelChoice = "sonnet"
	ModelOpus   ModelChoice = "opus"
)

// AllModelChoices returns the model enum in ascending capability order.
func AllModelChoices() []ModelChoice {
	return []ModelChoice{ModelHaiku, ModelSonnet, ModelOpus}
}

// ParseModelChoice parses a model name (case-insensitive).
func ParseModelChoice(s string) (ModelChoice, error) {
	choice := ModelChoice(strings.ToLower(strings.TrimSpace(s)))
	switch choice {
	case ModelHaiku, ModelSonnet, ModelOpus:
		return choice, nil
	default:
		return "", fmt.Errorf("unknown model: %q", s)
	}
}

// TopK bounds for retrieval requests.
const (
	MinTopK = 1
	MaxTopK = 20
)

// DefaultTopK is applied when a request omits top_k.
const DefaultTopK = 5

// DefaultTools is the safe default tool subset: retrieval from local stores
// plus read-only filesystem inspection. No network tools unless asked for.
func DefaultTools() []ToolKind {
	return []ToolKind{ToolLocal, ToolGlob, ToolGrep, ToolRead}
}

// ResearchRequest is the engine's input contract. One request creates
// exactly one session.
type ResearchRequest struct {
	Question string      `json:"question"`
	Stores   []string    `json:"stores"`
	Tools    []ToolKind  `json:"tools"`
	Model    ModelChoice `json:"model"`
	TopK     int         `json:"top_k"`
}

// ApplyDefaults fills omitted fields with their documented defaults.
// An explicitly empty (non-nil) tool list is NOT defaulted; that is a
// configuration error caught by Validate.
func (r *ResearchRequest) ApplyDefaults() {
	if r.Tools == nil {
		r.Tools = DefaultTools()
	}
	if r.Model == "" {
		r.Model = ModelSonnet
	}
	if r.TopK == 0 {
		r.TopK = DefaultTopK
	}
}

// Validate checks the request shape before any model or tool call is made.
// All failures are *ConfigurationError.
func (r *ResearchRequest) Validate() error {
	if strings.TrimSpace(r.Question) == "" {
		return NewConfigurationError("question must not be empty")
	}
	if len(r.Tools) == 0 {
		return NewConfigurationError("at least one tool must be enabled")
	}
	seen := make(map[ToolKind]bool, len(r.Tools))
	for _, t := range r.Tools {
		if _, err := ParseToolKind(string(t)); err != nil {
			return NewConfigurationError("unknown tool: %q", string(t))
		}
		if seen[t] {
			return NewConfigurationError("duplicate tool: %q", string(t))
		}
		seen[t] = true
	}
	if _, err := ParseModelChoice(string(r.Model)); err != nil {
		return NewConfigurationError("unknown model: %q", string(r.Model))
	}
	if r.TopK < MinTopK || r.TopK > MaxTopK {
		return NewConfigurationError("top_k must be between %d and %d, got %d", MinTopK, MaxTopK, r.TopK)
	}
	return nil
}

// HasTool reports whether the request enables the given tool kind.
func (r *ResearchRequest) HasTool(kind ToolKind) bool {
	for _, t := range r.Tools {
		if t == kind {
			return true
		}
	}
	return false
}

// SourceInfo records one tool invocation for auditability. StoreName is set
// only for local-store sources.
type SourceInfo struct {
	SourceType  string  `json:"source_type"`
	Query       string  `json:"query"`
	ResultCount int     `json:"result_count"`
	StoreName   *string `json:"store_name"`
}

// TokenUsageInfo is the session's final token accounting.
// TotalTokens is always InputTokens + OutputTokens.
type TokenUsageInfo struct {
	InputTokens  int     `json:"input_tokens"`
	OutputTokens int     `json:"output_tokens"`
	TotalTokens  int     `json:"total_tokens"`
	CostUSD      float64 `json:"cost_usd"`
}

// ResearchResponse is the finished artifact of one session. Sources are in
// the chronological order the tools were called.
type ResearchResponse struct {
	Document        string         `json:"document"`
	Sources         []SourceInfo   `json:"sources"`
	Usage           TokenUsageInfo `json:"usage"`
	Model           string         `json:"model"`
	ModelID         string         `json:"model_id"`
	Query           string         `json:"query"`
	TerminatedEarly bool           `json:"terminated_early,omitempty"`
}

// StoreInfo describes an available local vector store.
type StoreInfo struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ToolInfo describes an available tool for the listing endpoints.
type ToolInfo struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

// ModelInfo describes an available model with per-1M-token prices in USD.
type ModelInfo struct {
	Name        string  `json:"name"`
	Description string  `json:"description"`
	InputPrice  float64 `json:"input_price"`
	OutputPrice float64 `json:"output_price"`
}
