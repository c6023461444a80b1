// Package tools provides the tool adapters a research session may invoke.
//
// Information Hiding:
// - Tool execution details hidden behind interface
// - Tool parameters and schemas hidden in implementations
// - Error handling internalized per tool
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/richinex/scriba/model"
)

// Tool categories surfaced by the listing endpoints.
const (
	CategorySearch = "search"
	CategoryFile   = "file"
)

// ToolParameter defines a parameter schema for a tool.
type ToolParameter struct {
	Name        string `json:"name"`
	ParamType   string `json:"param_type"`
	Description string `json:"description"`
	Required    bool   `json:"required"`
}

// ToolMetadata describes what a tool does and how to use it.
type ToolMetadata struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Parameters  []ToolParameter `json:"parameters"`
}

// String returns a string representation of the tool metadata.
func (m ToolMetadata) String() string {
	return fmt.Sprintf("%s: %s", m.Name, m.Description)
}

// Result represents the outcome of a tool execution. Sources carries the
// audit records derived from the call; the session appends them to the
// response in call order, including zero-count records for failed calls.
type Result struct {
	Output  string
	Sources []model.SourceInfo
	Err     error
}

// Success returns true if the tool execution succeeded.
func (r Result) Success() bool {
	return r.Err == nil
}

// SuccessResult creates a successful tool result.
func SuccessResult(output string, sources ...model.SourceInfo) Result {
	return Result{Output: output, Sources: sources}
}

// FailureResult creates a failed tool result.
func FailureResult(err error, sources ...model.SourceInfo) Result {
	return Result{Err: err, Sources: sources}
}

// FailureResultf creates a failed tool result with a formatted error message.
func FailureResultf(format string, args ...interface{}) Result {
	return Result{Err: fmt.Errorf(format, args...)}
}

// Tool is the interface that all tool adapters implement.
//
// Execute reports invocation failures via Result.Err so the session can fold
// them into the transcript as observations; the second return value is
// reserved for programming errors only.
type Tool interface {
	// Metadata returns tool metadata (name, description, category, parameters).
	Metadata() ToolMetadata

	// Execute runs the tool with given arguments.
	Execute(ctx context.Context, args json.RawMessage) (Result, error)

	// Validate validates arguments before execution (optional).
	Validate(args json.RawMessage) error
}

// BaseTool provides a default implementation for Validate.
type BaseTool struct{}

// Validate provides a default no-op validation.
func (BaseTool) Validate(args json.RawMessage) error {
	return nil
}

// sourceRef builds the audit record for one tool invocation.
func sourceRef(kind model.ToolKind, query string, count int) model.SourceInfo {
	return model.SourceInfo{
		SourceType:  string(kind),
		Query:       query,
		ResultCount: count,
	}
}

// resolveWithinRoot resolves rel against root and rejects paths that escape
// it. An empty rel resolves to the root itself.
func resolveWithinRoot(root, rel string) (string, error) {
	if filepath.IsAbs(rel) {
		return "", fmt.Errorf("absolute paths are not allowed: %s", rel)
	}

	absRoot, err := filepath.Abs(root)
	if err != nil {
		return "", fmt.Errorf("invalid root: %w", err)
	}

	resolved := filepath.Clean(filepath.Join(absRoot, rel))
	check, err := filepath.Rel(absRoot, resolved)
	if err != nil || check == ".." || strings.HasPrefix(check, ".."+string(filepath.Separator)) {
		return "", fmt.Errorf("path escapes the allowed root: %s", rel)
	}
	return resolved, nil
}
