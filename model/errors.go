// Error taxonomy for the research engine.
//
// ConfigurationError rejects a request before any model or tool call.
// ToolUnavailableError marks a single failed tool call; the session recovers.
// StoreNotFoundError covers missing local stores; recoverable while at least
// one requested store resolves.
// NotFoundError is returned by the read tool for absent files.

package model

import "fmt"

// ConfigurationError reports an invalid request shape. Surfaced to callers
// as a 4xx-equivalent; never raised after the session has started.
type ConfigurationError struct {
	Detail string
}

// NewConfigurationError formats a new configuration error.
func NewConfigurationError(format string, args ...any) *ConfigurationError {
	return &ConfigurationError{Detail: fmt.Sprintf(format, args...)}
}

func (e *ConfigurationError) Error() string {
	return "invalid request: " + e.Detail
}

// ToolUnavailableError reports that a single tool invocation failed
// (network unreachable, missing backend, per-tool timeout). The agent loop
// folds it into the transcript as an observation.
type ToolUnavailableError struct {
	Tool string
	Err  error
}

func (e *ToolUnavailableError) Error() string {
	return fmt.Sprintf("tool %q unavailable: %v", e.Tool, e.Err)
}

func (e *ToolUnavailableError) Unwrap() error {
	return e.Err
}

// StoreNotFoundError reports local store names that did not resolve.
type StoreNotFoundError struct {
	Stores []string
}

func (e *StoreNotFoundError) Error() string {
	if len(e.Stores) == 1 {
		return fmt.Sprintf("store not found: %q", e.Stores[0])
	}
	return fmt.Sprintf("stores not found: %v", e.Stores)
}

// NotFoundError reports a missing file path.
type NotFoundError struct {
	Path string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("not found: %s", e.Path)
}
