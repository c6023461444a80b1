// Glob tool for file discovery.
//
// Returns file paths matching a glob pattern without reading content.
// All matching is confined to the configured root directory.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/richinex/scriba/model"
)

const (
	// DefaultGlobMaxResults is the default maximum results per query.
	DefaultGlobMaxResults = 100
	// AbsoluteGlobMaxResults is the hard limit to prevent excessive memory.
	AbsoluteGlobMaxResults = 1000
)

// GlobTool finds files matching glob patterns under a root directory.
type GlobTool struct {
	root       string
	maxResults int
}

// NewGlobTool creates a glob tool confined to root.
// If maxResults <= 0, AbsoluteGlobMaxResults is used.
func NewGlobTool(root string, maxResults int) *GlobTool {
	if maxResults <= 0 {
		maxResults = AbsoluteGlobMaxResults
	}
	return &GlobTool{root: root, maxResults: maxResults}
}

// Metadata returns tool metadata.
func (t *GlobTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolGlob),
		Description: "Find files matching a glob pattern. Returns file paths only (no content). Hidden directories (starting with .) are skipped. Use for discovery, then read to load content.",
		Category:    CategoryFile,
		Parameters: []ToolParameter{
			{Name: "pattern", ParamType: "string", Description: "Glob pattern (e.g., '**/*.go', 'src/**/*.ts', '*.yaml')", Required: true},
			{Name: "path", ParamType: "string", Description: "Subdirectory to search from, relative to the project root (default: root)", Required: false},
			{Name: "max_results", ParamType: "integer", Description: fmt.Sprintf("Maximum files to return (default: %d)", DefaultGlobMaxResults), Required: false},
		},
	}
}

// GlobArgs are the arguments for the glob tool.
type GlobArgs struct {
	Pattern    string `json:"pattern"`
	Path       string `json:"path"`
	MaxResults *int   `json:"max_results"`
}

// Validate validates the arguments.
func (t *GlobTool) Validate(args json.RawMessage) error {
	var globArgs GlobArgs
	if err := json.Unmarshal(args, &globArgs); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(globArgs.Pattern) == "" {
		return fmt.Errorf("pattern is required")
	}
	return nil
}

// Execute runs the glob search.
// Errors are returned via Result to allow partial results and user-friendly messages.
func (t *GlobTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var globArgs GlobArgs
	if err := json.Unmarshal(args, &globArgs); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	failure := func(err error) Result {
		return FailureResult(err, sourceRef(model.ToolGlob, globArgs.Pattern, 0))
	}

	if strings.Contains(globArgs.Pattern, "..") || filepath.IsAbs(globArgs.Pattern) {
		return failure(fmt.Errorf("pattern must be relative to the project root: %s", globArgs.Pattern)), nil
	}

	basePath, err := resolveWithinRoot(t.root, globArgs.Path)
	if err != nil {
		return failure(err), nil
	}

	maxResults := DefaultGlobMaxResults
	if globArgs.MaxResults != nil && *globArgs.MaxResults > 0 {
		maxResults = *globArgs.MaxResults
	}
	if maxResults > t.maxResults {
		maxResults = t.maxResults
	}

	matches, err := t.findMatches(ctx, basePath, globArgs.Pattern, maxResults)
	if err != nil {
		return failure(err), nil
	}

	return Result{
		Output:  t.formatOutput(globArgs.Pattern, matches, maxResults),
		Sources: []model.SourceInfo{sourceRef(model.ToolGlob, globArgs.Pattern, len(matches))},
	}, nil
}

// findMatches finds files matching the pattern in basePath.
func (t *GlobTool) findMatches(ctx context.Context, basePath, pattern string, maxResults int) ([]string, error) {
	dirInfo, err := os.Stat(basePath)
	if err != nil {
		return nil, fmt.Errorf("path not found: %s", basePath)
	}
	if !dirInfo.IsDir() {
		return nil, fmt.Errorf("path is not a directory: %s", basePath)
	}

	// Normalize pattern: strip leading "./" as it's redundant
	pattern = strings.TrimPrefix(pattern, "./")

	if strings.Contains(pattern, "**") {
		return t.findMatchesRecursive(ctx, basePath, pattern, maxResults)
	}
	return t.findMatchesSimple(basePath, pattern, maxResults)
}

// findMatchesRecursive handles patterns with ** using WalkDir.
func (t *GlobTool) findMatchesRecursive(ctx context.Context, absBase, pattern string, maxResults int) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(absBase, func(path string, entry os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			// Skip other errors (I/O issues, etc.)
			return nil
		}

		if entry.IsDir() {
			// Skip hidden directories
			if strings.HasPrefix(entry.Name(), ".") && entry.Name() != "." {
				return filepath.SkipDir
			}
			return nil
		}

		relPath, err := filepath.Rel(absBase, path)
		if err != nil {
			return nil
		}

		if matchGlobPattern(relPath, pattern) {
			matches = append(matches, relPath)
			if len(matches) >= maxResults {
				return filepath.SkipAll
			}
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return matches, err
	}

	sort.Strings(matches)
	return matches, nil
}

// findMatchesSimple handles patterns without ** using filepath.Glob.
func (t *GlobTool) findMatchesSimple(absBase, pattern string, maxResults int) ([]string, error) {
	fullPattern := filepath.Join(absBase, pattern)
	globMatches, err := filepath.Glob(fullPattern)
	if err != nil {
		return nil, fmt.Errorf("invalid glob pattern: %w", err)
	}

	var matches []string
	for _, m := range globMatches {
		fileInfo, err := os.Stat(m)
		if err != nil || fileInfo.IsDir() {
			continue
		}
		relPath, err := filepath.Rel(absBase, m)
		if err != nil {
			continue
		}
		matches = append(matches, relPath)
		if len(matches) >= maxResults {
			break
		}
	}

	sort.Strings(matches)
	return matches, nil
}

// formatOutput formats the matches for the transcript.
func (t *GlobTool) formatOutput(pattern string, matches []string, maxResults int) string {
	if len(matches) == 0 {
		return fmt.Sprintf("No files found matching pattern '%s'", pattern)
	}

	var out strings.Builder
	fmt.Fprintf(&out, "Found %d files matching '%s':\n", len(matches), pattern)
	for _, m := range matches {
		fmt.Fprintln(&out, m)
	}

	if len(matches) >= maxResults {
		fmt.Fprintf(&out, "\n(limited to %d results)", maxResults)
	}
	return out.String()
}

// matchGlobPattern matches a path against a glob pattern with ** support.
func matchGlobPattern(path, pattern string) bool {
	// Normalize separators
	path = filepath.ToSlash(path)
	pattern = filepath.ToSlash(pattern)

	parts := strings.Split(pattern, "**")

	if len(parts) == 1 {
		// No **, use simple match
		return matchPattern(pattern, path)
	}

	// Handle ** patterns
	// **/*.go means any directory depth followed by .go files
	// src/**/*.go means src/ then any depth then .go files

	// Check prefix (before first **)
	prefix := strings.TrimSuffix(parts[0], "/")
	if prefix != "" && !strings.HasPrefix(path, prefix) {
		return false
	}

	// Check suffix (after last **)
	suffix := strings.TrimPrefix(parts[len(parts)-1], "/")
	if suffix != "" {
		if strings.Contains(suffix, "/") {
			// Suffix has directory components
			if !strings.HasSuffix(path, suffix) {
				if !matchPattern("*/"+suffix, "/"+path) {
					return false
				}
			}
		} else {
			// Suffix is just a filename pattern
			if !matchPattern(suffix, filepath.Base(path)) {
				return false
			}
		}
	}

	return true
}

// matchPattern wraps filepath.Match, returning false on error.
func matchPattern(pattern, name string) bool {
	matched, err := filepath.Match(pattern, name)
	return err == nil && matched
}
