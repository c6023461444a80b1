// Grep tool - content search within the project root.
//
// Searches file contents with Go regular expressions, in-process. The
// result count is the number of matching lines.

package tools

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/richinex/scriba/model"
)

const (
	// DefaultGrepMaxResults is the default maximum matching lines per query.
	DefaultGrepMaxResults = 200
	// grepMaxFileSize skips files larger than this to bound scan time.
	grepMaxFileSize = 4 * 1024 * 1024
	// grepMaxLineSize bounds the scanner buffer for long lines.
	grepMaxLineSize = 256 * 1024
)

// GrepTool searches file contents under a root directory.
type GrepTool struct {
	BaseTool
	root       string
	maxResults int
}

// NewGrepTool creates a grep tool confined to root.
func NewGrepTool(root string, maxResults int) *GrepTool {
	if maxResults <= 0 {
		maxResults = DefaultGrepMaxResults
	}
	return &GrepTool{root: root, maxResults: maxResults}
}

// Metadata returns the tool metadata.
func (t *GrepTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolGrep),
		Description: "Search file contents for a regular expression. Returns matching lines as path:line:text. Hidden directories are skipped.",
		Category:    CategoryFile,
		Parameters: []ToolParameter{
			{Name: "pattern", ParamType: "string", Description: "Regular expression to search for", Required: true},
			{Name: "path", ParamType: "string", Description: "Subdirectory to search in, relative to the project root (default: root)", Required: false},
			{Name: "glob", ParamType: "string", Description: "Filename glob to filter files (e.g. '*.go')", Required: false},
			{Name: "case_sensitive", ParamType: "boolean", Description: "Case sensitive search (default: true)", Required: false},
			{Name: "max_results", ParamType: "integer", Description: fmt.Sprintf("Maximum matching lines (default: %d)", DefaultGrepMaxResults), Required: false},
		},
	}
}

type grepArgs struct {
	Pattern       string `json:"pattern"`
	Path          string `json:"path"`
	Glob          string `json:"glob"`
	CaseSensitive *bool  `json:"case_sensitive"`
	MaxResults    *int   `json:"max_results"`
}

// Validate validates the arguments.
func (t *GrepTool) Validate(args json.RawMessage) error {
	var a grepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if strings.TrimSpace(a.Pattern) == "" {
		return fmt.Errorf("pattern cannot be empty")
	}
	return nil
}

// Execute runs the content search.
func (t *GrepTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a grepArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	failure := func(err error) Result {
		return FailureResult(err, sourceRef(model.ToolGrep, a.Pattern, 0))
	}

	if strings.TrimSpace(a.Pattern) == "" {
		return failure(fmt.Errorf("pattern cannot be empty")), nil
	}

	pattern := a.Pattern
	if a.CaseSensitive != nil && !*a.CaseSensitive {
		pattern = "(?i)" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return failure(fmt.Errorf("invalid pattern: %w", err)), nil
	}

	basePath, err := resolveWithinRoot(t.root, a.Path)
	if err != nil {
		return failure(err), nil
	}

	maxResults := t.maxResults
	if a.MaxResults != nil && *a.MaxResults > 0 && *a.MaxResults < maxResults {
		maxResults = *a.MaxResults
	}

	lines, err := t.scan(ctx, basePath, re, a.Glob, maxResults)
	if err != nil {
		return failure(err), nil
	}

	output := "No matches found"
	if len(lines) > 0 {
		output = strings.Join(lines, "\n")
		if len(lines) >= maxResults {
			output += fmt.Sprintf("\n(limited to %d results)", maxResults)
		}
	}

	return Result{
		Output:  output,
		Sources: []model.SourceInfo{sourceRef(model.ToolGrep, a.Pattern, len(lines))},
	}, nil
}

// scan walks basePath and collects matching lines as "path:line:text".
func (t *GrepTool) scan(ctx context.Context, basePath string, re *regexp.Regexp, glob string, maxResults int) ([]string, error) {
	var matches []string

	err := filepath.WalkDir(basePath, func(path string, entry os.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if os.IsPermission(err) {
				return filepath.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if strings.HasPrefix(entry.Name(), ".") && path != basePath {
				return filepath.SkipDir
			}
			return nil
		}

		if glob != "" {
			if ok, _ := filepath.Match(glob, entry.Name()); !ok {
				return nil
			}
		}

		info, err := entry.Info()
		if err != nil || info.Size() > grepMaxFileSize {
			return nil
		}

		relPath, err := filepath.Rel(basePath, path)
		if err != nil {
			return nil
		}

		found, err := t.scanFile(path, relPath, re, maxResults-len(matches))
		if err != nil {
			// Unreadable files are skipped, not fatal.
			return nil
		}
		matches = append(matches, found...)
		if len(matches) >= maxResults {
			return filepath.SkipAll
		}
		return nil
	})
	if err != nil && err != filepath.SkipAll {
		return matches, err
	}
	return matches, nil
}

// scanFile collects up to limit matching lines from one file.
func (t *GrepTool) scanFile(path, relPath string, re *regexp.Regexp, limit int) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var found []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), grepMaxLineSize)

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := scanner.Text()
		if re.MatchString(line) {
			found = append(found, fmt.Sprintf("%s:%d:%s", relPath, lineNo, line))
			if len(found) >= limit {
				break
			}
		}
	}
	return found, scanner.Err()
}
