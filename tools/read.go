// Read tool - returns file contents from within the project root.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/richinex/scriba/model"
)

// DefaultMaxReadSize is the default maximum file size the read tool loads.
const DefaultMaxReadSize = 1024 * 1024 // 1MB

// ReadTool reads file contents.
type ReadTool struct {
	BaseTool
	root         string
	maxSizeBytes int64
}

// NewReadTool creates a read tool confined to root.
func NewReadTool(root string, maxSizeBytes int64) *ReadTool {
	if maxSizeBytes <= 0 {
		maxSizeBytes = DefaultMaxReadSize
	}
	return &ReadTool{root: root, maxSizeBytes: maxSizeBytes}
}

// Metadata returns the tool metadata.
func (t *ReadTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolRead),
		Description: "Read the contents of a file, given its path relative to the project root",
		Category:    CategoryFile,
		Parameters: []ToolParameter{
			{Name: "path", ParamType: "string", Description: "Path to the file to read, relative to the project root", Required: true},
		},
	}
}

type readArgs struct {
	Path string `json:"path"`
}

// Validate validates the arguments.
func (t *ReadTool) Validate(args json.RawMessage) error {
	var a readArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	if a.Path == "" {
		return fmt.Errorf("path cannot be empty")
	}
	return nil
}

// Execute reads the file. A missing file is a *NotFoundError folded into the
// transcript; the call is still recorded with result_count 0.
func (t *ReadTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a readArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}

	failure := func(err error) Result {
		return FailureResult(err, sourceRef(model.ToolRead, a.Path, 0))
	}

	if a.Path == "" {
		return failure(fmt.Errorf("path cannot be empty")), nil
	}

	resolved, err := resolveWithinRoot(t.root, a.Path)
	if err != nil {
		return failure(err), nil
	}

	info, err := os.Stat(resolved)
	if os.IsNotExist(err) {
		return failure(&model.NotFoundError{Path: a.Path}), nil
	}
	if err != nil {
		return failure(fmt.Errorf("failed to read file metadata: %w", err)), nil
	}
	if info.IsDir() {
		return failure(fmt.Errorf("path is a directory: %s", a.Path)), nil
	}
	if info.Size() > t.maxSizeBytes {
		return failure(fmt.Errorf("file too large: %d bytes (max: %d bytes)", info.Size(), t.maxSizeBytes)), nil
	}

	content, err := os.ReadFile(resolved)
	if err != nil {
		return failure(fmt.Errorf("failed to read file: %w", err)), nil
	}

	name := filepath.ToSlash(a.Path)
	return Result{
		Output:  string(content),
		Sources: []model.SourceInfo{sourceRef(model.ToolRead, name, 1)},
	}, nil
}
