package tools

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"github.com/richinex/scriba/model"
)

func grepTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	writeFile(t, root, "alpha.txt", "retry budget\nno match here\nRetry again\n")
	writeFile(t, root, "sub/beta.txt", "one retry only\n")
	writeFile(t, root, "sub/gamma.log", "retry in a log\n")
	writeFile(t, root, ".git/config", "retry hidden\n")
	return root
}

func TestGrepToolCountsMatchingLines(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"retry"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success() {
		t.Fatalf("Execute() failed: %v", res.Err)
	}

	// Case sensitive by default: "Retry again" does not match, .git is skipped.
	if got := res.Sources[0].ResultCount; got != 3 {
		t.Errorf("ResultCount = %d, want 3\noutput:\n%s", got, res.Output)
	}
	if res.Sources[0].SourceType != string(model.ToolGrep) {
		t.Errorf("SourceType = %q, want grep", res.Sources[0].SourceType)
	}
	if !strings.Contains(res.Output, "alpha.txt:1:retry budget") {
		t.Errorf("output missing path:line:text form:\n%s", res.Output)
	}
}

func TestGrepToolCaseInsensitive(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"retry","case_sensitive":false}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Sources[0].ResultCount; got != 4 {
		t.Errorf("ResultCount = %d, want 4\noutput:\n%s", got, res.Output)
	}
}

func TestGrepToolGlobFilter(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"retry","glob":"*.log"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Sources[0].ResultCount; got != 1 {
		t.Errorf("ResultCount = %d, want 1\noutput:\n%s", got, res.Output)
	}
}

func TestGrepToolMaxResults(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"retry","max_results":2}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if got := res.Sources[0].ResultCount; got != 2 {
		t.Errorf("ResultCount = %d, want 2", got)
	}
	if !strings.Contains(res.Output, "limited to 2 results") {
		t.Errorf("output missing truncation note:\n%s", res.Output)
	}
}

func TestGrepToolBadInput(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	tests := []struct {
		name string
		args string
	}{
		{"empty pattern", `{"pattern":""}`},
		{"invalid regexp", `{"pattern":"["}`},
		{"escaping path", `{"pattern":"x","path":"../.."}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tool.Execute(context.Background(), json.RawMessage(tt.args))
			if err != nil {
				t.Fatalf("Execute() error = %v", err)
			}
			if res.Success() {
				t.Error("Execute() succeeded, want failure")
			}
		})
	}
}

func TestGrepToolNoMatches(t *testing.T) {
	tool := NewGrepTool(grepTree(t), 0)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"pattern":"zzz_absent"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success() {
		t.Fatalf("no matches should not be a failure: %v", res.Err)
	}
	if res.Output != "No matches found" {
		t.Errorf("output = %q", res.Output)
	}
	if res.Sources[0].ResultCount != 0 {
		t.Errorf("ResultCount = %d, want 0", res.Sources[0].ResultCount)
	}
}
