package synthesis

import (
	"strings"
	"testing"

	"github.com/richinex/scriba/model"
)

func TestFormatAppendsSourcesSection(t *testing.T) {
	store := "docs"
	sources := []model.SourceInfo{
		{SourceType: "local", Query: "error handling", ResultCount: 3, StoreName: &store},
		{SourceType: "grep", Query: "errors.As", ResultCount: 7},
	}
	usageInfo := model.TokenUsageInfo{InputTokens: 100, OutputTokens: 50, TotalTokens: 150, CostUSD: 0.001}

	resp := Format("# Findings\n\nBody.\n", sources, usageInfo, "Claude Sonnet", "claude-sonnet-4-20250514", "how are errors handled?", false)

	if !strings.HasPrefix(resp.Document, "# Findings") {
		t.Errorf("document does not start with answer:\n%s", resp.Document)
	}
	if !strings.Contains(resp.Document, "## Sources") {
		t.Errorf("document missing sources section:\n%s", resp.Document)
	}
	if !strings.Contains(resp.Document, "local (store: docs)") {
		t.Errorf("document missing store-labelled source:\n%s", resp.Document)
	}
	if !strings.Contains(resp.Document, "(7 results)") {
		t.Errorf("document missing grep count:\n%s", resp.Document)
	}

	// Section appears after the answer body.
	if strings.Index(resp.Document, "Body.") > strings.Index(resp.Document, "## Sources") {
		t.Error("sources section precedes the answer body")
	}

	if resp.Model != "Claude Sonnet" || resp.ModelID != "claude-sonnet-4-20250514" {
		t.Errorf("model fields = %q / %q", resp.Model, resp.ModelID)
	}
	if resp.Query != "how are errors handled?" {
		t.Errorf("Query = %q", resp.Query)
	}
	if resp.Usage != usageInfo {
		t.Errorf("Usage = %+v", resp.Usage)
	}
	if resp.TerminatedEarly {
		t.Error("TerminatedEarly = true, want false")
	}
}

func TestFormatNoSources(t *testing.T) {
	resp := Format("answer", nil, model.TokenUsageInfo{}, "Claude Haiku", "id", "q", false)

	if resp.Sources == nil || len(resp.Sources) != 0 {
		t.Errorf("Sources = %v, want empty non-nil slice", resp.Sources)
	}
	if !strings.Contains(resp.Document, "No sources were consulted.") {
		t.Errorf("document = %q", resp.Document)
	}
}

func TestFormatTerminatedEarly(t *testing.T) {
	resp := Format("partial", nil, model.TokenUsageInfo{}, "Claude Opus", "id", "q", true)
	if !resp.TerminatedEarly {
		t.Error("TerminatedEarly = false, want true")
	}
}

func TestFormatSingularResultNoun(t *testing.T) {
	resp := Format("a", []model.SourceInfo{{SourceType: "read", Query: "main.go", ResultCount: 1}}, model.TokenUsageInfo{}, "Claude Sonnet", "id", "q", false)
	if !strings.Contains(resp.Document, "(1 result)") {
		t.Errorf("document = %q", resp.Document)
	}
}
