package tools

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/retrieval"
	"github.com/richinex/scriba/stores"
)

// fakeStores is an in-memory StoreQuerier for exercising the local tool.
type fakeStores map[string][]stores.Result

func (f fakeStores) Has(name string) bool { _, ok := f[name]; return ok }

func (f fakeStores) Query(ctx context.Context, name, query string, topK int) ([]stores.Result, error) {
	results := f[name]
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

func TestLocalSearchToolPerStoreSources(t *testing.T) {
	querier := fakeStores{
		"docs": {
			{Content: "alpha", Score: 0.9},
			{Content: "beta", Score: 0.7},
		},
		"wiki": {
			{Content: "gamma", Score: 0.8},
		},
	}
	tool := NewLocalSearchTool(retrieval.New(querier), []string{"docs", "wiki"}, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success() {
		t.Fatalf("Execute() failed: %v", res.Err)
	}

	if len(res.Sources) != 2 {
		t.Fatalf("Sources length = %d, want 2: %+v", len(res.Sources), res.Sources)
	}
	for i, want := range []struct {
		store string
		count int
	}{{"docs", 2}, {"wiki", 1}} {
		src := res.Sources[i]
		if src.SourceType != string(model.ToolLocal) {
			t.Errorf("source[%d].SourceType = %q, want local", i, src.SourceType)
		}
		if src.StoreName == nil || *src.StoreName != want.store {
			t.Errorf("source[%d].StoreName = %v, want %q", i, src.StoreName, want.store)
		}
		if src.ResultCount != want.count {
			t.Errorf("source[%d].ResultCount = %d, want %d", i, src.ResultCount, want.count)
		}
	}

	// Merge order follows descending score.
	alpha := strings.Index(res.Output, "alpha")
	gamma := strings.Index(res.Output, "gamma")
	beta := strings.Index(res.Output, "beta")
	if !(alpha < gamma && gamma < beta) {
		t.Errorf("merge order wrong:\n%s", res.Output)
	}
}

func TestLocalSearchToolPartialMissingStore(t *testing.T) {
	querier := fakeStores{
		"docs": {{Content: "alpha", Score: 0.9}},
	}
	tool := NewLocalSearchTool(retrieval.New(querier), []string{"docs", "ghost"}, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if !res.Success() {
		t.Fatalf("partial degradation should succeed: %v", res.Err)
	}
	if !strings.Contains(res.Output, `store not found: "ghost"`) {
		t.Errorf("output missing warning:\n%s", res.Output)
	}
	if len(res.Sources) != 1 || *res.Sources[0].StoreName != "docs" {
		t.Errorf("sources = %+v, want only docs", res.Sources)
	}
}

func TestLocalSearchToolAllStoresMissing(t *testing.T) {
	tool := NewLocalSearchTool(retrieval.New(fakeStores{}), []string{"ghost"}, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"q"}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success() {
		t.Fatal("all stores missing should fail")
	}

	var unavailable *model.ToolUnavailableError
	if !errors.As(res.Err, &unavailable) {
		t.Fatalf("error = %T, want *model.ToolUnavailableError", res.Err)
	}
}

func TestLocalSearchToolEmptyQuery(t *testing.T) {
	tool := NewLocalSearchTool(retrieval.New(fakeStores{}), nil, 5)

	res, err := tool.Execute(context.Background(), json.RawMessage(`{"query":"  "}`))
	if err != nil {
		t.Fatalf("Execute() error = %v", err)
	}
	if res.Success() {
		t.Fatal("blank query should fail")
	}
}
