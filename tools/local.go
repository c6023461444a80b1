// Local search tool - queries the request's vector stores through the
// retrieval aggregator.

package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/retrieval"
)

// LocalSearchTool searches the local vector stores named in the request.
type LocalSearchTool struct {
	BaseTool
	agg        *retrieval.Aggregator
	storeNames []string
	topK       int
}

// NewLocalSearchTool creates a local search tool restricted to storeNames.
func NewLocalSearchTool(agg *retrieval.Aggregator, storeNames []string, topK int) *LocalSearchTool {
	return &LocalSearchTool{agg: agg, storeNames: storeNames, topK: topK}
}

// Metadata returns the tool metadata.
func (t *LocalSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolLocal),
		Description: fmt.Sprintf("Search the local document stores (%s) for passages relevant to a query", strings.Join(t.storeNames, ", ")),
		Category:    CategorySearch,
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Search query", Required: true},
		},
	}
}

type localSearchArgs struct {
	Query string `json:"query"`
}

// Execute fans the query out across the request's stores.
func (t *LocalSearchTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a localSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Query) == "" {
		return FailureResultf("query cannot be empty"), nil
	}

	hits, missing, err := t.agg.Search(ctx, a.Query, t.storeNames, t.topK)
	if err != nil {
		return FailureResult(
			&model.ToolUnavailableError{Tool: string(model.ToolLocal), Err: err},
			t.sources(a.Query, nil, nil)...,
		), nil
	}

	return Result{
		Output:  t.formatOutput(hits, missing),
		Sources: t.sources(a.Query, hits, missing),
	}, nil
}

// sources builds one audit record per resolved store, in request store
// order, with the number of merged hits that store contributed.
func (t *LocalSearchTool) sources(query string, hits []retrieval.Hit, missing []string) []model.SourceInfo {
	missingSet := make(map[string]bool, len(missing))
	for _, name := range missing {
		missingSet[name] = true
	}

	counts := make(map[string]int, len(t.storeNames))
	for _, h := range hits {
		counts[h.Store]++
	}

	var srcs []model.SourceInfo
	for _, name := range t.storeNames {
		if missingSet[name] {
			continue
		}
		store := name
		srcs = append(srcs, model.SourceInfo{
			SourceType:  string(model.ToolLocal),
			Query:       query,
			ResultCount: counts[name],
			StoreName:   &store,
		})
	}
	return srcs
}

func (t *LocalSearchTool) formatOutput(hits []retrieval.Hit, missing []string) string {
	var out strings.Builder

	if len(hits) == 0 {
		out.WriteString("No relevant passages found in the local stores.")
	} else {
		fmt.Fprintf(&out, "Found %d relevant passages:\n\n", len(hits))
		for i, h := range hits {
			fmt.Fprintf(&out, "%d. [store: %s | score: %.3f]\n%s\n\n", i+1, h.Store, h.Score, h.Content)
		}
	}

	for _, name := range missing {
		fmt.Fprintf(&out, "\nWarning: store not found: %q", name)
	}
	return out.String()
}
