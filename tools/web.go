// Web search tool backed by the Tavily search API.

package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/richinex/scriba/model"
)

const tavilyEndpoint = "https://api.tavily.com/search"

// DefaultWebMaxResults caps the hits kept from one web search.
const DefaultWebMaxResults = 5

// WebSearchTool issues web search queries.
type WebSearchTool struct {
	BaseTool
	apiKey     string
	client     *http.Client
	maxResults int
}

// NewWebSearchTool creates a web search tool. An empty apiKey makes every
// invocation fail with ToolUnavailableError (recoverable).
func NewWebSearchTool(apiKey string, maxResults int) *WebSearchTool {
	if maxResults <= 0 {
		maxResults = DefaultWebMaxResults
	}
	return &WebSearchTool{
		apiKey:     apiKey,
		client:     &http.Client{Timeout: 15 * time.Second},
		maxResults: maxResults,
	}
}

// WithClient overrides the HTTP client (used by tests).
func (t *WebSearchTool) WithClient(client *http.Client) *WebSearchTool {
	t.client = client
	return t
}

// Metadata returns the tool metadata.
func (t *WebSearchTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        string(model.ToolWeb),
		Description: "Search the web for up-to-date information on a query",
		Category:    CategorySearch,
		Parameters: []ToolParameter{
			{Name: "query", ParamType: "string", Description: "Search query", Required: true},
		},
	}
}

type webSearchArgs struct {
	Query string `json:"query"`
}

type webHit struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

// Execute posts the query to the search API. Network failures become
// ToolUnavailableError so the session can continue without web results.
func (t *WebSearchTool) Execute(ctx context.Context, args json.RawMessage) (Result, error) {
	var a webSearchArgs
	if err := json.Unmarshal(args, &a); err != nil {
		return FailureResultf("invalid arguments: %v", err), nil
	}
	if strings.TrimSpace(a.Query) == "" {
		return FailureResultf("query cannot be empty"), nil
	}

	failure := func(err error) Result {
		return FailureResult(
			&model.ToolUnavailableError{Tool: string(model.ToolWeb), Err: err},
			sourceRef(model.ToolWeb, a.Query, 0),
		)
	}

	if strings.TrimSpace(t.apiKey) == "" {
		return failure(fmt.Errorf("web search API key is not configured")), nil
	}

	hits, err := t.search(ctx, a.Query)
	if err != nil {
		return failure(err), nil
	}

	var out strings.Builder
	if len(hits) == 0 {
		out.WriteString("No web results found.")
	} else {
		fmt.Fprintf(&out, "Found %d web results:\n\n", len(hits))
		for i, h := range hits {
			fmt.Fprintf(&out, "%d. %s\n%s\n%s\n\n", i+1, h.Title, h.URL, h.Content)
		}
	}

	return Result{
		Output:  out.String(),
		Sources: []model.SourceInfo{sourceRef(model.ToolWeb, a.Query, len(hits))},
	}, nil
}

// search posts to the API, backing off and retrying on 429 up to 30s delays.
func (t *WebSearchTool) search(ctx context.Context, query string) ([]webHit, error) {
	payload, err := json.Marshal(map[string]any{
		"query":   query,
		"api_key": t.apiKey,
	})
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tavilyEndpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.client.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		if delay < 30*time.Second {
			delay *= 2
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("web search http %d", resp.StatusCode)
	}

	var response struct {
		Results []webHit `json:"results"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	hits := response.Results
	if len(hits) > t.maxResults {
		hits = hits[:t.maxResults]
	}
	return hits, nil
}
