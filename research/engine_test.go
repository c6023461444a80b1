package research

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/richinex/scriba/llm"
	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/stores"
)

// fakeCatalog is an in-memory store catalog.
type fakeCatalog map[string][]stores.Result

func (f fakeCatalog) List() ([]model.StoreInfo, error) {
	var infos []model.StoreInfo
	for name := range f {
		infos = append(infos, model.StoreInfo{Name: name, DisplayName: name})
	}
	return infos, nil
}

func (f fakeCatalog) Has(name string) bool { _, ok := f[name]; return ok }

func (f fakeCatalog) Query(ctx context.Context, name, query string, topK int) ([]stores.Result, error) {
	results := f[name]
	if len(results) > topK {
		results = results[:topK]
	}
	return results, nil
}

// scriptedProvider replays canned responses.
type scriptedProvider struct {
	responses  []llm.LLMResponse
	calls      int
	lastTools  []llm.ToolDefinition
	lastChoice llm.ToolChoice
	modelID    string
}

func (p *scriptedProvider) Name() string  { return "scripted" }
func (p *scriptedProvider) Model() string { return p.modelID }

func (p *scriptedProvider) ChatWithTools(ctx context.Context, messages []llm.ChatMessage, defs []llm.ToolDefinition, choice llm.ToolChoice) (llm.LLMResponse, error) {
	p.lastTools = defs
	p.lastChoice = choice
	if p.calls >= len(p.responses) {
		return llm.LLMResponse{}, errors.New("no scripted response left")
	}
	resp := p.responses[p.calls]
	p.calls++
	return resp, nil
}

type savedHistory struct {
	saved []*model.ResearchResponse
	err   error
}

func (s *savedHistory) SaveResponse(ctx context.Context, resp *model.ResearchResponse) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.saved = append(s.saved, resp)
	return "rec-1", nil
}

func engineWith(provider *scriptedProvider, catalog fakeCatalog, history HistoryStore) *Engine {
	return New(Options{
		Stores:  catalog,
		History: history,
		Provider: func(choice model.ModelChoice, modelID string) (llm.Provider, error) {
			provider.modelID = modelID
			return provider, nil
		},
		FSRoot:        ".",
		MaxIterations: 4,
	})
}

func TestResearchDocsScenario(t *testing.T) {
	catalog := fakeCatalog{"docs": {
		{Content: "retries use exponential backoff", Score: 0.9},
		{Content: "the budget caps retries per minute", Score: 0.8},
		{Content: "jitter avoids thundering herds", Score: 0.7},
	}}
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		{
			ToolCalls: []llm.ToolCall{{ID: "t1", Name: "local", Arguments: json.RawMessage(`{"query":"retry policy"}`)}},
			Usage:     &llm.TokenUsage{InputTokens: 200, OutputTokens: 30},
		},
		{
			Content: "# Retry Policy\n\nRetries use exponential backoff with jitter.",
			Usage:   &llm.TokenUsage{InputTokens: 300, OutputTokens: 150},
		},
	}}
	history := &savedHistory{}
	engine := engineWith(provider, catalog, history)

	resp, err := engine.Research(context.Background(), model.ResearchRequest{
		Question: "What is the retry policy?",
		Stores:   []string{"docs"},
		Tools:    []model.ToolKind{model.ToolLocal},
		Model:    model.ModelSonnet,
		TopK:     3,
	})
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}

	if !strings.Contains(resp.Document, "# Retry Policy") || !strings.Contains(resp.Document, "## Sources") {
		t.Errorf("document:\n%s", resp.Document)
	}
	if len(resp.Sources) != 1 {
		t.Fatalf("Sources length = %d, want 1", len(resp.Sources))
	}
	src := resp.Sources[0]
	if src.SourceType != "local" || src.StoreName == nil || *src.StoreName != "docs" || src.ResultCount != 3 {
		t.Errorf("source = %+v", src)
	}
	if resp.Usage.InputTokens != 500 || resp.Usage.OutputTokens != 180 || resp.Usage.TotalTokens != 680 {
		t.Errorf("usage = %+v", resp.Usage)
	}
	if resp.Usage.CostUSD <= 0 {
		t.Errorf("CostUSD = %f, want > 0", resp.Usage.CostUSD)
	}
	if resp.Model != "Claude Sonnet" || resp.ModelID != "claude-sonnet-4-20250514" {
		t.Errorf("model fields = %q / %q", resp.Model, resp.ModelID)
	}
	if resp.Query != "What is the retry policy?" {
		t.Errorf("Query = %q", resp.Query)
	}

	if len(history.saved) != 1 {
		t.Errorf("history saved %d responses, want 1", len(history.saved))
	}
}

func TestResearchAppliesDefaults(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{{Content: "answer"}}}
	engine := engineWith(provider, fakeCatalog{}, nil)

	resp, err := engine.Research(context.Background(), model.ResearchRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if resp.Model != "Claude Sonnet" {
		t.Errorf("default model = %q, want the sonnet label", resp.Model)
	}

	// Default tools minus local (no stores named): glob, grep, read.
	names := make(map[string]bool)
	for _, def := range provider.lastTools {
		names[def.Name] = true
	}
	if len(names) != 3 || !names["glob"] || !names["grep"] || !names["read"] {
		t.Errorf("offered tools = %v", names)
	}
}

func TestResearchRejectsBeforeModelCall(t *testing.T) {
	provider := &scriptedProvider{}
	engine := engineWith(provider, fakeCatalog{"docs": nil}, nil)

	tests := []struct {
		name string
		req  model.ResearchRequest
	}{
		{"empty question", model.ResearchRequest{Question: " "}},
		{"explicitly empty tools", model.ResearchRequest{Question: "q", Tools: []model.ToolKind{}}},
		{"unknown tool", model.ResearchRequest{Question: "q", Tools: []model.ToolKind{"teleport"}}},
		{"top_k too large", model.ResearchRequest{Question: "q", TopK: 21}},
		{"all stores unknown", model.ResearchRequest{Question: "q", Stores: []string{"ghost", "wraith"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.Research(context.Background(), tt.req)
			var cfgErr *model.ConfigurationError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("error = %v, want *model.ConfigurationError", err)
			}
			if provider.calls != 0 {
				t.Error("validation failure still called the model")
			}
		})
	}
}

func TestResearchPartiallyMissingStoresDegrade(t *testing.T) {
	catalog := fakeCatalog{"docs": {{Content: "passage", Score: 0.9}}}
	provider := &scriptedProvider{responses: []llm.LLMResponse{
		{ToolCalls: []llm.ToolCall{{ID: "t1", Name: "local", Arguments: json.RawMessage(`{"query":"x"}`)}}},
		{Content: "answer"},
	}}
	engine := engineWith(provider, catalog, nil)

	resp, err := engine.Research(context.Background(), model.ResearchRequest{
		Question: "q",
		Stores:   []string{"docs", "ghost"},
		Tools:    []model.ToolKind{model.ToolLocal},
	})
	if err != nil {
		t.Fatalf("Research() error = %v", err)
	}
	if len(resp.Sources) != 1 || *resp.Sources[0].StoreName != "docs" {
		t.Errorf("Sources = %+v, want only docs", resp.Sources)
	}
}

func TestResearchSessionTimeoutProducesPartialDocument(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{{Content: "partial findings"}}}
	engine := New(Options{
		Stores: fakeCatalog{},
		Provider: func(choice model.ModelChoice, modelID string) (llm.Provider, error) {
			return provider, nil
		},
		FSRoot:         ".",
		SessionTimeout: time.Second,
	})

	// A parent deadline that already expired stands in for a session that
	// ran out of wall-clock time.
	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	resp, err := engine.Research(ctx, model.ResearchRequest{Question: "q"})
	if err != nil {
		t.Fatalf("Research() error = %v, a timed-out session must still answer", err)
	}
	if !resp.TerminatedEarly {
		t.Error("TerminatedEarly = false, want true")
	}
	if !strings.Contains(resp.Document, "partial findings") {
		t.Errorf("document = %q", resp.Document)
	}
	if provider.lastChoice != llm.ToolChoiceNone {
		t.Errorf("final call choice = %q, want %q", provider.lastChoice, llm.ToolChoiceNone)
	}
}

func TestResearchProviderFailure(t *testing.T) {
	provider := &scriptedProvider{} // no responses: first call errors
	engine := engineWith(provider, fakeCatalog{}, nil)

	_, err := engine.Research(context.Background(), model.ResearchRequest{Question: "q"})
	if err == nil {
		t.Fatal("Research() error = nil, want backend failure")
	}
	var cfgErr *model.ConfigurationError
	if errors.As(err, &cfgErr) {
		t.Errorf("backend failure misclassified as configuration error: %v", err)
	}
}

func TestResearchHistoryFailureIsNotFatal(t *testing.T) {
	provider := &scriptedProvider{responses: []llm.LLMResponse{{Content: "answer"}}}
	engine := engineWith(provider, fakeCatalog{}, &savedHistory{err: errors.New("disk full")})

	if _, err := engine.Research(context.Background(), model.ResearchRequest{Question: "q"}); err != nil {
		t.Fatalf("Research() error = %v, history failures must be swallowed", err)
	}
}

func TestListTools(t *testing.T) {
	engine := engineWith(&scriptedProvider{}, fakeCatalog{}, nil)

	infos := engine.ListTools()
	if len(infos) != 6 {
		t.Fatalf("ListTools() length = %d, want 6", len(infos))
	}
	want := []string{"local", "aws", "web", "glob", "grep", "read"}
	for i, info := range infos {
		if info.Name != want[i] {
			t.Errorf("tool[%d] = %q, want %q", i, info.Name, want[i])
		}
	}
}

func TestListModels(t *testing.T) {
	engine := engineWith(&scriptedProvider{}, fakeCatalog{}, nil)

	infos := engine.ListModels()
	if len(infos) != 3 {
		t.Fatalf("ListModels() length = %d, want 3", len(infos))
	}
	if infos[0].Name != "haiku" || infos[0].InputPrice != 0.80 {
		t.Errorf("models[0] = %+v", infos[0])
	}
}
