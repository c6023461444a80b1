// Package research is the engine facade: one call takes a research request
// through validation, session execution, and response assembly.
//
// Information Hiding:
// - Tool registry construction per request hidden
// - Provider and store wiring hidden behind narrow interfaces
// - History persistence is best-effort and invisible to callers

package research

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/richinex/scriba/agent"
	"github.com/richinex/scriba/llm"
	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/retrieval"
	"github.com/richinex/scriba/stores"
	"github.com/richinex/scriba/synthesis"
	"github.com/richinex/scriba/tools"
	"github.com/richinex/scriba/usage"
)

// StoreCatalog is the store registry surface the engine needs.
type StoreCatalog interface {
	List() ([]model.StoreInfo, error)
	Has(name string) bool
	Query(ctx context.Context, name, query string, topK int) ([]stores.Result, error)
}

// ProviderFactory builds a model provider for a resolved model identifier.
// Injected so tests can substitute a scripted provider.
type ProviderFactory func(choice model.ModelChoice, modelID string) (llm.Provider, error)

// HistoryStore persists finished responses. May be nil.
type HistoryStore interface {
	SaveResponse(ctx context.Context, resp *model.ResearchResponse) (string, error)
}

// Options wires an engine.
type Options struct {
	Stores   StoreCatalog
	Provider ProviderFactory
	History  HistoryStore

	// FSRoot confines the glob, grep, and read tools.
	FSRoot string

	// TavilyAPIKey enables the web tool; empty leaves it unavailable at
	// invocation time.
	TavilyAPIKey string

	// Retriever and KnowledgeBaseID enable the aws tool; either being unset
	// leaves it unavailable at invocation time.
	Retriever       tools.KnowledgeBaseRetriever
	KnowledgeBaseID string

	MaxIterations       int
	ToolTimeout         time.Duration
	SessionTimeout      time.Duration
	MaxObservationBytes int
}

// Engine executes research requests. Stateless across sessions; each request
// gets its own tool registry, session, and meter.
type Engine struct {
	opts Options
}

// New creates an engine.
func New(opts Options) *Engine {
	return &Engine{opts: opts}
}

// Research runs one request end to end. Validation failures are
// *model.ConfigurationError and occur before any model call.
func (e *Engine) Research(ctx context.Context, req model.ResearchRequest) (*model.ResearchResponse, error) {
	req.ApplyDefaults()
	if err := req.Validate(); err != nil {
		return nil, err
	}
	if err := e.checkStores(req); err != nil {
		return nil, err
	}

	meta, err := llm.Resolve(req.Model)
	if err != nil {
		return nil, model.NewConfigurationError("unknown model: %q", string(req.Model))
	}

	provider, err := e.opts.Provider(req.Model, meta.ID)
	if err != nil {
		return nil, err
	}

	registry, err := e.buildRegistry(req)
	if err != nil {
		return nil, err
	}

	meter := usage.NewMeter(req.Model)
	session, err := agent.NewSession(agent.Config{
		Question:            req.Question,
		Model:               req.Model,
		MaxIterations:       e.opts.MaxIterations,
		ToolTimeout:         e.opts.ToolTimeout,
		MaxObservationBytes: e.opts.MaxObservationBytes,
	}, provider, registry, meter)
	if err != nil {
		return nil, err
	}

	if e.opts.SessionTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, e.opts.SessionTimeout)
		defer cancel()
	}

	slog.Info("research session started",
		"session", session.ID(),
		"model", string(req.Model),
		"tools", req.Tools,
		"stores", req.Stores,
	)

	outcome, err := session.Run(ctx)
	if err != nil {
		return nil, err
	}

	resp := synthesis.Format(outcome.Answer, outcome.Sources, meter.Finalize(), meta.Label, meta.ID, req.Question, outcome.TerminatedEarly)

	if e.opts.History != nil {
		if _, err := e.opts.History.SaveResponse(ctx, resp); err != nil {
			// History is an audit convenience, never a reason to fail the
			// request.
			slog.Warn("failed to persist research history", "session", session.ID(), "error", err)
		}
	}

	slog.Info("research session finished",
		"session", session.ID(),
		"sources", len(resp.Sources),
		"total_tokens", resp.Usage.TotalTokens,
		"terminated_early", resp.TerminatedEarly,
	)
	return resp, nil
}

// checkStores rejects a request whose local retrieval cannot possibly work:
// every named store unknown. A partially-resolvable store list degrades
// inside the local tool instead.
func (e *Engine) checkStores(req model.ResearchRequest) error {
	if !req.HasTool(model.ToolLocal) || len(req.Stores) == 0 {
		return nil
	}

	var missing []string
	for _, name := range req.Stores {
		if !e.opts.Stores.Has(name) {
			missing = append(missing, name)
		}
	}
	if len(missing) == len(req.Stores) {
		return model.NewConfigurationError("unknown stores: %v", missing)
	}
	return nil
}

// buildRegistry registers exactly the tools the request enables. Anything
// not registered is never offered to the model.
func (e *Engine) buildRegistry(req model.ResearchRequest) (*tools.Registry, error) {
	registry := tools.NewRegistry()

	register := func(tool tools.Tool) error {
		if err := registry.Register(tool); err != nil {
			return fmt.Errorf("failed to build tool registry: %w", err)
		}
		return nil
	}

	for _, kind := range req.Tools {
		var err error
		switch kind {
		case model.ToolLocal:
			if len(req.Stores) == 0 {
				// Local retrieval with no stores named has nothing to query.
				slog.Debug("local tool requested without stores, omitting")
				continue
			}
			agg := retrieval.New(e.opts.Stores)
			err = register(tools.NewLocalSearchTool(agg, req.Stores, req.TopK))
		case model.ToolAWS:
			err = register(tools.NewAWSSearchTool(e.opts.Retriever, e.opts.KnowledgeBaseID, req.TopK))
		case model.ToolWeb:
			err = register(tools.NewWebSearchTool(e.opts.TavilyAPIKey, req.TopK))
		case model.ToolGlob:
			err = register(tools.NewGlobTool(e.opts.FSRoot, 0))
		case model.ToolGrep:
			err = register(tools.NewGrepTool(e.opts.FSRoot, 0))
		case model.ToolRead:
			err = register(tools.NewReadTool(e.opts.FSRoot, 0))
		}
		if err != nil {
			return nil, err
		}
	}
	return registry, nil
}

// ListStores returns the available local stores.
func (e *Engine) ListStores() ([]model.StoreInfo, error) {
	return e.opts.Stores.List()
}

// ListTools returns the fixed tool capability catalog.
func (e *Engine) ListTools() []model.ToolInfo {
	return []model.ToolInfo{
		{Name: string(model.ToolLocal), Description: "Search local vector stores for relevant passages", Category: tools.CategorySearch},
		{Name: string(model.ToolAWS), Description: "Search the cloud knowledge base", Category: tools.CategorySearch},
		{Name: string(model.ToolWeb), Description: "Search the web for up-to-date information", Category: tools.CategorySearch},
		{Name: string(model.ToolGlob), Description: "Find files matching a glob pattern", Category: tools.CategoryFile},
		{Name: string(model.ToolGrep), Description: "Search file contents for a regular expression", Category: tools.CategoryFile},
		{Name: string(model.ToolRead), Description: "Read the contents of a file", Category: tools.CategoryFile},
	}
}

// ListModels returns the model catalog with prices.
func (e *Engine) ListModels() []model.ModelInfo {
	return usage.Models()
}
