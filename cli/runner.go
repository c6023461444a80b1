// Command execution for CLI commands.
//
// Information Hiding:
// - Engine and adapter wiring hidden
// - Output formatting hidden

package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/richinex/scriba/api"
	"github.com/richinex/scriba/config"
	"github.com/richinex/scriba/llm"
	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/research"
	"github.com/richinex/scriba/storage"
	"github.com/richinex/scriba/stores"
	"github.com/richinex/scriba/tools"
	"github.com/richinex/scriba/usage"
)

// SetupLogging configures the process logger. Verbose lowers the level to
// debug; default output stays quiet enough for piping documents.
func SetupLogging(verbose bool) {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})))
}

const (
	defaultMaxTokens   = 4096
	defaultTemperature = 0.2
)

// buildEngine wires the engine from settings. The returned cleanup closes
// the history database.
func buildEngine(ctx context.Context, settings config.Settings) (*research.Engine, func(), error) {
	embedModel := settings.EmbeddingModel
	if embedModel == "" {
		embedModel = stores.DefaultEmbeddingModel
	}
	registry := stores.NewRegistry(settings.StoreRoot, stores.NewOpenAIEmbedder(settings.OpenAIAPIKey, embedModel))

	cleanup := func() {}
	var history research.HistoryStore
	if settings.HistoryPath != "" {
		h, err := storage.OpenHistory(settings.HistoryPath)
		if err != nil {
			// Research still works without history.
			slog.Warn("history disabled", "path", settings.HistoryPath, "error", err)
		} else {
			history = h
			cleanup = func() { h.Close() }
		}
	}

	var retriever tools.KnowledgeBaseRetriever
	if settings.KnowledgeBaseID != "" {
		r, err := tools.NewBedrockRetriever(ctx, settings.AWSRegion)
		if err != nil {
			slog.Warn("cloud retrieval disabled", "error", err)
		} else {
			retriever = r
		}
	}

	provider := func(choice model.ModelChoice, modelID string) (llm.Provider, error) {
		if settings.AnthropicAPIKey == "" {
			return nil, model.NewConfigurationError("ANTHROPIC_API_KEY environment variable not set")
		}
		return llm.NewAnthropicProvider(settings.AnthropicAPIKey, modelID, defaultMaxTokens, defaultTemperature), nil
	}

	engine := research.New(research.Options{
		Stores:              registry,
		Provider:            provider,
		History:             history,
		FSRoot:              settings.FSRoot,
		TavilyAPIKey:        settings.TavilyAPIKey,
		Retriever:           retriever,
		KnowledgeBaseID:     settings.KnowledgeBaseID,
		MaxIterations:       settings.Agent.MaxIterations,
		ToolTimeout:         settings.Agent.ToolTimeout,
		SessionTimeout:      settings.Agent.SessionTimeout,
		MaxObservationBytes: settings.Agent.MaxObservationBytes,
	})
	return engine, cleanup, nil
}

// ResearchParams are the research command's inputs.
type ResearchParams struct {
	Question   string
	StoreNames []string
	ToolNames  []string
	ModelName  string
	TopK       int
	AsJSON     bool
}

// RunResearch executes one research question and prints the result.
func RunResearch(ctx context.Context, params ResearchParams) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	engine, cleanup, err := buildEngine(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	req := model.ResearchRequest{
		Question: params.Question,
		Stores:   params.StoreNames,
		TopK:     params.TopK,
	}
	if params.ModelName != "" {
		choice, err := model.ParseModelChoice(params.ModelName)
		if err != nil {
			return err
		}
		req.Model = choice
	}
	if params.ToolNames != nil {
		req.Tools = []model.ToolKind{}
		for _, name := range params.ToolNames {
			kind, err := model.ParseToolKind(name)
			if err != nil {
				return err
			}
			req.Tools = append(req.Tools, kind)
		}
	}

	resp, err := engine.Research(ctx, req)
	if err != nil {
		return err
	}

	if params.AsJSON {
		return printJSON(resp)
	}

	fmt.Println(resp.Document)
	fmt.Println()
	fmt.Printf("Model: %s (%s)\n", resp.Model, resp.ModelID)
	fmt.Printf("Tokens: %d in / %d out / %d total ($%.4f)\n",
		resp.Usage.InputTokens, resp.Usage.OutputTokens, resp.Usage.TotalTokens, resp.Usage.CostUSD)
	if resp.TerminatedEarly {
		fmt.Println("Note: the research step budget ran out; the answer was synthesized from partial evidence.")
	}
	return nil
}

// ListStores prints the available local stores.
func ListStores(asJSON bool) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	registry := stores.NewRegistry(settings.StoreRoot, nil)

	infos, err := registry.List()
	if err != nil {
		return err
	}

	if asJSON {
		if infos == nil {
			infos = []model.StoreInfo{}
		}
		return printJSON(map[string]any{"stores": infos})
	}

	if len(infos) == 0 {
		fmt.Printf("No stores found under %s\n", settings.StoreRoot)
		return nil
	}
	fmt.Println("Available stores:")
	for _, info := range infos {
		fmt.Printf("  %-20s %s\n", info.Name, info.DisplayName)
	}
	return nil
}

// ShowConfig prints the effective configuration.
func ShowConfig() error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	exists := "missing"
	if info, err := os.Stat(settings.StoreRoot); err == nil && info.IsDir() {
		exists = "ok"
	}

	fmt.Printf("Store root:       %s (%s)\n", settings.StoreRoot, exists)
	fmt.Printf("Filesystem root:  %s\n", settings.FSRoot)
	fmt.Printf("History path:     %s\n", settings.HistoryPath)
	fmt.Printf("HTTP address:     %s\n", settings.HTTPAddr)
	fmt.Printf("Max iterations:   %d\n", settings.Agent.MaxIterations)
	fmt.Printf("Anthropic key:    %s\n", maskKey(settings.AnthropicAPIKey))
	fmt.Printf("OpenAI key:       %s\n", maskKey(settings.OpenAIAPIKey))
	fmt.Printf("Tavily key:       %s\n", maskKey(settings.TavilyAPIKey))
	fmt.Printf("Knowledge base:   %s\n", orUnset(settings.KnowledgeBaseID))
	return nil
}

// Serve runs the HTTP server until ctx is cancelled.
func Serve(ctx context.Context, addr string) error {
	settings, err := config.New()
	if err != nil {
		return err
	}
	if addr != "" {
		settings.HTTPAddr = addr
	}

	engine, cleanup, err := buildEngine(ctx, settings)
	if err != nil {
		return err
	}
	defer cleanup()

	return api.NewServer(settings.HTTPAddr, engine).Start(ctx)
}

// ShowHistory prints the most recent research sessions.
func ShowHistory(ctx context.Context, limit int) error {
	settings, err := config.New()
	if err != nil {
		return err
	}

	h, err := storage.OpenHistory(settings.HistoryPath)
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer h.Close()

	records, err := h.Recent(ctx, limit)
	if err != nil {
		return err
	}
	if len(records) == 0 {
		fmt.Println("No research history yet.")
		return nil
	}

	for _, rec := range records {
		flag := ""
		if rec.TerminatedEarly {
			flag = " [partial]"
		}
		fmt.Printf("%s  %s  %s%s\n", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Model, rec.Question, flag)
		fmt.Printf("  id: %s  tokens: %d  cost: $%.4f  sources: %d\n",
			rec.ID, rec.Usage.TotalTokens, rec.Usage.CostUSD, len(rec.Sources))
	}
	return nil
}

// ListTools prints the tool capability catalog.
func ListTools() error {
	engine := research.New(research.Options{})
	fmt.Println("Available tools:")
	fmt.Println()
	for _, info := range engine.ListTools() {
		fmt.Printf("  %-8s [%s]  %s\n", info.Name, info.Category, info.Description)
	}
	return nil
}

// ListModels prints the model catalog with prices.
func ListModels() error {
	fmt.Println("Available models (USD per 1M tokens):")
	fmt.Println()
	for _, info := range usage.Models() {
		fmt.Printf("  %-8s in $%.2f / out $%.2f  %s\n", info.Name, info.InputPrice, info.OutputPrice, info.Description)
	}
	return nil
}

func printJSON(payload any) error {
	out, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

func maskKey(key string) string {
	if key == "" {
		return "(unset)"
	}
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", 4) + key[len(key)-4:]
}

func orUnset(s string) string {
	if s == "" {
		return "(unset)"
	}
	return s
}
