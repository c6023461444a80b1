// Bounded tool-use loop for one research session.
//
// The session drives the model through at most MaxIterations rounds of
// native tool calls. Capability enforcement is structural: only the tools
// registered for this session are ever offered to the model, and a call to
// anything else is answered with an error observation rather than executed.
//
// Information Hiding:
// - Loop internals and transcript layout hidden
// - Tool execution coordination hidden
// - Usage accounting hidden behind the meter

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/richinex/scriba/llm"
	"github.com/richinex/scriba/model"
	"github.com/richinex/scriba/tools"
	"github.com/richinex/scriba/usage"
)

// Defaults for session limits.
const (
	DefaultMaxIterations       = 8
	DefaultToolTimeout         = 30 * time.Second
	DefaultMaxObservationBytes = 64 * 1024
)

// Config holds the immutable parameters of one session.
type Config struct {
	Question            string
	Model               model.ModelChoice
	MaxIterations       int
	ToolTimeout         time.Duration
	MaxObservationBytes int
}

// Outcome is what a finished session loop produces. The facade combines it
// with the usage summary into the final response.
type Outcome struct {
	Answer          string
	Sources         []model.SourceInfo
	TerminatedEarly bool
}

// Session executes one research question against a fixed tool registry.
type Session struct {
	id       string
	config   Config
	provider llm.Provider
	registry *tools.Registry
	meter    *usage.Meter
}

// NewSession validates the configuration and creates a session. All
// validation failures are *model.ConfigurationError and occur before any
// model call is made.
func NewSession(config Config, provider llm.Provider, registry *tools.Registry, meter *usage.Meter) (*Session, error) {
	if strings.TrimSpace(config.Question) == "" {
		return nil, model.NewConfigurationError("question must not be empty")
	}
	if provider == nil {
		return nil, model.NewConfigurationError("no model provider configured")
	}
	if registry == nil || len(registry.Names()) == 0 {
		return nil, model.NewConfigurationError("at least one tool must be enabled")
	}
	if config.MaxIterations <= 0 {
		config.MaxIterations = DefaultMaxIterations
	}
	if config.ToolTimeout <= 0 {
		config.ToolTimeout = DefaultToolTimeout
	}
	if config.MaxObservationBytes <= 0 {
		config.MaxObservationBytes = DefaultMaxObservationBytes
	}

	return &Session{
		id:       uuid.New().String(),
		config:   config,
		provider: provider,
		registry: registry,
		meter:    meter,
	}, nil
}

// ID returns the session identifier.
func (s *Session) ID() string {
	return s.id
}

// Run executes the loop. A provider failure is fatal: no document is
// produced and the error is returned. Tool failures are not fatal; they are
// folded into the transcript as error observations and still recorded as
// zero-count sources.
func (s *Session) Run(ctx context.Context) (Outcome, error) {
	conversation := []llm.ChatMessage{
		llm.SystemMessage(s.systemPrompt()),
		llm.UserMessage(s.config.Question),
	}
	definitions := s.registry.Definitions()

	var sources []model.SourceInfo

	for iteration := 0; iteration < s.config.MaxIterations; iteration++ {
		if err := ctx.Err(); err != nil {
			if errors.Is(err, context.DeadlineExceeded) {
				slog.Warn("session time limit reached, forcing synthesis", "session", s.id)
				return s.forceSynthesis(ctx, conversation, definitions, sources)
			}
			return Outcome{}, fmt.Errorf("session cancelled: %w", err)
		}

		resp, err := s.provider.ChatWithTools(ctx, conversation, definitions, llm.ToolChoiceAuto)
		if err != nil {
			if errors.Is(ctx.Err(), context.DeadlineExceeded) {
				slog.Warn("session time limit reached mid-call, forcing synthesis", "session", s.id)
				return s.forceSynthesis(ctx, conversation, definitions, sources)
			}
			return Outcome{}, fmt.Errorf("model call failed: %w", err)
		}
		s.recordUsage(resp.Usage)

		if len(resp.ToolCalls) == 0 {
			slog.Debug("session finished", "session", s.id, "iterations", iteration+1)
			return Outcome{Answer: resp.Content, Sources: sources}, nil
		}

		conversation = append(conversation, llm.ChatMessage{
			Role:      "assistant",
			Content:   resp.Content,
			ToolCalls: resp.ToolCalls,
		})

		for _, call := range resp.ToolCalls {
			observation, callSources, isError := s.invoke(ctx, call)
			sources = append(sources, callSources...)
			conversation = append(conversation, llm.ToolResultMessage(call.ID, observation, isError))
		}
	}

	slog.Warn("iteration ceiling reached, forcing synthesis", "session", s.id, "max_iterations", s.config.MaxIterations)
	return s.forceSynthesis(ctx, conversation, definitions, sources)
}

// forceSynthesis makes one final model call with tool use disabled so the
// model must answer from whatever was gathered so far. The tool definitions
// stay on the request because a transcript containing tool blocks is invalid
// without them. An already-expired deadline gets a bounded grace window so
// the run can still end with a document.
func (s *Session) forceSynthesis(ctx context.Context, conversation []llm.ChatMessage, definitions []llm.ToolDefinition, sources []model.SourceInfo) (Outcome, error) {
	conversation = append(conversation, llm.UserMessage(
		"You have used all available research steps. Write your final answer now using only the information gathered above.",
	))

	if ctx.Err() != nil {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(context.WithoutCancel(ctx), s.config.ToolTimeout)
		defer cancel()
	}

	resp, err := s.provider.ChatWithTools(ctx, conversation, definitions, llm.ToolChoiceNone)
	if err != nil {
		return Outcome{}, fmt.Errorf("final synthesis call failed: %w", err)
	}
	s.recordUsage(resp.Usage)

	return Outcome{Answer: resp.Content, Sources: sources, TerminatedEarly: true}, nil
}

// invoke executes one tool call and returns the transcript observation, the
// audit records it produced, and whether the observation is an error.
func (s *Session) invoke(ctx context.Context, call llm.ToolCall) (string, []model.SourceInfo, bool) {
	tool, ok := s.registry.Get(call.Name)
	if !ok {
		slog.Warn("model requested an unavailable tool", "session", s.id, "tool", call.Name)
		return fmt.Sprintf("invalid tool call: %q is not available in this session", call.Name), nil, true
	}

	if err := tool.Validate(call.Arguments); err != nil {
		return fmt.Sprintf("invalid arguments for %q: %v", call.Name, err), nil, true
	}

	toolCtx, cancel := context.WithTimeout(ctx, s.config.ToolTimeout)
	defer cancel()

	started := time.Now()
	result, err := tool.Execute(toolCtx, call.Arguments)
	elapsed := time.Since(started)

	if err != nil {
		// Programming error in the adapter, not a domain failure.
		slog.Error("tool execution panic path", "session", s.id, "tool", call.Name, "error", err)
		return fmt.Sprintf("tool %q failed: %v", call.Name, err), result.Sources, true
	}

	slog.Debug("tool executed",
		"session", s.id,
		"tool", call.Name,
		"success", result.Success(),
		"duration_ms", elapsed.Milliseconds(),
	)

	if !result.Success() {
		return fmt.Sprintf("tool %q failed: %v", call.Name, result.Err), result.Sources, true
	}
	return s.truncate(result.Output), result.Sources, false
}

// recordUsage adds one model call's tokens to the meter.
func (s *Session) recordUsage(u *llm.TokenUsage) {
	if s.meter == nil || u == nil {
		return
	}
	s.meter.Record(u.InputTokens, u.OutputTokens)
}

// truncate bounds one observation so a single huge file read cannot blow up
// the transcript.
func (s *Session) truncate(observation string) string {
	if len(observation) <= s.config.MaxObservationBytes {
		return observation
	}
	return observation[:s.config.MaxObservationBytes] + "\n\n[output truncated]"
}

func (s *Session) systemPrompt() string {
	var sb strings.Builder
	sb.WriteString("You are a research assistant. Answer the user's question by gathering evidence with the available tools, then synthesize a well-structured markdown document.\n\n")
	sb.WriteString("Guidelines:\n")
	sb.WriteString("- Use tools to gather evidence before answering; do not rely on prior knowledge alone.\n")
	sb.WriteString("- Prefer several focused queries over one broad one.\n")
	sb.WriteString("- When you have enough evidence, reply with the final markdown document and no further tool calls.\n")
	sb.WriteString("- If the evidence is insufficient, say so explicitly rather than speculating.\n")
	fmt.Fprintf(&sb, "\nYou have at most %d research steps.\n", s.config.MaxIterations)
	return sb.String()
}
