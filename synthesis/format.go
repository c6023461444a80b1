// Package synthesis assembles the final research document and response.
//
// Formatting is pure: it never calls the model and never fails. The answer
// text comes from the session; this package appends the audit trail and
// packages the response envelope.
package synthesis

import (
	"fmt"
	"strings"

	"github.com/richinex/scriba/model"
)

// Format builds the finished response from a session's outputs. Sources keep
// the chronological order they were collected in. The model field carries
// the human label, the model_id field the backend identifier.
func Format(answer string, sources []model.SourceInfo, usageInfo model.TokenUsageInfo, modelLabel, modelID, question string, terminatedEarly bool) *model.ResearchResponse {
	if sources == nil {
		sources = []model.SourceInfo{}
	}
	return &model.ResearchResponse{
		Document:        document(answer, sources),
		Sources:         sources,
		Usage:           usageInfo,
		Model:           modelLabel,
		ModelID:         modelID,
		Query:           question,
		TerminatedEarly: terminatedEarly,
	}
}

// document appends the sources section to the synthesized answer.
func document(answer string, sources []model.SourceInfo) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimRight(answer, "\n"))
	sb.WriteString("\n\n## Sources\n\n")

	if len(sources) == 0 {
		sb.WriteString("No sources were consulted.\n")
		return sb.String()
	}

	for i, src := range sources {
		fmt.Fprintf(&sb, "%d. %s\n", i+1, describeSource(src))
	}
	return sb.String()
}

func describeSource(src model.SourceInfo) string {
	label := src.SourceType
	if src.StoreName != nil {
		label = fmt.Sprintf("%s (store: %s)", src.SourceType, *src.StoreName)
	}
	noun := "results"
	if src.ResultCount == 1 {
		noun = "result"
	}
	return fmt.Sprintf("**%s**: query %q (%d %s)", label, src.Query, src.ResultCount, noun)
}
