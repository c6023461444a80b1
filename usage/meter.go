// Package usage provides per-session token accounting and cost estimation.
//
// A Meter is owned by exactly one session and accumulates token counts
// across every model call in that session. Finalize converts the counters
// into a TokenUsageInfo using the static per-model price table.
package usage

import (
	"github.com/richinex/scriba/model"
)

// Price holds USD prices per one million tokens.
type Price struct {
	InputPerMTok  float64
	OutputPerMTok float64
}

// Static price table, USD per 1M tokens. Read-only after process start.
var prices = map[model.ModelChoice]Price{
	model.ModelHaiku:  {InputPerMTok: 0.80, OutputPerMTok: 4.00},
	model.ModelSonnet: {InputPerMTok: 3.00, OutputPerMTok: 15.00},
	model.ModelOpus:   {InputPerMTok: 15.00, OutputPerMTok: 75.00},
}

var descriptions = map[model.ModelChoice]string{
	model.ModelHaiku:  "Fastest and most affordable; good for quick lookups",
	model.ModelSonnet: "Balanced speed and quality; the default",
	model.ModelOpus:   "Most capable; best for deep synthesis",
}

// PriceFor returns the price entry for a model choice.
func PriceFor(choice model.ModelChoice) (Price, bool) {
	p, ok := prices[choice]
	return p, ok
}

// Models returns the model listing with prices for the catalog endpoints.
func Models() []model.ModelInfo {
	infos := make([]model.ModelInfo, 0, len(prices))
	for _, choice := range model.AllModelChoices() {
		p := prices[choice]
		infos = append(infos, model.ModelInfo{
			Name:        string(choice),
			Description: descriptions[choice],
			InputPrice:  p.InputPerMTok,
			OutputPrice: p.OutputPerMTok,
		})
	}
	return infos
}

// Meter accumulates token counts for one session. Not safe for concurrent
// use; each session owns its own meter.
type Meter struct {
	choice       model.ModelChoice
	inputTokens  int
	outputTokens int
}

// NewMeter creates a meter priced for the given model choice.
func NewMeter(choice model.ModelChoice) *Meter {
	return &Meter{choice: choice}
}

// Record adds one model call's token counts. Negative counts are ignored.
func (m *Meter) Record(inputTokens, outputTokens int) {
	if inputTokens > 0 {
		m.inputTokens += inputTokens
	}
	if outputTokens > 0 {
		m.outputTokens += outputTokens
	}
}

// Finalize computes the session's usage summary. It may be called more than
// once; the meter is not reset.
func (m *Meter) Finalize() model.TokenUsageInfo {
	p := prices[m.choice]
	cost := float64(m.inputTokens)/1e6*p.InputPerMTok +
		float64(m.outputTokens)/1e6*p.OutputPerMTok

	return model.TokenUsageInfo{
		InputTokens:  m.inputTokens,
		OutputTokens: m.outputTokens,
		TotalTokens:  m.inputTokens + m.outputTokens,
		CostUSD:      cost,
	}
}
