// Model catalog - maps the public model choices (haiku, sonnet, opus) to
// fully-qualified Anthropic model identifiers and human labels.

package llm

import (
	"fmt"

	"github.com/richinex/scriba/model"
)

// ModelMeta describes a resolvable synthesis model.
type ModelMeta struct {
	Choice      model.ModelChoice
	ID          string // fully-qualified backend identifier
	Label       string // human label for responses
	Description string
}

// Anthropic model identifiers.
const (
	ModelIDHaiku  = "claude-haiku-4-20250514"
	ModelIDSonnet = "claude-sonnet-4-20250514"
	ModelIDOpus   = "claude-opus-4-5-20251101"
)

var catalog = map[model.ModelChoice]ModelMeta{
	model.ModelHaiku: {
		Choice:      model.ModelHaiku,
		ID:          ModelIDHaiku,
		Label:       "Claude Haiku",
		Description: "Fastest and most affordable; good for quick lookups",
	},
	model.ModelSonnet: {
		Choice:      model.ModelSonnet,
		ID:          ModelIDSonnet,
		Label:       "Claude Sonnet",
		Description: "Balanced speed and quality; the default",
	},
	model.ModelOpus: {
		Choice:      model.ModelOpus,
		ID:          ModelIDOpus,
		Label:       "Claude Opus",
		Description: "Most capable; best for deep synthesis",
	},
}

// Resolve returns the metadata for a model choice.
func Resolve(choice model.ModelChoice) (ModelMeta, error) {
	meta, ok := catalog[choice]
	if !ok {
		return ModelMeta{}, fmt.Errorf("unknown model: %q", string(choice))
	}
	return meta, nil
}
