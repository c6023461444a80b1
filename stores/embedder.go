// OpenAI query embedder.
//
// Stores are indexed externally with OpenAI embeddings; queries must be
// embedded with the same model to land in the same vector space.

package stores

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultEmbeddingModel matches the model used when the stores were indexed.
const DefaultEmbeddingModel = string(openai.SmallEmbedding3)

// NewOpenAIEmbedder returns an Embedder backed by the OpenAI embeddings API.
func NewOpenAIEmbedder(apiKey, embeddingModel string) Embedder {
	if embeddingModel == "" {
		embeddingModel = DefaultEmbeddingModel
	}
	client := openai.NewClient(apiKey)

	return func(ctx context.Context, text string) ([]float32, error) {
		resp, err := client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: []string{text},
			Model: openai.EmbeddingModel(embeddingModel),
		})
		if err != nil {
			return nil, fmt.Errorf("embedding request failed: %w", err)
		}
		if len(resp.Data) == 0 {
			return nil, fmt.Errorf("embedding response contained no data")
		}
		return resp.Data[0].Embedding, nil
	}
}
