// Embeddings client over any OpenAI-compatible embeddings endpoint.
//
// Information Hiding:
// - Endpoint and authentication
// - Request/response format for the embeddings API

package llm

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// EmbeddingsClient generates vector embeddings for text.
type EmbeddingsClient struct {
	client *openai.Client
	model  string
}

// NewEmbeddingsClient creates an embeddings client. baseURL may point at any
// OpenAI-compatible gateway; empty means the default OpenAI endpoint.
func NewEmbeddingsClient(apiKey, baseURL, model string) *EmbeddingsClient {
	config := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		config.BaseURL = baseURL
	}
	return &EmbeddingsClient{
		client: openai.NewClientWithConfig(config),
		model:  model,
	}
}

// Model returns the embedding model id.
func (c *EmbeddingsClient) Model() string {
	return c.model
}

// Embed returns the embedding vector for the given text.
func (c *EmbeddingsClient) Embed(ctx context.Context, text string) ([]float32, error) {
	resp, err := c.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(c.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, fmt.Errorf("embedding request failed: %w", err)
	}
	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("empty embedding returned")
	}
	return resp.Data[0].Embedding, nil
}
