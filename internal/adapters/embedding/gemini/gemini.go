// Package gemini embeds text through Google's Gemini embedding API.
package gemini

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"github.com/convergehq/converge/internal/adapters/embedding"
	"github.com/convergehq/converge/internal/domain/model"
)

const (
	defaultModel = "gemini-embedding-001"
	// gemini-embedding-001 produces 768-dimensional vectors.
	dimension = 768
)

// Client wraps the genai SDK as an embedding.Embedder.
type Client struct {
	client *genai.Client
	model  string
}

// Option configures a Client.
type Option func(*Client)

// WithModel overrides the embedding model name.
func WithModel(name string) Option {
	return func(c *Client) {
		if name != "" {
			c.model = name
		}
	}
}

// New creates a Gemini embedding client. The API key is required.
func New(ctx context.Context, apiKey string, opts ...Option) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	inner, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}

	c := &Client{client: inner, model: defaultModel}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Embed requests a semantic-similarity embedding for the text.
func (c *Client) Embed(ctx context.Context, text string) (model.EmbeddingVector, error) {
	if text == "" {
		return nil, embedding.ErrEmptyText
	}

	contents := []*genai.Content{
		genai.NewContentFromText(text, genai.RoleUser),
	}

	result, err := c.client.Models.EmbedContent(ctx, c.model, contents, &genai.EmbedContentConfig{
		TaskType: "SEMANTIC_SIMILARITY",
	})
	if err != nil {
		return nil, fmt.Errorf("embed content: %w", err)
	}
	if len(result.Embeddings) == 0 {
		return nil, embedding.ErrNoEmbedding
	}

	values := result.Embeddings[0].Values
	vec := make(model.EmbeddingVector, len(values))
	for i, v := range values {
		vec[i] = float64(v)
	}
	return vec, nil
}

// Dimension returns the vector length the model produces.
func (c *Client) Dimension() int {
	return dimension
}
