// Package llm talks to an OpenAI-compatible chat and embeddings API.
// OpenRouter is the default upstream. Credentials and the chat model are not
// fixed at construction; they come from the settings row on every call, so an
// operator can rotate the key or switch models without a restart.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/embeddings"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
)

const (
	// DefaultBaseURL points at OpenRouter's OpenAI-compatible endpoint.
	DefaultBaseURL = "https://openrouter.ai/api/v1"

	// DefaultEmbeddingModel must stay in sync with the vector_store column
	// dimension (1536).
	DefaultEmbeddingModel = "openai/text-embedding-ada-002"
)

var (
	// ErrEmbedding wraps failures while generating embeddings.
	ErrEmbedding = errors.New("llm: embedding failed")

	// ErrCompletion wraps failures while generating chat completions.
	ErrCompletion = errors.New("llm: completion failed")
)

// Client issues embedding and completion requests. The zero value is not
// usable; construct with New.
type Client struct {
	baseURL        string
	embeddingModel string
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL overrides the upstream API base URL. Used by tests to point at
// a local fake server.
func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

// WithEmbeddingModel overrides the embedding model name.
func WithEmbeddingModel(model string) Option {
	return func(c *Client) { c.embeddingModel = model }
}

// New creates a Client with OpenRouter defaults.
func New(opts ...Option) *Client {
	c := &Client{
		baseURL:        DefaultBaseURL,
		embeddingModel: DefaultEmbeddingModel,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) newLLM(apiKey, model string) (*openai.LLM, error) {
	return openai.New(
		openai.WithToken(apiKey),
		openai.WithBaseURL(c.baseURL),
		openai.WithModel(model),
		openai.WithEmbeddingModel(c.embeddingModel),
	)
}

// EmbedDocuments embeds a batch of texts in one upstream call. The result
// preserves input order.
func (c *Client) EmbedDocuments(ctx context.Context, apiKey string, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	model, err := c.newLLM(apiKey, c.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("%w: creating client: %v", ErrEmbedding, err)
	}
	embedder, err := embeddings.NewEmbedder(model)
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %v", ErrEmbedding, err)
	}

	vectors, err := embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	if len(vectors) != len(texts) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbedding, len(vectors), len(texts))
	}
	return vectors, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, apiKey, text string) ([]float32, error) {
	model, err := c.newLLM(apiKey, c.embeddingModel)
	if err != nil {
		return nil, fmt.Errorf("%w: creating client: %v", ErrEmbedding, err)
	}
	embedder, err := embeddings.NewEmbedder(model)
	if err != nil {
		return nil, fmt.Errorf("%w: creating embedder: %v", ErrEmbedding, err)
	}

	vector, err := embedder.EmbedQuery(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrEmbedding, err)
	}
	return vector, nil
}

// Complete generates a chat completion from a system prompt and one user
// message.
func (c *Client) Complete(ctx context.Context, apiKey, modelName, systemPrompt, userMessage string, temperature float64) (string, error) {
	model, err := c.newLLM(apiKey, modelName)
	if err != nil {
		return "", fmt.Errorf("%w: creating client: %v", ErrCompletion, err)
	}

	messages := []llms.MessageContent{
		llms.TextParts(llms.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(llms.ChatMessageTypeHuman, userMessage),
	}

	resp, err := model.GenerateContent(ctx, messages, llms.WithTemperature(temperature))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrCompletion, err)
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: response has no choices", ErrCompletion)
	}

	content := strings.TrimSpace(resp.Choices[0].Content)
	if content == "" {
		return "", fmt.Errorf("%w: response is empty", ErrCompletion)
	}
	return content, nil
}
