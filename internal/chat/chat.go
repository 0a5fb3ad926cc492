// Package chat runs the message processing pipeline: look up settings, log
// the user turn, retrieve relevant chunks, ask the model, log the reply.
//
// Process never fails from the caller's point of view. Whatever goes wrong
// inside the pipeline becomes a user-visible reply, because the person on
// the other end of a chat channel cannot do anything with an HTTP 500.
package chat

import (
	"context"
	"errors"
	"fmt"

	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
	"github.com/atende-ai/atende/internal/vector"
)

// ErrConfigurationMissing means the settings row has no API key or model
// yet, so the pipeline cannot reach the language model.
var ErrConfigurationMissing = errors.New("chat: assistant is not configured, set the API key and model in settings")

const (
	// topK is how many chunks retrieval feeds into the prompt.
	topK = 4

	// temperature for completions.
	temperature = 0.7

	errorReplyPrefix = "Sorry, an error occurred while processing your request: "
)

// SettingsLoader provides the current assistant settings.
type SettingsLoader interface {
	Load(ctx context.Context) (*store.Settings, error)
}

// ConversationLog appends turns to the conversation history.
type ConversationLog interface {
	Append(ctx context.Context, sessionID, sender, message string) (*store.Turn, error)
}

// Retriever finds the chunks nearest to a query embedding.
type Retriever interface {
	Search(ctx context.Context, embedding []float32, k int) ([]vector.Result, error)
}

// Model is the language model surface the pipeline needs.
type Model interface {
	EmbedQuery(ctx context.Context, apiKey, text string) ([]float32, error)
	Complete(ctx context.Context, apiKey, modelName, systemPrompt, userMessage string, temperature float64) (string, error)
}

// Config carries Processor dependencies.
type Config struct {
	Settings      SettingsLoader
	Conversations ConversationLog
	Retriever     Retriever
	Model         Model
	Logger        log.Logger
}

// Processor executes the message pipeline.
type Processor struct {
	settings      SettingsLoader
	conversations ConversationLog
	retriever     Retriever
	model         Model
	sessions      *keyMutex
	logger        log.Logger
}

// New creates a Processor. All dependencies are required except Logger,
// which defaults to a no-op logger.
func New(cfg Config) (*Processor, error) {
	if cfg.Settings == nil || cfg.Conversations == nil || cfg.Retriever == nil || cfg.Model == nil {
		return nil, errors.New("chat: missing dependency")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Processor{
		settings:      cfg.Settings,
		conversations: cfg.Conversations,
		retriever:     cfg.Retriever,
		model:         cfg.Model,
		sessions:      newKeyMutex(),
		logger:        logger,
	}, nil
}

// Process handles one incoming message and returns the reply text. It never
// returns an error; failures become an apologetic reply that is also logged
// as the ai turn so the history reflects what the user actually saw.
//
// Calls for the same sessionID are serialized, keeping turn order in the
// conversation log consistent with delivery order.
func (p *Processor) Process(ctx context.Context, message, sessionID string) string {
	unlock := p.sessions.Lock(sessionID)
	defer unlock()

	reply, err := p.run(ctx, message, sessionID)
	if err != nil {
		p.logger.Error("message pipeline failed", "session_id", sessionID, "error", err)

		reply = errorReplyPrefix + err.Error()
		if _, logErr := p.conversations.Append(ctx, sessionID, store.SenderAI, reply); logErr != nil {
			p.logger.Error("logging error reply failed", "session_id", sessionID, "error", logErr)
		}
	}
	return reply
}

func (p *Processor) run(ctx context.Context, message, sessionID string) (string, error) {
	cfg, err := p.settings.Load(ctx)
	if err != nil {
		return "", fmt.Errorf("loading settings: %w", err)
	}
	if cfg.OpenRouterAPIKey == "" || cfg.ModelName == "" {
		return "", ErrConfigurationMissing
	}

	if _, err := p.conversations.Append(ctx, sessionID, store.SenderUser, message); err != nil {
		return "", fmt.Errorf("logging user turn: %w", err)
	}

	embedding, err := p.model.EmbedQuery(ctx, cfg.OpenRouterAPIKey, message)
	if err != nil {
		return "", err
	}

	results, err := p.retriever.Search(ctx, embedding, topK)
	if err != nil {
		return "", fmt.Errorf("searching knowledge base: %w", err)
	}

	system, user := buildPrompt(cfg.SystemPrompt, formatContext(results), message)

	reply, err := p.model.Complete(ctx, cfg.OpenRouterAPIKey, cfg.ModelName, system, user, temperature)
	if err != nil {
		return "", err
	}

	if _, err := p.conversations.Append(ctx, sessionID, store.SenderAI, reply); err != nil {
		return "", fmt.Errorf("logging ai turn: %w", err)
	}

	p.logger.Debug("message processed",
		"session_id", sessionID,
		"context_chunks", len(results),
		"reply_length", len(reply))
	return reply, nil
}
