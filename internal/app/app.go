// Package app wires the application together: database, stores, adapters,
// and the two pipelines. Commands call Setup once and pull what they need.
package app

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/atende-ai/atende/db"
	"github.com/atende-ai/atende/internal/chat"
	"github.com/atende-ai/atende/internal/chunker"
	"github.com/atende-ai/atende/internal/config"
	"github.com/atende-ai/atende/internal/evolution"
	"github.com/atende-ai/atende/internal/ingest"
	"github.com/atende-ai/atende/internal/llm"
	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
	"github.com/atende-ai/atende/internal/vector"
)

// App holds all long-lived application components.
type App struct {
	Config *config.Config
	Logger log.Logger
	Pool   *pgxpool.Pool

	Documents     *store.Documents
	Conversations *store.Conversations
	Settings      *store.SettingsStore
	Vectors       *vector.Store

	LLM       *llm.Client
	Evolution *evolution.Client // nil when no Evolution URL is configured

	Processor *chat.Processor
	Ingest    *ingest.Pipeline
}

// Setup runs migrations, connects to the database, and builds every
// component. The caller owns the returned App and must Close it.
func Setup(ctx context.Context, cfg *config.Config, logger log.Logger) (*App, error) {
	if err := db.Migrate(cfg.PostgresURL(), logger); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	pool, err := db.NewPool(ctx, cfg.PostgresConnectionString())
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	a := &App{
		Config:        cfg,
		Logger:        logger,
		Pool:          pool,
		Documents:     store.NewDocuments(pool),
		Conversations: store.NewConversations(pool),
		Settings:      store.NewSettings(pool),
		Vectors:       vector.New(pool),
		LLM:           llm.New(),
	}

	if cfg.EvolutionURL != "" {
		a.Evolution = evolution.NewClient(cfg.EvolutionURL, cfg.EvolutionAPIKey, cfg.EvolutionInstance, nil)
	} else {
		logger.Warn("no Evolution API URL configured, webhook replies are disabled")
	}

	a.Processor, err = chat.New(chat.Config{
		Settings:      a.Settings,
		Conversations: a.Conversations,
		Retriever:     a.Vectors,
		Model:         a.LLM,
		Logger:        logger,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating message processor: %w", err)
	}

	a.Ingest, err = ingest.New(ingest.Config{
		Documents: a.Documents,
		Settings:  a.Settings,
		Embedder:  a.LLM,
		Index:     a.Vectors,
		Splitter:  chunker.Default(),
		Logger:    logger,
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("creating ingestion pipeline: %w", err)
	}

	return a, nil
}

// Close releases the database pool.
func (a *App) Close() {
	if a.Pool != nil {
		a.Pool.Close()
	}
}
