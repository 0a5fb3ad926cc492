package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Settings is the assistant configuration singleton. The table holds at most
// one row (id = 1); the OpenRouter credentials and prompt live here rather
// than in server config so they can be changed at runtime.
type Settings struct {
	OpenRouterAPIKey string    `json:"open_router_api_key"`
	ModelName        string    `json:"model_name"`
	SystemPrompt     string    `json:"system_prompt"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// SettingsStore persists the settings singleton.
type SettingsStore struct {
	pool *pgxpool.Pool
}

// NewSettings creates a settings store backed by the given pool.
func NewSettings(pool *pgxpool.Pool) *SettingsStore {
	return &SettingsStore{pool: pool}
}

// Load returns the settings row. The migration seeds an empty row, so
// ErrNotFound only occurs if the row was removed out of band. Callers decide
// whether empty credentials count as configured.
func (s *SettingsStore) Load(ctx context.Context) (*Settings, error) {
	const query = `
		SELECT open_router_api_key, model_name, system_prompt, updated_at
		FROM settings
		WHERE id = 1`

	var cfg Settings
	err := s.pool.QueryRow(ctx, query).
		Scan(&cfg.OpenRouterAPIKey, &cfg.ModelName, &cfg.SystemPrompt, &cfg.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("settings row: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("loading settings: %w", err)
	}
	return &cfg, nil
}

// Save upserts the settings row and returns the stored values.
func (s *SettingsStore) Save(ctx context.Context, cfg *Settings) (*Settings, error) {
	const query = `
		INSERT INTO settings (id, open_router_api_key, model_name, system_prompt, updated_at)
		VALUES (1, $1, $2, $3, now())
		ON CONFLICT (id) DO UPDATE SET
			open_router_api_key = EXCLUDED.open_router_api_key,
			model_name          = EXCLUDED.model_name,
			system_prompt       = EXCLUDED.system_prompt,
			updated_at          = now()
		RETURNING open_router_api_key, model_name, system_prompt, updated_at`

	var saved Settings
	err := s.pool.QueryRow(ctx, query, cfg.OpenRouterAPIKey, cfg.ModelName, cfg.SystemPrompt).
		Scan(&saved.OpenRouterAPIKey, &saved.ModelName, &saved.SystemPrompt, &saved.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("saving settings: %w", err)
	}
	return &saved, nil
}
