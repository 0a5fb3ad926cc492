package store

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Sender values accepted by the conversations table check constraint.
const (
	SenderUser = "user"
	SenderAI   = "ai"
)

// Turn is a single message in a conversation, either from the user or
// from the assistant.
type Turn struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Sender    string    `json:"sender"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversations persists the append-only conversation log.
type Conversations struct {
	pool *pgxpool.Pool
}

// NewConversations creates a conversation store backed by the given pool.
func NewConversations(pool *pgxpool.Pool) *Conversations {
	return &Conversations{pool: pool}
}

// Append records one turn for a session. sender must be SenderUser or
// SenderAI; anything else is rejected by the database.
func (s *Conversations) Append(ctx context.Context, sessionID, sender, message string) (*Turn, error) {
	const query = `
		INSERT INTO conversations (session_id, sender, message)
		VALUES ($1, $2, $3)
		RETURNING id, session_id, sender, message, created_at`

	var turn Turn
	err := s.pool.QueryRow(ctx, query, sessionID, sender, message).
		Scan(&turn.ID, &turn.SessionID, &turn.Sender, &turn.Message, &turn.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("appending %s turn: %w", sender, err)
	}
	return &turn, nil
}

// History returns a session's turns in chronological order. limit <= 0
// returns the full history.
func (s *Conversations) History(ctx context.Context, sessionID string, limit int) ([]Turn, error) {
	query := `
		SELECT id, session_id, sender, message, created_at
		FROM conversations
		WHERE session_id = $1
		ORDER BY created_at, id`
	args := []any{sessionID}
	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := s.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying history for session %s: %w", sessionID, err)
	}
	defer rows.Close()

	turns := []Turn{}
	for rows.Next() {
		var turn Turn
		if err := rows.Scan(&turn.ID, &turn.SessionID, &turn.Sender, &turn.Message, &turn.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning turn row: %w", err)
		}
		turns = append(turns, turn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating turn rows: %w", err)
	}
	return turns, nil
}
