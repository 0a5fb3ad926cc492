// Package vector persists chunk embeddings in PostgreSQL with pgvector and
// serves cosine similarity search over them.
package vector

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
)

// ErrIndexWrite wraps failures while writing chunk embeddings to the index.
var ErrIndexWrite = errors.New("vector: index write failed")

// MetadataDocumentID is the metadata key tagging each chunk with the document
// it was extracted from. Deletion by document relies on it.
const MetadataDocumentID = "document_id"

// Chunk is one embedded piece of a document, ready for indexing.
type Chunk struct {
	ID        uuid.UUID
	Content   string
	Embedding []float32
	Metadata  map[string]any
}

// Result is a search hit. Distance is the cosine distance to the query
// embedding; lower is closer.
type Result struct {
	ID       uuid.UUID
	Content  string
	Metadata map[string]any
	Distance float64
}

// Store reads and writes the vector_store table.
type Store struct {
	pool *pgxpool.Pool
}

// New creates a vector store backed by the given pool.
func New(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

// Upsert indexes a batch of chunks. Chunks without an ID get one assigned.
// The batch is sent as a single round trip; any failed insert aborts the rest
// and the error wraps ErrIndexWrite.
func (s *Store) Upsert(ctx context.Context, chunks []Chunk) error {
	if len(chunks) == 0 {
		return nil
	}

	const query = `
		INSERT INTO vector_store (id, content, embedding, metadata)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			content   = EXCLUDED.content,
			embedding = EXCLUDED.embedding,
			metadata  = EXCLUDED.metadata`

	batch := &pgx.Batch{}
	for i := range chunks {
		if chunks[i].ID == uuid.Nil {
			chunks[i].ID = uuid.New()
		}
		batch.Queue(query,
			chunks[i].ID,
			chunks[i].Content,
			pgvector.NewVector(chunks[i].Embedding),
			chunks[i].Metadata,
		)
	}

	br := s.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := range chunks {
		if _, err := br.Exec(); err != nil {
			return fmt.Errorf("%w: chunk %d: %v", ErrIndexWrite, i, err)
		}
	}
	return nil
}

// Search returns the k chunks closest to the query embedding by cosine
// distance, nearest first.
func (s *Store) Search(ctx context.Context, embedding []float32, k int) ([]Result, error) {
	const query = `
		SELECT id, content, metadata, embedding <=> $1 AS distance
		FROM vector_store
		ORDER BY embedding <=> $1
		LIMIT $2`

	rows, err := s.pool.Query(ctx, query, pgvector.NewVector(embedding), k)
	if err != nil {
		return nil, fmt.Errorf("searching vector store: %w", err)
	}
	defer rows.Close()

	results := []Result{}
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.ID, &r.Content, &r.Metadata, &r.Distance); err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating search results: %w", err)
	}
	return results, nil
}

// DeleteByDocument removes every chunk tagged with the given document ID and
// reports how many rows were removed.
func (s *Store) DeleteByDocument(ctx context.Context, documentID int64) (int64, error) {
	const query = `DELETE FROM vector_store WHERE metadata->>'document_id' = $1`

	tag, err := s.pool.Exec(ctx, query, strconv.FormatInt(documentID, 10))
	if err != nil {
		return 0, fmt.Errorf("deleting chunks for document %d: %w", documentID, err)
	}
	return tag.RowsAffected(), nil
}

// CountByDocument reports how many chunks are indexed for a document.
func (s *Store) CountByDocument(ctx context.Context, documentID int64) (int64, error) {
	const query = `SELECT count(*) FROM vector_store WHERE metadata->>'document_id' = $1`

	var count int64
	err := s.pool.QueryRow(ctx, query, strconv.FormatInt(documentID, 10)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting chunks for document %d: %w", documentID, err)
	}
	return count, nil
}
