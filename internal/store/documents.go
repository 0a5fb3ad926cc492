package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Document is an uploaded source document. Its extracted chunks live in the
// vector store, tagged with the document ID in chunk metadata.
type Document struct {
	ID        int64     `json:"id"`
	FileName  string    `json:"file_name"`
	FileType  string    `json:"file_type"`
	CreatedAt time.Time `json:"created_at"`
}

// Documents persists document records.
type Documents struct {
	pool *pgxpool.Pool
}

// NewDocuments creates a document store backed by the given pool.
func NewDocuments(pool *pgxpool.Pool) *Documents {
	return &Documents{pool: pool}
}

// Create inserts a document record and returns it with ID and timestamp set.
func (s *Documents) Create(ctx context.Context, fileName, fileType string) (*Document, error) {
	const query = `
		INSERT INTO documents (file_name, file_type)
		VALUES ($1, $2)
		RETURNING id, file_name, file_type, created_at`

	var doc Document
	err := s.pool.QueryRow(ctx, query, fileName, fileType).
		Scan(&doc.ID, &doc.FileName, &doc.FileType, &doc.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("inserting document: %w", err)
	}
	return &doc, nil
}

// Get returns a single document by ID.
func (s *Documents) Get(ctx context.Context, id int64) (*Document, error) {
	const query = `
		SELECT id, file_name, file_type, created_at
		FROM documents
		WHERE id = $1`

	var doc Document
	err := s.pool.QueryRow(ctx, query, id).
		Scan(&doc.ID, &doc.FileName, &doc.FileType, &doc.CreatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("querying document %d: %w", id, err)
	}
	return &doc, nil
}

// List returns all documents, newest first.
func (s *Documents) List(ctx context.Context) ([]Document, error) {
	const query = `
		SELECT id, file_name, file_type, created_at
		FROM documents
		ORDER BY created_at DESC, id DESC`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("listing documents: %w", err)
	}
	defer rows.Close()

	docs := []Document{}
	for rows.Next() {
		var doc Document
		if err := rows.Scan(&doc.ID, &doc.FileName, &doc.FileType, &doc.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning document row: %w", err)
		}
		docs = append(docs, doc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating document rows: %w", err)
	}
	return docs, nil
}

// Delete removes a document record. Returns ErrNotFound when no row matches.
// Callers must delete the document's vector entries first; this only removes
// the record itself.
func (s *Documents) Delete(ctx context.Context, id int64) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM documents WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("deleting document %d: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("document %d: %w", id, ErrNotFound)
	}
	return nil
}
