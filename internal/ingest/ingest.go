// Package ingest turns uploaded files into indexed knowledge: extract text,
// split into chunks, embed, and write to the vector store.
package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
	"github.com/atende-ai/atende/internal/vector"
)

var (
	// ErrUnsupportedFileType is returned for uploads that are not PDF,
	// plain text, or markdown.
	ErrUnsupportedFileType = errors.New("ingest: unsupported file type")

	// ErrExtraction wraps failures while extracting text from a file.
	ErrExtraction = errors.New("ingest: text extraction failed")
)

// DocumentStore persists document records.
type DocumentStore interface {
	Create(ctx context.Context, fileName, fileType string) (*store.Document, error)
	Delete(ctx context.Context, id int64) error
}

// SettingsLoader provides the current assistant settings.
type SettingsLoader interface {
	Load(ctx context.Context) (*store.Settings, error)
}

// Embedder produces embeddings for a batch of texts.
type Embedder interface {
	EmbedDocuments(ctx context.Context, apiKey string, texts []string) ([][]float32, error)
}

// Indexer writes and removes chunk embeddings.
type Indexer interface {
	Upsert(ctx context.Context, chunks []vector.Chunk) error
	DeleteByDocument(ctx context.Context, documentID int64) (int64, error)
}

// Splitter breaks extracted text into chunks.
type Splitter interface {
	Split(text string) []string
}

// Config carries Pipeline dependencies.
type Config struct {
	Documents DocumentStore
	Settings  SettingsLoader
	Embedder  Embedder
	Index     Indexer
	Splitter  Splitter
	Logger    log.Logger
}

// Pipeline ingests and removes documents.
type Pipeline struct {
	docs     DocumentStore
	settings SettingsLoader
	embedder Embedder
	index    Indexer
	splitter Splitter
	logger   log.Logger
}

// New creates a Pipeline. All dependencies are required except Logger, which
// defaults to a no-op logger.
func New(cfg Config) (*Pipeline, error) {
	if cfg.Documents == nil || cfg.Settings == nil || cfg.Embedder == nil || cfg.Index == nil || cfg.Splitter == nil {
		return nil, errors.New("ingest: missing dependency")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Pipeline{
		docs:     cfg.Documents,
		settings: cfg.Settings,
		embedder: cfg.Embedder,
		index:    cfg.Index,
		splitter: cfg.Splitter,
		logger:   logger,
	}, nil
}

// Ingest processes one uploaded file. The document record is created before
// embedding, and deliberately survives embedding or indexing failures: the
// returned error reports the failure while the returned document remains
// valid, so the operator can see the degraded document and re-upload it.
func (p *Pipeline) Ingest(ctx context.Context, fileName, contentType string, data []byte) (*store.Document, error) {
	fileType, err := resolveFileType(fileName, contentType)
	if err != nil {
		return nil, err
	}

	text, err := extractText(fileType, data)
	if err != nil {
		return nil, err
	}

	doc, err := p.docs.Create(ctx, fileName, fileType)
	if err != nil {
		return nil, fmt.Errorf("creating document record: %w", err)
	}

	chunks := p.splitter.Split(text)
	if len(chunks) == 0 {
		p.logger.Warn("document has no extractable text", "document_id", doc.ID, "file_name", fileName)
		return doc, nil
	}

	cfg, err := p.settings.Load(ctx)
	if err != nil {
		return doc, fmt.Errorf("loading settings: %w", err)
	}

	vectors, err := p.embedder.EmbedDocuments(ctx, cfg.OpenRouterAPIKey, chunks)
	if err != nil {
		return doc, err
	}

	entries := make([]vector.Chunk, len(chunks))
	for i := range chunks {
		entries[i] = vector.Chunk{
			Content:   chunks[i],
			Embedding: vectors[i],
			Metadata: map[string]any{
				vector.MetadataDocumentID: doc.ID,
				"file_name":               fileName,
				"chunk_index":             i,
			},
		}
	}
	if err := p.index.Upsert(ctx, entries); err != nil {
		return doc, err
	}

	p.logger.Info("document ingested",
		"document_id", doc.ID,
		"file_name", fileName,
		"file_type", fileType,
		"chunks", len(chunks))
	return doc, nil
}

// Delete removes a document and its indexed chunks. A failure to remove
// chunks is logged but does not block removing the record; orphaned chunks
// reference a document that no longer exists and are harmless beyond taking
// space.
func (p *Pipeline) Delete(ctx context.Context, documentID int64) error {
	deleted, err := p.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		p.logger.Warn("deleting document chunks failed", "document_id", documentID, "error", err)
	} else {
		p.logger.Info("document chunks deleted", "document_id", documentID, "chunks", deleted)
	}

	return p.docs.Delete(ctx, documentID)
}
