// Package api exposes the HTTP surface: the test chat endpoint, document
// CRUD, settings CRUD, and the Evolution API webhook.
package api

import (
	"context"
	"errors"
	"net/http"

	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
)

// MessageProcessor runs the chat pipeline for one incoming message.
type MessageProcessor interface {
	Process(ctx context.Context, message, sessionID string) string
}

// Ingestor ingests uploaded files and removes documents with their chunks.
type Ingestor interface {
	Ingest(ctx context.Context, fileName, contentType string, data []byte) (*store.Document, error)
	Delete(ctx context.Context, documentID int64) error
}

// DocumentLister lists document records.
type DocumentLister interface {
	List(ctx context.Context) ([]store.Document, error)
}

// ChunkCounter reports how many chunks are indexed per document.
type ChunkCounter interface {
	CountByDocument(ctx context.Context, documentID int64) (int64, error)
}

// SettingsStore reads and writes the settings singleton.
type SettingsStore interface {
	Load(ctx context.Context) (*store.Settings, error)
	Save(ctx context.Context, cfg *store.Settings) (*store.Settings, error)
}

// ReplySender delivers outbound replies to the chat channel.
type ReplySender interface {
	SendText(ctx context.Context, number, text string) error
}

// ServerConfig contains configuration for creating the API server.
type ServerConfig struct {
	Logger    log.Logger
	Processor MessageProcessor // Required
	Ingest    Ingestor         // Required
	Documents DocumentLister   // Required
	Chunks    ChunkCounter     // Required
	Settings  SettingsStore    // Required
	Sender    ReplySender      // Optional: nil disables webhook replies
	RateBurst int              // Rate limiter burst size per IP (0 = default 60)
	TrustProxy bool            // Trust X-Real-IP/X-Forwarded-For headers
}

// Server is the JSON API HTTP server.
type Server struct {
	mux *http.ServeMux
}

// NewServer creates the API server with all routes configured.
func NewServer(cfg ServerConfig) (*Server, error) {
	if cfg.Processor == nil || cfg.Ingest == nil || cfg.Documents == nil || cfg.Chunks == nil || cfg.Settings == nil {
		return nil, errors.New("api: missing dependency")
	}

	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	ch := &chatHandler{processor: cfg.Processor, logger: logger}
	dh := &documentHandler{ingest: cfg.Ingest, documents: cfg.Documents, chunks: cfg.Chunks, settings: cfg.Settings, logger: logger}
	sh := &settingsHandler{settings: cfg.Settings, logger: logger}
	wh := &webhookHandler{processor: cfg.Processor, sender: cfg.Sender, logger: logger}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/chat/test", ch.test)
	mux.HandleFunc("POST /api/documents/upload", dh.upload)
	mux.HandleFunc("GET /api/documents", dh.list)
	mux.HandleFunc("DELETE /api/documents/{id}", dh.remove)
	mux.HandleFunc("GET /api/settings", sh.get)
	mux.HandleFunc("POST /api/settings", sh.save)
	mux.HandleFunc("POST /api/webhook/evolution", wh.receive)

	burst := cfg.RateBurst
	if burst <= 0 {
		burst = 60
	}
	rl := newRateLimiter(1.0, burst)

	// Build middleware stack (outermost first):
	//   Recovery → RequestID → Logging → CORS → RateLimit → Routes
	// RequestID must be before Logging so request_id is available in log
	// attributes. CORS must be before RateLimit so preflight OPTIONS is
	// never rate limited.
	var handler http.Handler = mux
	handler = rateLimitMiddleware(rl, cfg.TrustProxy, logger)(handler)
	handler = corsMiddleware()(handler)
	handler = loggingMiddleware(logger)(handler)
	handler = requestIDMiddleware()(handler)
	handler = recoveryMiddleware(logger)(handler)

	// Health probes stay outside the middleware stack.
	topMux := http.NewServeMux()
	topMux.HandleFunc("GET /health", health)
	topMux.Handle("/", handler)

	return &Server{mux: topMux}, nil
}

// Handler returns the server as an http.Handler.
func (s *Server) Handler() http.Handler {
	return s.mux
}
