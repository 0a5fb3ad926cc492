package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"strconv"
	"time"

	"github.com/atende-ai/atende/internal/ingest"
	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
)

// maxUploadSize caps document uploads at 25 MB.
const maxUploadSize = 25 << 20

// documentHandler serves document upload, list, and delete.
type documentHandler struct {
	ingest    Ingestor
	documents DocumentLister
	chunks    ChunkCounter
	settings  SettingsStore
	logger    log.Logger
}

type documentResponse struct {
	ID         int64     `json:"id"`
	FileName   string    `json:"file_name"`
	FileType   string    `json:"file_type"`
	CreatedAt  time.Time `json:"created_at"`
	ChunkCount int64     `json:"chunk_count,omitempty"`
}

// upload ingests a multipart file. The part is spooled to a temp file that
// is removed on every exit path before the bytes reach the pipeline.
func (h *documentHandler) upload(w http.ResponseWriter, r *http.Request) {
	// Ingestion needs the embedding API key, so reject uploads before the
	// assistant is configured instead of half-ingesting a document.
	cfg, err := h.settings.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings", err)
		return
	}
	if cfg.OpenRouterAPIKey == "" {
		writeError(w, http.StatusBadRequest, "assistant is not configured, set the API key in settings first", nil)
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "multipart field 'file' is required", err)
		return
	}
	defer file.Close()

	tmp, err := os.CreateTemp("", "atende-upload-*")
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to buffer upload", err)
		return
	}
	defer func() {
		tmp.Close()
		if err := os.Remove(tmp.Name()); err != nil {
			h.logger.Warn("removing upload temp file", "path", tmp.Name(), "error", err)
		}
	}()

	if _, err := io.Copy(tmp, file); err != nil {
		writeError(w, http.StatusBadRequest, "failed to read upload", err)
		return
	}
	data, err := os.ReadFile(tmp.Name())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to read upload", err)
		return
	}

	doc, err := h.ingest.Ingest(r.Context(), header.Filename, header.Header.Get("Content-Type"), data)
	if err != nil {
		switch {
		case errors.Is(err, ingest.ErrUnsupportedFileType):
			writeError(w, http.StatusBadRequest, "unsupported file type, expected pdf, txt or md", err)
		case errors.Is(err, ingest.ErrExtraction):
			writeError(w, http.StatusBadRequest, "could not extract text from file", err)
		default:
			h.logger.Error("document ingestion failed", "file_name", header.Filename, "error", err)
			writeError(w, http.StatusInternalServerError, "document ingestion failed", err)
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"message": "Document processed successfully.",
		"document": documentResponse{
			ID:        doc.ID,
			FileName:  doc.FileName,
			FileType:  doc.FileType,
			CreatedAt: doc.CreatedAt,
		},
	})
}

// list returns all documents with their chunk counts.
func (h *documentHandler) list(w http.ResponseWriter, r *http.Request) {
	docs, err := h.documents.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list documents", err)
		return
	}

	items := make([]documentResponse, len(docs))
	for i, doc := range docs {
		count, err := h.chunks.CountByDocument(r.Context(), doc.ID)
		if err != nil {
			h.logger.Warn("counting chunks failed", "document_id", doc.ID, "error", err)
		}
		items[i] = documentResponse{
			ID:         doc.ID,
			FileName:   doc.FileName,
			FileType:   doc.FileType,
			CreatedAt:  doc.CreatedAt,
			ChunkCount: count,
		}
	}

	writeJSON(w, http.StatusOK, map[string]any{"documents": items})
}

// remove deletes a document and its indexed chunks.
func (h *documentHandler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid document id", err)
		return
	}

	if err := h.ingest.Delete(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "document not found", err)
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to delete document", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Document deleted successfully."})
}
