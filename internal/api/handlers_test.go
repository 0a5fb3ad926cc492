package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/atende-ai/atende/internal/ingest"
	"github.com/atende-ai/atende/internal/store"
)

type mockProcessor struct {
	reply          string
	gotMessage     string
	gotSessionID   string
	calls          int
	panicOnProcess bool
}

func (m *mockProcessor) Process(_ context.Context, message, sessionID string) string {
	if m.panicOnProcess {
		panic("boom")
	}
	m.calls++
	m.gotMessage = message
	m.gotSessionID = sessionID
	return m.reply
}

type mockIngestor struct {
	doc       *store.Document
	deleted   []int64
	ingestErr error
	deleteErr error
}

func (m *mockIngestor) Ingest(_ context.Context, fileName, fileType string, _ []byte) (*store.Document, error) {
	if m.ingestErr != nil {
		return nil, m.ingestErr
	}
	if m.doc != nil {
		return m.doc, nil
	}
	return &store.Document{ID: 1, FileName: fileName, FileType: fileType}, nil
}

func (m *mockIngestor) Delete(_ context.Context, documentID int64) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.deleted = append(m.deleted, documentID)
	return nil
}

type mockDocuments struct {
	docs    []store.Document
	listErr error
}

func (m *mockDocuments) List(context.Context) ([]store.Document, error) {
	if m.listErr != nil {
		return nil, m.listErr
	}
	return m.docs, nil
}

type mockChunks struct {
	counts map[int64]int64
}

func (m *mockChunks) CountByDocument(_ context.Context, documentID int64) (int64, error) {
	return m.counts[documentID], nil
}

type mockSettingsStore struct {
	settings store.Settings
	loadErr  error
	saveErr  error
}

func (m *mockSettingsStore) Load(context.Context) (*store.Settings, error) {
	if m.loadErr != nil {
		return nil, m.loadErr
	}
	cfg := m.settings
	return &cfg, nil
}

func (m *mockSettingsStore) Save(_ context.Context, cfg *store.Settings) (*store.Settings, error) {
	if m.saveErr != nil {
		return nil, m.saveErr
	}
	m.settings = *cfg
	return cfg, nil
}

type mockSender struct {
	sentTo   []string
	sentText []string
	sendErr  error
}

func (m *mockSender) SendText(_ context.Context, number, text string) error {
	if m.sendErr != nil {
		return m.sendErr
	}
	m.sentTo = append(m.sentTo, number)
	m.sentText = append(m.sentText, text)
	return nil
}

type mocks struct {
	processor *mockProcessor
	ingest    *mockIngestor
	documents *mockDocuments
	chunks    *mockChunks
	settings  *mockSettingsStore
	sender    *mockSender
}

func newMocks() *mocks {
	return &mocks{
		processor: &mockProcessor{reply: "the reply"},
		ingest:    &mockIngestor{},
		documents: &mockDocuments{},
		chunks:    &mockChunks{counts: map[int64]int64{}},
		settings: &mockSettingsStore{settings: store.Settings{
			OpenRouterAPIKey: "sk-or-test",
			ModelName:        "test-model",
			SystemPrompt:     "be helpful",
		}},
		sender: &mockSender{},
	}
}

func newTestServer(t *testing.T, m *mocks) *Server {
	t.Helper()
	srv, err := NewServer(ServerConfig{
		Processor: m.processor,
		Ingest:    m.ingest,
		Documents: m.documents,
		Chunks:    m.chunks,
		Settings:  m.settings,
		Sender:    m.sender,
	})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	return srv
}

func jsonRequest(t *testing.T, method, path string, body any) *http.Request {
	t.Helper()
	data, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshaling request body: %v", err)
	}
	req := httptest.NewRequest(method, path, bytes.NewReader(data))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func do(t *testing.T, srv *Server, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
	return body
}

func TestChatTest(t *testing.T) {
	t.Run("processes message and returns reply", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/chat/test",
			map[string]string{"message": "hi", "session_id": "console"}))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		body := decodeBody(t, rec)
		if body["data"] != "the reply" {
			t.Errorf("data = %v", body["data"])
		}
		if m.processor.gotMessage != "hi" || m.processor.gotSessionID != "console" {
			t.Errorf("processor got %q / %q", m.processor.gotMessage, m.processor.gotSessionID)
		}
	})

	t.Run("missing fields", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		for _, body := range []map[string]string{
			{"session_id": "console"},
			{"message": "hi"},
			{},
		} {
			rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/chat/test", body))
			if rec.Code != http.StatusBadRequest {
				t.Errorf("body %v: status = %d, want 400", body, rec.Code)
			}
		}
	})

	t.Run("invalid JSON", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		req := httptest.NewRequest(http.MethodPost, "/api/chat/test", strings.NewReader("{not json"))
		if rec := do(t, srv, req); rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func multipartUpload(t *testing.T, fieldName, fileName, content string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(fieldName, fileName)
	if err != nil {
		t.Fatalf("creating form file: %v", err)
	}
	if _, err := io.WriteString(part, content); err != nil {
		t.Fatalf("writing form file: %v", err)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/documents/upload", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestDocumentUpload(t *testing.T) {
	t.Run("ingests the uploaded file", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, multipartUpload(t, "file", "notes.txt", "some text"))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}

		body := decodeBody(t, rec)
		doc, ok := body["document"].(map[string]any)
		if !ok {
			t.Fatalf("missing document in response: %v", body)
		}
		if doc["file_name"] != "notes.txt" {
			t.Errorf("file_name = %v", doc["file_name"])
		}
	})

	t.Run("missing file field", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		rec := do(t, srv, multipartUpload(t, "attachment", "notes.txt", "some text"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unsupported file type", func(t *testing.T) {
		m := newMocks()
		m.ingest.ingestErr = ingest.ErrUnsupportedFileType
		srv := newTestServer(t, m)

		rec := do(t, srv, multipartUpload(t, "file", "photo.png", "binary"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unconfigured assistant rejects uploads", func(t *testing.T) {
		m := newMocks()
		m.settings.settings = store.Settings{}
		srv := newTestServer(t, m)

		rec := do(t, srv, multipartUpload(t, "file", "notes.txt", "some text"))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("pipeline failure is a 500", func(t *testing.T) {
		m := newMocks()
		m.ingest.ingestErr = errors.New("embedding down")
		srv := newTestServer(t, m)

		rec := do(t, srv, multipartUpload(t, "file", "notes.txt", "some text"))
		if rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})
}

func TestDocumentList(t *testing.T) {
	m := newMocks()
	m.documents.docs = []store.Document{
		{ID: 1, FileName: "manual.pdf", FileType: "application/pdf"},
		{ID: 2, FileName: "faq.md", FileType: "text/markdown"},
	}
	m.chunks.counts = map[int64]int64{1: 12, 2: 3}
	srv := newTestServer(t, m)

	rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/documents", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}

	body := decodeBody(t, rec)
	docs, ok := body["documents"].([]any)
	if !ok || len(docs) != 2 {
		t.Fatalf("documents = %v", body["documents"])
	}
	first := docs[0].(map[string]any)
	if first["chunk_count"] != float64(12) {
		t.Errorf("chunk_count = %v", first["chunk_count"])
	}
}

func TestDocumentDelete(t *testing.T) {
	t.Run("deletes by id", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/documents/42", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if len(m.ingest.deleted) != 1 || m.ingest.deleted[0] != 42 {
			t.Errorf("deleted = %v", m.ingest.deleted)
		}
	})

	t.Run("malformed id", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/documents/abc", nil))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("unknown id", func(t *testing.T) {
		m := newMocks()
		m.ingest.deleteErr = store.ErrNotFound
		srv := newTestServer(t, m)

		rec := do(t, srv, httptest.NewRequest(http.MethodDelete, "/api/documents/999", nil))
		if rec.Code != http.StatusNotFound {
			t.Errorf("status = %d, want 404", rec.Code)
		}
	})
}

func TestSettings(t *testing.T) {
	t.Run("get returns stored settings", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		rec := do(t, srv, httptest.NewRequest(http.MethodGet, "/api/settings", nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		body := decodeBody(t, rec)
		if body["model_name"] != "test-model" {
			t.Errorf("model_name = %v", body["model_name"])
		}
	})

	t.Run("save upserts", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/settings", map[string]string{
			"open_router_api_key": "sk-or-new",
			"model_name":          "openai/gpt-4o",
			"system_prompt":       "be brief",
		}))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
		}
		if m.settings.settings.ModelName != "openai/gpt-4o" {
			t.Errorf("stored model = %q", m.settings.settings.ModelName)
		}
	})

	t.Run("save requires all fields", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/settings", map[string]string{
			"model_name": "openai/gpt-4o",
		}))
		if rec.Code != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", rec.Code)
		}
	})
}

func webhookPayload(fromMe bool, jid, text string) map[string]any {
	return map[string]any{
		"event": "message.upsert",
		"data": map[string]any{
			"key": map[string]any{
				"remoteJid": jid,
				"fromMe":    fromMe,
			},
			"message": map[string]any{
				"text": map[string]any{"body": text},
			},
		},
	}
}

func TestWebhook(t *testing.T) {
	t.Run("processes inbound message and replies", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/webhook/evolution",
			webhookPayload(false, "5511999999999@s.whatsapp.net", "opening hours?")))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if m.processor.calls != 1 {
			t.Errorf("processor calls = %d", m.processor.calls)
		}
		if m.processor.gotSessionID != "5511999999999" {
			t.Errorf("session id = %q", m.processor.gotSessionID)
		}
		if len(m.sender.sentTo) != 1 || m.sender.sentTo[0] != "5511999999999" {
			t.Errorf("sent to = %v", m.sender.sentTo)
		}
		if m.sender.sentText[0] != "the reply" {
			t.Errorf("sent text = %q", m.sender.sentText[0])
		}
	})

	t.Run("own message acked without processing", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/webhook/evolution",
			webhookPayload(true, "5511999999999@s.whatsapp.net", "echo")))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if m.processor.calls != 0 {
			t.Errorf("processor should not run, calls = %d", m.processor.calls)
		}
		if len(m.sender.sentTo) != 0 {
			t.Errorf("nothing should be sent, got %v", m.sender.sentTo)
		}
	})

	t.Run("group message acked without processing", func(t *testing.T) {
		m := newMocks()
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/webhook/evolution",
			webhookPayload(false, "1203630000000000@g.us", "group chatter")))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d", rec.Code)
		}
		if m.processor.calls != 0 {
			t.Errorf("processor should not run, calls = %d", m.processor.calls)
		}
	})

	t.Run("send failure still acks", func(t *testing.T) {
		m := newMocks()
		m.sender.sendErr = errors.New("gateway down")
		srv := newTestServer(t, m)

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/webhook/evolution",
			webhookPayload(false, "5511999999999@s.whatsapp.net", "hi")))

		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
	})

	t.Run("malformed JSON is a 500", func(t *testing.T) {
		srv := newTestServer(t, newMocks())

		req := httptest.NewRequest(http.MethodPost, "/api/webhook/evolution", strings.NewReader("{broken"))
		if rec := do(t, srv, req); rec.Code != http.StatusInternalServerError {
			t.Errorf("status = %d, want 500", rec.Code)
		}
	})

	t.Run("no sender configured still acks", func(t *testing.T) {
		m := newMocks()
		srv, err := NewServer(ServerConfig{
			Processor: m.processor,
			Ingest:    m.ingest,
			Documents: m.documents,
			Chunks:    m.chunks,
			Settings:  m.settings,
		})
		if err != nil {
			t.Fatalf("NewServer: %v", err)
		}

		rec := do(t, srv, jsonRequest(t, http.MethodPost, "/api/webhook/evolution",
			webhookPayload(false, "5511999999999@s.whatsapp.net", "hi")))
		if rec.Code != http.StatusOK {
			t.Errorf("status = %d, want 200", rec.Code)
		}
		if m.processor.calls != 1 {
			t.Errorf("processor calls = %d", m.processor.calls)
		}
	})
}
