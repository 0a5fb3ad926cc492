package api

import (
	"encoding/json"
	"net/http"

	"github.com/atende-ai/atende/internal/log"
)

// chatHandler serves the admin panel's test chat endpoint.
type chatHandler struct {
	processor MessageProcessor
	logger    log.Logger
}

type chatTestRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type chatTestResponse struct {
	Message string `json:"message"`
	Data    string `json:"data"`
}

// test runs one message through the pipeline and returns the reply. The
// pipeline never fails; its errors arrive as reply text, which is exactly
// what the test console should display.
func (h *chatHandler) test(w http.ResponseWriter, r *http.Request) {
	var req chatTestRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if req.Message == "" || req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "message and session_id are required", nil)
		return
	}

	reply := h.processor.Process(r.Context(), req.Message, req.SessionID)

	writeJSON(w, http.StatusOK, chatTestResponse{
		Message: "Message processed successfully.",
		Data:    reply,
	})
}
