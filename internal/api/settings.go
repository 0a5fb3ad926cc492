package api

import (
	"encoding/json"
	"net/http"

	"github.com/atende-ai/atende/internal/log"
	"github.com/atende-ai/atende/internal/store"
)

// settingsHandler serves the settings singleton for the admin panel. The
// API key is returned as stored; this surface is for the operator who set
// it in the first place.
type settingsHandler struct {
	settings SettingsStore
	logger   log.Logger
}

type settingsRequest struct {
	OpenRouterAPIKey string `json:"open_router_api_key"`
	ModelName        string `json:"model_name"`
	SystemPrompt     string `json:"system_prompt"`
}

func (h *settingsHandler) get(w http.ResponseWriter, r *http.Request) {
	cfg, err := h.settings.Load(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load settings", err)
		return
	}
	writeJSON(w, http.StatusOK, cfg)
}

func (h *settingsHandler) save(w http.ResponseWriter, r *http.Request) {
	var req settingsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body", err)
		return
	}
	if req.OpenRouterAPIKey == "" || req.ModelName == "" || req.SystemPrompt == "" {
		writeError(w, http.StatusBadRequest, "open_router_api_key, model_name and system_prompt are required", nil)
		return
	}

	saved, err := h.settings.Save(r.Context(), &store.Settings{
		OpenRouterAPIKey: req.OpenRouterAPIKey,
		ModelName:        req.ModelName,
		SystemPrompt:     req.SystemPrompt,
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save settings", err)
		return
	}

	h.logger.Info("settings updated", "model_name", saved.ModelName)
	writeJSON(w, http.StatusOK, saved)
}
