package api

import (
	"encoding/json"
	"net/http"

	"github.com/atende-ai/atende/internal/evolution"
	"github.com/atende-ai/atende/internal/log"
)

// webhookHandler receives Evolution API events and answers inbound messages.
type webhookHandler struct {
	processor MessageProcessor
	sender    ReplySender
	logger    log.Logger
}

// receive handles one webhook delivery. Anything that parses gets a 200 so
// the gateway does not retry; the pipeline turns its own failures into reply
// text. The sender's phone number doubles as the session ID.
func (h *webhookHandler) receive(w http.ResponseWriter, r *http.Request) {
	var payload evolution.Payload
	if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
		writeError(w, http.StatusInternalServerError, "internal webhook error", err)
		return
	}

	if !payload.IsProcessable() {
		writeJSON(w, http.StatusOK, map[string]string{"message": "Message ignored (group or own message)."})
		return
	}

	sender := payload.SenderNumber()
	h.logger.Info("webhook message received", "sender", sender)

	reply := h.processor.Process(r.Context(), payload.Text(), sender)

	if reply != "" && h.sender != nil {
		if err := h.sender.SendText(r.Context(), sender, reply); err != nil {
			// The turn is already logged; the user just will not see the
			// reply until they write again. Not worth failing the webhook.
			h.logger.Error("sending webhook reply failed", "sender", sender, "error", err)
		}
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Webhook received successfully."})
}
