package evolution

import "strings"

// EventMessageUpsert is the webhook event Evolution API emits for new
// incoming messages.
const EventMessageUpsert = "message.upsert"

const groupJIDSuffix = "@g.us"

// Payload is the webhook body Evolution API posts on events. Only the
// fields the pipeline needs are mapped.
type Payload struct {
	Event string      `json:"event"`
	Data  PayloadData `json:"data"`
}

// PayloadData carries the message envelope of a message.upsert event.
type PayloadData struct {
	Key     MessageKey      `json:"key"`
	Message *MessageContent `json:"message"`
}

// MessageKey identifies the sender of a message.
type MessageKey struct {
	RemoteJID string `json:"remoteJid"`
	FromMe    bool   `json:"fromMe"`
}

// MessageContent holds the text content of a message, when present.
type MessageContent struct {
	Text *TextMessage `json:"text"`
}

// TextMessage is the plain-text body of a message.
type TextMessage struct {
	Body string `json:"body"`
}

// IsProcessable reports whether the payload is a new inbound text message
// the pipeline should answer. Messages sent by the bot itself and messages
// from group chats are ignored.
func (p *Payload) IsProcessable() bool {
	if p.Event != EventMessageUpsert {
		return false
	}
	if p.Data.Message == nil || p.Data.Message.Text == nil {
		return false
	}
	if p.Data.Key.FromMe {
		return false
	}
	if strings.Contains(p.Data.Key.RemoteJID, groupJIDSuffix) {
		return false
	}
	return true
}

// Text returns the message body, or "" when there is none.
func (p *Payload) Text() string {
	if p.Data.Message == nil || p.Data.Message.Text == nil {
		return ""
	}
	return p.Data.Message.Text.Body
}

// SenderNumber extracts the bare phone number from the sender JID
// (everything before the '@').
func (p *Payload) SenderNumber() string {
	jid := p.Data.Key.RemoteJID
	if idx := strings.Index(jid, "@"); idx >= 0 {
		return jid[:idx]
	}
	return jid
}
