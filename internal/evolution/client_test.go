package evolution

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSendText(t *testing.T) {
	t.Run("posts message with apikey header", func(t *testing.T) {
		var gotPath, gotKey string
		var gotBody sendTextRequest

		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			gotPath = r.URL.Path
			gotKey = r.Header.Get("apikey")
			if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
				t.Errorf("decoding request: %v", err)
			}
			w.WriteHeader(http.StatusCreated)
		}))
		defer server.Close()

		client := NewClient(server.URL+"/", "secret-key", "default", nil)
		if err := client.SendText(context.Background(), "5511999999999", "hello"); err != nil {
			t.Fatalf("SendText: %v", err)
		}

		if gotPath != "/message/sendText/default" {
			t.Errorf("path = %q", gotPath)
		}
		if gotKey != "secret-key" {
			t.Errorf("apikey = %q", gotKey)
		}
		if gotBody.Number != "5511999999999" || gotBody.TextMessage.Text != "hello" {
			t.Errorf("body = %+v", gotBody)
		}
		if gotBody.Options.Delay != 100 || gotBody.Options.Presence != "composing" {
			t.Errorf("options = %+v", gotBody.Options)
		}
	})

	t.Run("non-2xx wraps ErrSend", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "instance not found", http.StatusNotFound)
		}))
		defer server.Close()

		client := NewClient(server.URL, "secret-key", "default", nil)
		if err := client.SendText(context.Background(), "5511999999999", "hello"); !errors.Is(err, ErrSend) {
			t.Errorf("expected ErrSend, got %v", err)
		}
	})

	t.Run("unreachable server wraps ErrSend", func(t *testing.T) {
		client := NewClient("http://127.0.0.1:1", "secret-key", "default", nil)
		if err := client.SendText(context.Background(), "5511999999999", "hello"); !errors.Is(err, ErrSend) {
			t.Errorf("expected ErrSend, got %v", err)
		}
	})
}

func TestPayloadIsProcessable(t *testing.T) {
	text := func(body string) *MessageContent {
		return &MessageContent{Text: &TextMessage{Body: body}}
	}

	tests := []struct {
		name    string
		payload Payload
		want    bool
	}{
		{
			name: "inbound direct text message",
			payload: Payload{Event: EventMessageUpsert, Data: PayloadData{
				Key:     MessageKey{RemoteJID: "5511999999999@s.whatsapp.net"},
				Message: text("hi"),
			}},
			want: true,
		},
		{
			name: "wrong event",
			payload: Payload{Event: "connection.update", Data: PayloadData{
				Key:     MessageKey{RemoteJID: "5511999999999@s.whatsapp.net"},
				Message: text("hi"),
			}},
			want: false,
		},
		{
			name: "own message",
			payload: Payload{Event: EventMessageUpsert, Data: PayloadData{
				Key:     MessageKey{RemoteJID: "5511999999999@s.whatsapp.net", FromMe: true},
				Message: text("hi"),
			}},
			want: false,
		},
		{
			name: "group message",
			payload: Payload{Event: EventMessageUpsert, Data: PayloadData{
				Key:     MessageKey{RemoteJID: "1203630000000000@g.us"},
				Message: text("hi"),
			}},
			want: false,
		},
		{
			name: "no text content",
			payload: Payload{Event: EventMessageUpsert, Data: PayloadData{
				Key:     MessageKey{RemoteJID: "5511999999999@s.whatsapp.net"},
				Message: &MessageContent{},
			}},
			want: false,
		},
		{
			name:    "no message at all",
			payload: Payload{Event: EventMessageUpsert},
			want:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.payload.IsProcessable(); got != tt.want {
				t.Errorf("IsProcessable() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestPayloadSenderNumber(t *testing.T) {
	p := Payload{Data: PayloadData{Key: MessageKey{RemoteJID: "5511999999999@s.whatsapp.net"}}}
	if got := p.SenderNumber(); got != "5511999999999" {
		t.Errorf("SenderNumber() = %q", got)
	}

	bare := Payload{Data: PayloadData{Key: MessageKey{RemoteJID: "5511999999999"}}}
	if got := bare.SenderNumber(); got != "5511999999999" {
		t.Errorf("SenderNumber() = %q", got)
	}
}

func TestPayloadText(t *testing.T) {
	p := Payload{Data: PayloadData{Message: &MessageContent{Text: &TextMessage{Body: "hello"}}}}
	if got := p.Text(); got != "hello" {
		t.Errorf("Text() = %q", got)
	}

	empty := Payload{}
	if got := empty.Text(); got != "" {
		t.Errorf("Text() = %q, want empty", got)
	}
}
