package protocol

import (
	"errors"
	"testing"
)

func TestParseClientMessageChat(t *testing.T) {
	raw := []byte(`{"type":"client_chat","session_id":"s1","text":"what is gravity?","persona":"teacher","language":"English","ts_ms":123}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	chat, ok := msg.(ClientChat)
	if !ok {
		t.Fatalf("message type = %T, want ClientChat", msg)
	}
	if chat.SessionID != "s1" || chat.Text != "what is gravity?" {
		t.Fatalf("unexpected chat message: %+v", chat)
	}
	if chat.Persona != "teacher" || chat.Language != "English" {
		t.Fatalf("unexpected persona/language: %+v", chat)
	}
}

func TestParseClientMessageControl(t *testing.T) {
	raw := []byte(`{"type":"client_control","session_id":"s1","action":"stop"}`)
	msg, err := ParseClientMessage(raw)
	if err != nil {
		t.Fatalf("ParseClientMessage() error = %v", err)
	}

	control, ok := msg.(ClientControl)
	if !ok {
		t.Fatalf("message type = %T, want ClientControl", msg)
	}
	if control.SessionID != "s1" || control.Action != "stop" {
		t.Fatalf("unexpected client control: %+v", control)
	}
}

func TestParseClientMessageRejectsUnknownType(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"wat"}`))
	if !errors.Is(err, ErrUnsupportedType) {
		t.Fatalf("error = %v, want ErrUnsupportedType", err)
	}
}

func TestParseClientMessageRejectsBlankChat(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{"type":"client_chat","session_id":"s1","text":""}`))
	if err == nil {
		t.Fatalf("expected validation error")
	}
}

func TestParseClientMessageRejectsBadJSON(t *testing.T) {
	_, err := ParseClientMessage([]byte(`{`))
	if err == nil {
		t.Fatalf("expected envelope error")
	}
}
