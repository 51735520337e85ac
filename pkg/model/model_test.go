package model

import (
	"encoding/json"
	"testing"
)

func TestPayloadWireFormat(t *testing.T) {
	tests := []struct {
		n    Notification
		want string
	}{
		{DataNotification("42", "hi"), `{"user_id":"42","message":{"data":"hi"}}`},
		{ErrorNotification("42", "lagged"), `{"user_id":"42","message":{"error":"lagged"}}`},
		{PongNotification("42"), `{"user_id":"42","message":"pong"}`},
		{Notification{UserID: "7", Message: Payload{Kind: KindPing}}, `{"user_id":"7","message":"ping"}`},
	}

	for _, tt := range tests {
		got, err := json.Marshal(tt.n)
		if err != nil {
			t.Fatalf("Marshal %+v: %s", tt.n, err)
		}
		if string(got) != tt.want {
			t.Errorf("Marshal %+v; wanted %s, got %s", tt.n, tt.want, got)
		}

		var back Notification
		if err := json.Unmarshal(got, &back); err != nil {
			t.Fatalf("Unmarshal %s: %s", got, err)
		}
		if back != tt.n {
			t.Errorf("Unmarshal %s; wanted %+v, got %+v", got, tt.n, back)
		}
	}
}

func TestPayloadRejectsUnknown(t *testing.T) {
	for _, raw := range []string{`"PING"`, `{"other":"x"}`, `{"data":"a","error":"b"}`, `5`} {
		var p Payload
		if err := json.Unmarshal([]byte(raw), &p); err == nil {
			t.Errorf("Unmarshal %s should fail; got %+v", raw, p)
		}
	}
}

func TestAsMessage(t *testing.T) {
	if _, ok := AsMessage("pong"); ok {
		t.Error("A string must not be a Message")
	}
	if _, ok := AsMessage(42.0); ok {
		t.Error("A number must not be a Message")
	}
	if _, ok := AsMessage(nil); ok {
		t.Error("nil must not be a Message")
	}
	if m, ok := AsMessage(map[string]interface{}{"data": "hi"}); !ok || m.Text() != "hi" {
		t.Errorf("Wanted Message with text hi; got %v, %t", m, ok)
	}
}

func TestMessageText(t *testing.T) {
	tests := []struct {
		m    Message
		want string
	}{
		{Message{"data": "hello"}, "hello"},
		{Message{"data": 3.0}, "3"},
		{Message{"data": map[string]interface{}{"a": true}}, `{"a":true}`},
		{Message{"data": nil}, ""},
		{Message{}, ""},
	}
	for _, tt := range tests {
		if got := tt.m.Text(); got != tt.want {
			t.Errorf("Text of %v; wanted %q, got %q", tt.m, tt.want, got)
		}
	}
}

func TestMessageHasData(t *testing.T) {
	tests := []struct {
		m    Message
		want bool
	}{
		{Message{"data": "x"}, true},
		{Message{"data": ""}, false},
		{Message{"data": 0.0}, false},
		{Message{"data": false}, false},
		{Message{"data": nil}, false},
		{Message{"error": "x"}, false},
		{Message{"data": []interface{}{}}, true},
	}
	for _, tt := range tests {
		if got := tt.m.HasData(); got != tt.want {
			t.Errorf("HasData of %v; wanted %t, got %t", tt.m, tt.want, got)
		}
	}
}

func TestDecodeEnvelope(t *testing.T) {
	env, err := DecodeEnvelope([]byte(`{"user_id":"1","message":{"data":"hi"}}`))
	if err != nil {
		t.Fatalf("DecodeEnvelope: %s", err)
	}
	m, ok := AsMessage(env.Message())
	if !ok || m.Text() != "hi" {
		t.Errorf("Wanted nested message hi; got %v", env.Message())
	}

	for _, raw := range []string{`PING`, `null`, `[1,2]`, `"x"`, ``} {
		if _, err := DecodeEnvelope([]byte(raw)); err == nil {
			t.Errorf("DecodeEnvelope(%q) should fail", raw)
		}
	}
}
