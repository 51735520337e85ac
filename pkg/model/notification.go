// Copyright © 2024 Niko Carpenter <niko@nikocarpenter.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package model

import (
	"bytes"
	"encoding/json"

	"github.com/pkg/errors"
)

// Kind identifies the payload of a Notification.
type Kind string

// Payload kinds.
const (
	KindPing  Kind = "ping"
	KindPong  Kind = "pong"
	KindData  Kind = "data"
	KindError Kind = "error"
)

// Payload is the message carried by a Notification.
// Ping and pong marshal to bare strings; data and error marshal to an object keyed by their kind,
// e.g. {"data":"hello"}.
type Payload struct {
	Kind Kind
	Text string
}

// MarshalJSON implements json.Marshaler.
func (p Payload) MarshalJSON() ([]byte, error) {
	switch p.Kind {
	case KindPing, KindPong:
		return json.Marshal(string(p.Kind))
	case KindData, KindError:
		return json.Marshal(map[string]string{string(p.Kind): p.Text})
	}
	return nil, errors.Errorf("unknown payload kind %q", p.Kind)
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *Payload) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		switch Kind(s) {
		case KindPing, KindPong:
			*p = Payload{Kind: Kind(s)}
			return nil
		}
		return errors.Errorf("unknown payload %q", s)
	}

	var obj map[string]string
	if err := json.Unmarshal(b, &obj); err != nil {
		return errors.Wrap(err, "Decode payload")
	}
	if len(obj) != 1 {
		return errors.New("payload object must have exactly one key")
	}
	for k, v := range obj {
		switch Kind(k) {
		case KindData, KindError:
			*p = Payload{Kind: Kind(k), Text: v}
			return nil
		}
		return errors.Errorf("unknown payload kind %q", k)
	}
	return nil
}

// Notification is relayed by the server to every subscriber of UserID.
type Notification struct {
	UserID  string  `json:"user_id"`
	Message Payload `json:"message"`
}

// DataNotification creates a notification carrying text for a user.
func DataNotification(userID, text string) Notification {
	return Notification{UserID: userID, Message: Payload{Kind: KindData, Text: text}}
}

// ErrorNotification creates a notification reporting an error to a user.
func ErrorNotification(userID, reason string) Notification {
	return Notification{UserID: userID, Message: Payload{Kind: KindError, Text: reason}}
}

// PongNotification answers a user's keepalive.
func PongNotification(userID string) Notification {
	return Notification{UserID: userID, Message: Payload{Kind: KindPong}}
}

// SendRequest is the body of a send_notification request.
type SendRequest struct {
	Message string `json:"message"`
}
