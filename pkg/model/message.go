package model

import (
	"encoding/json"
	"fmt"
)

// A Message is a notification as seen by a receiver: a decoded JSON object carrying at least a "data" field.
// Messages are transient; they are rendered once and then dropped.
type Message map[string]interface{}

// AsMessage returns v as a Message if it is a JSON object.
// Strings, numbers and other primitives are not Messages.
func AsMessage(v interface{}) (Message, bool) {
	switch m := v.(type) {
	case Message:
		return m, m != nil
	case map[string]interface{}:
		return Message(m), m != nil
	}
	return nil, false
}

// Data returns the message's data field, and whether it was set.
func (m Message) Data() (interface{}, bool) {
	v, ok := m["data"]
	return v, ok
}

// Text gets the text to render for this message.
// Strings are returned verbatim; other values are rendered as JSON.
// A missing or null data field yields an empty string.
func (m Message) Text() string {
	v, ok := m.Data()
	if !ok || v == nil {
		return ""
	}
	if s, ok := v.(string); ok {
		return s
	}
	if b, err := json.Marshal(v); err == nil {
		return string(b)
	}
	return fmt.Sprint(v)
}

// HasData reports whether the message's data field is set to a truthy value.
// Empty strings, zero, false and null are not truthy.
func (m Message) HasData() bool {
	v, ok := m.Data()
	if !ok {
		return false
	}
	switch d := v.(type) {
	case nil:
		return false
	case string:
		return d != ""
	case bool:
		return d
	case float64:
		return d != 0
	}
	return true
}

// Error returns the error reason carried by the message, if the server sent one.
func (m Message) Error() (string, bool) {
	reason, ok := m["error"].(string)
	return reason, ok
}

// Envelope is the outer object pushed by the server.
// The notification itself is nested under the "message" key.
type Envelope map[string]interface{}

// DecodeEnvelope parses a frame as a JSON object.
func DecodeEnvelope(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, err
	}
	if env == nil {
		return nil, fmt.Errorf("frame is null")
	}
	return env, nil
}

// Message gets the raw value under the "message" key.
// It may be an object, or a primitive such as "pong".
func (env Envelope) Message() interface{} {
	return env["message"]
}
