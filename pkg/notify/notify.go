// Package notify sends notifications to a user through a pushnote relay.
package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
)

// A Field is an input holding the text to send.
type Field interface {
	Value() (string, error)
}

// Text is a Field with a fixed value.
type Text string

// Value implements Field.
func (t Text) Value() (string, error) {
	return string(t), nil
}

// Action posts notifications to the relay's admin endpoint.
// It is fire-and-forget: the relay's reply is discarded,
// and delivery can only be observed on the user's notification channels.
type Action struct {
	// BaseURL is the relay's address, e.g. http://127.0.0.1:3000.
	BaseURL    string
	HTTPClient *http.Client
	Log        *logrus.Logger
}

// Submit reads the text of field, and sends it to userID.
func (a *Action) Submit(ctx context.Context, userID string, field Field) error {
	text, err := field.Value()
	if err != nil {
		return errors.Wrap(err, "Read message")
	}
	return a.Send(ctx, userID, text)
}

// Send posts text to userID.
// Only a failure to deliver the request is reported.
func (a *Action) Send(ctx context.Context, userID, text string) error {
	base, err := url.Parse(strings.TrimSuffix(a.BaseURL, "/"))
	if err != nil {
		return errors.Wrap(err, "Parse base URL")
	}
	u := base.JoinPath("admin", "send_notification", userID)

	body, err := json.Marshal(model.SendRequest{Message: text})
	if err != nil {
		return errors.Wrap(err, "Encode notification")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u.String(), bytes.NewReader(body))
	if err != nil {
		return errors.Wrap(err, "Create request")
	}
	req.Header.Set("Content-Type", "application/json")

	client := a.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return errors.Wrap(err, "Send notification")
	}
	io.Copy(io.Discard, resp.Body)
	resp.Body.Close()

	if a.Log != nil {
		a.Log.WithFields(logrus.Fields{
			"user_id": userID,
			"status":  resp.StatusCode,
		}).Debug("Notification sent")
	}
	return nil
}
