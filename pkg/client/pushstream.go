package client

import (
	"context"
	"io"
	"net/http"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
)

// pushStreamChannel receives notifications over server-sent events.
// The protocol takes care of liveness, so no keepalive is sent.
type pushStreamChannel struct {
	*channel
}

// Start requests the push stream for the user, and starts reading events from it.
func (c *pushStreamChannel) Start(ctx context.Context) error {
	ctx, err := c.begin(ctx)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint("sse").String(), nil)
	if err != nil {
		c.finish()
		return errors.Wrap(err, "Create push stream request")
	}
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")

	c.log.WithField("url", req.URL.String()).Debug("Opening push stream")
	resp, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		c.finish()
		return errors.Wrap(err, "Open push stream")
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		c.finish()
		return errors.Errorf("Open push stream: server responded %s", resp.Status)
	}

	c.setState(Open)
	c.log.Info("Push stream connection established")
	go c.run(ctx, resp.Body)
	return nil
}

// run is the channel's event loop. Events are handled one at a time, in the order the server sent them.
func (c *pushStreamChannel) run(ctx context.Context, body io.ReadCloser) {
	defer c.finish()
	defer body.Close()

	err := readEvents(body, c.onEvent)
	switch {
	case ctx.Err() != nil:
		c.log.Info("Push stream closed")
	case err != nil:
		c.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("An error happened on the push stream")
	default:
		c.log.Info("Push stream closed by server")
	}
}

// onEvent parses an event's data as a notification envelope, and renders the message nested inside.
// Malformed events are dropped.
func (c *pushStreamChannel) onEvent(ev event) {
	if ev.Type != defaultEventType {
		c.log.WithField("event", ev.Type).Debug("Ignoring push stream event")
		return
	}

	env, err := model.DecodeEnvelope([]byte(ev.Data))
	if err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err,
			"data":  ev.Data,
		}).Warn("Dropping malformed push stream event")
		return
	}

	msg := env.Message()
	if m, ok := model.AsMessage(msg); ok {
		if reason, ok := m.Error(); ok {
			c.log.WithField("reason", reason).Warn("Server reported an error")
		}
	}
	c.Append(msg)
}
