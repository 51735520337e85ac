package client

import (
	"context"
	"net/url"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
)

// socketChannel receives notifications over a WebSocket.
// While the socket is open, a keepalive token is sent periodically so idle connections aren't dropped by proxies.
type socketChannel struct {
	*channel
	conn *websocket.Conn
}

// Start dials the user's socket, and starts handling its events.
func (c *socketChannel) Start(ctx context.Context) error {
	ctx, err := c.begin(ctx)
	if err != nil {
		return err
	}

	u := c.url()
	c.log.WithField("url", u.String()).Debug("Dialing socket")
	conn, _, err := c.cfg.Dialer.DialContext(ctx, u.String(), nil)
	if err != nil {
		c.finish()
		return errors.Wrap(err, "Dial socket")
	}
	c.conn = conn

	frames := make(chan []byte)
	readErr := make(chan error, 1)
	go c.receive(frames, readErr)
	go c.run(ctx, frames, readErr)
	return nil
}

// url gets the socket address for the user, using ws(s) in place of http(s).
func (c *socketChannel) url() *url.URL {
	u := c.endpoint("ws")
	switch u.Scheme {
	case "https":
		u.Scheme = "wss"
	case "http":
		u.Scheme = "ws"
	}
	return u
}

// receive reads frames from the socket, and hands them to the event loop in the order they arrived.
// Binary frames are not notifications, and are skipped.
func (c *socketChannel) receive(frames chan<- []byte, readErr chan<- error) {
	for {
		msgType, data, err := c.conn.ReadMessage()
		if err != nil {
			readErr <- err
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}

		select {
		case frames <- data:
		case <-c.done:
			return
		}
	}
}

// run is the channel's event loop.
// All writes to the socket happen here, and the keepalive ticker lives only as long as this loop runs.
func (c *socketChannel) run(ctx context.Context, frames <-chan []byte, readErr <-chan error) {
	defer c.finish()
	defer c.conn.Close()

	keepalive := c.onOpen()
	defer keepalive.Stop()

	for {
		select {
		case <-keepalive.C():
			c.sendKeepalive()

		case data := <-frames:
			c.onMessage(data)

		case err := <-readErr:
			c.onClose(err)
			return

		case <-ctx.Done():
			c.conn.WriteControl(
				websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(time.Second),
			)
			c.log.Info("Socket connection closed")
			return
		}
	}
}

// onOpen sends the first keepalive, then arms the ticker for the rest.
func (c *socketChannel) onOpen() ticker {
	c.setState(Open)
	c.log.Info("Socket connection established")
	c.sendKeepalive()
	return c.cfg.newTicker(c.cfg.KeepaliveInterval)
}

func (c *socketChannel) sendKeepalive() {
	c.conn.SetWriteDeadline(time.Now().Add(c.cfg.WriteTimeout))
	if err := c.conn.WriteMessage(websocket.TextMessage, []byte(c.cfg.KeepaliveToken)); err != nil {
		c.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("Cannot send keepalive")
	}
}

// onMessage renders a frame if it is a notification.
// Frames that aren't JSON, or have no message.data, are dropped without complaint;
// the server also uses the socket for acknowledgements.
func (c *socketChannel) onMessage(data []byte) {
	if len(data) == 0 {
		return
	}

	env, err := model.DecodeEnvelope(data)
	if err != nil {
		c.log.WithField("frame", string(data)).Debug("Ignoring non-JSON frame")
		return
	}

	msg, ok := model.AsMessage(env.Message())
	if !ok || !msg.HasData() {
		if ok {
			if reason, isErr := msg.Error(); isErr {
				c.log.WithField("reason", reason).Warn("Server reported an error")
			}
		}
		c.log.WithField("frame", string(data)).Debug("Ignoring frame without notification data")
		return
	}
	c.Append(msg)
}

// onClose logs why the socket went away.
func (c *socketChannel) onClose(err error) {
	if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
		c.log.WithFields(logrus.Fields{
			"error": err,
		}).Error("An error happened on the socket")
	}
	c.log.Info("Socket connection closed")
}
