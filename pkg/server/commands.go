package server

import (
	"encoding/json"

	"github.com/n0ot/pushnote/pkg/model"
)

// frameHandler handles a notification a socket client sent to the server.
type frameHandler interface {
	Handle(*Server, *socketClient, model.Notification)
}

// frameHandlerFunc is an adapter to use an ordinary function as a frameHandler.
type frameHandlerFunc func(*Server, *socketClient, model.Notification)

// Handle calls f(srv, client, n)
func (f frameHandlerFunc) Handle(srv *Server, client *socketClient, n model.Notification) {
	f(srv, client, n)
}

// frameHandlers maps payload kinds to the handlers for frames carrying them.
// Frames of any other kind are ignored.
var frameHandlers = map[model.Kind]frameHandler{
	model.KindPing: frameHandlerFunc(handlePing),
}

// handleFrame decodes a frame from a socket client, and runs its handler.
// Frames that aren't notifications are treated as pings.
func (srv *Server) handleFrame(client *socketClient, data []byte) {
	var n model.Notification
	if err := json.Unmarshal(data, &n); err != nil {
		n = model.Notification{UserID: client.sub.userID, Message: model.Payload{Kind: model.KindPing}}
	}

	handler, ok := frameHandlers[n.Message.Kind]
	if !ok {
		client.log.WithField("kind", n.Message.Kind).Debug("Ignoring frame")
		return
	}
	handler.Handle(srv, client, n)
}

// handlePing answers a ping with a pong to every subscriber of the client's user.
func handlePing(srv *Server, client *socketClient, n model.Notification) {
	srv.Publish(model.PongNotification(client.sub.userID))
}
