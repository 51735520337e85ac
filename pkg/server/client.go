package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// socketClient Represents a socket subscriber on the server.
type socketClient struct {
	conn          *websocket.Conn
	sub           *subscriber
	log           *logrus.Entry
	done          chan struct{} // Closed when client is finished
	stopOnce      sync.Once
	StoppedReason string // Reason the client was stopped
}

// handleSocket upgrades the request to a socket, and relays the user's notifications over it.
func (srv *Server) handleSocket(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userID")
	log := srv.Log.WithFields(logrus.Fields{
		"transport": transportSocket,
		"user_id":   userID,
		"remote":    srv.remoteHost(r),
	})

	conn, err := srv.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// The upgrader has already replied.
		log.WithError(err).Warn("Upgrade failed")
		return
	}
	defer conn.Close()

	sub := srv.registry.subscribe(userID, transportSocket, srv.SendBuffer)
	defer srv.registry.unsubscribe(sub)

	client := &socketClient{
		conn: conn,
		sub:  sub,
		log:  log.WithField("subscriber_id", sub.id),
		done: make(chan struct{}),
	}
	client.log.Info("Subscriber connected")

	if err := conn.WriteControl(websocket.PingMessage, []byte{1, 2, 3}, time.Now().Add(srv.WriteTimeout)); err != nil {
		client.log.WithError(err).Warn("Greeting failed")
		return
	}

	finished := make(chan struct{})
	go srv.send(client, finished)
	srv.receive(client)
	<-finished

	client.log.WithField("reason", client.StoppedReason).Info("Subscriber exited")
}

// send writes the client's notifications to its socket, until the client is stopped.
func (srv *Server) send(client *socketClient, finished chan<- struct{}) {
	defer close(finished)

	for {
		select {
		case n := <-client.sub.events:
			data, err := json.Marshal(n)
			if err != nil {
				client.log.WithError(err).Error("Encode notification")
				continue
			}
			client.conn.SetWriteDeadline(time.Now().Add(srv.WriteTimeout))
			if err := client.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				client.log.WithError(err).Debug("Write failed")
				client.Stop("Send error")
				return
			}
		case <-srv.done:
			client.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseGoingAway, "Server shutting down"),
				time.Now().Add(srv.WriteTimeout))
			client.Stop("Server shutting down")
			return
		case <-client.done:
			return
		}
	}
}

// receive reads frames from the socket and handles them, until the socket ends or the client is stopped.
func (srv *Server) receive(client *socketClient) {
	for {
		msgType, data, err := client.conn.ReadMessage()
		if err != nil {
			switch {
			case client.Stopped():
			case websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway, websocket.CloseNoStatusReceived):
				client.Stop("Client disconnected")
			default:
				client.log.WithError(err).Debug("Read failed")
				client.Stop("Receive error")
			}
			return
		}
		if msgType != websocket.TextMessage {
			continue
		}
		srv.handleFrame(client, data)
	}
}

// Stopped returns true if the client was stopped.
func (client *socketClient) Stopped() bool {
	select {
	case <-client.done:
		return true
	default:
		return false
	}
}

// Stop stops a client, interrupting any pending read.
// Stop is idempotent; calling Stop more than once will have no effect.
func (client *socketClient) Stop(reason string) {
	client.stopOnce.Do(func() {
		client.StoppedReason = reason
		close(client.done)
		client.conn.SetReadDeadline(time.Now())
	})
}
