package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/sirupsen/logrus"
)

// handleSSE streams a user's notifications as server-sent events.
// Each notification is sent as the data of a "message" event,
// and a keepalive comment is written every KeepAliveInterval.
func (srv *Server) handleSSE(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	userID := r.PathValue("userID")
	log := srv.Log.WithFields(logrus.Fields{
		"transport": transportSSE,
		"user_id":   userID,
		"remote":    srv.remoteHost(r),
	})

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := srv.registry.subscribe(userID, transportSSE, srv.SendBuffer)
	defer srv.registry.unsubscribe(sub)
	log.WithField("subscriber_id", sub.id).Info("Subscriber connected")

	var keepalive <-chan time.Time
	if srv.KeepAliveInterval > 0 {
		ticker := time.NewTicker(srv.KeepAliveInterval)
		defer ticker.Stop()
		keepalive = ticker.C
	}

	reason := "Client disconnected"
	defer func() {
		log.WithFields(logrus.Fields{
			"subscriber_id": sub.id,
			"reason":        reason,
		}).Info("Subscriber exited")
	}()

	for {
		select {
		case <-r.Context().Done():
			return
		case <-srv.done:
			reason = "Server shutting down"
			return
		case <-keepalive:
			if _, err := fmt.Fprintf(w, ": %s\n\n", srv.KeepAliveText); err != nil {
				reason = "Send error"
				return
			}
			flusher.Flush()
		case n := <-sub.events:
			data, err := json.Marshal(n)
			if err != nil {
				log.WithError(err).Error("Encode notification")
				continue
			}
			if _, err := fmt.Fprintf(w, "data: %s\n\n", data); err != nil {
				reason = "Send error"
				return
			}
			flusher.Flush()
		}
	}
}
