// Copyright © 2019 Niko Carpenter <nikoacarpenter@gmail.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package server implements a pushnote relay.
// Notifications posted for a user are fanned out to every push stream and socket that user has open.
package server

import (
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
)

// Defaults for fields left unset on a Server.
const (
	DefaultKeepAliveInterval = time.Second
	DefaultKeepAliveText     = "keep-alive-text"
	DefaultSendBuffer        = 100
	DefaultWriteTimeout      = 10 * time.Second
)

// Server Contains state for a pushnote relay.
type Server struct {
	// KeepAliveInterval specifies how often push streams are sent a keepalive comment.
	// If negative, no keepalives will be sent.
	KeepAliveInterval time.Duration

	// KeepAliveText is the text of the keepalive comment.
	KeepAliveText string

	// SendBuffer is the number of notifications that can be queued for a subscriber.
	// Notifications for subscribers with a full queue are dropped.
	SendBuffer int

	// WriteTimeout bounds writes to sockets.
	WriteTimeout time.Duration

	// ResolveHosts enables reverse DNS lookups of connecting clients, for logging.
	ResolveHosts bool

	// TLSConfig optionally provides a TLS configuration for use by ListenAndServeTLS.
	TLSConfig *tls.Config

	Log *logrus.Logger

	// registry stores the subscribers on the server.
	registry registry

	initOnce   sync.Once
	upgrader   websocket.Upgrader
	done       chan struct{} // Closed on shutdown
	doneOnce   sync.Once
	httpLock   sync.Mutex // Protects httpServer
	httpServer *http.Server
}

func (srv *Server) init() {
	srv.initOnce.Do(func() {
		if srv.KeepAliveInterval == 0 {
			srv.KeepAliveInterval = DefaultKeepAliveInterval
		}
		if srv.KeepAliveText == "" {
			srv.KeepAliveText = DefaultKeepAliveText
		}
		if srv.SendBuffer <= 0 {
			srv.SendBuffer = DefaultSendBuffer
		}
		if srv.WriteTimeout <= 0 {
			srv.WriteTimeout = DefaultWriteTimeout
		}
		if srv.Log == nil {
			srv.Log = logrus.StandardLogger()
		}

		now := time.Now()
		srv.registry = registry{
			subscribers:        make(map[string]*subscriber),
			createdTime:        now,
			maxSubscribersTime: now,
		}
		srv.upgrader = websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		}
		srv.done = make(chan struct{})
	})
}

// Handler gets the HTTP handler serving the relay's routes.
func (srv *Server) Handler() http.Handler {
	srv.init()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /sse/{userID}", srv.handleSSE)
	mux.HandleFunc("GET /ws/{userID}", srv.handleSocket)
	mux.HandleFunc("POST /admin/send_notification/{userID}", srv.handleSendNotification)
	mux.HandleFunc("GET /stats", srv.handleStats)
	return srv.logRequests(mux)
}

// Publish relays a notification to every subscriber of its user.
// It returns the number of subscribers the notification was queued for.
func (srv *Server) Publish(n model.Notification) int {
	srv.init()
	delivered, dropped := srv.registry.publish(n)
	if dropped > 0 {
		srv.Log.WithFields(logrus.Fields{
			"user_id": n.UserID,
			"dropped": dropped,
		}).Warn("Subscribers lagging; notification dropped")
	}
	return delivered
}

// Stats gets stats for the running relay.
func (srv *Server) Stats() Stats {
	srv.init()
	return srv.registry.Stats()
}

// Serve serves the relay on listener, until Shutdown is called.
func (srv *Server) Serve(listener net.Listener) error {
	srv.init()
	srv.Log.WithFields(logrus.Fields{
		"keep_alive_interval": srv.KeepAliveInterval,
		"send_buffer":         srv.SendBuffer,
	}).Info("Server started")

	hs := &http.Server{Handler: srv.Handler()}
	srv.httpLock.Lock()
	select {
	case <-srv.done:
		srv.httpLock.Unlock()
		return nil
	default:
	}
	srv.httpServer = hs
	srv.httpLock.Unlock()

	if err := hs.Serve(listener); err != nil && err != http.ErrServerClosed {
		return errors.Wrap(err, "Serve")
	}
	return nil
}

// Shutdown ends all streams and sockets, and stops the server.
func (srv *Server) Shutdown(ctx context.Context) error {
	srv.init()
	srv.doneOnce.Do(func() { close(srv.done) })

	srv.httpLock.Lock()
	hs := srv.httpServer
	srv.httpLock.Unlock()
	if hs == nil {
		return nil
	}
	return hs.Shutdown(ctx)
}

// logRequests logs every request made to next.
func (srv *Server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		srv.Log.WithFields(logrus.Fields{
			"method": r.Method,
			"path":   r.URL.Path,
			"remote": r.RemoteAddr,
		}).Debug("Request")
		next.ServeHTTP(w, r)
	})
}

// remoteHost gets a printable name for the client that made r.
func (srv *Server) remoteHost(r *http.Request) string {
	addr, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		addr = r.RemoteAddr
	}
	if !srv.ResolveHosts {
		return addr
	}
	return getHostFromAddrIfPossible(addr)
}

// getHostFromAddrIfPossible tries to get the reverse dns host for an address.
// If that isn't possible, it just returns the address.
func getHostFromAddrIfPossible(addr string) string {
	var hosts string
	names, err := net.LookupAddr(addr)
	if err == nil { // No need to report errors; just fallback to IP
		hosts = strings.Join(names, ", ")
	}

	if hosts == "" {
		return addr
	}

	return fmt.Sprintf("%s (%s)", hosts, addr)
}
