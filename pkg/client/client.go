// Copyright © 2024 Niko Carpenter <niko@nikocarpenter.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

// Package client receives notifications pushed by a pushnote relay, and renders them into a page.
//
// A Channel is one user's notification link over one transport:
// a unidirectional push stream (server-sent events), or a bidirectional socket (WebSocket).
// Both variants render through the same Append sink.
// Channels never reconnect; once closed, a new Channel must be constructed.
package client

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/n0ot/pushnote/pkg/model"
	"github.com/n0ot/pushnote/pkg/page"
)

// Kind selects the transport backing a Channel.
type Kind string

// Transport kinds. The values double as the data-type of the page section the Channel renders into.
const (
	PushStream Kind = "sse"
	Socket     Kind = "websocket"
)

// ParseKind parses a transport kind.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(s); k {
	case PushStream, Socket:
		return k, nil
	}
	return "", errors.Errorf("unknown transport %q; want %q or %q", s, PushStream, Socket)
}

// State is the lifecycle state of a Channel.
type State int

// Channel states. Closed is terminal.
const (
	Constructed State = iota
	Connecting
	Open
	Closed
)

func (s State) String() string {
	switch s {
	case Constructed:
		return "constructed"
	case Connecting:
		return "connecting"
	case Open:
		return "open"
	case Closed:
		return "closed"
	}
	return "unknown"
}

// Common errors.
var (
	ErrAlreadyStarted = errors.New("channel already started")
	ErrClosed         = errors.New("channel closed")
)

// Channel is a logical notification link for one user over one transport.
type Channel interface {
	// Start opens the transport.
	// It returns once the connection is established; events are then handled in the background
	// until ctx is cancelled, Close is called, or the transport goes away.
	Start(ctx context.Context) error

	// Append renders msg into the Channel's container.
	// Only JSON objects are rendered; anything else is ignored.
	Append(msg interface{})

	// Close tears down the transport, and waits for event handling to stop.
	Close() error

	// State gets the Channel's lifecycle state.
	State() State

	// Done is closed once the Channel is closed.
	Done() <-chan struct{}

	Kind() Kind
	UserID() string
}

// Config holds the settings shared by both transports.
type Config struct {
	// BaseURL is the relay's address, e.g. http://127.0.0.1:3000.
	// Socket URLs are derived from it by swapping http for ws.
	BaseURL string

	// KeepaliveInterval is how often the socket transport re-sends KeepaliveToken.
	KeepaliveInterval time.Duration

	// KeepaliveToken is sent over the socket once it opens, and on every keepalive tick.
	KeepaliveToken string

	// WriteTimeout bounds socket writes.
	WriteTimeout time.Duration

	// HTTPClient is used for the push stream. Its Timeout should be 0, or streams will be cut off.
	HTTPClient *http.Client

	// Dialer is used to open sockets.
	Dialer *websocket.Dialer

	Log *logrus.Logger

	// newTicker creates the keepalive ticker. Replaced in tests.
	newTicker func(time.Duration) ticker
}

// DefaultConfig returns the configuration used for fields left unset.
func DefaultConfig() Config {
	return Config{
		BaseURL:           "http://127.0.0.1:3000",
		KeepaliveInterval: 12 * time.Second,
		KeepaliveToken:    "PING",
		WriteTimeout:      10 * time.Second,
	}
}

func (cfg Config) withDefaults() Config {
	def := DefaultConfig()
	if cfg.BaseURL == "" {
		cfg.BaseURL = def.BaseURL
	}
	if cfg.KeepaliveInterval <= 0 {
		cfg.KeepaliveInterval = def.KeepaliveInterval
	}
	if cfg.KeepaliveToken == "" {
		cfg.KeepaliveToken = def.KeepaliveToken
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = def.WriteTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Log == nil {
		cfg.Log = logrus.StandardLogger()
	}
	if cfg.newTicker == nil {
		cfg.newTicker = newTimeTicker
	}
	return cfg
}

// New creates a Channel for userID over the given transport.
// The Channel's container is looked up in doc once, here; if doc is nil or has no matching section,
// messages are accepted but not rendered.
// No connection is made until Start is called.
func New(kind Kind, userID string, doc page.Querier, cfg Config) (Channel, error) {
	if userID == "" {
		return nil, errors.New("a user id is required")
	}
	if _, err := ParseKind(string(kind)); err != nil {
		return nil, err
	}

	cfg = cfg.withDefaults()
	base, err := url.Parse(cfg.BaseURL)
	if err != nil {
		return nil, errors.Wrap(err, "Parse base URL")
	}

	c := &channel{
		kind:   kind,
		userID: userID,
		base:   base,
		cfg:    cfg,
		done:   make(chan struct{}),
		log: cfg.Log.WithFields(logrus.Fields{
			"transport": kind,
			"user_id":   userID,
		}),
	}
	if doc != nil {
		c.container = doc.QuerySelector(page.Selector(string(kind)))
	}

	if kind == PushStream {
		return &pushStreamChannel{c}, nil
	}
	return &socketChannel{channel: c}, nil
}

// channel holds the state common to both transports.
type channel struct {
	kind      Kind
	userID    string
	base      *url.URL
	cfg       Config
	container page.Container
	log       *logrus.Entry

	lock   sync.Mutex // Protects state and cancel
	state  State
	cancel context.CancelFunc

	done       chan struct{}
	finishOnce sync.Once
}

func (c *channel) Kind() Kind {
	return c.kind
}

func (c *channel) UserID() string {
	return c.userID
}

func (c *channel) State() State {
	c.lock.Lock()
	defer c.lock.Unlock()
	return c.state
}

func (c *channel) Done() <-chan struct{} {
	return c.done
}

// Append renders msg if it is a JSON object; its data field becomes the text of a new list item.
func (c *channel) Append(msg interface{}) {
	m, ok := model.AsMessage(msg)
	if !ok {
		c.log.WithField("message", msg).Debug("Not rendering a message that isn't an object")
		return
	}
	if c.container == nil {
		return
	}
	c.container.Append(m.Text())
}

func (c *channel) Close() error {
	c.lock.Lock()
	if c.state == Constructed {
		c.lock.Unlock()
		c.finish()
		return nil
	}
	cancel := c.cancel
	c.lock.Unlock()

	if cancel != nil {
		cancel()
	}
	<-c.done
	return nil
}

// begin moves the channel from Constructed to Connecting,
// returning a context which is cancelled when the channel is closed.
func (c *channel) begin(ctx context.Context) (context.Context, error) {
	c.lock.Lock()
	defer c.lock.Unlock()
	switch c.state {
	case Constructed:
	case Closed:
		return nil, ErrClosed
	default:
		return nil, ErrAlreadyStarted
	}

	c.state = Connecting
	ctx, c.cancel = context.WithCancel(ctx)
	return ctx, nil
}

func (c *channel) setState(s State) {
	c.lock.Lock()
	defer c.lock.Unlock()
	if c.state != Closed {
		c.state = s
	}
}

// finish marks the channel closed, and releases anyone waiting on Done.
func (c *channel) finish() {
	c.finishOnce.Do(func() {
		c.lock.Lock()
		c.state = Closed
		if c.cancel != nil {
			c.cancel()
		}
		c.lock.Unlock()
		close(c.done)
	})
}

// endpoint gets the URL of the route for this channel's user.
func (c *channel) endpoint(route string) *url.URL {
	return c.base.JoinPath(route, c.userID)
}
