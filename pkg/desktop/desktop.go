// Package desktop mirrors rendered notifications as desktop notifications.
package desktop

import (
	"sync"

	"github.com/gen2brain/beeep"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Notifier shows text as desktop notifications, at a bounded rate.
// Notifications beyond the rate are skipped, not queued.
type Notifier struct {
	Title string
	Log   *logrus.Logger

	limiter *rate.Limiter
	notify  func(title, message string) error

	lock    sync.Mutex // Protects skipped
	skipped int
}

// New creates a Notifier allowing perSecond notifications, with bursts of up to burst.
// A perSecond of 0 or less removes the limit.
func New(title string, perSecond float64, burst int) *Notifier {
	limit := rate.Inf
	if perSecond > 0 {
		limit = rate.Limit(perSecond)
	}
	if burst < 1 {
		burst = 1
	}
	return &Notifier{
		Title:   title,
		limiter: rate.NewLimiter(limit, burst),
		notify: func(title, message string) error {
			return beeep.Notify(title, message, "")
		},
	}
}

// Observe shows text, unless the rate has been exceeded.
// Its signature matches page.List.Observe.
func (n *Notifier) Observe(text string) {
	if text == "" {
		return
	}
	if !n.limiter.Allow() {
		n.lock.Lock()
		n.skipped++
		n.lock.Unlock()
		n.logger().WithField("text", text).Debug("Desktop notification rate exceeded; skipping")
		return
	}

	if err := n.notify(n.Title, text); err != nil {
		n.logger().WithError(err).Warn("Desktop notification failed")
	}
}

// Skipped gets the number of notifications skipped because of the rate limit.
func (n *Notifier) Skipped() int {
	n.lock.Lock()
	defer n.lock.Unlock()
	return n.skipped
}

func (n *Notifier) logger() *logrus.Logger {
	if n.Log == nil {
		return logrus.StandardLogger()
	}
	return n.Log
}
