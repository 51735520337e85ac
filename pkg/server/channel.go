// Copyright © 2019 Niko Carpenter <nikoacarpenter@gmail.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package server

import (
	"github.com/n0ot/pushnote/pkg/model"
)

// Transports a subscriber can be attached with.
const (
	transportSSE    = "sse"
	transportSocket = "websocket"
)

// subscriber receives the notifications published for one user, over one connection.
// Nothing ever closes events; readers stop when their connection ends.
type subscriber struct {
	id        string
	userID    string
	transport string
	events    chan interface{} // Notifications relayed to the connection
}

// publish queues n for every subscriber of n.UserID, without blocking.
// Subscribers whose queues are full miss the notification.
func (reg *registry) publish(n model.Notification) (delivered, dropped int) {
	reg.lock.Lock()
	defer reg.lock.Unlock()

	reg.numPublished++
	for _, sub := range reg.subscribers {
		if sub.userID != n.UserID {
			continue
		}
		select {
		case sub.events <- n:
			delivered++
		default:
			dropped++
		}
	}
	reg.numDelivered += uint64(delivered)
	reg.numDropped += uint64(dropped)
	return delivered, dropped
}
