// Copyright © 2023 Niko Carpenter <niko@nikocarpenter.com>
//
// This source code is governed by the MIT license, which can be found in the LICENSE file.

package server

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

type registry struct {
	lock               sync.RWMutex // Protects the entire registry
	subscribers        map[string]*subscriber
	createdTime        time.Time
	maxSubscribers     int
	maxSubscribersTime time.Time
	numPublished       uint64
	numDelivered       uint64
	numDropped         uint64
}

// Stats contains summary information about a registry.
type Stats struct {
	Uptime             time.Duration `json:"uptime"`
	NumSubscribers     int           `json:"num_subscribers"`
	NumSSESubscribers  int           `json:"num_sse_subscribers"`
	NumUsers           int           `json:"num_users"`
	MaxSubscribers     int           `json:"max_subscribers"`
	MaxSubscribersTime time.Time     `json:"max_subscribers_at"`
	NumPublished       uint64        `json:"num_published"`
	NumDelivered       uint64        `json:"num_delivered"`
	NumDropped         uint64        `json:"num_dropped"`
}

// subscribe registers a new subscriber for userID's notifications.
func (reg *registry) subscribe(userID, transport string, buffer int) *subscriber {
	sub := &subscriber{
		id:        uuid.NewString(),
		userID:    userID,
		transport: transport,
		events:    make(chan interface{}, buffer),
	}

	reg.lock.Lock()
	defer reg.lock.Unlock()
	reg.subscribers[sub.id] = sub
	if len(reg.subscribers) > reg.maxSubscribers {
		reg.maxSubscribers = len(reg.subscribers)
		reg.maxSubscribersTime = time.Now()
	}
	return sub
}

// unsubscribe removes a subscriber; it will receive no further notifications.
func (reg *registry) unsubscribe(sub *subscriber) {
	reg.lock.Lock()
	defer reg.lock.Unlock()
	delete(reg.subscribers, sub.id)
}

// Stats gets stats for this registry.
func (reg *registry) Stats() Stats {
	reg.lock.RLock()
	defer reg.lock.RUnlock()

	users := make(map[string]struct{})
	var numSSE int
	for _, sub := range reg.subscribers {
		users[sub.userID] = struct{}{}
		if sub.transport == transportSSE {
			numSSE++
		}
	}

	return Stats{
		Uptime:             time.Since(reg.createdTime),
		NumSubscribers:     len(reg.subscribers),
		NumSSESubscribers:  numSSE,
		NumUsers:           len(users),
		MaxSubscribers:     reg.maxSubscribers,
		MaxSubscribersTime: reg.maxSubscribersTime,
		NumPublished:       reg.numPublished,
		NumDelivered:       reg.numDelivered,
		NumDropped:         reg.numDropped,
	}
}
