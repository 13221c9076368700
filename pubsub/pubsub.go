// Package pubsub implements the channel registry: a hash table of channel
// name to subscriber set, plus each connection's own subscribed-channel
// set, updated atomically under one lock. Publish snapshots subscribers
// and releases the lock before touching any socket, so a slow reader never
// blocks unrelated commands on the same process.
package pubsub

import (
	"sort"
	"sync"
)

// Subscriber is anything that can receive a pub/sub push frame. conn.Conn
// in the server package implements this; tests can fake it cheaply.
type Subscriber interface {
	// ID returns a value stable for the connection's lifetime. This should
	// be a monotonically increasing connection ID rather than the socket
	// file descriptor, so a closed-and-reopened connection can never
	// collide with a still-registered subscriber.
	ID() int64
	Push(frame []byte) error
}

// Registry is the channel table.
type Registry struct {
	mu       sync.Mutex
	channels map[string]map[int64]Subscriber
	subs     map[int64]map[string]struct{}
}

// New constructs an empty Registry.
func New() *Registry {
	return &Registry{
		channels: make(map[string]map[int64]Subscriber),
		subs:     make(map[int64]map[string]struct{}),
	}
}

// Subscribe adds sub to channel, creating the channel if this is its first
// subscriber. Idempotent: subscribing twice to the same channel is a
// no-op. Returns the connection's total subscription count afterward.
func (r *Registry) Subscribe(sub Subscriber, channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.channels[channel] == nil {
		r.channels[channel] = make(map[int64]Subscriber)
	}
	r.channels[channel][sub.ID()] = sub

	if r.subs[sub.ID()] == nil {
		r.subs[sub.ID()] = make(map[string]struct{})
	}
	r.subs[sub.ID()][channel] = struct{}{}

	return len(r.subs[sub.ID()])
}

// PendingSubscribeCount reports the connection's total subscription count
// as it would be immediately after subscribing to channel, without
// actually subscribing. A caller uses this to send a subscribe
// confirmation before registering, so a subscriber can never see a
// "message" push for a channel it hasn't yet been told it joined.
func (r *Registry) PendingSubscribeCount(sub Subscriber, channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.subs[sub.ID()]
	if _, already := set[channel]; already {
		return len(set)
	}
	return len(set) + 1
}

// Unsubscribe removes sub from channel, pruning the channel entirely once
// its last subscriber leaves. Returns the connection's remaining
// subscription count.
func (r *Registry) Unsubscribe(sub Subscriber, channel string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.unsubscribeLocked(sub.ID(), channel)
}

func (r *Registry) unsubscribeLocked(connID int64, channel string) int {
	if subscribers, ok := r.channels[channel]; ok {
		delete(subscribers, connID)
		if len(subscribers) == 0 {
			delete(r.channels, channel)
		}
	}
	if set, ok := r.subs[connID]; ok {
		delete(set, channel)
		if len(set) == 0 {
			delete(r.subs, connID)
		}
		return len(set)
	}
	return 0
}

// UnsubscribeAll removes every subscription sub currently holds, returning
// the channel names it was on (possibly empty). It copies the channel set
// under the lock, releases it, then unsubscribes each entry one at a time
// so the lock-hold window stays short; a concurrent Publish racing this
// call is fine — it either reaches sub before or after removal.
func (r *Registry) UnsubscribeAll(sub Subscriber) []string {
	r.mu.Lock()
	set := r.subs[sub.ID()]
	channels := make([]string, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	r.mu.Unlock()

	for _, ch := range channels {
		r.Unsubscribe(sub, ch)
	}
	sort.Strings(channels)
	return channels
}

// GetSubscribed returns a snapshot of the channels sub currently holds.
func (r *Registry) GetSubscribed(sub Subscriber) []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	set := r.subs[sub.ID()]
	channels := make([]string, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	sort.Strings(channels)
	return channels
}

// Publish snapshots channel's subscribers under the lock, releases it, then
// writes the push frame to each one. It returns the number of successful
// writes; a write failure does not mutate subscription state, since
// disconnect cleanup (UnsubscribeAll) handles that separately.
func (r *Registry) Publish(channel string, frame []byte) int {
	r.mu.Lock()
	subscribers := make([]Subscriber, 0, len(r.channels[channel]))
	for _, sub := range r.channels[channel] {
		subscribers = append(subscribers, sub)
	}
	r.mu.Unlock()

	delivered := 0
	for _, sub := range subscribers {
		if err := sub.Push(frame); err == nil {
			delivered++
		}
	}
	return delivered
}

// Channels returns the names of all channels with at least one subscriber.
func (r *Registry) Channels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	names := make([]string, 0, len(r.channels))
	for ch := range r.channels {
		names = append(names, ch)
	}
	sort.Strings(names)
	return names
}

// NumSub reports the subscriber count for each requested channel, in the
// order given.
func (r *Registry) NumSub(channels []string) []int {
	r.mu.Lock()
	defer r.mu.Unlock()
	counts := make([]int, len(channels))
	for i, ch := range channels {
		counts[i] = len(r.channels[ch])
	}
	return counts
}
