// Package realtime holds the in-memory presence registry and the event
// envelopes pushed over live channels. Presence is ephemeral: it starts
// empty on every process start and fills back in as clients reconnect.
package realtime

import (
	"hash/fnv"
	"sync"
)

// Channel is one live transport handle for a connected client. The concrete
// transport (a websocket connection) is an external concern; the registry
// only needs to push payloads into it.
type Channel interface {
	Send(v interface{}) error
}

const shardCount = 16

type shard struct {
	mu    sync.RWMutex
	users map[string]map[Channel]struct{}
}

// Registry maps user ids to their live channel sets. A user may hold several
// channels at once (multi-device); all of them receive every routed event.
// Keys are sharded so unrelated users' registrations never contend on the
// same lock.
type Registry struct {
	shards [shardCount]shard
	owners sync.Map // Channel -> userID
}

func NewRegistry() *Registry {
	r := &Registry{}
	for i := range r.shards {
		r.shards[i].users = make(map[string]map[Channel]struct{})
	}
	return r
}

func (r *Registry) shardFor(userID string) *shard {
	h := fnv.New32a()
	h.Write([]byte(userID))
	return &r.shards[h.Sum32()%shardCount]
}

// Register adds the channel to the user's set. A channel registered under a
// different user earlier is moved: the old mapping is removed first.
func (r *Registry) Register(userID string, ch Channel) {
	if prev, ok := r.owners.Load(ch); ok && prev.(string) != userID {
		r.remove(prev.(string), ch)
	}
	r.owners.Store(ch, userID)

	s := r.shardFor(userID)
	s.mu.Lock()
	set, ok := s.users[userID]
	if !ok {
		set = make(map[Channel]struct{})
		s.users[userID] = set
	}
	set[ch] = struct{}{}
	s.mu.Unlock()
}

// Unregister removes the channel from whichever user-set contains it. The
// user key is dropped once its set is empty.
func (r *Registry) Unregister(ch Channel) {
	if prev, ok := r.owners.LoadAndDelete(ch); ok {
		r.remove(prev.(string), ch)
	}
}

func (r *Registry) remove(userID string, ch Channel) {
	s := r.shardFor(userID)
	s.mu.Lock()
	if set, ok := s.users[userID]; ok {
		delete(set, ch)
		if len(set) == 0 {
			delete(s.users, userID)
		}
	}
	s.mu.Unlock()
}

// Route pushes the payload to every live channel of the user and reports
// whether at least one received it. Sends happen outside the shard lock so a
// slow client never blocks registrations. Channels that fail to send are
// dropped; the caller is responsible for durable persistence before routing,
// so an undelivered payload is not a lost one.
func (r *Registry) Route(userID string, payload interface{}) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	set := s.users[userID]
	channels := make([]Channel, 0, len(set))
	for ch := range set {
		channels = append(channels, ch)
	}
	s.mu.RUnlock()

	delivered := false
	for _, ch := range channels {
		if err := ch.Send(payload); err != nil {
			r.Unregister(ch)
			continue
		}
		delivered = true
	}
	return delivered
}

// Connected reports whether the user currently holds any live channel.
func (r *Registry) Connected(userID string) bool {
	s := r.shardFor(userID)
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.users[userID]) > 0
}
