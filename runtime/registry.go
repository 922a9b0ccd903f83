package runtime

import (
	"sync"

	"convocube/contract"
	"convocube/domain"
)

// Registry tracks which user currently holds a live connection.
// It is keyed by user: at most one sink is registered per UserID at any
// instant, and a fresh connect for the same user supersedes the previous
// sink (last writer wins).
type Registry struct {
	mu       sync.RWMutex
	sessions map[domain.UserID]contract.ConnectionSink
}

func NewRegistry() *Registry {
	return &Registry{
		sessions: make(map[domain.UserID]contract.ConnectionSink),
	}
}

// Register installs or overwrites the user's connection sink.
func (r *Registry) Register(user domain.UserID, sink contract.ConnectionSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sessions[user] = sink
}

// Unregister removes the entry whose current sink is exactly the given one.
// The reverse lookup by sink identity makes a disconnect racing a fresh
// reconnect safe: if the user already re-registered with a newer sink,
// this is a no-op and the new connection stays live.
func (r *Registry) Unregister(sink contract.ConnectionSink) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for user, current := range r.sessions {
		if current == sink {
			delete(r.sessions, user)
			return
		}
	}
}

// Lookup returns the user's live sink, if any.
func (r *Registry) Lookup(user domain.UserID) (contract.ConnectionSink, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	sink, ok := r.sessions[user]
	return sink, ok
}

// Count returns the number of users currently online.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}
