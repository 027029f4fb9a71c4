// Package presence tracks which users currently have a live connection.
package presence

import (
	"sort"
	"sync"

	"github.com/ridwanf/dmrelay/pkg/model"
)

// Conn is a live connection handle. The registry holds references only; the
// transport layer owns the underlying connection and its lifetime.
type Conn interface {
	// Deliver queues an event for the client without blocking. It returns
	// false when the handle is no longer accepting events (buffer full or
	// connection shutting down); the message is still in the store, so the
	// client catches up via history.
	Deliver(ev model.Event) bool
}

// Registry is the in-memory user id to connection mapping. At most one
// handle per user: a second Register for the same user supersedes the first
// (last-writer-wins). Process lifetime only; every user is offline after a
// restart until they reconnect.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]Conn
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[int64]Conn)}
}

// Register installs c as the user's current handle, unconditionally
// replacing any prior one. The superseded handle is not closed.
func (r *Registry) Register(userID int64, c Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.conns[userID] = c
}

// Unregister removes the mapping only if c is still the registered handle.
// A late close event from a superseded connection must not evict the newer
// registration. Returns whether the mapping was removed.
func (r *Registry) Unregister(userID int64, c Conn) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	if current, ok := r.conns[userID]; ok && current == c {
		delete(r.conns, userID)
		return true
	}
	return false
}

// Lookup returns the user's live handle. Never registered and currently
// disconnected look the same to callers: offline.
func (r *Registry) Lookup(userID int64) (Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.conns[userID]
	return c, ok
}

// Online returns the ids of all currently registered users, sorted.
func (r *Registry) Online() []int64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	ids := make([]int64, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
