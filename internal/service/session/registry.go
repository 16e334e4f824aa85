// Package session tracks which users currently hold a live websocket
// connection. The registry is a delivery hint only; durable storage stays
// authoritative for history.
package session

import (
	"sync"

	"github.com/whatease/backend/internal/model/chat"
)

// Envelope is the frame pushed to a live connection.
type Envelope struct {
	Type    string       `json:"type"`
	Message chat.Message `json:"message"`
}

// Channel is an addressable open connection for one user. Push must not
// block; implementations queue or fail fast.
type Channel interface {
	Push(env Envelope) error
}

type entry struct {
	ch     Channel
	handle int64
}

// Registry maps user emails to their live channel. A user reconnecting
// displaces the previous entry (last connection wins); the displaced
// physical connection is not closed here.
type Registry struct {
	mu         sync.RWMutex
	entries    map[string]entry
	nextHandle int64
}

func NewRegistry() *Registry {
	return &Registry{entries: make(map[string]entry)}
}

// Register binds userID to ch, replacing any previous binding. The returned
// handle must be passed back to Unregister so a stale disconnect cannot
// evict a newer connection.
func (r *Registry) Register(userID string, ch Channel) int64 {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextHandle++
	r.entries[userID] = entry{ch: ch, handle: r.nextHandle}
	return r.nextHandle
}

// Unregister removes the binding for userID if it still belongs to handle.
// Safe to call when absent or already replaced.
func (r *Registry) Unregister(userID string, handle int64) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[userID]; ok && e.handle == handle {
		delete(r.entries, userID)
	}
}

// Lookup returns the live channel for userID. Absence means "not connected",
// never an error.
func (r *Registry) Lookup(userID string) (Channel, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	e, ok := r.entries[userID]
	if !ok {
		return nil, false
	}
	return e.ch, true
}

// Drop removes the binding for userID only while it still points at ch.
// Used after a failed push so a concurrent reconnect is left intact.
func (r *Registry) Drop(userID string, ch Channel) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if e, ok := r.entries[userID]; ok && e.ch == ch {
		delete(r.entries, userID)
	}
}
