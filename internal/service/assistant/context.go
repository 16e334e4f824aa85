package assistant

import "sync"

// windowSize bounds the per-user context window. Oldest entries are evicted
// first; the window only primes assistant continuity and is never persisted.
const windowSize = 10

// ContextCache keeps the most recent conversational turns per user. Entries
// alternate user and assistant lines by position parity (position 0 is the
// user). Different users are fully independent.
type ContextCache struct {
	mu      sync.Mutex
	windows map[string][]string
}

func NewContextCache() *ContextCache {
	return &ContextCache{windows: make(map[string][]string)}
}

// Add appends text to the user's window, evicting the oldest entry once the
// window is full.
func (c *ContextCache) Add(userID, text string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := append(c.windows[userID], text)
	if len(window) > windowSize {
		window = window[len(window)-windowSize:]
	}
	c.windows[userID] = window
}

// Window returns a copy of the user's context window in chronological order,
// empty when the user has no history.
func (c *ContextCache) Window(userID string) []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	window := c.windows[userID]
	copied := make([]string, len(window))
	copy(copied, window)
	return copied
}
