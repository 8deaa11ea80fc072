package pager

import "sync"

// Tracker remembers the last page index each user browsed.
type Tracker struct {
	mu    sync.RWMutex
	pages map[int64]int
}

// NewTracker returns an empty Tracker.
func NewTracker() *Tracker {
	return &Tracker{pages: make(map[int64]int)}
}

// Set stores the user's page index.
func (t *Tracker) Set(userID int64, page int) {
	if page < 0 {
		page = 0
	}
	t.mu.Lock()
	t.pages[userID] = page
	t.mu.Unlock()
}

// Get returns the stored page index, or 0 for unknown users.
func (t *Tracker) Get(userID int64) int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.pages[userID]
}

// Len reports how many users have a stored page.
func (t *Tracker) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.pages)
}
