package state

import (
	"context"
	"slices"
	"time"
)

// Session is the conversation state of one user within one workflow.
// S is the workflow's state enum, F the input collected so far.
type Session[S comparable, F any] struct {
	State  S     `json:"state"`
	Fields F     `json:"fields"`
	ChatID int64 `json:"chat_id"`
	// Tracked lists bot messages to delete when the session advances or ends.
	Tracked   []int     `json:"tracked,omitempty"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Track remembers message ids for later cleanup; zero ids are ignored.
func (s *Session[S, F]) Track(ids ...int) {
	for _, id := range ids {
		if id != 0 {
			s.Tracked = append(s.Tracked, id)
		}
	}
}

// TakeTracked returns the tracked ids and forgets them.
func (s *Session[S, F]) TakeTracked() []int {
	ids := s.Tracked
	s.Tracked = nil
	return ids
}

// Expired reports whether the session has been idle for longer than ttl.
// A zero ttl never expires.
func (s Session[S, F]) Expired(now time.Time, ttl time.Duration) bool {
	return ttl > 0 && !s.UpdatedAt.IsZero() && now.Sub(s.UpdatedAt) > ttl
}

func (s Session[S, F]) clone() Session[S, F] {
	s.Tracked = slices.Clone(s.Tracked)
	return s
}

// Store persists sessions of a single workflow.
type Store[S comparable, F any] interface {
	// Load returns the live session, or a zero session and false.
	Load(ctx context.Context, userID int64) (Session[S, F], bool, error)
	// Save replaces the user's session and refreshes its expiry.
	Save(ctx context.Context, userID int64, s Session[S, F]) error
	// Erase removes the user's session; erasing a missing session is not an error.
	Erase(ctx context.Context, userID int64) error
}
