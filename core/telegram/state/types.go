package state

import "time"

// Manager stores one session value of type S per user.
type Manager[S any] interface {
	// Get returns the live session for the user, if any.
	Get(userID int64) (S, bool)
	// Set replaces the user's session and refreshes its expiry.
	Set(userID int64, s S)
	// Clear drops the user's session.
	Clear(userID int64)
	// InProgress reports whether the user has a live session.
	InProgress(userID int64) bool
	// Len returns the number of live sessions.
	Len() int
	// Sweep drops expired sessions and returns how many were removed.
	Sweep() int
}

// Options configures NewMemoryManager.
type Options struct {
	// TTL expires sessions idle for longer than this; 0 keeps them forever.
	TTL time.Duration
	// Now overrides the clock in tests.
	Now func() time.Time
}
