package runner

import (
	"errors"
	"sync"

	"github.com/zinc-sig/asksnap/internal/browser"
)

// Tracker holds every live browser session of a run so they can be closed
// in bulk. Safe for concurrent use by pool workers.
type Tracker struct {
	mu       sync.Mutex
	sessions []browser.Session
}

func NewTracker() *Tracker {
	return &Tracker{}
}

// Add records a live session.
func (t *Tracker) Add(s browser.Session) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.sessions = append(t.sessions, s)
}

// Release closes s and forgets it. Releasing an untracked session only
// closes it.
func (t *Tracker) Release(s browser.Session) error {
	t.mu.Lock()
	for i, tracked := range t.sessions {
		if tracked == s {
			t.sessions = append(t.sessions[:i], t.sessions[i+1:]...)
			break
		}
	}
	t.mu.Unlock()

	return s.Close()
}

// CloseAll closes every tracked session and empties the tracker.
func (t *Tracker) CloseAll() error {
	t.mu.Lock()
	sessions := t.sessions
	t.sessions = nil
	t.mu.Unlock()

	var errs []error
	for _, s := range sessions {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Len returns the number of tracked sessions.
func (t *Tracker) Len() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.sessions)
}
