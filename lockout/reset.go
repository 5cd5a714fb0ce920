// lockout/reset.go
package lockout

import (
	"sync"
	"time"
)

// Scheduler detects the daily session boundary. The engine asks DueForReset
// on a background sweep and, when true, clears daily counters and
// session-scoped lockouts, then calls MarkDone. Tracking the session date
// makes the check idempotent: repeated sweeps inside the same session never
// double-reset.
type Scheduler struct {
	mu       sync.Mutex
	cal      Calendar
	lastDone string
}

// NewScheduler starts with the current session already marked done so a
// mid-session restart does not trigger a spurious reset.
func NewScheduler(cal Calendar, now time.Time) *Scheduler {
	return &Scheduler{cal: cal, lastDone: cal.SessionDate(now)}
}

// DueForReset reports whether now is in a session that has not been reset.
func (s *Scheduler) DueForReset(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cal.SessionDate(now) != s.lastDone
}

// MarkDone records that the session containing now has been reset.
func (s *Scheduler) MarkDone(now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastDone = s.cal.SessionDate(now)
}

// Calendar returns the session calendar.
func (s *Scheduler) Calendar() Calendar {
	return s.cal
}
