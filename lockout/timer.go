// lockout/timer.go
package lockout

import (
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Registry holds named countdown timers with expiry callbacks. It is a
// scheduling convenience only: nothing in it is persisted, and after a
// restart it starts empty while the ledger's own expiries keep cooldowns
// honest.
type Registry struct {
	mu     sync.Mutex
	timers map[string]*timer
	seq    uint64
	log    zerolog.Logger
}

type timer struct {
	name      string
	expiresAt time.Time
	onExpiry  func()
	seq       uint64
}

// NewRegistry creates an empty registry.
func NewRegistry(log zerolog.Logger) *Registry {
	return &Registry{timers: make(map[string]*timer), log: log}
}

// Start registers (or restarts) a named timer.
func (r *Registry) Start(name string, d time.Duration, onExpiry func()) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.seq++
	r.timers[name] = &timer{
		name:      name,
		expiresAt: time.Now().Add(d),
		onExpiry:  onExpiry,
		seq:       r.seq,
	}
}

// Remaining returns the time left on a timer, zero if absent or expired.
func (r *Registry) Remaining(name string) time.Duration {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.timers[name]
	if !ok {
		return 0
	}
	left := time.Until(t.expiresAt)
	if left < 0 {
		return 0
	}
	return left
}

// Cancel removes a timer without firing it.
func (r *Registry) Cancel(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.timers, name)
}

// Len returns the number of pending timers.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.timers)
}

// Tick fires and removes every expired timer's callback synchronously in
// registration order. Callbacks run without the registry lock so they may
// start or cancel timers, and a panicking callback does not stop the rest
// of the sweep.
func (r *Registry) Tick(now time.Time) {
	r.mu.Lock()
	var due []*timer
	for name, t := range r.timers {
		if !t.expiresAt.After(now) {
			due = append(due, t)
			delete(r.timers, name)
		}
	}
	r.mu.Unlock()

	for i := 1; i < len(due); i++ {
		for j := i; j > 0 && due[j].seq < due[j-1].seq; j-- {
			due[j], due[j-1] = due[j-1], due[j]
		}
	}

	for _, t := range due {
		r.fire(t)
	}
}

func (r *Registry) fire(t *timer) {
	defer func() {
		if rec := recover(); rec != nil {
			r.log.Error().Str("timer", t.name).Interface("panic", rec).
				Msg("timer callback panicked")
		}
	}()
	t.onExpiry()
}
