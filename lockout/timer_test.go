package lockout

import (
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestRegistry_TickFiresInRegistrationOrder(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	var fired []string
	r.Start("b", -time.Second, func() { fired = append(fired, "b") })
	r.Start("a", -time.Second, func() { fired = append(fired, "a") })
	r.Start("later", time.Hour, func() { fired = append(fired, "later") })

	r.Tick(time.Now())

	assert.Equal(t, []string{"b", "a"}, fired)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_PanickingCallbackDoesNotStopSweep(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	var fired []string
	r.Start("boom", -time.Second, func() { panic("bad callback") })
	r.Start("ok", -time.Second, func() { fired = append(fired, "ok") })

	assert.NotPanics(t, func() { r.Tick(time.Now()) })
	assert.Equal(t, []string{"ok"}, fired)
}

func TestRegistry_RemainingAndCancel(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	r.Start("cooldown:a", time.Minute, func() {})

	left := r.Remaining("cooldown:a")
	assert.Greater(t, left, 50*time.Second)
	assert.Zero(t, r.Remaining("missing"))

	r.Cancel("cooldown:a")
	assert.Zero(t, r.Remaining("cooldown:a"))
	assert.Zero(t, r.Len())
}

func TestRegistry_StartRestartsTimer(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	fired := 0
	r.Start("t", -time.Second, func() { fired++ })
	r.Start("t", time.Hour, func() { fired += 100 })

	r.Tick(time.Now())
	assert.Zero(t, fired)
	assert.Equal(t, 1, r.Len())
}

func TestRegistry_CallbackMayStartTimers(t *testing.T) {
	t.Parallel()

	r := NewRegistry(zerolog.Nop())
	r.Start("first", -time.Second, func() {
		r.Start("chained", time.Hour, func() {})
	})

	r.Tick(time.Now())
	assert.Equal(t, 1, r.Len())
}
