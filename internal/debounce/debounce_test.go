package debounce

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recorder collects fired paths with timestamps.
type recorder struct {
	mu    sync.Mutex
	fired []string
	times []time.Time
}

func (r *recorder) callback(path string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.fired = append(r.fired, path)
	r.times = append(r.times, time.Now())
}

func (r *recorder) snapshot() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.fired...)
}

func TestNotify_SingleEvent_FiresAfterDelay(t *testing.T) {
	// Given: a debouncer with a short window
	rec := &recorder{}
	d := New(50*time.Millisecond, rec.callback)
	defer d.Stop()

	// When: one event arrives
	d.Notify("home.weft")

	// Then: the callback fires exactly once after the quiet period
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []string{"home.weft"}, rec.snapshot())
	assert.Zero(t, d.Pending())
}

func TestNotify_BurstCoalescesToOneCall(t *testing.T) {
	// Given: a debouncer with a window longer than the event spacing
	rec := &recorder{}
	d := New(80*time.Millisecond, rec.callback)
	defer d.Stop()

	// When: a burst of events arrives for the same path
	start := time.Now()
	for i := 0; i < 5; i++ {
		d.Notify("home.weft")
		time.Sleep(20 * time.Millisecond)
	}
	lastEvent := time.Now()

	// Then: exactly one callback, after the last event plus the window
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 10*time.Millisecond)

	rec.mu.Lock()
	firedAt := rec.times[0]
	rec.mu.Unlock()

	assert.True(t, firedAt.Sub(lastEvent) >= 70*time.Millisecond,
		"fired %v after last event, want >= ~80ms", firedAt.Sub(lastEvent))
	assert.True(t, firedAt.Sub(start) >= 100*time.Millisecond,
		"fired too early relative to the burst start")

	// And: no second callback arrives later
	time.Sleep(150 * time.Millisecond)
	assert.Len(t, rec.snapshot(), 1)
}

func TestNotify_DifferentPaths_FireIndependently(t *testing.T) {
	rec := &recorder{}
	d := New(40*time.Millisecond, rec.callback)
	defer d.Stop()

	d.Notify("a.weft")
	d.Notify("b.weft")
	d.Notify("c.weft")
	assert.Equal(t, 3, d.Pending())

	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 3
	}, time.Second, 10*time.Millisecond)
	assert.ElementsMatch(t, []string{"a.weft", "b.weft", "c.weft"}, rec.snapshot())
}

func TestNotify_EventAfterFire_ArmsAgain(t *testing.T) {
	rec := &recorder{}
	d := New(30*time.Millisecond, rec.callback)
	defer d.Stop()

	d.Notify("home.weft")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 1
	}, time.Second, 5*time.Millisecond)

	// A later event starts a fresh cycle for the same path.
	d.Notify("home.weft")
	require.Eventually(t, func() bool {
		return len(rec.snapshot()) == 2
	}, time.Second, 5*time.Millisecond)
}

func TestStop_CancelsPendingWithoutFiring(t *testing.T) {
	// Given: a pending timer
	rec := &recorder{}
	d := New(50*time.Millisecond, rec.callback)
	d.Notify("home.weft")
	require.Equal(t, 1, d.Pending())

	// When: stopped before the window elapses
	d.Stop()

	// Then: the callback never fires
	time.Sleep(120 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.Zero(t, d.Pending())
}

func TestStop_SafeWithNoPendingTimers(t *testing.T) {
	d := New(50*time.Millisecond, func(string) {})

	// Stop with nothing pending, twice, must not panic.
	d.Stop()
	d.Stop()
}

func TestNotify_AfterStop_IsIgnored(t *testing.T) {
	rec := &recorder{}
	d := New(20*time.Millisecond, rec.callback)
	d.Stop()

	d.Notify("home.weft")

	time.Sleep(80 * time.Millisecond)
	assert.Empty(t, rec.snapshot())
	assert.Zero(t, d.Pending())
}
