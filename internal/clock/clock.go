// Package clock abstracts the one timer edgelog needs, the stream connect
// timeout, so tests can fire it deterministically.
package clock

import (
	"cmp"
	"slices"
	"sync"
	"time"
)

// Clock schedules callbacks.
type Clock interface {
	// AfterFunc calls f in its own goroutine after d. The returned Timer
	// can cancel the call.
	AfterFunc(d time.Duration, f func()) Timer
}

// Timer is a pending AfterFunc call.
type Timer interface {
	// Stop prevents the call from happening. It reports whether the call
	// was still pending.
	Stop() bool
}

// Real returns a Clock backed by package time.
func Real() Clock {
	return realClock{}
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// FakeClock is a manually advanced Clock. Callbacks run synchronously inside
// Advance, or inside AfterFunc itself when d <= 0.
type FakeClock struct {
	mu      sync.Mutex
	elapsed time.Duration
	waiters []*fakeTimer
	changed *sync.Cond
	stops   int
}

// Fake returns a FakeClock at elapsed time zero.
func Fake() *FakeClock {
	c := &FakeClock{}
	c.changed = sync.NewCond(&c.mu)
	return c
}

type fakeTimer struct {
	clock    *FakeClock
	deadline time.Duration
	f        func()
	stopped  bool
	fired    bool
}

func (c *FakeClock) AfterFunc(d time.Duration, f func()) Timer {
	c.mu.Lock()
	t := &fakeTimer{clock: c, deadline: c.elapsed + d, f: f}
	if d <= 0 {
		t.fired = true
		c.mu.Unlock()
		f()
		return t
	}
	c.waiters = append(c.waiters, t)
	c.changed.Broadcast()
	c.mu.Unlock()
	return t
}

func (t *fakeTimer) Stop() bool {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stops++
	if t.stopped || t.fired {
		return false
	}
	t.stopped = true
	c.changed.Broadcast()
	return true
}

// Advance moves time forward by d and runs every callback that became due,
// in deadline order.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.elapsed += d
	var due, remaining []*fakeTimer
	for _, t := range c.waiters {
		switch {
		case t.stopped:
		case t.deadline <= c.elapsed:
			t.fired = true
			due = append(due, t)
		default:
			remaining = append(remaining, t)
		}
	}
	c.waiters = remaining
	c.changed.Broadcast()
	c.mu.Unlock()

	slices.SortStableFunc(due, func(a, b *fakeTimer) int {
		return cmp.Compare(a.deadline, b.deadline)
	})
	for _, t := range due {
		t.f()
	}
}

// Pending returns the number of timers that are neither stopped nor fired.
func (c *FakeClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pendingLocked()
}

func (c *FakeClock) pendingLocked() int {
	n := 0
	for _, t := range c.waiters {
		if !t.stopped && !t.fired {
			n++
		}
	}
	return n
}

// Stops returns how many times Stop has been called on timers from c.
func (c *FakeClock) Stops() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.stops
}

// WaitForTimers blocks until at least n timers are pending.
func (c *FakeClock) WaitForTimers(n int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for c.pendingLocked() < n {
		c.changed.Wait()
	}
}
