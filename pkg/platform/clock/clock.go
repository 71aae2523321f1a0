// Package clock supplies "now" to the ledger. Deadline checks never read the
// wall clock directly; the runtime injects a Clock so behaviour stays
// deterministic under test.
package clock

import (
	"sync"
	"time"
)

// Clock returns the current instant.
type Clock interface {
	Now() time.Time
}

// Func adapts a plain function to Clock.
type Func func() time.Time

func (f Func) Now() time.Time { return f() }

// System reads the wall clock.
type System struct{}

func (System) Now() time.Time { return time.Now() }

// Monotonic wraps a Clock so successive readings never go backwards. If the
// underlying source steps back (NTP adjustment, VM migration) the last returned
// instant is repeated until the source catches up.
type Monotonic struct {
	mu     sync.Mutex
	source Clock
	last   time.Time
}

func NewMonotonic(source Clock) *Monotonic {
	if source == nil {
		source = System{}
	}
	return &Monotonic{source: source}
}

func (m *Monotonic) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.source.Now()
	if now.Before(m.last) {
		return m.last
	}
	m.last = now
	return now
}

// Fake is a manually driven clock for tests.
type Fake struct {
	mu  sync.RWMutex
	now time.Time
}

func NewFake(start time.Time) *Fake {
	return &Fake{now: start}
}

func (f *Fake) Now() time.Time {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.now
}

// Advance moves the clock forward by d. Negative durations are ignored.
func (f *Fake) Advance(d time.Duration) {
	if d <= 0 {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = f.now.Add(d)
}

// Set jumps to t. Wrap the Fake in a Monotonic when backward jumps must be absorbed.
func (f *Fake) Set(t time.Time) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.now = t
}
