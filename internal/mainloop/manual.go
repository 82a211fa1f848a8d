package mainloop

import (
	"sort"
	"sync"
	"time"
)

// Manual is a Scheduler driven by the caller. Nothing runs until
// RunPending or Advance is called, and time only moves with Advance.
type Manual struct {
	mu     sync.Mutex
	now    time.Duration
	seq    int
	queue  []func()
	timers []manualTimer
}

type manualTimer struct {
	at  time.Duration
	seq int
	fn  func()
}

// NewManual returns a scheduler at virtual time zero
func NewManual() *Manual {
	return &Manual{}
}

func (m *Manual) Post(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.queue = append(m.queue, fn)
}

func (m *Manual) After(d time.Duration, fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	m.timers = append(m.timers, manualTimer{at: m.now + d, seq: m.seq, fn: fn})
}

// Call runs fn immediately and then drains anything it posted
func (m *Manual) Call(fn func() error) error {
	err := fn()
	m.RunPending()
	return err
}

// Now returns the virtual time elapsed
func (m *Manual) Now() time.Duration {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Pending returns the number of queued funcs and timers
func (m *Manual) Pending() (queued, timers int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.queue), len(m.timers)
}

// RunPending runs queued funcs, including ones they post, until the queue is empty
func (m *Manual) RunPending() {
	for {
		m.mu.Lock()
		if len(m.queue) == 0 {
			m.mu.Unlock()
			return
		}
		fn := m.queue[0]
		m.queue = m.queue[1:]
		m.mu.Unlock()
		fn()
	}
}

// Advance moves virtual time forward by d, firing due timers in order
func (m *Manual) Advance(d time.Duration) {
	m.RunPending()

	m.mu.Lock()
	target := m.now + d
	m.mu.Unlock()

	for {
		m.mu.Lock()
		sort.SliceStable(m.timers, func(i, j int) bool {
			if m.timers[i].at != m.timers[j].at {
				return m.timers[i].at < m.timers[j].at
			}
			return m.timers[i].seq < m.timers[j].seq
		})
		if len(m.timers) == 0 || m.timers[0].at > target {
			m.now = target
			m.mu.Unlock()
			m.RunPending()
			return
		}
		t := m.timers[0]
		m.timers = m.timers[1:]
		m.now = t.at
		m.queue = append(m.queue, t.fn)
		m.mu.Unlock()

		m.RunPending()
	}
}
