// Package mainloop serializes all mutations of engine state onto one
// goroutine. Host notifications, hotkey presses, HTTP handlers and timers
// never touch state directly; they post a func onto the loop.
package mainloop

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"
)

// ErrClosed is returned by Call after Close
var ErrClosed = errors.New("main loop closed")

// Scheduler posts work onto the owning goroutine
type Scheduler interface {
	// Post queues fn to run on the loop. Safe from any goroutine, including the loop itself.
	Post(fn func())
	// After queues fn to run on the loop once d has elapsed.
	After(d time.Duration, fn func())
}

// Loop runs posted funcs one at a time on a single goroutine.
// The queue is unbounded so posting from inside a running func never blocks.
type Loop struct {
	mu      sync.Mutex
	queue   []func()
	wake    chan struct{}
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	started bool
	onPanic func(any)
}

// New creates a stopped loop. onPanic, if set, receives values recovered from posted funcs.
func New(onPanic func(any)) *Loop {
	ctx, cancel := context.WithCancel(context.Background())
	return &Loop{
		wake:    make(chan struct{}, 1),
		ctx:     ctx,
		cancel:  cancel,
		onPanic: onPanic,
	}
}

// Start begins the worker goroutine. Safe to call multiple times.
func (l *Loop) Start() {
	l.mu.Lock()
	if l.started {
		l.mu.Unlock()
		return
	}
	l.started = true
	l.mu.Unlock()

	l.wg.Add(1)
	go func() {
		defer l.wg.Done()
		for {
			select {
			case <-l.ctx.Done():
				return
			case <-l.wake:
				for {
					fn := l.next()
					if fn == nil {
						break
					}
					l.run(fn)
				}
			}
		}
	}()
}

func (l *Loop) next() func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.queue) == 0 || l.ctx.Err() != nil {
		return nil
	}
	fn := l.queue[0]
	l.queue[0] = nil
	l.queue = l.queue[1:]
	return fn
}

func (l *Loop) run(fn func()) {
	defer func() {
		if r := recover(); r != nil && l.onPanic != nil {
			l.onPanic(r)
		}
	}()
	fn()
}

// Post queues fn. Funcs posted after Close are dropped.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	if l.ctx.Err() != nil {
		l.mu.Unlock()
		return
	}
	l.queue = append(l.queue, fn)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// After posts fn once d has elapsed
func (l *Loop) After(d time.Duration, fn func()) {
	time.AfterFunc(d, func() { l.Post(fn) })
}

// Call runs fn on the loop and waits for its result.
// It must not be called from the loop goroutine.
func (l *Loop) Call(fn func() error) error {
	done := make(chan error, 1)
	l.Post(func() { done <- fn() })
	select {
	case err := <-done:
		return err
	case <-l.ctx.Done():
		return ErrClosed
	}
}

// Close stops the worker and waits for it to exit. Queued funcs are dropped.
func (l *Loop) Close() {
	l.cancel()
	l.wg.Wait()
}

// Coalescer collapses bursts of requests into a single posted run.
// Any number of Request calls before the run starts produce one run.
type Coalescer struct {
	pending atomic.Bool
	sched   Scheduler
	fn      func()
}

// NewCoalescer returns a coalescer that posts fn onto sched
func NewCoalescer(sched Scheduler, fn func()) *Coalescer {
	return &Coalescer{sched: sched, fn: fn}
}

// Request schedules fn unless a run is already pending
func (c *Coalescer) Request() {
	if !c.pending.CompareAndSwap(false, true) {
		return
	}
	c.sched.Post(func() {
		c.pending.Store(false)
		c.fn()
	})
}
