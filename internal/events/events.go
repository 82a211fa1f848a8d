package events

import (
	"sync"

	"github.com/yok-tottii/audioswitch/internal/device"
)

// Event is a marker interface for everything published on the bus
type Event interface {
	isEvent()
}

type baseEvent struct{}

func (baseEvent) isEvent() {}

// DevicesChanged is published after every reconciliation pass
type DevicesChanged struct {
	baseEvent
	Devices      []device.AudioDevice
	ActiveOutput string
	ActiveInput  string
}

// SilentModeStateChanged is published when the frontmost app enters or leaves the silent list
type SilentModeStateChanged struct {
	baseEvent
	Active bool
	App    string
}

// Level is the severity of a Notice
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
	LevelError   Level = "error"
)

// Notice is a user-facing message, e.g. crash recovery or reconnect guidance
type Notice struct {
	baseEvent
	Key     string
	Title   string
	Message string
	Level   Level
}

// Bus provides simple event publish/subscribe
type Bus struct {
	mu          sync.Mutex
	subscribers []chan Event
}

// NewBus creates a new event bus
func NewBus() *Bus {
	return &Bus{}
}

// Subscribe creates a new event channel for receiving events
func (b *Bus) Subscribe(bufferSize int) chan Event {
	ch := make(chan Event, bufferSize)
	b.mu.Lock()
	b.subscribers = append(b.subscribers, ch)
	b.mu.Unlock()
	return ch
}

// Unsubscribe removes ch from the bus and closes it
func (b *Bus) Unsubscribe(ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for i, sub := range b.subscribers {
		if sub == ch {
			b.subscribers = append(b.subscribers[:i], b.subscribers[i+1:]...)
			close(ch)
			return
		}
	}
}

// Publish sends an event to all subscribers (non-blocking).
// A subscriber whose buffer is full misses the event.
func (b *Bus) Publish(e Event) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, ch := range b.subscribers {
		select {
		case ch <- e:
		default:
		}
	}
}
