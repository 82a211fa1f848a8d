package hotkey

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
)

// ErrParseFailed matches registrations whose trigger text could not be parsed
var ErrParseFailed = errors.New("shortcut could not be parsed")

// RegistrationErrorKind classifies registration failures
type RegistrationErrorKind int

const (
	ParseFailed RegistrationErrorKind = iota
	HostConflict
)

// RegistrationError is returned by Registry.Register
type RegistrationError struct {
	Kind    RegistrationErrorKind
	ID      string
	Trigger string
	Err     error
}

func (e *RegistrationError) Error() string {
	switch e.Kind {
	case HostConflict:
		return fmt.Sprintf("shortcut %s for %s conflicts with an existing registration", e.Trigger, e.ID)
	default:
		return fmt.Sprintf("shortcut %q for %s could not be parsed: %v", e.Trigger, e.ID, e.Err)
	}
}

func (e *RegistrationError) Unwrap() error { return e.Err }

func (e *RegistrationError) Is(target error) bool {
	switch e.Kind {
	case HostConflict:
		return target == ErrHostConflict
	default:
		return target == ErrParseFailed
	}
}

// Action runs on the main loop when its shortcut is pressed
type Action func()

type entry struct {
	binding   Binding
	numericID uint32
	trigger   string
}

// Registry maps logical ids (e.g. "device.output:XYZ") to host hotkeys.
// Register, Unregister and ClearAll are called from the main loop;
// Dispatch arrives on facility goroutines and only posts.
type Registry struct {
	facility Facility
	sched    mainloop.Scheduler
	log      *logger.Logger

	mu      sync.Mutex
	entries map[string]entry
	actions map[uint32]Action
	nextID  uint32
}

// NewRegistry creates an empty registry
func NewRegistry(facility Facility, sched mainloop.Scheduler, log *logger.Logger) *Registry {
	return &Registry{
		facility: facility,
		sched:    sched,
		log:      log.With("component", "shortcuts"),
		entries:  make(map[string]entry),
		actions:  make(map[uint32]Action),
	}
}

// Register binds trigger to action under id, replacing any existing binding for id.
// A host conflict clears every binding and is not retried.
func (r *Registry) Register(trigger, id string, action Action) error {
	r.Unregister(id)

	combo, err := Parse(trigger)
	if err != nil {
		return &RegistrationError{Kind: ParseFailed, ID: id, Trigger: trigger, Err: err}
	}

	r.mu.Lock()
	r.nextID++
	numericID := r.nextID
	r.mu.Unlock()

	binding, err := r.facility.Register(combo, numericID, r.Dispatch)
	if err != nil {
		if errors.Is(err, ErrHostConflict) {
			r.log.Warn("shortcut conflict, clearing all shortcuts", "id", id, "trigger", combo.String())
			r.ClearAll()
			return &RegistrationError{Kind: HostConflict, ID: id, Trigger: combo.String(), Err: err}
		}
		return fmt.Errorf("failed to register shortcut %s for %s: %w", combo.String(), id, err)
	}

	r.mu.Lock()
	r.entries[id] = entry{binding: binding, numericID: numericID, trigger: combo.String()}
	r.actions[numericID] = action
	r.mu.Unlock()

	r.log.Debug("shortcut registered", "id", id, "trigger", combo.String(), "numeric_id", numericID)
	return nil
}

// Unregister removes the binding for id if present
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	e, ok := r.entries[id]
	if ok {
		delete(r.entries, id)
		delete(r.actions, e.numericID)
	}
	r.mu.Unlock()

	if !ok {
		return
	}
	if err := e.binding.Unregister(); err != nil {
		r.log.Warn("failed to unregister shortcut", "id", id, "err", err)
	}
}

// ClearAll removes every binding
func (r *Registry) ClearAll() {
	r.mu.Lock()
	entries := r.entries
	r.entries = make(map[string]entry)
	r.actions = make(map[uint32]Action)
	r.mu.Unlock()

	for id, e := range entries {
		if err := e.binding.Unregister(); err != nil {
			r.log.Warn("failed to unregister shortcut", "id", id, "err", err)
		}
	}
}

// Dispatch posts the action bound to numericID onto the main loop
func (r *Registry) Dispatch(numericID uint32) {
	r.mu.Lock()
	action, ok := r.actions[numericID]
	r.mu.Unlock()

	if !ok {
		r.log.Debug("press for unknown shortcut", "numeric_id", numericID)
		return
	}
	r.sched.Post(action)
}

// Bindings returns id to canonical trigger for every live binding
func (r *Registry) Bindings() map[string]string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make(map[string]string, len(r.entries))
	for id, e := range r.entries {
		out[id] = e.trigger
	}
	return out
}

// IDs returns the registered ids in sorted order
func (r *Registry) IDs() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ids := make([]string, 0, len(r.entries))
	for id := range r.entries {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
