// Package silentmode suspends device shortcuts while a listed application
// is frontmost. Mode state is owned by the main loop; only the poller runs
// on its own goroutine.
package silentmode

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
	"github.com/yok-tottii/audioswitch/internal/store"
)

// ErrAppNotFound is returned for operations on an app that is not listed
var ErrAppNotFound = errors.New("app not in silent mode list")

// App is one entry of the silent mode list
type App struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Path    string `json:"path,omitempty"`
	Enabled bool   `json:"isEnabled"`
}

// matches reports whether the frontmost process name refers to this app
func (a App) matches(frontmost string) bool {
	return strings.EqualFold(a.ID, frontmost) || (a.Name != "" && strings.EqualFold(a.Name, frontmost))
}

// Suspender is whatever owns the shortcut bindings
type Suspender interface {
	SetSuspended(bool)
}

// Mode tracks the silent list and whether it is currently in effect
type Mode struct {
	store  *store.Store
	sched  mainloop.Scheduler
	bus    *events.Bus
	target Suspender
	log    *logger.Logger

	apps      []App
	frontmost string
	active    bool
	activeApp string
}

// DefaultPollInterval is used when Run is given a non-positive interval
const DefaultPollInterval = time.Second

// New loads the persisted app list. An unreadable list starts empty.
func New(st *store.Store, sched mainloop.Scheduler, bus *events.Bus, target Suspender, log *logger.Logger) (*Mode, error) {
	if log == nil {
		log = logger.Discard()
	}
	m := &Mode{
		store:  st,
		sched:  sched,
		bus:    bus,
		target: target,
		log:    log.With("component", "silentmode"),
	}
	if _, err := st.Load(store.KeySilentApps, &m.apps); err != nil {
		m.log.Error("failed to load silent mode apps, starting empty", "err", err)
		m.apps = nil
	}
	return m, nil
}

// Apps returns a copy of the list
func (m *Mode) Apps() []App {
	out := make([]App, len(m.apps))
	copy(out, m.apps)
	return out
}

// Active reports whether silent mode is in effect and for which app
func (m *Mode) Active() (bool, string) {
	return m.active, m.activeApp
}

// Frontmost returns the last observed frontmost application
func (m *Mode) Frontmost() string {
	return m.frontmost
}

// Add appends app unless an entry with the same id exists. It reports
// whether the list changed.
func (m *Mode) Add(app App) (bool, error) {
	if app.ID == "" {
		return false, errors.New("app id is required")
	}
	if m.index(app.ID) >= 0 {
		return false, nil
	}
	if app.Name == "" {
		app.Name = app.ID
	}
	m.apps = append(m.apps, app)
	return true, m.commit()
}

// Remove drops the app with id
func (m *Mode) Remove(id string) error {
	i := m.index(id)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}
	m.apps = append(m.apps[:i], m.apps[i+1:]...)
	return m.commit()
}

// Toggle flips the enabled flag of id and returns the new value
func (m *Mode) Toggle(id string) (bool, error) {
	i := m.index(id)
	if i < 0 {
		return false, fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}
	m.apps[i].Enabled = !m.apps[i].Enabled
	return m.apps[i].Enabled, m.commit()
}

// SetApps replaces the whole list. Later duplicates of an id are dropped.
func (m *Mode) SetApps(apps []App) error {
	seen := make(map[string]bool, len(apps))
	next := make([]App, 0, len(apps))
	for _, app := range apps {
		if app.ID == "" {
			return errors.New("app id is required")
		}
		if seen[app.ID] {
			continue
		}
		seen[app.ID] = true
		if app.Name == "" {
			app.Name = app.ID
		}
		next = append(next, app)
	}
	m.apps = next
	return m.commit()
}

// Observe records the frontmost application and re-evaluates
func (m *Mode) Observe(frontmost string) {
	if frontmost == m.frontmost {
		return
	}
	m.log.Debug("frontmost application changed", "app", frontmost)
	m.frontmost = frontmost
	m.evaluate()
}

func (m *Mode) commit() error {
	m.evaluate()
	if err := m.store.Save(store.KeySilentApps, m.apps); err != nil {
		return fmt.Errorf("failed to save silent mode apps: %w", err)
	}
	return nil
}

func (m *Mode) index(id string) int {
	for i := range m.apps {
		if m.apps[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Mode) evaluate() {
	active, name := false, ""
	if m.frontmost != "" {
		for _, app := range m.apps {
			if app.Enabled && app.matches(m.frontmost) {
				active, name = true, app.Name
				break
			}
		}
	}
	if active == m.active {
		m.activeApp = name
		return
	}

	m.active, m.activeApp = active, name
	m.log.Info("silent mode state changed", "active", active, "app", m.frontmost)

	if m.target != nil {
		m.target.SetSuspended(active)
	}
	if m.bus == nil {
		return
	}
	m.bus.Publish(events.SilentModeStateChanged{Active: active, App: name})
	if active {
		m.bus.Publish(events.Notice{
			Key:   "silent_mode.on",
			Title: name,
			Level: events.LevelInfo,
		})
	}
}

// Run polls probe every interval and posts observations onto the loop
// until ctx is done.
func (m *Mode) Run(ctx context.Context, probe Probe, interval time.Duration) {
	if interval <= 0 {
		m.log.Warn("invalid poll interval, using default", "interval", interval, "default", DefaultPollInterval)
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last string
	poll := func() {
		name, err := probe.Frontmost()
		if err != nil {
			m.log.Debug("frontmost probe failed", "err", err)
			return
		}
		if name == last {
			return
		}
		last = name
		m.sched.Post(func() { m.Observe(name) })
	}

	poll()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			poll()
		}
	}
}
