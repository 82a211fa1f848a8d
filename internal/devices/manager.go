// Package devices owns the device catalog. Every exported method must run on
// the main loop; background callers go through the Scheduler.
package devices

import (
	"errors"
	"time"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/enumerator"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/host"
	"github.com/yok-tottii/audioswitch/internal/hotkey"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
	"github.com/yok-tottii/audioswitch/internal/store"
)

// Config holds timing and shortcut settings for the manager
type Config struct {
	ReconnectAttempts    int
	ReconnectInterval    time.Duration
	DriftCheckDelay      time.Duration // after an input switch
	VolumeRestoreDelay   time.Duration // after the drift check
	VolumeEpsilon        float32
	ResetRetryDelay      time.Duration
	ToggleOutputShortcut string
	ToggleInputShortcut  string
}

// DefaultConfig returns the default manager configuration
func DefaultConfig() Config {
	return Config{
		ReconnectAttempts:    15,
		ReconnectInterval:    time.Second,
		DriftCheckDelay:      200 * time.Millisecond,
		VolumeRestoreDelay:   100 * time.Millisecond,
		VolumeEpsilon:        0.01,
		ResetRetryDelay:      500 * time.Millisecond,
		ToggleOutputShortcut: "⌘⌥A",
	}
}

// Shortcuts is the subset of the shortcut registry the manager drives
type Shortcuts interface {
	Register(trigger, id string, action hotkey.Action) error
	ClearAll()
}

// Deps are the collaborators of a Manager
type Deps struct {
	Audio     host.Audio
	Bluetooth host.Bluetooth
	Store     *store.Store
	Scheduler mainloop.Scheduler
	Bus       *events.Bus
	Shortcuts Shortcuts
	Logger    *logger.Logger
}

// Snapshot is a copy of the visible state
type Snapshot struct {
	Devices      []device.AudioDevice `json:"devices"`
	ActiveOutput string               `json:"activeOutput"`
	ActiveInput  string               `json:"activeInput"`
}

// Manager reconciles the catalog and performs switches
type Manager struct {
	audio     host.Audio
	bluetooth host.Bluetooth
	enum      *enumerator.Enumerator
	store     *store.Store
	sched     mainloop.Scheduler
	bus       *events.Bus
	shortcuts Shortcuts
	log       *logger.Logger
	cfg       Config

	catalog      []device.AudioDevice
	visible      []device.AudioDevice
	present      map[string]bool
	degraded     map[string]host.Handle
	activeOutput string
	activeInput  string
	history      map[device.Direction]*device.History

	shortcutMap map[string]string
	starred     map[string]bool
	hidden      map[string]bool

	applied      map[string]string
	suspended    bool
	reconnecting map[string]bool

	refresh     *mainloop.Coalescer
	unsubscribe func()
}

// New loads persisted state and returns a stopped manager
func New(deps Deps, cfg Config) (*Manager, error) {
	if deps.Audio == nil || deps.Store == nil || deps.Scheduler == nil {
		return nil, errors.New("devices: audio, store and scheduler are required")
	}
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.Bus == nil {
		deps.Bus = events.NewBus()
	}

	m := &Manager{
		audio:     deps.Audio,
		bluetooth: deps.Bluetooth,
		enum:      enumerator.New(deps.Audio, deps.Logger),
		store:     deps.Store,
		sched:     deps.Scheduler,
		bus:       deps.Bus,
		shortcuts: deps.Shortcuts,
		log:       deps.Logger.With("component", "devices"),
		cfg:       cfg,
		present:   make(map[string]bool),
		history: map[device.Direction]*device.History{
			device.Output: {},
			device.Input:  {},
		},
		reconnecting: make(map[string]bool),
	}
	m.refresh = mainloop.NewCoalescer(deps.Scheduler, m.reconcileOrReset)

	// An unreadable value starts empty; the next save replaces it.
	var err error
	if m.catalog, err = m.store.LoadCatalog(); err != nil {
		m.log.Error("failed to load device catalog, starting empty", "err", err)
		m.catalog = nil
	}
	if m.shortcutMap, err = m.store.LoadShortcuts(); err != nil {
		m.log.Error("failed to load shortcuts, starting empty", "err", err)
		m.shortcutMap = map[string]string{}
	}
	if m.starred, err = m.store.LoadSet(store.KeyStarred); err != nil {
		m.log.Error("failed to load starred devices, starting empty", "err", err)
		m.starred = map[string]bool{}
	}
	if m.hidden, err = m.store.LoadSet(store.KeyHidden); err != nil {
		m.log.Error("failed to load hidden devices, starting empty", "err", err)
		m.hidden = map[string]bool{}
	}

	// The separate metadata keys win over whatever the catalog recorded.
	for i := range m.catalog {
		m.overlay(&m.catalog[i])
	}

	return m, nil
}

// Start subscribes to host notifications and runs the first pass.
// crashed requests a catalog-aware reset after the first pass.
func (m *Manager) Start(crashed bool) {
	m.unsubscribe = m.audio.Subscribe(func(kind host.ChangeKind) {
		m.log.Debug("host change", "kind", kind)
		m.refresh.Request()
	})

	m.reconcileOrReset()

	if crashed {
		m.log.Warn("previous run ended abnormally, resetting to built-in devices")
		if err := m.ResetToDefaults(); err != nil {
			m.log.Error("reset after crash failed", "err", err)
		}
	}
}

// Stop drops the host subscription and every shortcut
func (m *Manager) Stop() {
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
	if m.shortcuts != nil {
		m.shortcuts.ClearAll()
	}
	m.applied = nil
}

// RequestReconcile schedules a pass. Safe from any goroutine; bursts coalesce.
func (m *Manager) RequestReconcile() {
	m.refresh.Request()
}

// Snapshot returns a copy of the visible list and active ids
func (m *Manager) Snapshot() Snapshot {
	return Snapshot{
		Devices:      cloneDevices(m.visible),
		ActiveOutput: m.activeOutput,
		ActiveInput:  m.activeInput,
	}
}

// Catalog returns a copy of every known device
func (m *Manager) Catalog() []device.AudioDevice {
	return cloneDevices(m.catalog)
}

// Active returns the active device id for dir
func (m *Manager) Active(dir device.Direction) string {
	if dir == device.Input {
		return m.activeInput
	}
	return m.activeOutput
}

// History returns the toggle history for dir, most recent first
func (m *Manager) History(dir device.Direction) []string {
	return m.history[dir].Entries()
}

// Events returns the bus the manager publishes on
func (m *Manager) Events() *events.Bus {
	return m.bus
}

func (m *Manager) catalogIndex(id string) int {
	for i := range m.catalog {
		if m.catalog[i].ID == id {
			return i
		}
	}
	return -1
}

func (m *Manager) find(id string) (device.AudioDevice, bool) {
	for _, d := range m.visible {
		if d.ID == id {
			return d, true
		}
	}
	if i := m.catalogIndex(id); i >= 0 {
		return m.catalog[i], true
	}
	return device.AudioDevice{}, false
}

func (m *Manager) overlay(d *device.AudioDevice) {
	d.Shortcut = m.shortcutMap[d.ID]
	d.IsStarred = m.starred[d.ID]
	d.IsHidden = m.hidden[d.ID]
}

func (m *Manager) notice(key, title, message string, level events.Level) {
	m.bus.Publish(events.Notice{Key: key, Title: title, Message: message, Level: level})
}

func cloneDevices(in []device.AudioDevice) []device.AudioDevice {
	out := make([]device.AudioDevice, len(in))
	copy(out, in)
	return out
}
