package tray

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/getlantern/systray"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/i18n"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// State represents what the menu bar icon shows
type State int

const (
	StateNormal State = iota
	StateSilent
)

// Entry is one device row of a submenu
type Entry struct {
	ID       string
	Label    string
	Checked  bool
	Disabled bool
}

// BuildMenu turns a DevicesChanged event into the rows of the dir submenu.
// Hidden devices are skipped; the list is already sorted.
func BuildMenu(ev events.DevicesChanged, dir device.Direction, tr *i18n.Translator) []Entry {
	active := ev.ActiveOutput
	if dir == device.Input {
		active = ev.ActiveInput
	}

	var entries []Entry
	for _, d := range ev.Devices {
		if d.Direction != dir || d.IsHidden {
			continue
		}

		label := d.Name
		if d.IsStarred {
			label = "☆ " + label
		}
		if d.ID == active {
			label = "✓ " + label
		}
		if !d.IsOnline {
			label += " (" + tr.Translate("menu.offline") + ")"
		}
		if d.Shortcut != "" {
			label += "  " + d.Shortcut
		}

		entries = append(entries, Entry{ID: d.ID, Label: label, Checked: d.ID == active})
	}

	if len(entries) == 0 {
		entries = append(entries, Entry{Label: tr.Translate("menu.no_devices"), Disabled: true})
	}
	return entries
}

// Manager manages the system tray icon and menu
type Manager struct {
	mu    sync.Mutex
	state State
	ready bool
	last  *events.DevicesChanged

	tr       *i18n.Translator
	log      *logger.Logger
	onReady  func()
	onSwitch func(id string)
	onReset  func()
	onQuit   func()

	menuOutput *systray.MenuItem
	menuInput  *systray.MenuItem
	menuSilent *systray.MenuItem
	menuReset  *systray.MenuItem
	menuQuit   *systray.MenuItem

	deviceItems   []*systray.MenuItem
	deviceCancels []context.CancelFunc

	iconNormal []byte
	iconSilent []byte
}

// Config holds tray manager configuration
type Config struct {
	Translator *i18n.Translator
	Logger     *logger.Logger
	OnReady    func() // called once systray is ready
	OnSwitch   func(id string)
	OnReset    func()
	OnQuit     func()
}

// NewManager creates a new tray manager
func NewManager(config Config) *Manager {
	if config.Translator == nil {
		config.Translator = i18n.NewDefault(i18n.LanguageEnglish)
	}
	if config.Logger == nil {
		config.Logger = logger.Discard()
	}
	m := &Manager{
		state:    StateNormal,
		tr:       config.Translator,
		log:      config.Logger.With("component", "tray"),
		onReady:  config.OnReady,
		onSwitch: config.OnSwitch,
		onReset:  config.OnReset,
		onQuit:   config.OnQuit,
	}

	m.iconNormal = m.loadIconData("volume_up_32dp.png", normalFallback)
	m.iconSilent = m.loadIconData("volume_off_32dp.png", silentFallback)

	return m
}

// Run starts the system tray (blocking call)
func (m *Manager) Run() {
	systray.Run(m.onSystrayReady, m.onExit)
}

func (m *Manager) onSystrayReady() {
	systray.SetTooltip("AudioSwitch")

	m.menuOutput = systray.AddMenuItem(m.tr.Translate("menu.output"), "")
	m.menuInput = systray.AddMenuItem(m.tr.Translate("menu.input"), "")
	m.menuSilent = systray.AddMenuItem(m.tr.Translate("menu.silent_mode"), "")
	m.menuSilent.Disable()
	m.menuSilent.Hide()

	systray.AddSeparator()
	m.menuReset = systray.AddMenuItem(m.tr.Translate("menu.reset"), "")
	m.menuQuit = systray.AddMenuItem(m.tr.Translate("menu.quit"), "")

	go m.handleMenuEvents()

	m.mu.Lock()
	m.ready = true
	m.applyState()
	if m.last != nil {
		m.rebuild(*m.last)
	}
	m.mu.Unlock()

	if m.onReady != nil {
		m.onReady()
	}
}

func (m *Manager) onExit() {}

func (m *Manager) handleMenuEvents() {
	for {
		select {
		case <-m.menuReset.ClickedCh:
			if m.onReset != nil {
				m.onReset()
			}
		case <-m.menuQuit.ClickedCh:
			if m.onQuit != nil {
				m.onQuit()
			}
			systray.Quit()
			return
		}
	}
}

// Watch applies bus events to the menu until ctx is done
func (m *Manager) Watch(ctx context.Context, bus *events.Bus) {
	ch := bus.Subscribe(16)
	defer bus.Unsubscribe(ch)

	for {
		select {
		case <-ctx.Done():
			return
		case e, ok := <-ch:
			if !ok {
				return
			}
			switch ev := e.(type) {
			case events.DevicesChanged:
				m.Update(ev)
			case events.SilentModeStateChanged:
				if ev.Active {
					m.SetState(StateSilent)
				} else {
					m.SetState(StateNormal)
				}
			}
		}
	}
}

// Update rebuilds the device submenus. Before the tray is ready the event is
// kept and applied on ready.
func (m *Manager) Update(ev events.DevicesChanged) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.last = &ev
	if m.ready {
		m.rebuild(ev)
	}
}

// rebuild must be called with mu held
func (m *Manager) rebuild(ev events.DevicesChanged) {
	// systray cannot remove items, so old ones are hidden and their
	// click goroutines cancelled
	for _, cancel := range m.deviceCancels {
		cancel()
	}
	m.deviceCancels = nil
	for _, item := range m.deviceItems {
		item.Hide()
	}
	m.deviceItems = nil

	m.addEntries(m.menuOutput, BuildMenu(ev, device.Output, m.tr))
	m.addEntries(m.menuInput, BuildMenu(ev, device.Input, m.tr))
}

func (m *Manager) addEntries(parent *systray.MenuItem, entries []Entry) {
	for _, entry := range entries {
		item := parent.AddSubMenuItem(entry.Label, "")
		m.deviceItems = append(m.deviceItems, item)
		if entry.Disabled {
			item.Disable()
			continue
		}

		ctx, cancel := context.WithCancel(context.Background())
		m.deviceCancels = append(m.deviceCancels, cancel)

		go func(id string, item *systray.MenuItem) {
			for {
				select {
				case <-ctx.Done():
					return
				case <-item.ClickedCh:
					if m.onSwitch != nil {
						m.onSwitch(id)
					}
				}
			}
		}(entry.ID, item)
	}
}

// SetState updates the tray icon
func (m *Manager) SetState(state State) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.state = state
	if m.ready {
		m.applyState()
	}
}

// applyState must be called with mu held
func (m *Manager) applyState() {
	switch m.state {
	case StateNormal:
		systray.SetIcon(m.iconNormal)
		m.menuSilent.Hide()
	case StateSilent:
		systray.SetIcon(m.iconSilent)
		m.menuSilent.Show()
	}
}

// Quit quits the system tray
func (m *Manager) Quit() {
	systray.Quit()
}

// loadIconData loads an icon from assets/icon next to the executable,
// falling back to an embedded placeholder
func (m *Manager) loadIconData(filename string, fallback []byte) []byte {
	exe, err := os.Executable()
	if err != nil {
		m.log.Warn("実行ファイルのパスを取得できませんでした", "err", err)
		return fallback
	}

	iconPath := filepath.Join(filepath.Dir(exe), "assets", "icon", filename)
	data, err := os.ReadFile(iconPath)
	if err != nil {
		m.log.Debug("using fallback icon", "path", iconPath, "err", err)
		return fallback
	}
	return data
}

// 16x16 placeholders
var normalFallback = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff,
	0x61, 0x00, 0x00, 0x00, 0x18, 0x49, 0x44, 0x41,
	0x54, 0x78, 0xda, 0x62, 0xfc, 0xff, 0xff, 0x3f,
	0x03, 0x00, 0x00, 0x00, 0xff, 0xff, 0x03, 0x00,
	0x00, 0x00, 0x00, 0x00, 0x49, 0x45, 0x4e, 0x44,
	0xae, 0x42, 0x60, 0x82,
}

var silentFallback = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a,
	0x00, 0x00, 0x00, 0x0d, 0x49, 0x48, 0x44, 0x52,
	0x00, 0x00, 0x00, 0x10, 0x00, 0x00, 0x00, 0x10,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0xf3, 0xff,
	0x61, 0x00, 0x00, 0x00, 0x20, 0x49, 0x44, 0x41,
	0x54, 0x78, 0xda, 0x62, 0xfc, 0xcf, 0xc0, 0xc0,
	0xc0, 0xf0, 0x9f, 0x81, 0x81, 0x81, 0x81, 0xff,
	0x19, 0x18, 0x18, 0x18, 0x00, 0x00, 0x00, 0x00,
	0xff, 0xff, 0x03, 0x00, 0x0c, 0x10, 0x02, 0x01,
	0x8b, 0xd5, 0xf8, 0x23, 0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}
