package devices

import (
	"errors"
	"maps"
	"sort"
	"strings"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/hotkey"
)

// Shortcut ids
const (
	ToggleOutputID = "toggle.output"
	ToggleInputID  = "toggle.input"
	devicePrefix   = "device."
)

// DeviceShortcutID returns the registry id for a device shortcut
func DeviceShortcutID(deviceID string) string {
	return devicePrefix + deviceID
}

func (m *Manager) desiredBindings() map[string]string {
	desired := make(map[string]string)
	if m.suspended {
		return desired
	}
	if m.cfg.ToggleOutputShortcut != "" {
		desired[ToggleOutputID] = m.cfg.ToggleOutputShortcut
	}
	if m.cfg.ToggleInputShortcut != "" {
		desired[ToggleInputID] = m.cfg.ToggleInputShortcut
	}
	for _, d := range m.visible {
		if d.Shortcut != "" {
			desired[DeviceShortcutID(d.ID)] = d.Shortcut
		}
	}
	return desired
}

// applyBindings rebuilds host registrations when the desired set changed.
// Presses keep working during a pass because nothing is torn down otherwise.
func (m *Manager) applyBindings() {
	if m.shortcuts == nil {
		return
	}
	desired := m.desiredBindings()
	if m.applied != nil && maps.Equal(desired, m.applied) {
		return
	}

	m.shortcuts.ClearAll()
	m.applied = desired

	ids := make([]string, 0, len(desired))
	for id := range desired {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		err := m.shortcuts.Register(desired[id], id, m.actionFor(id))
		if err == nil {
			continue
		}
		if errors.Is(err, hotkey.ErrHostConflict) {
			// The registry already cleared everything.
			m.log.Warn("shortcut conflict, all shortcuts disabled", "id", id, "err", err)
			m.notice("shortcut.conflict", "Shortcut conflict", err.Error(), events.LevelWarning)
			return
		}
		m.log.Warn("failed to register shortcut", "id", id, "err", err)
	}
}

func (m *Manager) actionFor(id string) hotkey.Action {
	switch id {
	case ToggleOutputID:
		return func() { m.logToggle(device.Output) }
	case ToggleInputID:
		return func() { m.logToggle(device.Input) }
	}
	deviceID := strings.TrimPrefix(id, devicePrefix)
	return func() {
		if err := m.SwitchTo(deviceID); err != nil {
			m.log.Warn("shortcut switch failed", "device", deviceID, "err", err)
		}
	}
}

func (m *Manager) logToggle(dir device.Direction) {
	if err := m.ToggleLastTwo(dir); err != nil {
		m.log.Warn("toggle failed", "direction", dir, "err", err)
	}
}

// SetSuspended drops every shortcut while true
func (m *Manager) SetSuspended(suspended bool) {
	if m.suspended == suspended {
		return
	}
	m.suspended = suspended
	m.log.Info("shortcuts suspended", "suspended", suspended)
	m.applyBindings()
}

// Suspended reports whether shortcuts are currently suspended
func (m *Manager) Suspended() bool {
	return m.suspended
}

// SetToggleShortcuts replaces the global toggle triggers; empty disables one
func (m *Manager) SetToggleShortcuts(output, input string) {
	m.cfg.ToggleOutputShortcut = output
	m.cfg.ToggleInputShortcut = input
	m.applyBindings()
}
