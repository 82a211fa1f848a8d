package devices

import (
	"fmt"
	"sort"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/hotkey"
	"github.com/yok-tottii/audioswitch/internal/store"
)

func (m *Manager) known(id string) error {
	if _, ok := m.find(id); !ok {
		return fmt.Errorf("%w: %s", device.ErrDeviceNotFound, id)
	}
	return nil
}

// ToggleStar flips the starred flag of id and returns the new value
func (m *Manager) ToggleStar(id string) (bool, error) {
	if err := m.known(id); err != nil {
		return false, err
	}
	starred := !m.starred[id]
	if starred {
		m.starred[id] = true
	} else {
		delete(m.starred, id)
	}
	if err := m.store.SaveSet(store.KeyStarred, m.starred); err != nil {
		return false, fmt.Errorf("failed to save starred devices: %w", err)
	}
	m.afterMetadataChange()
	return starred, nil
}

// HideDevice marks id hidden
func (m *Manager) HideDevice(id string) error {
	return m.setHidden(id, true)
}

// UnhideDevice clears the hidden flag of id
func (m *Manager) UnhideDevice(id string) error {
	return m.setHidden(id, false)
}

func (m *Manager) setHidden(id string, hidden bool) error {
	if err := m.known(id); err != nil {
		return err
	}
	if m.hidden[id] == hidden {
		return nil
	}
	if hidden {
		m.hidden[id] = true
	} else {
		delete(m.hidden, id)
	}
	if err := m.store.SaveSet(store.KeyHidden, m.hidden); err != nil {
		return fmt.Errorf("failed to save hidden devices: %w", err)
	}
	m.afterMetadataChange()
	return nil
}

// HiddenDevices returns every catalog entry flagged hidden, sorted
func (m *Manager) HiddenDevices() []device.AudioDevice {
	var out []device.AudioDevice
	for _, d := range m.catalog {
		if d.IsHidden {
			out = append(out, d)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return device.Less(out[i], out[j]) })
	return out
}

// SetShortcut assigns trigger to id. The trigger is stored in canonical form
// and the parse error is returned so the caller can show it.
func (m *Manager) SetShortcut(id, trigger string) (string, error) {
	if err := m.known(id); err != nil {
		return "", err
	}
	canonical, err := hotkey.Normalize(trigger)
	if err != nil {
		return "", &hotkey.RegistrationError{Kind: hotkey.ParseFailed, ID: DeviceShortcutID(id), Trigger: trigger, Err: err}
	}
	m.shortcutMap[id] = canonical
	if err := m.store.SaveShortcuts(m.shortcutMap); err != nil {
		return "", fmt.Errorf("failed to save shortcuts: %w", err)
	}
	m.afterMetadataChange()
	return canonical, nil
}

// ClearShortcut removes the shortcut of id
func (m *Manager) ClearShortcut(id string) error {
	if _, ok := m.shortcutMap[id]; !ok {
		return nil
	}
	delete(m.shortcutMap, id)
	if err := m.store.SaveShortcuts(m.shortcutMap); err != nil {
		return fmt.Errorf("failed to save shortcuts: %w", err)
	}
	m.afterMetadataChange()
	return nil
}

// AddBluetoothDevice records an offline Bluetooth output so it can be
// reconnected from the list before it was ever seen.
func (m *Manager) AddBluetoothDevice(name, uid string) (device.AudioDevice, error) {
	if uid == "" {
		return device.AudioDevice{}, fmt.Errorf("bluetooth device %q needs a UID or address", name)
	}
	id := device.MakeID(device.Output, uid)
	if i := m.catalogIndex(id); i >= 0 {
		return m.catalog[i], nil
	}

	d := device.AudioDevice{
		ID:        id,
		UID:       uid,
		Name:      name,
		Direction: device.Output,
		Transport: device.Bluetooth,
	}
	m.overlay(&d)
	m.catalog = append(m.catalog, d)
	m.log.Info("added bluetooth device", "device", name, "id", id)
	m.afterMetadataChange()

	if i := m.catalogIndex(id); i >= 0 {
		return m.catalog[i], nil
	}
	return d, nil
}

// afterMetadataChange re-applies the overlay and refreshes the list. A failed
// enumeration still updates the catalog so the change is not lost.
func (m *Manager) afterMetadataChange() {
	for i := range m.catalog {
		m.overlay(&m.catalog[i])
	}
	if _, err := m.Reconcile(); err != nil {
		m.log.Warn("reconcile after metadata change failed", "err", err)
		if err := m.store.SaveCatalog(m.catalog); err != nil {
			m.log.Error("failed to persist device catalog", "err", err)
		}
	}
}
