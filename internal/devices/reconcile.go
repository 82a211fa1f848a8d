package devices

import (
	"errors"
	"sort"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/host"
)

// Reconcile enumerates the host, merges the result into the catalog and
// publishes the new visible list. On an enumeration error nothing changes.
func (m *Manager) Reconcile() (Snapshot, error) {
	raw, err := m.enum.Enumerate()
	if err != nil {
		return Snapshot{}, err
	}

	defaults := make(map[device.Direction]host.Handle, 2)
	for _, dir := range device.Directions {
		h, err := m.audio.DefaultDevice(dir)
		if err != nil {
			m.log.Warn("failed to read default device", "direction", dir, "err", err)
			continue
		}
		defaults[dir] = h
	}

	enumerated := make([]device.AudioDevice, 0, len(raw))
	present := make(map[string]bool, len(raw))
	degraded := make(map[string]host.Handle)
	activeSeen := make(map[device.Direction]bool, 2)
	active := map[device.Direction]string{}

	for _, r := range raw {
		if present[r.ID] {
			continue
		}
		d := device.AudioDevice{
			ID:        r.ID,
			UID:       r.UID,
			Name:      r.Name,
			Direction: r.Direction,
			Transport: r.Transport,
			IsOnline:  true,
		}
		// 同じ方向で active は最大1台
		if h, ok := defaults[r.Direction]; ok && h != 0 && h == r.Handle && !activeSeen[r.Direction] {
			d.IsActive = true
			activeSeen[r.Direction] = true
			active[r.Direction] = r.ID
		}
		m.overlay(&d)
		enumerated = append(enumerated, d)
		present[r.ID] = true
		if r.DegradedUID {
			degraded[r.ID] = r.Handle
		}
	}

	// Merge into the catalog; entries are never dropped.
	for _, d := range enumerated {
		if i := m.catalogIndex(d.ID); i >= 0 {
			m.catalog[i] = d
		} else {
			m.catalog = append(m.catalog, d)
		}
	}

	visible := append([]device.AudioDevice(nil), enumerated...)
	for i := range m.catalog {
		d := &m.catalog[i]
		if present[d.ID] {
			continue
		}
		d.IsActive = false
		d.IsOnline = d.Transport.Sticky()
		m.overlay(d)
		if d.IsOnline {
			visible = append(visible, *d)
		}
	}

	sort.SliceStable(visible, func(i, j int) bool { return device.Less(visible[i], visible[j]) })

	m.visible = visible
	m.present = present
	m.degraded = degraded
	m.activeOutput = active[device.Output]
	m.activeInput = active[device.Input]
	for _, dir := range device.Directions {
		if id := active[dir]; id != "" {
			m.history[dir].Push(id)
		}
	}

	if err := m.store.SaveCatalog(m.catalog); err != nil {
		m.log.Error("failed to persist device catalog", "err", err)
	}

	m.applyBindings()

	snap := m.Snapshot()
	m.bus.Publish(events.DevicesChanged{
		Devices:      snap.Devices,
		ActiveOutput: snap.ActiveOutput,
		ActiveInput:  snap.ActiveInput,
	})

	m.log.Debug("reconciled", "visible", len(visible), "catalog", len(m.catalog),
		"active_output", m.activeOutput, "active_input", m.activeInput)
	return snap, nil
}

// reconcileOrReset is the notification path: a failed enumeration falls
// back to a reset, which itself reconciles without falling back again.
func (m *Manager) reconcileOrReset() {
	_, err := m.Reconcile()
	if err == nil {
		return
	}
	if !errors.Is(err, device.ErrEnumeration) {
		m.log.Error("reconcile failed", "err", err)
		return
	}
	m.log.Error("device enumeration failed, resetting to defaults", "err", err)
	if err := m.ResetToDefaults(); err != nil {
		m.log.Error("fallback reset failed", "err", err)
	}
}

// resolve finds a live handle for d
func (m *Manager) resolve(d device.AudioDevice) (host.Handle, bool) {
	if h, ok := m.audio.Lookup(d.UID); ok {
		return h, true
	}
	if h, ok := m.degraded[d.ID]; ok {
		return h, true
	}
	return 0, false
}
