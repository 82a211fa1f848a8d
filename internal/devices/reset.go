package devices

import (
	"errors"
	"fmt"

	"github.com/yok-tottii/audioswitch/internal/device"
)

// ErrNoDevice is returned when a direction has no candidate at all
var ErrNoDevice = errors.New("no device available")

// ResetToDefaults switches both directions back to built-in hardware.
// If the host reports no devices yet it retries once after ResetRetryDelay.
func (m *Manager) ResetToDefaults() error {
	if _, err := m.Reconcile(); err != nil {
		return fmt.Errorf("reset to defaults: %w", err)
	}

	if len(m.present) == 0 {
		m.log.Warn("no devices enumerated, retrying reset", "delay", m.cfg.ResetRetryDelay)
		m.sched.After(m.cfg.ResetRetryDelay, func() {
			if _, err := m.Reconcile(); err != nil {
				m.log.Error("reset retry failed", "err", err)
				return
			}
			if err := m.applyDefaults(); err != nil {
				m.log.Error("reset retry failed", "err", err)
			}
		})
		return nil
	}

	return m.applyDefaults()
}

func (m *Manager) applyDefaults() error {
	var errs []error
	for _, dir := range device.Directions {
		d, ok := PickDefault(m.online(dir), dir)
		if !ok {
			errs = append(errs, fmt.Errorf("%s: %w", dir, ErrNoDevice))
			continue
		}
		if d.ID == m.Active(dir) {
			continue
		}
		m.log.Info("resetting default device", "direction", dir, "device", d.Name)
		if err := m.SwitchTo(d.ID); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// online returns the enumerated devices for dir in visible order
func (m *Manager) online(dir device.Direction) []device.AudioDevice {
	var out []device.AudioDevice
	for _, d := range m.visible {
		if d.Direction == dir && m.present[d.ID] {
			out = append(out, d)
		}
	}
	return out
}

// PickDefault chooses the reset target among candidates: a device that is
// built-in by both name and transport, then by transport alone, then the
// first candidate.
func PickDefault(candidates []device.AudioDevice, dir device.Direction) (device.AudioDevice, bool) {
	for _, d := range candidates {
		if device.BuiltInByName(d.Name, dir) && device.BuiltInByTransport(d.Transport) {
			return d, true
		}
	}
	for _, d := range candidates {
		if device.BuiltInByTransport(d.Transport) {
			return d, true
		}
	}
	if len(candidates) > 0 {
		return candidates[0], true
	}
	return device.AudioDevice{}, false
}
