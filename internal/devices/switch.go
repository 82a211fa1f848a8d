package devices

import (
	"errors"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
)

// SwitchTo makes id the default device for its direction.
// An offline Bluetooth device starts a reconnect instead and returns nil.
func (m *Manager) SwitchTo(id string) error {
	d, ok := m.find(id)
	if !ok {
		return &device.SwitchError{Kind: device.DeviceNotFound, ID: id}
	}

	h, live := m.resolve(d)
	if !live {
		if d.Transport == device.Bluetooth {
			m.AttemptReconnect(d, nil)
			return nil
		}
		return &device.SwitchError{Kind: device.DeviceNotFound, ID: id}
	}

	if d.Transport == device.Virtual {
		m.log.Warn("switching to a virtual device, system sounds may misroute", "device", d.Name)
	}

	if d.Direction == device.Input {
		return m.switchInput(d, h)
	}
	return m.setDefault(d, h)
}

func (m *Manager) setDefault(d device.AudioDevice, h host.Handle) error {
	if err := m.audio.SetDefaultDevice(d.Direction, h); err != nil {
		var status int32
		var se *host.StatusError
		if errors.As(err, &se) {
			status = se.Status
		}
		return &device.SwitchError{Kind: device.HostRejected, ID: d.ID, Status: status, Err: err}
	}

	m.log.Info("switched device", "direction", d.Direction, "device", d.Name, "id", d.ID)
	m.history[d.Direction].Push(d.ID)
	m.refresh.Request()
	return nil
}

// switchInput works around the host moving the default output along with
// the input (e.g. headsets falling back to their hands-free profile).
func (m *Manager) switchInput(d device.AudioDevice, h host.Handle) error {
	prevOutput := m.hostOutput()
	volumes := make(map[string]float32)
	for _, o := range m.visible {
		if o.Direction != device.Output || !m.present[o.ID] {
			continue
		}
		oh, ok := m.resolve(o)
		if !ok {
			continue
		}
		v, err := m.audio.Volume(oh)
		if err != nil {
			m.log.Debug("volume not readable", "device", o.Name, "err", err)
			continue
		}
		volumes[o.ID] = v
	}

	if err := m.setDefault(d, h); err != nil {
		return err
	}

	m.sched.After(m.cfg.DriftCheckDelay, func() {
		m.reconcileOrReset()
		if prevOutput != "" && m.activeOutput != prevOutput {
			m.log.Warn("output changed with input switch, restoring",
				"expected", prevOutput, "actual", m.activeOutput)
			if err := m.SwitchTo(prevOutput); err != nil {
				m.log.Error("failed to restore output", "id", prevOutput, "err", err)
			}
		}
		m.sched.After(m.cfg.VolumeRestoreDelay, func() { m.restoreVolume(volumes) })
	})
	return nil
}

// hostOutput maps the host's current default output to a catalog id.
// m.activeOutput can lag behind a switch made earlier in the same pass.
func (m *Manager) hostOutput() string {
	h, err := m.audio.DefaultDevice(device.Output)
	if err != nil || h == 0 {
		return m.activeOutput
	}
	for _, o := range m.visible {
		if o.Direction != device.Output || !m.present[o.ID] {
			continue
		}
		if oh, ok := m.resolve(o); ok && oh == h {
			return o.ID
		}
	}
	return m.activeOutput
}

func (m *Manager) restoreVolume(captured map[string]float32) {
	id := m.activeOutput
	want, ok := captured[id]
	if !ok {
		return
	}
	d, ok := m.find(id)
	if !ok {
		return
	}
	h, ok := m.resolve(d)
	if !ok {
		return
	}
	got, err := m.audio.Volume(h)
	if err != nil {
		m.log.Debug("volume not readable", "device", d.Name, "err", err)
		return
	}
	delta := got - want
	if delta < 0 {
		delta = -delta
	}
	if delta <= m.cfg.VolumeEpsilon {
		return
	}
	if err := m.audio.SetVolume(h, want); err != nil {
		m.log.Warn("failed to restore volume", "device", d.Name, "err", err)
		return
	}
	m.log.Info("restored output volume", "device", d.Name, "from", got, "to", want)
}

// ToggleLastTwo switches dir to the other device in its history.
// With fewer than two entries, or no active device, it does nothing.
func (m *Manager) ToggleLastTwo(dir device.Direction) error {
	active := m.Active(dir)
	if active == "" {
		m.log.Debug("no active device to toggle from", "direction", dir)
		return nil
	}
	target, ok := m.history[dir].Other(active)
	if !ok {
		m.log.Debug("nothing to toggle", "direction", dir)
		return nil
	}
	return m.SwitchTo(target)
}
