package devices

import (
	"fmt"
	"regexp"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/events"
)

var macPrefix = regexp.MustCompile(`(?i)^([0-9a-f]{2}[-:]){5}[0-9a-f]{2}`)

// BluetoothAddress extracts the MAC address Bluetooth devices carry at the
// start of their UID, e.g. "AA-BB-CC-DD-EE-FF:output". Other UIDs pass through.
func BluetoothAddress(uid string) string {
	if mac := macPrefix.FindString(uid); mac != "" {
		return mac
	}
	return uid
}

// Reconnecting reports whether a reconnect for id is in flight
func (m *Manager) Reconnecting(id string) bool {
	return m.reconnecting[id]
}

// AttemptReconnect asks the Bluetooth stack to connect d, then polls every
// ReconnectInterval for up to ReconnectAttempts passes. When the device shows
// up it is switched to like any other device. done, if set, receives the outcome.
func (m *Manager) AttemptReconnect(d device.AudioDevice, done func(error)) {
	finish := func(err error) {
		delete(m.reconnecting, d.ID)
		if done != nil {
			done(err)
		}
	}

	if m.reconnecting[d.ID] {
		m.log.Debug("reconnect already in progress", "device", d.Name)
		return
	}
	m.reconnecting[d.ID] = true

	// Polling runs either way; the user may connect it by hand.
	addr := BluetoothAddress(d.UID)
	if m.bluetooth == nil {
		m.log.Warn("no bluetooth control available, waiting for the device", "device", d.Name)
	} else {
		m.log.Info("reconnecting bluetooth device", "device", d.Name, "address", addr)
		if err := m.bluetooth.Connect(addr); err != nil {
			m.log.Warn("bluetooth connect request failed", "device", d.Name, "err", err)
		}
	}
	m.notice("reconnect.started", d.Name, fmt.Sprintf("Connecting to %s...", d.Name), events.LevelInfo)

	attempt := 0
	var poll func()
	poll = func() {
		attempt++
		if _, err := m.Reconcile(); err != nil {
			m.log.Warn("reconcile during reconnect failed", "attempt", attempt, "err", err)
		}

		if _, ok := m.resolve(d); ok {
			m.log.Info("bluetooth device reappeared", "device", d.Name, "attempt", attempt)
			// Input devices get the same output drift guard as a manual switch
			finish(m.SwitchTo(d.ID))
			return
		}

		if attempt >= m.cfg.ReconnectAttempts {
			err := &device.ReconnectError{ID: d.ID, Name: d.Name, Attempts: attempt}
			m.log.Warn("bluetooth reconnect timed out", "device", d.Name, "attempts", attempt)
			m.notice("reconnect.timeout", d.Name, err.Error(), events.LevelWarning)
			finish(err)
			return
		}
		m.sched.After(m.cfg.ReconnectInterval, poll)
	}
	m.sched.After(m.cfg.ReconnectInterval, poll)
}
