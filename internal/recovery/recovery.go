// Package recovery detects runs that ended without a clean shutdown and puts
// the system back on built-in audio before anything else starts.
package recovery

import (
	"errors"
	"fmt"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/store"
)

// Result describes what Arm did
type Result struct {
	// Recovered is true when the previous run crashed and a reset was attempted
	Recovered bool
	// Output and Input are the names of the devices selected, if any
	Output string
	Input  string
}

// Guard owns the persisted dirty flag
type Guard struct {
	store *store.Store
	audio host.Audio
	log   *logger.Logger
}

// New creates a guard over the crash flag in s
func New(s *store.Store, audio host.Audio, log *logger.Logger) *Guard {
	return &Guard{store: s, audio: audio, log: log.With("component", "recovery")}
}

// Arm reads the flag left by the previous run. A set flag means that run
// crashed: both directions are reset straight from the host list, bypassing
// the catalog. Either way the flag is set again for this run.
func (g *Guard) Arm() (Result, error) {
	dirty, err := g.store.Bool(store.KeyCrashFlag)
	if err != nil {
		// An unreadable flag is treated like a clean shutdown.
		g.log.Warn("failed to read crash flag", "err", err)
	}

	var res Result
	if dirty {
		g.log.Warn("previous run did not shut down cleanly, resetting audio devices")
		res = g.lowLevelReset()
		res.Recovered = true

		if err := g.store.SetBool(store.KeyCrashFlag, false); err != nil {
			g.log.Error("failed to clear crash flag", "err", err)
		}
	}

	if err := g.store.SetBool(store.KeyCrashFlag, true); err != nil {
		return res, fmt.Errorf("failed to arm crash flag: %w", err)
	}
	return res, nil
}

// Disarm records a graceful shutdown
func (g *Guard) Disarm() error {
	if err := g.store.SetBool(store.KeyCrashFlag, false); err != nil {
		return fmt.Errorf("failed to disarm crash flag: %w", err)
	}
	g.log.Debug("crash flag cleared")
	return nil
}

func (g *Guard) lowLevelReset() Result {
	var res Result

	infos, err := g.audio.Devices()
	if err != nil {
		g.log.Error("low-level reset: device list failed", "err", err)
		return res
	}

	for _, dir := range device.Directions {
		info, err := pickBuiltIn(infos, dir)
		if err != nil {
			g.log.Warn("low-level reset: no built-in device", "direction", dir)
			continue
		}
		if err := g.audio.SetDefaultDevice(dir, info.Handle); err != nil {
			g.log.Error("low-level reset failed", "direction", dir, "device", info.Name, "err", err)
			continue
		}
		g.log.Info("low-level reset", "direction", dir, "device", info.Name)
		if dir == device.Input {
			res.Input = info.Name
		} else {
			res.Output = info.Name
		}
	}
	return res
}

var errNoBuiltIn = errors.New("no built-in device")

// pickBuiltIn prefers the host's transport classification and falls back to
// the name heuristic.
func pickBuiltIn(infos []host.DeviceInfo, dir device.Direction) (host.DeviceInfo, error) {
	var usable []host.DeviceInfo
	for _, info := range infos {
		if s := info.Stream(dir); s.Err == nil && s.Buffers > 0 {
			usable = append(usable, info)
		}
	}
	for _, info := range usable {
		if device.BuiltInByTransport(info.Transport) {
			return info, nil
		}
	}
	for _, info := range usable {
		if device.BuiltInByName(info.Name, dir) {
			return info, nil
		}
	}
	return host.DeviceInfo{}, errNoBuiltIn
}
