package enumerator

import (
	"strconv"
	"strings"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// UnknownName is used when the host reports no name for a device
const UnknownName = "Unknown Device"

// RawDevice is one (hardware device, direction) pair that passed all checks
type RawDevice struct {
	ID          string
	UID         string
	Handle      host.Handle
	Name        string
	Direction   device.Direction
	Transport   device.Transport
	DegradedUID bool // UID fell back to the runtime handle
}

// allowedAggregates are virtual routing products whose names contain "aggregate"
// but which users do want to switch to.
var allowedAggregates = []string{"loopback", "audio hijack", "soundflower", "blackhole"}

// Enumerator turns the host device list into RawDevices
type Enumerator struct {
	audio host.Audio
	log   *logger.Logger
}

// New creates an enumerator over audio
func New(audio host.Audio, log *logger.Logger) *Enumerator {
	return &Enumerator{audio: audio, log: log.With("component", "enumerator")}
}

// Enumerate lists usable devices in both directions. Only a failure of the
// global list query is an error; per-device problems drop or degrade that device.
func (e *Enumerator) Enumerate() ([]RawDevice, error) {
	infos, err := e.audio.Devices()
	if err != nil {
		return nil, &device.EnumerationError{Op: "device list", Err: err}
	}

	var out []RawDevice
	for _, info := range infos {
		name := info.Name
		if name == "" {
			name = UnknownName
		}
		if Excluded(name) {
			e.log.Debug("skipping system aggregate", "name", name)
			continue
		}

		uid := info.UID
		degraded := false
		if uid == "" {
			uid = strconv.FormatUint(uint64(info.Handle), 10)
			degraded = true
			e.log.Warn("device has no UID, falling back to handle", "name", name, "handle", info.Handle)
		}

		for _, dir := range device.Directions {
			stream := info.Stream(dir)
			if stream.Err != nil || stream.Buffers == 0 {
				if info.Transport != device.Virtual {
					continue
				}
				e.log.Debug("virtual device reports no streams, including anyway",
					"name", name, "direction", dir, "err", stream.Err)
			}

			out = append(out, RawDevice{
				ID:          device.MakeID(dir, uid),
				UID:         uid,
				Handle:      info.Handle,
				Name:        name,
				Direction:   dir,
				Transport:   info.Transport,
				DegradedUID: degraded,
			})
		}
	}

	return out, nil
}

// Excluded reports whether name belongs to a system aggregate device that
// should never be shown.
func Excluded(name string) bool {
	if strings.Contains(name, "CADefaultDeviceAggregate") {
		return true
	}
	lower := strings.ToLower(name)
	if !strings.Contains(lower, "aggregate") {
		return false
	}
	for _, allowed := range allowedAggregates {
		if strings.Contains(lower, allowed) {
			return false
		}
	}
	return true
}
