// Package host declares the collaborators the engine needs from the
// operating system. Production implementations live in coreaudio and
// bluetooth; tests use in-memory fakes.
package host

import (
	"fmt"

	"github.com/yok-tottii/audioswitch/internal/device"
)

// Handle is the host's runtime identifier for a device. It is not stable
// across reconnects.
type Handle uint32

// StreamInfo is the outcome of the per-direction stream/channel query
type StreamInfo struct {
	Err     error
	Buffers int
}

// DeviceInfo is what the host reports for one hardware device
type DeviceInfo struct {
	Handle    Handle
	UID       string // empty when the host could not report one
	Name      string
	Transport device.Transport
	Output    StreamInfo
	Input     StreamInfo
}

// Stream returns the stream info for a direction
func (d DeviceInfo) Stream(dir device.Direction) StreamInfo {
	if dir == device.Input {
		return d.Input
	}
	return d.Output
}

// ChangeKind identifies what changed in a host notification
type ChangeKind int

const (
	DeviceListChanged ChangeKind = iota
	DefaultOutputChanged
	DefaultInputChanged
)

func (k ChangeKind) String() string {
	switch k {
	case DeviceListChanged:
		return "device-list"
	case DefaultOutputChanged:
		return "default-output"
	case DefaultInputChanged:
		return "default-input"
	default:
		return "unknown"
	}
}

// StatusError carries a host status code from a failed call
type StatusError struct {
	Op     string
	Status int32
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s failed with status %d", e.Op, e.Status)
}

// Audio is the host audio system
type Audio interface {
	// Devices lists every hardware device. An error is a hard failure.
	Devices() ([]DeviceInfo, error)
	// DefaultDevice returns the current default device for a direction.
	DefaultDevice(dir device.Direction) (Handle, error)
	// SetDefaultDevice makes h the default for dir. Failures are *StatusError.
	SetDefaultDevice(dir device.Direction, h Handle) error
	// Lookup resolves a UID to a live handle.
	Lookup(uid string) (Handle, bool)
	Volume(h Handle) (float32, error)
	SetVolume(h Handle, v float32) error
	// Subscribe registers fn for change notifications. fn may run on any goroutine.
	Subscribe(fn func(ChangeKind)) (cancel func())
}

// Bluetooth triggers connection of a paired device. Connect is best effort.
type Bluetooth interface {
	Connect(address string) error
}
