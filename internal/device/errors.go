package device

import (
	"errors"
	"fmt"
)

// Sentinel errors, usable with errors.Is against the typed errors below.
var (
	ErrEnumeration      = errors.New("device enumeration failed")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrHostRejected     = errors.New("host rejected default device change")
	ErrReconnectTimeout = errors.New("bluetooth reconnect timed out")
)

// EnumerationError reports a failure of the host's global device list query
type EnumerationError struct {
	Op  string
	Err error
}

func (e *EnumerationError) Error() string {
	return fmt.Sprintf("enumerate devices: %s: %v", e.Op, e.Err)
}

func (e *EnumerationError) Unwrap() error { return e.Err }

func (e *EnumerationError) Is(target error) bool { return target == ErrEnumeration }

// SwitchErrorKind classifies switch failures
type SwitchErrorKind int

const (
	// DeviceNotFound means the id is unknown or has no live handle
	DeviceNotFound SwitchErrorKind = iota
	// HostRejected means the host refused the default device change
	HostRejected
)

// SwitchError is returned by a failed switch. State is never mutated when it occurs.
type SwitchError struct {
	Kind   SwitchErrorKind
	ID     string
	Status int32
	Err    error
}

func (e *SwitchError) Error() string {
	switch e.Kind {
	case HostRejected:
		return fmt.Sprintf("switch to %s: host rejected (status %d): %v", e.ID, e.Status, e.Err)
	default:
		return fmt.Sprintf("switch to %s: device not found", e.ID)
	}
}

func (e *SwitchError) Unwrap() error { return e.Err }

func (e *SwitchError) Is(target error) bool {
	switch e.Kind {
	case HostRejected:
		return target == ErrHostRejected
	default:
		return target == ErrDeviceNotFound
	}
}

// ReconnectError is reported when polling for a Bluetooth device runs out
type ReconnectError struct {
	ID       string
	Name     string
	Attempts int
}

func (e *ReconnectError) Error() string {
	return fmt.Sprintf("%s did not reappear after %d attempts: connect it manually, then retry", e.Name, e.Attempts)
}

func (e *ReconnectError) Is(target error) bool { return target == ErrReconnectTimeout }
