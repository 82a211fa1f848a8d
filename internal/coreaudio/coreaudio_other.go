//go:build !darwin

package coreaudio

import (
	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// System is unavailable off macOS
type System struct{}

// New always fails on this platform
func New(log *logger.Logger) (*System, error) {
	return nil, ErrUnsupported
}

func (s *System) Devices() ([]host.DeviceInfo, error) { return nil, ErrUnsupported }

func (s *System) DefaultDevice(device.Direction) (host.Handle, error) { return 0, ErrUnsupported }

func (s *System) SetDefaultDevice(device.Direction, host.Handle) error { return ErrUnsupported }

func (s *System) Lookup(string) (host.Handle, bool) { return 0, false }

func (s *System) Volume(host.Handle) (float32, error) { return 0, ErrUnsupported }

func (s *System) SetVolume(host.Handle, float32) error { return ErrUnsupported }

func (s *System) Subscribe(func(host.ChangeKind)) func() { return func() {} }
