//go:build darwin

package coreaudio

/*
#cgo LDFLAGS: -framework CoreAudio -framework CoreFoundation
#include <stdlib.h>
#include "coreaudio.h"
*/
import "C"

import (
	"fmt"
	"strconv"
	"unsafe"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

const stringBufferSize = 512

//export goAudioPropertyChanged
func goAudioPropertyChanged(kind C.int) {
	registry.dispatch(host.ChangeKind(kind))
}

// System is the CoreAudio hardware system
type System struct {
	log *logger.Logger
}

// New returns the CoreAudio host
func New(log *logger.Logger) (*System, error) {
	return &System{log: log.With("component", "coreaudio")}, nil
}

func statusErr(op string, status C.OSStatus) error {
	if status == 0 {
		return nil
	}
	return &host.StatusError{Op: op, Status: int32(status)}
}

func inputFlag(dir device.Direction) C.int {
	if dir == device.Input {
		return 1
	}
	return 0
}

// Devices lists every hardware device
func (s *System) Devices() ([]host.DeviceInfo, error) {
	var ids *C.AudioObjectID
	var count C.UInt32
	if err := statusErr("device list", C.as_device_ids(&ids, &count)); err != nil {
		return nil, err
	}
	if count == 0 {
		return nil, nil
	}
	defer C.free(unsafe.Pointer(ids))

	handles := unsafe.Slice(ids, int(count))
	out := make([]host.DeviceInfo, 0, len(handles))
	for _, id := range handles {
		out = append(out, s.describe(id))
	}
	return out, nil
}

func (s *System) describe(id C.AudioObjectID) host.DeviceInfo {
	info := host.DeviceInfo{Handle: host.Handle(id), Transport: device.Unknown}

	if uid, err := deviceString(id, C.kAudioDevicePropertyDeviceUID); err == nil {
		info.UID = uid
	} else {
		s.log.Debug("device UID unavailable", "handle", uint32(id), "err", err)
	}
	if name, err := deviceString(id, C.kAudioObjectPropertyName); err == nil {
		info.Name = name
	}

	var transport C.UInt32
	if C.as_transport(id, &transport) == 0 {
		info.Transport = TransportFromCode(uint32(transport))
	}

	info.Output = streamInfo(id, 0)
	info.Input = streamInfo(id, 1)
	return info
}

func deviceString(id C.AudioObjectID, selector C.AudioObjectPropertySelector) (string, error) {
	buf := (*C.char)(C.malloc(stringBufferSize))
	defer C.free(unsafe.Pointer(buf))
	if err := statusErr("device property", C.as_device_string(id, selector, buf, stringBufferSize)); err != nil {
		return "", err
	}
	return C.GoString(buf), nil
}

func streamInfo(id C.AudioObjectID, input C.int) host.StreamInfo {
	var buffers C.UInt32
	if err := statusErr("stream configuration", C.as_buffer_count(id, input, &buffers)); err != nil {
		return host.StreamInfo{Err: err}
	}
	return host.StreamInfo{Buffers: int(buffers)}
}

// DefaultDevice returns the default device for dir
func (s *System) DefaultDevice(dir device.Direction) (host.Handle, error) {
	var id C.AudioObjectID
	if err := statusErr("get default device", C.as_default_device(inputFlag(dir), &id)); err != nil {
		return 0, err
	}
	return host.Handle(id), nil
}

// SetDefaultDevice makes h the default for dir
func (s *System) SetDefaultDevice(dir device.Direction, h host.Handle) error {
	return statusErr("set default device", C.as_set_default_device(inputFlag(dir), C.AudioObjectID(h)))
}

// Lookup resolves a UID to a live device. Degraded UIDs (decimal handles)
// are accepted when the handle still exists.
func (s *System) Lookup(uid string) (host.Handle, bool) {
	cuid := C.CString(uid)
	defer C.free(unsafe.Pointer(cuid))

	var id C.AudioObjectID
	if C.as_translate_uid(cuid, &id) == 0 && id != C.kAudioObjectUnknown {
		return host.Handle(id), true
	}

	if n, err := strconv.ParseUint(uid, 10, 32); err == nil {
		infos, err := s.Devices()
		if err != nil {
			return 0, false
		}
		for _, info := range infos {
			if uint64(info.Handle) == n && info.UID == "" {
				return info.Handle, true
			}
		}
	}
	return 0, false
}

// Volume returns the output volume scalar of h
func (s *System) Volume(h host.Handle) (float32, error) {
	var v C.Float32
	if err := statusErr("get volume", C.as_volume(C.AudioObjectID(h), &v)); err != nil {
		return 0, err
	}
	return float32(v), nil
}

// SetVolume sets the output volume scalar of h
func (s *System) SetVolume(h host.Handle, v float32) error {
	if v < 0 || v > 1 {
		return fmt.Errorf("volume %v out of range", v)
	}
	return statusErr("set volume", C.as_set_volume(C.AudioObjectID(h), C.Float32(v)))
}

// Subscribe registers fn for device list and default device changes.
// fn runs on a CoreAudio thread.
func (s *System) Subscribe(fn func(host.ChangeKind)) func() {
	id, first := registry.add(fn)
	if first {
		if err := statusErr("add property listener", C.as_add_listeners()); err != nil {
			s.log.Error("failed to listen for device changes", "err", err)
		}
	}
	return func() {
		if registry.remove(id) {
			if err := statusErr("remove property listener", C.as_remove_listeners()); err != nil {
				s.log.Warn("failed to remove device listeners", "err", err)
			}
		}
	}
}
