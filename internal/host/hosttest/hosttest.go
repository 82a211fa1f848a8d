// Package hosttest provides in-memory host collaborators for tests.
package hosttest

import (
	"sync"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
)

// SetDefaultCall records one SetDefaultDevice invocation
type SetDefaultCall struct {
	Direction device.Direction
	Handle    host.Handle
}

// Audio is a scriptable host.Audio
type Audio struct {
	mu          sync.Mutex
	devices     []host.DeviceInfo
	defaults    map[device.Direction]host.Handle
	volumes     map[host.Handle]float32
	reject      map[host.Handle]int32
	subscribers map[int]func(host.ChangeKind)
	nextSub     int

	// ListErr, when set, makes Devices fail
	ListErr error
	// OnSetDefault runs after a successful SetDefaultDevice, outside the lock
	OnSetDefault func(dir device.Direction, h host.Handle)

	ListCalls       int
	SetDefaultCalls []SetDefaultCall
	SetVolumeCalls  map[host.Handle][]float32
}

// NewAudio returns a fake host with the given devices and no defaults
func NewAudio(devices ...host.DeviceInfo) *Audio {
	return &Audio{
		devices:        append([]host.DeviceInfo(nil), devices...),
		defaults:       make(map[device.Direction]host.Handle),
		volumes:        make(map[host.Handle]float32),
		reject:         make(map[host.Handle]int32),
		subscribers:    make(map[int]func(host.ChangeKind)),
		SetVolumeCalls: make(map[host.Handle][]float32),
	}
}

// Output describes an output-only device
func Output(h host.Handle, uid, name string, transport device.Transport) host.DeviceInfo {
	return host.DeviceInfo{Handle: h, UID: uid, Name: name, Transport: transport, Output: host.StreamInfo{Buffers: 1}}
}

// Input describes an input-only device
func Input(h host.Handle, uid, name string, transport device.Transport) host.DeviceInfo {
	return host.DeviceInfo{Handle: h, UID: uid, Name: name, Transport: transport, Input: host.StreamInfo{Buffers: 1}}
}

// Duplex describes a device with streams in both directions
func Duplex(h host.Handle, uid, name string, transport device.Transport) host.DeviceInfo {
	return host.DeviceInfo{
		Handle: h, UID: uid, Name: name, Transport: transport,
		Output: host.StreamInfo{Buffers: 1},
		Input:  host.StreamInfo{Buffers: 1},
	}
}

// SetDevices replaces the device list
func (a *Audio) SetDevices(devices ...host.DeviceInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.devices = append([]host.DeviceInfo(nil), devices...)
}

// AddDevice appends a device
func (a *Audio) AddDevice(d host.DeviceInfo) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.devices = append(a.devices, d)
}

// RemoveDevice drops the device with handle h
func (a *Audio) RemoveDevice(h host.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, d := range a.devices {
		if d.Handle == h {
			a.devices = append(a.devices[:i], a.devices[i+1:]...)
			return
		}
	}
}

// SetDefault changes the default without recording a call, as another app would
func (a *Audio) SetDefault(dir device.Direction, h host.Handle) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.defaults[dir] = h
}

// Default returns the current default handle for dir
func (a *Audio) Default(dir device.Direction) host.Handle {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaults[dir]
}

// Reject makes SetDefaultDevice fail for h with status
func (a *Audio) Reject(h host.Handle, status int32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reject[h] = status
}

// SetVolumeDirect sets a volume without recording a call
func (a *Audio) SetVolumeDirect(h host.Handle, v float32) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.volumes[h] = v
}

// Calls returns a copy of the recorded SetDefaultDevice calls
func (a *Audio) Calls() []SetDefaultCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]SetDefaultCall(nil), a.SetDefaultCalls...)
}

// Notify delivers kind to every subscriber
func (a *Audio) Notify(kind host.ChangeKind) {
	a.mu.Lock()
	subs := make([]func(host.ChangeKind), 0, len(a.subscribers))
	for _, fn := range a.subscribers {
		subs = append(subs, fn)
	}
	a.mu.Unlock()
	for _, fn := range subs {
		fn(kind)
	}
}

func (a *Audio) Devices() ([]host.DeviceInfo, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.ListCalls++
	if a.ListErr != nil {
		return nil, a.ListErr
	}
	return append([]host.DeviceInfo(nil), a.devices...), nil
}

func (a *Audio) DefaultDevice(dir device.Direction) (host.Handle, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.defaults[dir], nil
}

func (a *Audio) SetDefaultDevice(dir device.Direction, h host.Handle) error {
	a.mu.Lock()
	a.SetDefaultCalls = append(a.SetDefaultCalls, SetDefaultCall{Direction: dir, Handle: h})
	if status, ok := a.reject[h]; ok {
		a.mu.Unlock()
		return &host.StatusError{Op: "set default device", Status: status}
	}
	if !a.hasLocked(h) {
		a.mu.Unlock()
		return &host.StatusError{Op: "set default device", Status: 560947818} // '!obj'
	}
	a.defaults[dir] = h
	hook := a.OnSetDefault
	a.mu.Unlock()

	if hook != nil {
		hook(dir, h)
	}
	return nil
}

func (a *Audio) hasLocked(h host.Handle) bool {
	for _, d := range a.devices {
		if d.Handle == h {
			return true
		}
	}
	return false
}

func (a *Audio) Lookup(uid string) (host.Handle, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, d := range a.devices {
		if d.UID == uid {
			return d.Handle, true
		}
	}
	return 0, false
}

func (a *Audio) Volume(h host.Handle) (float32, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if !a.hasLocked(h) {
		return 0, &host.StatusError{Op: "get volume", Status: 560947818}
	}
	return a.volumes[h], nil
}

func (a *Audio) SetVolume(h host.Handle, v float32) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.SetVolumeCalls[h] = append(a.SetVolumeCalls[h], v)
	a.volumes[h] = v
	return nil
}

func (a *Audio) Subscribe(fn func(host.ChangeKind)) func() {
	a.mu.Lock()
	defer a.mu.Unlock()
	id := a.nextSub
	a.nextSub++
	a.subscribers[id] = fn
	return func() {
		a.mu.Lock()
		defer a.mu.Unlock()
		delete(a.subscribers, id)
	}
}

// Bluetooth records connect requests
type Bluetooth struct {
	mu    sync.Mutex
	calls []string
	Err   error
	// OnConnect runs after each request, e.g. to make the device appear
	OnConnect func(address string)
}

func (b *Bluetooth) Connect(address string) error {
	b.mu.Lock()
	b.calls = append(b.calls, address)
	hook := b.OnConnect
	err := b.Err
	b.mu.Unlock()
	if hook != nil {
		hook(address)
	}
	return err
}

// Calls returns the addresses passed to Connect
func (b *Bluetooth) Calls() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]string(nil), b.calls...)
}
