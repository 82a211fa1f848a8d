// Package coreaudio implements host.Audio on macOS.
package coreaudio

import (
	"errors"
	"sync"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/host"
)

// ErrUnsupported is returned by New on platforms without CoreAudio
var ErrUnsupported = errors.New("coreaudio is only available on macOS")

func fourCC(s string) uint32 {
	return uint32(s[0])<<24 | uint32(s[1])<<16 | uint32(s[2])<<8 | uint32(s[3])
}

// kAudioDeviceTransportType* values
var transports = map[uint32]device.Transport{
	fourCC("bltn"): device.BuiltIn,
	fourCC("usb "): device.USB,
	fourCC("blue"): device.Bluetooth,
	fourCC("blea"): device.Bluetooth,
	fourCC("virt"): device.Virtual,
	fourCC("airp"): device.AirPlay,
	fourCC("dprt"): device.DisplayPort,
	fourCC("hdmi"): device.HDMI,
	fourCC("thun"): device.Thunderbolt,
}

// TransportFromCode maps a CoreAudio transport type to a Transport
func TransportFromCode(code uint32) device.Transport {
	if t, ok := transports[code]; ok {
		return t
	}
	return device.Unknown
}

// listeners fan CoreAudio property callbacks out to subscribers. CoreAudio
// listeners are process-wide, so this is too.
type listeners struct {
	mu   sync.Mutex
	next int
	subs map[int]func(host.ChangeKind)
}

func (l *listeners) add(fn func(host.ChangeKind)) (id int, first bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.subs == nil {
		l.subs = make(map[int]func(host.ChangeKind))
	}
	id = l.next
	l.next++
	l.subs[id] = fn
	return id, len(l.subs) == 1
}

func (l *listeners) remove(id int) (last bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if _, ok := l.subs[id]; !ok {
		return false
	}
	delete(l.subs, id)
	return len(l.subs) == 0
}

func (l *listeners) dispatch(kind host.ChangeKind) {
	l.mu.Lock()
	subs := make([]func(host.ChangeKind), 0, len(l.subs))
	for _, fn := range l.subs {
		subs = append(subs, fn)
	}
	l.mu.Unlock()

	for _, fn := range subs {
		fn(kind)
	}
}

var registry listeners
