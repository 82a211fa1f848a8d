package hotkey

import (
	"errors"
	"fmt"
	"sync"

	"golang.design/x/hotkey"
)

// ErrHostConflict is returned by a Facility when the combo is already taken
var ErrHostConflict = errors.New("shortcut is already registered")

// Binding is a live host registration
type Binding interface {
	Unregister() error
}

// Facility is the host's global hotkey service. pressed is called with id
// on every key down, from a goroutine owned by the facility.
type Facility interface {
	Register(c Combo, id uint32, pressed func(id uint32)) (Binding, error)
}

// SystemFacility registers global hotkeys through golang.design/x/hotkey
type SystemFacility struct {
	mu   sync.Mutex
	held map[string]bool
}

// NewSystemFacility creates a facility backed by the OS hotkey service
func NewSystemFacility() *SystemFacility {
	return &SystemFacility{held: make(map[string]bool)}
}

type systemBinding struct {
	facility *SystemFacility
	key      string
	hk       *hotkey.Hotkey
	stopChan chan struct{}
	wg       sync.WaitGroup
	once     sync.Once
}

// Register registers c with the system and forwards key downs to pressed
func (f *SystemFacility) Register(c Combo, id uint32, pressed func(id uint32)) (Binding, error) {
	key := c.String()

	f.mu.Lock()
	if f.held[key] {
		f.mu.Unlock()
		return nil, fmt.Errorf("%s: %w", key, ErrHostConflict)
	}
	f.held[key] = true
	f.mu.Unlock()

	hk := hotkey.New(c.Modifiers, c.Key)
	if err := hk.Register(); err != nil {
		f.release(key)
		return nil, fmt.Errorf("failed to register hotkey %s: %w", key, err)
	}

	b := &systemBinding{
		facility: f,
		key:      key,
		hk:       hk,
		stopChan: make(chan struct{}),
	}

	b.wg.Add(1)
	go func() {
		defer b.wg.Done()
		for {
			select {
			case <-hk.Keydown():
				pressed(id)
			case <-b.stopChan:
				return
			}
		}
	}()

	return b, nil
}

func (f *SystemFacility) release(key string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.held, key)
}

// Unregister stops forwarding and releases the combo.
// 注意: 解除に失敗しても combo は解放し、再登録できるようにする
func (b *systemBinding) Unregister() error {
	var err error
	b.once.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
		if uerr := b.hk.Unregister(); uerr != nil {
			err = fmt.Errorf("failed to unregister hotkey %s: %w", b.key, uerr)
		}
		b.facility.release(b.key)
	})
	return err
}
