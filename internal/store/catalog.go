package store

import (
	"fmt"
	"sort"

	"github.com/bytedance/sonic"

	"github.com/yok-tottii/audioswitch/internal/device"
)

// Persisted keys
const (
	KeyCatalog    = "savedAudioDevices"
	KeyShortcuts  = "deviceShortcuts"
	KeyStarred    = "starredDeviceIDs"
	KeyHidden     = "hiddenDeviceIDs"
	KeyCrashFlag  = "crashFlag"
	KeySilentApps = "silentModeApps"
)

// Store adds typed accessors on top of a KV
type Store struct {
	kv KV
}

// New wraps kv
func New(kv KV) *Store {
	return &Store{kv: kv}
}

// Load decodes key into v. It reports false when the key has never been written.
func (s *Store) Load(key string, v any) (bool, error) {
	data, ok, err := s.kv.Get(key)
	if err != nil || !ok {
		return false, err
	}
	if err := sonic.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("failed to decode %s: %w", key, err)
	}
	return true, nil
}

// Save encodes v under key
func (s *Store) Save(key string, v any) error {
	data, err := sonic.Marshal(v)
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", key, err)
	}
	return s.kv.Set(key, data)
}

// LoadCatalog returns the persisted device catalog, empty if never saved
func (s *Store) LoadCatalog() ([]device.AudioDevice, error) {
	var devices []device.AudioDevice
	if _, err := s.Load(KeyCatalog, &devices); err != nil {
		return nil, err
	}
	return devices, nil
}

// SaveCatalog persists the full catalog
func (s *Store) SaveCatalog(devices []device.AudioDevice) error {
	if devices == nil {
		devices = []device.AudioDevice{}
	}
	return s.Save(KeyCatalog, devices)
}

// LoadShortcuts returns the id to trigger map
func (s *Store) LoadShortcuts() (map[string]string, error) {
	shortcuts := make(map[string]string)
	if _, err := s.Load(KeyShortcuts, &shortcuts); err != nil {
		return nil, err
	}
	if shortcuts == nil {
		shortcuts = make(map[string]string)
	}
	return shortcuts, nil
}

// SaveShortcuts persists the id to trigger map
func (s *Store) SaveShortcuts(shortcuts map[string]string) error {
	return s.Save(KeyShortcuts, shortcuts)
}

// LoadSet reads an id set stored as a list
func (s *Store) LoadSet(key string) (map[string]bool, error) {
	var ids []string
	if _, err := s.Load(key, &ids); err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// SaveSet writes an id set as a sorted list
func (s *Store) SaveSet(key string, set map[string]bool) error {
	ids := make([]string, 0, len(set))
	for id, ok := range set {
		if ok {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return s.Save(key, ids)
}

// Bool reads a boolean flag, false if never written
func (s *Store) Bool(key string) (bool, error) {
	var v bool
	if _, err := s.Load(key, &v); err != nil {
		return false, err
	}
	return v, nil
}

// SetBool writes a boolean flag
func (s *Store) SetBool(key string, v bool) error {
	return s.Save(key, v)
}
