package store

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yok-tottii/audioswitch/internal/device"
)

func TestFileStoreRoundTrip(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(filepath.Join(dir, "nested", "store"))
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	if _, ok, err := fs.Get("missing"); err != nil || ok {
		t.Errorf("Expected missing key to report ok=false err=nil, got ok=%v err=%v", ok, err)
	}

	if err := fs.Set("greeting", []byte("hello")); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if err := fs.Set("greeting", []byte("world")); err != nil {
		t.Fatalf("second Set failed: %v", err)
	}

	data, ok, err := fs.Get("greeting")
	if err != nil || !ok {
		t.Fatalf("Get failed: ok=%v err=%v", ok, err)
	}
	if string(data) != "world" {
		t.Errorf("Expected last write to win, got %q", data)
	}

	entries, err := os.ReadDir(fs.Dir())
	if err != nil {
		t.Fatalf("ReadDir failed: %v", err)
	}
	if len(entries) != 1 {
		t.Errorf("Expected temp files to be cleaned up, found %d entries", len(entries))
	}
}

func TestFileStoreRejectsBadKeys(t *testing.T) {
	fs, err := NewFileStore(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}

	for _, key := range []string{"", "../escape", "a/b", ".hidden"} {
		if err := fs.Set(key, []byte("x")); err == nil {
			t.Errorf("Expected Set(%q) to fail", key)
		}
	}
}

func TestCatalogPersistence(t *testing.T) {
	dir := t.TempDir()
	fs, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	s := New(fs)

	catalog := []device.AudioDevice{
		{
			ID:        device.MakeID(device.Output, "BT-1"),
			UID:       "BT-1",
			Name:      "AirPods",
			Direction: device.Output,
			Transport: device.Bluetooth,
			IsStarred: true,
			Shortcut:  "⌘⌥A",
		},
		{
			ID:        device.MakeID(device.Input, "USB-1"),
			UID:       "USB-1",
			Name:      "Yeti",
			Direction: device.Input,
			Transport: device.USB,
			IsHidden:  true,
		},
	}
	if err := s.SaveCatalog(catalog); err != nil {
		t.Fatalf("SaveCatalog failed: %v", err)
	}

	// A fresh store over the same directory simulates a restart.
	fs2, err := NewFileStore(dir)
	if err != nil {
		t.Fatalf("NewFileStore failed: %v", err)
	}
	loaded, err := New(fs2).LoadCatalog()
	if err != nil {
		t.Fatalf("LoadCatalog failed: %v", err)
	}
	if len(loaded) != 2 {
		t.Fatalf("Expected 2 devices, got %d", len(loaded))
	}
	if loaded[0] != catalog[0] || loaded[1] != catalog[1] {
		t.Errorf("Catalog changed across reload:\n got %+v\nwant %+v", loaded, catalog)
	}
}

func TestEmptyDefaults(t *testing.T) {
	s := New(NewMemory())

	catalog, err := s.LoadCatalog()
	if err != nil || len(catalog) != 0 {
		t.Errorf("Expected empty catalog, got %v (err=%v)", catalog, err)
	}

	shortcuts, err := s.LoadShortcuts()
	if err != nil || shortcuts == nil || len(shortcuts) != 0 {
		t.Errorf("Expected empty non-nil shortcut map, got %v (err=%v)", shortcuts, err)
	}

	flag, err := s.Bool(KeyCrashFlag)
	if err != nil || flag {
		t.Errorf("Expected crash flag to default to false, got %v (err=%v)", flag, err)
	}
}

func TestSetsAndFlags(t *testing.T) {
	s := New(NewMemory())

	if err := s.SaveSet(KeyStarred, map[string]bool{"b": true, "a": true, "c": false}); err != nil {
		t.Fatalf("SaveSet failed: %v", err)
	}
	set, err := s.LoadSet(KeyStarred)
	if err != nil {
		t.Fatalf("LoadSet failed: %v", err)
	}
	if len(set) != 2 || !set["a"] || !set["b"] || set["c"] {
		t.Errorf("Unexpected set contents: %v", set)
	}

	if err := s.SetBool(KeyCrashFlag, true); err != nil {
		t.Fatalf("SetBool failed: %v", err)
	}
	if v, _ := s.Bool(KeyCrashFlag); !v {
		t.Error("Expected crash flag to read back true")
	}
}

func TestLoadCorruptValue(t *testing.T) {
	mem := NewMemory()
	mem.Set(KeyCatalog, []byte("{not json"))

	if _, err := New(mem).LoadCatalog(); err == nil {
		t.Error("Expected an error decoding a corrupt catalog")
	}
}
