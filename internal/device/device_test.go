package device

import (
	"errors"
	"fmt"
	"sort"
	"testing"
)

func TestMakeAndSplitID(t *testing.T) {
	id := MakeID(Input, "AppleUSBAudioEngine:Focusrite:1")
	if id != "input:AppleUSBAudioEngine:Focusrite:1" {
		t.Errorf("Expected qualified id, got %s", id)
	}

	dir, uid, ok := SplitID(id)
	if !ok {
		t.Fatal("SplitID failed on a valid id")
	}
	if dir != Input {
		t.Errorf("Expected input direction, got %s", dir)
	}
	if uid != "AppleUSBAudioEngine:Focusrite:1" {
		t.Errorf("Expected uid to keep its colons, got %s", uid)
	}

	if _, _, ok := SplitID("speaker:abc"); ok {
		t.Error("Expected SplitID to reject an unknown direction")
	}
}

func TestSortOrder(t *testing.T) {
	tests := []struct {
		name     string
		devices  []AudioDevice
		expected []string
	}{
		{
			name: "starred first",
			devices: []AudioDevice{
				{ID: "a", Name: "A"},
				{ID: "b", Name: "B", IsStarred: true},
			},
			expected: []string{"b", "a"},
		},
		{
			name: "by name when neither starred",
			devices: []AudioDevice{
				{ID: "z", Name: "Zeta"},
				{ID: "a", Name: "Alpha"},
			},
			expected: []string{"a", "z"},
		},
		{
			name: "equal names keep input order",
			devices: []AudioDevice{
				{ID: "2", Name: "Headset"},
				{ID: "1", Name: "Headset"},
			},
			expected: []string{"2", "1"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sort.SliceStable(tt.devices, func(i, j int) bool {
				return Less(tt.devices[i], tt.devices[j])
			})
			for i, id := range tt.expected {
				if tt.devices[i].ID != id {
					t.Errorf("Position %d: expected %s, got %s", i, id, tt.devices[i].ID)
				}
			}
		})
	}
}

func TestSticky(t *testing.T) {
	for _, tr := range []Transport{Bluetooth, AirPlay} {
		if !tr.Sticky() {
			t.Errorf("Expected %s to be sticky", tr)
		}
	}
	for _, tr := range []Transport{BuiltIn, USB, Virtual, HDMI, Unknown} {
		if tr.Sticky() {
			t.Errorf("Expected %s not to be sticky", tr)
		}
	}
}

func TestHistory(t *testing.T) {
	var h History

	h.Push("a")
	h.Push("b")
	h.Push("a")
	h.Push("c")

	entries := h.Entries()
	if len(entries) != HistoryLimit {
		t.Fatalf("Expected %d entries, got %d", HistoryLimit, len(entries))
	}
	if entries[0] != "c" || entries[1] != "a" {
		t.Errorf("Expected [c a], got %v", entries)
	}

	h.Push("c")
	if got := h.Entries(); got[0] != "c" || got[1] != "a" {
		t.Errorf("Pushing the head should be a no-op, got %v", got)
	}
}

func TestHistoryOther(t *testing.T) {
	var h History
	h.Push("a")
	if _, ok := h.Other("a"); ok {
		t.Error("Expected no toggle target with a single entry")
	}

	h.Push("b")
	tests := []struct {
		current  string
		expected string
	}{
		{"b", "a"},
		{"a", "b"},
		{"x", "b"},
	}
	for _, tt := range tests {
		got, ok := h.Other(tt.current)
		if !ok || got != tt.expected {
			t.Errorf("Other(%s): expected %s, got %s (ok=%v)", tt.current, tt.expected, got, ok)
		}
	}
}

func TestErrorTaxonomy(t *testing.T) {
	enumErr := fmt.Errorf("reconcile: %w", &EnumerationError{Op: "device list", Err: errors.New("status -50")})
	if !errors.Is(enumErr, ErrEnumeration) {
		t.Error("Expected wrapped EnumerationError to match ErrEnumeration")
	}

	notFound := &SwitchError{Kind: DeviceNotFound, ID: "output:x"}
	if !errors.Is(notFound, ErrDeviceNotFound) || errors.Is(notFound, ErrHostRejected) {
		t.Error("DeviceNotFound kind matched the wrong sentinel")
	}

	rejected := &SwitchError{Kind: HostRejected, ID: "output:x", Status: -50, Err: errors.New("boom")}
	if !errors.Is(rejected, ErrHostRejected) {
		t.Error("Expected HostRejected kind to match ErrHostRejected")
	}

	var se *SwitchError
	if !errors.As(fmt.Errorf("api: %w", rejected), &se) || se.Status != -50 {
		t.Error("Expected errors.As to recover the status")
	}

	timeout := &ReconnectError{ID: "output:bt", Name: "AirPods", Attempts: 15}
	if !errors.Is(timeout, ErrReconnectTimeout) {
		t.Error("Expected ReconnectError to match ErrReconnectTimeout")
	}
}
