package tray

import (
	"testing"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/i18n"
)

func sampleEvent() events.DevicesChanged {
	return events.DevicesChanged{
		Devices: []device.AudioDevice{
			{ID: "output:airpods", Name: "AirPods", Direction: device.Output, IsStarred: true, IsOnline: false},
			{ID: "output:builtin", Name: "MacBook Pro Speakers", Direction: device.Output, IsOnline: true, Shortcut: "⌥⌘1"},
			{ID: "output:tv", Name: "TV", Direction: device.Output, IsOnline: true, IsHidden: true},
			{ID: "input:builtin", Name: "MacBook Pro Microphone", Direction: device.Input, IsOnline: true},
		},
		ActiveOutput: "output:builtin",
		ActiveInput:  "input:builtin",
	}
}

func TestBuildMenu(t *testing.T) {
	tr := i18n.NewDefault(i18n.LanguageEnglish)

	out := BuildMenu(sampleEvent(), device.Output, tr)
	if len(out) != 2 {
		t.Fatalf("Expected 2 output entries (hidden skipped), got %d: %+v", len(out), out)
	}

	tests := []struct {
		entry   Entry
		label   string
		checked bool
	}{
		{out[0], "☆ AirPods (offline)", false},
		{out[1], "✓ MacBook Pro Speakers  ⌥⌘1", true},
	}
	for _, tt := range tests {
		if tt.entry.Label != tt.label {
			t.Errorf("Expected label %q, got %q", tt.label, tt.entry.Label)
		}
		if tt.entry.Checked != tt.checked {
			t.Errorf("%s: expected checked=%v", tt.label, tt.checked)
		}
	}

	in := BuildMenu(sampleEvent(), device.Input, tr)
	if len(in) != 1 || in[0].ID != "input:builtin" || !in[0].Checked {
		t.Errorf("Unexpected input entries: %+v", in)
	}
}

func TestBuildMenuEmpty(t *testing.T) {
	tr := i18n.NewDefault(i18n.LanguageJapanese)

	entries := BuildMenu(events.DevicesChanged{}, device.Input, tr)
	if len(entries) != 1 {
		t.Fatalf("Expected a placeholder entry, got %+v", entries)
	}
	if !entries[0].Disabled || entries[0].ID != "" {
		t.Errorf("Placeholder should be disabled without id: %+v", entries[0])
	}
	if entries[0].Label != "デバイスがありません" {
		t.Errorf("Unexpected placeholder label %q", entries[0].Label)
	}
}

func TestNewManager(t *testing.T) {
	var switched string
	resetCalled := false

	manager := NewManager(Config{
		OnSwitch: func(id string) { switched = id },
		OnReset:  func() { resetCalled = true },
	})
	if manager == nil {
		t.Fatal("Expected manager to be created")
	}
	if manager.state != StateNormal {
		t.Errorf("Expected initial state StateNormal, got %v", manager.state)
	}
	if len(manager.iconNormal) == 0 || len(manager.iconSilent) == 0 {
		t.Error("Expected fallback icons to be loaded")
	}

	manager.onSwitch("output:builtin")
	manager.onReset()
	if switched != "output:builtin" || !resetCalled {
		t.Error("Expected callbacks to be wired")
	}
}

func TestUpdateBeforeReady(t *testing.T) {
	manager := NewManager(Config{})

	// Neither call may touch systray before it is running
	manager.Update(sampleEvent())
	manager.SetState(StateSilent)

	if manager.last == nil || manager.last.ActiveOutput != "output:builtin" {
		t.Error("Expected the event to be kept until ready")
	}
	if manager.state != StateSilent {
		t.Errorf("Expected StateSilent, got %v", manager.state)
	}
}
