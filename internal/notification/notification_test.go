package notification

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/i18n"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

type recorder struct {
	mu    sync.Mutex
	calls [][]string
	err   error
}

func (r *recorder) run(name string, args ...string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, append([]string{name}, args...))
	return r.err
}

func (r *recorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func TestNewNotificationManager(t *testing.T) {
	nm := NewNotificationManager("TestApp")

	if nm == nil {
		t.Fatal("Expected notification manager to be created")
	}

	if nm.appName != "TestApp" {
		t.Errorf("Expected appName to be TestApp, got %s", nm.appName)
	}
}

func TestEscapeAppleScript(t *testing.T) {
	tests := []struct {
		in       string
		expected string
	}{
		{`plain`, `plain`},
		{`say "hi"`, `say \"hi\"`},
		{`back\slash`, `back\\slash`},
		{"two\nlines", "two lines"},
	}

	for _, tt := range tests {
		if got := escapeAppleScript(tt.in); got != tt.expected {
			t.Errorf("escapeAppleScript(%q) = %q, want %q", tt.in, got, tt.expected)
		}
	}
}

func TestSendRunsOsascript(t *testing.T) {
	rec := &recorder{}
	nm := NewWithRunner("AudioSwitch", rec.run)

	if err := nm.SendInfo(`"AirPods"`, "Connected"); err != nil {
		t.Fatalf("SendInfo failed: %v", err)
	}

	want := `display notification "Connected" with title "\"AirPods\"" subtitle "AudioSwitch"`
	if len(rec.calls) != 1 || rec.calls[0][0] != "osascript" || rec.calls[0][2] != want {
		t.Errorf("Unexpected command %v", rec.calls)
	}
}

func TestSendWithoutTitleUsesAppName(t *testing.T) {
	nm := NewWithRunner("AudioSwitch", (&recorder{}).run)
	script := nm.Script(&Notification{Message: "hello"})
	if script != `display notification "hello" with title "AudioSwitch"` {
		t.Errorf("Unexpected script %s", script)
	}
}

func TestSendErrors(t *testing.T) {
	nm := NewWithRunner("AudioSwitch", (&recorder{err: errors.New("exit status 1")}).run)

	if err := nm.SendWarning("t", "m"); err == nil {
		t.Error("Expected runner failure to be returned")
	}
	if err := nm.Send(nil); err == nil {
		t.Error("Expected nil notification to fail")
	}
}

func TestRender(t *testing.T) {
	n := NewNotifier(NewWithRunner("AudioSwitch", (&recorder{}).run),
		i18n.NewDefault(i18n.LanguageEnglish), logger.Discard())

	tests := []struct {
		name    string
		notice  events.Notice
		title   string
		message string
		typ     NotificationType
	}{
		{
			"translated",
			events.Notice{Key: "reconnect.timeout", Title: "AirPods", Message: "ignored", Level: events.LevelWarning},
			"Could not connect AirPods", "Connect AirPods manually, then try again.", TypeWarning,
		},
		{
			"unknown key falls back",
			events.Notice{Key: "custom", Title: "Title", Message: "Body", Level: events.LevelError},
			"Title", "Body", TypeError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := n.Render(tt.notice)
			if got.Title != tt.title || got.Message != tt.message || got.Type != tt.typ {
				t.Errorf("Expected %q / %q / %s, got %+v", tt.title, tt.message, tt.typ, got)
			}
		})
	}
}

func TestRunForwardsNotices(t *testing.T) {
	rec := &recorder{}
	n := NewNotifier(NewWithRunner("AudioSwitch", rec.run),
		i18n.NewDefault(i18n.LanguageEnglish), logger.Discard())
	bus := events.NewBus()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		n.Run(ctx, bus)
		close(done)
	}()

	// Wait for the subscription before publishing
	deadline := time.Now().Add(2 * time.Second)
	for rec.count() == 0 && time.Now().Before(deadline) {
		bus.Publish(events.DevicesChanged{})
		bus.Publish(events.Notice{Key: "crash.recovered"})
		time.Sleep(10 * time.Millisecond)
	}

	cancel()
	<-done

	if rec.count() == 0 {
		t.Fatal("Expected at least one notification")
	}
}
