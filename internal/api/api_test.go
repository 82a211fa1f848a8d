package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/yok-tottii/audioswitch/internal/config"
	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/devices"
	"github.com/yok-tottii/audioswitch/internal/host/hosttest"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
	"github.com/yok-tottii/audioswitch/internal/silentmode"
	"github.com/yok-tottii/audioswitch/internal/store"
)

const (
	speakers = "output:builtin-out"
	dac      = "output:usb-dac"
	mic      = "input:builtin-in"
)

type testEnv struct {
	audio      *hosttest.Audio
	devices    *devices.Manager
	silent     *silentmode.Mode
	config     *config.Config
	configPath string
	changed    []*config.Config
	mux        *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	audio := hosttest.NewAudio(
		hosttest.Output(1, "builtin-out", "MacBook Pro Speakers", device.BuiltIn),
		hosttest.Output(2, "usb-dac", "USB DAC", device.USB),
		hosttest.Input(3, "builtin-in", "MacBook Pro Microphone", device.BuiltIn),
	)
	audio.SetDefault(device.Output, 1)
	audio.SetDefault(device.Input, 3)

	sched := mainloop.NewManual()
	st := store.New(store.NewMemory())
	m, err := devices.New(devices.Deps{
		Audio:     audio,
		Store:     st,
		Scheduler: sched,
		Logger:    logger.Discard(),
	}, devices.DefaultConfig())
	if err != nil {
		t.Fatalf("devices.New failed: %v", err)
	}
	if _, err := m.Reconcile(); err != nil {
		t.Fatalf("Reconcile failed: %v", err)
	}

	silent, err := silentmode.New(st, sched, nil, m, nil)
	if err != nil {
		t.Fatalf("silentmode.New failed: %v", err)
	}

	env := &testEnv{
		audio:      audio,
		devices:    m,
		silent:     silent,
		config:     config.DefaultConfig(),
		configPath: filepath.Join(t.TempDir(), "config.json"),
		mux:        http.NewServeMux(),
	}
	New(Deps{
		Loop:            sched,
		Devices:         m,
		Silent:          silent,
		Config:          env.config,
		ConfigPath:      env.configPath,
		OnConfigChanged: func(c *config.Config) { env.changed = append(env.changed, c) },
	}).RegisterRoutes(env.mux)
	return env
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	rec := httptest.NewRecorder()
	e.mux.ServeHTTP(rec, req)

	var resp map[string]interface{}
	if rec.Body.Len() > 0 && rec.Header().Get("Content-Type") == "application/json" {
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("Invalid JSON response %q: %v", rec.Body.String(), err)
		}
	}
	return rec, resp
}

func TestGetDevices(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/devices", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if resp["activeOutput"] != speakers || resp["activeInput"] != mic {
		t.Errorf("Unexpected active ids: %v / %v", resp["activeOutput"], resp["activeInput"])
	}
	if list, ok := resp["devices"].([]interface{}); !ok || len(list) != 3 {
		t.Errorf("Expected 3 devices, got %v", resp["devices"])
	}
	if resp["suspended"] != false {
		t.Errorf("Expected suspended=false, got %v", resp["suspended"])
	}

	rec, _ = env.do(t, http.MethodPost, "/api/devices", nil)
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("Expected 405, got %d", rec.Code)
	}
}

func TestSwitchAndToggle(t *testing.T) {
	env := newTestEnv(t)

	rec, _ := env.do(t, http.MethodPost, "/api/devices/switch", map[string]string{"id": dac})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if got := env.devices.Active(device.Output); got != dac {
		t.Errorf("Expected active %s, got %s", dac, got)
	}

	rec, resp := env.do(t, http.MethodPost, "/api/toggle", map[string]string{"direction": "output"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["active"] != speakers {
		t.Errorf("Expected toggle back to %s, got %v", speakers, resp["active"])
	}

	rec, _ = env.do(t, http.MethodPost, "/api/toggle", map[string]string{"direction": "sideways"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for a bad direction, got %d", rec.Code)
	}
}

func TestSwitchErrors(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name   string
		body   interface{}
		setup  func()
		status int
	}{
		{"unknown device", map[string]string{"id": "output:nope"}, nil, http.StatusNotFound},
		{"missing id", map[string]string{}, nil, http.StatusBadRequest},
		{"host rejects", map[string]string{"id": dac}, func() { env.audio.Reject(2, 42) }, http.StatusBadGateway},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			rec, resp := env.do(t, http.MethodPost, "/api/devices/switch", tt.body)
			if rec.Code != tt.status {
				t.Errorf("Expected %d, got %d", tt.status, rec.Code)
			}
			if resp["error"] == nil {
				t.Error("Expected an error message")
			}
		})
	}
}

func TestStarHideUnhide(t *testing.T) {
	env := newTestEnv(t)

	_, resp := env.do(t, http.MethodPost, "/api/devices/star", map[string]string{"id": dac})
	if resp["starred"] != true {
		t.Errorf("Expected starred=true, got %v", resp["starred"])
	}

	// Starred devices sort first
	_, resp = env.do(t, http.MethodGet, "/api/devices", nil)
	first := resp["devices"].([]interface{})[0].(map[string]interface{})
	if first["id"] != dac {
		t.Errorf("Expected %s first, got %v", dac, first["id"])
	}

	if rec, _ := env.do(t, http.MethodPost, "/api/devices/hide", map[string]string{"id": dac}); rec.Code != http.StatusOK {
		t.Fatalf("Hide failed with %d", rec.Code)
	}
	_, resp = env.do(t, http.MethodGet, "/api/devices/hidden", nil)
	hidden := resp["devices"].([]interface{})
	if len(hidden) != 1 || hidden[0].(map[string]interface{})["id"] != dac {
		t.Errorf("Expected %s hidden, got %v", dac, hidden)
	}

	if rec, _ := env.do(t, http.MethodPost, "/api/devices/unhide", map[string]string{"id": dac}); rec.Code != http.StatusOK {
		t.Fatalf("Unhide failed with %d", rec.Code)
	}
	_, resp = env.do(t, http.MethodGet, "/api/devices/hidden", nil)
	if len(resp["devices"].([]interface{})) != 0 {
		t.Errorf("Expected no hidden devices, got %v", resp["devices"])
	}
}

func TestShortcutEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPut, "/api/devices/shortcut", map[string]string{"id": dac, "shortcut": "⌘⇧3"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["shortcut"] != "⇧⌘3" {
		t.Errorf("Expected canonical ⇧⌘3, got %v", resp["shortcut"])
	}
	if !reflect.DeepEqual(resp["conflicts"], []interface{}{"Screenshot"}) {
		t.Errorf("Expected Screenshot conflict, got %v", resp["conflicts"])
	}

	rec, _ = env.do(t, http.MethodPut, "/api/devices/shortcut", map[string]string{"id": dac, "shortcut": "⌘"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an unparsable shortcut, got %d", rec.Code)
	}

	rec, _ = env.do(t, http.MethodDelete, "/api/devices/shortcut", map[string]string{"id": dac})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	for _, d := range env.devices.Catalog() {
		if d.ID == dac && d.Shortcut != "" {
			t.Errorf("Expected shortcut cleared, got %q", d.Shortcut)
		}
	}
}

func TestAddBluetooth(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/devices/bluetooth", map[string]string{"name": "AirPods", "uid": "AA-BB-CC-DD-EE-FF"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["id"] != "output:AA-BB-CC-DD-EE-FF" || resp["transportType"] != "bluetooth" {
		t.Errorf("Unexpected device: %v", resp)
	}

	rec, _ = env.do(t, http.MethodPost, "/api/devices/bluetooth", map[string]string{"name": "NoUID"})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 without uid, got %d", rec.Code)
	}
}

func TestReset(t *testing.T) {
	env := newTestEnv(t)
	env.audio.SetDefault(device.Output, 2)

	rec, resp := env.do(t, http.MethodPost, "/api/reset", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if resp["activeOutput"] != speakers {
		t.Errorf("Expected reset to %s, got %v", speakers, resp["activeOutput"])
	}
}

func TestSilentModeEndpoints(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodPost, "/api/silent-mode/apps", map[string]string{"id": "zoom.us", "name": "Zoom"})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	apps := resp["apps"].([]interface{})
	if len(apps) != 1 || apps[0].(map[string]interface{})["isEnabled"] != true {
		t.Errorf("Expected one enabled app, got %v", apps)
	}

	env.silent.Observe("zoom.us")
	_, resp = env.do(t, http.MethodGet, "/api/silent-mode", nil)
	if resp["active"] != true || resp["app"] != "Zoom" {
		t.Errorf("Expected silent mode active for Zoom, got %v", resp)
	}
	if !env.devices.Suspended() {
		t.Error("Expected shortcuts suspended")
	}

	_, resp = env.do(t, http.MethodPost, "/api/silent-mode/toggle", map[string]string{"id": "zoom.us"})
	if resp["enabled"] != false {
		t.Errorf("Expected enabled=false, got %v", resp["enabled"])
	}
	if env.devices.Suspended() {
		t.Error("Expected shortcuts restored")
	}

	rec, _ = env.do(t, http.MethodPut, "/api/silent-mode", map[string]interface{}{
		"apps": []map[string]interface{}{{"id": "Keynote", "isEnabled": true}},
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if apps := env.silent.Apps(); len(apps) != 1 || apps[0].ID != "Keynote" {
		t.Errorf("Expected list replaced, got %+v", apps)
	}

	rec, _ = env.do(t, http.MethodDelete, "/api/silent-mode/apps", map[string]string{"id": "zoom.us"})
	if rec.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for a removed app, got %d", rec.Code)
	}
}

func TestSettings(t *testing.T) {
	env := newTestEnv(t)

	rec, resp := env.do(t, http.MethodGet, "/api/settings", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", rec.Code)
	}
	if resp["reconnect_attempts"] != float64(15) {
		t.Errorf("Expected reconnect_attempts 15, got %v", resp["reconnect_attempts"])
	}

	rec, _ = env.do(t, http.MethodPut, "/api/settings", map[string]interface{}{
		"toggle_input_shortcut": "⌘⌥I",
		"reconnect_attempts":    5,
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	if len(env.changed) != 1 || env.changed[0].ToggleInputShortcut != "⌥⌘I" {
		t.Errorf("Expected one change callback with canonical shortcut, got %+v", env.changed)
	}

	saved, err := config.Load(env.configPath)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if saved.ReconnectAttempts != 5 {
		t.Errorf("Expected saved reconnect_attempts 5, got %d", saved.ReconnectAttempts)
	}

	rec, _ = env.do(t, http.MethodPut, "/api/settings", map[string]interface{}{"api_port": 80})
	if rec.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for an invalid port, got %d", rec.Code)
	}
	if len(env.changed) != 1 {
		t.Error("Rejected update must not notify")
	}
}

func TestHotkeyValidate(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		shortcut  string
		valid     bool
		canonical string
		conflicts []interface{}
	}{
		{"⌘Space", true, "⌘Space", []interface{}{"Spotlight"}},
		{"⌥⌘A", true, "⌥⌘A", []interface{}{}},
		{"⌥⌘?", false, "", nil},
	}

	for _, tt := range tests {
		t.Run(tt.shortcut, func(t *testing.T) {
			_, resp := env.do(t, http.MethodPost, "/api/hotkey/validate", map[string]string{"shortcut": tt.shortcut})
			if resp["valid"] != tt.valid {
				t.Fatalf("Expected valid=%v, got %v", tt.valid, resp)
			}
			if !tt.valid {
				return
			}
			if resp["shortcut"] != tt.canonical {
				t.Errorf("Expected %q, got %v", tt.canonical, resp["shortcut"])
			}
			if !reflect.DeepEqual(resp["conflicts"], tt.conflicts) {
				t.Errorf("Expected conflicts %v, got %v", tt.conflicts, resp["conflicts"])
			}
		})
	}
}
