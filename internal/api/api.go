// Package api implements the local JSON control API. Every handler hops onto
// the main loop before touching engine state.
package api

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/bytedance/sonic"

	"github.com/yok-tottii/audioswitch/internal/config"
	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/devices"
	"github.com/yok-tottii/audioswitch/internal/hotkey"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
	"github.com/yok-tottii/audioswitch/internal/silentmode"
)

const maxBodySize = 64 << 10

// Caller runs fn on the main loop and waits for it
type Caller interface {
	Call(fn func() error) error
}

// Deps are the collaborators of a Handler
type Deps struct {
	Loop       Caller
	Devices    *devices.Manager
	Silent     *silentmode.Mode // optional
	Config     *config.Config
	ConfigPath string
	// OnConfigChanged receives a copy after a successful PUT /api/settings
	OnConfigChanged func(*config.Config)
	Logger          *logger.Logger
}

// Handler manages API endpoints
type Handler struct {
	loop            Caller
	devices         *devices.Manager
	silent          *silentmode.Mode
	config          *config.Config
	configPath      string
	onConfigChanged func(*config.Config)
	log             *logger.Logger
}

// New creates a new API handler
func New(deps Deps) *Handler {
	if deps.Logger == nil {
		deps.Logger = logger.Discard()
	}
	if deps.ConfigPath == "" {
		deps.ConfigPath = config.GetConfigPath()
	}
	return &Handler{
		loop:            deps.Loop,
		devices:         deps.Devices,
		silent:          deps.Silent,
		config:          deps.Config,
		configPath:      deps.ConfigPath,
		onConfigChanged: deps.OnConfigChanged,
		log:             deps.Logger.With("component", "api"),
	}
}

// RegisterRoutes registers all API routes on the given mux
func (h *Handler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/api/devices", h.handleDevices)
	mux.HandleFunc("/api/devices/hidden", h.handleHiddenDevices)
	mux.HandleFunc("/api/devices/switch", h.handleSwitch)
	mux.HandleFunc("/api/devices/star", h.handleStar)
	mux.HandleFunc("/api/devices/hide", h.handleHide)
	mux.HandleFunc("/api/devices/unhide", h.handleUnhide)
	mux.HandleFunc("/api/devices/shortcut", h.handleShortcut)
	mux.HandleFunc("/api/devices/bluetooth", h.handleAddBluetooth)
	mux.HandleFunc("/api/toggle", h.handleToggle)
	mux.HandleFunc("/api/reset", h.handleReset)
	mux.HandleFunc("/api/silent-mode", h.handleSilentMode)
	mux.HandleFunc("/api/silent-mode/apps", h.handleSilentApps)
	mux.HandleFunc("/api/silent-mode/toggle", h.handleSilentToggle)
	mux.HandleFunc("/api/settings", h.handleSettings)
	mux.HandleFunc("/api/hotkey/validate", h.handleHotkeyValidate)
}

type idRequest struct {
	ID string `json:"id"`
}

type shortcutRequest struct {
	ID       string `json:"id"`
	Shortcut string `json:"shortcut"`
}

type toggleRequest struct {
	Direction device.Direction `json:"direction"`
}

type bluetoothRequest struct {
	Name string `json:"name"`
	UID  string `json:"uid"`
}

type devicesResponse struct {
	devices.Snapshot
	Suspended bool `json:"suspended"`
}

type silentModeResponse struct {
	Active    bool             `json:"active"`
	App       string           `json:"app,omitempty"`
	Frontmost string           `json:"frontmost,omitempty"`
	Apps      []silentmode.App `json:"apps"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	data, err := sonic.Marshal(v)
	if err != nil {
		http.Error(w, "failed to encode response", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	w.Write(data)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func decode(r *http.Request, v interface{}) error {
	data, err := io.ReadAll(io.LimitReader(r.Body, maxBodySize))
	if err != nil {
		return err
	}
	return sonic.Unmarshal(data, v)
}

// statusFor maps engine errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, device.ErrDeviceNotFound), errors.Is(err, silentmode.ErrAppNotFound):
		return http.StatusNotFound
	case errors.Is(err, hotkey.ErrParseFailed):
		return http.StatusBadRequest
	case errors.Is(err, device.ErrHostRejected), errors.Is(err, device.ErrEnumeration):
		return http.StatusBadGateway
	case errors.Is(err, mainloop.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", "op", op, "err", err)
	}
	writeError(w, status, err.Error())
}

// handleDevices handles GET /api/devices
func (h *Handler) handleDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var resp devicesResponse
	err := h.loop.Call(func() error {
		resp = devicesResponse{Snapshot: h.devices.Snapshot(), Suspended: h.devices.Suspended()}
		return nil
	})
	if err != nil {
		h.fail(w, "devices", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// snapshot reads the state in a separate loop turn, so a refresh queued by
// a preceding call has already run
func (h *Handler) snapshot() (devices.Snapshot, error) {
	var snap devices.Snapshot
	err := h.loop.Call(func() error {
		snap = h.devices.Snapshot()
		return nil
	})
	return snap, err
}

// handleHiddenDevices handles GET /api/devices/hidden
func (h *Handler) handleHiddenDevices(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var hidden []device.AudioDevice
	if err := h.loop.Call(func() error {
		hidden = h.devices.HiddenDevices()
		return nil
	}); err != nil {
		h.fail(w, "hidden devices", err)
		return
	}
	if hidden == nil {
		hidden = []device.AudioDevice{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"devices": hidden})
}

// idAction decodes {id} from a POST and runs fn on the loop
func (h *Handler) idAction(w http.ResponseWriter, r *http.Request, op string, fn func(id string) (interface{}, error)) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req idRequest
	if err := decode(r, &req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var result interface{}
	err := h.loop.Call(func() error {
		var err error
		result, err = fn(req.ID)
		return err
	})
	if err != nil {
		h.fail(w, op, err)
		return
	}
	if result == nil {
		result = map[string]string{"status": "success"}
	}
	writeJSON(w, http.StatusOK, result)
}

// handleSwitch handles POST /api/devices/switch
func (h *Handler) handleSwitch(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "switch", func(id string) (interface{}, error) {
		return nil, h.devices.SwitchTo(id)
	})
}

// handleStar handles POST /api/devices/star
func (h *Handler) handleStar(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "star", func(id string) (interface{}, error) {
		starred, err := h.devices.ToggleStar(id)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"starred": starred}, nil
	})
}

// handleHide handles POST /api/devices/hide
func (h *Handler) handleHide(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "hide", func(id string) (interface{}, error) {
		return nil, h.devices.HideDevice(id)
	})
}

// handleUnhide handles POST /api/devices/unhide
func (h *Handler) handleUnhide(w http.ResponseWriter, r *http.Request) {
	h.idAction(w, r, "unhide", func(id string) (interface{}, error) {
		return nil, h.devices.UnhideDevice(id)
	})
}

// handleShortcut handles PUT and DELETE /api/devices/shortcut
func (h *Handler) handleShortcut(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPut:
		h.putShortcut(w, r)
	case http.MethodDelete:
		var req idRequest
		if err := decode(r, &req); err != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.loop.Call(func() error { return h.devices.ClearShortcut(req.ID) }); err != nil {
			h.fail(w, "clear shortcut", err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

func (h *Handler) putShortcut(w http.ResponseWriter, r *http.Request) {
	var req shortcutRequest
	if err := decode(r, &req); err != nil || req.ID == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var canonical string
	err := h.loop.Call(func() error {
		var err error
		canonical, err = h.devices.SetShortcut(req.ID, req.Shortcut)
		return err
	})
	if err != nil {
		h.fail(w, "set shortcut", err)
		return
	}

	conflicts, _ := hotkey.CheckTrigger(canonical)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"shortcut":  canonical,
		"conflicts": conflictNames(conflicts),
	})
}

// handleAddBluetooth handles POST /api/devices/bluetooth
func (h *Handler) handleAddBluetooth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req bluetoothRequest
	if err := decode(r, &req); err != nil || req.Name == "" {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	var added device.AudioDevice
	err := h.loop.Call(func() error {
		var err error
		added, err = h.devices.AddBluetoothDevice(req.Name, req.UID)
		return err
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, added)
}

// handleToggle handles POST /api/toggle
func (h *Handler) handleToggle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req toggleRequest
	if err := decode(r, &req); err != nil || !req.Direction.Valid() {
		writeError(w, http.StatusBadRequest, "direction must be output or input")
		return
	}

	if err := h.loop.Call(func() error { return h.devices.ToggleLastTwo(req.Direction) }); err != nil {
		h.fail(w, "toggle", err)
		return
	}

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, "toggle", err)
		return
	}
	active := snap.ActiveOutput
	if req.Direction == device.Input {
		active = snap.ActiveInput
	}
	writeJSON(w, http.StatusOK, map[string]string{"active": active})
}

// handleReset handles POST /api/reset
func (h *Handler) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	if err := h.loop.Call(h.devices.ResetToDefaults); err != nil {
		h.fail(w, "reset", err)
		return
	}

	snap, err := h.snapshot()
	if err != nil {
		h.fail(w, "reset", err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}

func (h *Handler) silentState() silentModeResponse {
	active, app := h.silent.Active()
	return silentModeResponse{
		Active:    active,
		App:       app,
		Frontmost: h.silent.Frontmost(),
		Apps:      h.silent.Apps(),
	}
}

// handleSilentMode handles GET and PUT /api/silent-mode
func (h *Handler) handleSilentMode(w http.ResponseWriter, r *http.Request) {
	if h.silent == nil {
		writeError(w, http.StatusServiceUnavailable, "silent mode is not available")
		return
	}

	switch r.Method {
	case http.MethodGet:
	case http.MethodPut:
		var req struct {
			Apps []silentmode.App `json:"apps"`
		}
		if err := decode(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		if err := h.loop.Call(func() error { return h.silent.SetApps(req.Apps) }); err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var resp silentModeResponse
	if err := h.loop.Call(func() error {
		resp = h.silentState()
		return nil
	}); err != nil {
		h.fail(w, "silent mode", err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

// handleSilentApps handles POST and DELETE /api/silent-mode/apps
func (h *Handler) handleSilentApps(w http.ResponseWriter, r *http.Request) {
	if h.silent == nil {
		writeError(w, http.StatusServiceUnavailable, "silent mode is not available")
		return
	}

	var err error
	switch r.Method {
	case http.MethodPost:
		var app silentmode.App
		if decode(r, &app) != nil || app.ID == "" {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		// 追加した時点で有効
		app.Enabled = true
		err = h.loop.Call(func() error {
			_, err := h.silent.Add(app)
			return err
		})
	case http.MethodDelete:
		var req idRequest
		if decode(r, &req) != nil || req.ID == "" {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
		err = h.loop.Call(func() error { return h.silent.Remove(req.ID) })
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}
	if err != nil {
		h.fail(w, "silent mode apps", err)
		return
	}

	var resp silentModeResponse
	h.loop.Call(func() error {
		resp = h.silentState()
		return nil
	})
	writeJSON(w, http.StatusOK, resp)
}

// handleSilentToggle handles POST /api/silent-mode/toggle
func (h *Handler) handleSilentToggle(w http.ResponseWriter, r *http.Request) {
	if h.silent == nil {
		writeError(w, http.StatusServiceUnavailable, "silent mode is not available")
		return
	}
	h.idAction(w, r, "silent toggle", func(id string) (interface{}, error) {
		enabled, err := h.silent.Toggle(id)
		if err != nil {
			return nil, err
		}
		return map[string]bool{"enabled": enabled}, nil
	})
}

// handleSettings handles GET and PUT /api/settings
func (h *Handler) handleSettings(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, h.config.Clone())
	case http.MethodPut:
		h.putSettings(w, r)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// putSettings updates the configuration
func (h *Handler) putSettings(w http.ResponseWriter, r *http.Request) {
	var updates map[string]interface{}
	if err := decode(r, &updates); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.config.Update(updates); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Failed to update config: %v", err))
		return
	}

	if err := h.config.Save(h.configPath); err != nil {
		h.log.Error("failed to save config", "path", h.configPath, "err", err)
		writeError(w, http.StatusInternalServerError, fmt.Sprintf("Failed to save config: %v", err))
		return
	}

	if h.onConfigChanged != nil {
		h.onConfigChanged(h.config.Clone())
	}

	writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
}

// handleHotkeyValidate handles POST /api/hotkey/validate
func (h *Handler) handleHotkeyValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		Shortcut string `json:"shortcut"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	conflicts, err := hotkey.CheckTrigger(req.Shortcut)
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]interface{}{
			"valid": false,
			"error": err.Error(),
		})
		return
	}

	canonical, _ := hotkey.Normalize(req.Shortcut)
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":     true,
		"shortcut":  canonical,
		"conflicts": conflictNames(conflicts),
	})
}

func conflictNames(conflicts []hotkey.ConflictInfo) []string {
	names := []string{}
	for _, c := range conflicts {
		names = append(names, c.Name)
	}
	return names
}
