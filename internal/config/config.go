package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/adrg/xdg"
	"github.com/bytedance/sonic"
	"github.com/caarlos0/env/v11"

	"github.com/yok-tottii/audioswitch/internal/hotkey"
	"github.com/yok-tottii/audioswitch/internal/i18n"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// EnvPrefix prefixes every environment override, e.g. AUDIOSWITCH_LOG_LEVEL
const EnvPrefix = "AUDIOSWITCH_"

// Config holds application configuration
type Config struct {
	ToggleOutputShortcut string `json:"toggle_output_shortcut" env:"TOGGLE_OUTPUT_SHORTCUT"`
	ToggleInputShortcut  string `json:"toggle_input_shortcut" env:"TOGGLE_INPUT_SHORTCUT"` // empty disables it
	ReconnectAttempts    int    `json:"reconnect_attempts" env:"RECONNECT_ATTEMPTS"`
	ReconnectIntervalMS  int    `json:"reconnect_interval_ms" env:"RECONNECT_INTERVAL_MS"`
	SilentModePollMS     int    `json:"silent_mode_poll_ms" env:"SILENT_MODE_POLL_MS"`
	APIPort              int    `json:"api_port" env:"API_PORT"` // 0 disables the API
	LogLevel             string `json:"log_level" env:"LOG_LEVEL"`
	UILanguage           string `json:"ui_language" env:"UI_LANGUAGE"` // "ja", "en" or "" for auto
	ShowTray             bool   `json:"show_tray" env:"SHOW_TRAY"`
	repaired             []error
	mu                   sync.RWMutex
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	return &Config{
		ToggleOutputShortcut: "⌘⌥A",
		ReconnectAttempts:    15,
		ReconnectIntervalMS:  1000,
		SilentModePollMS:     1000,
		APIPort:              18765,
		LogLevel:             "INFO",
		ShowTray:             true,
	}
}

// GetConfigPath returns the default configuration file path
func GetConfigPath() string {
	path, err := xdg.ConfigFile(filepath.Join("AudioSwitch", "config.json"))
	if err != nil {
		return filepath.Join(xdg.ConfigHome, "AudioSwitch", "config.json")
	}
	return path
}

// Load loads configuration from path and applies environment overrides.
// A missing file yields the defaults. Fields with invalid values fall back to
// their defaults and are reported by Repaired.
func Load(path string) (*Config, error) {
	config := DefaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
	case err != nil:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	default:
		if err := sonic.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	}

	if err := env.ParseWithOptions(config, env.Options{Prefix: EnvPrefix}); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	// 不正な値はその項目だけ既定値に戻す
	config.repaired = config.repairLocked()

	// ショートカットは正規形で保持する
	config.normalizeLocked()

	return config, nil
}

func (c *Config) normalizeLocked() {
	if s, err := hotkey.Normalize(c.ToggleOutputShortcut); err == nil {
		c.ToggleOutputShortcut = s
	}
	if s, err := hotkey.Normalize(c.ToggleInputShortcut); err == nil {
		c.ToggleInputShortcut = s
	}
}

// Save saves configuration to the specified path
func (c *Config) Save(path string) error {
	c.mu.RLock()
	defer c.mu.RUnlock()

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := sonic.ConfigStd.MarshalIndent(c, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	// Written through a temp file so the watcher never sees a partial file
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// Update updates configuration fields from a decoded JSON object
func (c *Config) Update(updates map[string]interface{}) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	next := c.cloneLocked()
	for key, value := range updates {
		switch key {
		case "toggle_output_shortcut":
			if v, ok := value.(string); ok {
				next.ToggleOutputShortcut = v
			}
		case "toggle_input_shortcut":
			if v, ok := value.(string); ok {
				next.ToggleInputShortcut = v
			}
		case "reconnect_attempts":
			if v, ok := value.(float64); ok {
				next.ReconnectAttempts = int(v)
			}
		case "reconnect_interval_ms":
			if v, ok := value.(float64); ok {
				next.ReconnectIntervalMS = int(v)
			}
		case "silent_mode_poll_ms":
			if v, ok := value.(float64); ok {
				next.SilentModePollMS = int(v)
			}
		case "api_port":
			if v, ok := value.(float64); ok {
				next.APIPort = int(v)
			}
		case "log_level":
			if v, ok := value.(string); ok {
				next.LogLevel = v
			}
		case "ui_language":
			if v, ok := value.(string); ok {
				next.UILanguage = v
			}
		case "show_tray":
			if v, ok := value.(bool); ok {
				next.ShowTray = v
			}
		default:
			return fmt.Errorf("unknown setting: %s", key)
		}
	}

	if err := next.validateLocked(); err != nil {
		return err
	}
	next.normalizeLocked()
	c.copyFromLocked(next)
	return nil
}

// Clone creates a deep copy of the configuration
func (c *Config) Clone() *Config {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.cloneLocked()
}

func (c *Config) cloneLocked() *Config {
	return &Config{
		ToggleOutputShortcut: c.ToggleOutputShortcut,
		ToggleInputShortcut:  c.ToggleInputShortcut,
		ReconnectAttempts:    c.ReconnectAttempts,
		ReconnectIntervalMS:  c.ReconnectIntervalMS,
		SilentModePollMS:     c.SilentModePollMS,
		APIPort:              c.APIPort,
		LogLevel:             c.LogLevel,
		UILanguage:           c.UILanguage,
		ShowTray:             c.ShowTray,
	}
}

// Replace copies every field of o into c, e.g. after a reload from disk
func (c *Config) Replace(o *Config) {
	snapshot := o.Clone()
	c.mu.Lock()
	defer c.mu.Unlock()
	c.copyFromLocked(snapshot)
}

func (c *Config) copyFromLocked(o *Config) {
	c.ToggleOutputShortcut = o.ToggleOutputShortcut
	c.ToggleInputShortcut = o.ToggleInputShortcut
	c.ReconnectAttempts = o.ReconnectAttempts
	c.ReconnectIntervalMS = o.ReconnectIntervalMS
	c.SilentModePollMS = o.SilentModePollMS
	c.APIPort = o.APIPort
	c.LogLevel = o.LogLevel
	c.UILanguage = o.UILanguage
	c.ShowTray = o.ShowTray
}

// ReconnectInterval returns the Bluetooth poll interval
func (c *Config) ReconnectInterval() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.ReconnectIntervalMS) * time.Millisecond
}

// SilentModePoll returns the frontmost-app poll interval
func (c *Config) SilentModePoll() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Duration(c.SilentModePollMS) * time.Millisecond
}

// Validate validates all configuration fields
func (c *Config) Validate() error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.validateLocked()
}

func (c *Config) validateLocked() error {
	for _, f := range fieldChecks {
		if err := f.check(c); err != nil {
			return err
		}
	}
	return nil
}

// repairLocked puts every invalid field back to its default and returns one
// error per field it reset
func (c *Config) repairLocked() []error {
	defaults := DefaultConfig()
	var repaired []error
	for _, f := range fieldChecks {
		if err := f.check(c); err != nil {
			f.reset(c, defaults)
			repaired = append(repaired, err)
		}
	}
	return repaired
}

// Repaired lists the fields Load reset to their defaults because the file
// or the environment gave an invalid value
func (c *Config) Repaired() []error {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]error(nil), c.repaired...)
}

type fieldCheck struct {
	check func(c *Config) error
	reset func(c, defaults *Config)
}

func checkShortcut(name, trigger string) error {
	if trigger == "" {
		return nil
	}
	if _, err := hotkey.Parse(trigger); err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	return nil
}

var fieldChecks = []fieldCheck{
	{
		check: func(c *Config) error { return checkShortcut("toggle_output_shortcut", c.ToggleOutputShortcut) },
		reset: func(c, d *Config) { c.ToggleOutputShortcut = d.ToggleOutputShortcut },
	},
	{
		check: func(c *Config) error { return checkShortcut("toggle_input_shortcut", c.ToggleInputShortcut) },
		reset: func(c, d *Config) { c.ToggleInputShortcut = d.ToggleInputShortcut },
	},
	{
		check: func(c *Config) error {
			if c.ReconnectAttempts < 1 || c.ReconnectAttempts > 120 {
				return fmt.Errorf("invalid reconnect_attempts: %d (must be between 1 and 120)", c.ReconnectAttempts)
			}
			return nil
		},
		reset: func(c, d *Config) { c.ReconnectAttempts = d.ReconnectAttempts },
	},
	{
		check: func(c *Config) error {
			if c.ReconnectIntervalMS < 100 || c.ReconnectIntervalMS > 10000 {
				return fmt.Errorf("invalid reconnect_interval_ms: %d (must be between 100 and 10000)", c.ReconnectIntervalMS)
			}
			return nil
		},
		reset: func(c, d *Config) { c.ReconnectIntervalMS = d.ReconnectIntervalMS },
	},
	{
		check: func(c *Config) error {
			if c.SilentModePollMS < 200 || c.SilentModePollMS > 10000 {
				return fmt.Errorf("invalid silent_mode_poll_ms: %d (must be between 200 and 10000)", c.SilentModePollMS)
			}
			return nil
		},
		reset: func(c, d *Config) { c.SilentModePollMS = d.SilentModePollMS },
	},
	{
		check: func(c *Config) error {
			if c.APIPort != 0 && (c.APIPort < 1024 || c.APIPort > 65535) {
				return fmt.Errorf("invalid api_port: %d (must be 0 or between 1024 and 65535)", c.APIPort)
			}
			return nil
		},
		reset: func(c, d *Config) { c.APIPort = d.APIPort },
	},
	{
		check: func(c *Config) error {
			if _, err := logger.ParseLevel(c.LogLevel); err != nil {
				return fmt.Errorf("invalid log_level: %w", err)
			}
			return nil
		},
		reset: func(c, d *Config) { c.LogLevel = d.LogLevel },
	},
	{
		check: func(c *Config) error {
			if c.UILanguage != "" && !i18n.ValidateLanguage(c.UILanguage) {
				return fmt.Errorf("invalid ui_language: %s (must be 'ja', 'en' or empty)", c.UILanguage)
			}
			return nil
		},
		reset: func(c, d *Config) { c.UILanguage = d.UILanguage },
	},
}
