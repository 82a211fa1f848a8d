// Package wizard runs the first-launch setup: it asks for the accessibility
// permission global shortcuts depend on and writes an initial config file.
package wizard

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/yok-tottii/audioswitch/internal/config"
	"github.com/yok-tottii/audioswitch/internal/logger"
)

// Accessibility is the permission check the wizard drives
type Accessibility interface {
	IsAccessibilityAuthorized() bool
	RequestAccessibilityPermission() error
}

// SetupWizard manages the initial application setup flow
type SetupWizard struct {
	configPath    string
	setupFlagFile string
	access        Accessibility
	log           *logger.Logger
	mu            sync.RWMutex
}

// NewSetupWizard creates a wizard that keeps its flag next to configPath
func NewSetupWizard(configPath string, access Accessibility, log *logger.Logger) (*SetupWizard, error) {
	configDir := filepath.Dir(configPath)
	if err := os.MkdirAll(configDir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create config directory: %w", err)
	}
	if log == nil {
		log = logger.Discard()
	}

	return &SetupWizard{
		configPath:    configPath,
		setupFlagFile: filepath.Join(configDir, ".setup_completed"),
		access:        access,
		log:           log.With("component", "wizard"),
	}, nil
}

// IsFirstRun checks if this is the first run of the application
func (w *SetupWizard) IsFirstRun() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.configPath)
	return os.IsNotExist(err)
}

// IsSetupCompleted checks if the setup has been completed
func (w *SetupWizard) IsSetupCompleted() bool {
	w.mu.RLock()
	defer w.mu.RUnlock()

	_, err := os.Stat(w.setupFlagFile)
	return err == nil
}

// MarkSetupCompleted records a finished setup
func (w *SetupWizard) MarkSetupCompleted() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	file, err := os.Create(w.setupFlagFile)
	if err != nil {
		return fmt.Errorf("failed to create setup flag file: %w", err)
	}
	return file.Close()
}

// ShouldShowWizard is true on the first run and until setup completes
func (w *SetupWizard) ShouldShowWizard() bool {
	return w.IsFirstRun() || !w.IsSetupCompleted()
}

// SetupProgress is the completion state of each setup step
type SetupProgress struct {
	AccessibilityGranted bool `json:"accessibility_granted"`
	ConfigSaved          bool `json:"config_saved"`
	ShortcutConfigured   bool `json:"shortcut_configured"`
}

// Done reports whether every step is complete
func (p SetupProgress) Done() bool {
	return p.AccessibilityGranted && p.ConfigSaved && p.ShortcutConfigured
}

// GetProgress inspects the current state of each step
func (w *SetupWizard) GetProgress(cfg *config.Config) SetupProgress {
	current := cfg.Clone()

	w.mu.RLock()
	_, statErr := os.Stat(w.configPath)
	w.mu.RUnlock()

	return SetupProgress{
		AccessibilityGranted: w.access != nil && w.access.IsAccessibilityAuthorized(),
		ConfigSaved:          statErr == nil,
		ShortcutConfigured:   current.ToggleOutputShortcut != "" || current.ToggleInputShortcut != "",
	}
}

// Run performs the steps that need no user input: the config file is
// written and the permission prompt opened. Setup is marked complete once
// every step passes, so an ungranted permission is asked for again next launch.
func (w *SetupWizard) Run(cfg *config.Config) (SetupProgress, error) {
	if w.IsFirstRun() {
		if err := cfg.Save(w.configPath); err != nil {
			return w.GetProgress(cfg), err
		}
		w.log.Info("initial config written", "path", w.configPath)
	}

	progress := w.GetProgress(cfg)
	if !progress.AccessibilityGranted && w.access != nil {
		w.log.Info("requesting accessibility permission")
		if err := w.access.RequestAccessibilityPermission(); err != nil {
			w.log.Warn("failed to open accessibility settings", "err", err)
		}
	}

	if progress.Done() {
		if err := w.MarkSetupCompleted(); err != nil {
			return progress, err
		}
		w.log.Info("setup completed")
	}
	return progress, nil
}

// ResetSetup resets the setup state
func (w *SetupWizard) ResetSetup() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if err := os.Remove(w.setupFlagFile); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove setup flag file: %w", err)
	}
	return nil
}

// GetConfigPath returns the configuration file path
func (w *SetupWizard) GetConfigPath() string {
	return w.configPath
}
