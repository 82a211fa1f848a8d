package wizard

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/yok-tottii/audioswitch/internal/config"
)

type fakeAccess struct {
	granted  bool
	requests int
}

func (f *fakeAccess) IsAccessibilityAuthorized() bool { return f.granted }

func (f *fakeAccess) RequestAccessibilityPermission() error {
	f.requests++
	return nil
}

func newWizard(t *testing.T, access Accessibility) *SetupWizard {
	t.Helper()
	path := filepath.Join(t.TempDir(), "AudioSwitch", "config.json")
	wizard, err := NewSetupWizard(path, access, nil)
	if err != nil {
		t.Fatalf("Failed to create wizard: %v", err)
	}
	return wizard
}

func TestNewSetupWizard(t *testing.T) {
	wizard := newWizard(t, &fakeAccess{})

	if wizard.setupFlagFile == "" {
		t.Error("Expected setupFlagFile to be set")
	}
	if _, err := os.Stat(filepath.Dir(wizard.GetConfigPath())); err != nil {
		t.Errorf("Expected config directory to exist: %v", err)
	}
}

func TestIsFirstRun(t *testing.T) {
	wizard := newWizard(t, &fakeAccess{})

	if !wizard.IsFirstRun() {
		t.Error("Expected IsFirstRun to return true when config doesn't exist")
	}

	if err := config.DefaultConfig().Save(wizard.GetConfigPath()); err != nil {
		t.Fatalf("Failed to save config: %v", err)
	}

	if wizard.IsFirstRun() {
		t.Error("Expected IsFirstRun to return false when config exists")
	}
}

func TestMarkAndResetSetup(t *testing.T) {
	wizard := newWizard(t, &fakeAccess{})

	if wizard.IsSetupCompleted() {
		t.Error("Expected setup to be incomplete initially")
	}
	if err := wizard.MarkSetupCompleted(); err != nil {
		t.Fatalf("Failed to mark setup completed: %v", err)
	}
	if !wizard.IsSetupCompleted() {
		t.Error("Expected setup to be completed")
	}

	if err := wizard.ResetSetup(); err != nil {
		t.Fatalf("Failed to reset setup: %v", err)
	}
	if wizard.IsSetupCompleted() {
		t.Error("Expected setup to be incomplete after reset")
	}

	// Resetting twice is fine
	if err := wizard.ResetSetup(); err != nil {
		t.Errorf("Second reset failed: %v", err)
	}
}

func TestRun(t *testing.T) {
	tests := []struct {
		name          string
		granted       bool
		wantRequests  int
		wantCompleted bool
	}{
		{"permission granted", true, 0, true},
		{"permission missing", false, 1, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			access := &fakeAccess{granted: tt.granted}
			wizard := newWizard(t, access)

			if !wizard.ShouldShowWizard() {
				t.Fatal("Expected wizard on first run")
			}

			progress, err := wizard.Run(config.DefaultConfig())
			if err != nil {
				t.Fatalf("Run failed: %v", err)
			}

			if !progress.ConfigSaved {
				t.Error("Expected config to be saved")
			}
			if !progress.ShortcutConfigured {
				t.Error("Expected default toggle shortcut to count as configured")
			}
			if access.requests != tt.wantRequests {
				t.Errorf("Expected %d permission requests, got %d", tt.wantRequests, access.requests)
			}
			if wizard.IsSetupCompleted() != tt.wantCompleted {
				t.Errorf("Expected completed=%v", tt.wantCompleted)
			}
			if wizard.ShouldShowWizard() == tt.wantCompleted {
				t.Errorf("Expected ShouldShowWizard=%v", !tt.wantCompleted)
			}
		})
	}
}

func TestProgressWithoutShortcuts(t *testing.T) {
	wizard := newWizard(t, &fakeAccess{granted: true})

	cfg := config.DefaultConfig()
	cfg.ToggleOutputShortcut = ""
	cfg.ToggleInputShortcut = ""

	progress := wizard.GetProgress(cfg)
	if progress.ShortcutConfigured {
		t.Error("Expected no shortcut configured")
	}
	if progress.Done() {
		t.Error("Expected progress to be incomplete")
	}
}
