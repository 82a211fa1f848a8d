package bluetooth

import (
	"errors"
	"os/exec"
	"reflect"
	"testing"

	"github.com/yok-tottii/audioswitch/internal/logger"
)

func TestArgs(t *testing.T) {
	tests := []struct {
		address  string
		expected []string
	}{
		{"AA-BB-CC-DD-EE-FF", []string{"--connect", "aa-bb-cc-dd-ee-ff"}},
		{"aa:bb:cc:dd:ee:ff", []string{"--connect", "aa-bb-cc-dd-ee-ff"}},
	}

	for _, tt := range tests {
		if got := Args(tt.address); !reflect.DeepEqual(got, tt.expected) {
			t.Errorf("Args(%q) = %v, want %v", tt.address, got, tt.expected)
		}
	}
}

func TestConnectWithoutBlueutil(t *testing.T) {
	b := &Blueutil{log: logger.Discard(), command: exec.Command}

	if b.Available() {
		t.Fatal("Expected unavailable without a path")
	}
	if err := b.Connect("AA-BB-CC-DD-EE-FF"); !errors.Is(err, ErrUnavailable) {
		t.Errorf("Expected ErrUnavailable, got %v", err)
	}
	if err := b.Connect(""); err == nil {
		t.Error("Expected an error for an empty address")
	}
}

func TestConnectStartsCommand(t *testing.T) {
	truePath, err := exec.LookPath("true")
	if err != nil {
		t.Skip("true not available")
	}

	var gotArgs []string
	b := &Blueutil{
		path: "blueutil",
		log:  logger.Discard(),
		command: func(name string, args ...string) *exec.Cmd {
			gotArgs = append([]string{name}, args...)
			return exec.Command(truePath)
		},
	}

	if err := b.Connect("AA-BB-CC-DD-EE-FF"); err != nil {
		t.Fatalf("Connect failed: %v", err)
	}
	if want := []string{"blueutil", "--connect", "aa-bb-cc-dd-ee-ff"}; !reflect.DeepEqual(gotArgs, want) {
		t.Errorf("Expected %v, got %v", want, gotArgs)
	}
}
