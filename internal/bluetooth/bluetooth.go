// Package bluetooth asks the system to connect paired Bluetooth devices
// through the blueutil command line tool.
package bluetooth

import (
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/yok-tottii/audioswitch/internal/logger"
)

// ErrUnavailable is returned when blueutil is not installed
var ErrUnavailable = errors.New("blueutil not found in PATH")

// Blueutil implements host.Bluetooth. Connect starts the command and returns
// without waiting; the caller polls the audio device list for the result.
type Blueutil struct {
	path    string
	log     *logger.Logger
	command func(name string, args ...string) *exec.Cmd
}

// New looks up blueutil. A missing binary is not fatal: Connect then reports
// ErrUnavailable and the user connects manually.
func New(log *logger.Logger) *Blueutil {
	path, err := exec.LookPath("blueutil")
	if err != nil {
		log.Debug("blueutil not available", "err", err)
		path = ""
	}
	return &Blueutil{path: path, log: log.With("component", "bluetooth"), command: exec.Command}
}

// Available reports whether blueutil was found
func (b *Blueutil) Available() bool {
	return b.path != ""
}

// Args returns the blueutil arguments used to connect address
func Args(address string) []string {
	return []string{"--connect", strings.ToLower(strings.ReplaceAll(address, ":", "-"))}
}

// Connect starts a connection attempt to address
func (b *Blueutil) Connect(address string) error {
	if address == "" {
		return errors.New("empty bluetooth address")
	}
	if !b.Available() {
		return ErrUnavailable
	}

	cmd := b.command(b.path, Args(address)...)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start blueutil: %w", err)
	}

	go func() {
		if err := cmd.Wait(); err != nil {
			b.log.Warn("blueutil connect failed", "address", address, "err", err)
			return
		}
		b.log.Debug("blueutil connect finished", "address", address)
	}()
	return nil
}
