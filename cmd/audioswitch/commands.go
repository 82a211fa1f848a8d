package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/yok-tottii/audioswitch/internal/device"
	"github.com/yok-tottii/audioswitch/internal/devices"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	dimStyle    = lipgloss.NewStyle().Faint(true)
)

// listDevices runs one reconciliation and prints the visible devices
func listDevices(cmd *cobra.Command, _ []string) error {
	app, err := newApp(false)
	if err != nil {
		return err
	}
	defer app.shutdown()

	var snap devices.Snapshot
	if err := app.loop.Call(func() error {
		var err error
		snap, err = app.devices.Reconcile()
		return err
	}); err != nil {
		return fmt.Errorf("failed to enumerate devices: %w", err)
	}

	renderDevices(cmd.OutOrStdout(), snap)
	return nil
}

// resetDevices switches both directions back to the built-in devices
func resetDevices(cmd *cobra.Command, _ []string) error {
	app, err := newApp(false)
	if err != nil {
		return err
	}
	defer app.shutdown()

	var snap devices.Snapshot
	if err := app.loop.Call(func() error {
		if err := app.devices.ResetToDefaults(); err != nil {
			return err
		}
		snap = app.devices.Snapshot()
		return nil
	}); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	for _, id := range []string{snap.ActiveOutput, snap.ActiveInput} {
		if d, ok := findDevice(snap.Devices, id); ok {
			fmt.Fprintf(out, "%s: %s\n", d.Direction, d.Name)
		}
	}
	return nil
}

func findDevice(list []device.AudioDevice, id string) (device.AudioDevice, bool) {
	if id == "" {
		return device.AudioDevice{}, false
	}
	for _, d := range list {
		if d.ID == id {
			return d, true
		}
	}
	return device.AudioDevice{}, false
}

// renderDevices writes snap as an aligned table
func renderDevices(w io.Writer, snap devices.Snapshot) {
	if len(snap.Devices) == 0 {
		fmt.Fprintln(w, dimStyle.Render("no devices"))
		return
	}

	rows := [][]string{{"", "DIRECTION", "NAME", "TRANSPORT", "STATUS", "SHORTCUT", "ID"}}
	for _, d := range snap.Devices {
		mark := ""
		switch {
		case d.IsActive:
			mark = "✓"
		case d.IsStarred:
			mark = "☆"
		}
		status := "online"
		if !d.IsOnline {
			status = "offline"
		}
		rows = append(rows, []string{mark, string(d.Direction), d.Name, string(d.Transport), status, d.Shortcut, d.ID})
	}

	widths := make([]int, len(rows[0]))
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	for i, row := range rows {
		cells := make([]string, len(row))
		for j, cell := range row {
			cells[j] = cell + strings.Repeat(" ", widths[j]-lipgloss.Width(cell))
		}
		line := strings.TrimRight(strings.Join(cells, "  "), " ")
		if i == 0 {
			line = headerStyle.Render(line)
		}
		fmt.Fprintln(w, line)
	}
}
