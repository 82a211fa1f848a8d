package main

import (
	"os"
	"runtime"

	"github.com/spf13/cobra"
)

const version = "0.1.0"

var (
	configFile string
	debug      bool
	noTray     bool

	rootCmd = &cobra.Command{
		Use:           "audioswitch",
		Short:         "Switch audio devices from the menu bar and global shortcuts",
		Version:       version,
		SilenceErrors: false,
		SilenceUsage:  true,
		Args:          cobra.NoArgs,
		RunE:          execute,
	}

	devicesCmd = &cobra.Command{
		Use:   "devices",
		Short: "List known audio devices and exit",
		Args:  cobra.NoArgs,
		RunE:  listDevices,
	}

	resetCmd = &cobra.Command{
		Use:   "reset",
		Short: "Switch output and input back to the built-in devices and exit",
		Args:  cobra.NoArgs,
		RunE:  resetDevices,
	}
)

func init() {
	// macOSのCGO呼び出しとイベントループはメインスレッドが必要
	runtime.LockOSThread()

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default is the per-user config directory)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "log at debug level")
	rootCmd.Flags().BoolVar(&noTray, "no-tray", false, "run without the menu bar icon")

	rootCmd.AddCommand(devicesCmd, resetCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// execute runs the resident app until quit or a signal
func execute(_ *cobra.Command, _ []string) error {
	app, err := newApp(true)
	if err != nil {
		return err
	}
	return app.Run(noTray)
}
