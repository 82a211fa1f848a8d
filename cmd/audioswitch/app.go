package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.design/x/hotkey/mainthread"

	"github.com/yok-tottii/audioswitch/internal/api"
	"github.com/yok-tottii/audioswitch/internal/bluetooth"
	"github.com/yok-tottii/audioswitch/internal/config"
	"github.com/yok-tottii/audioswitch/internal/coreaudio"
	"github.com/yok-tottii/audioswitch/internal/devices"
	"github.com/yok-tottii/audioswitch/internal/events"
	"github.com/yok-tottii/audioswitch/internal/hotkey"
	"github.com/yok-tottii/audioswitch/internal/i18n"
	"github.com/yok-tottii/audioswitch/internal/logger"
	"github.com/yok-tottii/audioswitch/internal/mainloop"
	"github.com/yok-tottii/audioswitch/internal/notification"
	"github.com/yok-tottii/audioswitch/internal/permissions"
	"github.com/yok-tottii/audioswitch/internal/recovery"
	"github.com/yok-tottii/audioswitch/internal/server"
	"github.com/yok-tottii/audioswitch/internal/silentmode"
	"github.com/yok-tottii/audioswitch/internal/store"
	"github.com/yok-tottii/audioswitch/internal/tray"
	"github.com/yok-tottii/audioswitch/internal/wizard"
)

const appName = "AudioSwitch"

// App holds all application state
type App struct {
	configPath string
	config     *config.Config
	log        *logger.Logger
	store      *store.Store
	audio      *coreaudio.System
	bus        *events.Bus
	loop       *mainloop.Loop
	devices    *devices.Manager

	// resident only
	guard     *recovery.Guard
	recovered recovery.Result
	tr        *i18n.Translator
	shortcuts *hotkey.Registry
	silent    *silentmode.Mode
	notifier  *notification.Notifier
	server    *server.Server
	watcher   *config.Watcher
	tray      *tray.Manager

	ctx    context.Context
	cancel context.CancelFunc
}

// newApp builds the core: config, logging, storage, host audio, the main
// loop and the device manager. A resident app also checks the crash flag
// before anything touches the devices and owns the global shortcuts.
func newApp(resident bool) (*App, error) {
	a := &App{configPath: configFile}
	if a.configPath == "" {
		a.configPath = config.GetConfigPath()
	}

	var err error
	a.config, err = config.Load(a.configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	logConfig := logger.DefaultConfig()
	logConfig.Console = resident || debug
	level, levelErr := logger.ParseLevel(a.config.LogLevel)
	if debug {
		level = logger.DEBUG
	}
	logConfig.Level = level
	a.log, err = logger.New(logConfig)
	if err != nil {
		return nil, err
	}
	if levelErr != nil {
		a.log.Warn("invalid log level in config, using INFO", "err", levelErr)
	}
	for _, err := range a.config.Repaired() {
		a.log.Warn("invalid config value, using default", "err", err)
	}

	a.log.Info("AudioSwitch starting", "version", version, "config", a.configPath)

	kv, err := store.NewFileStore(store.DefaultDir())
	if err != nil {
		a.log.Close()
		return nil, err
	}
	a.store = store.New(kv)

	a.audio, err = coreaudio.New(a.log)
	if err != nil {
		a.log.Close()
		return nil, fmt.Errorf("failed to open host audio: %w", err)
	}

	// クラッシュ復旧はカタログより先に行う
	if resident {
		a.guard = recovery.New(a.store, a.audio, a.log)
		a.recovered, err = a.guard.Arm()
		if err != nil {
			a.log.Error("crash guard unavailable", "err", err)
		}
		if a.recovered.Recovered {
			a.log.Warn("recovered from an abnormal shutdown",
				"output", a.recovered.Output, "input", a.recovered.Input)
		}
	}

	a.bus = events.NewBus()
	a.loop = mainloop.New(func(v any) {
		a.log.Error("panic on main loop", "panic", v)
	})

	deps := devices.Deps{
		Audio:     a.audio,
		Bluetooth: bluetooth.New(a.log),
		Store:     a.store,
		Scheduler: a.loop,
		Bus:       a.bus,
		Logger:    a.log,
	}
	if resident {
		a.shortcuts = hotkey.NewRegistry(hotkey.NewSystemFacility(), a.loop, a.log)
		deps.Shortcuts = a.shortcuts
	}

	a.devices, err = devices.New(deps, managerConfig(a.config))
	if err != nil {
		a.log.Close()
		return nil, err
	}

	a.loop.Start()
	return a, nil
}

func managerConfig(c *config.Config) devices.Config {
	mc := devices.DefaultConfig()
	mc.ReconnectAttempts = c.ReconnectAttempts
	mc.ReconnectInterval = c.ReconnectInterval()
	mc.ToggleOutputShortcut = c.ToggleOutputShortcut
	mc.ToggleInputShortcut = c.ToggleInputShortcut
	return mc
}

// Run starts every collaborator and blocks until the user quits or a
// termination signal arrives
func (a *App) Run(headless bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	a.ctx, a.cancel = context.WithCancel(ctx)
	defer a.cancel()

	headless = headless || !a.config.ShowTray
	if err := a.start(headless); err != nil {
		a.shutdown()
		return err
	}

	if headless {
		// The OS event loop must own the main thread for global shortcuts
		mainthread.Init(func() {
			a.startDevices()
			<-a.ctx.Done()
		})
	} else {
		go func() {
			<-a.ctx.Done()
			a.tray.Quit()
		}()
		a.tray.Run()
	}

	a.log.Info("shutting down")
	a.shutdown()
	return nil
}

func (a *App) start(headless bool) error {
	a.tr = i18n.NewDefault(i18n.Resolve(a.config.UILanguage))
	a.notifier = notification.NewNotifier(notification.NewNotificationManager(appName), a.tr, a.log)
	go a.notifier.Run(a.ctx, a.bus)

	if a.recovered.Recovered {
		if err := a.notifier.Notify(events.Notice{Key: "crash.recovered", Level: events.LevelWarning}); err != nil {
			a.log.Warn("failed to show recovery notification", "err", err)
		}
	}

	checker := permissions.NewPermissionChecker()
	if setup, err := wizard.NewSetupWizard(a.configPath, checker, a.log); err != nil {
		a.log.Warn("setup wizard unavailable", "err", err)
	} else if setup.ShouldShowWizard() {
		progress, err := setup.Run(a.config)
		if err != nil {
			a.log.Warn("first-run setup failed", "err", err)
		}
		a.log.Info("setup progress", "accessibility", progress.AccessibilityGranted,
			"config", progress.ConfigSaved, "shortcut", progress.ShortcutConfigured)
	}
	if status := checker.CheckAccessibilityPermission(); status != permissions.PermissionAuthorized {
		a.log.Warn("accessibility permission missing",
			"status", status, "detail", permissions.GetPermissionStatusMessage(status))
	}

	var err error
	a.silent, err = silentmode.New(a.store, a.loop, a.bus, a.devices, a.log)
	if err != nil {
		return fmt.Errorf("failed to start silent mode: %w", err)
	}
	go a.silent.Run(a.ctx, silentmode.RobotProbe{}, a.config.SilentModePoll())

	a.watcher, err = config.Watch(a.configPath, a.log, func(c *config.Config) {
		a.config.Replace(c)
		a.applyConfig(c)
	})
	if err != nil {
		// Live reload is optional
		a.log.Warn("config watcher unavailable", "err", err)
	}

	if port := a.config.APIPort; port != 0 {
		serverConfig := server.DefaultConfig()
		serverConfig.Port = port
		a.server = server.New(serverConfig, a.log)
		api.New(api.Deps{
			Loop:            a.loop,
			Devices:         a.devices,
			Silent:          a.silent,
			Config:          a.config,
			ConfigPath:      a.configPath,
			OnConfigChanged: a.applyConfig,
			Logger:          a.log,
		}).RegisterRoutes(a.server.GetMux())

		if err := a.server.Start(); err != nil {
			a.log.Error("failed to start control API", "err", err)
			a.server = nil
		}
	}

	if headless {
		return nil
	}
	a.tray = tray.NewManager(tray.Config{
		Translator: a.tr,
		Logger:     a.log,
		OnReady:    a.startDevices,
		OnSwitch: func(id string) {
			a.loop.Post(func() {
				if err := a.devices.SwitchTo(id); err != nil {
					a.log.Warn("switch from menu failed", "id", id, "err", err)
				}
			})
		},
		OnReset: func() {
			a.loop.Post(func() {
				if err := a.devices.ResetToDefaults(); err != nil {
					a.log.Warn("reset from menu failed", "err", err)
				}
			})
		},
		OnQuit: a.cancel,
	})
	go a.tray.Watch(a.ctx, a.bus)

	return nil
}

// startDevices runs the first reconciliation once the OS event loop is up.
// It only posts: the caller may be the main thread, which hotkey
// registration needs free.
func (a *App) startDevices() {
	crashed := a.recovered.Recovered
	a.loop.Post(func() {
		a.devices.Start(crashed)
	})
}

// applyConfig re-applies the settings that take effect without a restart
func (a *App) applyConfig(c *config.Config) {
	if level, err := logger.ParseLevel(c.LogLevel); err == nil && !debug {
		a.log.SetLevel(level)
	}
	a.tr.SetLanguage(i18n.Resolve(c.UILanguage))

	output, input := c.ToggleOutputShortcut, c.ToggleInputShortcut
	a.loop.Post(func() {
		a.devices.SetToggleShortcuts(output, input)
	})
}

// shutdown stops everything in reverse order and records a clean exit
func (a *App) shutdown() {
	if a.cancel != nil {
		a.cancel()
	}
	if a.watcher != nil {
		if err := a.watcher.Close(); err != nil {
			a.log.Warn("failed to close config watcher", "err", err)
		}
	}
	if a.server != nil {
		if err := a.server.Stop(); err != nil {
			a.log.Warn("failed to stop control API", "err", err)
		}
	}

	// Unregister on the loop, with a bound so a wedged host cannot hang exit
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := a.loop.Call(func() error {
			a.devices.Stop()
			return nil
		}); err != nil {
			a.log.Warn("failed to stop device manager", "err", err)
		}
	}()
	select {
	case <-done:
		a.loop.Close()
	case <-time.After(2 * time.Second):
		a.log.Warn("device manager did not stop in time")
	}

	if a.guard != nil {
		if err := a.guard.Disarm(); err != nil {
			a.log.Error("failed to record clean shutdown", "err", err)
		}
	}
	a.log.Info("AudioSwitch stopped")
	a.log.Close()
}
