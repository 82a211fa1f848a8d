package config

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/yok-tottii/audioswitch/internal/logger"
)

// debounce collapses the burst of events an editor save produces
const debounce = 150 * time.Millisecond

// Watcher reloads the config file whenever it changes on disk
type Watcher struct {
	path     string
	fsw      *fsnotify.Watcher
	log      *logger.Logger
	onChange func(*Config)

	mu    sync.Mutex
	timer *time.Timer

	done chan struct{}
	wg   sync.WaitGroup
}

// Watch starts watching path. onChange receives every successfully loaded
// and validated config, on the watcher's goroutine.
func Watch(path string, log *logger.Logger, onChange func(*Config)) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create config watcher: %w", err)
	}

	// The directory is watched so atomic renames are seen
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:     path,
		fsw:      fsw,
		log:      log.With("component", "config"),
		onChange: onChange,
		done:     make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case ev, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Clean(ev.Name) != filepath.Clean(w.path) {
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) || ev.Has(fsnotify.Rename) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("config watcher error", "err", err)
		}
	}
}

func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(debounce, w.reload)
}

func (w *Watcher) reload() {
	select {
	case <-w.done:
		return
	default:
	}

	cfg, err := Load(w.path)
	if err != nil {
		w.log.Warn("failed to reload config", "path", w.path, "err", err)
		return
	}
	// A running app keeps its settings rather than take defaults for a bad edit
	if repaired := cfg.Repaired(); len(repaired) > 0 {
		w.log.Warn("ignoring invalid config", "path", w.path, "err", repaired[0])
		return
	}
	w.log.Info("config reloaded", "path", w.path)
	w.onChange(cfg)
}

// Close stops watching
func (w *Watcher) Close() error {
	close(w.done)
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
	err := w.fsw.Close()
	w.wg.Wait()
	return err
}
