package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/ftplab/ftpd/internal/logger"
)

// Watch monitors the configuration file and invokes onChange with the freshly
// loaded configuration whenever it is rewritten. Only settings that are safe
// to change at runtime should be applied by the callback; listen addresses
// and shares require a restart.
//
// Events are debounced because editors typically fire several write events
// per save. The watcher stops when stop is closed. Returns an error if the
// watcher cannot be created; load or validation failures of a rewritten file
// are logged and the previous configuration stays in effect.
func Watch(path string, stop <-chan struct{}, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create config watcher: %w", err)
	}

	// Watch the directory, not the file: many editors replace the file on
	// save, which drops a watch registered on the file itself.
	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch config directory: %w", err)
	}

	go func() {
		defer func() { _ = watcher.Close() }()

		var debounce *time.Timer
		reload := make(chan struct{}, 1)

		for {
			select {
			case <-stop:
				return

			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != filepath.Clean(path) {
					continue
				}
				if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
					continue
				}
				if debounce != nil {
					debounce.Stop()
				}
				debounce = time.AfterFunc(250*time.Millisecond, func() {
					select {
					case reload <- struct{}{}:
					default:
					}
				})

			case <-reload:
				cfg, err := Load(path)
				if err != nil {
					logger.Warn("Config reload failed, keeping previous configuration", "path", path, "error", err)
					continue
				}
				logger.Info("Configuration reloaded", "path", path)
				onChange(cfg)

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				logger.Warn("Config watcher error", "error", err)
			}
		}
	}()

	return nil
}
