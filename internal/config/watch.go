// SPDX-License-Identifier: MIT
package config

import (
	"context"
	"path/filepath"
	"time"

	applog "filterplay/internal/log"

	"github.com/fsnotify/fsnotify"
)

// reloadDelay coalesces the burst of events an editor save produces.
const reloadDelay = 100 * time.Millisecond

// Watch reloads the configuration file at path whenever it changes and
// passes each valid result to onChange. Invalid files are logged and
// skipped. The parent directory is watched so that editors which replace
// the file by rename are followed. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	abs, err := filepath.Abs(path)
	if err != nil {
		return err
	}
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return err
	}
	applog.Debugf("configuration: Watching %s", abs)

	timer := time.NewTimer(reloadDelay)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != abs {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			timer.Reset(reloadDelay)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			applog.Warnf("configuration: Watch error: %v", err)

		case <-timer.C:
			cfg, err := LoadConfig(abs)
			if err != nil {
				applog.Warnf("configuration: Ignoring change to %s: %v", abs, err)
				continue
			}
			applog.Infof("configuration: Reloaded %s", abs)
			onChange(cfg)
		}
	}
}
