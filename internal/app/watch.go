package app

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/vk/modkit/internal/ctxlog"
	"github.com/vk/modkit/internal/lifecycle"
)

// debounceWindow coalesces bursts of filesystem events (editors often emit
// several per save) into one reload.
const debounceWindow = 300 * time.Millisecond

// watch runs the activate cycle, then keeps the tree live: whenever a source
// file or manifest under the root changes, the current module set is
// deactivated and the tree is resolved and activated again. The final
// deactivation happens when ctx is cancelled.
func (a *App) watch(ctx context.Context) error {
	logger := ctxlog.FromContext(ctx)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create filesystem watcher: %w", err)
	}
	defer watcher.Close()

	if err := watchTree(watcher, a.config.RootPath); err != nil {
		return err
	}

	if _, err := a.cycle(ctx); err != nil {
		return err
	}
	logger.Info("Watching module tree for changes.", "root", a.config.RootPath)

	var (
		debounce *time.Timer
		reload   <-chan time.Time
	)
	for {
		select {
		case <-ctx.Done():
			a.driver.Deactivate(ctx)
			return ctx.Err()

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !relevantEvent(event) {
				continue
			}
			// New directories must be added to the watch set before
			// their contents start changing.
			if event.Op.Has(fsnotify.Create) {
				if err := watchTree(watcher, event.Name); err != nil {
					logger.Warn("Failed to watch new path.", "path", event.Name, "error", err)
				}
			}
			logger.Debug("Module tree changed.", "path", event.Name, "op", event.Op.String())
			if debounce == nil {
				debounce = time.NewTimer(debounceWindow)
			} else {
				debounce.Reset(debounceWindow)
			}
			reload = debounce.C

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Filesystem watcher error.", "error", err)

		case <-reload:
			reload = nil
			logger.Info("Reloading module tree.")
			if a.driver.State() != lifecycle.StateUnregistered {
				a.driver.Deactivate(ctx)
			}
			if _, err := a.cycle(ctx); err != nil {
				logger.Error("Reload failed; keeping tree deactivated until the next change.", "error", err)
			}
		}
	}
}

// watchTree registers path and every non-hidden directory below it. fsnotify
// watches are not recursive, so each subdirectory needs its own entry.
func watchTree(watcher *fsnotify.Watcher, path string) error {
	return filepath.WalkDir(path, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			// The path may have been removed between the event and
			// this walk.
			return nil
		}
		if !d.IsDir() {
			return nil
		}
		name := d.Name()
		if p != path && (strings.HasPrefix(name, "_") || strings.HasPrefix(name, ".")) {
			return filepath.SkipDir
		}
		if err := watcher.Add(p); err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		return nil
	})
}

// relevantEvent filters out noise the resolver does not care about: chmods,
// hidden files and the debug artifact directory, which this process writes
// itself.
func relevantEvent(event fsnotify.Event) bool {
	if event.Op == fsnotify.Chmod {
		return false
	}
	base := filepath.Base(event.Name)
	if strings.HasPrefix(base, ".") || strings.HasPrefix(base, "_") {
		return false
	}
	for _, seg := range strings.Split(filepath.ToSlash(event.Name), "/") {
		if seg == "debug" {
			return false
		}
	}
	return true
}
