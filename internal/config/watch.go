package config

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/0xPuncker/cron-panel/internal/index"
	hooksconfig "github.com/0xPuncker/cron-panel/pkg/config"
	"github.com/fsnotify/fsnotify"
	"github.com/sirupsen/logrus"
)

const reloadDebounce = 250 * time.Millisecond

// HooksWatcher keeps the hooks file current. Allow-list changes apply to the next
// render or trigger; schedule changes need a restart since the store owns them.
type HooksWatcher struct {
	path     string
	logger   *logrus.Logger
	debounce time.Duration

	mu        sync.RWMutex
	current   *hooksconfig.HooksFile
	listeners []func(*hooksconfig.HooksFile)
}

// NewHooksWatcher loads path once. A missing file falls back to the default
// allow-list; a malformed one is an error.
func NewHooksWatcher(path string, logger *logrus.Logger) (*HooksWatcher, error) {
	w := &HooksWatcher{
		path:     path,
		logger:   logger,
		debounce: reloadDebounce,
	}

	file, err := hooksconfig.LoadHooksFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, err
		}
		logger.WithField("path", path).Warn("Hooks file not found, using default system hooks")
		file = hooksconfig.DefaultHooksFile()
	}
	w.current = file

	return w, nil
}

func (w *HooksWatcher) Current() *hooksconfig.HooksFile {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

func (w *HooksWatcher) AllowList() index.AllowList {
	return index.NewAllowList(w.Current().SystemHookNames()...)
}

func (w *HooksWatcher) OnChange(fn func(*hooksconfig.HooksFile)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.listeners = append(w.listeners, fn)
}

// Reload re-reads the file. On failure the previous contents stay in effect.
func (w *HooksWatcher) Reload() error {
	file, err := hooksconfig.LoadHooksFile(w.path)
	if err != nil {
		return err
	}

	w.mu.Lock()
	w.current = file
	listeners := append([]func(*hooksconfig.HooksFile){}, w.listeners...)
	w.mu.Unlock()

	for _, fn := range listeners {
		fn(file)
	}

	w.logger.WithFields(logrus.Fields{
		"path":         w.path,
		"system_hooks": len(file.SystemHookNames()),
	}).Info("Hooks file reloaded")
	return nil
}

// Watch blocks until ctx is cancelled, reloading after writes settle.
func (w *HooksWatcher) Watch(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	name := filepath.Base(w.path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create hooks watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}

	var (
		timerMu sync.Mutex
		timer   *time.Timer
	)
	schedule := func() {
		timerMu.Lock()
		defer timerMu.Unlock()
		if timer != nil {
			timer.Stop()
		}
		timer = time.AfterFunc(w.debounce, func() {
			if err := w.Reload(); err != nil {
				w.logger.WithError(err).Warn("Failed to reload hooks file, keeping previous version")
			}
		})
	}
	defer func() {
		timerMu.Lock()
		if timer != nil {
			timer.Stop()
		}
		timerMu.Unlock()
	}()

	w.logger.WithField("path", w.path).Debug("Watching hooks file")

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !strings.EqualFold(filepath.Base(ev.Name), name) {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) != 0 {
				schedule()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Hooks watcher error")
		}
	}
}
