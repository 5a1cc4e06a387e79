package config

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/joho/godotenv"

	"github.com/platinummonkey/filtros/pkg/observability"
)

const debounceDuration = 100 * time.Millisecond

// Watcher re-reads an .env file when it changes and notifies subscribers
// with the new configuration. As in LoadConfig, variables set in the real
// process environment win over the file.
type Watcher struct {
	path    string
	logger  *observability.Logger
	watcher *fsnotify.Watcher

	mu          sync.RWMutex
	current     *Config
	fileKeys    map[string]bool
	subscribers []func(*Config)
}

// NewWatcher watches path, starting from current.
func NewWatcher(path string, current *Config, logger *observability.Logger) (*Watcher, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	if logger == nil {
		logger = observability.NopLogger()
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}
	// watch the directory: editors replace files by rename
	if err := fw.Add(filepath.Dir(absPath)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("failed to watch directory: %w", err)
	}

	w := &Watcher{
		path:    absPath,
		logger:  logger.WithField("component", "config_watcher"),
		watcher: fw,
		current: current,
	}
	if current != nil {
		w.fileKeys = current.fileKeys
	}
	return w, nil
}

// Current returns the latest successfully loaded configuration.
func (w *Watcher) Current() *Config {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers fn to be called after every successful reload.
func (w *Watcher) OnChange(fn func(*Config)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.subscribers = append(w.subscribers, fn)
}

// Run processes file events until ctx is done, then closes the watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.watcher.Close()

	var debounce *time.Timer
	defer func() {
		if debounce != nil {
			debounce.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != w.path {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDuration, func() {
				if err := w.Reload(); err != nil {
					w.logger.WithError(err).Warn("Configuration reload failed; keeping previous configuration")
				}
			})
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.WithError(err).Warn("Config watcher error")
		}
	}
}

// Reload applies the file to the environment, rebuilds the configuration and
// notifies subscribers. A generated JWT secret is kept across reloads so
// issued tokens stay valid.
func (w *Watcher) Reload() error {
	values, err := godotenv.Read(w.path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", w.path, err)
	}

	w.mu.Lock()
	owned, err := applyEnvFile(values, w.fileKeys)
	if err != nil {
		w.mu.Unlock()
		return fmt.Errorf("failed to apply %s: %w", w.path, err)
	}
	w.fileKeys = owned
	w.mu.Unlock()

	cfg, err := FromEnv()
	if err != nil {
		return err
	}
	cfg.EnvFile = w.path
	cfg.fileKeys = owned

	w.mu.Lock()
	prev := w.current
	if prev != nil && prev.Security.GeneratedSecret && cfg.Security.GeneratedSecret {
		cfg.Security.JWTSecret = prev.Security.JWTSecret
	}
	w.current = cfg
	subscribers := make([]func(*Config), len(w.subscribers))
	copy(subscribers, w.subscribers)
	w.mu.Unlock()

	w.logger.WithField("path", w.path).Info("Configuration reloaded")
	for _, fn := range subscribers {
		fn(cfg)
	}
	return nil
}
