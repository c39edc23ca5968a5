package config

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const reloadDebounce = 250 * time.Millisecond

// Watch reloads the catalog at path whenever it changes and hands each
// valid result to apply. Invalid edits are logged and skipped. Watch
// blocks until ctx is done.
func Watch(ctx context.Context, path string, logger *zap.Logger, apply func(Catalog)) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer watcher.Close()

	// Watch the directory so editors that replace the file by rename are seen.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", path, err)
	}
	target := filepath.Clean(path)

	var pending <-chan time.Time
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target {
				continue
			}
			if ev.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			pending = time.After(reloadDebounce)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("catalog watcher error", zap.Error(err))
		case <-pending:
			pending = nil
			catalog, err := LoadCatalog(path)
			if err != nil {
				logger.Error("catalog reload rejected", zap.String("path", path), zap.Error(err))
				continue
			}
			logger.Info("catalog reloaded", zap.String("path", path), zap.Int("categories", len(catalog.Categories)))
			apply(catalog)
		}
	}
}
