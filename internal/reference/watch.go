package reference

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the table at path whenever the file is written or replaced
// and passes each successfully loaded table to fn. A file that fails to parse
// is logged and the previous table stays in effect. Watch blocks until ctx is
// done.
func Watch(ctx context.Context, path string, logger *slog.Logger, fn func(*Table)) error {
	if logger == nil {
		logger = slog.Default()
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("reference watcher: %w", err)
	}
	defer w.Close()

	// Watch the directory so editors that replace the file are noticed.
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	clean := filepath.Clean(path)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != clean || !(ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create)) {
				continue
			}
			t, err := Load(path)
			if err != nil {
				logger.Warn("Reference table reload failed", slog.String("path", path), slog.String("error", err.Error()))
				continue
			}
			logger.Info("Reference table reloaded", slog.String("path", path), slog.Int("terms", t.Len()))
			fn(t)
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Warn("Reference watcher error", slog.String("error", err.Error()))
		}
	}
}
