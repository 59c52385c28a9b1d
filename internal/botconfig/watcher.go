package botconfig

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the provider's templates whenever the YAML file changes.
// Invalid edits are logged and skipped; the previous templates stay active.
// Blocks until the context is cancelled, so run it in its own goroutine.
func Watch(ctx context.Context, path string, provider *Provider) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer watcher.Close()

	// Watch the directory rather than the file: editors replace files on
	// save, which drops inotify watches on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		return err
	}
	target := filepath.Clean(path)
	slog.Debug("botconfig watcher started", "path", target)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			tmpl, err := Load(target)
			if err != nil {
				slog.Error("botconfig reload failed, keeping previous templates", "error", err, "path", target)
				continue
			}
			provider.Set(tmpl)
			slog.Info("botconfig templates reloaded", "path", target)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			slog.Error("botconfig watcher error", "error", err)
		case <-ctx.Done():
			slog.Debug("botconfig watcher stopping", "path", target)
			return nil
		}
	}
}
