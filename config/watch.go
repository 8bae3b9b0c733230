package config

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/corymhall/shlsp/debug"
	"github.com/fsnotify/fsnotify"
)

// Watch reloads path whenever it is written, created or renamed over and
// hands each valid result to onChange. It watches the parent directory so
// that editors which replace the file on save are noticed. Watch blocks
// until ctx is done.
func Watch(ctx context.Context, path string, ov *Overrides, onChange func(*Config)) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating config watcher: %w", err)
	}
	defer watcher.Close()

	dir := filepath.Dir(path)
	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("watching %s: %w", dir, err)
	}
	target := filepath.Clean(path)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != target {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) && !event.Has(fsnotify.Rename) {
				continue
			}
			cfg, undecoded, err := Load(path, ov)
			if err != nil {
				debug.LogError(ctx, "reloading config", err)
				continue
			}
			if len(undecoded) > 0 {
				debug.Warning.Log(ctx, "config file has unrecognized keys", "path", path, "keys", undecoded)
			}
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			debug.LogError(ctx, "config watcher", err)
		case <-ctx.Done():
			return nil
		}
	}
}
