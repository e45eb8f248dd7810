package config

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch calls onChange with a freshly loaded Config each time the file at
// path is saved, until ctx is cancelled. The parent directory is watched
// rather than the file, so saves that rename a new file over path keep
// being seen. A reload that fails to parse or validate is logged and the
// previous settings stay in effect.
func Watch(ctx context.Context, path string, onChange func(*Config)) error {
	target := filepath.Clean(path)

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create config watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("watch %s: %w", filepath.Dir(target), err)
	}
	log.Printf("Watching %s for configuration changes", target)

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isSave(event, target) {
				continue
			}
			cfg, err := Load(target)
			if err != nil {
				log.Printf("Config reload failed, keeping previous settings: %v", err)
				continue
			}
			log.Printf("Config reloaded from %s", target)
			onChange(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Config watcher error: %v", err)
		}
	}
}

// isSave reports whether event left new contents at target. An in-place
// write shows up as Write, a rename over target as Create.
func isSave(event fsnotify.Event, target string) bool {
	if filepath.Clean(event.Name) != target {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
