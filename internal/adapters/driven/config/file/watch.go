package file

import (
	"context"
	"fmt"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
)

// Watch reloads the configuration whenever the file changes and calls
// onChange after each successful reload. It blocks until ctx is done.
//
// The parent directory is watched so a file replaced on save is still seen.
func (s *ConfigStore) Watch(ctx context.Context, onChange func()) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("creating watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(filepath.Dir(s.filePath)); err != nil {
		return fmt.Errorf("watching %s: %w", filepath.Dir(s.filePath), err)
	}

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !s.affects(event) {
				continue
			}
			if err := s.Load(); err != nil {
				log.Printf("config: reload %s: %v", s.filePath, err)
				continue
			}
			if onChange != nil {
				onChange()
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("config: watch error: %v", err)
		}
	}
}

// affects reports whether event writes or creates the config file.
func (s *ConfigStore) affects(event fsnotify.Event) bool {
	if filepath.Clean(event.Name) != filepath.Clean(s.filePath) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
