package config

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// WatchFile watches the directory containing path and signals on the
// returned channel whenever path itself changes, debounced the way the
// teacher's config file watcher coalesces the write-then-chmod bursts
// most editors produce. The channel is closed when ctx is cancelled.
func WatchFile(ctx context.Context, path string) (<-chan struct{}, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "resolve watch path", Cause: err}
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, &ConfigError{Path: path, Message: "start file watcher", Cause: err}
	}

	dir := filepath.Dir(absPath)
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, &ConfigError{Path: path, Message: "watch config directory", Cause: err}
	}

	ch := make(chan struct{}, 1)
	go watchLoop(ctx, watcher, filepath.Base(absPath), ch)
	return ch, nil
}

func watchLoop(ctx context.Context, watcher *fsnotify.Watcher, fileName string, ch chan<- struct{}) {
	defer close(ch)
	defer watcher.Close()

	const debounceDelay = 150 * time.Millisecond
	var debounce *time.Timer

	signal := func() {
		select {
		case ch <- struct{}{}:
		default:
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != fileName {
				continue
			}
			if debounce != nil {
				debounce.Stop()
			}
			debounce = time.AfterFunc(debounceDelay, signal)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			slog.Error("config watcher error", "error", err)
		}
	}
}
