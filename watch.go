package shopping

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	log "github.com/sirupsen/logrus"
)

// DefaultDebounce is how long Watch waits for a burst of file events to settle.
const DefaultDebounce = 200 * time.Millisecond

// Watch calls fn whenever the file at path is written, created, renamed over or removed, typically by another
// process saving the list. Events are debounced, so a save (write temp file, rename) results in one call. The
// directory is watched rather than the file, because saves replace the file. Watch blocks until ctx is done.
func Watch(ctx context.Context, path string, debounce time.Duration, fn func()) error {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}
	defer func() {
		if err := w.Close(); err != nil {
			log.WithField("cause", err).Warning("Could not close watcher")
		}
	}()
	if err := w.Add(filepath.Dir(abs)); err != nil {
		return fmt.Errorf("watch %s: %w", path, err)
	}

	timer := time.NewTimer(debounce)
	if !timer.Stop() {
		<-timer.C
	}
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-w.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(event.Name) != abs {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) ||
				event.Has(fsnotify.Remove) {
				timer.Reset(debounce)
			}
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.WithFields(log.Fields{
				"path":  abs,
				"cause": err,
			}).Warning("Watcher error")
		case <-timer.C:
			fn()
		}
	}
}
