package registry

import (
	"context"
	"fmt"
	"time"

	"github.com/fsnotify/fsnotify"

	"rulemerge/internal/logging"
)

// Watch sends on out when files under dirs change, coalescing bursts of
// events that arrive within debounce of each other. Directories are watched
// non-recursively. Watch blocks until ctx is done.
func Watch(ctx context.Context, dirs []string, debounce time.Duration, out chan<- struct{}) error {
	log := logging.GetLogger("watcher")

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	defer w.Close()

	for _, d := range dirs {
		if err := w.Add(d); err != nil {
			log.Warn().Err(err).Str("dir", d).Msg("cannot watch directory")
			continue
		}
		log.Debug().Str("dir", d).Msg("watching")
	}

	timer := time.NewTimer(time.Hour)
	timer.Stop()
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Write) &&
				!ev.Has(fsnotify.Remove) && !ev.Has(fsnotify.Rename) {
				continue
			}
			log.Debug().Str("path", ev.Name).Str("op", ev.Op.String()).Msg("change detected")
			timer.Reset(debounce)

		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			log.Warn().Err(err).Msg("watch error")

		case <-timer.C:
			select {
			case out <- struct{}{}:
			default:
				// a rebuild is already pending
			}
		}
	}
}
