package workspace

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// watchDebounce coalesces the burst of fsnotify events an atomic
// write-then-rename produces into a single callback.
const watchDebounce = 200 * time.Millisecond

// Watch starts an fsnotify watcher on the data root and invokes cb after the
// workspace artifact changes on disk, debounced. The callback is responsible
// for deciding whether the change came from this process or an external
// writer. Watch blocks until ctx is cancelled.
func Watch(ctx context.Context, dataRoot string, logger *slog.Logger, cb func()) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()

	if err := w.Add(dataRoot); err != nil {
		return err
	}

	target := filepath.Join(dataRoot, ArtifactName)
	logger.Info("watcher: started", slog.String("target", target))

	var debounce *time.Timer
	var fire <-chan time.Time

	schedule := func() {
		if debounce == nil {
			debounce = time.NewTimer(watchDebounce)
			fire = debounce.C
		} else {
			debounce.Reset(watchDebounce)
		}
	}

	for {
		select {
		case <-ctx.Done():
			if debounce != nil {
				debounce.Stop()
			}
			logger.Info("watcher: stopped")
			return nil

		case <-fire:
			if cb != nil {
				cb()
			}

		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			// The atomic write renames a temp file over the artifact, which
			// arrives as Create/Rename rather than Write.
			if ev.Name != target {
				continue
			}
			if ev.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Rename) == 0 {
				continue
			}
			schedule()

		case watchErr, ok := <-w.Errors:
			if !ok {
				return nil
			}
			logger.Error("watcher: error", slog.String("error", watchErr.Error()))
		}
	}
}
