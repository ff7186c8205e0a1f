package app

import (
	"context"
	"log/slog"

	"vcdscan/internal/core/watcher"
)

// StartWatcher reloads the dump whenever it changes on disk. Only the most
// recently changed matching file is reloaded per debounce window.
func (a *App) StartWatcher(ctx context.Context, paths []string) error {
	cfg := a.CurrentConfig()
	w, err := watcher.NewWatcher(
		cfg.Watch.Debounce,
		cfg.Watch.Patterns,
		nil,
		func(changed []string) { a.HandleChanges(ctx, changed) },
	)
	if err != nil {
		return err
	}
	if err := w.Watch(paths); err != nil {
		w.Close()
		return err
	}
	a.mu.Lock()
	a.activeWatcher = w
	a.mu.Unlock()
	return nil
}

// HandleChanges reloads the first changed path. Load failures are reported
// through the update handler and logged; the previous session is kept.
func (a *App) HandleChanges(ctx context.Context, paths []string) {
	if len(paths) == 0 || ctx.Err() != nil {
		return
	}
	target := paths[0]
	if current := a.Session(); current != nil {
		for _, p := range paths {
			if p == current.Path {
				target = p
				break
			}
		}
	}
	if _, err := a.Load(ctx, target); err != nil {
		slog.Error("reload failed", "path", target, "error", err)
	}
}
