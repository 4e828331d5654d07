package watch

import (
	"context"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// hintSettle is how long the directory must stay quiet before a hint is
// raised, so a truncate followed by a write is read once, complete.
const hintSettle = 50 * time.Millisecond

// subscribe watches the document's parent directory so that deletes,
// re-creates and rename-over saves are all seen. The returned channel holds
// at most one pending hint; bursts collapse into a single extra poll.
func subscribe(ctx context.Context, path string) (<-chan struct{}, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fw.Add(filepath.Dir(path)); err != nil {
		_ = fw.Close()
		return nil, err
	}
	target := filepath.Clean(path)
	hints := make(chan struct{}, 1)
	go func() {
		defer fw.Close()
		settle := time.NewTimer(hintSettle)
		settle.Stop()
		defer settle.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-fw.Events:
				if !ok {
					return
				}
				if filepath.Clean(ev.Name) != target || ev.Op == fsnotify.Chmod {
					continue
				}
				settle.Reset(hintSettle)
			case <-settle.C:
				select {
				case hints <- struct{}{}:
				default:
				}
			case err, ok := <-fw.Errors:
				if !ok {
					return
				}
				slog.Warn("fsnotify error", "path", path, "error", err)
			}
		}
	}()
	return hints, nil
}
