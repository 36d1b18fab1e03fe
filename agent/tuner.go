package agent

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/nstehr/vimy/vimy-micro/config"
)

const reloadDebounce = 100 * time.Millisecond

// Tuner watches the tuning file and publishes every version that loads
// cleanly. A bad edit is logged and the previous tuning stays current.
// Agents poll Latest at the start of each frame, so tuning never changes
// mid-tick.
type Tuner struct {
	path    string
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	current *config.Tuning
	gen     uint64
}

// NewTuner watches path's directory; editors often replace the file rather
// than write it in place.
func NewTuner(path string, initial *config.Tuning) (*Tuner, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := w.Add(filepath.Dir(path)); err != nil {
		_ = w.Close()
		return nil, err
	}
	return &Tuner{path: filepath.Clean(path), watcher: w, current: initial}, nil
}

// Latest returns the current tuning and its generation.
func (t *Tuner) Latest() (*config.Tuning, uint64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current, t.gen
}

// Start blocks until ctx is cancelled.
func (t *Tuner) Start(ctx context.Context) {
	defer t.watcher.Close()
	slog.Info("tuner started", "path", t.path)

	// Editors and os.WriteFile emit several events per save; reload once the
	// file has been quiet for reloadDebounce.
	debounce := time.NewTimer(reloadDebounce)
	debounce.Stop()
	defer debounce.Stop()

	for {
		select {
		case <-ctx.Done():
			slog.Info("tuner stopped")
			return
		case event, ok := <-t.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != t.path {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			debounce.Reset(reloadDebounce)
		case <-debounce.C:
			t.reload()
		case err, ok := <-t.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("tuning watcher error", "error", err)
		}
	}
}

func (t *Tuner) reload() {
	tuning, err := config.Load(t.path)
	if err != nil {
		slog.Warn("tuning reload rejected, keeping previous", "path", t.path, "error", err)
		return
	}
	t.mu.Lock()
	t.current = tuning
	t.gen++
	gen := t.gen
	t.mu.Unlock()
	slog.Info("tuning reloaded", "path", t.path, "generation", gen, "units", len(tuning.Units))
}
