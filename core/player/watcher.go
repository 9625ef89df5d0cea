package player

import (
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"

	"montage/logger"
)

// stabilityDelay is how long a project file has to sit unchanged
// before it is reloaded; editors write in bursts.
const stabilityDelay = 100 * time.Millisecond

// Watcher reloads the player's sequence whenever the project file
// changes on disk. This is the updateSequence signal for hosts that
// communicate through the filesystem.
type Watcher struct {
	watcher *fsnotify.Watcher
	path    string
	player  *Player
	done    chan struct{}
}

// WatchProject starts watching path and hot-reloading it into p.
func WatchProject(path string, p *Player) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	// Watch the directory: editors often replace the file atomically,
	// which a file-level watch loses track of.
	if err := fsw.Add(filepath.Dir(path)); err != nil {
		fsw.Close()
		return nil, err
	}

	w := &Watcher{
		watcher: fsw,
		path:    path,
		player:  p,
		done:    make(chan struct{}),
	}
	go w.loop()
	logger.Info("watching project file", logger.String("path", path))
	return w, nil
}

// Close stops the watcher.
func (w *Watcher) Close() error {
	close(w.done)
	return w.watcher.Close()
}

func (w *Watcher) loop() {
	var pendingSince time.Time
	checkTicker := time.NewTicker(50 * time.Millisecond)
	defer checkTicker.Stop()

	for {
		select {
		case <-w.done:
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			pendingSince = time.Now()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("project watcher error", logger.ErrorField(err))

		case <-checkTicker.C:
			if pendingSince.IsZero() || time.Since(pendingSince) < stabilityDelay {
				continue
			}
			pendingSince = time.Time{}
			if err := w.player.LoadProject(w.path); err != nil {
				logger.Error("project reload failed",
					logger.String("path", w.path),
					logger.ErrorField(err))
				continue
			}
			logger.Info("project reloaded", logger.String("path", w.path))
		}
	}
}
