package game

import (
	"context"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/dmitrijs2005/addonsync/internal/logging"
)

// Watcher observes the addons folder and fires a debounced callback when
// its contents change (manual installs, the game writing save files on
// exit). The engine uses it to refresh addon status between cycles.
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	onChange func()
	log      logging.Logger
	done     chan struct{}
}

// WatchAddonsDir starts watching dir. Events within the debounce window
// collapse into a single onChange call.
func WatchAddonsDir(dir string, debounce time.Duration, onChange func(), log logging.Logger) (*Watcher, error) {
	fs, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fs.Add(dir); err != nil {
		fs.Close()
		return nil, err
	}

	w := &Watcher{
		fs:       fs,
		debounce: debounce,
		onChange: onChange,
		log:      log,
		done:     make(chan struct{}),
	}
	go w.run()
	return w, nil
}

func (w *Watcher) run() {
	var timer *time.Timer
	var fire <-chan time.Time

	for {
		select {
		case <-w.done:
			return
		case _, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
				fire = timer.C
			} else {
				if !timer.Stop() {
					<-timer.C
				}
				timer.Reset(w.debounce)
			}
		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn(context.Background(), "addons watcher error", "err", err)
		case <-fire:
			timer = nil
			fire = nil
			w.onChange()
		}
	}
}

// Close stops the watcher. Safe to call once.
func (w *Watcher) Close() error {
	close(w.done)
	return w.fs.Close()
}
