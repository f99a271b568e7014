package watchdog

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Filter reports whether a created file should be forwarded.
type Filter func(path string) bool

type WatchDogFactory struct {
	logger *zap.Logger
}

// WatchDog forwards file creation events from the watched directories until
// its context is done. The notify channel is closed when it stops.
type WatchDog struct {
	ctx    context.Context
	notify chan<- string
	filter Filter
	logger *zap.Logger

	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewWatchDogFactory(logger *zap.Logger) *WatchDogFactory {
	return &WatchDogFactory{
		logger: logger.Named("watchdog"),
	}
}

// New starts a watchdog. A nil filter forwards every created file.
func (f *WatchDogFactory) New(ctx context.Context, notify chan<- string, filter Filter) (*WatchDog, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}

	w := &WatchDog{
		ctx:     ctx,
		notify:  notify,
		filter:  filter,
		logger:  f.logger,
		watcher: watcher,
		done:    make(chan struct{}),
	}
	go w.watch()

	return w, nil
}

func (w *WatchDog) AddDir(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("resolve %s: %w", dir, err)
	}
	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("stat %s: %w", absDir, err)
	}
	if err := w.watcher.Add(absDir); err != nil {
		return fmt.Errorf("watch %s: %w", absDir, err)
	}
	w.logger.Debug("Added directory to watch list", zap.String("dir", absDir))
	return nil
}

// Done is closed once the watchdog has released its resources.
func (w *WatchDog) Done() <-chan struct{} {
	return w.done
}

func (w *WatchDog) watch() {
	defer close(w.done)
	defer w.watcher.Close()
	defer close(w.notify)
	for {
		select {
		case <-w.ctx.Done():
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				w.logger.Debug("fsnotify channel closed")
				return
			}
			w.handleEvent(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				w.logger.Debug("fsnotify error channel closed")
				return
			}
			w.logger.Warn("fsnotify error", zap.Error(err))
		}
	}
}

func (w *WatchDog) handleEvent(event fsnotify.Event) {
	if !event.Has(fsnotify.Create) {
		return
	}
	if w.filter != nil && !w.filter(event.Name) {
		w.logger.Debug("File ignored by filter", zap.String("file", event.Name))
		return
	}
	select {
	case w.notify <- event.Name:
	case <-w.ctx.Done():
	}
}
