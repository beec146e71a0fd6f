package watcher

import (
	"fmt"
	"mirrord/internal/logger"
	"mirrord/internal/model"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// Watcher emits a CreationEvent for every entry created under the watch root.
// fsnotify provides the low-latency signal; a periodic full rescan covers its
// blind spots (very rapid create sequences, directories populated before
// their watch is registered). Entries present at startup are seeded as known
// and never emitted; the bulk pass owns those.
type Watcher struct {
	fw             *fsnotify.Watcher
	root           string
	rescanInterval time.Duration
	eventCh        chan model.CreationEvent
	doneCh         chan struct{}

	// known is touched only by the run goroutine.
	known map[string]struct{}
}

func New(bufferSize int, rescanInterval time.Duration) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create watcher: %w", err)
	}

	return &Watcher{
		fw:             fw,
		rescanInterval: rescanInterval,
		eventCh:        make(chan model.CreationEvent, bufferSize),
		doneCh:         make(chan struct{}),
		known:          make(map[string]struct{}),
	}, nil
}

func (w *Watcher) Watch(dir string) error {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return fmt.Errorf("failed to resolve path: %w", err)
	}

	if _, err := os.Stat(absDir); err != nil {
		return fmt.Errorf("source directory not found: %w", err)
	}

	w.root = absDir
	if err := w.seedRecursive(absDir); err != nil {
		return err
	}

	go w.run()

	logger.Log.Info("watcher started",
		zap.String("dir", absDir))
	return nil
}

// seedRecursive registers watches on every directory and marks everything
// already present as known, without emitting events.
func (w *Watcher) seedRecursive(dir string) error {
	return filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}

		w.known[path] = struct{}{}

		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				return fmt.Errorf("failed to watch %s: %w", path, err)
			}
			logger.Log.Debug("watching directory",
				zap.String("path", path))
		}

		return nil
	})
}

func (w *Watcher) run() {
	defer close(w.eventCh)

	var rescanCh <-chan time.Time
	if w.rescanInterval > 0 {
		ticker := time.NewTicker(w.rescanInterval)
		defer ticker.Stop()
		rescanCh = ticker.C
	}

	for {
		select {
		case <-w.doneCh:
			logger.Log.Info("watcher stopping")
			return

		case fsEvent, ok := <-w.fw.Events:
			if !ok {
				return
			}

			if !fsEvent.Op.Has(fsnotify.Create) {
				continue
			}

			w.handleCreate(fsEvent.Name)

		case <-rescanCh:
			w.rescan()

		case err, ok := <-w.fw.Errors:
			if !ok {
				return
			}

			logger.Log.Error("watcher error",
				zap.Error(err))
		}
	}
}

func (w *Watcher) handleCreate(path string) {
	info, err := os.Stat(path)
	if err != nil {
		// Entry vanished between the notification and the stat.
		logger.Log.Debug("created entry not statable",
			zap.String("path", path),
			zap.Error(err))
		return
	}

	w.emit(path, info.IsDir())

	if info.IsDir() {
		if err := w.fw.Add(path); err != nil {
			logger.Log.Warn("failed to watch new directory",
				zap.String("path", path),
				zap.Error(err))
		} else {
			logger.Log.Debug("added new directory to watch",
				zap.String("path", path))
		}

		// Children written before the watch above took effect produce no
		// notifications of their own; pick them up now.
		w.scanNew(path)
	}
}

// rescan walks the whole root and emits anything the notification stream
// missed.
func (w *Watcher) rescan() {
	w.scanNew(w.root)
}

func (w *Watcher) scanNew(dir string) {
	err := filepath.WalkDir(dir, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return nil
		}

		if _, ok := w.known[path]; ok {
			return nil
		}

		w.emit(path, d.IsDir())

		if d.IsDir() {
			if err := w.fw.Add(path); err != nil {
				logger.Log.Warn("failed to watch new directory",
					zap.String("path", path),
					zap.Error(err))
			}
		}

		return nil
	})
	if err != nil {
		logger.Log.Warn("rescan failed",
			zap.String("dir", dir),
			zap.Error(err))
	}
}

func (w *Watcher) emit(path string, isDir bool) {
	if _, ok := w.known[path]; ok {
		return
	}
	w.known[path] = struct{}{}

	event := model.CreationEvent{
		Path:      path,
		IsDir:     isDir,
		Timestamp: time.Now(),
	}

	select {
	case w.eventCh <- event:
	default:
		// The next rescan re-discovers the path, so drop rather than block
		// the notification loop.
		delete(w.known, path)
		logger.Log.Warn("event channel is full, dropping event",
			zap.String("path", path))
	}
}

func (w *Watcher) Events() <-chan model.CreationEvent {
	return w.eventCh
}

func (w *Watcher) Stop() {
	close(w.doneCh)
	_ = w.fw.Close()
}
