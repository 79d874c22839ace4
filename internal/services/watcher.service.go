package services

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// NoticeWatcher calls onChange when the notice log is written, created,
// removed or renamed. The parent directory is watched so the log may be
// created after startup. Bursts of events are debounced into one call.
type NoticeWatcher struct {
	path     string
	debounce time.Duration
	onChange func()
	fsw      *fsnotify.Watcher
	mu       sync.Mutex
	timer    *time.Timer
	wg       sync.WaitGroup
	log      *zap.Logger
}

func NewNoticeWatcher(path string, debounce time.Duration, onChange func(), log *zap.Logger) (*NoticeWatcher, error) {
	if log == nil {
		log = zap.NewNop()
	}
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("create watcher: %w", err)
	}
	return &NoticeWatcher{
		path:     filepath.Clean(path),
		debounce: debounce,
		onChange: onChange,
		fsw:      fsw,
		log:      log,
	}, nil
}

// Start begins watching until ctx is cancelled or Stop is called
func (w *NoticeWatcher) Start(ctx context.Context) error {
	dir := filepath.Dir(w.path)
	if err := w.fsw.Add(dir); err != nil {
		return fmt.Errorf("watch %s: %w", dir, err)
	}
	w.log.Info("watching notice log", zap.String("path", w.path))

	w.wg.Add(1)
	go w.loop(ctx)
	return nil
}

// Stop releases the watcher and waits for the event loop to exit
func (w *NoticeWatcher) Stop() {
	_ = w.fsw.Close()
	w.wg.Wait()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()
}

func (w *NoticeWatcher) loop(ctx context.Context) {
	defer w.wg.Done()
	base := filepath.Base(w.path)

	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if filepath.Base(event.Name) != base {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			w.trigger()
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			w.log.Warn("notice watcher error", zap.Error(err))
		}
	}
}

func (w *NoticeWatcher) trigger() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, w.onChange)
}
