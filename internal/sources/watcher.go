package sources

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/j-veylop/data-watchdog/internal/logger"
)

const debounceInterval = 100 * time.Millisecond

// Watcher calls onChange after any of a set of files is written or created.
// Rapid bursts of events collapse into one call.
type Watcher struct {
	mu            sync.Mutex
	watcher       *fsnotify.Watcher
	files         map[string]struct{}
	onChange      func(path string)
	stopChan      chan struct{}
	debounceTimer *time.Timer
	closeOnce     sync.Once
}

// Watch starts watching the directories of the given files.
func Watch(onChange func(path string), paths ...string) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	w := &Watcher{
		watcher:  fw,
		files:    make(map[string]struct{}, len(paths)),
		onChange: onChange,
		stopChan: make(chan struct{}),
	}

	dirs := make(map[string]struct{})
	for _, p := range paths {
		if p == "" {
			continue
		}
		w.files[filepath.Clean(p)] = struct{}{}
		dirs[filepath.Dir(p)] = struct{}{}
	}

	// Watch directories to catch atomic renames and late creation.
	for dir := range dirs {
		if err := fw.Add(dir); err != nil {
			if closeErr := fw.Close(); closeErr != nil {
				logger.Error("failed to close watcher", "error", closeErr)
			}
			return nil, fmt.Errorf("failed to watch %s: %w", dir, err)
		}
	}

	go w.loop()
	return w, nil
}

func (w *Watcher) loop() {
	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			name := filepath.Clean(event.Name)
			if _, tracked := w.files[name]; !tracked {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
				continue
			}

			w.mu.Lock()
			if w.debounceTimer != nil {
				w.debounceTimer.Stop()
			}
			w.debounceTimer = time.AfterFunc(debounceInterval, func() {
				select {
				case <-w.stopChan:
				default:
					w.onChange(name)
				}
			})
			w.mu.Unlock()

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			logger.Warn("file watcher error", "error", err)

		case <-w.stopChan:
			return
		}
	}
}

// Close stops the watcher. It is safe to call more than once.
func (w *Watcher) Close() error {
	var err error
	w.closeOnce.Do(func() {
		close(w.stopChan)

		w.mu.Lock()
		if w.debounceTimer != nil {
			w.debounceTimer.Stop()
		}
		w.mu.Unlock()

		err = w.watcher.Close()
	})
	return err
}
