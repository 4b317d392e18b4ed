package service

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/fsnotify/fsnotify"
)

// Monitor watches the authorization store search roots (one watch per root,
// not per discovered subdirectory) and invokes onChange for every create,
// remove or rename among a root's immediate children. onChange runs on the
// watcher goroutine; it must not block indefinitely.
type Monitor struct {
	watcher  *fsnotify.Watcher
	onChange func()
	logger   *slog.Logger

	closeOnce sync.Once
	done      chan struct{}
	wg        sync.WaitGroup
}

// NewMonitor creates and starts a monitor over the given roots. A root that
// cannot be watched (missing, unreadable) is logged and left unmonitored;
// decisions keep working against a possibly-stale view of that root. Only a
// failure to create the watcher itself is returned as an error.
func NewMonitor(roots []string, onChange func(), logger *slog.Logger) (*Monitor, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create filesystem watcher: %w", err)
	}

	for _, root := range roots {
		if err := watcher.Add(root); err != nil {
			logger.Warn("failed to watch authorization store root", "root", root, "error", err)
		}
	}

	m := &Monitor{
		watcher:  watcher,
		onChange: onChange,
		logger:   logger,
		done:     make(chan struct{}),
	}
	m.wg.Add(1)
	go m.run()
	return m, nil
}

func (m *Monitor) run() {
	defer m.wg.Done()
	for {
		select {
		case <-m.done:
			return
		case ev, ok := <-m.watcher.Events:
			if !ok {
				return
			}
			if ev.Op&(fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			m.logger.Debug("authorization store root changed", "path", ev.Name, "op", ev.Op.String())
			m.onChange()
		case err, ok := <-m.watcher.Errors:
			if !ok {
				return
			}
			m.logger.Warn("filesystem watcher error", "error", err)
		}
	}
}

// Close stops the monitor and waits for its goroutine to exit.
func (m *Monitor) Close() error {
	var err error
	m.closeOnce.Do(func() {
		close(m.done)
		err = m.watcher.Close()
		m.wg.Wait()
	})
	return err
}
