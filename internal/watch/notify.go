package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
)

// Run watches pagesDir (recursively) and the data source file, dispatching
// debounced events to SourceChanged, SourceRemoved and DataChanged, and
// drains the rebuild queue. It blocks until ctx is cancelled.
func (c *Coordinator) Run(ctx context.Context, pagesDir, dataSource string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	pagesDir, _ = filepath.Abs(pagesDir)
	if err := watchDir(watcher, pagesDir); err != nil {
		return fmt.Errorf("watch %s: %w", pagesDir, err)
	}
	if dataSource != "" {
		dataSource, _ = filepath.Abs(dataSource)
		// Editors replace files on save, so watch the parent directory.
		if err := watcher.Add(filepath.Dir(dataSource)); err != nil {
			return fmt.Errorf("watch %s: %w", dataSource, err)
		}
	}

	var (
		batch = make(map[string]fsnotify.Op)
		flush = make(chan struct{}, 1)
		timer *time.Timer
	)
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Remove|fsnotify.Rename) == 0 {
				continue
			}
			if event.Op&fsnotify.Create != 0 {
				if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
					if err := watchDir(watcher, event.Name); err != nil {
						c.logger.Warn("watch new directory", "dir", event.Name, "error", err)
					}
					continue
				}
			}
			batch[event.Name] |= event.Op

			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(c.opts.Debounce, func() {
				select {
				case flush <- struct{}{}:
				default:
				}
			})

		case <-flush:
			c.dispatch(ctx, batch, dataSource)
			batch = make(map[string]fsnotify.Op)
			c.RunPending(ctx)

		case <-c.wake:
			c.RunPending(ctx)

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.logger.Warn("watcher error", "error", err)
		}
	}
}

func (c *Coordinator) dispatch(ctx context.Context, batch map[string]fsnotify.Op, dataSource string) {
	dataChanged := false
	for name, op := range batch {
		if name == dataSource {
			dataChanged = true
			continue
		}
		// A rename or remove followed by a create is an atomic save.
		if op&(fsnotify.Remove|fsnotify.Rename) != 0 {
			if _, err := os.Stat(name); err != nil {
				c.SourceRemoved(name)
				continue
			}
		}
		c.SourceChanged(name)
	}
	if dataChanged {
		c.logger.Debug("data source changed", "path", dataSource)
		c.DataChanged(ctx)
	}
}

// watchDir recursively adds a directory to the watcher.
func watchDir(watcher *fsnotify.Watcher, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return watcher.Add(path)
		}
		return nil
	})
}
