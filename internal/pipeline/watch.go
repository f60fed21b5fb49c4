package pipeline

import (
	"context"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const watchDebounce = 500 * time.Millisecond

// WatchAndRun performs an initial run and then keeps the process alive,
// re-running the whole pipeline whenever the input tree changes. Each
// re-run is an ordinary incremental run, so interrupting watch mode is
// always safe: state on disk is only ever replaced atomically.
//
// now supplies the display timestamp for each run. The function returns
// when ctx is canceled or when a run fails fatally.
func WatchAndRun(ctx context.Context, opts Options, now func() string) error {
	log := opts.Logger

	opts.Timestamp = now()
	if err := Run(opts); err != nil {
		return err
	}

	changes, err := watchTree(ctx, opts.InputRoot, log)
	if err != nil {
		return err
	}

	log.Info("Watching input tree for changes", zap.String("input", opts.InputRoot))
	for {
		select {
		case <-ctx.Done():
			return nil
		case _, ok := <-changes:
			if !ok {
				return nil
			}
			opts.Timestamp = now()
			if err := Run(opts); err != nil {
				return err
			}
		}
	}
}

// watchTree emits on the returned channel after input changes have been
// quiet for the debounce window. fsnotify does not recurse, so every
// directory under root is registered, and directories created while
// watching are added as they appear.
func watchTree(ctx context.Context, root string, log *zap.Logger) (<-chan struct{}, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	addDirs := func(base string) {
		walkErr := filepath.WalkDir(base, func(dirPath string, entry fs.DirEntry, err error) error {
			if err != nil || !entry.IsDir() {
				return nil
			}
			if addErr := watcher.Add(dirPath); addErr != nil {
				log.Warn("Could not watch directory", zap.String("path", dirPath), zap.Error(addErr))
			}
			return nil
		})
		if walkErr != nil {
			log.Warn("Could not register watch tree", zap.String("path", base), zap.Error(walkErr))
		}
	}
	addDirs(root)

	changes := make(chan struct{}, 1)
	go func() {
		defer watcher.Close()
		defer close(changes)

		var timer *time.Timer
		for {
			select {
			case <-ctx.Done():
				return
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}
				if event.Op.Has(fsnotify.Create) {
					// A new directory needs its own watch before files
					// inside it can be seen.
					addDirs(event.Name)
				}
				if timer != nil {
					timer.Stop()
				}
				timer = time.AfterFunc(watchDebounce, func() {
					select {
					case changes <- struct{}{}:
					default:
					}
				})
			case watchErr, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Warn("Watcher error", zap.Error(watchErr))
			}
		}
	}()
	return changes, nil
}
