package config

import (
	"bytes"
	"context"
	"path/filepath"
	"sync"

	"github.com/a8m/envsubst"
	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
	goutils "go.viam.com/utils"

	"go.viam.com/swerve/logging"
)

// A Watcher reports a freshly read config every time the file on disk changes to a new valid config.
// Invalid edits are logged and skipped.
type Watcher struct {
	fsw     *fsnotify.Watcher
	configs chan *Config
	cancel  func()
	workers sync.WaitGroup
}

// NewWatcher starts watching filePath. The directory is watched rather than the file so editors
// that replace the file on save are noticed.
func NewWatcher(ctx context.Context, filePath string, logger logging.Logger) (*Watcher, error) {
	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if err := fsw.Add(filepath.Dir(filePath)); err != nil {
		goutils.UncheckedError(fsw.Close())
		return nil, errors.Wrapf(err, "watching %s", filePath)
	}
	last, err := envsubst.ReadFile(filePath)
	if err != nil {
		goutils.UncheckedError(fsw.Close())
		return nil, err
	}

	cancelCtx, cancel := context.WithCancel(ctx)
	w := &Watcher{fsw: fsw, configs: make(chan *Config), cancel: cancel}
	w.workers.Add(1)
	goutils.ManagedGo(func() {
		target := filepath.Clean(filePath)
		for {
			select {
			case <-cancelCtx.Done():
				return
			case err, ok := <-fsw.Errors:
				if !ok {
					return
				}
				logger.Warnw("config watch error", "error", err)
			case event, ok := <-fsw.Events:
				if !ok {
					return
				}
				if filepath.Clean(event.Name) != target || !event.Has(fsnotify.Write|fsnotify.Create) {
					continue
				}
				buf, err := envsubst.ReadFile(filePath)
				if err != nil || bytes.Equal(buf, last) {
					continue
				}
				cfg, err := FromReader(bytes.NewReader(buf), logger)
				if err != nil {
					logger.Errorw("ignoring invalid config change", "path", filePath, "error", err)
					continue
				}
				last = buf
				cfg.ConfigFilePath = filePath
				select {
				case w.configs <- cfg:
				case <-cancelCtx.Done():
					return
				}
			}
		}
	}, w.workers.Done)
	return w, nil
}

// Config returns the channel new configs are delivered on.
func (w *Watcher) Config() <-chan *Config {
	return w.configs
}

// Close stops watching.
func (w *Watcher) Close() error {
	w.cancel()
	err := w.fsw.Close()
	w.workers.Wait()
	return err
}
