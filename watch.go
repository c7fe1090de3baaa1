package framecomp

import (
	"log/slog"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/pkg/errors"
)

// ShaderWatcher requests a rebuild whenever a compiled shader in its
// directory is written, created or renamed. The rebuild reloads every
// program from disk.
type ShaderWatcher struct {
	watcher *fsnotify.Watcher
	rebuild *RebuildState
	log     *slog.Logger

	done chan struct{}
	wg   sync.WaitGroup
}

// WatchShaders starts watching dir.
func WatchShaders(dir string, rebuild *RebuildState, log *slog.Logger) (*ShaderWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, errors.Wrap(err, "shader watcher")
	}
	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return nil, errors.Wrapf(err, "watch %s", dir)
	}
	w := &ShaderWatcher{
		watcher: watcher,
		rebuild: rebuild,
		log:     log,
		done:    make(chan struct{}),
	}
	w.wg.Add(1)
	go w.run()
	return w, nil
}

func (w *ShaderWatcher) run() {
	defer w.wg.Done()
	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if IsShaderChange(event) {
				w.log.Info("shader changed, rebuilding", "file", event.Name, "op", event.Op.String())
				w.rebuild.MarkResized()
			}
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.log.Warn("shader watcher", "err", err)
		}
	}
}

// IsShaderChange reports whether event changes the contents of a .spv file.
func IsShaderChange(event fsnotify.Event) bool {
	if filepath.Ext(event.Name) != ".spv" {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename)
}

// Close stops the watcher and waits for its goroutine.
func (w *ShaderWatcher) Close() error {
	close(w.done)
	err := w.watcher.Close()
	w.wg.Wait()
	return err
}
