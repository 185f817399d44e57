// file: internal/cancel/file.go
package cancel

import (
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"

	"github.com/dkoosis/rpcwire/internal/logging"
)

// FileBackedSource wraps a Source whose cancellation can additionally be
// signaled out-of-process: a presence file at Path appearing causes an
// automatic Cancel, watched via fsnotify rather than polling. The sending
// side of the same protocol is a plain os.Create(Path) — this type only
// implements the observing/removing side.
type FileBackedSource struct {
	*Source
	path    string
	log     logging.Logger
	watcher *fsnotify.Watcher

	mu      sync.Mutex
	stopped bool
}

// NewFileBackedSource builds a Source that also self-cancels when path comes
// into existence. Watching begins immediately; call Dispose to stop watching
// and best-effort remove path.
func NewFileBackedSource(path string) (*FileBackedSource, error) {
	fs := &FileBackedSource{
		Source: NewSource(),
		path:   path,
		log:    logging.GetLogger("cancel.file"),
	}

	if _, err := os.Stat(path); err == nil {
		fs.Source.Cancel()
		return fs, nil
	}

	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	dir := filepath.Dir(path)
	if err := w.Add(dir); err != nil {
		w.Close()
		return nil, err
	}
	fs.watcher = w

	go fs.watch()
	return fs, nil
}

func (f *FileBackedSource) watch() {
	for {
		select {
		case ev, ok := <-f.watcher.Events:
			if !ok {
				return
			}
			if ev.Name == f.path && (ev.Op&(fsnotify.Create|fsnotify.Write) != 0) {
				f.Source.Cancel()
			}
		case err, ok := <-f.watcher.Errors:
			if !ok {
				return
			}
			f.log.Warn("file-backed cancellation watch error", "error", err)
		}
	}
}

// Dispose stops the watcher, best-effort removes the presence file, and
// retires the underlying Source.
func (f *FileBackedSource) Dispose() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	f.mu.Unlock()

	if f.watcher != nil {
		_ = f.watcher.Close()
	}
	_ = os.Remove(f.path)
	f.Source.Dispose()
}

// SignalFile is the sending-peer half of the protocol: creates the presence
// file at path so a remote FileBackedSource observing it self-cancels.
func SignalFile(path string) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	return file.Close()
}
