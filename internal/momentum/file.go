package momentum

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"balancer/internal/logger"

	"github.com/fsnotify/fsnotify"
)

// AverageFile caches the trailing daily average price maintained by the
// mayer service. A filesystem watch refreshes the cache when the service
// rewrites the file, so reads stay cheap inside the decision cycle.
type AverageFile struct {
	path string

	mu      sync.RWMutex
	value   float64
	watcher *fsnotify.Watcher
	done    chan struct{}
}

func NewAverageFile(path string) *AverageFile {
	a := &AverageFile{path: path, done: make(chan struct{})}
	a.reload()
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		logger.Warnf("Cannot watch average file, falling back to per-read loads: %v", err)
		return a
	}
	// The file is replaced atomically by rename, so the watch must sit on
	// the parent directory rather than on the file itself.
	if err := watcher.Add(filepath.Dir(path)); err != nil {
		logger.Warnf("Cannot watch %s: %v", filepath.Dir(path), err)
		watcher.Close()
		return a
	}
	a.watcher = watcher
	go a.watch()
	return a
}

// Average returns the cached average price, zero when none is known.
func (a *AverageFile) Average() float64 {
	if a.watcher == nil {
		a.reload()
	}
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.value
}

func (a *AverageFile) Close() error {
	close(a.done)
	if a.watcher != nil {
		return a.watcher.Close()
	}
	return nil
}

func (a *AverageFile) watch() {
	for {
		select {
		case event, ok := <-a.watcher.Events:
			if !ok {
				return
			}
			if event.Name != a.path {
				continue
			}
			if event.Has(fsnotify.Write) || event.Has(fsnotify.Create) || event.Has(fsnotify.Rename) {
				a.reload()
			}
		case err, ok := <-a.watcher.Errors:
			if !ok {
				return
			}
			logger.Warnf("Average file watch error: %v", err)
		case <-a.done:
			return
		}
	}
}

func (a *AverageFile) reload() {
	raw, err := os.ReadFile(a.path)
	if err != nil {
		if !os.IsNotExist(err) {
			logger.Warnf("Cannot read average file %s: %v", a.path, err)
		}
		return
	}
	value, err := strconv.ParseFloat(strings.TrimSpace(string(raw)), 64)
	if err != nil {
		logger.Warnf("Unparsable average in %s: %v", a.path, err)
		return
	}
	a.mu.Lock()
	a.value = value
	a.mu.Unlock()
}
