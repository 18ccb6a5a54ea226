// Package watch re-runs a callback when StructureDefinition sources change.
package watch

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

// DefaultDelay is the debounce delay between the last change and the
// callback.
const DefaultDelay = 100 * time.Millisecond

// FileWatcher monitors source files and triggers a callback with the
// changed files once changes settle.
type FileWatcher struct {
	watcher   *fsnotify.Watcher
	debouncer *Debouncer
	log       *zap.Logger
	patterns  []string
	ignored   []string
	onChange  func([]string) error

	mu    sync.Mutex
	dirs  map[string]bool
	files map[string]bool

	stopOnce sync.Once
	stopChan chan struct{}
	wg       sync.WaitGroup
}

// NewFileWatcher creates a new file watcher. Patterns restrict the files
// of watched directories (for example "*.json"); ignored patterns are
// matched against base names. A nil logger disables logging.
func NewFileWatcher(patterns, ignored []string, log *zap.Logger, onChange func([]string) error) (*FileWatcher, error) {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	fw := &FileWatcher{
		watcher:   w,
		debouncer: NewDebouncer(DefaultDelay),
		log:       log,
		patterns:  patterns,
		ignored:   ignored,
		onChange:  onChange,
		dirs:      make(map[string]bool),
		files:     make(map[string]bool),
		stopChan:  make(chan struct{}),
	}
	fw.debouncer.SetCallback(func(files []string) {
		if err := fw.onChange(files); err != nil {
			fw.log.Error("handling file changes", zap.Strings("files", files), zap.Error(err))
		}
	})
	return fw, nil
}

// Add watches the given paths. A directory is watched for every matching
// file; a file is watched through its parent directory so that editors
// replacing the file are noticed.
func (fw *FileWatcher) Add(paths ...string) error {
	fw.mu.Lock()
	defer fw.mu.Unlock()
	for _, p := range paths {
		p = filepath.Clean(p)
		info, err := os.Stat(p)
		if err != nil {
			return fmt.Errorf("failed to watch %s: %w", p, err)
		}
		dir := p
		if info.IsDir() {
			fw.dirs[p] = true
		} else {
			fw.files[p] = true
			dir = filepath.Dir(p)
		}
		if err := fw.watcher.Add(dir); err != nil {
			return fmt.Errorf("failed to watch directory %s: %w", dir, err)
		}
		fw.log.Debug("watching", zap.String("path", p))
	}
	return nil
}

// Start begins watching in the background.
func (fw *FileWatcher) Start() {
	fw.wg.Add(1)
	go fw.watch()
}

// Run starts the watcher and blocks until ctx is done.
func (fw *FileWatcher) Run(ctx context.Context) error {
	fw.Start()
	<-ctx.Done()
	return fw.Stop()
}

// Stop stops the file watcher. It is safe to call more than once.
func (fw *FileWatcher) Stop() error {
	var err error
	fw.stopOnce.Do(func() {
		close(fw.stopChan)
		fw.wg.Wait()
		fw.debouncer.Stop()
		err = fw.watcher.Close()
	})
	return err
}

func (fw *FileWatcher) watch() {
	defer fw.wg.Done()
	for {
		select {
		case event, ok := <-fw.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			if fw.relevant(event.Name) {
				fw.log.Debug("file changed", zap.String("file", event.Name), zap.Stringer("op", event.Op))
				fw.debouncer.Add(event.Name)
			}
		case err, ok := <-fw.watcher.Errors:
			if !ok {
				return
			}
			fw.log.Warn("watch error", zap.Error(err))
		case <-fw.stopChan:
			return
		}
	}
}

// relevant reports whether a change of the named file should trigger the
// callback.
func (fw *FileWatcher) relevant(name string) bool {
	name = filepath.Clean(name)
	if fw.shouldIgnore(name) {
		return false
	}
	fw.mu.Lock()
	defer fw.mu.Unlock()
	if fw.files[name] {
		return true
	}
	return fw.dirs[filepath.Dir(name)] && fw.matchesPattern(name)
}

// shouldIgnore checks if a file path should be ignored.
func (fw *FileWatcher) shouldIgnore(path string) bool {
	base := filepath.Base(path)
	if strings.HasPrefix(base, ".") {
		return true
	}
	for _, pattern := range fw.ignored {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// matchesPattern checks if a file matches any of the watch patterns.
func (fw *FileWatcher) matchesPattern(path string) bool {
	if len(fw.patterns) == 0 {
		return true
	}
	base := filepath.Base(path)
	for _, pattern := range fw.patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}

// Debouncer collects file changes and triggers callbacks after a delay.
type Debouncer struct {
	duration time.Duration
	timer    *time.Timer
	files    map[string]struct{}
	mutex    sync.Mutex
	callback func([]string)
	stopped  bool
}

// NewDebouncer creates a new debouncer instance.
func NewDebouncer(duration time.Duration) *Debouncer {
	return &Debouncer{
		duration: duration,
		files:    make(map[string]struct{}),
	}
}

// Add adds a file to the debouncer and restarts the delay.
func (d *Debouncer) Add(file string) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.stopped {
		return
	}
	d.files[file] = struct{}{}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.duration, d.flush)
}

// flush triggers the callback with the accumulated files, sorted.
func (d *Debouncer) flush() {
	d.mutex.Lock()
	if d.stopped || len(d.files) == 0 {
		d.mutex.Unlock()
		return
	}
	files := make([]string, 0, len(d.files))
	for file := range d.files {
		files = append(files, file)
	}
	d.files = make(map[string]struct{})
	callback := d.callback
	d.mutex.Unlock()

	sort.Strings(files)
	if callback != nil {
		callback(files)
	}
}

// SetCallback sets the callback function.
func (d *Debouncer) SetCallback(callback func([]string)) {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	d.callback = callback
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mutex.Lock()
	defer d.mutex.Unlock()
	if d.timer != nil {
		d.timer.Stop()
	}
	d.stopped = true
}
