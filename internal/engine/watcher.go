package engine

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"

	"github.com/revet-dev/revet/internal/discovery"
)

// DefaultDebounce is how long the watcher waits after the last filesystem
// event before starting a run. Editors often write a file several times in
// quick succession; one run covers the whole burst.
const DefaultDebounce = 200 * time.Millisecond

// Watcher re-reviews the workspace whenever tracked files change. Results
// stream on Results; a run superseded by newer events is discarded before
// it reaches the channel.
type Watcher struct {
	engine   *Engine
	fsw      *fsnotify.Watcher
	debounce time.Duration

	results chan *Result
	kick    chan struct{}

	mu    sync.Mutex
	timer *time.Timer

	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// NewWatcher creates a watcher over the engine's root. debounce <= 0 uses
// DefaultDebounce.
func NewWatcher(e *Engine, debounce time.Duration) (*Watcher, error) {
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	fsw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("creating filesystem watcher: %w", err)
	}

	walker, err := discovery.New(e.Root(), e.Dispatcher().SupportedExtensions(), e.cfg.Ignore.Paths)
	if err != nil {
		fsw.Close()
		return nil, err
	}
	dirs, err := walker.Dirs()
	if err != nil {
		fsw.Close()
		return nil, err
	}
	for _, dir := range dirs {
		if err := fsw.Add(dir); err != nil {
			log.Printf("Warning: cannot watch %s: %v", dir, err)
		}
	}

	return &Watcher{
		engine:   e,
		fsw:      fsw,
		debounce: debounce,
		results:  make(chan *Result, 1),
		kick:     make(chan struct{}, 1),
	}, nil
}

// Results delivers completed runs. The channel closes when the watcher stops.
func (w *Watcher) Results() <-chan *Result { return w.results }

// Start begins watching. It runs an initial review immediately so the
// baseline reflects the workspace at watch start.
func (w *Watcher) Start(ctx context.Context) {
	ctx, w.cancel = context.WithCancel(ctx)

	w.wg.Add(2)
	go w.eventLoop(ctx)
	go w.reviewLoop(ctx)

	w.schedule()
}

// Stop shuts the watcher down and waits for in-flight work to finish.
func (w *Watcher) Stop() {
	if w.cancel != nil {
		w.cancel()
	}
	w.fsw.Close()

	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.mu.Unlock()

	w.wg.Wait()
	close(w.results)
}

// schedule arms the debounce timer, resetting it if already armed. The
// timer callback only signals the review loop; it never runs a review
// itself, so a slow run cannot pile up timer goroutines.
func (w *Watcher) schedule() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		select {
		case w.kick <- struct{}{}:
		default:
		}
	})
}

func (w *Watcher) eventLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case event, ok := <-w.fsw.Events:
			if !ok {
				return
			}
			if w.relevant(event) {
				w.schedule()
			}
		case err, ok := <-w.fsw.Errors:
			if !ok {
				return
			}
			log.Printf("Warning: watch error: %v", err)
		}
	}
}

func (w *Watcher) reviewLoop(ctx context.Context) {
	defer w.wg.Done()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.kick:
			result, err := w.engine.Review(ctx)
			if err != nil {
				log.Printf("Warning: review failed: %v", err)
				continue
			}
			if result.Superseded {
				continue
			}
			select {
			case w.results <- result:
			case <-ctx.Done():
				return
			}
		}
	}
}

// relevant filters events down to tracked source files, and registers
// watches on newly created directories.
func (w *Watcher) relevant(event fsnotify.Event) bool {
	if event.Op&(fsnotify.Create|fsnotify.Write|fsnotify.Remove|fsnotify.Rename) == 0 {
		return false
	}

	name := filepath.Base(event.Name)
	if name == "" || name[0] == '.' {
		return false
	}

	if event.Op&fsnotify.Create != 0 {
		if info, err := os.Stat(event.Name); err == nil && info.IsDir() {
			if err := w.fsw.Add(event.Name); err != nil {
				log.Printf("Warning: cannot watch %s: %v", event.Name, err)
			}
			return true
		}
	}

	return w.engine.Dispatcher().Supports(event.Name)
}
