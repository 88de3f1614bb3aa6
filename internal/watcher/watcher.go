// Package watcher reports font files dropped into a watched folder.
package watcher

import (
	"context"
	"io/fs"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/charlievieth/fastwalk"
	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"

	"github.com/lumipallolabs/fontdrop/internal/model"
)

const tickInterval = 100 * time.Millisecond

// Watcher collects created or modified font and zip files below a root and
// emits them in batches once the folder has been quiet for the debounce time
type Watcher struct {
	fs       *fsnotify.Watcher
	debounce time.Duration
	log      zerolog.Logger

	mu         sync.Mutex
	pending    map[string]struct{}
	lastChange time.Time

	batches chan []string
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	once    sync.Once
}

// New creates a watcher
func New(debounce time.Duration, log zerolog.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithCancel(context.Background())
	return &Watcher{
		fs:       fw,
		debounce: debounce,
		log:      log,
		pending:  make(map[string]struct{}),
		batches:  make(chan []string, 16),
		ctx:      ctx,
		cancel:   cancel,
	}, nil
}

// Batches returns the channel of sorted file batches. It is closed by Stop.
func (w *Watcher) Batches() <-chan []string {
	return w.batches
}

// AddRecursive watches root and every directory below it
func (w *Watcher) AddRecursive(root string) error {
	if err := w.fs.Add(root); err != nil {
		return err
	}
	return w.addTree(root, false)
}

// addTree adds directories below dir. With collect set, font files already
// present are queued too, for folders that were moved in whole.
func (w *Watcher) addTree(dir string, collect bool) error {
	conf := &fastwalk.Config{Follow: false}
	return fastwalk.Walk(conf, dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // Skip entries with errors
		}
		if d.IsDir() {
			if path != dir {
				if err := w.fs.Add(path); err != nil {
					w.log.Debug().Err(err).Str("dir", path).Msg("failed to watch directory")
				}
			}
			return nil
		}
		if collect {
			w.queue(path)
		}
		return nil
	})
}

// Start begins processing events
func (w *Watcher) Start() {
	w.wg.Add(2)
	go w.processEvents()
	go w.processPending()
}

func (w *Watcher) processEvents() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return

		case event, ok := <-w.fs.Events:
			if !ok {
				return
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}

			info, err := os.Stat(event.Name)
			if err != nil {
				continue
			}
			if info.IsDir() {
				if event.Has(fsnotify.Create) {
					if err := w.fs.Add(event.Name); err != nil {
						w.log.Debug().Err(err).Str("dir", event.Name).Msg("failed to watch directory")
					}
					_ = w.addTree(event.Name, true)
				}
				continue
			}
			w.queue(event.Name)

		case err, ok := <-w.fs.Errors:
			if !ok {
				return
			}
			w.log.Warn().Err(err).Msg("watch error")
		}
	}
}

func (w *Watcher) queue(path string) {
	if !model.IsFontName(path) && !model.IsArchiveName(path) {
		return
	}
	w.mu.Lock()
	w.pending[path] = struct{}{}
	w.lastChange = time.Now()
	w.mu.Unlock()
}

// processPending flushes the pending set once no change arrived for debounce
func (w *Watcher) processPending() {
	defer w.wg.Done()

	ticker := time.NewTicker(tickInterval)
	defer ticker.Stop()

	for {
		select {
		case <-w.ctx.Done():
			return
		case now := <-ticker.C:
			batch := w.take(now)
			if len(batch) == 0 {
				continue
			}
			w.log.Debug().Int("files", len(batch)).Msg("drop batch ready")
			select {
			case w.batches <- batch:
			case <-w.ctx.Done():
				return
			}
		}
	}
}

// take returns the pending files that still exist if the folder is quiet
func (w *Watcher) take(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	if len(w.pending) == 0 || now.Sub(w.lastChange) < w.debounce {
		return nil
	}

	var batch []string
	for path := range w.pending {
		if info, err := os.Stat(path); err == nil && info.Mode().IsRegular() {
			batch = append(batch, path)
		}
	}
	w.pending = make(map[string]struct{})
	sort.Strings(batch)
	return batch
}

// Stop stops the watcher and closes the batch channel
func (w *Watcher) Stop() error {
	var err error
	w.once.Do(func() {
		w.cancel()
		err = w.fs.Close()
		w.wg.Wait()
		close(w.batches)
	})
	return err
}
