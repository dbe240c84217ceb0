package store

import (
	"fmt"
	"path/filepath"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/fsnotify/fsnotify"
)

// DefaultSettle is how long the watcher waits for a burst of file events to
// end before notifying subscribers.
const DefaultSettle = 50 * time.Millisecond

const changeOps = fsnotify.Write | fsnotify.Create | fsnotify.Remove | fsnotify.Rename

// Watcher delivers change notifications for keys of a Store.
type Watcher struct {
	store   *Store
	settle  time.Duration
	watcher *fsnotify.Watcher

	mu     sync.Mutex
	subs   map[string]map[int]func()
	nextID int

	pending map[string]*time.Timer
	done    chan struct{}
	wg      sync.WaitGroup
}

// NewWatcher starts watching the store directory. A zero settle uses
// DefaultSettle.
func NewWatcher(s *Store, settle time.Duration) (*Watcher, error) {
	if settle <= 0 {
		settle = DefaultSettle
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("error creating fsnotify watcher: %w", err)
	}
	if err := fw.Add(s.Dir()); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("error adding dir to fsnotify watcher: %w", err)
	}
	log.Info("fsnotify watching dir", "dir", s.Dir())

	w := &Watcher{
		store:   s,
		settle:  settle,
		watcher: fw,
		subs:    make(map[string]map[int]func()),
		pending: make(map[string]*time.Timer),
		done:    make(chan struct{}),
	}

	w.wg.Add(1)
	go w.loop()
	return w, nil
}

// Subscribe registers fn to run after key changes. The returned function
// removes the subscription and may be called more than once.
func (w *Watcher) Subscribe(key string, fn func()) (func(), error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	select {
	case <-w.done:
		return nil, fmt.Errorf("watcher closed")
	default:
	}

	if w.subs[key] == nil {
		w.subs[key] = make(map[int]func())
	}
	id := w.nextID
	w.nextID++
	w.subs[key][id] = fn

	var once sync.Once
	return func() {
		once.Do(func() {
			w.mu.Lock()
			defer w.mu.Unlock()
			delete(w.subs[key], id)
			if len(w.subs[key]) == 0 {
				delete(w.subs, key)
			}
		})
	}, nil
}

// Close stops watching. Pending notifications are discarded.
func (w *Watcher) Close() error {
	w.mu.Lock()
	select {
	case <-w.done:
		w.mu.Unlock()
		return nil
	default:
	}
	close(w.done)
	for key, t := range w.pending {
		t.Stop()
		delete(w.pending, key)
	}
	w.mu.Unlock()

	err := w.watcher.Close()
	w.wg.Wait()
	if err == nil {
		log.Debug("fsnotify dir unwatched", "dir", w.store.Dir())
	}
	return err
}

func (w *Watcher) loop() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if !event.Has(changeOps) {
				continue
			}
			key, ok := w.keyFor(event.Name)
			if !ok {
				continue
			}
			log.Debug("fsnotify event", "file", event.Name, "event", event.Op)
			w.schedule(key)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			log.Debug("fsnotify error", "dir", w.store.Dir(), "error", err)
		}
	}
}

// keyFor maps an event path back to a subscribed key.
func (w *Watcher) keyFor(name string) (string, bool) {
	if filepath.Dir(name) != w.store.Dir() || filepath.Ext(name) != fileExt {
		return "", false
	}
	key := filepath.Base(name)
	key = key[:len(key)-len(fileExt)]

	w.mu.Lock()
	defer w.mu.Unlock()
	_, ok := w.subs[key]
	return key, ok
}

// schedule coalesces events for key; subscribers run once the burst settles.
func (w *Watcher) schedule(key string) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if t, ok := w.pending[key]; ok {
		t.Reset(w.settle)
		return
	}
	w.pending[key] = time.AfterFunc(w.settle, func() { w.fire(key) })
}

func (w *Watcher) fire(key string) {
	w.mu.Lock()
	delete(w.pending, key)
	select {
	case <-w.done:
		w.mu.Unlock()
		return
	default:
	}
	fns := make([]func(), 0, len(w.subs[key]))
	for _, fn := range w.subs[key] {
		fns = append(fns, fn)
	}
	w.mu.Unlock()

	for _, fn := range fns {
		fn()
	}
}
