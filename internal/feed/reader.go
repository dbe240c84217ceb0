// Package feed reads the shared call list, derives what the board shows and
// announces a call whenever the current one changes.
package feed

import (
	"errors"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/calls"
)

// Store is the read side of the shared store.
type Store interface {
	// Get returns the raw value for key, or nil when the key is absent.
	Get(key string) ([]byte, error)
}

// Notifier delivers a callback whenever key changes.
type Notifier interface {
	Subscribe(key string, fn func()) (unsubscribe func(), err error)
}

// Announcer speaks a newly current call.
type Announcer interface {
	Announce(name, room string)
}

// Reader follows one key of the store.
type Reader struct {
	store     Store
	key       string
	announcer Announcer
	logger    *log.Logger

	mu       sync.Mutex
	previous *calls.Record
	view     calls.View
	listener func(calls.View)

	subMu       sync.Mutex
	unsubscribe func()
}

// New creates a Reader for key. Nothing is read until Refresh or Activate.
func New(store Store, key string, announcer Announcer) *Reader {
	return &Reader{
		store:     store,
		key:       key,
		announcer: announcer,
		logger:    log.WithPrefix("feed"),
		view:      calls.DeriveView(nil),
	}
}

// ReadSnapshot returns the stored call list, newest first. Missing,
// unreadable and malformed content all read as an empty list.
func (r *Reader) ReadSnapshot() []calls.Record {
	data, err := r.store.Get(r.key)
	if err != nil {
		r.logger.Warn("failed to read calls", "key", r.key, "error", err)
		return nil
	}
	snapshot, err := calls.DecodeSnapshot(data)
	if err != nil {
		r.logger.Warn("ignoring malformed calls", "key", r.key, "error", err)
		return nil
	}
	return snapshot
}

// Refresh re-reads the store, announces the current call if it differs from
// the previous one and publishes the new view.
func (r *Reader) Refresh() calls.View {
	r.mu.Lock()
	defer r.mu.Unlock()

	view := calls.DeriveView(r.ReadSnapshot())
	changed := !calls.SameCall(r.previous, view.Current)
	r.previous = view.Current
	r.view = view

	if changed && view.Current != nil {
		r.logger.Debug("current call changed", "name", view.Current.Name, "room", view.Current.Room)
		r.announcer.Announce(view.Current.Name, view.Current.Room)
	}
	if r.listener != nil {
		r.listener(view)
	}
	return view
}

// View returns the most recently derived view.
func (r *Reader) View() calls.View {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.view
}

// OnView sets the function receiving every derived view.
func (r *Reader) OnView(fn func(calls.View)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.listener = fn
}

// Activate subscribes to changes of the key and refreshes once. Activating
// an active Reader does nothing.
func (r *Reader) Activate(n Notifier) error {
	if n == nil {
		return errors.New("feed: nil notifier")
	}

	r.subMu.Lock()
	if r.unsubscribe != nil {
		r.subMu.Unlock()
		return nil
	}
	unsubscribe, err := n.Subscribe(r.key, func() { r.Refresh() })
	if err != nil {
		r.subMu.Unlock()
		return err
	}
	r.unsubscribe = unsubscribe
	r.subMu.Unlock()

	r.Refresh()
	return nil
}

// Deactivate releases the subscription. It is safe to call more than once.
func (r *Reader) Deactivate() {
	r.subMu.Lock()
	defer r.subMu.Unlock()

	if r.unsubscribe != nil {
		r.unsubscribe()
		r.unsubscribe = nil
	}
}
