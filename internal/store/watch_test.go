package store

import (
	"sync/atomic"
	"testing"
	"time"
)

func newTestWatcher(t *testing.T, settle time.Duration) (*Store, *Watcher) {
	t.Helper()
	s, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	w, err := NewWatcher(s, settle)
	if err != nil {
		t.Fatalf("NewWatcher failed: %v", err)
	}
	t.Cleanup(func() { _ = w.Close() })
	return s, w
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestWatcher_NotifiesSubscriber(t *testing.T) {
	s, w := newTestWatcher(t, 20*time.Millisecond)

	var count atomic.Int32
	unsubscribe, err := w.Subscribe(DefaultKey, func() { count.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	if err := s.Put(DefaultKey, []byte("[]")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	waitFor(t, func() bool { return count.Load() >= 1 })
}

func TestWatcher_IgnoresOtherKeys(t *testing.T) {
	s, w := newTestWatcher(t, 20*time.Millisecond)

	var count atomic.Int32
	unsubscribe, err := w.Subscribe(DefaultKey, func() { count.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	if err := s.Put("settings", []byte("{}")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := count.Load(); n != 0 {
		t.Errorf("expected no notification for another key, got %d", n)
	}
}

func TestWatcher_CoalescesBursts(t *testing.T) {
	s, w := newTestWatcher(t, 250*time.Millisecond)

	var count atomic.Int32
	unsubscribe, err := w.Subscribe(DefaultKey, func() { count.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	defer unsubscribe()

	for i := 0; i < 5; i++ {
		if err := s.Put(DefaultKey, []byte("[]")); err != nil {
			t.Fatalf("Put failed: %v", err)
		}
	}

	waitFor(t, func() bool { return count.Load() >= 1 })
	time.Sleep(500 * time.Millisecond)
	if n := count.Load(); n != 1 {
		t.Errorf("expected one notification for the burst, got %d", n)
	}
}

func TestWatcher_Unsubscribe(t *testing.T) {
	s, w := newTestWatcher(t, 20*time.Millisecond)

	var count atomic.Int32
	unsubscribe, err := w.Subscribe(DefaultKey, func() { count.Add(1) })
	if err != nil {
		t.Fatalf("Subscribe failed: %v", err)
	}
	unsubscribe()
	unsubscribe() // idempotent

	if err := s.Put(DefaultKey, []byte("[]")); err != nil {
		t.Fatalf("Put failed: %v", err)
	}

	time.Sleep(200 * time.Millisecond)
	if n := count.Load(); n != 0 {
		t.Errorf("expected no notification after unsubscribe, got %d", n)
	}
}

func TestWatcher_SubscribeAfterClose(t *testing.T) {
	_, w := newTestWatcher(t, 20*time.Millisecond)
	if err := w.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if _, err := w.Subscribe(DefaultKey, func() {}); err == nil {
		t.Error("expected error subscribing to a closed watcher")
	}
}
