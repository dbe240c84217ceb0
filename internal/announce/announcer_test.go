package announce

import (
	"sync"
	"testing"

	"github.com/dgnsrekt/callboard/internal/speech"
)

// recordingSpeaker logs Speak and CancelAll calls in order.
type recordingSpeaker struct {
	mu    sync.Mutex
	calls []string
	said  []speech.Utterance
}

func (r *recordingSpeaker) Speak(u speech.Utterance) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "speak")
	r.said = append(r.said, u)
}

func (r *recordingSpeaker) CancelAll() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, "cancel")
}

func TestAnnounceWhileLocked(t *testing.T) {
	sp := &recordingSpeaker{}
	a := New(sp, "en-US", 1)

	a.Announce("Ana Lima", "3")

	if len(sp.calls) != 0 {
		t.Errorf("locked announcer touched the speaker: %v", sp.calls)
	}
	if !a.Locked() || a.State() != Locked {
		t.Errorf("state = %v, want locked", a.State())
	}
}

func TestRequestUnlockPrimesOnce(t *testing.T) {
	sp := &recordingSpeaker{}
	a := New(sp, "pt-BR", 0.8)

	if !a.RequestUnlock() {
		t.Fatal("first RequestUnlock() = false")
	}
	if a.RequestUnlock() {
		t.Error("second RequestUnlock() = true")
	}

	if len(sp.said) != 1 {
		t.Fatalf("spoke %d utterances, want one primer", len(sp.said))
	}
	want := speech.Utterance{Text: " ", Locale: "pt-BR", Volume: 0}
	if sp.said[0] != want {
		t.Errorf("primer = %+v, want %+v", sp.said[0], want)
	}
	if a.Locked() || a.State() != Unlocked {
		t.Errorf("state = %v, want unlocked", a.State())
	}
}

func TestAnnounceCancelsThenSpeaks(t *testing.T) {
	sp := &recordingSpeaker{}
	a := New(sp, "en-US", 1)
	a.RequestUnlock()

	a.Announce("Alice", "1")
	a.Announce("Bob", "2")

	wantCalls := []string{"speak", "cancel", "speak", "cancel", "speak"}
	if len(sp.calls) != len(wantCalls) {
		t.Fatalf("calls = %v, want %v", sp.calls, wantCalls)
	}
	for i := range wantCalls {
		if sp.calls[i] != wantCalls[i] {
			t.Fatalf("calls = %v, want %v", sp.calls, wantCalls)
		}
	}

	want := []speech.Utterance{
		{Text: "Attention, Alice, room 1", Locale: "en-US", Volume: 1},
		{Text: "Attention, Bob, room 2", Locale: "en-US", Volume: 1},
	}
	for i, u := range want {
		if sp.said[i+1] != u {
			t.Errorf("utterance %d = %+v, want %+v", i, sp.said[i+1], u)
		}
	}
}

func TestNoReplayAfterUnlock(t *testing.T) {
	sp := &recordingSpeaker{}
	a := New(sp, "en-US", 1)

	a.Announce("Carlos Dias", "5")
	a.RequestUnlock()

	if len(sp.said) != 1 || sp.said[0].Text != " " {
		t.Errorf("said = %+v, want only the primer", sp.said)
	}
}

func TestGateConcurrentUnlock(t *testing.T) {
	var g Gate
	var wg sync.WaitGroup
	var mu sync.Mutex
	won := 0

	for range 16 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if g.Unlock() {
				mu.Lock()
				won++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if won != 1 {
		t.Errorf("%d goroutines performed the transition, want 1", won)
	}
	if g.State().String() != "unlocked" {
		t.Errorf("State() = %v", g.State())
	}
}
