package speech

import (
	"context"
	"sync"
	"testing"
	"time"
)

// fakeEngine returns one sample per byte of text. When block is set it waits
// for the context to be cancelled or release to be closed.
type fakeEngine struct {
	mu      sync.Mutex
	texts   []string
	block   bool
	release chan struct{}
	started chan string
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{release: make(chan struct{}), started: make(chan string, 16)}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Synthesize(ctx context.Context, text, _ string) (*Audio, error) {
	e.mu.Lock()
	e.texts = append(e.texts, text)
	block := e.block
	e.mu.Unlock()

	e.started <- text
	if block {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-e.release:
		}
	}
	return &Audio{PCM: make([]byte, 2*len(text)+2), SampleRate: 22050, Channels: 1}, nil
}

func (e *fakeEngine) calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.texts...)
}

// fakePlayer finishes playback only when Stop is called.
type fakePlayer struct {
	mu      sync.Mutex
	plays   []float64
	sizes   []int
	playing bool
	stops   int
	closed  bool
}

func (p *fakePlayer) Play(pcm []byte, volume float64) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.plays = append(p.plays, volume)
	p.sizes = append(p.sizes, len(pcm))
	p.playing = true
	return nil
}

func (p *fakePlayer) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
	p.stops++
	return nil
}

func (p *fakePlayer) finish() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.playing = false
}

func (p *fakePlayer) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.playing
}

func (p *fakePlayer) SampleRate() int { return 22050 }

func (p *fakePlayer) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.closed = true
	return nil
}

func (p *fakePlayer) playCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.plays)
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestSynth_SpeaksThroughEngine(t *testing.T) {
	engine := newFakeEngine()
	player := &fakePlayer{}
	s := NewSynth(engine, player)
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: "Attention, Ana Lima, room 7", Locale: "en-US", Volume: 1})

	waitFor(t, func() bool { return player.playCount() == 1 })
	if got := engine.calls(); len(got) != 1 || got[0] != "Attention, Ana Lima, room 7" {
		t.Errorf("unexpected engine calls: %v", got)
	}
}

func TestSynth_PrimerSkipsEngine(t *testing.T) {
	engine := newFakeEngine()
	player := &fakePlayer{}
	s := NewSynth(engine, player)
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: " ", Locale: "en-US", Volume: 0})

	waitFor(t, func() bool { return player.playCount() == 1 })
	if got := engine.calls(); len(got) != 0 {
		t.Errorf("primer should not reach the engine, got %v", got)
	}

	player.mu.Lock()
	defer player.mu.Unlock()
	if player.plays[0] != 0 {
		t.Errorf("primer volume = %v, want 0", player.plays[0])
	}
	if want := 22050 / 10 * 2; player.sizes[0] != want {
		t.Errorf("primer size = %d bytes, want %d", player.sizes[0], want)
	}
}

func TestSynth_PlaysQueuedInOrder(t *testing.T) {
	engine := newFakeEngine()
	player := &fakePlayer{}
	s := NewSynth(engine, player)
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: "one", Volume: 1})
	s.Speak(Utterance{Text: "two", Volume: 1})

	waitFor(t, func() bool { return player.playCount() == 1 })
	// The second utterance waits for the first to finish.
	time.Sleep(50 * time.Millisecond)
	if n := player.playCount(); n != 1 {
		t.Fatalf("second utterance started early: %d plays", n)
	}

	player.finish()
	waitFor(t, func() bool { return player.playCount() == 2 })
	if got := engine.calls(); len(got) != 2 || got[0] != "one" || got[1] != "two" {
		t.Errorf("unexpected order: %v", got)
	}
}

func TestSynth_CancelAllDropsPendingWork(t *testing.T) {
	engine := newFakeEngine()
	engine.block = true
	player := &fakePlayer{}
	s := NewSynth(engine, player)
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: "Attention, Alice, room 101", Volume: 1})
	<-engine.started
	s.Speak(Utterance{Text: "queued", Volume: 1})

	s.CancelAll()

	engine.mu.Lock()
	engine.block = false
	engine.mu.Unlock()

	s.Speak(Utterance{Text: "Attention, Bob, room 102", Volume: 1})
	waitFor(t, func() bool { return player.playCount() == 1 })

	time.Sleep(50 * time.Millisecond)
	if n := player.playCount(); n != 1 {
		t.Errorf("expected only the last utterance to play, got %d plays", n)
	}
	for _, text := range engine.calls() {
		if text == "queued" {
			t.Error("queued utterance reached the engine after CancelAll")
		}
	}
}

func TestSynth_CancelAllStopsPlayback(t *testing.T) {
	player := &fakePlayer{}
	s := NewSynth(newFakeEngine(), player)
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: "long announcement", Volume: 1})
	waitFor(t, player.IsPlaying)

	s.CancelAll()
	if player.IsPlaying() {
		t.Error("player still playing after CancelAll")
	}
}

func TestSynth_Close(t *testing.T) {
	player := &fakePlayer{}
	s := NewSynth(newFakeEngine(), player)

	if err := s.Close(); err != nil {
		t.Fatalf("Close failed: %v", err)
	}
	if err := s.Close(); err != nil {
		t.Fatalf("second Close failed: %v", err)
	}
	if !player.closed {
		t.Error("player not closed")
	}

	s.Speak(Utterance{Text: "ignored", Volume: 1})
	if n := player.playCount(); n != 0 {
		t.Errorf("closed synth played %d utterances", n)
	}
}

func TestSynth_QueueFullDrops(t *testing.T) {
	engine := newFakeEngine()
	engine.block = true
	player := &fakePlayer{}
	s := NewSynth(engine, player, WithQueueSize(1))
	defer s.Close() //nolint:errcheck

	s.Speak(Utterance{Text: "first", Volume: 1})
	<-engine.started
	s.Speak(Utterance{Text: "second", Volume: 1})
	s.Speak(Utterance{Text: "third", Volume: 1}) // dropped

	close(engine.release)
	waitFor(t, func() bool { return player.playCount() == 1 })
	player.finish()
	waitFor(t, func() bool { return player.playCount() == 2 })
	player.finish()

	time.Sleep(50 * time.Millisecond)
	if got := engine.calls(); len(got) != 2 {
		t.Errorf("expected 2 engine calls, got %v", got)
	}
}
