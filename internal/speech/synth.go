package speech

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DefaultQueueSize bounds the utterances waiting behind the one playing.
	DefaultQueueSize = 8

	primerDuration = 100 * time.Millisecond
	pollInterval   = 20 * time.Millisecond
)

type job struct {
	u   Utterance
	gen uint64
}

// Synth is a Speaker that synthesizes utterances with an Engine and plays
// them one at a time on a Player.
type Synth struct {
	engine Engine
	player Player
	logger *log.Logger

	queue chan job
	gen   atomic.Uint64

	// mu orders CancelAll against the worker starting playback.
	mu            sync.Mutex
	cancelCurrent context.CancelFunc

	ctx    context.Context
	stop   context.CancelFunc
	done   chan struct{}
	closed atomic.Bool
}

// SynthOption configures a Synth.
type SynthOption func(*Synth)

// WithQueueSize sets how many utterances may wait behind the one playing.
func WithQueueSize(n int) SynthOption {
	return func(s *Synth) {
		if n > 0 {
			s.queue = make(chan job, n)
		}
	}
}

// NewSynth starts a Synth worker. Close must be called to stop it.
func NewSynth(engine Engine, player Player, opts ...SynthOption) *Synth {
	ctx, stop := context.WithCancel(context.Background())
	s := &Synth{
		engine: engine,
		player: player,
		logger: log.WithPrefix("speech"),
		queue:  make(chan job, DefaultQueueSize),
		ctx:    ctx,
		stop:   stop,
		done:   make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}

	go s.run()
	return s
}

// Speak enqueues u. When the queue is full the utterance is dropped.
func (s *Synth) Speak(u Utterance) {
	if s.closed.Load() {
		return
	}
	select {
	case s.queue <- job{u: u, gen: s.gen.Load()}:
	default:
		s.logger.Warn("speech queue full, dropping utterance", "text", u.Text)
	}
}

// CancelAll invalidates every queued utterance, aborts synthesis in flight
// and stops playback. It does not wait for the engine.
func (s *Synth) CancelAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.gen.Add(1)
	if s.cancelCurrent != nil {
		s.cancelCurrent()
		s.cancelCurrent = nil
	}
	if err := s.player.Stop(); err != nil {
		s.logger.Error("failed to stop playback", "error", err)
	}

	for {
		select {
		case <-s.queue:
		default:
			return
		}
	}
}

// Close stops the worker and releases the player.
func (s *Synth) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	s.CancelAll()
	s.stop()
	<-s.done
	return s.player.Close()
}

func (s *Synth) run() {
	defer close(s.done)
	for {
		select {
		case <-s.ctx.Done():
			return
		case j := <-s.queue:
			s.speak(j)
		}
	}
}

func (s *Synth) speak(j job) {
	if j.gen != s.gen.Load() {
		return
	}

	pcm, ok := s.render(j)
	if !ok {
		return
	}

	s.mu.Lock()
	if j.gen != s.gen.Load() {
		s.mu.Unlock()
		return
	}
	err := s.player.Play(pcm, j.u.Volume)
	s.mu.Unlock()
	if err != nil {
		s.logger.Error("playback failed", "error", err)
		return
	}
	s.logger.Debug("speaking", "text", j.u.Text, "locale", j.u.Locale, "volume", j.u.Volume)

	s.wait(j.gen)
}

// render produces player-ready PCM for j. Zero-volume utterances become a
// short silence so opening the device never depends on the engine.
func (s *Synth) render(j job) ([]byte, bool) {
	if j.u.Volume <= 0 {
		return silence(s.player.SampleRate(), primerDuration), true
	}

	ctx, cancel := context.WithCancel(s.ctx)
	defer cancel()

	s.mu.Lock()
	if j.gen != s.gen.Load() {
		s.mu.Unlock()
		return nil, false
	}
	s.cancelCurrent = cancel
	s.mu.Unlock()

	audio, err := s.engine.Synthesize(ctx, j.u.Text, j.u.Locale)

	s.mu.Lock()
	s.cancelCurrent = nil
	s.mu.Unlock()

	if err != nil {
		if ctx.Err() == nil {
			s.logger.Error("synthesis failed", "engine", s.engine.Name(), "error", err)
		}
		return nil, false
	}

	pcm := toMono16(audio, s.player.SampleRate())
	if len(pcm) == 0 {
		s.logger.Warn("engine returned no audio", "engine", s.engine.Name())
		return nil, false
	}
	return pcm, true
}

// wait blocks until playback finishes or the utterance is cancelled.
func (s *Synth) wait(gen uint64) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.ctx.Done():
			return
		case <-ticker.C:
			if gen != s.gen.Load() || !s.player.IsPlaying() {
				return
			}
		}
	}
}
