package audio

import (
	"bytes"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"
)

// ErrClosed is returned by Play after Close.
var ErrClosed = errors.New("player is closed")

// State is the playback state of a Player.
type State int32

// Player states.
const (
	StateStopped State = iota
	StatePlaying
	StateClosed
)

func (s State) String() string {
	switch s {
	case StateStopped:
		return "stopped"
	case StatePlaying:
		return "playing"
	case StateClosed:
		return "closed"
	default:
		return "unknown"
	}
}

// Config configures the output device.
type Config struct {
	SampleRate int           // mono samples per second
	BufferSize time.Duration // device buffer, zero for the driver default
}

// DefaultConfig matches the rate most Piper voices produce.
func DefaultConfig() Config {
	return Config{
		SampleRate: 22050,
		BufferSize: 100 * time.Millisecond,
	}
}

func (c Config) validate() error {
	if c.SampleRate < 8000 || c.SampleRate > 192000 {
		return fmt.Errorf("sample rate must be between 8000 and 192000 Hz, got %d", c.SampleRate)
	}
	if c.BufferSize < 0 {
		return errors.New("buffer size must not be negative")
	}
	return nil
}

// Player plays signed 16-bit little-endian mono PCM.
type Player struct {
	cfg    Config
	logger *log.Logger

	// oto allows one context per process and opening it may block on the
	// device, so it is created by the first Play.
	ctxOnce sync.Once
	ctx     *oto.Context
	ctxErr  error

	mu     sync.Mutex
	player *oto.Player
	data   []byte // referenced until the oto player is closed

	state atomic.Int32
}

// New validates cfg and returns a Player. No device is opened yet.
func New(cfg Config) (*Player, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid audio config: %w", err)
	}
	return &Player{cfg: cfg, logger: log.WithPrefix("audio")}, nil
}

func (p *Player) context() (*oto.Context, error) {
	p.ctxOnce.Do(func() {
		ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
			SampleRate:   p.cfg.SampleRate,
			ChannelCount: 1,
			Format:       oto.FormatSignedInt16LE,
			BufferSize:   p.cfg.BufferSize,
		})
		if err != nil {
			p.ctxErr = fmt.Errorf("failed to open audio device: %w", err)
			return
		}
		<-ready
		p.ctx = ctx
		p.logger.Debug("audio device ready", "sample_rate", p.cfg.SampleRate)
	})
	return p.ctx, p.ctxErr
}

// Play stops whatever is playing and starts pcm at volume (0.0 to 1.0).
func (p *Player) Play(pcm []byte, volume float64) error {
	if len(pcm) == 0 {
		return errors.New("audio data is empty")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.State() == StateClosed {
		return ErrClosed
	}

	ctx, err := p.context()
	if err != nil {
		return err
	}

	if err := p.stopLocked(); err != nil {
		p.logger.Warn("stopping previous playback", "error", err)
	}

	p.data = pcm
	p.player = ctx.NewPlayer(bytes.NewReader(p.data))
	p.player.SetVolume(clampVolume(volume))
	p.player.Play()
	p.state.Store(int32(StatePlaying))
	return nil
}

// Stop halts playback.
func (p *Player) Stop() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stopLocked()
}

func (p *Player) stopLocked() error {
	if p.player == nil {
		return nil
	}

	p.player.Pause()
	err := p.player.Close()
	p.player = nil
	p.data = nil
	if p.State() != StateClosed {
		p.state.Store(int32(StateStopped))
	}
	if err != nil {
		return fmt.Errorf("failed to close playback: %w", err)
	}
	return nil
}

// IsPlaying reports whether audio is still being played. A finished
// playback is released here.
func (p *Player) IsPlaying() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.player == nil {
		return false
	}
	if p.player.IsPlaying() {
		return true
	}
	if err := p.stopLocked(); err != nil {
		p.logger.Warn("releasing finished playback", "error", err)
	}
	return false
}

// SampleRate returns the device sample rate.
func (p *Player) SampleRate() int { return p.cfg.SampleRate }

// State returns the current state.
func (p *Player) State() State { return State(p.state.Load()) }

// Close stops playback. oto contexts cannot be closed, so the device stays
// open until the process exits.
func (p *Player) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	prev := p.State()
	err := p.stopLocked()
	p.state.Store(int32(StateClosed))
	p.logger.Debug("audio player closed", "previous_state", prev)
	return err
}

func clampVolume(v float64) float64 {
	return max(0, min(1, v))
}
