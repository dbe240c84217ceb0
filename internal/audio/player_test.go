package audio

import (
	"errors"
	"testing"
	"time"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{name: "default", cfg: DefaultConfig()},
		{name: "cd quality", cfg: Config{SampleRate: 44100}},
		{name: "too low", cfg: Config{SampleRate: 4000}, wantErr: true},
		{name: "too high", cfg: Config{SampleRate: 384000}, wantErr: true},
		{name: "negative buffer", cfg: Config{SampleRate: 22050, BufferSize: -time.Millisecond}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClampVolume(t *testing.T) {
	tests := []struct {
		in, want float64
	}{
		{-0.5, 0},
		{0, 0},
		{0.7, 0.7},
		{1, 1},
		{3, 1},
	}
	for _, tt := range tests {
		if got := clampVolume(tt.in); got != tt.want {
			t.Errorf("clampVolume(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

// These paths never touch the audio device.
func TestPlayerWithoutDevice(t *testing.T) {
	p, err := New(DefaultConfig())
	if err != nil {
		t.Fatal(err)
	}

	if p.SampleRate() != 22050 {
		t.Errorf("SampleRate() = %d, want 22050", p.SampleRate())
	}
	if p.IsPlaying() {
		t.Error("new player should not be playing")
	}
	if p.State() != StateStopped {
		t.Errorf("State() = %v, want stopped", p.State())
	}
	if err := p.Stop(); err != nil {
		t.Errorf("Stop() on idle player error = %v", err)
	}
	if err := p.Play(nil, 1); err == nil {
		t.Error("Play(nil) expected error")
	}

	if err := p.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if p.State() != StateClosed {
		t.Errorf("State() = %v, want closed", p.State())
	}
	if err := p.Play([]byte{0, 0}, 1); !errors.Is(err, ErrClosed) {
		t.Errorf("Play() after Close error = %v, want ErrClosed", err)
	}
}

func TestStateString(t *testing.T) {
	for state, want := range map[State]string{
		StateStopped: "stopped",
		StatePlaying: "playing",
		StateClosed:  "closed",
		State(42):    "unknown",
	} {
		if got := state.String(); got != want {
			t.Errorf("State(%d).String() = %q, want %q", state, got, want)
		}
	}
}
