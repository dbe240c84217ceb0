// Package speech provides the text-to-speech capability used for
// announcements: enqueue an utterance, or cancel everything queued or playing.
package speech

import (
	"context"
	"errors"
)

// ErrUnavailable is returned by engines whose dependencies are missing.
var ErrUnavailable = errors.New("speech engine unavailable")

// Utterance is one request to speak.
type Utterance struct {
	Text   string
	Locale string  // BCP 47 tag, e.g. "en-US"
	Volume float64 // 0.0 to 1.0
}

// Speaker is the speech capability as seen by the announcer. Both methods
// return immediately; nothing about playback is reported back.
type Speaker interface {
	// Speak enqueues an utterance.
	Speak(u Utterance)

	// CancelAll drops queued utterances and stops the one playing.
	CancelAll()
}

// Nop is the Speaker used when no engine is available.
type Nop struct{}

// Speak does nothing.
func (Nop) Speak(Utterance) {}

// CancelAll does nothing.
func (Nop) CancelAll() {}

// Engine converts text to audio.
type Engine interface {
	// Name returns the engine identifier (e.g. "piper").
	Name() string

	// Synthesize renders text in the given locale as PCM audio.
	Synthesize(ctx context.Context, text, locale string) (*Audio, error)
}

// Audio is signed 16-bit little-endian PCM.
type Audio struct {
	PCM        []byte
	SampleRate int
	Channels   int
}

// Player plays PCM in the player's own format (see SampleRate).
type Player interface {
	// Play starts playback, replacing anything currently playing.
	Play(pcm []byte, volume float64) error

	// Stop halts playback. Stopping an idle player is not an error.
	Stop() error

	// IsPlaying reports whether audio is still playing.
	IsPlaying() bool

	// SampleRate is the mono sample rate Play expects.
	SampleRate() int

	// Close releases the audio device.
	Close() error
}
