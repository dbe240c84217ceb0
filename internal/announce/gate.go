// Package announce turns call changes into spoken announcements once the
// operator has unlocked audio.
package announce

import "sync/atomic"

// GateState is the state of the audio consent gate.
type GateState int32

const (
	// Locked is the initial state. Announcements are dropped.
	Locked GateState = iota
	// Unlocked is terminal.
	Unlocked
)

func (s GateState) String() string {
	if s == Unlocked {
		return "unlocked"
	}
	return "locked"
}

// Gate records the operator's consent to play audio. It moves from Locked
// to Unlocked at most once.
type Gate struct {
	unlocked atomic.Bool
}

// Unlock opens the gate. It reports whether this call performed the
// transition.
func (g *Gate) Unlock() bool {
	return g.unlocked.CompareAndSwap(false, true)
}

// Unlocked reports whether the gate is open.
func (g *Gate) Unlocked() bool {
	return g.unlocked.Load()
}

// State returns the current state.
func (g *Gate) State() GateState {
	if g.unlocked.Load() {
		return Unlocked
	}
	return Locked
}
