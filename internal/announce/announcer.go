package announce

import (
	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/calls"
	"github.com/dgnsrekt/callboard/internal/speech"
)

// primerText is spoken at zero volume on unlock so the audio device is
// opened from the operator's gesture.
const primerText = " "

// Announcer speaks call phrases through a Speaker, gated by consent.
type Announcer struct {
	gate    Gate
	speaker speech.Speaker
	locale  string
	volume  float64
	logger  *log.Logger
}

// New creates a locked Announcer.
func New(speaker speech.Speaker, locale string, volume float64) *Announcer {
	return &Announcer{
		speaker: speaker,
		locale:  locale,
		volume:  volume,
		logger:  log.WithPrefix("announce"),
	}
}

// RequestUnlock unlocks audio and plays the silent primer. Later calls do
// nothing and return false.
func (a *Announcer) RequestUnlock() bool {
	if !a.gate.Unlock() {
		return false
	}
	a.logger.Info("audio unlocked")
	a.speaker.Speak(speech.Utterance{Text: primerText, Locale: a.locale, Volume: 0})
	return true
}

// Announce interrupts whatever is being spoken and speaks the call. While
// locked the announcement is dropped for good.
func (a *Announcer) Announce(name, room string) {
	if !a.gate.Unlocked() {
		a.logger.Debug("audio locked, dropping announcement", "name", name, "room", room)
		return
	}

	a.speaker.CancelAll()
	a.speaker.Speak(speech.Utterance{
		Text:   calls.Phrase(name, room),
		Locale: a.locale,
		Volume: a.volume,
	})
	a.logger.Info("announced call", "name", name, "room", room)
}

// Locked reports whether announcements are still being dropped.
func (a *Announcer) Locked() bool { return !a.gate.Unlocked() }

// State returns the gate state.
func (a *Announcer) State() GateState { return a.gate.State() }
