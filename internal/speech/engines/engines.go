// Package engines provides the text-to-speech engines behind speech.Engine:
// a local Piper binary, Google TTS through gtts-cli, and a Piper server
// speaking the Wyoming protocol.
package engines

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/dgnsrekt/callboard/internal/speech"
	"golang.org/x/text/language"
)

// ErrDisabled is returned by New for the "none" engine.
var ErrDisabled = errors.New("speech disabled")

// Engine names accepted by New.
const (
	NamePiper   = "piper"
	NameGTTS    = "gtts"
	NameWyoming = "wyoming"
	NameNone    = "none"
)

// Names lists the selectable engines.
var Names = []string{NamePiper, NameGTTS, NameWyoming, NameNone}

// Config selects and configures an engine.
type Config struct {
	Engine string

	PiperBinary string
	PiperModel  string
	PiperSpeed  float64

	GTTSSlow              bool
	GTTSRequestsPerMinute int

	WyomingEndpoint string
	WyomingVoices   map[string]string

	Timeout time.Duration
}

// New builds the configured engine.
func New(cfg Config) (speech.Engine, error) {
	switch strings.ToLower(cfg.Engine) {
	case NamePiper:
		e, err := NewPiper(cfg.PiperBinary, cfg.PiperModel)
		if err != nil {
			return nil, err
		}
		if cfg.PiperSpeed != 0 {
			if err := e.SetSpeed(cfg.PiperSpeed); err != nil {
				return nil, err
			}
		}
		if cfg.Timeout > 0 {
			e.SetTimeout(cfg.Timeout)
		}
		return e, nil
	case NameGTTS:
		e, err := NewGTTS(GTTSConfig{
			Slow:              cfg.GTTSSlow,
			RequestsPerMinute: cfg.GTTSRequestsPerMinute,
			Timeout:           cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		return e, nil
	case NameWyoming:
		return NewWyoming(cfg.WyomingEndpoint, cfg.WyomingVoices), nil
	case NameNone, "":
		return nil, ErrDisabled
	default:
		return nil, fmt.Errorf("unknown speech engine %q (want one of %s)", cfg.Engine, strings.Join(Names, ", "))
	}
}

// baseLanguage returns the ISO 639-1 part of a locale tag ("pt-BR" -> "pt"),
// falling back to English for tags that do not parse.
func baseLanguage(locale string) string {
	tag, err := language.Parse(locale)
	if err != nil {
		return "en"
	}
	base, _ := tag.Base()
	return base.String()
}
