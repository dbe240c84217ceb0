package ui

import (
	"time"

	"github.com/dgnsrekt/callboard/internal/speech/engines"
)

// Config contains TUI-specific configuration.
type Config struct {
	// Store directory and the key the producer writes to.
	StoreDir string
	Key      string

	// Announcement locale (BCP 47) and volume (0.0 to 1.0).
	Locale string
	Volume float64

	Speech engines.Config

	// Audio cache; an empty CacheDir keeps the cache in memory only.
	CacheDir     string
	CacheMaxSize int64 // bytes
	SampleRate   int

	// For debugging the UI
	Settle        time.Duration `env:"CALLBOARD_SETTLE"         envDefault:"50ms"`
	BlinkInterval time.Duration `env:"CALLBOARD_BLINK_INTERVAL" envDefault:"700ms"`
	AltScreen     bool          `env:"CALLBOARD_ALT_SCREEN"     envDefault:"true"`
}
