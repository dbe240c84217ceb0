package ui

import (
	"errors"
	"io"

	"github.com/charmbracelet/log"
	"github.com/dgnsrekt/callboard/internal/audio"
	"github.com/dgnsrekt/callboard/internal/cache"
	"github.com/dgnsrekt/callboard/internal/speech"
	"github.com/dgnsrekt/callboard/internal/speech/engines"
)

const memoryCacheSize = 16 << 20

// newSpeaker builds the speech pipeline for cfg. When no engine can be
// created the board runs silently with speech.Nop.
func newSpeaker(cfg Config) (speech.Speaker, io.Closer, string) {
	engine, err := engines.New(cfg.Speech)
	if err != nil {
		if errors.Is(err, engines.ErrDisabled) {
			log.Info("speech disabled")
		} else {
			log.Warn("speech unavailable, announcements will be silent", "engine", cfg.Speech.Engine, "error", err)
		}
		return speech.Nop{}, nopCloser{}, ""
	}

	playerCfg := audio.DefaultConfig()
	if cfg.SampleRate > 0 {
		playerCfg.SampleRate = cfg.SampleRate
	}
	player, err := audio.New(playerCfg)
	if err != nil {
		log.Warn("audio unavailable, announcements will be silent", "error", err)
		return speech.Nop{}, nopCloser{}, ""
	}

	var disk *cache.Disk
	if cfg.CacheDir != "" && cfg.CacheMaxSize > 0 {
		disk, err = cache.NewDisk(cfg.CacheDir, cfg.CacheMaxSize)
		if err != nil {
			log.Warn("disk cache unavailable", "dir", cfg.CacheDir, "error", err)
			disk = nil
		}
	}
	tiered := cache.NewTiered(cache.NewMemory(memoryCacheSize), disk)

	synth := speech.NewSynth(speech.NewCachedEngine(engine, tiered), player)
	log.Info("speech ready", "engine", engine.Name(), "sample_rate", playerCfg.SampleRate, "locale", cfg.Locale)

	return synth, closers{synth, tiered}, engine.Name()
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

type closers []io.Closer

func (c closers) Close() error {
	var errs []error
	for _, cl := range c {
		if err := cl.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
