package speech

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"

	"github.com/charmbracelet/log"
)

// AudioCache stores synthesized audio by key.
type AudioCache interface {
	Get(key string) ([]byte, bool)
	Put(key string, value []byte) error
}

// CachedEngine serves repeated phrases from a cache instead of the engine.
type CachedEngine struct {
	engine Engine
	cache  AudioCache
}

// NewCachedEngine wraps engine with cache.
func NewCachedEngine(engine Engine, cache AudioCache) *CachedEngine {
	return &CachedEngine{engine: engine, cache: cache}
}

// Name returns the wrapped engine's name.
func (c *CachedEngine) Name() string { return c.engine.Name() }

// Synthesize returns cached audio when present, otherwise synthesizes and
// stores the result. Cache write failures are logged and ignored.
func (c *CachedEngine) Synthesize(ctx context.Context, text, locale string) (*Audio, error) {
	key := cacheKey(c.engine.Name(), locale, text)

	if data, ok := c.cache.Get(key); ok {
		if audio, err := unmarshalAudio(data); err == nil {
			log.Debug("speech cache hit", "key", key[:12])
			return audio, nil
		}
	}

	audio, err := c.engine.Synthesize(ctx, text, locale)
	if err != nil {
		return nil, err
	}
	if err := c.cache.Put(key, marshalAudio(audio)); err != nil {
		log.Warn("failed to cache audio", "error", err)
	}
	return audio, nil
}

func cacheKey(engine, locale, text string) string {
	h := sha256.New()
	h.Write([]byte(engine))
	h.Write([]byte{0})
	h.Write([]byte(locale))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

const audioHeaderSize = 8

func marshalAudio(a *Audio) []byte {
	out := make([]byte, audioHeaderSize+len(a.PCM))
	binary.LittleEndian.PutUint32(out[0:], uint32(a.SampleRate)) //nolint:gosec
	binary.LittleEndian.PutUint32(out[4:], uint32(a.Channels))   //nolint:gosec
	copy(out[audioHeaderSize:], a.PCM)
	return out
}

func unmarshalAudio(data []byte) (*Audio, error) {
	if len(data) < audioHeaderSize {
		return nil, errors.New("cached audio too short")
	}
	return &Audio{
		SampleRate: int(binary.LittleEndian.Uint32(data[0:])),
		Channels:   int(binary.LittleEndian.Uint32(data[4:])),
		PCM:        data[audioHeaderSize:],
	}, nil
}
