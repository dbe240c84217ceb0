package speech

import (
	"context"
	"testing"
)

type mapCache map[string][]byte

func (m mapCache) Get(key string) ([]byte, bool) {
	v, ok := m[key]
	return v, ok
}

func (m mapCache) Put(key string, value []byte) error {
	m[key] = value
	return nil
}

func TestCachedEngine_ServesRepeats(t *testing.T) {
	engine := newFakeEngine()
	cached := NewCachedEngine(engine, mapCache{})

	first, err := cached.Synthesize(context.Background(), "Attention, Ana Lima, room 7", "en-US")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}
	second, err := cached.Synthesize(context.Background(), "Attention, Ana Lima, room 7", "en-US")
	if err != nil {
		t.Fatalf("Synthesize failed: %v", err)
	}

	if n := len(engine.calls()); n != 1 {
		t.Errorf("engine called %d times, want 1", n)
	}
	if len(first.PCM) != len(second.PCM) || second.SampleRate != 22050 || second.Channels != 1 {
		t.Errorf("cached audio differs: %+v vs %+v", first, second)
	}
}

func TestCachedEngine_KeyIncludesLocale(t *testing.T) {
	engine := newFakeEngine()
	cached := NewCachedEngine(engine, mapCache{})

	_, _ = cached.Synthesize(context.Background(), "Attention", "en-US")
	_, _ = cached.Synthesize(context.Background(), "Attention", "pt-BR")

	if n := len(engine.calls()); n != 2 {
		t.Errorf("engine called %d times, want 2", n)
	}
}

func TestUnmarshalAudio_TooShort(t *testing.T) {
	if _, err := unmarshalAudio([]byte{1, 2, 3}); err == nil {
		t.Error("expected error for short data")
	}
}
