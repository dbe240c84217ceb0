package speech

import (
	"encoding/binary"
	"testing"
	"time"
)

func pcm16(samples ...int16) []byte {
	out := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func samples16(b []byte) []int16 {
	out := make([]int16, len(b)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(b[i*2:]))
	}
	return out
}

func TestToMono16_Passthrough(t *testing.T) {
	in := pcm16(1, -2, 300, -400)
	out := toMono16(&Audio{PCM: in, SampleRate: 22050, Channels: 1}, 22050)

	got := samples16(out)
	want := []int16{1, -2, 300, -400}
	if len(got) != len(want) {
		t.Fatalf("length mismatch: got %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("sample %d: got %d, want %d", i, got[i], want[i])
		}
	}
}

func TestToMono16_DownmixesStereo(t *testing.T) {
	in := pcm16(100, 300, -100, -300)
	got := samples16(toMono16(&Audio{PCM: in, SampleRate: 22050, Channels: 2}, 22050))

	if len(got) != 2 || got[0] != 200 || got[1] != -200 {
		t.Errorf("unexpected downmix: %v", got)
	}
}

func TestToMono16_Resamples(t *testing.T) {
	in := make([]int16, 16000)
	got := samples16(toMono16(&Audio{PCM: pcm16(in...), SampleRate: 16000, Channels: 1}, 22050))

	if len(got) != 22050 {
		t.Errorf("resampled length: got %d, want 22050", len(got))
	}
}

func TestToMono16_Empty(t *testing.T) {
	if out := toMono16(&Audio{SampleRate: 22050, Channels: 1}, 22050); len(out) != 0 {
		t.Errorf("expected no output, got %d bytes", len(out))
	}
}

func TestSilence(t *testing.T) {
	if n := len(silence(22050, time.Second)); n != 44100 {
		t.Errorf("one second of silence: got %d bytes, want 44100", n)
	}
}
