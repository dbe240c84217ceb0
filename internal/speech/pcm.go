package speech

import (
	"encoding/binary"
	"time"
)

// toMono16 converts interleaved s16le audio to mono at the target rate using
// channel averaging and linear interpolation.
func toMono16(a *Audio, targetRate int) []byte {
	channels := max(a.Channels, 1)
	frames := len(a.PCM) / (2 * channels)
	if frames == 0 {
		return nil
	}

	mono := make([]int16, frames)
	for i := range frames {
		sum := 0
		for c := range channels {
			off := (i*channels + c) * 2
			sum += int(int16(binary.LittleEndian.Uint16(a.PCM[off:])))
		}
		mono[i] = int16(sum / channels)
	}

	if a.SampleRate > 0 && a.SampleRate != targetRate {
		mono = resample(mono, a.SampleRate, targetRate)
	}

	out := make([]byte, len(mono)*2)
	for i, s := range mono {
		binary.LittleEndian.PutUint16(out[i*2:], uint16(s))
	}
	return out
}

func resample(in []int16, from, to int) []int16 {
	n := int(int64(len(in)) * int64(to) / int64(from))
	if n == 0 {
		return nil
	}
	out := make([]int16, n)
	ratio := float64(from) / float64(to)
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= len(in)-1 {
			out[i] = in[len(in)-1]
			continue
		}
		frac := pos - float64(j)
		out[i] = int16(float64(in[j])*(1-frac) + float64(in[j+1])*frac)
	}
	return out
}

// silence returns d worth of mono s16le silence at rate.
func silence(rate int, d time.Duration) []byte {
	samples := int(int64(rate) * int64(d) / int64(time.Second))
	return make([]byte, samples*2)
}
