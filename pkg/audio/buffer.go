// Package audio implements the PCM buffer engine: silence generation,
// concatenation, looped background mixing, fade envelopes and the
// playback EQ chain. All operations work on decoded float32 sample
// buffers; encoding back to bytes lives in wav.go and pkg/mp3.
package audio

import (
	"errors"
	"math"
)

// Buffer errors.
var (
	// ErrNoBuffers indicates Concatenate was called with an empty list
	ErrNoBuffers = errors.New("no audio buffers to concatenate")

	// ErrSampleRateMismatch indicates buffers with different sample rates
	// were combined; no resampling is performed
	ErrSampleRateMismatch = errors.New("sample rate mismatch between audio buffers")
)

// Buffer holds decoded PCM audio, one float32 slice per channel.
// All channel slices have the same length.
type Buffer struct {
	SampleRate int
	Data       [][]float32
}

// NewBuffer allocates a zeroed buffer with the given shape.
func NewBuffer(channels, frames, sampleRate int) *Buffer {
	data := make([][]float32, channels)
	for ch := range data {
		data[ch] = make([]float32, frames)
	}
	return &Buffer{SampleRate: sampleRate, Data: data}
}

// NewSilence creates a mono buffer of silence. The length is
// round(sampleRate * durationSeconds) samples.
func NewSilence(durationSeconds float64, sampleRate int) *Buffer {
	frames := int(math.Round(float64(sampleRate) * durationSeconds))
	if frames < 0 {
		frames = 0
	}
	return NewBuffer(1, frames, sampleRate)
}

// Channels returns the number of channels.
func (b *Buffer) Channels() int {
	return len(b.Data)
}

// Frames returns the number of samples per channel.
func (b *Buffer) Frames() int {
	if len(b.Data) == 0 {
		return 0
	}
	return len(b.Data[0])
}

// Duration returns the buffer length in seconds.
func (b *Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(b.Frames()) / float64(b.SampleRate)
}

// channel returns channel ch, falling back to channel 0 when the
// buffer has fewer channels (mono sources feeding stereo output).
func (b *Buffer) channel(ch int) []float32 {
	if ch < len(b.Data) {
		return b.Data[ch]
	}
	return b.Data[0]
}

// Concatenate joins buffers back to back, in input order, with no gaps.
// The result takes its channel count and sample rate from the first
// buffer. Buffers with mismatched sample rates are rejected.
func Concatenate(buffers []*Buffer) (*Buffer, error) {
	if len(buffers) == 0 {
		return nil, ErrNoBuffers
	}

	first := buffers[0]
	total := 0
	for _, buf := range buffers {
		if buf.SampleRate != first.SampleRate {
			return nil, ErrSampleRateMismatch
		}
		total += buf.Frames()
	}

	out := NewBuffer(first.Channels(), total, first.SampleRate)
	offset := 0
	for _, buf := range buffers {
		for ch := 0; ch < out.Channels(); ch++ {
			copy(out.Data[ch][offset:], buf.channel(ch))
		}
		offset += buf.Frames()
	}

	return out, nil
}

// Mix sums background audio under primary, attenuated by attenuationDB
// (typically negative). The result length always equals primary's
// length: a shorter background is looped with modulo indexing, a longer
// one is truncated. Out-of-range sums are left for the encoder clamp.
func Mix(primary, background *Buffer, attenuationDB float64) (*Buffer, error) {
	if primary.SampleRate != background.SampleRate {
		return nil, ErrSampleRateMismatch
	}

	gain := float32(math.Pow(10, attenuationDB/20))
	frames := primary.Frames()
	bgFrames := background.Frames()

	out := NewBuffer(primary.Channels(), frames, primary.SampleRate)
	for ch := 0; ch < out.Channels(); ch++ {
		dst := out.Data[ch]
		src := primary.Data[ch]
		bg := background.channel(ch)
		for i := 0; i < frames; i++ {
			sample := src[i]
			if bgFrames > 0 {
				sample += bg[i%bgFrames] * gain
			}
			dst[i] = sample
		}
	}

	return out, nil
}

// ApplyFades applies linear fade-in and fade-out ramps in place. Fade
// windows longer than the buffer are clipped to the buffer length.
func ApplyFades(buf *Buffer, fadeInMs, fadeOutMs int) {
	frames := buf.Frames()
	if frames == 0 {
		return
	}

	fadeIn := buf.SampleRate * fadeInMs / 1000
	if fadeIn > frames {
		fadeIn = frames
	}
	fadeOut := buf.SampleRate * fadeOutMs / 1000
	if fadeOut > frames {
		fadeOut = frames
	}

	for ch := range buf.Data {
		samples := buf.Data[ch]
		for i := 0; i < fadeIn; i++ {
			samples[i] *= float32(i) / float32(fadeIn)
		}
		start := frames - fadeOut
		for i := 0; i < fadeOut; i++ {
			samples[start+i] *= 1 - float32(i+1)/float32(fadeOut)
		}
	}
}
