// Package mp3 implements the chunked, cancellable MP3 encoder. PCM
// samples are pushed through a block encoder 1152 samples at a time,
// with progress reporting and a cooperative yield so long encodes do
// not starve the caller. The LAME binding behind the `lame` build tag
// provides the block encoder; without it the package reports
// ErrEncoderUnavailable.
package mp3

import (
	"context"
	"errors"
	"fmt"
	"runtime"

	"github.com/phrasecast/phrasecast/pkg/audio"
)

// Encoding parameters
const (
	// FrameSize is the standard MPEG audio frame size in samples.
	FrameSize = 1152

	// yieldInterval is how many frames are encoded between scheduler
	// yields.
	yieldInterval = 10
)

// ValidBitrates lists the selectable output bitrates in kbps.
var ValidBitrates = []int{128, 192, 256, 320}

// Encoder errors.
var (
	// ErrEncoderUnavailable indicates no block-encoding capability is
	// present in this build
	ErrEncoderUnavailable = errors.New("MP3 encoder is not available in this build")

	// ErrCancelled indicates the caller cancelled a running encode.
	// No partial output is returned.
	ErrCancelled = errors.New("MP3 encoding cancelled")
)

// BlockEncoder is the per-frame encoding capability the chunked loop
// drives. Implementations may buffer; Flush drains the remainder.
type BlockEncoder interface {
	// EncodeBlock consumes one frame of per-channel PCM16 samples and
	// returns any bytes the encoder emitted for it.
	EncodeBlock(block [][]int16) ([]byte, error)

	// Flush drains buffered output after the final frame.
	Flush() ([]byte, error)
}

// BlockEncoderFactory creates a block encoder for one stream.
type BlockEncoderFactory func(sampleRate, channels, bitrateKbps int) (BlockEncoder, error)

// newBlockEncoder is installed by the LAME binding's init (or by tests).
var newBlockEncoder BlockEncoderFactory

// SetBlockEncoderFactory overrides the block encoder source. Tests use
// this to install a mock capability.
func SetBlockEncoderFactory(f BlockEncoderFactory) {
	newBlockEncoder = f
}

// Available reports whether a block-encoding capability is present.
func Available() bool {
	return newBlockEncoder != nil
}

// Encode converts a PCM buffer to MP3 bytes at the given bitrate.
// onProgress, when non-nil, is called after each frame with
// floor(done/total*100) and a final exact 100. Cancellation via ctx is
// checked at the top of every frame iteration and once more before the
// flush; a cancelled encode returns ErrCancelled and no bytes.
func Encode(ctx context.Context, buf *audio.Buffer, bitrateKbps int, onProgress func(percent int)) ([]byte, error) {
	// Capability check comes before any encoding work on purpose.
	if newBlockEncoder == nil {
		return nil, ErrEncoderUnavailable
	}
	if !validBitrate(bitrateKbps) {
		return nil, fmt.Errorf("unsupported MP3 bitrate %d kbps (valid: %v)", bitrateKbps, ValidBitrates)
	}

	channels := buf.Channels()
	frames := buf.Frames()
	pcm := make([][]int16, channels)
	for ch := 0; ch < channels; ch++ {
		pcm[ch] = make([]int16, frames)
		for i, sample := range buf.Data[ch] {
			pcm[ch][i] = audio.FloatToPCM16(sample)
		}
	}

	enc, err := newBlockEncoder(buf.SampleRate, channels, bitrateKbps)
	if err != nil {
		return nil, fmt.Errorf("initialize MP3 encoder: %w", err)
	}

	totalFrames := (frames + FrameSize - 1) / FrameSize
	var out []byte

	for frame := 0; frame < totalFrames; frame++ {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		if frame > 0 && frame%yieldInterval == 0 {
			runtime.Gosched()
		}

		start := frame * FrameSize
		end := start + FrameSize
		if end > frames {
			end = frames
		}
		block := make([][]int16, channels)
		for ch := 0; ch < channels; ch++ {
			block[ch] = pcm[ch][start:end]
		}

		chunk, err := enc.EncodeBlock(block)
		if err != nil {
			return nil, fmt.Errorf("encode frame %d: %w", frame, err)
		}
		out = append(out, chunk...)

		if onProgress != nil {
			onProgress((frame + 1) * 100 / totalFrames)
		}
	}

	if ctx.Err() != nil {
		return nil, ErrCancelled
	}

	tail, err := enc.Flush()
	if err != nil {
		return nil, fmt.Errorf("flush MP3 encoder: %w", err)
	}
	out = append(out, tail...)

	if onProgress != nil {
		onProgress(100)
	}
	return out, nil
}

func validBitrate(kbps int) bool {
	for _, b := range ValidBitrates {
		if b == kbps {
			return true
		}
	}
	return false
}
