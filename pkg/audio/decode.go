package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"

	"github.com/go-audio/wav"
	mp3dec "github.com/hajimehoshi/go-mp3"
)

// ErrEmptyAudioData indicates a decode was attempted on zero bytes.
var ErrEmptyAudioData = errors.New("empty audio data")

// Decode converts encoded audio bytes (WAV or MP3) to a PCM buffer.
// The container is sniffed from the leading bytes; anything else is a
// decode error. Malformed data never degrades to silence.
func Decode(data []byte) (*Buffer, error) {
	if len(data) == 0 {
		return nil, ErrEmptyAudioData
	}

	switch {
	case len(data) >= 12 && bytes.Equal(data[0:4], []byte("RIFF")) && bytes.Equal(data[8:12], []byte("WAVE")):
		return decodeWAV(data)
	case bytes.HasPrefix(data, []byte("ID3")), len(data) >= 2 && data[0] == 0xFF && data[1]&0xE0 == 0xE0:
		return decodeMP3(data)
	default:
		return nil, fmt.Errorf("unrecognized audio container (%d bytes)", len(data))
	}
}

// decodeWAV decodes RIFF/WAVE bytes via go-audio/wav.
func decodeWAV(data []byte) (*Buffer, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	pcm, err := dec.FullPCMBuffer()
	if err != nil {
		return nil, fmt.Errorf("decode wav: %w", err)
	}
	if pcm.Format == nil || pcm.Format.NumChannels == 0 {
		return nil, errors.New("decode wav: missing format chunk")
	}

	bitDepth := pcm.SourceBitDepth
	if bitDepth == 0 {
		bitDepth = 16
	}
	scale := float32(int64(1) << (bitDepth - 1))

	channels := pcm.Format.NumChannels
	frames := len(pcm.Data) / channels
	buf := NewBuffer(channels, frames, pcm.Format.SampleRate)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			buf.Data[ch][i] = float32(pcm.Data[i*channels+ch]) / scale
		}
	}

	return buf, nil
}

// decodeMP3 decodes MP3 bytes via go-mp3, which always yields 16-bit
// stereo output at the stream's sample rate.
func decodeMP3(data []byte) (*Buffer, error) {
	dec, err := mp3dec.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	raw, err := io.ReadAll(dec)
	if err != nil {
		return nil, fmt.Errorf("decode mp3: %w", err)
	}

	// 2 channels x 2 bytes per sample
	frames := len(raw) / 4
	buf := NewBuffer(2, frames, dec.SampleRate())
	for i := 0; i < frames; i++ {
		left := int16(binary.LittleEndian.Uint16(raw[i*4:]))
		right := int16(binary.LittleEndian.Uint16(raw[i*4+2:]))
		buf.Data[0][i] = float32(left) / 32768
		buf.Data[1][i] = float32(right) / 32768
	}

	return buf, nil
}
