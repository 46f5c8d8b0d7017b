//go:build lame
// +build lame

package mp3

import (
	"bytes"
	"encoding/binary"

	"github.com/viert/go-lame"
)

func init() {
	newBlockEncoder = newLameBlockEncoder
}

// lameBlockEncoder adapts the LAME encoder to the BlockEncoder
// contract. LAME consumes interleaved PCM16 and emits MP3 bytes into
// the backing buffer, which is drained after every call.
type lameBlockEncoder struct {
	out      bytes.Buffer
	enc      *lame.Encoder
	channels int
}

func newLameBlockEncoder(sampleRate, channels, bitrateKbps int) (BlockEncoder, error) {
	e := &lameBlockEncoder{channels: channels}
	e.enc = lame.NewEncoder(&e.out)
	if err := e.enc.SetNumChannels(channels); err != nil {
		return nil, err
	}
	if err := e.enc.SetInSamplerate(sampleRate); err != nil {
		return nil, err
	}
	if err := e.enc.SetBrate(bitrateKbps); err != nil {
		return nil, err
	}
	return e, nil
}

func (e *lameBlockEncoder) EncodeBlock(block [][]int16) ([]byte, error) {
	if len(block) == 0 {
		return nil, nil
	}

	frames := len(block[0])
	raw := make([]byte, 0, frames*e.channels*2)
	var scratch [2]byte
	for i := 0; i < frames; i++ {
		for ch := 0; ch < e.channels; ch++ {
			binary.LittleEndian.PutUint16(scratch[:], uint16(block[ch][i]))
			raw = append(raw, scratch[0], scratch[1])
		}
	}

	e.out.Reset()
	if _, err := e.enc.Write(raw); err != nil {
		return nil, err
	}
	return append([]byte(nil), e.out.Bytes()...), nil
}

func (e *lameBlockEncoder) Flush() ([]byte, error) {
	e.out.Reset()
	e.enc.Close()
	return append([]byte(nil), e.out.Bytes()...), nil
}
