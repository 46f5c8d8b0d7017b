//go:build !nocgo
// +build !nocgo

// Package player provides best-effort live playback of a generated
// program buffer through the three-band EQ chain. Playback failures
// never affect generation or export.
package player

import (
	"bytes"
	"errors"
	"time"

	"github.com/charmbracelet/log"
	"github.com/ebitengine/oto/v3"

	"github.com/phrasecast/phrasecast/pkg/audio"
)

// ErrNotReady indicates the audio device could not be initialized.
var ErrNotReady = errors.New("audio playback is not available")

// Player renders buffers to the system audio device. Per-band EQ gains
// apply to the next Play call; the chain is rebuilt per channel so
// filter state never crosses channels.
type Player struct {
	ctx   *oto.Context
	gains [3]float64
	stop  chan struct{}
}

// New initializes the audio device for the given sample rate. Failure
// here is not fatal to the caller; export still works without a
// device.
func New(sampleRate int) (*Player, error) {
	ctx, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   sampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
	})
	if err != nil {
		return nil, err
	}
	<-ready

	log.Debug("audio playback initialized", "sampleRate", sampleRate)
	return &Player{ctx: ctx}, nil
}

// SetBandGain adjusts one EQ band in decibels for subsequent playback.
func (p *Player) SetBandGain(band int, gainDB float64) error {
	// Validate through a throwaway chain so range checks stay in one
	// place.
	probe := audio.NewEQ(44100)
	if err := probe.SetBandGain(band, gainDB); err != nil {
		return err
	}
	p.gains[band] = gainDB
	return nil
}

// ResetEQ returns all bands to flat.
func (p *Player) ResetEQ() {
	p.gains = [3]float64{}
}

// Play renders the buffer through the EQ chain and blocks until
// playback completes or Stop is called.
func (p *Player) Play(buf *audio.Buffer) error {
	if p.ctx == nil {
		return ErrNotReady
	}

	pcm := p.render(buf)
	player := p.ctx.NewPlayer(bytes.NewReader(pcm))
	p.stop = make(chan struct{})
	player.Play()

	for player.IsPlaying() {
		select {
		case <-p.stop:
			player.Pause()
			return player.Close()
		case <-time.After(10 * time.Millisecond):
		}
	}
	return player.Close()
}

// Stop interrupts any in-flight playback.
func (p *Player) Stop() {
	if p.stop != nil {
		select {
		case <-p.stop:
		default:
			close(p.stop)
		}
	}
}

// Close tears down the playback graph.
func (p *Player) Close() error {
	p.Stop()
	if p.ctx != nil {
		return p.ctx.Suspend()
	}
	return nil
}

// render applies the EQ per channel and interleaves to stereo PCM16.
func (p *Player) render(buf *audio.Buffer) []byte {
	frames := buf.Frames()
	channels := make([][]float32, 2)
	for ch := 0; ch < 2; ch++ {
		src := buf.Data[0]
		if ch < buf.Channels() {
			src = buf.Data[ch]
		}
		samples := make([]float32, frames)
		copy(samples, src)

		eq := audio.NewEQ(buf.SampleRate)
		for band, gain := range p.gains {
			if gain != 0 {
				_ = eq.SetBandGain(band, gain)
			}
		}
		eq.Process(samples)
		channels[ch] = samples
	}

	out := make([]byte, frames*4)
	for i := 0; i < frames; i++ {
		for ch := 0; ch < 2; ch++ {
			sample := audio.FloatToPCM16(channels[ch][i])
			out[i*4+ch*2] = byte(sample)
			out[i*4+ch*2+1] = byte(uint16(sample) >> 8)
		}
	}
	return out
}
