//go:build nocgo
// +build nocgo

package player

import (
	"errors"

	"github.com/phrasecast/phrasecast/pkg/audio"
)

// Stubs for builds without CGO audio support. Export paths are
// unaffected; only live playback is disabled.

// ErrNotReady indicates the audio device could not be initialized.
var ErrNotReady = errors.New("audio playback is not available")

// Player stub for nocgo builds.
type Player struct{}

// New always fails in nocgo builds.
func New(sampleRate int) (*Player, error) {
	return nil, errors.New("audio playback not available in nocgo build")
}

func (p *Player) SetBandGain(band int, gainDB float64) error { return ErrNotReady }

func (p *Player) ResetEQ() {}

func (p *Player) Play(buf *audio.Buffer) error { return ErrNotReady }

func (p *Player) Stop() {}

func (p *Player) Close() error { return nil }
