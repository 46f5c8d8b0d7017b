// Package engines contains the TTS engine adapters. Every byte-
// producing backend implements Engine; the on-device backend only
// drives playback and implements Speaker instead, since it cannot
// return encodable audio.
package engines

import (
	"context"

	"github.com/phrasecast/phrasecast/pkg/audio"
	"github.com/phrasecast/phrasecast/pkg/phrase"
)

// silenceSampleRate is the sample rate of locally generated silent
// audio returned for silence-only phrases.
const silenceSampleRate = 22050

// Options are the engine-specific synthesis parameters. They double as
// cache-key material via CacheFields.
type Options struct {
	Voice  string
	Model  string
	Speed  float64
	Pitch  float64
	Format string

	// DurationSeconds is only consulted when synthesizing silence.
	DurationSeconds float64
}

// CacheFields returns the option values that participate in cache key
// derivation, as an order-independent map.
func (o Options) CacheFields() map[string]any {
	return map[string]any{
		"voice":  o.Voice,
		"model":  o.Model,
		"speed":  o.Speed,
		"pitch":  o.Pitch,
		"format": o.Format,
	}
}

// Voice identifies one selectable voice.
type Voice struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Capabilities describes what an engine supports.
type Capabilities struct {
	Voices       []Voice
	Models       []string
	AudioFormats []string

	// ExportsAudio is false for playback-only backends.
	ExportsAudio bool
}

// Engine is the contract every byte-producing TTS backend satisfies.
type Engine interface {
	// Name returns the engine identifier used in cache keys and logs.
	Name() string

	// RequiresAPIKey reports whether the engine needs a credential.
	RequiresAPIKey() bool

	// Capabilities returns the engine's voices, models and formats.
	// Remote engines may discover these over the network and fall back
	// to a static list when discovery fails.
	Capabilities(ctx context.Context) Capabilities

	// Synthesize converts text to encoded audio bytes. Empty text and
	// the silence marker produce locally generated silent audio of
	// opts.DurationSeconds with no network traffic.
	Synthesize(ctx context.Context, text string, opts Options) ([]byte, error)
}

// KeyValidator is implemented by key-authenticated engines. Validation
// issues a minimal real request; a key is never assumed valid without
// a round trip.
type KeyValidator interface {
	ValidateAPIKey(ctx context.Context) (bool, error)
}

// Speaker is the playback-only contract for the on-device backend: it
// plays an utterance to completion instead of returning bytes.
type Speaker interface {
	Name() string
	Speak(ctx context.Context, text string, opts Options) error

	// Stop cancels any in-flight utterance.
	Stop()
}

// isSilence reports whether text requires no synthesis call.
func isSilence(text string) bool {
	return text == "" || text == phrase.SilenceMarker
}

// silenceAudio generates decodable silent WAV bytes of the requested
// duration.
func silenceAudio(durationSeconds float64) []byte {
	return audio.EncodeWAV(audio.NewSilence(durationSeconds, silenceSampleRate))
}
