// Package pipeline is the composition root of the audio generation
// core: it resolves each phrase's audio via cache-then-engine,
// assembles the program buffer in source order, mixes background
// audio and applies fades. Callers hand the finished buffer to the
// exporters in export.go.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"

	"github.com/phrasecast/phrasecast/pkg/audio"
	"github.com/phrasecast/phrasecast/pkg/cache"
	"github.com/phrasecast/phrasecast/pkg/engines"
	"github.com/phrasecast/phrasecast/pkg/phrase"
)

// fallbackSampleRate is used for silence-only programs, where no
// synthesized segment dictates a rate.
const fallbackSampleRate = 22050

// Pipeline errors.
var (
	// ErrCancelled indicates the caller cancelled generation. This is
	// a distinct condition, not a failure.
	ErrCancelled = errors.New("generation cancelled")

	// ErrInvalidAPIKey indicates pre-generation key validation failed
	ErrInvalidAPIKey = errors.New("API key validation failed")
)

// Config holds the assembly parameters applied after synthesis.
type Config struct {
	FadeInMs                int
	FadeOutMs               int
	BackgroundAttenuationDB float64
}

// Progress reports generation progress to the caller.
type Progress func(percent int, message string)

// Pipeline orchestrates phrase synthesis and buffer assembly. The
// cache is optional; a nil store disables caching without changing
// behavior.
type Pipeline struct {
	engine engines.Engine
	store  *cache.Store
}

// New creates a pipeline around an engine and an optional cache store.
func New(engine engines.Engine, store *cache.Store) *Pipeline {
	return &Pipeline{engine: engine, store: store}
}

// segment is one ordered piece of the program: synthesized speech,
// a pending silence duration, or both.
type segment struct {
	speech         *audio.Buffer
	silenceSeconds float64
}

// Run generates the Program Audio for an ordered phrase list. Phrases
// are processed strictly sequentially and appended in source order.
// Cancellation is observed at the top of every phrase iteration.
func (p *Pipeline) Run(ctx context.Context, phrases []phrase.Phrase, opts engines.Options, background []byte, cfg Config, progress Progress) (*audio.Buffer, error) {
	if len(phrases) == 0 {
		return nil, phrase.ErrNoPhrasesFound
	}
	report := func(percent int, message string) {
		if progress != nil {
			progress(percent, message)
		}
	}

	if err := p.validateCredential(ctx, phrases); err != nil {
		return nil, err
	}

	segments := make([]segment, 0, len(phrases))
	for i, ph := range phrases {
		if ctx.Err() != nil {
			return nil, ErrCancelled
		}
		report(i*90/len(phrases), fmt.Sprintf("Processing phrase %d of %d", i+1, len(phrases)))

		seg := segment{silenceSeconds: ph.DurationSeconds}
		if !ph.IsSilence() {
			speech, err := p.resolvePhraseAudio(ctx, ph.Text, opts)
			if err != nil {
				// A cancellation landing mid-synthesis surfaces as a
				// request failure; report it as the cancelled
				// condition, not a phrase error.
				if ctx.Err() != nil {
					return nil, ErrCancelled
				}
				return nil, fmt.Errorf("phrase %d (%q): %w", i+1, ph.Text, err)
			}
			seg.speech = speech
		}
		segments = append(segments, seg)
	}

	report(90, "Assembling track")
	program, err := assemble(segments)
	if err != nil {
		return nil, err
	}

	if len(background) > 0 {
		report(93, "Mixing background audio")
		bg, err := audio.Decode(background)
		if err != nil {
			return nil, fmt.Errorf("background audio: %w", err)
		}
		program, err = audio.Mix(program, bg, cfg.BackgroundAttenuationDB)
		if err != nil {
			return nil, fmt.Errorf("background audio: %w", err)
		}
	}

	if cfg.FadeInMs > 0 || cfg.FadeOutMs > 0 {
		report(97, "Applying fades")
		audio.ApplyFades(program, cfg.FadeInMs, cfg.FadeOutMs)
	}

	report(100, "Generation complete")
	log.Info("program generated",
		"phrases", len(phrases),
		"duration", fmt.Sprintf("%.2fs", program.Duration()),
		"sampleRate", program.SampleRate)
	return program, nil
}

// validateCredential runs the key round trip before any paid
// generation work, so a bad key fails early instead of mid-program.
func (p *Pipeline) validateCredential(ctx context.Context, phrases []phrase.Phrase) error {
	if !p.engine.RequiresAPIKey() {
		return nil
	}
	spoken := false
	for _, ph := range phrases {
		if !ph.IsSilence() {
			spoken = true
			break
		}
	}
	if !spoken {
		return nil
	}

	validator, ok := p.engine.(engines.KeyValidator)
	if !ok {
		return nil
	}
	valid, err := validator.ValidateAPIKey(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return ErrCancelled
		}
		return fmt.Errorf("validate %s API key: %w", p.engine.Name(), err)
	}
	if !valid {
		return fmt.Errorf("%w for engine %s", ErrInvalidAPIKey, p.engine.Name())
	}
	return nil
}

// resolvePhraseAudio fetches one phrase's audio via cache-then-engine
// and decodes it. Cache failures are logged and degrade to a miss or
// no-op; caching must never abort generation.
func (p *Pipeline) resolvePhraseAudio(ctx context.Context, text string, opts engines.Options) (*audio.Buffer, error) {
	fields := opts.CacheFields()

	var raw []byte
	if p.store != nil {
		cached, err := p.store.Get(text, p.engine.Name(), fields)
		if err != nil {
			log.Warn("cache read failed, treating as miss", "error", err)
		} else {
			raw = cached
		}
	}

	if raw == nil {
		synthesized, err := p.engine.Synthesize(ctx, text, opts)
		if err != nil {
			return nil, err
		}
		raw = synthesized

		if p.store != nil {
			if err := p.store.Set(text, p.engine.Name(), fields, raw); err != nil {
				log.Warn("cache write failed", "error", err)
			}
		}
	}

	buf, err := audio.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode synthesized audio: %w", err)
	}
	return buf, nil
}

// assemble materializes inter-phrase silences at the program's sample
// rate and concatenates everything in order. The rate comes from the
// first synthesized segment; silence-only programs use the fallback.
func assemble(segments []segment) (*audio.Buffer, error) {
	sampleRate := fallbackSampleRate
	for _, seg := range segments {
		if seg.speech != nil {
			sampleRate = seg.speech.SampleRate
			break
		}
	}

	var parts []*audio.Buffer
	for _, seg := range segments {
		if seg.speech != nil {
			parts = append(parts, seg.speech)
		}
		if seg.silenceSeconds > 0 {
			parts = append(parts, audio.NewSilence(seg.silenceSeconds, sampleRate))
		}
	}
	if len(parts) == 0 {
		// Every phrase was a zero-duration silence; produce an empty
		// program rather than failing.
		return audio.NewBuffer(1, 0, sampleRate), nil
	}

	return audio.Concatenate(parts)
}

// PlayProgram runs a phrase program through a playback-only speaker:
// each utterance is spoken to completion, followed by the phrase's
// pause. Cancellation interrupts both the utterance and the pause.
func PlayProgram(ctx context.Context, speaker engines.Speaker, phrases []phrase.Phrase, opts engines.Options) error {
	for i, ph := range phrases {
		if ctx.Err() != nil {
			return ErrCancelled
		}

		if !ph.IsSilence() {
			if err := speaker.Speak(ctx, ph.Text, opts); err != nil {
				if errors.Is(err, context.Canceled) {
					return ErrCancelled
				}
				return fmt.Errorf("phrase %d (%q): %w", i+1, ph.Text, err)
			}
		}

		if ph.DurationSeconds > 0 {
			select {
			case <-time.After(time.Duration(ph.DurationSeconds * float64(time.Second))):
			case <-ctx.Done():
				return ErrCancelled
			}
		}
	}
	return nil
}
