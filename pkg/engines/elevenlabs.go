package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/charmbracelet/log"
)

const elevenLabsDefaultBaseURL = "https://api.elevenlabs.io"

// elevenLabsRetryDelays is the escalating delay table for the
// empty-payload retry loop. The provider sporadically answers 200 with
// a zero-length body; those requests are repeated verbatim.
var elevenLabsRetryDelays = []time.Duration{
	1 * time.Second,
	2 * time.Second,
	3 * time.Second,
}

// ElevenLabsEngine synthesizes speech through the ElevenLabs API.
type ElevenLabsEngine struct {
	apiKey      string
	baseURL     string
	client      *http.Client
	retryDelays []time.Duration
}

// NewElevenLabsEngine creates the adapter.
func NewElevenLabsEngine(apiKey string) *ElevenLabsEngine {
	return &ElevenLabsEngine{
		apiKey:      apiKey,
		baseURL:     elevenLabsDefaultBaseURL,
		client:      &http.Client{Timeout: 90 * time.Second},
		retryDelays: elevenLabsRetryDelays,
	}
}

// Name implements Engine.
func (e *ElevenLabsEngine) Name() string { return "elevenlabs" }

// RequiresAPIKey implements Engine.
func (e *ElevenLabsEngine) RequiresAPIKey() bool { return true }

// fallbackVoices is served when remote voice discovery fails.
var fallbackVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "AZnzlk1XvdvUeBnXmlld", Name: "Domi"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Bella"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam"},
}

// Capabilities implements Engine. Voices are discovered remotely with
// a static fallback when the request fails.
func (e *ElevenLabsEngine) Capabilities(ctx context.Context) Capabilities {
	caps := Capabilities{
		Voices:       fallbackVoices,
		Models:       []string{"eleven_monolingual_v1", "eleven_multilingual_v2", "eleven_turbo_v2"},
		AudioFormats: []string{"mp3_44100_128", "mp3_44100_192"},
		ExportsAudio: true,
	}

	voices, err := e.discoverVoices(ctx)
	if err != nil {
		log.Debug("elevenlabs voice discovery failed, using fallback list", "error", err)
		return caps
	}
	caps.Voices = voices
	return caps
}

func (e *ElevenLabsEngine) discoverVoices(ctx context.Context) ([]Voice, error) {
	if e.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/voices", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Engine: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Engine: e.Name(), Err: err}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, &APIError{Engine: e.Name(), StatusCode: resp.StatusCode, Message: extractAPIMessage(body)}
	}

	var parsed struct {
		Voices []struct {
			VoiceID string `json:"voice_id"`
			Name    string `json:"name"`
		} `json:"voices"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("decode voices: %w", err)
	}

	voices := make([]Voice, 0, len(parsed.Voices))
	for _, v := range parsed.Voices {
		voices = append(voices, Voice{ID: v.VoiceID, Name: v.Name})
	}
	if len(voices) == 0 {
		return nil, fmt.Errorf("voice list was empty")
	}
	return voices, nil
}

// Synthesize implements Engine. A success status with a zero-length
// payload is retried up to len(retryDelays) more times with escalating
// delays; non-2xx responses fail immediately without retry.
func (e *ElevenLabsEngine) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	if isSilence(text) {
		return silenceAudio(opts.DurationSeconds), nil
	}
	if e.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	for attempt := 0; ; attempt++ {
		body, err := e.requestSpeech(ctx, text, opts)
		if err != nil {
			return nil, err
		}
		if len(body) > 0 {
			if attempt > 0 {
				log.Info("elevenlabs retry succeeded", "attempt", attempt)
			}
			return body, nil
		}

		if attempt >= len(e.retryDelays) {
			return nil, ErrEmptyResponse
		}

		delay := e.retryDelays[attempt]
		log.Warn("elevenlabs returned empty payload, retrying", "attempt", attempt+1, "delay", delay)
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
}

func (e *ElevenLabsEngine) requestSpeech(ctx context.Context, text string, opts Options) ([]byte, error) {
	voice := opts.Voice
	if voice == "" {
		voice = fallbackVoices[0].ID
	}
	model := opts.Model
	if model == "" {
		model = "eleven_monolingual_v1"
	}
	format := opts.Format
	if format == "" {
		format = "mp3_44100_128"
	}

	payload, err := json.Marshal(map[string]any{
		"text":     text,
		"model_id": model,
		"voice_settings": map[string]any{
			"stability":        0.5,
			"similarity_boost": 0.75,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/v1/text-to-speech/%s?output_format=%s", e.baseURL, voice, format)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, &NetworkError{Engine: e.Name(), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &NetworkError{Engine: e.Name(), Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &APIError{Engine: e.Name(), StatusCode: resp.StatusCode, Message: extractAPIMessage(body)}
	}

	return body, nil
}

// ValidateAPIKey implements KeyValidator by fetching the user
// subscription record.
func (e *ElevenLabsEngine) ValidateAPIKey(ctx context.Context) (bool, error) {
	if e.apiKey == "" {
		return false, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/user", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("xi-api-key", e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return false, &NetworkError{Engine: e.Name(), Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}
