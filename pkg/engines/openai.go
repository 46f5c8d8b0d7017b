package engines

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/charmbracelet/log"
)

const openAIDefaultBaseURL = "https://api.openai.com"

// OpenAIEngine synthesizes speech through the OpenAI speech endpoint.
type OpenAIEngine struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

// NewOpenAIEngine creates the adapter. The key may be empty; byte
// synthesis then fails with ErrMissingAPIKey while silence still works.
func NewOpenAIEngine(apiKey string) *OpenAIEngine {
	return &OpenAIEngine{
		apiKey:  apiKey,
		baseURL: openAIDefaultBaseURL,
		client:  &http.Client{Timeout: 90 * time.Second},
	}
}

// Name implements Engine.
func (e *OpenAIEngine) Name() string { return "openai" }

// RequiresAPIKey implements Engine.
func (e *OpenAIEngine) RequiresAPIKey() bool { return true }

// Capabilities implements Engine. The OpenAI voice and model sets are
// fixed by the API, so no discovery round trip is made.
func (e *OpenAIEngine) Capabilities(_ context.Context) Capabilities {
	return Capabilities{
		Voices: []Voice{
			{ID: "alloy", Name: "Alloy"},
			{ID: "echo", Name: "Echo"},
			{ID: "fable", Name: "Fable"},
			{ID: "nova", Name: "Nova"},
			{ID: "onyx", Name: "Onyx"},
			{ID: "shimmer", Name: "Shimmer"},
		},
		Models:       []string{"tts-1", "tts-1-hd"},
		AudioFormats: []string{"mp3", "wav"},
		ExportsAudio: true,
	}
}

// Synthesize implements Engine.
func (e *OpenAIEngine) Synthesize(ctx context.Context, text string, opts Options) ([]byte, error) {
	if isSilence(text) {
		return silenceAudio(opts.DurationSeconds), nil
	}
	if e.apiKey == "" {
		return nil, ErrMissingAPIKey
	}

	model := opts.Model
	if model == "" {
		model = "tts-1"
	}
	voice := opts.Voice
	if voice == "" {
		voice = "alloy"
	}
	speed := opts.Speed
	if speed == 0 {
		speed = 1.0
	}
	format := opts.Format
	if format == "" {
		format = "mp3"
	}

	payload, err := json.Marshal(map[string]any{
		"model":           model,
		"input":           text,
		"voice":           voice,
		"speed":           speed,
		"response_format": format,
	})
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.baseURL+"/v1/audio/speech", bytes.NewReader(payload))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

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

	log.Debug("openai synthesis complete", "textLength", len(text), "audioBytes", len(body))
	return body, nil
}

// ValidateAPIKey implements KeyValidator by listing models, the
// cheapest authenticated request the API offers.
func (e *OpenAIEngine) ValidateAPIKey(ctx context.Context) (bool, error) {
	if e.apiKey == "" {
		return false, ErrMissingAPIKey
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.baseURL+"/v1/models", nil)
	if err != nil {
		return false, err
	}
	req.Header.Set("Authorization", "Bearer "+e.apiKey)

	resp, err := e.client.Do(req)
	if err != nil {
		return false, &NetworkError{Engine: e.Name(), Err: err}
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	return resp.StatusCode >= 200 && resp.StatusCode <= 299, nil
}

// extractAPIMessage pulls the provider's structured error message out
// of a response body, falling back to the raw text.
func extractAPIMessage(body []byte) string {
	var parsed struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
		Detail any `json:"detail"`
	}
	if err := json.Unmarshal(body, &parsed); err == nil {
		if parsed.Error.Message != "" {
			return parsed.Error.Message
		}
		if parsed.Detail != nil {
			return fmt.Sprintf("%v", parsed.Detail)
		}
	}

	raw := strings.TrimSpace(string(body))
	if raw == "" {
		return "no error details provided"
	}
	return raw
}
