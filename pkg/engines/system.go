package engines

import (
	"context"
	"fmt"
	"os/exec"
	"runtime"
	"strconv"
	"sync"

	"github.com/charmbracelet/log"
)

// SystemEngine drives the operating system's speech synthesizer for
// playback. It never returns audio bytes; programs using it are played
// to completion instead of exported.
type SystemEngine struct {
	binary string
	args   func(text string, opts Options) []string

	mu     sync.Mutex
	cancel context.CancelFunc
}

// NewSystemEngine locates a usable system speech binary (`say` on
// macOS, `espeak-ng`/`espeak` elsewhere).
func NewSystemEngine() (*SystemEngine, error) {
	if runtime.GOOS == "darwin" {
		if path, err := exec.LookPath("say"); err == nil {
			return &SystemEngine{
				binary: path,
				args: func(text string, opts Options) []string {
					args := []string{}
					if opts.Voice != "" {
						args = append(args, "-v", opts.Voice)
					}
					return append(args, text)
				},
			}, nil
		}
	}

	for _, candidate := range []string{"espeak-ng", "espeak"} {
		if path, err := exec.LookPath(candidate); err == nil {
			return &SystemEngine{
				binary: path,
				args: func(text string, opts Options) []string {
					args := []string{}
					if opts.Voice != "" {
						args = append(args, "-v", opts.Voice)
					}
					if opts.Speed > 0 {
						// espeak rate is words per minute, 175 is normal
						args = append(args, "-s", strconv.Itoa(int(175*opts.Speed)))
					}
					return append(args, text)
				},
			}, nil
		}
	}

	return nil, fmt.Errorf("no system speech binary found (tried say, espeak-ng, espeak)")
}

// Name implements Speaker.
func (e *SystemEngine) Name() string { return "system" }

// RequiresAPIKey reports that on-device synthesis is unauthenticated.
func (e *SystemEngine) RequiresAPIKey() bool { return false }

// Capabilities describes the playback-only contract.
func (e *SystemEngine) Capabilities(_ context.Context) Capabilities {
	return Capabilities{ExportsAudio: false}
}

// Speak implements Speaker: it plays one utterance to completion.
// Silence phrases complete immediately; the caller owns pause timing.
func (e *SystemEngine) Speak(ctx context.Context, text string, opts Options) error {
	if isSilence(text) {
		return nil
	}

	runCtx, cancel := context.WithCancel(ctx)
	e.mu.Lock()
	e.cancel = cancel
	e.mu.Unlock()
	defer func() {
		cancel()
		e.mu.Lock()
		e.cancel = nil
		e.mu.Unlock()
	}()

	cmd := exec.CommandContext(runCtx, e.binary, e.args(text, opts)...)
	log.Debug("system speech", "binary", e.binary, "textLength", len(text))
	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return runCtx.Err()
		}
		return fmt.Errorf("system speech failed: %w", err)
	}
	return nil
}

// Stop implements Speaker: it cancels any in-flight utterance.
func (e *SystemEngine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.cancel != nil {
		e.cancel()
	}
}
