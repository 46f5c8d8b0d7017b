// Package phrase parses phrase-script text into the ordered program the
// pipeline runs: one spoken (or silent) segment per line, each followed
// by a pause.
package phrase

import (
	"errors"
	"strconv"
	"strings"
)

// SilenceMarker is the literal phrase text that means "no speech, just
// silence".
const SilenceMarker = "*"

// Parser errors.
var (
	// ErrEmptyInput indicates the phrase file content was empty
	ErrEmptyInput = errors.New("phrase file is empty")

	// ErrNoPhrasesFound indicates no usable phrases after parsing
	ErrNoPhrasesFound = errors.New("no phrases found in phrase file")
)

// Phrase is one line of the program: spoken text (or the silence
// marker) plus the pause, in seconds, inserted after it.
type Phrase struct {
	Text            string
	DurationSeconds float64
}

// IsSilence reports whether the phrase skips speech synthesis entirely.
func (p Phrase) IsSilence() bool {
	return p.Text == "" || p.Text == SilenceMarker
}

// Parse converts phrase-file text into an ordered phrase list. Each
// non-blank line is `<text>;<duration_seconds>`; the text runs up to
// the last semicolon so the text itself may contain semicolons. Blank
// lines are skipped. A missing or malformed duration defaults to 0
// rather than failing.
func Parse(content string) ([]Phrase, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyInput
	}

	var phrases []Phrase
	for _, line := range strings.Split(content, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		phrases = append(phrases, parseLine(line))
	}

	if len(phrases) == 0 {
		return nil, ErrNoPhrasesFound
	}
	return phrases, nil
}

// parseLine splits one trimmed, non-empty line at its last semicolon.
func parseLine(line string) Phrase {
	idx := strings.LastIndex(line, ";")
	if idx < 0 {
		return Phrase{Text: line}
	}

	// Empty text before the semicolon is a silence-only phrase, the
	// same as the explicit marker.
	text := strings.TrimSpace(line[:idx])

	duration := 0.0
	if raw := strings.TrimSpace(line[idx+1:]); raw != "" {
		if parsed, err := strconv.ParseFloat(raw, 64); err == nil && parsed >= 0 {
			duration = parsed
		}
	}

	return Phrase{Text: text, DurationSeconds: duration}
}
