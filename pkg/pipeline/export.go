package pipeline

import (
	"context"
	"fmt"

	"github.com/phrasecast/phrasecast/pkg/audio"
	"github.com/phrasecast/phrasecast/pkg/mp3"
)

// Output formats.
const (
	FormatWAV = "wav"
	FormatMP3 = "mp3"
)

// ExportWAV serializes a program buffer as canonical 16-bit PCM WAV.
// It is synchronous and needs no cancellation.
func ExportWAV(buf *audio.Buffer) []byte {
	return audio.EncodeWAV(buf)
}

// ExportMP3 encodes a program buffer as MP3 at the given bitrate.
// Progress and cancellation follow the mp3 package's contract. When
// the encoder capability is missing, callers should fall back to WAV
// rather than retry.
func ExportMP3(ctx context.Context, buf *audio.Buffer, bitrateKbps int, onProgress func(percent int)) ([]byte, error) {
	return mp3.Encode(ctx, buf, bitrateKbps, onProgress)
}

// Export dispatches on format name.
func Export(ctx context.Context, buf *audio.Buffer, format string, bitrateKbps int, onProgress func(percent int)) ([]byte, error) {
	switch format {
	case FormatWAV:
		return ExportWAV(buf), nil
	case FormatMP3:
		return ExportMP3(ctx, buf, bitrateKbps, onProgress)
	default:
		return nil, fmt.Errorf("unsupported export format %q", format)
	}
}
