package mp3

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/phrasecast/phrasecast/pkg/audio"
)

// mockBlockEncoder records the blocks it receives and emits a fixed
// byte per frame plus a tail on flush.
type mockBlockEncoder struct {
	blocks     int
	samples    int
	cancelAt   int
	cancel     context.CancelFunc
	failBlocks bool
}

func (m *mockBlockEncoder) EncodeBlock(block [][]int16) ([]byte, error) {
	if m.failBlocks {
		return nil, errors.New("encoder backend failure")
	}
	m.blocks++
	m.samples += len(block[0])
	if m.cancel != nil && m.blocks == m.cancelAt {
		m.cancel()
	}
	return []byte{0xAA}, nil
}

func (m *mockBlockEncoder) Flush() ([]byte, error) {
	return []byte{0xBB, 0xBB}, nil
}

func installMock(t *testing.T, enc *mockBlockEncoder) {
	t.Helper()
	SetBlockEncoderFactory(func(sampleRate, channels, bitrateKbps int) (BlockEncoder, error) {
		return enc, nil
	})
	t.Cleanup(func() { SetBlockEncoderFactory(nil) })
}

func testBuffer(frames int) *audio.Buffer {
	buf := audio.NewBuffer(1, frames, 22050)
	for i := range buf.Data[0] {
		buf.Data[0][i] = float32(i%100) / 200
	}
	return buf
}

func TestEncodeUnavailableWithoutCapability(t *testing.T) {
	SetBlockEncoderFactory(nil)
	if Available() {
		t.Fatal("Available() = true with no factory installed")
	}
	_, err := Encode(context.Background(), testBuffer(FrameSize), 192, nil)
	if !errors.Is(err, ErrEncoderUnavailable) {
		t.Errorf("got %v, want ErrEncoderUnavailable", err)
	}
}

func TestEncodeInvalidBitrate(t *testing.T) {
	installMock(t, &mockBlockEncoder{})
	for _, kbps := range []int{0, 64, 100, 193} {
		if _, err := Encode(context.Background(), testBuffer(FrameSize), kbps, nil); err == nil {
			t.Errorf("bitrate %d: expected error, got nil", kbps)
		}
	}
}

func TestEncodeChunksAllSamples(t *testing.T) {
	tests := []struct {
		name       string
		frames     int
		wantBlocks int
	}{
		{"exact multiple", FrameSize * 3, 3},
		{"partial final frame", FrameSize*2 + 100, 3},
		{"single short frame", 500, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock := &mockBlockEncoder{}
			installMock(t, mock)

			out, err := Encode(context.Background(), testBuffer(tt.frames), 192, nil)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}
			if mock.blocks != tt.wantBlocks {
				t.Errorf("blocks = %d, want %d", mock.blocks, tt.wantBlocks)
			}
			if mock.samples != tt.frames {
				t.Errorf("samples consumed = %d, want %d", mock.samples, tt.frames)
			}
			want := append(bytes.Repeat([]byte{0xAA}, tt.wantBlocks), 0xBB, 0xBB)
			if !bytes.Equal(out, want) {
				t.Errorf("output = %x, want %x (flush appended last)", out, want)
			}
		})
	}
}

func TestEncodeProgress(t *testing.T) {
	installMock(t, &mockBlockEncoder{})

	var reports []int
	_, err := Encode(context.Background(), testBuffer(FrameSize*4), 192, func(percent int) {
		reports = append(reports, percent)
	})
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	if len(reports) == 0 {
		t.Fatal("no progress reports")
	}
	for i := 1; i < len(reports); i++ {
		if reports[i] < reports[i-1] {
			t.Errorf("progress went backwards: %v", reports)
		}
	}
	if last := reports[len(reports)-1]; last != 100 {
		t.Errorf("final progress = %d, want exactly 100", last)
	}
	for _, p := range reports {
		if p < 0 || p > 100 {
			t.Errorf("progress %d out of range", p)
		}
	}
}

func TestEncodeCancellationReturnsNoBytes(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	mock := &mockBlockEncoder{cancelAt: 2, cancel: cancel}
	installMock(t, mock)

	out, err := Encode(ctx, testBuffer(FrameSize*10), 192, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
	if out != nil {
		t.Errorf("cancelled encode returned %d bytes, want none", len(out))
	}
	if mock.blocks >= 10 {
		t.Error("encode ran to completion despite cancellation")
	}
}

func TestEncodeCancelledBeforeStart(t *testing.T) {
	installMock(t, &mockBlockEncoder{})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	out, err := Encode(ctx, testBuffer(FrameSize), 192, nil)
	if !errors.Is(err, ErrCancelled) {
		t.Fatalf("got %v, want ErrCancelled", err)
	}
	if out != nil {
		t.Error("expected no bytes from a pre-cancelled encode")
	}
}

func TestEncodeBlockErrorPropagates(t *testing.T) {
	installMock(t, &mockBlockEncoder{failBlocks: true})
	_, err := Encode(context.Background(), testBuffer(FrameSize), 192, nil)
	if err == nil || errors.Is(err, ErrCancelled) || errors.Is(err, ErrEncoderUnavailable) {
		t.Fatalf("got %v, want wrapped backend error", err)
	}
}
