package audio

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestFloatToPCM16(t *testing.T) {
	tests := []struct {
		name   string
		sample float32
		want   int16
	}{
		{"zero", 0, 0},
		{"positive full scale", 1.0, 32767},
		{"negative full scale", -1.0, -32768},
		{"positive half", 0.5, 16383},
		{"negative half", -0.5, -16384},
		{"clamps above", 1.5, 32767},
		{"clamps below", -1.5, -32768},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FloatToPCM16(tt.sample); got != tt.want {
				t.Errorf("FloatToPCM16(%f) = %d, want %d", tt.sample, got, tt.want)
			}
		})
	}
}

func TestEncodeWAVSize(t *testing.T) {
	tests := []struct {
		name     string
		channels int
		frames   int
	}{
		{"mono", 1, 1000},
		{"stereo", 2, 1000},
		{"empty", 1, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf := NewBuffer(tt.channels, tt.frames, 22050)
			out := EncodeWAV(buf)
			want := 44 + tt.frames*tt.channels*2
			if len(out) != want {
				t.Errorf("len = %d, want %d", len(out), want)
			}
		})
	}
}

func TestEncodeWAVHeader(t *testing.T) {
	buf := NewBuffer(2, 100, 44100)
	out := EncodeWAV(buf)

	if string(out[0:4]) != "RIFF" || string(out[8:12]) != "WAVE" {
		t.Fatal("missing RIFF/WAVE magic")
	}
	if string(out[12:16]) != "fmt " || string(out[36:40]) != "data" {
		t.Fatal("missing fmt/data chunk markers")
	}
	if got := binary.LittleEndian.Uint16(out[20:22]); got != 1 {
		t.Errorf("audio format = %d, want 1 (PCM)", got)
	}
	if got := binary.LittleEndian.Uint16(out[22:24]); got != 2 {
		t.Errorf("channels = %d, want 2", got)
	}
	if got := binary.LittleEndian.Uint32(out[24:28]); got != 44100 {
		t.Errorf("sample rate = %d, want 44100", got)
	}
	if got := binary.LittleEndian.Uint16(out[34:36]); got != 16 {
		t.Errorf("bit depth = %d, want 16", got)
	}
	if got := binary.LittleEndian.Uint32(out[40:44]); got != 400 {
		t.Errorf("data size = %d, want 400", got)
	}
}

func TestEncodeWAVDeterministic(t *testing.T) {
	buf := NewBuffer(1, 64, 22050)
	for i := range buf.Data[0] {
		buf.Data[0][i] = float32(i%3) * 0.25
	}
	if !bytes.Equal(EncodeWAV(buf), EncodeWAV(buf)) {
		t.Error("identical input produced different bytes")
	}
}

func TestEncodeWAVRoundTrip(t *testing.T) {
	buf := NewBuffer(1, 200, 22050)
	for i := range buf.Data[0] {
		buf.Data[0][i] = float32(i-100) / 128
	}

	decoded, err := Decode(EncodeWAV(buf))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded.SampleRate != buf.SampleRate {
		t.Errorf("sample rate = %d, want %d", decoded.SampleRate, buf.SampleRate)
	}
	if decoded.Frames() != buf.Frames() {
		t.Fatalf("frames = %d, want %d", decoded.Frames(), buf.Frames())
	}
	for i, want := range buf.Data[0] {
		got := decoded.Data[0][i]
		if diff := got - want; diff > 0.001 || diff < -0.001 {
			t.Fatalf("sample %d = %f, want %f", i, got, want)
		}
	}
}
