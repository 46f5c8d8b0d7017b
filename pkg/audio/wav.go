package audio

import "encoding/binary"

// WAV format constants
const (
	wavHeaderSize = 44
	wavBitDepth   = 16
	wavFormatPCM  = 1
)

// EncodeWAV serializes a buffer as canonical 16-bit PCM WAV bytes: a
// 44-byte RIFF/WAVE header followed by interleaved little-endian
// samples. The output is deterministic and always
// 44 + frames*channels*2 bytes long.
func EncodeWAV(buf *Buffer) []byte {
	channels := buf.Channels()
	frames := buf.Frames()
	bytesPerFrame := channels * wavBitDepth / 8
	dataSize := frames * bytesPerFrame

	out := make([]byte, wavHeaderSize+dataSize)

	copy(out[0:4], "RIFF")
	binary.LittleEndian.PutUint32(out[4:8], uint32(36+dataSize))
	copy(out[8:12], "WAVE")

	copy(out[12:16], "fmt ")
	binary.LittleEndian.PutUint32(out[16:20], 16)
	binary.LittleEndian.PutUint16(out[20:22], wavFormatPCM)
	binary.LittleEndian.PutUint16(out[22:24], uint16(channels))
	binary.LittleEndian.PutUint32(out[24:28], uint32(buf.SampleRate))
	binary.LittleEndian.PutUint32(out[28:32], uint32(buf.SampleRate*bytesPerFrame))
	binary.LittleEndian.PutUint16(out[32:34], uint16(bytesPerFrame))
	binary.LittleEndian.PutUint16(out[34:36], wavBitDepth)

	copy(out[36:40], "data")
	binary.LittleEndian.PutUint32(out[40:44], uint32(dataSize))

	offset := wavHeaderSize
	for i := 0; i < frames; i++ {
		for ch := 0; ch < channels; ch++ {
			binary.LittleEndian.PutUint16(out[offset:], uint16(FloatToPCM16(buf.Data[ch][i])))
			offset += 2
		}
	}

	return out
}

// FloatToPCM16 converts a float sample to 16-bit PCM, clamping to
// [-1, 1] first. Negative values scale by 32768, non-negative by 32767.
func FloatToPCM16(sample float32) int16 {
	if sample < -1 {
		sample = -1
	} else if sample > 1 {
		sample = 1
	}
	if sample < 0 {
		return int16(sample * 32768)
	}
	return int16(sample * 32767)
}
