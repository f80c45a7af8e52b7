package generation

import (
	"encoding/binary"
	"time"
)

const wavHeaderSize = 44

type WAVFormat struct {
	SampleRate    int
	Channels      int
	BitsPerSample int
}

// DefaultWAVFormat matches the TTS model's raw output: 24kHz mono 16-bit.
var DefaultWAVFormat = WAVFormat{SampleRate: 24000, Channels: 1, BitsPerSample: 16}

func (f WAVFormat) withDefaults() WAVFormat {
	if f.SampleRate <= 0 {
		f.SampleRate = DefaultWAVFormat.SampleRate
	}
	if f.Channels <= 0 {
		f.Channels = DefaultWAVFormat.Channels
	}
	if f.BitsPerSample <= 0 {
		f.BitsPerSample = DefaultWAVFormat.BitsPerSample
	}
	return f
}

// EncodeWAV prefixes raw PCM with the canonical 44-byte RIFF header.
func EncodeWAV(pcm []byte, f WAVFormat) []byte {
	f = f.withDefaults()
	blockAlign := f.Channels * f.BitsPerSample / 8
	byteRate := f.SampleRate * blockAlign

	out := make([]byte, wavHeaderSize+len(pcm))
	le := binary.LittleEndian
	copy(out[0:4], "RIFF")
	le.PutUint32(out[4:8], uint32(36+len(pcm)))
	copy(out[8:12], "WAVE")
	copy(out[12:16], "fmt ")
	le.PutUint32(out[16:20], 16)
	le.PutUint16(out[20:22], 1)
	le.PutUint16(out[22:24], uint16(f.Channels))
	le.PutUint32(out[24:28], uint32(f.SampleRate))
	le.PutUint32(out[28:32], uint32(byteRate))
	le.PutUint16(out[32:34], uint16(blockAlign))
	le.PutUint16(out[34:36], uint16(f.BitsPerSample))
	copy(out[36:40], "data")
	le.PutUint32(out[40:44], uint32(len(pcm)))
	copy(out[wavHeaderSize:], pcm)
	return out
}

// PCMDuration is the playback length of pcm in format f.
func PCMDuration(pcm []byte, f WAVFormat) time.Duration {
	f = f.withDefaults()
	byteRate := f.SampleRate * f.Channels * f.BitsPerSample / 8
	if byteRate == 0 {
		return 0
	}
	return time.Duration(float64(len(pcm)) / float64(byteRate) * float64(time.Second))
}
