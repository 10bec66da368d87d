package audio

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"
)

// PCM is mono float32 audio in [-1, 1].
type PCM struct {
	Samples    []float32
	SampleRate int
}

func (p PCM) Duration() float64 {
	if p.SampleRate <= 0 {
		return 0
	}
	return float64(len(p.Samples)) / float64(p.SampleRate)
}

// IsWAV reports whether raw starts with a RIFF/WAVE header.
func IsWAV(raw []byte) bool {
	return len(raw) >= 12 && string(raw[0:4]) == "RIFF" && string(raw[8:12]) == "WAVE"
}

// DecodeWAV reads a RIFF/WAVE payload and downmixes it to mono.
func DecodeWAV(raw []byte) (PCM, error) {
	d := wav.NewDecoder(bytes.NewReader(raw))
	if !d.IsValidFile() {
		return PCM{}, errors.New("not a valid wav file")
	}
	buf, err := d.FullPCMBuffer()
	if err != nil {
		return PCM{}, fmt.Errorf("decode wav: %w", err)
	}
	return fromIntBuffer(buf, int(d.BitDepth))
}

func fromIntBuffer(buf *goaudio.IntBuffer, bitDepth int) (PCM, error) {
	if buf == nil || buf.Format == nil {
		return PCM{}, errors.New("wav has no format")
	}
	ch := buf.Format.NumChannels
	if ch <= 0 {
		return PCM{}, errors.New("wav has no channels")
	}
	if bitDepth <= 0 {
		bitDepth = 16
	}
	scale := float32(math.Pow(2, float64(bitDepth-1)))
	frames := len(buf.Data) / ch
	out := make([]float32, frames)
	for i := 0; i < frames; i++ {
		var sum float32
		for c := 0; c < ch; c++ {
			sum += float32(buf.Data[i*ch+c]) / scale
		}
		out[i] = clamp(sum / float32(ch))
	}
	return PCM{Samples: out, SampleRate: buf.Format.SampleRate}, nil
}

// PrependSilence returns p with seconds of zero samples in front.
func PrependSilence(p PCM, seconds float64) PCM {
	n := int(seconds * float64(p.SampleRate))
	if n <= 0 {
		return p
	}
	out := make([]float32, n+len(p.Samples))
	copy(out[n:], p.Samples)
	return PCM{Samples: out, SampleRate: p.SampleRate}
}

// Resample converts p to rate with linear interpolation.
func Resample(p PCM, rate int) PCM {
	if rate <= 0 || p.SampleRate <= 0 || rate == p.SampleRate || len(p.Samples) == 0 {
		if rate > 0 && len(p.Samples) == 0 {
			return PCM{SampleRate: rate}
		}
		return p
	}
	ratio := float64(p.SampleRate) / float64(rate)
	n := int(math.Round(float64(len(p.Samples)) / ratio))
	out := make([]float32, n)
	last := len(p.Samples) - 1
	for i := range out {
		pos := float64(i) * ratio
		j := int(pos)
		if j >= last {
			out[i] = p.Samples[last]
			continue
		}
		frac := float32(pos - float64(j))
		out[i] = p.Samples[j]*(1-frac) + p.Samples[j+1]*frac
	}
	return PCM{Samples: out, SampleRate: rate}
}

// EncodeWAV16 writes p as a mono 16-bit PCM RIFF/WAVE file.
func EncodeWAV16(p PCM) []byte {
	dataLen := len(p.Samples) * 2
	var b bytes.Buffer
	b.Grow(44 + dataLen)
	b.WriteString("RIFF")
	_ = binary.Write(&b, binary.LittleEndian, uint32(36+dataLen))
	b.WriteString("WAVE")
	b.WriteString("fmt ")
	_ = binary.Write(&b, binary.LittleEndian, uint32(16))
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // PCM
	_ = binary.Write(&b, binary.LittleEndian, uint16(1)) // mono
	_ = binary.Write(&b, binary.LittleEndian, uint32(p.SampleRate))
	_ = binary.Write(&b, binary.LittleEndian, uint32(p.SampleRate*2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(2))
	_ = binary.Write(&b, binary.LittleEndian, uint16(16))
	b.WriteString("data")
	_ = binary.Write(&b, binary.LittleEndian, uint32(dataLen))
	for _, s := range p.Samples {
		_ = binary.Write(&b, binary.LittleEndian, int16(math.Round(float64(clamp(s))*32767)))
	}
	return b.Bytes()
}

func clamp(v float32) float32 {
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
