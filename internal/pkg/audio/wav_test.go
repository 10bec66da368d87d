package audio

import (
	"testing"
)

func TestEncodeDecodeWAVKeepsShape(t *testing.T) {
	in := PCM{Samples: []float32{0, 0.5, -0.5, 1, -1}, SampleRate: 16000}
	out, err := DecodeWAV(EncodeWAV16(in))
	if err != nil {
		t.Fatalf("DecodeWAV: %v", err)
	}
	if out.SampleRate != 16000 {
		t.Fatalf("rate=%d", out.SampleRate)
	}
	if len(out.Samples) != len(in.Samples) {
		t.Fatalf("samples=%d, want %d", len(out.Samples), len(in.Samples))
	}
	for i := range in.Samples {
		if d := out.Samples[i] - in.Samples[i]; d > 0.001 || d < -0.001 {
			t.Fatalf("sample %d = %v, want %v", i, out.Samples[i], in.Samples[i])
		}
	}
}

func TestDecodeWAVRejectsGarbage(t *testing.T) {
	if _, err := DecodeWAV([]byte("definitely not audio")); err == nil {
		t.Fatalf("expected error")
	}
}

func TestPrependSilence(t *testing.T) {
	p := PrependSilence(PCM{Samples: []float32{1, 1}, SampleRate: 10}, 0.5)
	if len(p.Samples) != 7 {
		t.Fatalf("samples=%d, want 7", len(p.Samples))
	}
	for i := 0; i < 5; i++ {
		if p.Samples[i] != 0 {
			t.Fatalf("sample %d not silent", i)
		}
	}
	if p.Duration() != 0.7 {
		t.Fatalf("duration=%v", p.Duration())
	}
}

func TestResample(t *testing.T) {
	cases := []struct {
		name  string
		in    PCM
		rate  int
		wantN int
	}{
		{name: "down", in: PCM{Samples: make([]float32, 48000), SampleRate: 48000}, rate: 24000, wantN: 24000},
		{name: "up", in: PCM{Samples: make([]float32, 100), SampleRate: 8000}, rate: 16000, wantN: 200},
		{name: "same", in: PCM{Samples: make([]float32, 10), SampleRate: 24000}, rate: 24000, wantN: 10},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := Resample(tc.in, tc.rate)
			if len(got.Samples) != tc.wantN || got.SampleRate != tc.rate {
				t.Fatalf("got n=%d rate=%d", len(got.Samples), got.SampleRate)
			}
		})
	}
}
