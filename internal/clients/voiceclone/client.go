package voiceclone

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/pkg/audio"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// Codes are the model's discrete audio tokens, one row per codebook.
type Codes [][]int

// Conditioning is what the generative model is conditioned on.
type Conditioning struct {
	Text     string    `json:"text"`
	Speaker  []float32 `json:"speaker_embedding"`
	Language string    `json:"language"`
	Seed     int64     `json:"seed"`
}

// Model is the voice-cloning model server. It is loaded once at startup and shared.
type Model interface {
	SampleRate() int
	SpeakerEmbedding(ctx context.Context, pcm audio.PCM) ([]float32, error)
	// EncodedSpeakerEmbedding lets the server decode a compressed reference (m4a, mp3, ogg).
	EncodedSpeakerEmbedding(ctx context.Context, data []byte, contentType string) ([]float32, error)
	Generate(ctx context.Context, cond Conditioning) (Codes, error)
	Decode(ctx context.Context, codes Codes) (audio.PCM, error)
}

type Config struct {
	BaseURL string
	Timeout time.Duration
}

type client struct {
	log        *logger.Logger
	baseURL    string
	httpClient *http.Client
	sampleRate int
}

type healthResponse struct {
	Status       string `json:"status"`
	Model        string `json:"model"`
	SamplingRate int    `json:"sampling_rate"`
}

// Connect warms the model server and reads its native sampling rate.
// It fails when the server is not ready so a cold model is never injected.
func Connect(ctx context.Context, log *logger.Logger, cfg Config) (Model, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		return nil, fmt.Errorf("missing VOICE_CLONE_BASE_URL")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 3 * time.Minute
	}
	c := &client{
		log:        log.With("service", "VoiceCloneModel"),
		baseURL:    base,
		httpClient: &http.Client{Timeout: timeout},
	}
	var h healthResponse
	if err := httpx.DoJSON(ctx, c.httpClient, "voiceclone", http.MethodGet, base+"/v1/health", nil, nil, &h); err != nil {
		return nil, fmt.Errorf("voice clone warmup: %w", err)
	}
	if !strings.EqualFold(h.Status, "ready") {
		return nil, fmt.Errorf("voice clone model not ready: status=%q", h.Status)
	}
	if h.SamplingRate <= 0 {
		return nil, errors.New("voice clone model reported no sampling rate")
	}
	c.sampleRate = h.SamplingRate
	c.log.Info("voice clone model ready", "model", h.Model, "sampling_rate", h.SamplingRate)
	return c, nil
}

func (c *client) SampleRate() int { return c.sampleRate }

func (c *client) SpeakerEmbedding(ctx context.Context, pcm audio.PCM) ([]float32, error) {
	if len(pcm.Samples) == 0 {
		return nil, errors.New("voiceclone: empty reference audio")
	}
	req := struct {
		Samples    []float32 `json:"samples"`
		SampleRate int       `json:"sample_rate"`
	}{Samples: pcm.Samples, SampleRate: pcm.SampleRate}
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := httpx.DoJSON(ctx, c.httpClient, "voiceclone", http.MethodPost, c.baseURL+"/v1/speaker-embedding", nil, req, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("voiceclone: empty speaker embedding")
	}
	return out.Embedding, nil
}

func (c *client) EncodedSpeakerEmbedding(ctx context.Context, data []byte, contentType string) ([]float32, error) {
	if len(data) == 0 {
		return nil, errors.New("voiceclone: empty reference audio")
	}
	req := struct {
		Audio       []byte `json:"audio"`
		ContentType string `json:"content_type,omitempty"`
	}{Audio: data, ContentType: contentType}
	var out struct {
		Embedding []float32 `json:"embedding"`
	}
	if err := httpx.DoJSON(ctx, c.httpClient, "voiceclone", http.MethodPost, c.baseURL+"/v1/speaker-embedding/encoded", nil, req, &out); err != nil {
		return nil, err
	}
	if len(out.Embedding) == 0 {
		return nil, errors.New("voiceclone: empty speaker embedding")
	}
	return out.Embedding, nil
}

func (c *client) Generate(ctx context.Context, cond Conditioning) (Codes, error) {
	var out struct {
		Codes Codes `json:"codes"`
	}
	if err := httpx.DoJSON(ctx, c.httpClient, "voiceclone", http.MethodPost, c.baseURL+"/v1/generate", nil, cond, &out); err != nil {
		return nil, err
	}
	if len(out.Codes) == 0 {
		return nil, errors.New("voiceclone: model returned no codes")
	}
	return out.Codes, nil
}

func (c *client) Decode(ctx context.Context, codes Codes) (audio.PCM, error) {
	req := struct {
		Codes Codes `json:"codes"`
	}{Codes: codes}
	var out struct {
		Samples    []float32 `json:"samples"`
		SampleRate int       `json:"sample_rate"`
	}
	if err := httpx.DoJSON(ctx, c.httpClient, "voiceclone", http.MethodPost, c.baseURL+"/v1/decode", nil, req, &out); err != nil {
		return audio.PCM{}, err
	}
	if len(out.Samples) == 0 {
		return audio.PCM{}, errors.New("voiceclone: decoder returned no samples")
	}
	rate := out.SampleRate
	if rate <= 0 {
		rate = c.sampleRate
	}
	return audio.PCM{Samples: out.Samples, SampleRate: rate}, nil
}
