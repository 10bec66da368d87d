package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/voiceclone"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/audio"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// SpeechSynthesizer turns text into WAV bytes for the given voice.
type SpeechSynthesizer interface {
	Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error)
}

// ---------- standard (cloud TTS) ----------

type StandardVoiceProfile struct {
	Name         string
	LanguageCode string
	SpeakingRate float64
}

var DefaultStandardVoices = map[domain.Gender]StandardVoiceProfile{
	domain.GenderMale:   {Name: "en-US-Wavenet-D", LanguageCode: "en-US", SpeakingRate: 0.75},
	domain.GenderFemale: {Name: "en-US-Wavenet-F", LanguageCode: "en-US", SpeakingRate: 0.75},
}

const leadInMillis = 500

type standardSynthesizer struct {
	log    *logger.Logger
	tts    gcp.TextToSpeech
	voices map[domain.Gender]StandardVoiceProfile
}

func NewStandardSynthesizer(log *logger.Logger, tts gcp.TextToSpeech) SpeechSynthesizer {
	return &standardSynthesizer{
		log:    log.With("service", "StandardSynthesizer"),
		tts:    tts,
		voices: DefaultStandardVoices,
	}
}

func (s *standardSynthesizer) Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error) {
	sv, ok := voice.(domain.StandardVoice)
	if !ok {
		return nil, fmt.Errorf("%w: standard synthesizer cannot serve %s", domain.ErrSynthesis, voice)
	}
	gender := sv.Gender
	if gender == "" {
		gender = domain.GenderFemale
	}
	profile, ok := s.voices[gender]
	if !ok {
		return nil, fmt.Errorf("%w: no voice profile for %s", domain.ErrSynthesis, gender)
	}
	out, err := s.tts.Synthesize(ctx, gcp.SpeechRequest{
		Text:         text,
		VoiceName:    profile.Name,
		LanguageCode: profile.LanguageCode,
		SpeakingRate: profile.SpeakingRate,
		SSMLGender:   string(gender),
		LeadInMillis: leadInMillis,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesis, err)
	}
	return out, nil
}

// ---------- cloned voice ----------

type ClonedSynthesizerConfig struct {
	Language   string
	Seed       int64
	SampleRate int
	// MaxReferenceBytes caps the reference download.
	MaxReferenceBytes int64
}

type clonedSynthesizer struct {
	log        *logger.Logger
	model      voiceclone.Model
	httpClient *http.Client
	cfg        ClonedSynthesizerConfig
}

// NewClonedSynthesizer takes an already warmed model; the model is never reloaded here.
func NewClonedSynthesizer(log *logger.Logger, model voiceclone.Model, cfg ClonedSynthesizerConfig) SpeechSynthesizer {
	if cfg.Language == "" {
		cfg.Language = "en-us"
	}
	if cfg.Seed == 0 {
		cfg.Seed = 421
	}
	if cfg.SampleRate <= 0 {
		cfg.SampleRate = 24000
	}
	if cfg.MaxReferenceBytes <= 0 {
		cfg.MaxReferenceBytes = 20 << 20
	}
	return &clonedSynthesizer{
		log:        log.With("service", "ClonedSynthesizer"),
		model:      model,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		cfg:        cfg,
	}
}

func (s *clonedSynthesizer) Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error) {
	cv, ok := voice.(domain.ClonedVoice)
	if !ok {
		return nil, fmt.Errorf("%w: cloned synthesizer cannot serve %s", domain.ErrSynthesis, voice)
	}
	raw, contentType, err := httpx.Download(ctx, s.httpClient, "voice-reference", cv.ReferenceURL, s.cfg.MaxReferenceBytes)
	if err != nil {
		return nil, fmt.Errorf("%w: download reference: %v", domain.ErrSynthesis, err)
	}
	speaker, err := s.speakerEmbedding(ctx, raw, contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: speaker embedding: %v", domain.ErrSynthesis, err)
	}
	codes, err := s.model.Generate(ctx, voiceclone.Conditioning{
		Text:     text,
		Speaker:  speaker,
		Language: s.cfg.Language,
		Seed:     s.cfg.Seed,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: generate: %v", domain.ErrSynthesis, err)
	}
	wave, err := s.model.Decode(ctx, codes)
	if err != nil {
		return nil, fmt.Errorf("%w: decode: %v", domain.ErrSynthesis, err)
	}
	wave = audio.PrependSilence(wave, float64(leadInMillis)/1000)
	wave = audio.Resample(wave, s.cfg.SampleRate)
	s.log.Debug("cloned speech synthesized", "seconds", wave.Duration(), "sample_rate", wave.SampleRate)
	return audio.EncodeWAV16(wave), nil
}

// speakerEmbedding decodes WAV references locally; anything else (the product backend
// stores m4a by default) is sent as-is for the model server to decode.
func (s *clonedSynthesizer) speakerEmbedding(ctx context.Context, raw []byte, contentType string) ([]float32, error) {
	if !audio.IsWAV(raw) {
		s.log.Debug("sending encoded reference to model server", "content_type", contentType, "bytes", len(raw))
		return s.model.EncodedSpeakerEmbedding(ctx, raw, contentType)
	}
	ref, err := audio.DecodeWAV(raw)
	if err != nil {
		return nil, fmt.Errorf("reference audio: %w", err)
	}
	return s.model.SpeakerEmbedding(ctx, ref)
}

// ---------- router ----------

type voiceRouter struct {
	standard SpeechSynthesizer
	cloned   SpeechSynthesizer
}

// NewVoiceRouter dispatches on the VoiceSpec variant. cloned may be nil when no model
// server is configured; cloned requests then fail with ErrSynthesis.
func NewVoiceRouter(standard, cloned SpeechSynthesizer) SpeechSynthesizer {
	return &voiceRouter{standard: standard, cloned: cloned}
}

func (r *voiceRouter) Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error) {
	switch voice.(type) {
	case domain.StandardVoice:
		if r.standard == nil {
			return nil, fmt.Errorf("%w: standard synthesizer not configured", domain.ErrSynthesis)
		}
		return r.standard.Synthesize(ctx, text, voice)
	case domain.ClonedVoice:
		if r.cloned == nil {
			return nil, fmt.Errorf("%w: voice cloning not configured", domain.ErrSynthesis)
		}
		return r.cloned.Synthesize(ctx, text, voice)
	case nil:
		return nil, fmt.Errorf("%w: %v", domain.ErrSynthesis, errors.New("no voice selected"))
	default:
		return nil, fmt.Errorf("%w: unknown voice %T", domain.ErrSynthesis, voice)
	}
}
