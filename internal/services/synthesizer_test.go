package services

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/voiceclone"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/audio"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

func TestVoiceRouterDispatchesOnVariant(t *testing.T) {
	cases := []struct {
		name         string
		voice        domain.VoiceSpec
		wantStandard int
		wantCloned   int
	}{
		{name: "cloned", voice: domain.ClonedVoice{ReferenceURL: "https://x/ref.wav"}, wantCloned: 1},
		{name: "standard", voice: domain.StandardVoice{Gender: domain.GenderMale}, wantStandard: 1},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			std := &fakeSpeech{name: "std"}
			cl := &fakeSpeech{name: "clone"}
			r := NewVoiceRouter(std, cl)
			_, err := r.Synthesize(context.Background(), "I eat a red apple.", tc.voice)
			require.NoError(t, err)
			assert.Equal(t, tc.wantStandard, std.Calls())
			assert.Equal(t, tc.wantCloned, cl.Calls())
		})
	}
}

func TestVoiceRouterWithoutClonedModel(t *testing.T) {
	r := NewVoiceRouter(&fakeSpeech{}, nil)
	_, err := r.Synthesize(context.Background(), "hi", domain.ClonedVoice{ReferenceURL: "https://x"})
	assert.ErrorIs(t, err, domain.ErrSynthesis)
}

type fakeTTS struct {
	req gcp.SpeechRequest
	err error
}

func (f *fakeTTS) Synthesize(ctx context.Context, req gcp.SpeechRequest) ([]byte, error) {
	f.req = req
	if f.err != nil {
		return nil, f.err
	}
	return []byte("RIFF"), nil
}

func (f *fakeTTS) Close() error { return nil }

func TestStandardSynthesizerVoiceProfiles(t *testing.T) {
	cases := []struct {
		gender domain.Gender
		voice  string
	}{
		{gender: domain.GenderMale, voice: "en-US-Wavenet-D"},
		{gender: domain.GenderFemale, voice: "en-US-Wavenet-F"},
		{gender: "", voice: "en-US-Wavenet-F"},
	}
	for _, tc := range cases {
		tts := &fakeTTS{}
		s := NewStandardSynthesizer(logger.Nop(), tts)
		_, err := s.Synthesize(context.Background(), "I eat a red apple.", domain.StandardVoice{Gender: tc.gender})
		require.NoError(t, err)
		assert.Equal(t, tc.voice, tts.req.VoiceName)
		assert.Equal(t, 500, tts.req.LeadInMillis)
		assert.Equal(t, 0.75, tts.req.SpeakingRate)
	}
}

func TestStandardSynthesizerWrapsProviderError(t *testing.T) {
	s := NewStandardSynthesizer(logger.Nop(), &fakeTTS{err: errors.New("quota")})
	_, err := s.Synthesize(context.Background(), "hi", domain.StandardVoice{Gender: domain.GenderMale})
	assert.ErrorIs(t, err, domain.ErrSynthesis)
}

type fakeModel struct {
	rate     int
	embedErr error
	cond     voiceclone.Conditioning

	pcmCalls        int
	encodedType     string
	encodedRefBytes int
}

func (m *fakeModel) SampleRate() int { return m.rate }

func (m *fakeModel) SpeakerEmbedding(ctx context.Context, pcm audio.PCM) ([]float32, error) {
	m.pcmCalls++
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{0.5}, nil
}

func (m *fakeModel) EncodedSpeakerEmbedding(ctx context.Context, data []byte, contentType string) ([]float32, error) {
	m.encodedType = contentType
	m.encodedRefBytes = len(data)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	return []float32{0.25}, nil
}

func (m *fakeModel) Generate(ctx context.Context, cond voiceclone.Conditioning) (voiceclone.Codes, error) {
	m.cond = cond
	return voiceclone.Codes{{1, 2}}, nil
}

func (m *fakeModel) Decode(ctx context.Context, codes voiceclone.Codes) (audio.PCM, error) {
	return audio.PCM{Samples: make([]float32, m.rate), SampleRate: m.rate}, nil
}

func referenceServer(t *testing.T) *httptest.Server {
	t.Helper()
	wav := audio.EncodeWAV16(audio.PCM{Samples: make([]float32, 1600), SampleRate: 16000})
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/ref.wav":
			_, _ = w.Write(wav)
		case "/ref.m4a":
			w.Header().Set("Content-Type", "audio/m4a")
			_, _ = w.Write([]byte("\x00\x00\x00\x20ftypM4A \x00\x00\x00\x00M4A mp42isom"))
		default:
			http.NotFound(w, r)
		}
	}))
}

func TestClonedSynthesizerPipeline(t *testing.T) {
	srv := referenceServer(t)
	defer srv.Close()
	model := &fakeModel{rate: 44100}
	s := NewClonedSynthesizer(logger.Nop(), model, ClonedSynthesizerConfig{SampleRate: 24000})

	out, err := s.Synthesize(context.Background(), "I eat a red apple.", domain.ClonedVoice{ReferenceURL: srv.URL + "/ref.wav"})
	require.NoError(t, err)
	assert.Equal(t, "en-us", model.cond.Language)
	assert.Equal(t, int64(421), model.cond.Seed)
	assert.Equal(t, "I eat a red apple.", model.cond.Text)

	pcm, err := audio.DecodeWAV(out)
	require.NoError(t, err)
	assert.Equal(t, 24000, pcm.SampleRate)
	// one second of speech plus half a second of lead-in
	assert.InDelta(t, 1.5, pcm.Duration(), 0.01)
}

func TestClonedSynthesizerFailures(t *testing.T) {
	srv := referenceServer(t)
	defer srv.Close()

	s := NewClonedSynthesizer(logger.Nop(), &fakeModel{rate: 24000}, ClonedSynthesizerConfig{})
	_, err := s.Synthesize(context.Background(), "hi there", domain.ClonedVoice{ReferenceURL: srv.URL + "/missing.wav"})
	assert.ErrorIs(t, err, domain.ErrSynthesis, "download failure")

	s = NewClonedSynthesizer(logger.Nop(), &fakeModel{rate: 24000, embedErr: errors.New("cuda oom")}, ClonedSynthesizerConfig{})
	_, err = s.Synthesize(context.Background(), "hi there", domain.ClonedVoice{ReferenceURL: srv.URL + "/ref.wav"})
	assert.ErrorIs(t, err, domain.ErrSynthesis, "embedding failure")
}

func TestClonedSynthesizerSendsCompressedReferenceToModel(t *testing.T) {
	srv := referenceServer(t)
	defer srv.Close()
	model := &fakeModel{rate: 24000}
	s := NewClonedSynthesizer(logger.Nop(), model, ClonedSynthesizerConfig{SampleRate: 24000})

	out, err := s.Synthesize(context.Background(), "The cat sleeps on the bed.", domain.ClonedVoice{ReferenceURL: srv.URL + "/ref.m4a"})
	require.NoError(t, err)
	assert.Equal(t, "audio/m4a", model.encodedType)
	assert.Greater(t, model.encodedRefBytes, 0)
	assert.Zero(t, model.pcmCalls)
	assert.Equal(t, []float32{0.25}, model.cond.Speaker)
	assert.True(t, audio.IsWAV(out))
}

func TestClonedSynthesizerDecodesWAVLocally(t *testing.T) {
	srv := referenceServer(t)
	defer srv.Close()
	model := &fakeModel{rate: 24000}
	s := NewClonedSynthesizer(logger.Nop(), model, ClonedSynthesizerConfig{})

	_, err := s.Synthesize(context.Background(), "The cat sleeps on the bed.", domain.ClonedVoice{ReferenceURL: srv.URL + "/ref.wav"})
	require.NoError(t, err)
	assert.Equal(t, 1, model.pcmCalls)
	assert.Empty(t, model.encodedType)
}
