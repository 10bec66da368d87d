package gcp

import (
	"context"
	"errors"
	"fmt"
	"html"
	"strings"
	"time"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// SpeechRequest selects one fixed cloud voice.
type SpeechRequest struct {
	Text         string
	VoiceName    string
	LanguageCode string
	SpeakingRate float64
	// SSMLGender is MALE or FEMALE; anything else leaves the gender unspecified.
	SSMLGender string
	// LeadInMillis is inserted as an SSML break before the text.
	LeadInMillis int
}

type TextToSpeech interface {
	// Synthesize returns LINEAR16 WAV bytes.
	Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error)
	Close() error
}

type synthesizeFunc func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error)

type textToSpeech struct {
	log        *logger.Logger
	synth      synthesizeFunc
	close      func() error
	maxRetries int
}

func NewTextToSpeech(ctx context.Context, log *logger.Logger, creds Credentials) (TextToSpeech, error) {
	client, err := texttospeech.NewClient(ctx, creds.ClientOptions()...)
	if err != nil {
		return nil, fmt.Errorf("failed to create texttospeech client: %w", err)
	}
	synth := func(ctx context.Context, req *texttospeechpb.SynthesizeSpeechRequest) (*texttospeechpb.SynthesizeSpeechResponse, error) {
		return client.SynthesizeSpeech(ctx, req)
	}
	return newTextToSpeech(log, synth, client.Close), nil
}

func newTextToSpeech(log *logger.Logger, synth synthesizeFunc, closeFn func() error) *textToSpeech {
	return &textToSpeech{
		log:        log.With("service", "TextToSpeech"),
		synth:      synth,
		close:      closeFn,
		maxRetries: 2,
	}
}

func buildSSML(text string, leadInMillis int) string {
	var b strings.Builder
	b.WriteString("<speak>")
	if leadInMillis > 0 {
		fmt.Fprintf(&b, `<break time="%dms"/>`, leadInMillis)
	}
	b.WriteString(html.EscapeString(strings.TrimSpace(text)))
	b.WriteString("</speak>")
	return b.String()
}

func (t *textToSpeech) Synthesize(ctx context.Context, req SpeechRequest) ([]byte, error) {
	if strings.TrimSpace(req.Text) == "" {
		return nil, errors.New("texttospeech: empty text")
	}
	lang := req.LanguageCode
	if lang == "" {
		lang = "en-US"
	}
	pbReq := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Ssml{Ssml: buildSSML(req.Text, req.LeadInMillis)},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: lang,
			Name:         req.VoiceName,
			SsmlGender:   ssmlGender(req.SSMLGender),
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding: texttospeechpb.AudioEncoding_LINEAR16,
			SpeakingRate:  req.SpeakingRate,
		},
	}

	var lastErr error
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		resp, err := t.synth(ctx, pbReq)
		if err == nil {
			if len(resp.GetAudioContent()) == 0 {
				return nil, errors.New("texttospeech: empty audio content")
			}
			t.log.Debug("synthesized speech", "voice", req.VoiceName, "bytes", len(resp.GetAudioContent()))
			return resp.GetAudioContent(), nil
		}
		lastErr = err
		if !isRetryableRPC(err) || attempt == t.maxRetries {
			break
		}
		t.log.Warn("texttospeech transient error; retrying", "attempt", attempt+1, "error", err)
		if err := httpx.Sleep(ctx, httpx.JitterSleep(time.Duration(attempt+1)*500*time.Millisecond)); err != nil {
			return nil, err
		}
	}
	return nil, fmt.Errorf("texttospeech synthesize: %w", lastErr)
}

func ssmlGender(g string) texttospeechpb.SsmlVoiceGender {
	switch strings.ToUpper(strings.TrimSpace(g)) {
	case "MALE":
		return texttospeechpb.SsmlVoiceGender_MALE
	case "FEMALE":
		return texttospeechpb.SsmlVoiceGender_FEMALE
	default:
		return texttospeechpb.SsmlVoiceGender_SSML_VOICE_GENDER_UNSPECIFIED
	}
}

func isRetryableRPC(err error) bool {
	if errors.Is(err, context.Canceled) {
		return false
	}
	st, ok := status.FromError(err)
	if !ok {
		return httpx.IsRetryableError(err)
	}
	switch st.Code() {
	case codes.Unavailable, codes.ResourceExhausted, codes.DeadlineExceeded, codes.Internal:
		return true
	default:
		return false
	}
}

func (t *textToSpeech) Close() error {
	if t.close == nil {
		return nil
	}
	return t.close()
}
