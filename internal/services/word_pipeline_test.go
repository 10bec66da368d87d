package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type wordFixture struct {
	store   SessionStore
	text    *fakeText
	images  *fakeImages
	speech  *fakeSpeech
	objects *fakeObjects
	notify  *fakeNotifier
}

func newWordFixture(t *testing.T, replies ...string) (*wordFixture, WordPipelineDeps) {
	t.Helper()
	store, _ := newTestStore(t)
	f := &wordFixture{
		store:   store,
		text:    &fakeText{replies: replies},
		images:  &fakeImages{},
		speech:  &fakeSpeech{name: "wav"},
		objects: &fakeObjects{},
		notify:  &fakeNotifier{},
	}
	return f, WordPipelineDeps{
		Sentences: newTestSentenceGenerator(t, f.text, store, 3),
		Images:    f.images,
		Speech:    f.speech,
		Objects:   f.objects,
		Store:     store,
		Notify:    f.notify,
	}
}

func TestWordPipelineHappyPath(t *testing.T) {
	store, mr := newTestStore(t)
	text := &fakeText{replies: []string{appleReply}}
	objects := &fakeObjects{}
	notify := &fakeNotifier{}
	p, err := NewWordPipeline(logger.Nop(), WordPipelineDeps{
		Sentences: newTestSentenceGenerator(t, text, store, 3),
		Images:    &fakeImages{},
		Speech:    &fakeSpeech{name: "wav"},
		Objects:   objects,
		Store:     store,
		Notify:    notify,
	})
	require.NoError(t, err)

	ref := domain.SessionRef{UserID: 1, SessionID: 1}
	rec, err := p.Run(context.Background(), WordRequest{Ref: ref, Word: "apple", Theme: "fruit"})
	require.NoError(t, err)
	assert.Equal(t, "I eat a red apple.", rec.Sentence)
	assert.Equal(t, "나는 빨간 사과를 먹어요.", rec.Translation)
	assert.Equal(t, "https://cdn.test/images/1_apple_image.png", rec.ImageURL)
	assert.Equal(t, "https://cdn.test/audio/1_apple_audio.wav", rec.AudioURL)
	assert.Equal(t, int64(1), rec.Seq)

	require.Equal(t, 2, objects.Count())
	categories := map[gcp.BucketCategory]bool{}
	for _, u := range objects.uploads {
		categories[u.category] = true
	}
	assert.True(t, categories[gcp.BucketCategoryImage])
	assert.True(t, categories[gcp.BucketCategoryAudio])

	key := LearningKey(ref, "apple")
	assert.Equal(t, []string{key}, mr.Keys())
	assert.Equal(t, 86400*time.Second, mr.TTL(key))

	records, err := store.Records(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, rec.AudioURL, records[0].AudioURL)
	assert.Equal(t, []string{key}, notify.words)
}

func TestWordPipelineDefaultsToFemaleStandardVoice(t *testing.T) {
	f, deps := newWordFixture(t, appleReply)
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), WordRequest{Ref: domain.SessionRef{UserID: 1, SessionID: 1}, Word: "apple"})
	require.NoError(t, err)
	require.Len(t, f.speech.voices, 1)
	assert.Equal(t, domain.StandardVoice{Gender: domain.GenderFemale}, f.speech.voices[0])
}

func TestWordPipelineExhaustedWritesNothing(t *testing.T) {
	f, deps := newWordFixture(t, `{"sentence_en":"Apple.","sentence_ko":"사과","image_prompt":"apple"}`)
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	ref := domain.SessionRef{UserID: 1, SessionID: 1}
	_, err = p.Run(context.Background(), WordRequest{Ref: ref, Word: "apple"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrValidationExhausted)
	assert.Equal(t, StageGeneratingSentence, domain.FailedStage(err))
	assert.Equal(t, 0, f.objects.Count())
	assert.Equal(t, 0, f.images.calls)
	assert.Equal(t, 0, f.speech.Calls())

	records, err := f.store.Records(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, records)
	assert.Empty(t, f.notify.words)
}

func TestWordPipelineImageFailureSkipsPersist(t *testing.T) {
	f, deps := newWordFixture(t, appleReply)
	f.images.err = domain.ErrRenderTimeout
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	ref := domain.SessionRef{UserID: 1, SessionID: 1}
	_, err = p.Run(context.Background(), WordRequest{Ref: ref, Word: "apple"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrRenderTimeout)
	assert.Equal(t, StageGeneratingImage, domain.FailedStage(err))
	assert.Equal(t, 0, f.objects.Count())

	records, err := f.store.Records(context.Background(), ref)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestWordPipelineUploadFailure(t *testing.T) {
	f, deps := newWordFixture(t, appleReply)
	f.objects.err = errors.New("bucket gone")
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), WordRequest{Ref: domain.SessionRef{UserID: 1, SessionID: 1}, Word: "apple"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrUpload)
	assert.Equal(t, StageUploadingArtifacts, domain.FailedStage(err))
}

func TestWordPipelineRepeatOverwritesRecord(t *testing.T) {
	bananaReply := `{"sentence_en":"I like a yellow apple too.","sentence_ko":"나는 노란 사과도 좋아요.","image_prompt":"a yellow apple"}`
	f, deps := newWordFixture(t, appleReply, bananaReply)
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	ref := domain.SessionRef{UserID: 1, SessionID: 1}
	_, err = p.Run(context.Background(), WordRequest{Ref: ref, Word: "apple"})
	require.NoError(t, err)
	second, err := p.Run(context.Background(), WordRequest{Ref: ref, Word: " Apple "})
	require.NoError(t, err)

	records, err := f.store.Records(context.Background(), ref)
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, second.Sentence, records[0].Sentence)
	assert.Equal(t, 4, f.objects.Count())
}

func TestWordPipelineRejectsBlankWord(t *testing.T) {
	f, deps := newWordFixture(t, appleReply)
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), WordRequest{Ref: domain.SessionRef{UserID: 1, SessionID: 1}, Word: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidRequest)
	assert.Equal(t, 0, f.text.Calls())
}

// rendezvous blocks each caller until both image and audio generation have started.
type rendezvous struct {
	wg sync.WaitGroup
}

func newRendezvous() *rendezvous {
	r := &rendezvous{}
	r.wg.Add(2)
	return r
}

func (r *rendezvous) arrive(ctx context.Context) error {
	r.wg.Done()
	done := make(chan struct{})
	go func() {
		r.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-time.After(2 * time.Second):
		return errors.New("peer never started")
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *rendezvous) Generate(ctx context.Context, prompt string) ([]byte, error) {
	if err := r.arrive(ctx); err != nil {
		return nil, err
	}
	return []byte("png"), nil
}

func (r *rendezvous) Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error) {
	if err := r.arrive(ctx); err != nil {
		return nil, err
	}
	return []byte("wav"), nil
}

func TestWordPipelineRunsImageAndAudioConcurrently(t *testing.T) {
	_, deps := newWordFixture(t, appleReply)
	r := newRendezvous()
	deps.Images = r
	deps.Speech = r
	p, err := NewWordPipeline(logger.Nop(), deps)
	require.NoError(t, err)

	_, err = p.Run(context.Background(), WordRequest{Ref: domain.SessionRef{UserID: 1, SessionID: 1}, Word: "apple"})
	require.NoError(t, err)
}
