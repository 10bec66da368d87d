package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/ctxutil"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type WordRequest struct {
	Ref   domain.SessionRef
	Word  string
	Theme string
	Voice domain.VoiceSpec
}

// WordPipeline runs one sentence/image/audio generation cycle and stores the Learning Record.
type WordPipeline interface {
	Run(ctx context.Context, req WordRequest) (domain.LearningRecord, error)
}

type WordPipelineDeps struct {
	Sentences SentenceGenerator
	Images    ImageGenerator
	Speech    SpeechSynthesizer
	Objects   ObjectStore
	Store     SessionStore
	// Catalog and Notify are optional.
	Catalog WordCatalog
	Notify  Notifier
}

type wordPipeline struct {
	log  *logger.Logger
	deps WordPipelineDeps
	now  func() time.Time
}

func NewWordPipeline(log *logger.Logger, deps WordPipelineDeps) (WordPipeline, error) {
	if deps.Sentences == nil || deps.Images == nil || deps.Speech == nil || deps.Objects == nil || deps.Store == nil {
		return nil, fmt.Errorf("word pipeline: missing dependency")
	}
	return &wordPipeline{
		log:  log.With("service", "WordPipeline"),
		deps: deps,
		now:  func() time.Time { return time.Now().UTC() },
	}, nil
}

func (p *wordPipeline) Run(ctx context.Context, req WordRequest) (domain.LearningRecord, error) {
	ctx = ctxutil.Default(ctx)
	log := p.log.With(
		"request_id", ctxutil.RequestID(ctx),
		"user_id", req.Ref.UserID,
		"session_id", req.Ref.SessionID,
		"word", req.Word,
	)
	if strings.TrimSpace(req.Word) == "" {
		return domain.LearningRecord{}, fmt.Errorf("%w: wordEn is required", domain.ErrInvalidRequest)
	}
	if req.Voice == nil {
		req.Voice = domain.StandardVoice{Gender: domain.GenderFemale}
	}

	rec, err := p.run(ctx, log, req)
	if err != nil {
		observability.Current().IncPipelineRun(WordPipelineName, StageFailed)
		log.Error("word pipeline failed", "stage", domain.FailedStage(err), "error", err)
		return domain.LearningRecord{}, err
	}
	observability.Current().IncPipelineRun(WordPipelineName, StageDone)
	log.Info("word pipeline done", "seq", rec.Seq, "voice", req.Voice.String())
	return rec, nil
}

func (p *wordPipeline) run(ctx context.Context, log *logger.Logger, req WordRequest) (domain.LearningRecord, error) {
	// Generating Sentence
	log.Debug("stage", "stage", StageGeneratingSentence)
	sctx, st := startStage(ctx, WordPipelineName, StageGeneratingSentence, attribute.String("word", req.Word))
	sent, err := p.deps.Sentences.Generate(sctx, SentenceRequest{Ref: req.Ref, Word: req.Word, Theme: req.Theme})
	if err := st.end(err); err != nil {
		return domain.LearningRecord{}, err
	}

	// Generating Image and Generating Audio depend only on the sentence; run them together.
	log.Debug("stage", "stage", StageGeneratingImage+"+"+StageGeneratingAudio)
	var imageBytes, audioBytes []byte
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ictx, st := startStage(gctx, WordPipelineName, StageGeneratingImage)
		b, err := p.deps.Images.Generate(ictx, sent.ImagePrompt)
		imageBytes = b
		return st.end(err)
	})
	g.Go(func() error {
		actx, st := startStage(gctx, WordPipelineName, StageGeneratingAudio, attribute.String("voice", req.Voice.String()))
		b, err := p.deps.Speech.Synthesize(actx, sent.Sentence, req.Voice)
		audioBytes = b
		return st.end(err)
	})
	if err := g.Wait(); err != nil {
		return domain.LearningRecord{}, err
	}

	// Uploading Artifacts
	log.Debug("stage", "stage", StageUploadingArtifacts)
	uctx, st := startStage(ctx, WordPipelineName, StageUploadingArtifacts)
	imageURL, audioURL, err := p.upload(uctx, req, imageBytes, audioBytes)
	if err := st.end(err); err != nil {
		return domain.LearningRecord{}, err
	}

	// Persisting Record
	log.Debug("stage", "stage", StagePersistingRecord)
	rec := domain.LearningRecord{
		Word:        strings.TrimSpace(req.Word),
		Sentence:    sent.Sentence,
		Translation: sent.Translation,
		ImagePrompt: sent.ImagePrompt,
		ImageURL:    imageURL,
		AudioURL:    audioURL,
		Seq:         sent.Seq,
		CachedAt:    p.now(),
	}
	pctx, st := startStage(ctx, WordPipelineName, StagePersistingRecord)
	key, err := p.deps.Store.SaveRecord(pctx, req.Ref, rec)
	if err := st.end(err); err != nil {
		return domain.LearningRecord{}, err
	}

	if p.deps.Catalog != nil {
		if err := p.deps.Catalog.Upsert(ctx, req.Ref, rec); err != nil {
			log.Warn("word catalog upsert failed", "error", err)
		}
	}
	if p.deps.Notify != nil {
		p.deps.Notify.WordReady(ctx, req.Ref, key, rec)
	}
	return rec, nil
}

func (p *wordPipeline) upload(ctx context.Context, req WordRequest, image, audio []byte) (string, string, error) {
	var imageURL, audioURL string
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		u, err := p.deps.Objects.Upload(gctx, gcp.BucketCategoryImage, ImageObjectKey(req.Ref, req.Word), image)
		if err != nil {
			return fmt.Errorf("%w: image: %v", domain.ErrUpload, err)
		}
		imageURL = u
		return nil
	})
	g.Go(func() error {
		u, err := p.deps.Objects.Upload(gctx, gcp.BucketCategoryAudio, AudioObjectKey(req.Ref, req.Word), audio)
		if err != nil {
			return fmt.Errorf("%w: audio: %v", domain.ErrUpload, err)
		}
		audioURL = u
		return nil
	})
	if err := g.Wait(); err != nil {
		return "", "", err
	}
	return imageURL, audioURL, nil
}
