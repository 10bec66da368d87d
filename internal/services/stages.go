package services

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/observability"
)

const (
	WordPipelineName = "word"
	SongPipelineName = "song"
)

// Word pipeline states.
const (
	StageGeneratingSentence = "generating_sentence"
	StageGeneratingImage    = "generating_image"
	StageGeneratingAudio    = "generating_audio"
	StageUploadingArtifacts = "uploading_artifacts"
	StagePersistingRecord   = "persisting_record"
)

// Song pipeline states.
const (
	StageFetchingSentences = "fetching_sentences"
	StageGeneratingLyrics  = "generating_lyrics"
	StageSubmittingSong    = "submitting_song"
	StagePolling           = "polling"
	StageDownloading       = "downloading"
	StageUploading         = "uploading"
	StagePersisting        = "persisting"
)

const (
	StageDone   = "done"
	StageFailed = "failed"
)

// ObjectStore is the artifact upload capability; gcp.BucketService satisfies it.
type ObjectStore interface {
	Upload(ctx context.Context, category gcp.BucketCategory, key string, data []byte) (string, error)
}

var tracer = otel.Tracer("github.com/cozi7266/aieng/internal/services")

type stageSpan struct {
	span     trace.Span
	pipeline string
	stage    string
	start    time.Time
}

func startStage(ctx context.Context, pipeline, stage string, attrs ...attribute.KeyValue) (context.Context, *stageSpan) {
	attrs = append(attrs, attribute.String("pipeline", pipeline), attribute.String("stage", stage))
	ctx, span := tracer.Start(ctx, pipeline+"."+stage, trace.WithAttributes(attrs...))
	return ctx, &stageSpan{span: span, pipeline: pipeline, stage: stage, start: time.Now()}
}

// end closes the span and, on failure, returns err wrapped as a StageError unless it already is one.
func (s *stageSpan) end(err error) error {
	defer s.span.End()
	status := StageDone
	if err != nil {
		status = StageFailed
	}
	observability.Current().ObserveStage(s.pipeline, s.stage, status, time.Since(s.start))
	if err == nil {
		return nil
	}
	s.span.RecordError(err)
	s.span.SetStatus(codes.Error, err.Error())
	var se *domain.StageError
	if errors.As(err, &se) {
		return err
	}
	return &domain.StageError{Pipeline: s.pipeline, Stage: s.stage, Err: err}
}
