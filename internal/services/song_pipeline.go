package services

import (
	"context"
	"fmt"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.opentelemetry.io/otel/attribute"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/ctxutil"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const DefaultMinSongSentences = 5

type SongRequest struct {
	Ref   domain.SessionRef
	Mood  string
	Voice string
}

// SongPipeline turns a session's sentences into a song and stores the Song Record.
type SongPipeline interface {
	Run(ctx context.Context, req SongRequest) (domain.SongRecord, error)
}

type SongPipelineDeps struct {
	Store   SessionStore
	Lyrics  LyricsGenerator
	Songs   SongGenerator
	Objects ObjectStore
	Styles  *StyleCatalog
	Notify  Notifier
	// MinSentences defaults to DefaultMinSongSentences.
	MinSentences int
}

type songPipeline struct {
	log  *logger.Logger
	deps SongPipelineDeps
	now  func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy
}

func NewSongPipeline(log *logger.Logger, deps SongPipelineDeps) (SongPipeline, error) {
	if deps.Store == nil || deps.Lyrics == nil || deps.Songs == nil || deps.Objects == nil {
		return nil, fmt.Errorf("song pipeline: missing dependency")
	}
	if deps.MinSentences <= 0 {
		deps.MinSentences = DefaultMinSongSentences
	}
	return &songPipeline{
		log:     log.With("service", "SongPipeline"),
		deps:    deps,
		now:     func() time.Time { return time.Now().UTC() },
		entropy: ulid.Monotonic(rand.New(rand.NewSource(time.Now().UnixNano())), 0),
	}, nil
}

func (p *songPipeline) newID(t time.Time) string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(t), p.entropy).String()
}

// SongObjectKey names the uploaded song file; the ULID keeps regenerations distinct and sortable.
func SongObjectKey(ref domain.SessionRef, id string) string {
	return fmt.Sprintf("%d/%s.ogg", ref.SessionID, strings.ToLower(id))
}

func (p *songPipeline) setStatus(ctx context.Context, log *logger.Logger, ref domain.SessionRef, status domain.SongStatus) {
	if err := p.deps.Store.SetSongStatus(context.WithoutCancel(ctx), ref, status); err != nil {
		log.Warn("song status update failed", "status", status, "error", err)
	}
}

func (p *songPipeline) Run(ctx context.Context, req SongRequest) (domain.SongRecord, error) {
	ctx = ctxutil.Default(ctx)
	log := p.log.With(
		"request_id", ctxutil.RequestID(ctx),
		"user_id", req.Ref.UserID,
		"session_id", req.Ref.SessionID,
		"mood", req.Mood,
		"voice", req.Voice,
	)
	p.setStatus(ctx, log, req.Ref, domain.SongStatusRequested)

	rec, err := p.run(ctx, log, req)
	if err != nil {
		p.setStatus(ctx, log, req.Ref, domain.SongStatusFailed)
		observability.Current().IncPipelineRun(SongPipelineName, StageFailed)
		log.Error("song pipeline failed", "stage", domain.FailedStage(err), "error", err)
		return domain.SongRecord{}, err
	}
	p.setStatus(ctx, log, req.Ref, domain.SongStatusCompleted)
	observability.Current().IncPipelineRun(SongPipelineName, StageDone)
	log.Info("song pipeline done", "title", rec.Title)
	return rec, nil
}

func (p *songPipeline) run(ctx context.Context, log *logger.Logger, req SongRequest) (domain.SongRecord, error) {
	// Fetching Sentences
	log.Debug("stage", "stage", StageFetchingSentences)
	fctx, st := startStage(ctx, SongPipelineName, StageFetchingSentences)
	records, err := p.deps.Store.Records(fctx, req.Ref)
	sentences := Sentences(records)
	if err == nil && len(sentences) < p.deps.MinSentences {
		err = fmt.Errorf("%w: session has %d sentences, need %d", domain.ErrInsufficientContent, len(sentences), p.deps.MinSentences)
	}
	if err := st.end(err); err != nil {
		return domain.SongRecord{}, err
	}
	p.setStatus(ctx, log, req.Ref, domain.SongStatusInProgress)

	mood := p.deps.Styles.Mood(req.Mood)
	voice := p.deps.Styles.Voice(req.Voice)

	// Generating Lyrics
	log.Debug("stage", "stage", StageGeneratingLyrics, "sentences", len(sentences))
	lctx, st := startStage(ctx, SongPipelineName, StageGeneratingLyrics, attribute.Int("sentences", len(sentences)))
	lyrics, err := p.deps.Lyrics.Generate(lctx, sentences, mood.Description, voice.Description)
	if err := st.end(err); err != nil {
		return domain.SongRecord{}, err
	}

	// Submitting Song, Polling, Downloading
	log.Debug("stage", "stage", StageSubmittingSong)
	gctx, st := startStage(ctx, SongPipelineName, StageSubmittingSong)
	song, err := p.deps.Songs.Generate(gctx, SongSpec{Lyrics: lyrics, Mood: mood, Voice: voice})
	if err := st.end(err); err != nil {
		return domain.SongRecord{}, err
	}

	// Uploading
	log.Debug("stage", "stage", StageUploading, "task_id", song.TaskID, "bytes", len(song.Audio))
	now := p.now()
	uctx, st := startStage(ctx, SongPipelineName, StageUploading)
	songURL, err := p.deps.Objects.Upload(uctx, gcp.BucketCategorySong, SongObjectKey(req.Ref, p.newID(now)), song.Audio)
	if err != nil {
		err = fmt.Errorf("%w: song: %v", domain.ErrUpload, err)
	}
	if err := st.end(err); err != nil {
		return domain.SongRecord{}, err
	}

	// Persisting
	log.Debug("stage", "stage", StagePersisting)
	rec := domain.SongRecord{
		SongURL:  songURL,
		Title:    lyrics.Title,
		LyricsEn: lyrics.LyricsEn,
		LyricsKo: lyrics.LyricsKo,
		Mood:     strings.TrimSpace(req.Mood),
		Voice:    strings.TrimSpace(req.Voice),
		CachedAt: now,
	}
	pctx, st := startStage(ctx, SongPipelineName, StagePersisting)
	key, err := p.deps.Store.SaveSong(pctx, req.Ref, rec)
	if err := st.end(err); err != nil {
		return domain.SongRecord{}, err
	}

	if p.deps.Notify != nil {
		p.deps.Notify.SongReady(ctx, req.Ref, key, rec)
	}
	return rec, nil
}
