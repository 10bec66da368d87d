package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/clients/sonauto"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// MusicProvider is the asynchronous music-generation API.
type MusicProvider interface {
	Submit(ctx context.Context, req sonauto.GenerationRequest) (string, error)
	Status(ctx context.Context, taskID string) (string, error)
	Result(ctx context.Context, taskID string) (sonauto.Generation, error)
	Download(ctx context.Context, songURL string) ([]byte, error)
}

type SongSpec struct {
	Lyrics domain.Lyrics
	Mood   SongStyle
	Voice  SongStyle
}

type GeneratedSong struct {
	TaskID string
	Audio  []byte
	// SourceURL is the provider's download location, kept for logs only.
	SourceURL string
}

type SongGenerator interface {
	Generate(ctx context.Context, spec SongSpec) (GeneratedSong, error)
}

// DefaultSongPollPolicy backs off from 2s to 15s and gives up after 10 minutes.
var DefaultSongPollPolicy = httpx.PollPolicy{
	Initial:    2 * time.Second,
	Max:        15 * time.Second,
	Multiplier: 1.5,
	Timeout:    10 * time.Minute,
}

type songGenerator struct {
	log      *logger.Logger
	provider MusicProvider
	poll     httpx.PollPolicy
}

func NewSongGenerator(log *logger.Logger, provider MusicProvider, poll httpx.PollPolicy) SongGenerator {
	if poll.MaxAttempts <= 0 && poll.Timeout <= 0 {
		poll = DefaultSongPollPolicy
	}
	return &songGenerator{log: log.With("service", "SongGenerator"), provider: provider, poll: poll}
}

func songPrompt(spec SongSpec) string {
	var b strings.Builder
	fmt.Fprintf(&b, "A %s children's song", firstNonBlank(spec.Mood.Description, spec.Mood.Name, "cheerful"))
	if v := firstNonBlank(spec.Voice.Description, spec.Voice.Name); v != "" {
		fmt.Fprintf(&b, " sung by %s", v)
	}
	fmt.Fprintf(&b, " titled %q. Target age 3-7, simple catchy melody, about 90 seconds.", spec.Lyrics.Title)
	return b.String()
}

func firstNonBlank(vals ...string) string {
	for _, v := range vals {
		if s := strings.TrimSpace(v); s != "" {
			return s
		}
	}
	return ""
}

func songStageErr(stage string, err error) error {
	return &domain.StageError{Pipeline: SongPipelineName, Stage: stage, Err: err}
}

// Generate reports failures as *domain.StageError naming the submit, poll or download step.
func (g *songGenerator) Generate(ctx context.Context, spec SongSpec) (GeneratedSong, error) {
	var tags []string
	tags = append(tags, spec.Mood.Tags...)
	tags = append(tags, spec.Voice.Tags...)

	taskID, err := g.provider.Submit(ctx, sonauto.GenerationRequest{
		Prompt:   songPrompt(spec),
		Lyrics:   spec.Lyrics.LyricsEn,
		Tags:     tags,
		NumSongs: 1,
	})
	if err != nil {
		return GeneratedSong{}, songStageErr(StageSubmittingSong, fmt.Errorf("%w: song submit: %v", domain.ErrProviderFailure, err))
	}
	g.log.Info("song submitted", "task_id", taskID)

	var failed bool
	err = httpx.Poll(ctx, g.poll, func(ctx context.Context, attempt int) (bool, error) {
		status, err := g.provider.Status(ctx, taskID)
		if err != nil {
			if httpx.IsRetryableError(err) && ctx.Err() == nil {
				g.log.Warn("song status check failed; will retry", "task_id", taskID, "attempt", attempt, "error", err)
				return false, nil
			}
			return false, err
		}
		g.log.Debug("song status", "task_id", taskID, "attempt", attempt, "status", status)
		switch status {
		case sonauto.StatusSuccess:
			return true, nil
		case sonauto.StatusFailure:
			failed = true
			return true, nil
		default:
			return false, nil
		}
	})
	switch {
	case errors.Is(err, httpx.ErrPollExhausted):
		return GeneratedSong{}, songStageErr(StagePolling, fmt.Errorf("%w: song task %s", domain.ErrRenderTimeout, taskID))
	case err != nil:
		if ctx.Err() != nil {
			return GeneratedSong{}, songStageErr(StagePolling, ctx.Err())
		}
		return GeneratedSong{}, songStageErr(StagePolling, fmt.Errorf("%w: song status: %v", domain.ErrProviderFailure, err))
	case failed:
		return GeneratedSong{}, songStageErr(StagePolling, fmt.Errorf("%w: task %s", domain.ErrSongGenerationFailed, taskID))
	}

	gen, err := g.provider.Result(ctx, taskID)
	if err != nil {
		return GeneratedSong{}, songStageErr(StageDownloading, fmt.Errorf("%w: song result: %v", domain.ErrProviderFailure, err))
	}
	if len(gen.SongPaths) == 0 || strings.TrimSpace(gen.SongPaths[0]) == "" {
		return GeneratedSong{}, songStageErr(StageDownloading, fmt.Errorf("%w: song task %s has no song path", domain.ErrProviderFailure, taskID))
	}
	songURL := gen.SongPaths[0]
	audio, err := g.provider.Download(ctx, songURL)
	if err != nil {
		return GeneratedSong{}, songStageErr(StageDownloading, fmt.Errorf("%w: song download: %v", domain.ErrProviderFailure, err))
	}
	return GeneratedSong{TaskID: taskID, Audio: audio, SourceURL: songURL}, nil
}
