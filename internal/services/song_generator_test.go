package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cozi7266/aieng/internal/clients/sonauto"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

func testSongSpec() SongSpec {
	catalog, _ := LoadStyleCatalog("")
	return SongSpec{
		Lyrics: domain.Lyrics{Title: "Apple Day", LyricsEn: "I eat a red apple", LyricsKo: "빨간 사과"},
		Mood:   catalog.Mood("happy"),
		Voice:  catalog.Voice("female"),
	}
}

func TestSongGeneratorPollsUntilSuccess(t *testing.T) {
	music := &fakeMusic{statuses: []string{"PENDING", "GENERATING", sonauto.StatusSuccess}}
	g := NewSongGenerator(logger.Nop(), music, fastPoll())

	song, err := g.Generate(context.Background(), testSongSpec())
	require.NoError(t, err)
	assert.Equal(t, "task-1", song.TaskID)
	assert.Equal(t, []byte("OggS"), song.Audio)
	assert.Equal(t, 3, music.polls)
	assert.Equal(t, 1, music.submits)
	assert.Equal(t, "I eat a red apple", music.lastReq.Lyrics)
	assert.Contains(t, music.lastReq.Tags, "upbeat")
	assert.Contains(t, music.lastReq.Tags, "female vocals")
	assert.Contains(t, music.lastReq.Prompt, "Apple Day")
}

func TestSongGeneratorFailureStatus(t *testing.T) {
	music := &fakeMusic{statuses: []string{"PENDING", sonauto.StatusFailure}}
	g := NewSongGenerator(logger.Nop(), music, fastPoll())

	_, err := g.Generate(context.Background(), testSongSpec())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrSongGenerationFailed)
	assert.Equal(t, StagePolling, domain.FailedStage(err))
}

func TestSongGeneratorTimesOut(t *testing.T) {
	music := &fakeMusic{statuses: []string{"PENDING"}}
	g := NewSongGenerator(logger.Nop(), music, fastPoll())

	_, err := g.Generate(context.Background(), testSongSpec())
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRenderTimeout))
	assert.Equal(t, 20, music.polls)
}

func TestSongGeneratorRejectsResultWithoutSongPath(t *testing.T) {
	music := &fakeMusic{statuses: []string{sonauto.StatusSuccess}, noPaths: true}
	g := NewSongGenerator(logger.Nop(), music, fastPoll())

	_, err := g.Generate(context.Background(), testSongSpec())
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrProviderFailure)
	assert.Equal(t, StageDownloading, domain.FailedStage(err))
}

func TestSongGeneratorCallerDeadlineIsNotRenderTimeout(t *testing.T) {
	music := &fakeMusic{statuses: []string{"PENDING"}}
	g := NewSongGenerator(logger.Nop(), music, httpx.PollPolicy{Initial: 5 * time.Millisecond, Multiplier: 1, Timeout: time.Minute})

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()
	_, err := g.Generate(ctx, testSongSpec())
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrRenderTimeout))
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StagePolling, domain.FailedStage(err))
}
