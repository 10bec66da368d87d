package services

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/clients/sonauto"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

func newTestStore(t *testing.T) (SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache, err := redis.NewCache(logger.Nop(), rdb)
	require.NoError(t, err)
	return NewSessionStore(logger.Nop(), cache, DefaultRecordTTL), mr
}

func seedRecords(t *testing.T, store SessionStore, ref domain.SessionRef, sentences ...string) {
	t.Helper()
	for i, s := range sentences {
		_, err := store.SaveRecord(context.Background(), ref, domain.LearningRecord{
			Word:     fmt.Sprintf("w%d", i),
			Sentence: s,
			Seq:      int64(i + 1),
		})
		require.NoError(t, err)
	}
}

// fakeText returns scripted replies in order, repeating the last one.
type fakeText struct {
	mu      sync.Mutex
	replies []string
	errs    []error
	calls   int
	users   []string
}

func (f *fakeText) GenerateJSON(ctx context.Context, system, user string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.calls
	f.calls++
	f.users = append(f.users, user)
	if i < len(f.errs) && f.errs[i] != nil {
		return "", f.errs[i]
	}
	if len(f.replies) == 0 {
		return "", fmt.Errorf("no reply scripted")
	}
	if i >= len(f.replies) {
		i = len(f.replies) - 1
	}
	return f.replies[i], nil
}

func (f *fakeText) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeImages struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (f *fakeImages) Generate(ctx context.Context, prompt string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return []byte("png:" + prompt), nil
}

type fakeSpeech struct {
	mu     sync.Mutex
	name   string
	err    error
	calls  int
	voices []domain.VoiceSpec
}

func (f *fakeSpeech) Synthesize(ctx context.Context, text string, voice domain.VoiceSpec) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.voices = append(f.voices, voice)
	if f.err != nil {
		return nil, f.err
	}
	return []byte(f.name + ":" + text), nil
}

func (f *fakeSpeech) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type upload struct {
	category gcp.BucketCategory
	key      string
	data     []byte
}

type fakeObjects struct {
	mu      sync.Mutex
	err     error
	uploads []upload
}

func (f *fakeObjects) Upload(ctx context.Context, category gcp.BucketCategory, key string, data []byte) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	f.uploads = append(f.uploads, upload{category: category, key: key, data: data})
	return "https://cdn.test/" + string(category) + "/" + key, nil
}

func (f *fakeObjects) Count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.uploads)
}

type fakeMusic struct {
	mu       sync.Mutex
	statuses []string
	submits  int
	polls    int
	lastReq  sonauto.GenerationRequest
	noPaths  bool
}

func (f *fakeMusic) Submit(ctx context.Context, req sonauto.GenerationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.submits++
	f.lastReq = req
	return "task-1", nil
}

func (f *fakeMusic) Status(ctx context.Context, taskID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	i := f.polls
	f.polls++
	if i >= len(f.statuses) {
		i = len(f.statuses) - 1
	}
	return f.statuses[i], nil
}

func (f *fakeMusic) Result(ctx context.Context, taskID string) (sonauto.Generation, error) {
	if f.noPaths {
		return sonauto.Generation{}, nil
	}
	return sonauto.Generation{SongPaths: []string{"https://provider.test/song.ogg"}}, nil
}

func (f *fakeMusic) Download(ctx context.Context, songURL string) ([]byte, error) {
	return []byte("OggS"), nil
}

type fakeNotifier struct {
	mu    sync.Mutex
	words []string
	songs []string
}

func (f *fakeNotifier) WordReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.LearningRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.words = append(f.words, key)
}

func (f *fakeNotifier) SongReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.SongRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.songs = append(f.songs, key)
}

func fastPoll() httpx.PollPolicy {
	return httpx.PollPolicy{Initial: time.Millisecond, Multiplier: 1, MaxAttempts: 20}
}
