package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	goredis "github.com/redis/go-redis/v9"

	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/http/response"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

type stubWordPipeline struct {
	got services.WordRequest
	rec domain.LearningRecord
	err error
}

func (s *stubWordPipeline) Run(ctx context.Context, req services.WordRequest) (domain.LearningRecord, error) {
	s.got = req
	return s.rec, s.err
}

type stubSongPipeline struct {
	got services.SongRequest
	rec domain.SongRecord
	err error
}

func (s *stubSongPipeline) Run(ctx context.Context, req services.SongRequest) (domain.SongRecord, error) {
	s.got = req
	return s.rec, s.err
}

func newTestCache(t *testing.T) redis.Cache {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cache, err := redis.NewCache(logger.Nop(), rdb)
	if err != nil {
		t.Fatalf("NewCache: %v", err)
	}
	return cache
}

func newTestRouter(t *testing.T, words *stubWordPipeline, songs *stubSongPipeline, store services.SessionStore) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	wh := NewWordHandler(logger.Nop(), words, store)
	sh := NewSongHandler(logger.Nop(), songs, store)
	r.POST("/words", wh.Generate)
	r.GET("/words/:userId/:sessionId", wh.List)
	r.POST("/songs", sh.Generate)
	r.GET("/songs/:userId/:sessionId", sh.Get)
	r.GET("/internal/health", NewHealthHandler().HealthCheck)
	return r
}

func doJSON(t *testing.T, r http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func TestPostWordsReturnsRecord(t *testing.T) {
	words := &stubWordPipeline{rec: domain.LearningRecord{
		Word:        "apple",
		Sentence:    "I eat a red apple.",
		Translation: "나는 빨간 사과를 먹어요.",
		ImagePrompt: "a child eating a red apple",
		ImageURL:    "https://cdn.test/images/1_apple_image.png",
		AudioURL:    "https://cdn.test/audio/1_apple_audio.wav",
	}}
	r := newTestRouter(t, words, &stubSongPipeline{}, nil)

	rec := doJSON(t, r, http.MethodPost, "/words", map[string]any{
		"userId": 1, "sessionId": 1, "wordEn": "apple", "theme": "fruit", "voiceGender": "male",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out map[string]string
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	for k, want := range map[string]string{
		"wordEn":      "apple",
		"sentence":    "I eat a red apple.",
		"translation": "나는 빨간 사과를 먹어요.",
		"imagePrompt": "a child eating a red apple",
		"imageUrl":    "https://cdn.test/images/1_apple_image.png",
		"audioUrl":    "https://cdn.test/audio/1_apple_audio.wav",
	} {
		if out[k] != want {
			t.Fatalf("%s=%q want %q", k, out[k], want)
		}
	}
	if words.got.Voice != (domain.StandardVoice{Gender: domain.GenderMale}) {
		t.Fatalf("voice=%v", words.got.Voice)
	}
	if words.got.Theme != "fruit" || words.got.Ref.SessionID != 1 {
		t.Fatalf("request=%+v", words.got)
	}
}

func TestPostWordsVoiceURLSelectsClone(t *testing.T) {
	words := &stubWordPipeline{}
	r := newTestRouter(t, words, &stubSongPipeline{}, nil)
	rec := doJSON(t, r, http.MethodPost, "/words", map[string]any{
		"userId": 1, "sessionId": 1, "wordEn": "apple", "voiceGender": "male", "voiceUrl": "https://x.test/me.wav",
	})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	if _, ok := words.got.Voice.(domain.ClonedVoice); !ok {
		t.Fatalf("voice=%v", words.got.Voice)
	}
}

func TestPostWordsBadRequests(t *testing.T) {
	cases := []struct {
		name string
		body map[string]any
	}{
		{name: "missing word", body: map[string]any{"userId": 1, "sessionId": 1}},
		{name: "missing user", body: map[string]any{"sessionId": 1, "wordEn": "apple"}},
		{name: "bad gender", body: map[string]any{"userId": 1, "sessionId": 1, "wordEn": "apple", "voiceGender": "robot"}},
		{name: "bad voice url", body: map[string]any{"userId": 1, "sessionId": 1, "wordEn": "apple", "voiceUrl": "ftp://x"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			words := &stubWordPipeline{}
			r := newTestRouter(t, words, &stubSongPipeline{}, nil)
			rec := doJSON(t, r, http.MethodPost, "/words", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
			}
			if words.got.Word != "" {
				t.Fatalf("pipeline should not run")
			}
		})
	}
}

func TestPostWordsInternalFailureIsGeneric(t *testing.T) {
	words := &stubWordPipeline{err: &domain.StageError{Pipeline: "word", Stage: "generating_image", Err: fmt.Errorf("%w: comfy down", domain.ErrProviderFailure)}}
	r := newTestRouter(t, words, &stubSongPipeline{}, nil)
	rec := doJSON(t, r, http.MethodPost, "/words", map[string]any{"userId": 1, "sessionId": 1, "wordEn": "apple"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	var env response.ErrorEnvelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if env.Error.Message != response.GenericFailureMessage || bytes.Contains(rec.Body.Bytes(), []byte("comfy")) {
		t.Fatalf("leaked detail: %s", rec.Body.String())
	}
}

func TestPostSongs(t *testing.T) {
	songs := &stubSongPipeline{rec: domain.SongRecord{SongURL: "https://cdn.test/songs/1/x.ogg", Title: "Apple Day", LyricsEn: "la", LyricsKo: "라"}}
	r := newTestRouter(t, &stubWordPipeline{}, songs, nil)
	rec := doJSON(t, r, http.MethodPost, "/songs", map[string]any{"userId": 1, "sessionId": 1, "moodName": "happy", "voiceName": "female"})
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var out songResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if out.Title != "Apple Day" || out.SongURL == "" || out.LyricsKo != "라" {
		t.Fatalf("response=%+v", out)
	}
	if songs.got.Mood != "happy" || songs.got.Voice != "female" {
		t.Fatalf("request=%+v", songs.got)
	}
}

func TestPostSongsInsufficientContent(t *testing.T) {
	songs := &stubSongPipeline{err: fmt.Errorf("%w: 2 sentences", domain.ErrInsufficientContent)}
	r := newTestRouter(t, &stubWordPipeline{}, songs, nil)
	rec := doJSON(t, r, http.MethodPost, "/songs", map[string]any{"userId": 1, "sessionId": 1, "moodName": "happy", "voiceName": "female"})
	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", rec.Code)
	}
	if !bytes.Contains(rec.Body.Bytes(), []byte("insufficient_content")) {
		t.Fatalf("body=%s", rec.Body.String())
	}
}

func TestGetWordsAndSongFromStore(t *testing.T) {
	store := services.NewSessionStore(logger.Nop(), newTestCache(t), 0)
	ref := domain.SessionRef{UserID: 4, SessionID: 9}
	ctx := context.Background()
	for i, w := range []string{"sun", "moon"} {
		if _, err := store.SaveRecord(ctx, ref, domain.LearningRecord{Word: w, Sentence: "The " + w + " is so bright.", Seq: int64(i + 1)}); err != nil {
			t.Fatalf("SaveRecord: %v", err)
		}
	}
	if err := store.SetSongStatus(ctx, ref, domain.SongStatusInProgress); err != nil {
		t.Fatalf("SetSongStatus: %v", err)
	}
	r := newTestRouter(t, &stubWordPipeline{}, &stubSongPipeline{}, store)

	rec := doJSON(t, r, http.MethodGet, "/words/4/9", nil)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d", rec.Code)
	}
	var list struct {
		Words []wordResponse `json:"words"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(list.Words) != 2 || list.Words[0].WordEn != "sun" || list.Words[1].WordEn != "moon" {
		t.Fatalf("words=%+v", list.Words)
	}

	rec = doJSON(t, r, http.MethodGet, "/songs/4/9", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte("IN_PROGRESS")) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}

	rec = doJSON(t, r, http.MethodGet, "/words/abc/9", nil)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	r := newTestRouter(t, &stubWordPipeline{}, &stubSongPipeline{}, nil)
	rec := doJSON(t, r, http.MethodGet, "/internal/health", nil)
	if rec.Code != http.StatusOK || !bytes.Contains(rec.Body.Bytes(), []byte(`"ok"`)) {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}
