package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const DefaultRecordTTL = 24 * time.Hour

// SessionStore is the typed view over the cache. The cache is the only source of truth
// for session state; nothing here locks across calls.
type SessionStore interface {
	// Records returns the session's Learning Records ordered by seq, then key.
	Records(ctx context.Context, ref domain.SessionRef) ([]domain.LearningRecord, error)
	SaveRecord(ctx context.Context, ref domain.SessionRef, rec domain.LearningRecord) (key string, err error)
	Song(ctx context.Context, ref domain.SessionRef) (*domain.SongRecord, error)
	SaveSong(ctx context.Context, ref domain.SessionRef, rec domain.SongRecord) (key string, err error)
	SongStatus(ctx context.Context, ref domain.SessionRef) (domain.SongStatus, error)
	SetSongStatus(ctx context.Context, ref domain.SessionRef, status domain.SongStatus) error
	TTL() time.Duration
}

type sessionStore struct {
	log   *logger.Logger
	cache redis.Cache
	ttl   time.Duration
}

func NewSessionStore(log *logger.Logger, cache redis.Cache, ttl time.Duration) SessionStore {
	if ttl <= 0 {
		ttl = DefaultRecordTTL
	}
	return &sessionStore{log: log.With("service", "SessionStore"), cache: cache, ttl: ttl}
}

func (s *sessionStore) TTL() time.Duration { return s.ttl }

type keyedRecord struct {
	key string
	rec domain.LearningRecord
}

func (s *sessionStore) Records(ctx context.Context, ref domain.SessionRef) ([]domain.LearningRecord, error) {
	keys, err := s.cache.Keys(ctx, LearningPattern(ref))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCache, err)
	}
	items := make([]keyedRecord, 0, len(keys))
	for _, k := range keys {
		raw, ok, err := s.cache.Get(ctx, k)
		if errors.Is(err, redis.ErrWrongType) {
			s.log.Warn("skipping non-string learning key", "key", k)
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrCache, err)
		}
		if !ok {
			// expired between SCAN and GET
			continue
		}
		var rec domain.LearningRecord
		if err := json.Unmarshal(raw, &rec); err != nil {
			s.log.Warn("skipping undecodable learning record", "key", k, "error", err)
			continue
		}
		items = append(items, keyedRecord{key: k, rec: rec})
	}
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].rec.Seq != items[j].rec.Seq {
			return items[i].rec.Seq < items[j].rec.Seq
		}
		return items[i].key < items[j].key
	})
	out := make([]domain.LearningRecord, len(items))
	for i := range items {
		out[i] = items[i].rec
	}
	return out, nil
}

// NextSeq is one past the highest seq in records.
func NextSeq(records []domain.LearningRecord) int64 {
	var max int64
	for _, r := range records {
		if r.Seq > max {
			max = r.Seq
		}
	}
	return max + 1
}

// Sentences extracts the non-empty English sentences in order.
func Sentences(records []domain.LearningRecord) []string {
	out := make([]string, 0, len(records))
	for _, r := range records {
		if s := strings.TrimSpace(r.Sentence); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (s *sessionStore) put(ctx context.Context, key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", domain.ErrCache, key, err)
	}
	if err := s.cache.Set(ctx, key, raw, s.ttl); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCache, err)
	}
	return nil
}

func (s *sessionStore) SaveRecord(ctx context.Context, ref domain.SessionRef, rec domain.LearningRecord) (string, error) {
	key := LearningKey(ref, rec.Word)
	return key, s.put(ctx, key, rec)
}

func (s *sessionStore) Song(ctx context.Context, ref domain.SessionRef) (*domain.SongRecord, error) {
	raw, ok, err := s.cache.Get(ctx, SongKey(ref))
	if errors.Is(err, redis.ErrWrongType) {
		s.log.Warn("ignoring non-string song key", "key", SongKey(ref))
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrCache, err)
	}
	if !ok {
		return nil, nil
	}
	var rec domain.SongRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("%w: decode song record: %v", domain.ErrCache, err)
	}
	return &rec, nil
}

func (s *sessionStore) SaveSong(ctx context.Context, ref domain.SessionRef, rec domain.SongRecord) (string, error) {
	key := SongKey(ref)
	return key, s.put(ctx, key, rec)
}

func (s *sessionStore) SongStatus(ctx context.Context, ref domain.SessionRef) (domain.SongStatus, error) {
	raw, ok, err := s.cache.Get(ctx, SongStatusKey(ref))
	if errors.Is(err, redis.ErrWrongType) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: %v", domain.ErrCache, err)
	}
	if !ok {
		return "", nil
	}
	return domain.SongStatus(strings.TrimSpace(string(raw))), nil
}

func (s *sessionStore) SetSongStatus(ctx context.Context, ref domain.SessionRef, status domain.SongStatus) error {
	if err := s.cache.Set(ctx, SongStatusKey(ref), []byte(status), s.ttl); err != nil {
		return fmt.Errorf("%w: %v", domain.ErrCache, err)
	}
	return nil
}
