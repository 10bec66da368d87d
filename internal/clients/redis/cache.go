package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// ErrWrongType is returned by Get when the key holds a non-string value, e.g. a hash
// written by another service under the same key layout.
var ErrWrongType = errors.New("redis key holds a non-string value")

// Cache is the key/value store behind session records.
type Cache interface {
	// Get returns ok=false when the key is absent or expired, and ErrWrongType
	// (with ok=false) when the key is not a string.
	Get(ctx context.Context, key string) (val []byte, ok bool, err error)
	// Set writes value with expiry in a single command.
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	// Keys returns every key matching a glob pattern, sorted.
	Keys(ctx context.Context, pattern string) ([]string, error)
	Ping(ctx context.Context) error
}

type cache struct {
	log *logger.Logger
	rdb goredis.UniversalClient
}

func NewCache(log *logger.Logger, rdb goredis.UniversalClient) (Cache, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	return &cache{log: log.With("service", "RedisCache"), rdb: rdb}, nil
}

func (c *cache) Get(ctx context.Context, key string) ([]byte, bool, error) {
	raw, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if isWrongType(err) {
		return nil, false, fmt.Errorf("redis get %s: %w", key, ErrWrongType)
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get %s: %w", key, err)
	}
	return raw, true, nil
}

func isWrongType(err error) bool {
	var rerr goredis.Error
	return errors.As(err, &rerr) && strings.HasPrefix(rerr.Error(), "WRONGTYPE")
}

func (c *cache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		return fmt.Errorf("redis set %s: ttl must be positive", key)
	}
	if err := c.rdb.Set(ctx, key, value, ttl).Err(); err != nil {
		return fmt.Errorf("redis set %s: %w", key, err)
	}
	return nil
}

// Keys walks the keyspace with SCAN rather than KEYS so a large database is never blocked.
func (c *cache) Keys(ctx context.Context, pattern string) ([]string, error) {
	seen := map[string]struct{}{}
	var cursor uint64
	for {
		batch, next, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return nil, fmt.Errorf("redis scan %s: %w", pattern, err)
		}
		for _, k := range batch {
			seen[k] = struct{}{}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	out := make([]string, 0, len(seen))
	for k := range seen {
		out = append(out, k)
	}
	sort.Strings(out)
	c.log.Debug("scanned keys", "pattern", pattern, "count", len(out))
	return out, nil
}

func (c *cache) Ping(ctx context.Context) error {
	return c.rdb.Ping(ctx).Err()
}
