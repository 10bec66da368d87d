package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// Event is the envelope published when a generation run finishes.
type Event struct {
	Type      string `json:"type"`
	UserID    int64  `json:"user_id"`
	SessionID int64  `json:"session_id"`
	Key       string `json:"key"`
	Data      any    `json:"data,omitempty"`
}

type Bus interface {
	Publish(ctx context.Context, ev Event) error
	// Subscribe forwards decoded events to onEvent until ctx is done.
	Subscribe(ctx context.Context, onEvent func(Event)) error
}

type bus struct {
	log     *logger.Logger
	rdb     goredis.UniversalClient
	channel string
}

func NewBus(log *logger.Logger, rdb goredis.UniversalClient, channel string) (Bus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	if rdb == nil {
		return nil, fmt.Errorf("redis client required")
	}
	ch := strings.TrimSpace(channel)
	if ch == "" {
		ch = "aieng.events"
	}
	return &bus{log: log.With("service", "RedisBus"), rdb: rdb, channel: ch}, nil
}

func (b *bus) Publish(ctx context.Context, ev Event) error {
	raw, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *bus) Subscribe(ctx context.Context, onEvent func(Event)) error {
	if onEvent == nil {
		return fmt.Errorf("onEvent callback required")
	}
	sub := b.rdb.Subscribe(ctx, b.channel)
	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}
	go func() {
		defer sub.Close()
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					return
				}
				var ev Event
				if err := json.Unmarshal([]byte(m.Payload), &ev); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				onEvent(ev)
			}
		}
	}()
	return nil
}
