package services

import (
	"context"
	"time"

	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const (
	EventWordReady = "word.ready"
	EventSongReady = "song.ready"
)

// Notifier publishes completion events. Delivery is best-effort and never fails a run.
type Notifier interface {
	WordReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.LearningRecord)
	SongReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.SongRecord)
}

type notifier struct {
	log *logger.Logger
	bus redis.Bus
}

// NewNotifier returns a no-op notifier when bus is nil.
func NewNotifier(log *logger.Logger, bus redis.Bus) Notifier {
	return &notifier{log: log.With("service", "Notifier"), bus: bus}
}

func (n *notifier) publish(ctx context.Context, ev redis.Event) {
	if n == nil || n.bus == nil {
		return
	}
	// detached so a finished request still publishes
	pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(pctx, ev); err != nil {
		n.log.Warn("event publish failed", "type", ev.Type, "key", ev.Key, "error", err)
	}
}

func (n *notifier) WordReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.LearningRecord) {
	n.publish(ctx, redis.Event{Type: EventWordReady, UserID: ref.UserID, SessionID: ref.SessionID, Key: key, Data: rec})
}

func (n *notifier) SongReady(ctx context.Context, ref domain.SessionRef, key string, rec domain.SongRecord) {
	n.publish(ctx, redis.Event{Type: EventSongReady, UserID: ref.UserID, SessionID: ref.SessionID, Key: key, Data: rec})
}
