package app

import (
	"context"
	"fmt"

	goredis "github.com/redis/go-redis/v9"

	"github.com/cozi7266/aieng/internal/clients/comfyui"
	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/openai"
	"github.com/cozi7266/aieng/internal/clients/openrouter"
	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/clients/sonauto"
	"github.com/cozi7266/aieng/internal/clients/voiceclone"
	"github.com/cozi7266/aieng/internal/data/db"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

type Clients struct {
	Redis  *goredis.Client
	Cache  redis.Cache
	Bus    redis.Bus
	Bucket gcp.BucketService
	TTS    gcp.TextToSpeech
	Text   services.TextProvider
	Images comfyui.Client
	Music  sonauto.Client
	// Voice and DB are nil when not configured.
	Voice voiceclone.Model
	DB    *db.Service
}

func wireClients(ctx context.Context, log *logger.Logger, cfg Config) (Clients, error) {
	var out Clients
	fail := func(err error) (Clients, error) {
		out.Close()
		return Clients{}, err
	}

	log.Info("Wiring redis...")
	rdb, err := redis.Dial(ctx, cfg.Redis)
	if err != nil {
		return fail(fmt.Errorf("init redis: %w", err))
	}
	out.Redis = rdb
	if out.Cache, err = redis.NewCache(log, rdb); err != nil {
		return fail(fmt.Errorf("init cache: %w", err))
	}
	if out.Bus, err = redis.NewBus(log, rdb, cfg.EventsChannel); err != nil {
		return fail(fmt.Errorf("init event bus: %w", err))
	}

	log.Info("Wiring google cloud...")
	if out.Bucket, err = gcp.NewBucketService(ctx, log, cfg.Bucket); err != nil {
		return fail(fmt.Errorf("init bucket: %w", err))
	}
	if out.TTS, err = gcp.NewTextToSpeech(ctx, log, cfg.GCPCreds); err != nil {
		return fail(fmt.Errorf("init text-to-speech: %w", err))
	}

	if out.Text, err = newTextProvider(log, cfg); err != nil {
		return fail(err)
	}
	if out.Images, err = comfyui.NewClient(log, cfg.ComfyUI); err != nil {
		return fail(fmt.Errorf("init comfyui: %w", err))
	}
	if out.Music, err = sonauto.NewClient(log, cfg.Sonauto); err != nil {
		return fail(fmt.Errorf("init sonauto: %w", err))
	}

	if cfg.VoiceClone.BaseURL != "" {
		log.Info("Warming voice clone model...", "base_url", cfg.VoiceClone.BaseURL)
		if out.Voice, err = voiceclone.Connect(ctx, log, cfg.VoiceClone); err != nil {
			return fail(fmt.Errorf("init voice clone: %w", err))
		}
	} else {
		log.Warn("VOICE_CLONE_BASE_URL not set; cloned voices disabled")
	}

	if cfg.Database.Enabled() {
		svc, err := db.Open(log, cfg.Database)
		if err != nil {
			return fail(fmt.Errorf("init database: %w", err))
		}
		out.DB = svc
		if err := db.AutoMigrateAll(svc.DB()); err != nil {
			return fail(fmt.Errorf("database automigrate: %w", err))
		}
	}
	return out, nil
}

func newTextProvider(log *logger.Logger, cfg Config) (services.TextProvider, error) {
	switch cfg.TextProvider {
	case TextProviderOpenAI, "":
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			return nil, fmt.Errorf("init openai: %w", err)
		}
		return c, nil
	case TextProviderOpenRouter:
		c, err := openrouter.NewClient(log, cfg.OpenRouter)
		if err != nil {
			return nil, fmt.Errorf("init openrouter: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown TEXT_PROVIDER %q", cfg.TextProvider)
	}
}

// Close releases whatever was opened. Safe on a partially wired set.
func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.TTS != nil {
		_ = c.TTS.Close()
	}
	if c.Bucket != nil {
		_ = c.Bucket.Close()
	}
	if c.DB != nil {
		_ = c.DB.Close()
	}
	if c.Redis != nil {
		_ = c.Redis.Close()
	}
}
