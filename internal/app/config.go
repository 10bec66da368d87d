package app

import (
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/clients/comfyui"
	"github.com/cozi7266/aieng/internal/clients/gcp"
	"github.com/cozi7266/aieng/internal/clients/openai"
	"github.com/cozi7266/aieng/internal/clients/openrouter"
	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/clients/sonauto"
	"github.com/cozi7266/aieng/internal/clients/voiceclone"
	"github.com/cozi7266/aieng/internal/data/db"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/platform/envutil"
)

const (
	TextProviderOpenAI     = "openai"
	TextProviderOpenRouter = "openrouter"
)

type Config struct {
	Port          string
	ShutdownDrain time.Duration
	CORSOrigins   []string
	DebugEnabled  bool
	Metrics       bool

	Redis         redis.Options
	CacheTTL      time.Duration
	EventsChannel string

	TextProvider     string
	OpenAI           openai.Config
	OpenRouter       openrouter.Config
	SentenceAttempts int

	ComfyUI    comfyui.Config
	Bucket     gcp.BucketConfig
	GCPCreds   gcp.Credentials
	VoiceClone voiceclone.Config

	VoiceCloneLanguage   string
	VoiceCloneSampleRate int

	Sonauto          sonauto.Config
	SongPollTimeout  time.Duration
	SongMinSentences int
	SongStylesPath   string

	Database db.Config
	Otel     observability.OtelConfig
}

func LoadConfig(log *logger.Logger) Config {
	creds := gcp.Credentials{
		JSON: envutil.String("GOOGLE_APPLICATION_CREDENTIALS_JSON", "", log),
		File: envutil.String("GOOGLE_APPLICATION_CREDENTIALS", "", log),
	}
	return Config{
		Port:          envutil.String("PORT", "8000", log),
		ShutdownDrain: envutil.Duration("SHUTDOWN_DRAIN", 30*time.Second, log),
		CORSOrigins:   splitList(envutil.String("CORS_ALLOW_ORIGINS", "", log)),
		DebugEnabled:  envutil.Bool("DEBUG_ENDPOINTS_ENABLED", true, log),
		Metrics:       envutil.Bool("METRICS_ENABLED", false, log),

		Redis: redis.Options{
			Addr:     envutil.String("REDIS_ADDR", "localhost:6379", log),
			Password: envutil.String("REDIS_PASSWORD", "", log),
			DB:       envutil.Int("REDIS_DB", 0, log),
		},
		CacheTTL:      envutil.Duration("CACHE_TTL", 24*time.Hour, log),
		EventsChannel: envutil.String("EVENTS_CHANNEL", "aieng.events", log),

		TextProvider: strings.ToLower(envutil.String("TEXT_PROVIDER", TextProviderOpenAI, log)),
		OpenAI: openai.Config{
			APIKey:      envutil.String("OPENAI_API_KEY", "", log),
			BaseURL:     envutil.String("OPENAI_BASE_URL", "https://api.openai.com", log),
			Model:       envutil.String("OPENAI_MODEL", "gpt-4.1-mini", log),
			Temperature: envutil.Float("OPENAI_TEMPERATURE", 0.7, log),
			Timeout:     envutil.Duration("OPENAI_TIMEOUT", 60*time.Second, log),
			MaxRetries:  envutil.Int("OPENAI_MAX_RETRIES", 1, log),
		},
		OpenRouter: openrouter.Config{
			APIKey:     envutil.String("OPENROUTER_API_KEY", "", log),
			Model:      envutil.String("OPENROUTER_MODEL", "openai/gpt-4.1-mini", log),
			MaxRetries: envutil.Int("OPENROUTER_MAX_RETRIES", 1, log),
		},
		SentenceAttempts: envutil.Int("SENTENCE_MAX_ATTEMPTS", 3, log),

		ComfyUI: comfyui.Config{
			BaseURL:      envutil.String("COMFYUI_BASE_URL", "http://127.0.0.1:8188", log),
			WorkflowPath: envutil.String("COMFYUI_WORKFLOW_PATH", "", log),
			PromptNode:   envutil.String("COMFYUI_PROMPT_NODE", "33", log),
			OutputNode:   envutil.String("COMFYUI_OUTPUT_NODE", "9", log),
			PollAttempts: envutil.Int("COMFYUI_POLL_ATTEMPTS", 300, log),
			PollInterval: envutil.Duration("COMFYUI_POLL_INTERVAL", time.Second, log),
		},
		Bucket: gcp.BucketConfig{
			Name:        envutil.String("GCS_BUCKET_NAME", "", log),
			CDNDomain:   envutil.String("GCS_CDN_DOMAIN", "", log),
			EmulatorURL: envutil.String("STORAGE_EMULATOR_HOST", "", log),
			Credentials: creds,
		},
		GCPCreds: creds,
		VoiceClone: voiceclone.Config{
			BaseURL: envutil.String("VOICE_CLONE_BASE_URL", "", log),
			Timeout: envutil.Duration("VOICE_CLONE_TIMEOUT", 2*time.Minute, log),
		},
		VoiceCloneLanguage:   envutil.String("VOICE_CLONE_LANGUAGE", "en-us", log),
		VoiceCloneSampleRate: envutil.Int("VOICE_CLONE_SAMPLE_RATE", 24000, log),

		Sonauto: sonauto.Config{
			APIKey:  envutil.String("SONAUTO_API_KEY", "", log),
			BaseURL: envutil.String("SONAUTO_BASE_URL", "https://api.sonauto.ai/v1", log),
		},
		SongPollTimeout:  envutil.Duration("SONG_POLL_TIMEOUT", 10*time.Minute, log),
		SongMinSentences: envutil.Int("SONG_MIN_SENTENCES", 5, log),
		SongStylesPath:   envutil.String("SONG_STYLES_PATH", "", log),

		Database: db.Config{
			Driver: envutil.String("DATABASE_DRIVER", "", log),
			DSN:    envutil.String("DATABASE_DSN", "", log),
		},
		Otel: observability.OtelConfig{
			Enabled:     envutil.Bool("OTEL_ENABLED", false, log),
			ServiceName: envutil.String("OTEL_SERVICE_NAME", "aieng", log),
			Environment: envutil.String("APP_ENV", "development", log),
			Version:     envutil.String("APP_VERSION", "", log),
			Endpoint:    envutil.String("OTEL_EXPORTER_OTLP_ENDPOINT", "", log),
			Headers:     envutil.String("OTEL_EXPORTER_OTLP_HEADERS", "", log),
			Insecure:    envutil.Bool("OTEL_EXPORTER_OTLP_INSECURE", false, log),
			SampleRatio: envutil.Float("OTEL_SAMPLER_RATIO", 0.1, log),
		},
	}
}

func splitList(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
