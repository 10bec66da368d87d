package app

import (
	apphttp "github.com/cozi7266/aieng/internal/http"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

func wireServer(log *logger.Logger, cfg Config, metrics *observability.Metrics, h Handlers) *apphttp.Server {
	return apphttp.NewServer(apphttp.RouterConfig{
		Log:           log,
		ServiceName:   cfg.Otel.ServiceName,
		CORSOrigins:   cfg.CORSOrigins,
		Metrics:       metrics,
		DebugEnabled:  cfg.DebugEnabled,
		WordHandler:   h.Word,
		SongHandler:   h.Song,
		DebugHandler:  h.Debug,
		HealthHandler: h.Health,
	})
}
