package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/cozi7266/aieng/internal/http/handlers"
	httpMW "github.com/cozi7266/aieng/internal/http/middleware"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type RouterConfig struct {
	Log         *logger.Logger
	ServiceName string
	CORSOrigins []string
	// Metrics is nil when metrics are disabled.
	Metrics *observability.Metrics
	// DebugEnabled mounts /internal/debug.
	DebugEnabled bool

	WordHandler   *httpH.WordHandler
	SongHandler   *httpH.SongHandler
	DebugHandler  *httpH.DebugHandler
	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(cfg.ServiceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.Metrics(cfg.Metrics))
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.CORSOrigins))

	// Content
	if cfg.WordHandler != nil {
		r.POST("/words", cfg.WordHandler.Generate)
		r.GET("/words/:userId/:sessionId", cfg.WordHandler.List)
	}
	if cfg.SongHandler != nil {
		r.POST("/songs", cfg.SongHandler.Generate)
		r.GET("/songs/:userId/:sessionId", cfg.SongHandler.Get)
	}

	internal := r.Group("/internal")
	{
		// Health
		if cfg.HealthHandler != nil {
			internal.GET("/health", cfg.HealthHandler.HealthCheck)
		}

		// Debug
		if cfg.DebugEnabled && cfg.DebugHandler != nil {
			debug := internal.Group("/debug")
			debug.GET("/redis", cfg.DebugHandler.RedisKeys)
			debug.GET("/redis/user", cfg.DebugHandler.RedisUser)
			debug.GET("/storage", cfg.DebugHandler.Storage)
			debug.GET("/db", cfg.DebugHandler.Database)
		}
	}

	if cfg.Metrics != nil {
		r.GET("/metrics", gin.WrapF(cfg.Metrics.WriteHTTP))
	}
	return r
}
