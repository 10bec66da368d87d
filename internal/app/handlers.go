package app

import (
	httpH "github.com/cozi7266/aieng/internal/http/handlers"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type Handlers struct {
	Health *httpH.HealthHandler
	Word   *httpH.WordHandler
	Song   *httpH.SongHandler
	Debug  *httpH.DebugHandler
}

func wireHandlers(log *logger.Logger, c Clients, svc Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Health: httpH.NewHealthHandler(),
		Word:   httpH.NewWordHandler(log, svc.Words, svc.Store),
		Song:   httpH.NewSongHandler(log, svc.Songs, svc.Store),
		Debug: httpH.NewDebugHandler(httpH.DebugHandlerDeps{
			Log:     log,
			Cache:   c.Cache,
			Store:   svc.Store,
			Bucket:  c.Bucket,
			Catalog: svc.Catalog,
		}),
	}
}
