package app

import (
	"context"
	"fmt"
	"os"

	apphttp "github.com/cozi7266/aieng/internal/http"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

type App struct {
	Log      *logger.Logger
	Cfg      Config
	Clients  Clients
	Services Services
	Server   *apphttp.Server

	shutdownOtel func(context.Context) error
}

// NewLogger builds the process logger from LOG_MODE (development by default).
func NewLogger() (*logger.Logger, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}
	return log, nil
}

func New(ctx context.Context, log *logger.Logger) (*App, error) {
	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	shutdownOtel := observability.InitOTel(ctx, log, cfg.Otel)
	metrics := observability.Init(log, cfg.Metrics)

	clients, err := wireClients(ctx, log, cfg)
	if err != nil {
		_ = shutdownOtel(context.Background())
		return nil, err
	}
	svc, err := wireServices(log, cfg, clients)
	if err != nil {
		clients.Close()
		_ = shutdownOtel(context.Background())
		return nil, err
	}
	handlers := wireHandlers(log, clients, svc)

	return &App{
		Log:          log,
		Cfg:          cfg,
		Clients:      clients,
		Services:     svc,
		Server:       wireServer(log, cfg, metrics, handlers),
		shutdownOtel: shutdownOtel,
	}, nil
}

// Run serves HTTP until ctx is cancelled.
func (a *App) Run(ctx context.Context) error {
	if a == nil || a.Server == nil {
		return fmt.Errorf("app not initialized")
	}
	addr := ":" + a.Cfg.Port
	a.Log.Info("Server listening", "addr", addr)
	return a.Server.Run(ctx, addr, a.Cfg.ShutdownDrain)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	a.Clients.Close()
	if a.shutdownOtel != nil {
		if err := a.shutdownOtel(context.Background()); err != nil {
			a.Log.Warn("otel shutdown failed", "error", err)
		}
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
