package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cozi7266/aieng/internal/app"
	"github.com/cozi7266/aieng/internal/clients/redis"
)

func init() {
	RootCmd.AddCommand(&cobra.Command{
		Use:   "events",
		Short: "Follow word/song completion events",
		RunE:  runEvents,
	})
}

func runEvents(cmd *cobra.Command, _ []string) error {
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := app.LoadConfig(log)
	rdb, err := redis.Dial(ctx, cfg.Redis)
	if err != nil {
		return err
	}
	defer rdb.Close()
	bus, err := redis.NewBus(log, rdb, cfg.EventsChannel)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	return bus.Subscribe(ctx, func(ev redis.Event) {
		if err := printJSON(out, ev); err != nil {
			log.Warn("print event failed", "error", err)
		}
	})
}
