// Package cli implements the aieng command line.
package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/cozi7266/aieng/internal/app"
	"github.com/cozi7266/aieng/internal/clients/redis"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

// RootCmd is the top-level command.
var RootCmd = &cobra.Command{
	Use:          "aieng",
	Short:        "English vocabulary content generator",
	Long:         "Generates example sentences, illustrations, narration and songs for a learner's words.",
	SilenceUsage: true,
}

var newLogger = app.NewLogger

func addSessionFlags(cmd *cobra.Command) {
	cmd.Flags().Int64P("user", "u", 0, "User id (required)")
	cmd.Flags().Int64P("session", "s", 0, "Session id (required)")
	_ = cmd.MarkFlagRequired("user")
	_ = cmd.MarkFlagRequired("session")
}

func sessionRef(cmd *cobra.Command) (domain.SessionRef, error) {
	user, _ := cmd.Flags().GetInt64("user")
	session, _ := cmd.Flags().GetInt64("session")
	if user <= 0 || session <= 0 {
		return domain.SessionRef{}, fmt.Errorf("%w: user and session must be positive", domain.ErrInvalidRequest)
	}
	return domain.SessionRef{UserID: user, SessionID: session}, nil
}

// openStore connects only what reading session state needs.
func openStore(ctx context.Context, log *logger.Logger) (services.SessionStore, func(), error) {
	cfg := app.LoadConfig(log)
	rdb, err := redis.Dial(ctx, cfg.Redis)
	if err != nil {
		return nil, nil, err
	}
	cache, err := redis.NewCache(log, rdb)
	if err != nil {
		_ = rdb.Close()
		return nil, nil, err
	}
	return services.NewSessionStore(log, cache, cfg.CacheTTL), func() { _ = rdb.Close() }, nil
}

func printJSON(w io.Writer, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w, string(b))
	return err
}
