package cli

import (
	"github.com/spf13/cobra"

	"github.com/cozi7266/aieng/internal/domain"
)

type sessionDump struct {
	UserID     int64                   `json:"user_id"`
	SessionID  int64                   `json:"session_id"`
	Records    []domain.LearningRecord `json:"records"`
	Song       *domain.SongRecord      `json:"song,omitempty"`
	SongStatus domain.SongStatus       `json:"song_status,omitempty"`
}

func init() {
	cmd := &cobra.Command{
		Use:   "session",
		Short: "Print a session's cached records and song",
		RunE:  runSession,
	}
	addSessionFlags(cmd)
	RootCmd.AddCommand(cmd)
}

func runSession(cmd *cobra.Command, _ []string) error {
	ref, err := sessionRef(cmd)
	if err != nil {
		return err
	}
	log, err := newLogger()
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx := cmd.Context()
	store, closeFn, err := openStore(ctx, log)
	if err != nil {
		return err
	}
	defer closeFn()

	out := sessionDump{UserID: ref.UserID, SessionID: ref.SessionID}
	if out.Records, err = store.Records(ctx, ref); err != nil {
		return err
	}
	if out.Song, err = store.Song(ctx, ref); err != nil {
		return err
	}
	if out.SongStatus, err = store.SongStatus(ctx, ref); err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), out)
}
