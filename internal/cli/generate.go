package cli

import (
	"github.com/spf13/cobra"

	"github.com/cozi7266/aieng/internal/app"
	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/services"
)

func init() {
	word := &cobra.Command{
		Use:   "word",
		Short: "Run one word generation and print the Learning Record",
		RunE:  runWord,
	}
	addSessionFlags(word)
	word.Flags().StringP("word", "w", "", "English word (required)")
	word.Flags().String("theme", "", "Optional theme for the sentence")
	word.Flags().String("gender", "female", "Standard voice gender: male or female")
	word.Flags().String("voice-ref", "", "Reference WAV url; selects the cloned voice")
	_ = word.MarkFlagRequired("word")
	RootCmd.AddCommand(word)

	song := &cobra.Command{
		Use:   "song",
		Short: "Generate the session song and print the Song Record",
		RunE:  runSong,
	}
	addSessionFlags(song)
	song.Flags().String("mood", "cheerful", "Song mood")
	song.Flags().String("voice", "female", "Vocal style")
	RootCmd.AddCommand(song)
}

func runWord(cmd *cobra.Command, _ []string) error {
	ref, err := sessionRef(cmd)
	if err != nil {
		return err
	}
	w, _ := cmd.Flags().GetString("word")
	theme, _ := cmd.Flags().GetString("theme")
	gender, _ := cmd.Flags().GetString("gender")
	voiceRef, _ := cmd.Flags().GetString("voice-ref")
	voice, err := domain.NewVoiceSpec(gender, voiceRef)
	if err != nil {
		return err
	}

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Services.Words.Run(cmd.Context(), services.WordRequest{Ref: ref, Word: w, Theme: theme, Voice: voice})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func runSong(cmd *cobra.Command, _ []string) error {
	ref, err := sessionRef(cmd)
	if err != nil {
		return err
	}
	mood, _ := cmd.Flags().GetString("mood")
	voice, _ := cmd.Flags().GetString("voice")

	a, err := buildApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	rec, err := a.Services.Songs.Run(cmd.Context(), services.SongRequest{Ref: ref, Mood: mood, Voice: voice})
	if err != nil {
		return err
	}
	return printJSON(cmd.OutOrStdout(), rec)
}

func buildApp(cmd *cobra.Command) (*app.App, error) {
	log, err := newLogger()
	if err != nil {
		return nil, err
	}
	a, err := app.New(cmd.Context(), log)
	if err != nil {
		log.Sync()
		return nil, err
	}
	return a, nil
}
