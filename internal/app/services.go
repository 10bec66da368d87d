package app

import (
	"fmt"

	"github.com/cozi7266/aieng/internal/pkg/logger"
	"github.com/cozi7266/aieng/internal/services"
)

type Services struct {
	Store   services.SessionStore
	Catalog services.WordCatalog
	Words   services.WordPipeline
	Songs   services.SongPipeline
}

func wireServices(log *logger.Logger, cfg Config, c Clients) (Services, error) {
	log.Info("Wiring services...")
	store := services.NewSessionStore(log, c.Cache, cfg.CacheTTL)
	notify := services.NewNotifier(log, c.Bus)

	var catalog services.WordCatalog
	if c.DB != nil {
		catalog = services.NewWordCatalog(log, c.DB.DB())
	}

	var cloned services.SpeechSynthesizer
	if c.Voice != nil {
		cloned = services.NewClonedSynthesizer(log, c.Voice, services.ClonedSynthesizerConfig{
			Language:   cfg.VoiceCloneLanguage,
			SampleRate: cfg.VoiceCloneSampleRate,
		})
	}
	speech := services.NewVoiceRouter(services.NewStandardSynthesizer(log, c.TTS), cloned)

	words, err := services.NewWordPipeline(log, services.WordPipelineDeps{
		Sentences: services.NewSentenceGenerator(log, c.Text, store, cfg.SentenceAttempts),
		Images:    services.NewImageGenerator(log, c.Images),
		Speech:    speech,
		Objects:   c.Bucket,
		Store:     store,
		Catalog:   catalog,
		Notify:    notify,
	})
	if err != nil {
		return Services{}, err
	}

	styles, err := services.LoadStyleCatalog(cfg.SongStylesPath)
	if err != nil {
		return Services{}, err
	}
	poll := services.DefaultSongPollPolicy
	if cfg.SongPollTimeout > 0 {
		poll.Timeout = cfg.SongPollTimeout
	}
	songs, err := services.NewSongPipeline(log, services.SongPipelineDeps{
		Store:        store,
		Lyrics:       services.NewLyricsGenerator(log, c.Text),
		Songs:        services.NewSongGenerator(log, c.Music, poll),
		Objects:      c.Bucket,
		Styles:       styles,
		Notify:       notify,
		MinSentences: cfg.SongMinSentences,
	})
	if err != nil {
		return Services{}, fmt.Errorf("wire song pipeline: %w", err)
	}

	return Services{Store: store, Catalog: catalog, Words: words, Songs: songs}, nil
}
