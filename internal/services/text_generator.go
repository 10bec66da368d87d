package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/observability"
	"github.com/cozi7266/aieng/internal/pkg/httpx"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

const DefaultSentenceAttempts = 3

// TextProvider is the chat-completion capability shared by the sentence and lyrics generators.
type TextProvider interface {
	GenerateJSON(ctx context.Context, system string, user string) (string, error)
}

type SentenceRequest struct {
	Ref   domain.SessionRef
	Word  string
	Theme string
}

type SentenceResult struct {
	domain.GeneratedSentence
	// Seq is the session sequence number the new record should carry.
	Seq      int64
	Attempts int
}

type SentenceGenerator interface {
	Generate(ctx context.Context, req SentenceRequest) (SentenceResult, error)
}

type sentenceGenerator struct {
	log         *logger.Logger
	text        TextProvider
	store       SessionStore
	maxAttempts int
	backoff     time.Duration
}

func NewSentenceGenerator(log *logger.Logger, text TextProvider, store SessionStore, maxAttempts int) SentenceGenerator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultSentenceAttempts
	}
	return &sentenceGenerator{
		log:         log.With("service", "SentenceGenerator"),
		text:        text,
		store:       store,
		maxAttempts: maxAttempts,
		backoff:     500 * time.Millisecond,
	}
}

// Generate issues at most maxAttempts provider calls. Provider failures back off before the
// next attempt; parse failures and rejected sentences retry immediately. The three outcomes
// are counted separately in the returned *domain.ExhaustedError.
func (g *sentenceGenerator) Generate(ctx context.Context, req SentenceRequest) (SentenceResult, error) {
	word := strings.TrimSpace(req.Word)
	if word == "" {
		return SentenceResult{}, fmt.Errorf("%w: word is required", domain.ErrInvalidRequest)
	}

	prior, err := g.store.Records(ctx, req.Ref)
	if err != nil {
		return SentenceResult{}, err
	}
	system, user := sentencePrompts(word, req.Theme, Sentences(prior))
	seq := NextSeq(prior)

	metrics := observability.Current()
	ex := &domain.ExhaustedError{Word: word}
	backoff := g.backoff
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		ex.Attempts = attempt
		raw, err := g.text.GenerateJSON(ctx, system, user)
		if err != nil {
			if ctx.Err() != nil {
				return SentenceResult{}, ctx.Err()
			}
			ex.ProviderFailures++
			metrics.IncSentenceAttempt("provider_failure")
			ex.Last = fmt.Errorf("%w: %v", domain.ErrProviderFailure, err)
			g.log.Warn("sentence provider call failed",
				"word", word, "attempt", attempt, "max_attempts", g.maxAttempts, "error", err)
			if attempt < g.maxAttempts {
				if err := httpx.Sleep(ctx, httpx.JitterSleep(backoff)); err != nil {
					return SentenceResult{}, err
				}
				backoff *= 2
			}
			continue
		}

		gen, err := parseSentence(raw)
		if err != nil {
			ex.ParseFailures++
			metrics.IncSentenceAttempt("parse_failure")
			ex.Last = err
			g.log.Warn("sentence output malformed",
				"word", word, "attempt", attempt, "raw", raw, "error", err)
			continue
		}
		if err := ValidateSentence(gen.Sentence); err != nil {
			ex.Rejections++
			metrics.IncSentenceAttempt("rejected")
			ex.Last = err
			g.log.Warn("sentence rejected",
				"word", word, "attempt", attempt, "sentence", gen.Sentence, "reason", err.Error())
			continue
		}

		metrics.IncSentenceAttempt("accepted")
		g.log.Debug("sentence accepted", "word", word, "attempt", attempt, "seq", seq)
		return SentenceResult{GeneratedSentence: gen, Seq: seq, Attempts: attempt}, nil
	}
	return SentenceResult{}, ex
}

type LyricsGenerator interface {
	Generate(ctx context.Context, sentences []string, mood, voice string) (domain.Lyrics, error)
}

type lyricsGenerator struct {
	log  *logger.Logger
	text TextProvider
}

func NewLyricsGenerator(log *logger.Logger, text TextProvider) LyricsGenerator {
	return &lyricsGenerator{log: log.With("service", "LyricsGenerator"), text: text}
}

// Generate makes exactly one provider call; malformed output is not retried.
func (g *lyricsGenerator) Generate(ctx context.Context, sentences []string, mood, voice string) (domain.Lyrics, error) {
	if len(sentences) == 0 {
		return domain.Lyrics{}, errors.New("lyrics: no sentences")
	}
	system, user := lyricsPrompts(sentences, mood, voice)
	raw, err := g.text.GenerateJSON(ctx, system, user)
	if err != nil {
		return domain.Lyrics{}, fmt.Errorf("%w: lyrics: %v", domain.ErrProviderFailure, err)
	}
	lyrics, err := parseLyrics(raw)
	if err != nil {
		g.log.Error("lyrics output malformed", "raw", raw, "error", err)
		return domain.Lyrics{}, err
	}
	return lyrics, nil
}
