package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/cozi7266/aieng/internal/domain"
)

// stripFences removes a surrounding ```json ... ``` block if present.
func stripFences(raw string) string {
	s := strings.TrimSpace(raw)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		s = s[i+1:]
	}
	s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	return strings.TrimSpace(s)
}

// parseSentence accepts the JSON object form, or exactly three non-empty lines in the order
// sentence, translation, image prompt.
func parseSentence(raw string) (domain.GeneratedSentence, error) {
	s := stripFences(raw)
	if strings.HasPrefix(s, "{") {
		var out domain.GeneratedSentence
		if err := json.Unmarshal([]byte(s), &out); err != nil {
			return domain.GeneratedSentence{}, fmt.Errorf("%w: %v", domain.ErrParse, err)
		}
		return checkSentenceFields(out)
	}
	var lines []string
	for _, l := range strings.Split(s, "\n") {
		if l = strings.TrimSpace(l); l != "" {
			lines = append(lines, l)
		}
	}
	if len(lines) != 3 {
		return domain.GeneratedSentence{}, fmt.Errorf("%w: expected JSON or 3 lines, got %d lines", domain.ErrParse, len(lines))
	}
	return checkSentenceFields(domain.GeneratedSentence{
		Sentence:    lines[0],
		Translation: lines[1],
		ImagePrompt: lines[2],
	})
}

func checkSentenceFields(g domain.GeneratedSentence) (domain.GeneratedSentence, error) {
	g.Sentence = strings.TrimSpace(g.Sentence)
	g.Translation = strings.TrimSpace(g.Translation)
	g.ImagePrompt = strings.TrimSpace(g.ImagePrompt)
	var missing []string
	if g.Sentence == "" {
		missing = append(missing, "sentence_en")
	}
	// a refusal carries no translation or prompt; let validation reject it instead
	if g.Sentence != "" && strings.Contains(g.Sentence, strings.TrimSuffix(RefusalPhrase, ".")) {
		return g, nil
	}
	if g.Translation == "" {
		missing = append(missing, "sentence_ko")
	}
	if g.ImagePrompt == "" {
		missing = append(missing, "image_prompt")
	}
	if len(missing) > 0 {
		return domain.GeneratedSentence{}, fmt.Errorf("%w: missing %s", domain.ErrParse, strings.Join(missing, ", "))
	}
	return g, nil
}

func parseLyrics(raw string) (domain.Lyrics, error) {
	var out domain.Lyrics
	if err := json.Unmarshal([]byte(stripFences(raw)), &out); err != nil {
		return domain.Lyrics{}, fmt.Errorf("%w: %v", domain.ErrLyricsParse, err)
	}
	out.Title = strings.TrimSpace(out.Title)
	out.LyricsEn = strings.TrimSpace(out.LyricsEn)
	out.LyricsKo = strings.TrimSpace(out.LyricsKo)
	if out.Title == "" || out.LyricsEn == "" || out.LyricsKo == "" {
		return domain.Lyrics{}, fmt.Errorf("%w: %v", domain.ErrLyricsParse, errors.New("title, lyrics_en and lyrics_ko are required"))
	}
	return out, nil
}
