package services

import (
	"fmt"
	"strings"
)

const sentenceSystemPrompt = `You are an English teacher for 7-8 year old Korean children who are just starting to learn English.
You always answer with one JSON object with exactly these keys:
  "sentence_en": one English sentence,
  "sentence_ko": its natural Korean translation,
  "image_prompt": a short English description of a child-friendly illustration of the sentence.
If the word cannot be used in a sentence suitable for children, set "sentence_en" to "` + RefusalPhrase + `".`

func sentencePrompts(word, theme string, previous []string) (system, user string) {
	var b strings.Builder
	if len(previous) == 0 {
		fmt.Fprintf(&b, "Write one easy English sentence that uses the word %q.\n", word)
		if t := strings.TrimSpace(theme); t != "" {
			fmt.Fprintf(&b, "The sentence belongs to the theme %q.\n", t)
		}
		b.WriteString("Use simple vocabulary and a clear structure such as subject + verb + object.\n")
	} else {
		fmt.Fprintf(&b, "Write the next English sentence of this lesson using the word %q.\n", word)
		if t := strings.TrimSpace(theme); t != "" {
			fmt.Fprintf(&b, "The lesson theme is %q.\n", t)
		}
		b.WriteString("Previous sentences, in order:\n")
		for i, s := range previous {
			fmt.Fprintf(&b, "%d. %s\n", i+1, s)
		}
		b.WriteString("Rules:\n")
		b.WriteString("- Reuse the grammatical pattern of the previous sentences.\n")
		b.WriteString("- Do not repeat vocabulary from the previous sentences, except function words.\n")
		b.WriteString("- Stay in the same broad category so the lesson feels continuous.\n")
		fmt.Fprintf(&b, "- If the previous sentences put an adjective before the key noun, put one before %q too; if they do not, do not.\n", word)
	}
	fmt.Fprintf(&b, "The sentence must have between %d and %d words and end with a period.\n", MinSentenceWords, MaxSentenceWords)
	fmt.Fprintf(&b, "Do not use any of these characters: %s\n", restrictedChars)
	return sentenceSystemPrompt, b.String()
}

const lyricsSystemPrompt = `You write short songs for Korean children aged 3-7 who are learning English.
You always answer with one JSON object with exactly these keys:
  "title": a short English song title,
  "lyrics_en": the English lyrics, sections separated by blank lines and labeled [Verse 1], [Chorus], [Verse 2], [Chorus],
  "lyrics_ko": a Korean translation with the same sections and line breaks.`

func lyricsPrompts(sentences []string, mood, voice string) (system, user string) {
	var b strings.Builder
	b.WriteString("Turn these sentences from today's lesson into a song of about 90 seconds:\n")
	for i, s := range sentences {
		fmt.Fprintf(&b, "%d. %s\n", i+1, s)
	}
	b.WriteString("Use no more than four sections: [Verse 1], [Chorus], [Verse 2], [Chorus].\n")
	b.WriteString("Keep the lesson's key words and repeat them in the chorus so they are easy to remember.\n")
	b.WriteString("Use short lines with simple, catchy rhythm.\n")
	if m := strings.TrimSpace(mood); m != "" {
		fmt.Fprintf(&b, "The mood of the song is %s.\n", m)
	}
	if v := strings.TrimSpace(voice); v != "" {
		fmt.Fprintf(&b, "It will be sung by %s.\n", v)
	}
	return lyricsSystemPrompt, b.String()
}
