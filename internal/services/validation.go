package services

import (
	"errors"
	"fmt"
	"regexp"
	"strings"
)

const (
	MinSentenceWords = 4
	MaxSentenceWords = 7

	// RefusalPhrase is what the model is told to answer when the word is unsuitable for children.
	RefusalPhrase = "부적절한 문장입니다."

	restrictedChars = "@#$%^&*_=+~<>"
)

var (
	errEmptySentence = errors.New("empty sentence")
	errRefusal       = errors.New("provider refused")
	profanityRe      = regexp.MustCompile(`\b(damn|hell|stupid|hate|ugly|kill|fuck)\b`)
)

// ValidateSentence is the appropriateness predicate every stored sentence satisfies.
func ValidateSentence(sentence string) error {
	s := strings.TrimSpace(sentence)
	if s == "" {
		return errEmptySentence
	}
	if strings.Contains(s, strings.TrimSuffix(RefusalPhrase, ".")) {
		return errRefusal
	}
	if n := len(strings.Fields(s)); n < MinSentenceWords || n > MaxSentenceWords {
		return fmt.Errorf("word count %d outside [%d,%d]", n, MinSentenceWords, MaxSentenceWords)
	}
	if i := strings.IndexAny(s, restrictedChars); i >= 0 {
		return fmt.Errorf("restricted character %q", s[i])
	}
	if m := profanityRe.FindString(strings.ToLower(s)); m != "" {
		return fmt.Errorf("inappropriate word %q", m)
	}
	return nil
}
