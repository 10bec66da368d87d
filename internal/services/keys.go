package services

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/cozi7266/aieng/internal/domain"
)

// Cache key layout. These strings are shared with the upstream backend; do not change them.
const (
	learningKeyFmt   = "Learning:user:%d:session:%d:word:%s"
	songKeyFmt       = "Song:user:%d:session:%d"
	songStatusKeyFmt = "Song:status:session:%d"
)

// NormalizeWord is the form a word takes in object names and the catalog.
// Cache keys keep the word as sent, apart from surrounding space.
func NormalizeWord(word string) string {
	return strings.ToLower(strings.TrimSpace(word))
}

func LearningKey(ref domain.SessionRef, word string) string {
	return fmt.Sprintf(learningKeyFmt, ref.UserID, ref.SessionID, strings.TrimSpace(word))
}

// LearningPattern matches every Learning Record of one session.
func LearningPattern(ref domain.SessionRef) string {
	return fmt.Sprintf(learningKeyFmt, ref.UserID, ref.SessionID, "*")
}

// LearningUserPattern matches every Learning Record of one user across sessions.
func LearningUserPattern(userID int64) string {
	return fmt.Sprintf("Learning:user:%d:session:*", userID)
}

func SongKey(ref domain.SessionRef) string {
	return fmt.Sprintf(songKeyFmt, ref.UserID, ref.SessionID)
}

func SongStatusKey(ref domain.SessionRef) string {
	return fmt.Sprintf(songStatusKeyFmt, ref.SessionID)
}

// objectSlug keeps letters, digits and dashes; everything else becomes an underscore.
func objectSlug(word string) string {
	var b strings.Builder
	for _, r := range NormalizeWord(word) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)), r == '-':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "_"
	}
	return b.String()
}

func ImageObjectKey(ref domain.SessionRef, word string) string {
	return fmt.Sprintf("%d_%s_image.png", ref.SessionID, objectSlug(word))
}

func AudioObjectKey(ref domain.SessionRef, word string) string {
	return fmt.Sprintf("%d_%s_audio.wav", ref.SessionID, objectSlug(word))
}
