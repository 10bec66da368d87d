package domain

import "time"

// LearningRecord is the cached artifact bundle for one word within one session.
// It is serialized as the value of a Learning:* cache key.
type LearningRecord struct {
	Word        string    `json:"word"`
	Sentence    string    `json:"sentence"`
	Translation string    `json:"translation"`
	ImagePrompt string    `json:"image_prompt"`
	ImageURL    string    `json:"image_url"`
	AudioURL    string    `json:"audio_url"`
	Seq         int64     `json:"seq,omitempty"`
	CachedAt    time.Time `json:"cached_at"`
}

// SongRecord is the cached result of one song generation for a session.
type SongRecord struct {
	SongURL  string    `json:"song_url"`
	Title    string    `json:"title"`
	LyricsEn string    `json:"lyrics_en"`
	LyricsKo string    `json:"lyrics_ko"`
	Mood     string    `json:"mood"`
	Voice    string    `json:"voice"`
	CachedAt time.Time `json:"cached_at"`
}

type SongStatus string

const (
	SongStatusRequested  SongStatus = "REQUESTED"
	SongStatusInProgress SongStatus = "IN_PROGRESS"
	SongStatusCompleted  SongStatus = "COMPLETED"
	SongStatusFailed     SongStatus = "FAILED"
)

// SessionRef identifies a learning session. It is a grouping key only; no session object is stored.
type SessionRef struct {
	UserID    int64
	SessionID int64
}

// GeneratedSentence is the structured triple produced by the text provider.
type GeneratedSentence struct {
	Sentence    string `json:"sentence_en"`
	Translation string `json:"sentence_ko"`
	ImagePrompt string `json:"image_prompt"`
}

// Lyrics is the structured song text produced by the text provider.
type Lyrics struct {
	Title    string `json:"title"`
	LyricsEn string `json:"lyrics_en"`
	LyricsKo string `json:"lyrics_ko"`
}
