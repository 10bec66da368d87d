package domain

import (
	"time"

	"gorm.io/gorm"
)

// WordEntry is the SQL catalog row mirroring a Learning Record after it is cached.
// The cache stays the source of truth; this table outlives the cache TTL for reporting.
type WordEntry struct {
	ID          uint   `gorm:"primaryKey" json:"id"`
	UserID      int64  `gorm:"not null;uniqueIndex:idx_word_entry_key,priority:1" json:"user_id"`
	SessionID   int64  `gorm:"not null;uniqueIndex:idx_word_entry_key,priority:2" json:"session_id"`
	Word        string `gorm:"not null;uniqueIndex:idx_word_entry_key,priority:3" json:"word"`
	Sentence    string `gorm:"not null" json:"sentence"`
	Translation string `json:"translation"`
	ImageURL    string `json:"image_url"`
	AudioURL    string `json:"audio_url"`
	Seq         int64  `json:"seq"`

	CreatedAt time.Time      `gorm:"not null;index" json:"created_at"`
	UpdatedAt time.Time      `gorm:"not null" json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`
}

func (WordEntry) TableName() string { return "words" }
