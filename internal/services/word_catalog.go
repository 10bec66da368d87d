package services

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/cozi7266/aieng/internal/domain"
	"github.com/cozi7266/aieng/internal/pkg/logger"
)

// WordCatalog mirrors accepted Learning Records into SQL so they outlive the cache TTL.
type WordCatalog interface {
	Upsert(ctx context.Context, ref domain.SessionRef, rec domain.LearningRecord) error
	Recent(ctx context.Context, limit int) ([]domain.WordEntry, error)
}

type wordCatalog struct {
	log *logger.Logger
	db  *gorm.DB
}

func NewWordCatalog(log *logger.Logger, db *gorm.DB) WordCatalog {
	return &wordCatalog{log: log.With("service", "WordCatalog"), db: db}
}

func (c *wordCatalog) Upsert(ctx context.Context, ref domain.SessionRef, rec domain.LearningRecord) error {
	now := time.Now().UTC()
	row := domain.WordEntry{
		UserID:      ref.UserID,
		SessionID:   ref.SessionID,
		Word:        NormalizeWord(rec.Word),
		Sentence:    rec.Sentence,
		Translation: rec.Translation,
		ImageURL:    rec.ImageURL,
		AudioURL:    rec.AudioURL,
		Seq:         rec.Seq,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	err := c.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}, {Name: "session_id"}, {Name: "word"}},
		DoUpdates: clause.AssignmentColumns([]string{"sentence", "translation", "image_url", "audio_url", "seq", "updated_at"}),
	}).Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert word %q: %w", row.Word, err)
	}
	return nil
}

func (c *wordCatalog) Recent(ctx context.Context, limit int) ([]domain.WordEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	var out []domain.WordEntry
	if err := c.db.WithContext(ctx).Order("updated_at desc").Order("id desc").Limit(limit).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}
