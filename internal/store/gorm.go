package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habit-coach/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type GormStore struct{ db *gorm.DB }

// NewGormStore migrates the plan tables and returns a store over db.
func NewGormStore(db *gorm.DB) (*GormStore, error) {
	if err := db.AutoMigrate(&model.PlanSession{}, &model.DailyEntry{}); err != nil {
		return nil, fmt.Errorf("migrate plan tables: %w", err)
	}
	return &GormStore{db: db}, nil
}

func (s *GormStore) CreateSession(ctx context.Context, sess *model.PlanSession) error {
	if err := s.db.WithContext(ctx).Create(sess).Error; err != nil {
		return fmt.Errorf("insert session: %w", err)
	}
	return nil
}

func (s *GormStore) GetSession(ctx context.Context, id string) (*model.PlanSession, error) {
	var sess model.PlanSession
	err := s.db.WithContext(ctx).Where("id = ?", id).First(&sess).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query session: %w", err)
	}
	return &sess, nil
}

func (s *GormStore) MarkPlanted(ctx context.Context, id string, at time.Time) error {
	res := s.db.WithContext(ctx).Model(&model.PlanSession{}).
		Where("id = ?", id).
		Update("planted_at", at)
	if res.Error != nil {
		return fmt.Errorf("update session: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) DeleteSession(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("session_id = ?", id).Delete(&model.DailyEntry{}).Error; err != nil {
			return fmt.Errorf("delete entries: %w", err)
		}
		res := tx.Where("id = ?", id).Delete(&model.PlanSession{})
		if res.Error != nil {
			return fmt.Errorf("delete session: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrNotFound
		}
		return nil
	})
}

func (s *GormStore) UpsertEntry(ctx context.Context, e *model.DailyEntry) error {
	err := s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "session_id"}, {Name: "day_index"}},
		DoUpdates: clause.AssignmentColumns([]string{"date", "adherence", "steps", "note", "updated_at"}),
	}).Create(e).Error
	if err != nil {
		return fmt.Errorf("upsert entry: %w", err)
	}
	return nil
}

func (s *GormStore) ListEntries(ctx context.Context, sessionID string) ([]model.DailyEntry, error) {
	var entries []model.DailyEntry
	err := s.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("day_index").Find(&entries).Error
	if err != nil {
		return nil, fmt.Errorf("query entries: %w", err)
	}
	return entries, nil
}
