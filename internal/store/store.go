// Package store persists plan sessions and their daily check-ins.
package store

import (
	"context"
	"errors"
	"time"

	"habit-coach/internal/model"
)

var ErrNotFound = errors.New("record not found")

// PlanStore is implemented by the gorm-backed store and the in-memory store.
type PlanStore interface {
	CreateSession(ctx context.Context, s *model.PlanSession) error
	// GetSession returns ErrNotFound for unknown ids.
	GetSession(ctx context.Context, id string) (*model.PlanSession, error)
	MarkPlanted(ctx context.Context, id string, at time.Time) error
	// DeleteSession removes the session together with its entries.
	DeleteSession(ctx context.Context, id string) error

	// UpsertEntry keeps one entry per (session, day).
	UpsertEntry(ctx context.Context, e *model.DailyEntry) error
	// ListEntries returns entries ordered by day index.
	ListEntries(ctx context.Context, sessionID string) ([]model.DailyEntry, error)
}
