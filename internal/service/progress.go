package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"habit-coach/internal/logger"
	"habit-coach/internal/model"
	"habit-coach/internal/store"

	"github.com/google/uuid"
)

// StreakWindow is how many check-ins count toward the streak.
const StreakWindow = 10

// ProgressService owns plan sessions: the accepted plan plus the user's
// daily check-ins against it.
type ProgressService struct {
	store store.PlanStore
	now   func() time.Time
}

func NewProgressService(s store.PlanStore) *ProgressService {
	return &ProgressService{store: s, now: time.Now}
}

// Start anchors the plan at start and persists a new session.
func (s *ProgressService) Start(ctx context.Context, result *model.AgentResult, start time.Time) (*model.PlanSession, error) {
	sess := &model.PlanSession{
		ID:               uuid.NewString(),
		InterventionName: result.InterventionName,
		ResponseText:     result.ResponseText,
		Plan:             ResolveDates(result.Plan, start),
		StartDate:        start.Format(time.DateOnly),
	}
	if err := s.store.CreateSession(ctx, sess); err != nil {
		return nil, fmt.Errorf("start plan: %w", err)
	}
	logger.Info("progress.start", "session", sess.ID, "days", sess.Plan.DurationDays, "start", sess.StartDate)
	return sess, nil
}

func (s *ProgressService) Session(ctx context.Context, id string) (*model.PlanSession, error) {
	sess, err := s.store.GetSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, err
	}
	return sess, nil
}

// CheckIn records how the user did on one day. Checking in again for the
// same day replaces the earlier answer.
func (s *ProgressService) CheckIn(ctx context.Context, id string, req model.CheckInRequest) (*model.DailyEntry, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.DayIndex < 1 || req.DayIndex > len(sess.Plan.Days) {
		return nil, fmt.Errorf("%w: day %d of %d", ErrDayOutOfRange, req.DayIndex, len(sess.Plan.Days))
	}
	switch req.Adherence {
	case model.AdherenceYes, model.AdherencePartial, model.AdherenceNo:
	default:
		return nil, fmt.Errorf("unknown adherence %q", req.Adherence)
	}

	entry := &model.DailyEntry{
		SessionID: id,
		DayIndex:  req.DayIndex,
		Date:      sess.Plan.Days[req.DayIndex-1].Date,
		Adherence: req.Adherence,
		Steps:     req.Steps,
		Note:      req.Note,
	}
	if err := s.store.UpsertEntry(ctx, entry); err != nil {
		return nil, fmt.Errorf("check in: %w", err)
	}
	logger.Info("progress.check_in", "session", id, "day", req.DayIndex, "adherence", req.Adherence)
	return entry, nil
}

func (s *ProgressService) Progress(ctx context.Context, id string) (*model.ProgressResponse, error) {
	sess, err := s.Session(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.store.ListEntries(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	completed, total := Streak(entries, len(sess.Plan.Days))
	return &model.ProgressResponse{
		SessionID: id,
		Completed: completed,
		Total:     total,
		Complete:  total > 0 && completed == total,
		Planted:   sess.PlantedAt != nil,
		Entries:   entries,
	}, nil
}

// Plant marks the streak tree as planted once the streak is complete.
func (s *ProgressService) Plant(ctx context.Context, id string) (*model.ProgressResponse, error) {
	p, err := s.Progress(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Planted {
		return p, nil
	}
	if !p.Complete {
		return p, fmt.Errorf("%w: %d of %d days", ErrStreakIncomplete, p.Completed, p.Total)
	}
	if err := s.store.MarkPlanted(ctx, id, s.now()); err != nil {
		return nil, fmt.Errorf("plant: %w", err)
	}
	p.Planted = true
	logger.Info("progress.planted", "session", id)
	return p, nil
}

// Restart throws the session away so the user can onboard again.
func (s *ProgressService) Restart(ctx context.Context, id string) error {
	err := s.store.DeleteSession(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return ErrSessionNotFound
	}
	if err != nil {
		return fmt.Errorf("restart: %w", err)
	}
	logger.Info("progress.restart", "session", id)
	return nil
}

// Streak counts "yes" answers among the first StreakWindow entries. The
// target is the plan length capped at StreakWindow.
func Streak(entries []model.DailyEntry, planDays int) (completed, total int) {
	total = min(planDays, StreakWindow)
	window := entries
	if len(window) > StreakWindow {
		window = window[:StreakWindow]
	}
	for _, e := range window {
		if e.Adherence == model.AdherenceYes {
			completed++
		}
	}
	return min(completed, total), total
}
