package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"habit-coach/internal/model"
)

// MemoryStore keeps sessions in process memory. Used when no database is
// configured; everything is lost on restart.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]model.PlanSession
	entries  map[string]map[int]model.DailyEntry
	nextID   int
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		sessions: map[string]model.PlanSession{},
		entries:  map[string]map[int]model.DailyEntry{},
	}
}

func (s *MemoryStore) CreateSession(_ context.Context, sess *model.PlanSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now()
	if sess.CreatedAt.IsZero() {
		sess.CreatedAt = now
	}
	sess.UpdatedAt = now
	s.sessions[sess.ID] = cloneSession(*sess)
	return nil
}

func (s *MemoryStore) GetSession(_ context.Context, id string) (*model.PlanSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := cloneSession(sess)
	return &out, nil
}

func (s *MemoryStore) MarkPlanted(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	sess, ok := s.sessions[id]
	if !ok {
		return ErrNotFound
	}
	sess.PlantedAt = &at
	sess.UpdatedAt = time.Now()
	s.sessions[id] = sess
	return nil
}

func (s *MemoryStore) DeleteSession(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return ErrNotFound
	}
	delete(s.sessions, id)
	delete(s.entries, id)
	return nil
}

func (s *MemoryStore) UpsertEntry(_ context.Context, e *model.DailyEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	days, ok := s.entries[e.SessionID]
	if !ok {
		days = map[int]model.DailyEntry{}
		s.entries[e.SessionID] = days
	}
	now := time.Now()
	if prev, ok := days[e.DayIndex]; ok {
		e.ID = prev.ID
		e.CreatedAt = prev.CreatedAt
	} else {
		s.nextID++
		e.ID = s.nextID
		e.CreatedAt = now
	}
	e.UpdatedAt = now
	days[e.DayIndex] = cloneEntry(*e)
	return nil
}

func (s *MemoryStore) ListEntries(_ context.Context, sessionID string) ([]model.DailyEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	days := s.entries[sessionID]
	out := make([]model.DailyEntry, 0, len(days))
	for _, e := range days {
		out = append(out, cloneEntry(e))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DayIndex < out[j].DayIndex })
	return out, nil
}

func cloneSession(s model.PlanSession) model.PlanSession {
	s.Plan.Days = append([]model.PlanDay(nil), s.Plan.Days...)
	if s.InterventionName != nil {
		name := *s.InterventionName
		s.InterventionName = &name
	}
	if s.PlantedAt != nil {
		at := *s.PlantedAt
		s.PlantedAt = &at
	}
	return s
}

func cloneEntry(e model.DailyEntry) model.DailyEntry {
	if e.Steps != nil {
		steps := *e.Steps
		e.Steps = &steps
	}
	return e
}
