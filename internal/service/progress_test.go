package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"habit-coach/internal/model"
	"habit-coach/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func startSession(t *testing.T, svc *ProgressService, plan model.HabitPlan) *model.PlanSession {
	t.Helper()
	name := plan.InterventionName
	sess, err := svc.Start(context.Background(), &model.AgentResult{
		InterventionName: &name,
		ResponseText:     "keep walking",
		Plan:             plan,
	}, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	return sess
}

func TestProgressService_StartAndSession(t *testing.T) {
	svc := NewProgressService(store.NewMemoryStore())
	sess := startSession(t, svc, FallbackPlan(""))

	assert.NotEmpty(t, sess.ID)
	assert.Equal(t, "2026-10-01", sess.StartDate)
	assert.Equal(t, "2026-10-10", sess.Plan.Days[9].Date)

	got, err := svc.Session(context.Background(), sess.ID)
	require.NoError(t, err)
	assert.Equal(t, sess.Plan, got.Plan)

	_, err = svc.Session(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProgressService_CheckIn(t *testing.T) {
	ctx := context.Background()
	svc := NewProgressService(store.NewMemoryStore())
	sess := startSession(t, svc, FallbackPlan(""))

	entry, err := svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 3, Adherence: model.AdherencePartial, Steps: ptr(7000)})
	require.NoError(t, err)
	assert.Equal(t, "2026-10-03", entry.Date)

	_, err = svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 3, Adherence: model.AdherenceYes})
	require.NoError(t, err)

	p, err := svc.Progress(ctx, sess.ID)
	require.NoError(t, err)
	require.Len(t, p.Entries, 1)
	assert.Equal(t, model.AdherenceYes, p.Entries[0].Adherence)

	_, err = svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 11, Adherence: model.AdherenceYes})
	assert.ErrorIs(t, err, ErrDayOutOfRange)
	_, err = svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 0, Adherence: model.AdherenceYes})
	assert.ErrorIs(t, err, ErrDayOutOfRange)
	_, err = svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 1, Adherence: "maybe"})
	assert.Error(t, err)
	_, err = svc.CheckIn(ctx, "missing", model.CheckInRequest{DayIndex: 1, Adherence: model.AdherenceYes})
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestProgressService_PlantNeedsCompleteStreak(t *testing.T) {
	ctx := context.Background()
	svc := NewProgressService(store.NewMemoryStore())
	planted := time.Date(2026, 10, 11, 8, 0, 0, 0, time.UTC)
	svc.now = func() time.Time { return planted }
	sess := startSession(t, svc, FallbackPlan(""))

	for d := 1; d <= 9; d++ {
		_, err := svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: d, Adherence: model.AdherenceYes})
		require.NoError(t, err)
	}
	p, err := svc.Plant(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrStreakIncomplete)
	require.NotNil(t, p)
	assert.Equal(t, 9, p.Completed)
	assert.False(t, p.Planted)

	_, err = svc.CheckIn(ctx, sess.ID, model.CheckInRequest{DayIndex: 10, Adherence: model.AdherenceYes})
	require.NoError(t, err)
	p, err = svc.Plant(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, p.Complete)
	assert.True(t, p.Planted)

	again, err := svc.Plant(ctx, sess.ID)
	require.NoError(t, err)
	assert.True(t, again.Planted)

	got, err := svc.Session(ctx, sess.ID)
	require.NoError(t, err)
	require.NotNil(t, got.PlantedAt)
	assert.True(t, planted.Equal(*got.PlantedAt))
}

func TestProgressService_Restart(t *testing.T) {
	ctx := context.Background()
	svc := NewProgressService(store.NewMemoryStore())
	sess := startSession(t, svc, FallbackPlan(""))

	require.NoError(t, svc.Restart(ctx, sess.ID))
	_, err := svc.Progress(ctx, sess.ID)
	assert.ErrorIs(t, err, ErrSessionNotFound)
	assert.ErrorIs(t, svc.Restart(ctx, sess.ID), ErrSessionNotFound)
}

func TestStreak(t *testing.T) {
	entries := func(adherence ...string) []model.DailyEntry {
		out := make([]model.DailyEntry, len(adherence))
		for i, a := range adherence {
			out[i] = model.DailyEntry{DayIndex: i + 1, Adherence: a}
		}
		return out
	}
	yes, no, partial := model.AdherenceYes, model.AdherenceNo, model.AdherencePartial

	tests := []struct {
		entries       []model.DailyEntry
		planDays      int
		wantCompleted int
		wantTotal     int
	}{
		{nil, 10, 0, 10},
		{entries(yes, no, partial, yes), 10, 2, 10},
		{entries(yes, yes, yes), 3, 3, 3},
		{entries(yes, yes, yes, yes, yes, yes, yes, yes, yes, no, yes, yes), 14, 9, 10},
		{entries(yes, yes, yes, yes, yes, yes, yes, yes, yes, yes), 10, 10, 10},
	}
	for i, tt := range tests {
		t.Run(fmt.Sprint(i), func(t *testing.T) {
			completed, total := Streak(tt.entries, tt.planDays)
			assert.Equal(t, tt.wantCompleted, completed)
			assert.Equal(t, tt.wantTotal, total)
		})
	}
}
