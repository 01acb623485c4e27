package service

import (
	"math"
	"time"

	"habit-coach/internal/logger"
	"habit-coach/internal/model"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	FallbackDays            = 10
	FallbackName            = "Daily Walking Habit"
	FallbackSuccessCriteria = "Build sustainable walking habits and improve daily movement"
	FallbackCategory        = "exercise"

	fallbackBaseSteps  = 9000
	fallbackDailyRamp  = 500
	fallbackFloorSteps = 8000
)

var stepPrinter = message.NewPrinter(language.English)

// MapToPlan turns the backend output into a habit plan. Tasks are taken in
// order; without tasks the fallback walking plan is used.
func MapToPlan(out model.BackendOutput) model.HabitPlan {
	ch := out.Challenge
	if ch == nil || len(ch.DailyTasks) == 0 {
		name := ""
		if out.InterventionName != nil {
			name = *out.InterventionName
		}
		return FallbackPlan(name)
	}

	if ch.DurationDays != len(ch.DailyTasks) {
		logger.Warn("plan.duration_mismatch", "duration_days", ch.DurationDays, "tasks", len(ch.DailyTasks))
	}
	days := make([]model.PlanDay, len(ch.DailyTasks))
	for i, task := range ch.DailyTasks {
		days[i] = model.PlanDay{
			DayIndex:    i + 1,
			Activity:    task.Activity,
			TargetSteps: task.Steps,
		}
	}
	return model.HabitPlan{
		InterventionName: ch.InterventionName,
		DurationDays:     len(days),
		Days:             days,
		SuccessCriteria:  ch.SuccessCriteria,
		Category:         ch.Category,
	}
}

// FallbackSteps is the step target for a 1-based day of the fallback plan:
// roughly 9000 plus 500 per day, jittered by at most ±100 and never below 8000.
func FallbackSteps(dayIndex int) int {
	base := fallbackBaseSteps + (dayIndex-1)*fallbackDailyRamp
	seed := dayIndex*23 + 17
	r := float64((seed*9301+49297)%233280) / 233280
	variation := int(math.Floor((r - 0.5) * 200))
	return max(fallbackFloorSteps, base+variation)
}

// FallbackPlan is the 10-day walking plan used when the backend sends no
// tasks. It depends only on name.
func FallbackPlan(name string) model.HabitPlan {
	if name == "" {
		name = FallbackName
	}
	days := make([]model.PlanDay, FallbackDays)
	for i := range days {
		d := i + 1
		steps := FallbackSteps(d)
		days[i] = model.PlanDay{
			DayIndex:    d,
			Activity:    stepPrinter.Sprintf("Day %d: Walk %d steps today", d, steps),
			TargetSteps: steps,
		}
	}
	return model.HabitPlan{
		InterventionName: name,
		DurationDays:     FallbackDays,
		Days:             days,
		SuccessCriteria:  FallbackSuccessCriteria,
		Category:         FallbackCategory,
	}
}

// ResolveDates returns a copy of plan with each day dated from start.
func ResolveDates(plan model.HabitPlan, start time.Time) model.HabitPlan {
	out := plan
	out.Days = make([]model.PlanDay, len(plan.Days))
	for i, d := range plan.Days {
		d.Date = start.AddDate(0, 0, d.DayIndex-1).Format(time.DateOnly)
		out.Days[i] = d
	}
	return out
}
