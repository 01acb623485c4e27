package model

import "time"

const (
	AdherenceYes     = "yes"
	AdherencePartial = "partial"
	AdherenceNo      = "no"
)

type PlanSession struct {
	ID               string     `gorm:"primaryKey;type:char(36)" json:"id"`
	InterventionName *string    `json:"intervention_name"`
	ResponseText     string     `gorm:"type:text" json:"response"`
	Plan             HabitPlan  `gorm:"serializer:json;type:json" json:"plan"`
	StartDate        string     `gorm:"type:varchar(10)" json:"start_date"`
	PlantedAt        *time.Time `json:"planted_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type DailyEntry struct {
	ID        int       `gorm:"primaryKey" json:"-"`
	SessionID string    `gorm:"type:char(36);uniqueIndex:uk_session_day" json:"-"`
	DayIndex  int       `gorm:"uniqueIndex:uk_session_day" json:"day_index"`
	Date      string    `gorm:"type:varchar(10)" json:"date"`
	Adherence string    `gorm:"type:varchar(10)" json:"adherence"`
	Steps     *int      `json:"steps,omitempty"`
	Note      string    `json:"note,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (PlanSession) TableName() string { return "plan_sessions" }
func (DailyEntry) TableName() string  { return "daily_entries" }
