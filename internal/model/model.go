package model

// OnboardingData is what the questionnaire collected. Nil means the user
// skipped the question.
type OnboardingData struct {
	Age               *int     `json:"age,omitempty" binding:"omitempty,gte=0,lte=130"`
	Sex               *string  `json:"sex,omitempty" binding:"omitempty,oneof=male female other prefer-not-to-say"`
	Height            *float64 `json:"height,omitempty" binding:"omitempty,gt=0"`
	Weight            *float64 `json:"weight,omitempty" binding:"omitempty,gt=0"`
	SleepHours        *float64 `json:"sleep_hours,omitempty" binding:"omitempty,gte=0,lte=24"`
	MovementDays      *int     `json:"movement_days,omitempty" binding:"omitempty,gte=0,lte=7"`
	WorkActivityLevel *string  `json:"work_activity_level,omitempty" binding:"omitempty,oneof=sedentary light moderate active"`
	StressLevel       *int     `json:"stress_level,omitempty" binding:"omitempty,gte=1,lte=10"`

	HbA1c         *float64 `json:"hba1c,omitempty" binding:"omitempty,gte=0"`
	LDL           *float64 `json:"ldl,omitempty" binding:"omitempty,gte=0"`
	HDL           *float64 `json:"hdl,omitempty" binding:"omitempty,gte=0"`
	Triglycerides *float64 `json:"triglycerides,omitempty" binding:"omitempty,gte=0"`
	CRP           *float64 `json:"crp,omitempty" binding:"omitempty,gte=0"`
}

// LabFile is an uploaded lab report, already base64 encoded.
type LabFile struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type,omitempty"`
	Base64   string `json:"base64"`
}

type LabAttachment struct {
	Filename string `json:"filename"`
	MimeType string `json:"mime_type"`
	Base64   string `json:"base64"`
}

type PastMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// OutboundPayload is the body sent to the recommendation backend. Unset
// fields are omitted entirely.
type OutboundPayload struct {
	Age                *int               `json:"age,omitempty"`
	Sex                string             `json:"sex,omitempty"`
	HeightCm           *float64           `json:"height_cm,omitempty"`
	WeightKg           *float64           `json:"weight_kg,omitempty"`
	SleepHoursPerNight *float64           `json:"sleep_hours_per_night,omitempty"`
	MovementDaysPerWk  *int               `json:"movement_days_per_week,omitempty"`
	WorkActivityLevel  string             `json:"work_activity_level,omitempty"`
	StressLevel        *int               `json:"stress_level_1_to_10,omitempty"`
	LabPDF             *LabAttachment     `json:"lab_pdf,omitempty"`
	UserInput          string             `json:"userInput"`
	PastMessages       []PastMessage      `json:"pastMessages"`
	BloodData          map[string]float64 `json:"bloodData,omitempty"`
}

type DailyTask struct {
	Activity string `json:"activity"`
	Steps    int    `json:"steps"`
}

type Challenge struct {
	InterventionName string      `json:"intervention_name"`
	DurationDays     int         `json:"duration_days"`
	DailyTasks       []DailyTask `json:"daily_tasks"`
	SuccessCriteria  string      `json:"success_criteria,omitempty"`
	Category         string      `json:"category,omitempty"`
}

type BackendOutput struct {
	Response         string     `json:"response"`
	InterventionName *string    `json:"intervention_name"`
	Challenge        *Challenge `json:"challenge,omitempty"`
}

// BackendResponse is what the backend (and the relay) answer on success.
type BackendResponse struct {
	Output *BackendOutput `json:"output"`
}

// ErrorEnvelope is the body of every non-2xx relay answer.
type ErrorEnvelope struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// PlanDay is one day of a habit plan. Date stays empty until the plan is
// anchored to a start date.
type PlanDay struct {
	DayIndex    int    `json:"day_index"`
	Date        string `json:"date"`
	Activity    string `json:"activity"`
	TargetSteps int    `json:"target_steps"`
}

type HabitPlan struct {
	InterventionName string    `json:"intervention_name"`
	DurationDays     int       `json:"duration_days"`
	Days             []PlanDay `json:"days"`
	SuccessCriteria  string    `json:"success_criteria,omitempty"`
	Category         string    `json:"category,omitempty"`
}

// AgentResult is the mapped answer of one onboarding submission.
type AgentResult struct {
	InterventionName *string   `json:"intervention_name"`
	ResponseText     string    `json:"response"`
	Plan             HabitPlan `json:"plan"`
}

type OnboardingRequest struct {
	Data      OnboardingData `json:"data"`
	LabFile   *LabFile       `json:"lab_file,omitempty"`
	StartDate string         `json:"start_date,omitempty" binding:"omitempty,datetime=2006-01-02"`
}

type OnboardingResponse struct {
	Token            string    `json:"token"`
	SessionID        string    `json:"session_id"`
	InterventionName *string   `json:"intervention_name"`
	Response         string    `json:"response"`
	Plan             HabitPlan `json:"plan"`
}

type CheckInRequest struct {
	DayIndex  int    `json:"day_index" binding:"required,gte=1"`
	Adherence string `json:"adherence" binding:"required,oneof=yes partial no"`
	Steps     *int   `json:"steps,omitempty" binding:"omitempty,gte=0"`
	Note      string `json:"note,omitempty" binding:"max=500"`
}

type ProgressResponse struct {
	SessionID string       `json:"session_id"`
	Completed int          `json:"completed"`
	Total     int          `json:"total"`
	Complete  bool         `json:"complete"`
	Planted   bool         `json:"planted"`
	Entries   []DailyEntry `json:"entries"`
}
