package service

import (
	"strings"

	"habit-coach/internal/model"
)

// DefaultUserInput is the instruction sent with every onboarding submission.
const DefaultUserInput = "Please analyze my health data and provide personalized recommendations."

var sexMap = map[string]string{
	"male":              "male",
	"female":            "female",
	"other":             "other",
	"prefer-not-to-say": "other",
}

// BuildPayload maps onboarding answers onto the backend request. Unanswered
// questions leave their key out of the payload.
func BuildPayload(data model.OnboardingData, lab *model.LabFile) model.OutboundPayload {
	p := model.OutboundPayload{
		Age:                data.Age,
		HeightCm:           data.Height,
		WeightKg:           data.Weight,
		SleepHoursPerNight: data.SleepHours,
		MovementDaysPerWk:  data.MovementDays,
		StressLevel:        data.StressLevel,
		UserInput:          DefaultUserInput,
		PastMessages:       []model.PastMessage{},
	}

	if data.Sex != nil {
		sex, ok := sexMap[*data.Sex]
		if !ok {
			sex = "other"
		}
		p.Sex = sex
	}
	if data.WorkActivityLevel != nil {
		p.WorkActivityLevel = *data.WorkActivityLevel
	}

	if lab != nil && lab.Base64 != "" && lab.Filename != "" {
		p.LabPDF = &model.LabAttachment{
			Filename: lab.Filename,
			MimeType: labMimeType(lab),
			Base64:   lab.Base64,
		}
	}

	blood := map[string]float64{}
	for key, v := range map[string]*float64{
		"hba1c":         data.HbA1c,
		"ldl":           data.LDL,
		"hdl":           data.HDL,
		"triglycerides": data.Triglycerides,
		"crp":           data.CRP,
	} {
		if v != nil {
			blood[key] = *v
		}
	}
	if len(blood) > 0 {
		p.BloodData = blood
	}
	return p
}

func labMimeType(lab *model.LabFile) string {
	if lab.MimeType != "" {
		return lab.MimeType
	}
	if strings.HasSuffix(strings.ToLower(lab.Filename), ".png") {
		return "image/png"
	}
	return "application/pdf"
}
