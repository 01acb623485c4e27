package service

import (
	"encoding/json"
	"testing"

	"habit-coach/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func payloadKeys(t *testing.T, p model.OutboundPayload) map[string]json.RawMessage {
	t.Helper()
	b, err := json.Marshal(p)
	require.NoError(t, err)
	var m map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(b, &m))
	return m
}

func TestBuildPayload_UnsetFieldsAreOmitted(t *testing.T) {
	m := payloadKeys(t, BuildPayload(model.OnboardingData{}, nil))

	assert.Len(t, m, 2, "only the instruction and message list remain: %v", m)
	assert.JSONEq(t, `"`+DefaultUserInput+`"`, string(m["userInput"]))
	assert.JSONEq(t, `[]`, string(m["pastMessages"]))
	for key, raw := range m {
		assert.NotEqual(t, "null", string(raw), "key %s serialised as null", key)
	}
}

func TestBuildPayload_AllFields(t *testing.T) {
	data := model.OnboardingData{
		Age:               ptr(41),
		Sex:               ptr("prefer-not-to-say"),
		Height:            ptr(180.5),
		Weight:            ptr(82.0),
		SleepHours:        ptr(6.5),
		MovementDays:      ptr(3),
		WorkActivityLevel: ptr("sedentary"),
		StressLevel:       ptr(7),
		HbA1c:             ptr(5.4),
		CRP:               ptr(1.2),
	}
	lab := &model.LabFile{Filename: "labs.PNG", Base64: "aGVsbG8="}

	p := BuildPayload(data, lab)
	b, err := json.Marshal(p)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"age": 41,
		"sex": "other",
		"height_cm": 180.5,
		"weight_kg": 82,
		"sleep_hours_per_night": 6.5,
		"movement_days_per_week": 3,
		"work_activity_level": "sedentary",
		"stress_level_1_to_10": 7,
		"lab_pdf": {"filename": "labs.PNG", "mime_type": "image/png", "base64": "aGVsbG8="},
		"userInput": "Please analyze my health data and provide personalized recommendations.",
		"pastMessages": [],
		"bloodData": {"hba1c": 5.4, "crp": 1.2}
	}`, string(b))
}

func TestBuildPayload_ZeroValuesAreKept(t *testing.T) {
	m := payloadKeys(t, BuildPayload(model.OnboardingData{MovementDays: ptr(0), LDL: ptr(0.0)}, nil))
	assert.JSONEq(t, `0`, string(m["movement_days_per_week"]))
	assert.JSONEq(t, `{"ldl":0}`, string(m["bloodData"]))
}

func TestBuildPayload_Sex(t *testing.T) {
	for in, want := range map[string]string{
		"male":              "male",
		"female":            "female",
		"other":             "other",
		"prefer-not-to-say": "other",
		"unexpected":        "other",
	} {
		assert.Equal(t, want, BuildPayload(model.OnboardingData{Sex: ptr(in)}, nil).Sex, in)
	}
}

func TestBuildPayload_LabFile(t *testing.T) {
	t.Run("pdf by default", func(t *testing.T) {
		p := BuildPayload(model.OnboardingData{}, &model.LabFile{Filename: "report.pdf", Base64: "eA=="})
		require.NotNil(t, p.LabPDF)
		assert.Equal(t, "application/pdf", p.LabPDF.MimeType)
	})

	t.Run("declared type wins", func(t *testing.T) {
		p := BuildPayload(model.OnboardingData{}, &model.LabFile{Filename: "scan.png", MimeType: "image/jpeg", Base64: "eA=="})
		require.NotNil(t, p.LabPDF)
		assert.Equal(t, "image/jpeg", p.LabPDF.MimeType)
	})

	t.Run("needs name and content", func(t *testing.T) {
		assert.Nil(t, BuildPayload(model.OnboardingData{}, &model.LabFile{Filename: "report.pdf"}).LabPDF)
		assert.Nil(t, BuildPayload(model.OnboardingData{}, &model.LabFile{Base64: "eA=="}).LabPDF)
	})
}
