// internal/models/survey.go
package models

import (
	"math"
	"time"
)

type SurveyStatus string

const (
	SurveyPending   SurveyStatus = "pending"
	SurveyCompleted SurveyStatus = "completed"
)

// Satisfaction categories of the public satisfaction index (SKM).
const (
	CategoryVeryGood = "Sangat Baik"
	CategoryGood     = "Baik"
	CategoryPoor     = "Kurang Baik"
	CategoryBad      = "Tidak Baik"
)

// Categories lists every bucket in descending order.
var Categories = []string{CategoryVeryGood, CategoryGood, CategoryPoor, CategoryBad}

type Answer struct {
	QuestionID int `json:"id"`
	Nilai      int `json:"nilai"`
}

type SurveyAnswers struct {
	Answers []Answer `json:"answers"`
	Saran   string   `json:"saran,omitempty"`
}

// Survey is one SKM record; at most one exists per application.
type Survey struct {
	ID                 int64        `json:"id"`
	PermohonanID       int64        `json:"permohonan_id"`
	UserID             *int64       `json:"user_id,omitempty"`
	NomorRegistrasi    *string      `json:"nomor_registrasi,omitempty"`
	JawabanJSON        RawJSON      `json:"jawaban_json"`
	Status             SurveyStatus `json:"status"`
	NotifiedAt         *time.Time   `json:"notified_at,omitempty"`
	SubmittedAt        *time.Time   `json:"submitted_at,omitempty"`
	DownloadUnlocked   bool         `json:"download_unlocked"`
	DownloadUnlockedAt *time.Time   `json:"download_unlocked_at,omitempty"`
	CreatedAt          time.Time    `json:"created_at"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

// Registration returns the registration number or an empty string.
func (s *Survey) Registration() string {
	if s.NomorRegistrasi == nil {
		return ""
	}
	return *s.NomorRegistrasi
}

// Answers decodes the stored answer set; a malformed document yields no answers.
func (s *Survey) Answers() SurveyAnswers {
	var out SurveyAnswers
	if err := s.JawabanJSON.Decode(&out); err != nil {
		return SurveyAnswers{}
	}
	return out
}

type Score struct {
	Total    int     `json:"total"`
	Average  float64 `json:"average"`
	SKMValue float64 `json:"skm_value"`
	Category string  `json:"category"`
}

func sumAndAverage(answers []Answer) (int, float64) {
	total := 0
	for _, a := range answers {
		total += a.Nilai
	}
	if len(answers) == 0 {
		return 0, 0
	}
	return total, float64(total) / float64(len(answers))
}

// SKMValue is the unrounded index value on a 0-100 scale.
func SKMValue(answers []Answer) float64 {
	_, avg := sumAndAverage(answers)
	return avg / 4 * 100
}

// ComputeScore is the single scoring routine for both submit and recap.
// The category is taken from the unrounded value; only the reported numbers are rounded.
func ComputeScore(answers []Answer) Score {
	total, avg := sumAndAverage(answers)
	value := SKMValue(answers)
	return Score{
		Total:    total,
		Average:  Round2(avg),
		SKMValue: Round2(value),
		Category: Categorize(value),
	}
}

func Categorize(skmValue float64) string {
	switch {
	case skmValue >= 88.31:
		return CategoryVeryGood
	case skmValue >= 76.61:
		return CategoryGood
	case skmValue >= 65.00:
		return CategoryPoor
	default:
		return CategoryBad
	}
}

func Round2(v float64) float64 {
	return math.Round(v*100) / 100
}
