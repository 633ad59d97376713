// internal/services/survey/models.go
package survey

import (
	"encoding/json"
	"time"

	"jelita/internal/common/validation"
	"jelita/internal/models"
)

type NotifyRequest struct {
	PermohonanID    int64  `json:"permohonan_id" validate:"required,gt=0"`
	UserID          *int64 `json:"user_id"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	Email           string `json:"email" validate:"omitempty,email"`
}

type NotifyResult struct {
	SKMID           int64                 `json:"skm_id"`
	PermohonanID    int64                 `json:"permohonan_id"`
	NomorRegistrasi *string               `json:"nomor_registrasi,omitempty"`
	SurveyLink      string                `json:"survey_link"`
	NotifiedAt      *time.Time            `json:"notified_at,omitempty"`
	Deliveries      []models.Notification `json:"deliveries"`
}

// EnsureRequest is sent by registration on submit and approval.
type EnsureRequest struct {
	PermohonanID    int64   `json:"permohonan_id" validate:"required,gt=0"`
	UserID          int64   `json:"user_id"`
	NomorRegistrasi *string `json:"nomor_registrasi"`
}

type SubmitRequest struct {
	PermohonanID int64           `json:"permohonan_id" validate:"required,gt=0"`
	JawabanJSON  json.RawMessage `json:"jawaban_json" validate:"required"`
}

type SubmitResult struct {
	SKMID            int64               `json:"skm_id"`
	PermohonanID     int64               `json:"permohonan_id"`
	Status           models.SurveyStatus `json:"status"`
	SubmittedAt      *time.Time          `json:"submitted_at,omitempty"`
	Score            models.Score        `json:"score"`
	DownloadUnlocked bool                `json:"download_unlocked"`
}

type RecapQuery struct {
	Status    models.SurveyStatus
	StartDate *time.Time
	EndDate   *time.Time
}

type RecapRow struct {
	ID              int64               `json:"id"`
	PermohonanID    int64               `json:"permohonan_id"`
	NomorRegistrasi *string             `json:"nomor_registrasi,omitempty"`
	Status          models.SurveyStatus `json:"status"`
	SubmittedAt     *time.Time          `json:"submitted_at,omitempty"`
	SKMValue        float64             `json:"skm_value"`
}

type Recap struct {
	TotalSurveys         int            `json:"total_surveys"`
	Completed            int            `json:"completed"`
	Pending              int            `json:"pending"`
	AverageSKMValue      float64        `json:"average_skm_value"`
	CategoryDistribution map[string]int `json:"category_distribution"`
	Surveys              []RecapRow     `json:"surveys"`
}

type UnlockRequest struct {
	PermohonanID int64 `json:"permohonan_id" validate:"required,gt=0"`
}

type UnlockResult struct {
	PermohonanID       int64      `json:"permohonan_id"`
	DownloadUnlocked   bool       `json:"download_unlocked"`
	DownloadUnlockedAt *time.Time `json:"download_unlocked_at,omitempty"`
}

type ArchiveRequest struct {
	PermohonanID    int64  `json:"permohonan_id" validate:"required,gt=0"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	UserID          int64  `json:"user_id"`
}

type archiveTriggerRequest struct {
	PermohonanID    int64  `json:"permohonan_id"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	UserID          int64  `json:"user_id"`
	TriggeredFrom   string `json:"triggered_from"`
}

type ArchiveResult struct {
	PermohonanID    int64           `json:"permohonan_id"`
	ArchiveResponse json.RawMessage `json:"archive_response"`
}

// answersSchema accepts at least one answer, each scored 1 to 4.
var answersSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"answers": {
			Type:     "array",
			MinItems: validation.IntPtr(1),
			Items: &validation.Property{
				Type: "object",
				Properties: map[string]validation.Property{
					"id":    {Type: "integer"},
					"nilai": {Type: "integer", Minimum: validation.FloatPtr(1), Maximum: validation.FloatPtr(4)},
				},
				Required: []string{"nilai"},
			},
		},
		"saran": {Type: "string"},
	},
	Required:             []string{"answers"},
	AdditionalProperties: true,
}

type ScaleOption struct {
	Nilai int    `json:"nilai"`
	Label string `json:"label"`
}

type Question struct {
	ID         int           `json:"id"`
	Pertanyaan string        `json:"pertanyaan"`
	Unsur      string        `json:"unsur"`
	Skala      []ScaleOption `json:"skala"`
}

type Form struct {
	Title       string            `json:"title"`
	Description string            `json:"description"`
	Questions   []Question        `json:"questions"`
	Additional  map[string]string `json:"additional"`
}

func scale(labels ...string) []ScaleOption {
	out := make([]ScaleOption, len(labels))
	for i, l := range labels {
		out[i] = ScaleOption{Nilai: i + 1, Label: l}
	}
	return out
}

// SurveyForm holds the nine service elements of the public satisfaction index.
var SurveyForm = Form{
	Title:       "Survei Kepuasan Masyarakat (SKM)",
	Description: "Mohon luangkan waktu Anda untuk mengisi survei kepuasan layanan kami",
	Questions: []Question{
		{1, "Bagaimana pendapat Saudara tentang kesesuaian persyaratan pelayanan dengan jenis pelayanannya?", "Persyaratan",
			scale("Tidak Sesuai", "Kurang Sesuai", "Sesuai", "Sangat Sesuai")},
		{2, "Bagaimana pemahaman Saudara tentang kemudahan prosedur pelayanan di unit ini?", "Prosedur",
			scale("Tidak Mudah", "Kurang Mudah", "Mudah", "Sangat Mudah")},
		{3, "Bagaimana pendapat Saudara tentang kecepatan waktu dalam memberikan pelayanan?", "Waktu Pelayanan",
			scale("Tidak Cepat", "Kurang Cepat", "Cepat", "Sangat Cepat")},
		{4, "Bagaimana pendapat Saudara tentang kewajaran biaya/tarif dalam pelayanan?", "Biaya/Tarif",
			scale("Sangat Mahal", "Cukup Mahal", "Murah", "Gratis")},
		{5, "Bagaimana pendapat Saudara tentang kesesuaian produk pelayanan antara yang tercantum dalam standar pelayanan dengan hasil yang diberikan?", "Produk Spesifikasi Jenis Pelayanan",
			scale("Tidak Sesuai", "Kurang Sesuai", "Sesuai", "Sangat Sesuai")},
		{6, "Bagaimana pendapat Saudara tentang kompetensi/kemampuan petugas dalam pelayanan?", "Kompetensi Pelaksana",
			scale("Tidak Kompeten", "Kurang Kompeten", "Kompeten", "Sangat Kompeten")},
		{7, "Bagaimana pendapat Saudara tentang perilaku petugas dalam pelayanan terkait kesopanan dan keramahan?", "Perilaku Pelaksana",
			scale("Tidak Sopan dan Ramah", "Kurang Sopan dan Ramah", "Sopan dan Ramah", "Sangat Sopan dan Ramah")},
		{8, "Bagaimana pendapat Saudara tentang kualitas sarana dan prasarana?", "Sarana dan Prasarana",
			scale("Buruk", "Cukup", "Baik", "Sangat Baik")},
		{9, "Bagaimana pendapat Saudara tentang penanganan pengaduan pengguna layanan?", "Penanganan Pengaduan",
			scale("Tidak Ada", "Ada tetapi Tidak Berfungsi", "Berfungsi Kurang Maksimal", "Dikelola Dengan Baik")},
	},
	Additional: map[string]string{
		"saran": "Saran dan masukan untuk perbaikan layanan (opsional)",
	},
}
