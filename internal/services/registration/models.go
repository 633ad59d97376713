// internal/services/registration/models.go
package registration

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"jelita/internal/models"
)

type CreateRequest struct {
	DataPemohon models.RawJSON `json:"data_pemohon"`
}

type UpdateRequest struct {
	DataPemohon models.RawJSON `json:"data_pemohon" validate:"required"`
}

type StatusUpdateRequest struct {
	Status  string `json:"status" validate:"required"`
	Catatan string `json:"catatan"`
}

type StatusView struct {
	ID              int64                    `json:"id"`
	UserID          int64                    `json:"user_id"`
	NomorRegistrasi *string                  `json:"nomor_registrasi"`
	Status          models.ApplicationStatus `json:"status"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

func statusView(a *models.Application) StatusView {
	return StatusView{
		ID:              a.ID,
		UserID:          a.UserID,
		NomorRegistrasi: a.NomorRegistrasi,
		Status:          a.Status,
		CreatedAt:       a.CreatedAt,
		UpdatedAt:       a.UpdatedAt,
	}
}

type ListQuery struct {
	Status string
	Limit  int
	Offset int
}

type DocumentRequest struct {
	JenisDokumen string `json:"jenis_dokumen" validate:"required"`
	NamaFile     string `json:"nama_file" validate:"required"`
	FilePath     string `json:"file_path" validate:"required"`
	UkuranFile   int64  `json:"ukuran_file" validate:"gte=0"`
}

type VerifyRequest struct {
	StatusVerifikasi  string `json:"status_verifikasi" validate:"required,oneof=verified rejected"`
	CatatanVerifikasi string `json:"catatan_verifikasi"`
}

type CorrectionRequest struct {
	Catatan string `json:"catatan" validate:"required"`
}

type CorrectionNotice struct {
	PermohonanID    int64                    `json:"permohonan_id"`
	NomorRegistrasi *string                  `json:"nomor_registrasi"`
	Status          models.ApplicationStatus `json:"status"`
	Catatan         string                   `json:"catatan"`
	DikirimOleh     int64                    `json:"dikirim_oleh"`
	DikirimPada     time.Time                `json:"dikirim_pada"`
}

// ReferenceID accepts the callback reference as either a JSON string or number.
type ReferenceID string

func (r *ReferenceID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*r = ""
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*r = ReferenceID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*r = ReferenceID(n.String())
	return nil
}

// NumericID reports the reference as an internal application id when it is one.
func (r ReferenceID) NumericID() (int64, bool) {
	id, err := strconv.ParseInt(string(r), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

type CallbackRequest struct {
	PermohonanID   int64          `json:"permohonan_id" validate:"gte=0"`
	ReferenceID    ReferenceID    `json:"reference_id"`
	Status         string         `json:"status"`
	ApprovalNumber string         `json:"approval_number"`
	UpdatedAt      string         `json:"updated_at"`
	Metadata       models.RawJSON `json:"metadata"`
}

type CallbackResult struct {
	PermohonanID    int64                    `json:"permohonan_id"`
	NomorRegistrasi *string                  `json:"nomor_registrasi"`
	Status          models.ApplicationStatus `json:"status"`
	OSSReferenceID  *string                  `json:"oss_reference_id,omitempty"`
}

type TriggerWorkflowRequest struct {
	PermohonanID     int64  `json:"permohonan_id" validate:"required,gt=0"`
	OPDID            int64  `json:"opd_id" validate:"gte=0"`
	CatatanDisposisi string `json:"catatan_disposisi"`
}

type DownloadStatusRequest struct {
	PermohonanID    int64 `json:"permohonan_id" validate:"required,gt=0"`
	DownloadEnabled *bool `json:"download_enabled"`
}

type OSSReferenceRequest struct {
	OSSReferenceID string `json:"oss_reference_id" validate:"required"`
}

// Peer request bodies.

type ensureSurveyRequest struct {
	PermohonanID    int64   `json:"permohonan_id"`
	UserID          int64   `json:"user_id"`
	NomorRegistrasi *string `json:"nomor_registrasi"`
}

type archiveTriggerRequest struct {
	PermohonanID    int64  `json:"permohonan_id"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	UserID          int64  `json:"user_id"`
	TriggeredFrom   string `json:"triggered_from"`
}

type workflowTriggerRequest struct {
	PermohonanID     int64   `json:"permohonan_id"`
	NomorRegistrasi  *string `json:"nomor_registrasi"`
	OPDID            int64   `json:"opd_id,omitempty"`
	CatatanDisposisi string  `json:"catatan_disposisi,omitempty"`
}
