// internal/services/workflow/models.go
package workflow

import (
	"strings"

	"jelita/internal/models"
)

type DispositionRequest struct {
	PermohonanID     int64  `json:"permohonan_id" validate:"required,gt=0"`
	NomorRegistrasi  string `json:"nomor_registrasi"`
	OPDID            int64  `json:"opd_id" validate:"gte=0"`
	CatatanDisposisi string `json:"catatan_disposisi"`
}

type StatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in_progress done"`
}

type ReviewRequest struct {
	DisposisiID   *int64         `json:"disposisi_id"`
	PermohonanID  int64          `json:"permohonan_id" validate:"required,gt=0"`
	HasilKajian   string         `json:"hasil_kajian"`
	Rekomendasi   string         `json:"rekomendasi"`
	CatatanTeknis string         `json:"catatan_teknis"`
	Lampiran      models.RawJSON `json:"lampiran"`
}

type ForwardDraftRequest struct {
	PermohonanID    int64  `json:"permohonan_id" validate:"required,gt=0"`
	NomorRegistrasi string `json:"nomor_registrasi"`
	NomorDraft      string `json:"nomor_draft"`
	IsiDraft        string `json:"isi_draft" validate:"required"`
}

type RevisionRequestBody struct {
	DraftID       int64  `json:"draft_id" validate:"required,gt=0"`
	CatatanRevisi string `json:"catatan_revisi" validate:"required"`
}

type RevisionResult struct {
	Revisi *models.RevisionRequest `json:"revisi"`
	Draft  *models.DraftLicense    `json:"draft"`
}

type DispositionFilter struct {
	OPDID        *int64
	PermohonanID *int64
	Status       models.TaskStatus
	Limit        int
}

type DraftFilter struct {
	PermohonanID *int64
	Status       models.DraftStatus
	Limit        int
}

var reviewAliases = map[string]models.ReviewOutcome{
	"disetujui":    models.ReviewApproved,
	"perlu_revisi": models.ReviewNeedsRevision,
	"ditolak":      models.ReviewRejected,
}

// parseOutcome accepts the English outcomes and their Indonesian labels; empty means approved.
func parseOutcome(raw string) (models.ReviewOutcome, bool) {
	raw = strings.ToLower(strings.TrimSpace(raw))
	if raw == "" {
		return models.ReviewApproved, true
	}
	if o := models.ReviewOutcome(raw); o.Valid() {
		return o, true
	}
	o, ok := reviewAliases[raw]
	return o, ok
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
