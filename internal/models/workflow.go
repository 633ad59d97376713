// internal/models/workflow.go
package models

import "time"

// TaskStatus is shared by dispositions and revision requests.
type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskDone       TaskStatus = "done"
)

func (s TaskStatus) Valid() bool {
	return s == TaskPending || s == TaskInProgress || s == TaskDone
}

func (s TaskStatus) rank() int {
	switch s {
	case TaskPending:
		return 0
	case TaskInProgress:
		return 1
	case TaskDone:
		return 2
	}
	return -1
}

// CanAdvanceTo allows forward moves and same-state repeats; done is final.
func (s TaskStatus) CanAdvanceTo(next TaskStatus) bool {
	if !next.Valid() || !s.Valid() {
		return false
	}
	return next.rank() >= s.rank()
}

type Disposition struct {
	ID               int64      `json:"id"`
	PermohonanID     int64      `json:"permohonan_id"`
	NomorRegistrasi  *string    `json:"nomor_registrasi,omitempty"`
	OPDID            int64      `json:"opd_id"`
	DisposisiDari    *int64     `json:"disposisi_dari,omitempty"`
	CatatanDisposisi string     `json:"catatan_disposisi"`
	Status           TaskStatus `json:"status"`
	TanggalDisposisi time.Time  `json:"tanggal_disposisi"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

type ReviewOutcome string

const (
	ReviewApproved      ReviewOutcome = "approved"
	ReviewNeedsRevision ReviewOutcome = "needs_revision"
	ReviewRejected      ReviewOutcome = "rejected"
)

func (o ReviewOutcome) Valid() bool {
	return o == ReviewApproved || o == ReviewNeedsRevision || o == ReviewRejected
}

// TechnicalReview is a kajian teknis filed by a reviewing office.
type TechnicalReview struct {
	ID            int64         `json:"id"`
	DisposisiID   *int64        `json:"disposisi_id,omitempty"`
	PermohonanID  int64         `json:"permohonan_id"`
	OPDID         int64         `json:"opd_id"`
	ReviewerID    int64         `json:"reviewer_id"`
	HasilKajian   ReviewOutcome `json:"hasil_kajian"`
	Rekomendasi   string        `json:"rekomendasi"`
	CatatanTeknis string        `json:"catatan_teknis"`
	Lampiran      RawJSON       `json:"lampiran"`
	TanggalKajian time.Time     `json:"tanggal_kajian"`
}

type DraftStatus string

const (
	DraftSentToLeadership DraftStatus = "sent_to_leadership"
	DraftApproved         DraftStatus = "approved"
	DraftNeedsRevision    DraftStatus = "needs_revision"
)

// DraftLicense is a draft izin awaiting leadership sign-off.
type DraftLicense struct {
	ID                   int64       `json:"id"`
	PermohonanID         int64       `json:"permohonan_id"`
	NomorRegistrasi      *string     `json:"nomor_registrasi,omitempty"`
	NomorDraft           string      `json:"nomor_draft"`
	IsiDraft             string      `json:"isi_draft"`
	DibuatOleh           int64       `json:"dibuat_oleh"`
	Status               DraftStatus `json:"status"`
	TanggalKirimPimpinan time.Time   `json:"tanggal_kirim_pimpinan"`
	DisetujuiOleh        *int64      `json:"disetujui_oleh,omitempty"`
	TanggalPersetujuan   *time.Time  `json:"tanggal_persetujuan,omitempty"`
	CreatedAt            time.Time   `json:"created_at"`
	UpdatedAt            time.Time   `json:"updated_at"`
}

// RevisionRequest is raised by leadership against a draft. Completing it
// does not change the draft; a new forward is required.
type RevisionRequest struct {
	ID               int64      `json:"id"`
	DraftID          int64      `json:"draft_id"`
	DimintaOleh      int64      `json:"diminta_oleh"`
	CatatanRevisi    string     `json:"catatan_revisi"`
	Status           TaskStatus `json:"status"`
	TanggalRevisi    time.Time  `json:"tanggal_revisi"`
	DiselesaikanOleh *int64     `json:"diselesaikan_oleh,omitempty"`
	TanggalSelesai   *time.Time `json:"tanggal_selesai,omitempty"`
}
