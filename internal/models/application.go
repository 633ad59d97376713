// internal/models/application.go
package models

import (
	"time"
)

type ApplicationStatus string

const (
	StatusDraft           ApplicationStatus = "draft"
	StatusSubmitted       ApplicationStatus = "submitted"
	StatusApproved        ApplicationStatus = "approved"
	StatusRejected        ApplicationStatus = "rejected"
	StatusNeedsCorrection ApplicationStatus = "needs_correction"
)

func (s ApplicationStatus) Valid() bool {
	switch s {
	case StatusDraft, StatusSubmitted, StatusApproved, StatusRejected, StatusNeedsCorrection:
		return true
	}
	return false
}

// Terminal statuses accept no further submit or edit.
func (s ApplicationStatus) Terminal() bool {
	return s == StatusApproved || s == StatusRejected
}

// Submittable reports whether submit may move s to submitted.
// needs_correction re-enters review only through an explicit resubmit.
func (s ApplicationStatus) Submittable() bool {
	return s == StatusDraft || s == StatusNeedsCorrection
}

// Editable reports whether the applicant may still change data_pemohon.
func (s ApplicationStatus) Editable() bool {
	return s == StatusDraft || s == StatusNeedsCorrection
}

// Application is a permit request (permohonan).
type Application struct {
	ID                int64             `json:"id"`
	UserID            int64             `json:"user_id"`
	NomorRegistrasi   *string           `json:"nomor_registrasi"`
	OSSReferenceID    *string           `json:"oss_reference_id,omitempty"`
	Status            ApplicationStatus `json:"status"`
	DataPemohon       RawJSON           `json:"data_pemohon"`
	Catatan           *string           `json:"catatan,omitempty"`
	DownloadEnabled   bool              `json:"download_enabled"`
	DownloadEnabledAt *time.Time        `json:"download_enabled_at,omitempty"`
	SubmittedAt       *time.Time        `json:"submitted_at,omitempty"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// Registration returns the registration number or "" when unassigned.
func (a *Application) Registration() string {
	if a.NomorRegistrasi == nil {
		return ""
	}
	return *a.NomorRegistrasi
}

type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationVerified VerificationStatus = "verified"
	VerificationRejected VerificationStatus = "rejected"
)

// Document is uploaded-document metadata (dokumen). File bytes live outside the system.
type Document struct {
	ID                int64              `json:"id"`
	PermohonanID      int64              `json:"permohonan_id"`
	JenisDokumen      string             `json:"jenis_dokumen"`
	NamaFile          string             `json:"nama_file"`
	FilePath          string             `json:"file_path"`
	UkuranFile        int64              `json:"ukuran_file"`
	StatusVerifikasi  VerificationStatus `json:"status_verifikasi"`
	CatatanVerifikasi *string            `json:"catatan_verifikasi,omitempty"`
	VerifiedBy        *int64             `json:"verified_by,omitempty"`
	VerifiedAt        *time.Time         `json:"verified_at,omitempty"`
	CreatedAt         time.Time          `json:"created_at"`
}
