// internal/models/archive.go
package models

import "time"

type ArchiveStatus string

const (
	ArchivePending  ArchiveStatus = "pending"
	ArchiveArchived ArchiveStatus = "archived"
	ArchiveAccessed ArchiveStatus = "accessed"
)

func (s ArchiveStatus) Rank() int {
	switch s {
	case ArchivePending:
		return 1
	case ArchiveArchived:
		return 2
	case ArchiveAccessed:
		return 3
	}
	return 0
}

// Advance returns the later of s and next; archive status never regresses.
func (s ArchiveStatus) Advance(next ArchiveStatus) ArchiveStatus {
	if next.Rank() > s.Rank() {
		return next
	}
	return s
}

// Archive is the final stored licence record (arsip).
type Archive struct {
	ID              int64         `json:"id"`
	PermohonanID    int64         `json:"permohonan_id"`
	NomorRegistrasi *string       `json:"nomor_registrasi,omitempty"`
	JenisIzin       *string       `json:"jenis_izin,omitempty"`
	FilePath        *string       `json:"file_path,omitempty"`
	MetadataJSON    RawJSON       `json:"metadata_json"`
	ArchivedAt      *time.Time    `json:"archived_at,omitempty"`
	HakAksesOPD     []int64       `json:"hak_akses_opd"`
	Status          ArchiveStatus `json:"status"`
	TriggeredFrom   string        `json:"triggered_from"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
}

func (a *Archive) GrantedTo(officeID int64) bool {
	for _, id := range a.HakAksesOPD {
		if id == officeID {
			return true
		}
	}
	return false
}

// MergeOffices unions grants into existing, preserving first-seen order.
func MergeOffices(existing, grants []int64) []int64 {
	seen := make(map[int64]struct{}, len(existing)+len(grants))
	out := make([]int64, 0, len(existing)+len(grants))
	for _, list := range [][]int64{existing, grants} {
		for _, id := range list {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			out = append(out, id)
		}
	}
	return out
}
