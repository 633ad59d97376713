// internal/services/archive/models.go
package archive

import (
	"encoding/json"
	"time"

	"jelita/internal/models"
)

// TriggerRequest arrives from workflow, survey or an external callback.
type TriggerRequest struct {
	PermohonanID    int64  `json:"permohonan_id" validate:"required,gt=0"`
	NomorRegistrasi string `json:"nomor_registrasi" validate:"max=64"`
	UserID          int64  `json:"user_id"`
	TriggeredFrom   string `json:"triggered_from" validate:"max=64"`
}

type TriggerResult struct {
	ArsipID         int64                `json:"arsip_id"`
	PermohonanID    int64                `json:"permohonan_id"`
	NomorRegistrasi *string              `json:"nomor_registrasi,omitempty"`
	Status          models.ArchiveStatus `json:"status"`
	TriggeredFrom   string               `json:"triggered_from"`
	Created         bool                 `json:"created"`
}

type ArchiveLicenseRequest struct {
	PermohonanID    int64           `json:"permohonan_id" validate:"required,gt=0"`
	NomorRegistrasi string          `json:"nomor_registrasi" validate:"max=64"`
	JenisIzin       string          `json:"jenis_izin" validate:"max=100"`
	FilePath        string          `json:"file_path" validate:"required,max=1024"`
	MetadataJSON    json.RawMessage `json:"metadata_json"`
}

type SetAccessRequest struct {
	ArsipID int64   `json:"arsip_id" validate:"required,gt=0"`
	OPDIDs  []int64 `json:"opd_ids" validate:"required,min=1,dive,gt=0"`
}

type AccessResult struct {
	ArsipID         int64   `json:"arsip_id"`
	PermohonanID    int64   `json:"permohonan_id"`
	NomorRegistrasi *string `json:"nomor_registrasi,omitempty"`
	HakAksesOPD     []int64 `json:"hak_akses_opd"`
}

// Document is the searchable projection of an archive record.
type Document struct {
	ArsipID         int64      `json:"arsip_id"`
	PermohonanID    int64      `json:"permohonan_id"`
	NomorRegistrasi string     `json:"nomor_registrasi,omitempty"`
	JenisIzin       string     `json:"jenis_izin,omitempty"`
	FilePath        string     `json:"file_path,omitempty"`
	MetadataText    string     `json:"metadata_text,omitempty"`
	Status          string     `json:"status"`
	HakAksesOPD     []int64    `json:"hak_akses_opd"`
	ArchivedAt      *time.Time `json:"archived_at,omitempty"`
}

func documentFor(a *models.Archive) Document {
	doc := Document{
		ArsipID:      a.ID,
		PermohonanID: a.PermohonanID,
		Status:       string(a.Status),
		HakAksesOPD:  a.HakAksesOPD,
		ArchivedAt:   a.ArchivedAt,
	}
	if a.NomorRegistrasi != nil {
		doc.NomorRegistrasi = *a.NomorRegistrasi
	}
	if a.JenisIzin != nil {
		doc.JenisIzin = *a.JenisIzin
	}
	if a.FilePath != nil {
		doc.FilePath = *a.FilePath
	}
	if len(a.MetadataJSON) > 0 && string(a.MetadataJSON) != "{}" {
		doc.MetadataText = string(a.MetadataJSON)
	}
	return doc
}

type SearchHit struct {
	Score    float64  `json:"score"`
	Document Document `json:"document"`
}

type SearchResult struct {
	Query     string      `json:"query"`
	TotalHits int64       `json:"total_hits"`
	MaxScore  float64     `json:"max_score"`
	Took      int64       `json:"took"`
	Hits      []SearchHit `json:"hits"`
}

const indexMapping = `{
  "mappings": {
    "properties": {
      "arsip_id":         {"type": "long"},
      "permohonan_id":    {"type": "long"},
      "nomor_registrasi": {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "jenis_izin":       {"type": "text", "fields": {"keyword": {"type": "keyword"}}},
      "file_path":        {"type": "text"},
      "metadata_text":    {"type": "text"},
      "status":           {"type": "keyword"},
      "hak_akses_opd":    {"type": "long"},
      "archived_at":      {"type": "date"}
    }
  }
}`
