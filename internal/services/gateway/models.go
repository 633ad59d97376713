// internal/services/gateway/models.go
package gateway

import (
	"encoding/json"
	"time"

	"jelita/internal/common/validation"
)

type DirectoryEntry struct {
	Name    string `json:"name"`
	Version string `json:"version"`
	URL     string `json:"url"`
	Owner   string `json:"owner"`
	SLA     string `json:"sla"`
}

type Directory struct {
	Total    int              `json:"total"`
	Services []DirectoryEntry `json:"services"`
}

type Applicant struct {
	Name     string `json:"name"`
	IDNumber string `json:"id_number"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone,omitempty"`
}

type Business struct {
	Field   string `json:"field,omitempty"`
	Scale   string `json:"scale,omitempty"`
	Address string `json:"address,omitempty"`
}

// OSSApplication is the body the external platform accepts.
type OSSApplication struct {
	LicenseType string    `json:"license_type"`
	Applicant   Applicant `json:"applicant"`
	Business    *Business `json:"business,omitempty"`
	SubmittedAt string    `json:"submitted_at"`
}

type SubmitRequest struct {
	PermohonanID int64 `json:"permohonan_id"`
	OSSApplication
}

type SubmitResult struct {
	PermohonanID   int64     `json:"permohonan_id"`
	OSSReferenceID string    `json:"oss_reference_id"`
	Status         string    `json:"status"`
	CreatedAt      string    `json:"created_at,omitempty"`
	IdempotencyKey string    `json:"idempotency_key"`
	CorrelationID  string    `json:"correlation_id"`
	Attempts       int       `json:"attempts"`
	SubmittedAt    time.Time `json:"submitted_at"`
}

// OSSSubmission is the platform's answer to a submit.
type OSSSubmission struct {
	OSSReferenceID string `json:"oss_reference_id"`
	Status         string `json:"status"`
	CreatedAt      string `json:"created_at"`
}

type OSSStatus struct {
	OSSReferenceID string  `json:"oss_reference_id"`
	LicenseType    string  `json:"license_type"`
	Status         string  `json:"status"`
	ApprovalNumber *string `json:"approval_number"`
	SubmittedAt    string  `json:"submitted_at"`
	UpdatedAt      string  `json:"updated_at"`
}

type OSSHealth struct {
	BaseURL   string          `json:"base_url"`
	Reachable bool            `json:"reachable"`
	Upstream  json.RawMessage `json:"upstream,omitempty"`
	CheckedAt time.Time       `json:"checked_at"`
}

var submitSchema = validation.JSONSchema{
	Type: "object",
	Properties: map[string]validation.Property{
		"permohonan_id": {Type: "integer", Minimum: validation.FloatPtr(1)},
		"license_type":  {Type: "string", MinLength: validation.IntPtr(1)},
		"applicant": {
			Type: "object",
			Properties: map[string]validation.Property{
				"name":      {Type: "string", MinLength: validation.IntPtr(1)},
				"id_number": {Type: "string", Pattern: "^[0-9]{16}$", Description: "NIK"},
				"email":     {Type: "string", Format: "email"},
				"phone":     {Type: "string"},
			},
			Required: []string{"name", "id_number"},
		},
		"business": {
			Type: "object",
			Properties: map[string]validation.Property{
				"field":   {Type: "string"},
				"scale":   {Type: "string", Enum: []string{"MIKRO", "KECIL", "MENENGAH", "BESAR"}},
				"address": {Type: "string"},
			},
		},
		"submitted_at": {Type: "string", Format: "date-time"},
	},
	Required:             []string{"permohonan_id", "license_type", "applicant"},
	AdditionalProperties: true,
}

// Peer request bodies.

type ossReferenceRequest struct {
	OSSReferenceID string `json:"oss_reference_id"`
}
