// internal/common/auth/roles.go
package auth

import (
	"fmt"
	"sort"
	"strings"
)

// Role is the closed set of caller roles carried in bearer tokens.
type Role string

const (
	RoleApplicant  Role = "Pemohon"
	RoleAdmin      Role = "Admin"
	RoleOffice     Role = "OPD"
	RoleLeadership Role = "Pimpinan"
)

var roleAliases = map[string]Role{
	"pemohon":          RoleApplicant,
	"applicant":        RoleApplicant,
	"admin":            RoleAdmin,
	"opd":              RoleOffice,
	"reviewing-office": RoleOffice,
	"pimpinan":         RoleLeadership,
	"leadership":       RoleLeadership,
}

func ParseRole(s string) (Role, error) {
	if r, ok := roleAliases[strings.ToLower(strings.TrimSpace(s))]; ok {
		return r, nil
	}
	return "", fmt.Errorf("unknown role %q", s)
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// Privileged roles see every application and may filter listings by status.
func (r Role) Privileged() bool {
	return r == RoleAdmin || r == RoleOffice || r == RoleLeadership
}

type Capability string

const (
	CapCreateApplication    Capability = "create_permohonan"
	CapReviewApplication    Capability = "review_permohonan"
	CapApproveApplication   Capability = "approve_permohonan"
	CapUpdateStatus         Capability = "update_status_permohonan"
	CapSubmitAnyApplication Capability = "submit_any_permohonan"
	CapVerifyDocument       Capability = "verify_dokumen"
	CapRequestCorrection    Capability = "request_perbaikan"
	CapAssignRegistration   Capability = "assign_registrasi"

	CapCreateDisposition Capability = "create_disposisi"
	CapUpdateDisposition Capability = "update_disposisi"
	CapViewDispositions  Capability = "view_disposisi"
	CapCreateReview      Capability = "create_kajian_teknis"
	CapForwardDraft      Capability = "forward_draft_izin"
	CapViewDrafts        Capability = "view_draft_izin"
	CapApproveDraft      Capability = "approve_draft_izin"
	CapRequestRevision   Capability = "request_revisi_draft"
	CapUpdateRevision    Capability = "update_revisi_draft"

	CapNotifySurvey    Capability = "notify_skm"
	CapSubmitSurvey    Capability = "submit_skm"
	CapViewSurveyRecap Capability = "view_rekap_skm"

	CapArchiveLicense Capability = "archive_izin"
	CapGrantArchive   Capability = "set_hak_akses"
	CapViewArchive    Capability = "view_arsip"
	CapSearchArchive  Capability = "search_arsip"

	CapManageUsers Capability = "manage_users"
	CapSubmitOSS   Capability = "submit_oss"
)

var capabilities = map[Capability][]Role{
	CapCreateApplication:    {RoleApplicant, RoleAdmin, RoleOffice, RoleLeadership},
	CapReviewApplication:    {RoleAdmin, RoleOffice, RoleLeadership},
	CapApproveApplication:   {RoleAdmin, RoleLeadership},
	CapUpdateStatus:         {RoleAdmin, RoleOffice, RoleLeadership},
	CapSubmitAnyApplication: {RoleAdmin, RoleOffice},
	CapVerifyDocument:       {RoleAdmin, RoleOffice},
	CapRequestCorrection:    {RoleAdmin, RoleOffice},
	CapAssignRegistration:   {RoleAdmin},

	CapCreateDisposition: {RoleAdmin},
	CapUpdateDisposition: {RoleAdmin, RoleOffice},
	CapViewDispositions:  {RoleAdmin, RoleOffice, RoleLeadership},
	CapCreateReview:      {RoleOffice},
	CapForwardDraft:      {RoleAdmin},
	CapViewDrafts:        {RoleAdmin, RoleLeadership},
	CapApproveDraft:      {RoleLeadership},
	CapRequestRevision:   {RoleLeadership},
	CapUpdateRevision:    {RoleAdmin},

	CapNotifySurvey:    {RoleAdmin, RoleOffice},
	CapSubmitSurvey:    {RoleApplicant},
	CapViewSurveyRecap: {RoleAdmin, RoleOffice, RoleLeadership},

	CapArchiveLicense: {RoleAdmin, RoleOffice},
	CapGrantArchive:   {RoleAdmin},
	CapViewArchive:    {RoleAdmin, RoleOffice, RoleLeadership},
	CapSearchArchive:  {RoleAdmin, RoleLeadership},

	CapManageUsers: {RoleAdmin},
	CapSubmitOSS:   {RoleAdmin, RoleOffice},
}

// Allows is the single role→operation table consulted at every service boundary.
func Allows(role Role, capability Capability) bool {
	for _, r := range capabilities[capability] {
		if r == role {
			return true
		}
	}
	return false
}

// CapabilitiesOf lists what role may do, sorted by name.
func CapabilitiesOf(role Role) []Capability {
	out := []Capability{}
	for c := range capabilities {
		if Allows(role, c) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
