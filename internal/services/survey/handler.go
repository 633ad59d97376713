// internal/services/survey/handler.go
package survey

import (
	"fmt"
	"net/http"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/httpapi"
	"jelita/internal/models"

	"github.com/gorilla/mux"
)

type Handler struct {
	svc  *Service
	errs *apperrors.ErrorHandler
}

func NewHandler(svc *Service, errs *apperrors.ErrorHandler) *Handler {
	return &Handler{svc: svc, errs: errs}
}

func (h *Handler) Routes(r *mux.Router, mw *auth.Middleware) {
	r.HandleFunc("/api/skm/form", h.form).Methods(http.MethodGet)
	r.Handle("/api/skm/notifikasi", mw.Require(auth.CapNotifySurvey, h.notify)).Methods(http.MethodPost)
	r.Handle("/api/skm/submit", mw.Require(auth.CapSubmitSurvey, h.submit)).Methods(http.MethodPost)
	r.Handle("/api/skm/rekap", mw.Require(auth.CapViewSurveyRecap, h.recap)).Methods(http.MethodGet)
	r.Handle("/api/skm/permohonan/{id}", mw.Authenticated(h.getByPermohonan)).Methods(http.MethodGet)

	// Trusted-network endpoints: no bearer token.
	r.HandleFunc("/api/internal/skm/ensure", h.ensure).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/buka-akses-download", h.unlock).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/trigger-pengarsipan", h.triggerArchive).Methods(http.MethodPost)
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) form(w http.ResponseWriter, r *http.Request) {
	httpapi.OK(w, "Form SKM berhasil diambil", SurveyForm)
}

func (h *Handler) notify(w http.ResponseWriter, r *http.Request) {
	var req NotifyRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Notify(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Notifikasi SKM berhasil dikirim", res)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var req SubmitRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Submit(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Survei SKM berhasil disubmit", res)
}

func (h *Handler) recap(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	start, err := parseDate(q.Get("startDate"))
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	end, err := parseDate(q.Get("endDate"))
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	status := models.SurveyStatus(q.Get("status"))
	if status != "" && status != models.SurveyPending && status != models.SurveyCompleted {
		h.errs.HandleHTTPError(w, r, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", status)))
		return
	}

	res, err := h.svc.Recap(r.Context(), RecapQuery{Status: status, StartDate: start, EndDate: end})
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Rekap SKM berhasil diambil", res)
}

func (h *Handler) getByPermohonan(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	sv, err := h.svc.GetByPermohonan(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Detail SKM", sv)
}

func (h *Handler) ensure(w http.ResponseWriter, r *http.Request) {
	var req EnsureRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	sv, err := h.svc.Ensure(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "SKM tersedia", sv)
}

func (h *Handler) unlock(w http.ResponseWriter, r *http.Request) {
	var req UnlockRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	sv, err := h.svc.UnlockDownload(r.Context(), req.PermohonanID)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Akses download berhasil dibuka", UnlockResult{
		PermohonanID:       sv.PermohonanID,
		DownloadUnlocked:   sv.DownloadUnlocked,
		DownloadUnlockedAt: sv.DownloadUnlockedAt,
	})
}

func (h *Handler) triggerArchive(w http.ResponseWriter, r *http.Request) {
	var req ArchiveRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.TriggerArchive(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Pengarsipan berhasil ditrigger", res)
}
