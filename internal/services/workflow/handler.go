// internal/services/workflow/handler.go
package workflow

import (
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
	r.Handle("/api/disposisi", mw.Require(auth.CapCreateDisposition, h.createDisposition)).Methods(http.MethodPost)
	r.Handle("/api/workflow/disposisi-opd", mw.Require(auth.CapCreateDisposition, h.createDisposition)).Methods(http.MethodPost)
	r.Handle("/api/disposisi", mw.Require(auth.CapViewDispositions, h.listDispositions)).Methods(http.MethodGet)
	r.Handle("/api/disposisi/{id}/status", mw.Require(auth.CapUpdateDisposition, h.updateDisposition)).Methods(http.MethodPut)

	r.Handle("/api/kajian-teknis", mw.Require(auth.CapCreateReview, h.createReview)).Methods(http.MethodPost)
	r.Handle("/api/workflow/kajian-teknis", mw.Require(auth.CapCreateReview, h.createReview)).Methods(http.MethodPost)
	r.Handle("/api/kajian-teknis", mw.Require(auth.CapViewDispositions, h.listReviews)).Methods(http.MethodGet)

	r.Handle("/api/workflow/forward-to-pimpinan", mw.Require(auth.CapForwardDraft, h.forwardDraft)).Methods(http.MethodPost)
	r.Handle("/api/draft-izin", mw.Require(auth.CapViewDrafts, h.listDrafts)).Methods(http.MethodGet)
	r.Handle("/api/draft-izin/{id}/setujui", mw.Require(auth.CapApproveDraft, h.approveDraft)).Methods(http.MethodPut)

	r.Handle("/api/workflow/revisi-draft", mw.Require(auth.CapRequestRevision, h.requestRevision)).Methods(http.MethodPost)
	r.Handle("/api/revisi-draft/{id}/status", mw.Require(auth.CapUpdateRevision, h.updateRevision)).Methods(http.MethodPut)
	r.Handle("/api/revisi-draft", mw.Require(auth.CapViewDrafts, h.listRevisions)).Methods(http.MethodGet)

	r.HandleFunc("/api/internal/receive-trigger", h.receiveTrigger).Methods(http.MethodPost)
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) createDisposition(w http.ResponseWriter, r *http.Request) {
	var req DispositionRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	d, err := h.svc.CreateDisposition(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Disposisi berhasil dibuat", d)
}

func (h *Handler) receiveTrigger(w http.ResponseWriter, r *http.Request) {
	var req DispositionRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	d, err := h.svc.ReceiveTrigger(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Trigger diterima, disposisi dibuat", d)
}

func (h *Handler) listDispositions(w http.ResponseWriter, r *http.Request) {
	var f DispositionFilter
	if v, ok, err := httpapi.QueryInt64(r, "opd_id"); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	} else if ok {
		f.OPDID = &v
	}
	if v, ok, err := httpapi.QueryInt64(r, "permohonan_id"); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	} else if ok {
		f.PermohonanID = &v
	}
	limit, err := httpapi.QueryInt(r, "limit", 0)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	f.Limit = limit
	f.Status = models.TaskStatus(r.URL.Query().Get("status"))

	out, err := h.svc.ListDispositions(r.Context(), principal(r), f)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar disposisi", out)
}

func (h *Handler) updateDisposition(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req StatusRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	d, err := h.svc.UpdateDispositionStatus(r.Context(), principal(r), id, models.TaskStatus(req.Status))
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status disposisi diperbarui", d)
}

func (h *Handler) createReview(w http.ResponseWriter, r *http.Request) {
	var req ReviewRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	review, err := h.svc.CreateReview(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Kajian teknis berhasil disimpan", review)
}

func (h *Handler) listReviews(w http.ResponseWriter, r *http.Request) {
	id, ok, err := httpapi.QueryInt64(r, "permohonan_id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	if !ok {
		h.errs.HandleHTTPError(w, r, apperrors.NewValidationError("permohonan_id is required"))
		return
	}
	out, err := h.svc.ListReviews(r.Context(), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar kajian teknis", out)
}

func (h *Handler) forwardDraft(w http.ResponseWriter, r *http.Request) {
	var req ForwardDraftRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	d, err := h.svc.ForwardDraft(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Draft izin dikirim ke pimpinan", d)
}

func (h *Handler) listDrafts(w http.ResponseWriter, r *http.Request) {
	var f DraftFilter
	if v, ok, err := httpapi.QueryInt64(r, "permohonan_id"); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	} else if ok {
		f.PermohonanID = &v
	}
	limit, err := httpapi.QueryInt(r, "limit", 0)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	f.Limit = limit
	f.Status = models.DraftStatus(r.URL.Query().Get("status"))

	out, err := h.svc.ListDrafts(r.Context(), f)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar draft izin", out)
}

func (h *Handler) approveDraft(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	d, err := h.svc.ApproveDraft(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Draft izin disetujui", d)
}

func (h *Handler) requestRevision(w http.ResponseWriter, r *http.Request) {
	var req RevisionRequestBody
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.RequestRevision(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Permintaan revisi draft dibuat", res)
}

func (h *Handler) updateRevision(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req StatusRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	rev, err := h.svc.UpdateRevisionStatus(r.Context(), principal(r), id, models.TaskStatus(req.Status))
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status revisi draft diperbarui", rev)
}

func (h *Handler) listRevisions(w http.ResponseWriter, r *http.Request) {
	id, ok, err := httpapi.QueryInt64(r, "draft_id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	if !ok {
		h.errs.HandleHTTPError(w, r, apperrors.NewValidationError("draft_id is required"))
		return
	}
	out, err := h.svc.ListRevisions(r.Context(), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar revisi draft", out)
}
