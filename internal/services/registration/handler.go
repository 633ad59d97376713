// internal/services/registration/handler.go
package registration

import (
	"net/http"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/httpapi"

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
	r.Handle("/api/permohonan", mw.Require(auth.CapCreateApplication, h.create)).Methods(http.MethodPost)
	r.Handle("/api/permohonan", mw.Authenticated(h.list)).Methods(http.MethodGet)
	r.Handle("/api/permohonan/{id}", mw.Authenticated(h.get)).Methods(http.MethodGet)
	r.Handle("/api/permohonan/{id}", mw.Authenticated(h.update)).Methods(http.MethodPut)
	r.Handle("/api/permohonan/{id}/submit", mw.Authenticated(h.submit)).Methods(http.MethodPost)
	r.Handle("/api/permohonan/{id}/status", mw.Require(auth.CapUpdateStatus, h.updateStatus)).Methods(http.MethodPut)
	r.Handle("/api/permohonan/{id}/status", mw.Authenticated(h.getStatus)).Methods(http.MethodGet)
	r.Handle("/api/permohonan/{id}/dokumen", mw.Authenticated(h.addDocument)).Methods(http.MethodPost)
	r.Handle("/api/permohonan/{id}/dokumen", mw.Authenticated(h.listDocuments)).Methods(http.MethodGet)
	r.Handle("/api/permohonan/{id}/notifikasi-perbaikan", mw.Require(auth.CapRequestCorrection, h.requestCorrection)).Methods(http.MethodPost)
	r.Handle("/api/permohonan/{id}/registrasi", mw.Require(auth.CapAssignRegistration, h.assignRegistration)).Methods(http.MethodPost)
	r.Handle("/api/dokumen/{id}/verifikasi", mw.Require(auth.CapVerifyDocument, h.verifyDocument)).Methods(http.MethodPost)

	// Trusted-network endpoints: no bearer token.
	r.HandleFunc("/api/webhooks/oss/status-update", h.callback).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/trigger-workflow", h.triggerWorkflow).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/update-download-status", h.updateDownloadStatus).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/permohonan/{id}/oss-reference", h.setOSSReference).Methods(http.MethodPost)
	r.HandleFunc("/api/internal/permohonan/{id}", h.lookup).Methods(http.MethodGet)
	r.HandleFunc("/api/internal/permohonan/{id}/status", h.internalStatus).Methods(http.MethodPost)
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.Create(r.Context(), principal(r), req.DataPemohon)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Permohonan berhasil dibuat", app)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	limit, err := httpapi.QueryInt(r, "limit", 0)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	offset, err := httpapi.QueryInt(r, "offset", 0)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}

	apps, err := h.svc.List(r.Context(), principal(r), ListQuery{
		Status: r.URL.Query().Get("status"),
		Limit:  limit,
		Offset: offset,
	})
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar permohonan", apps)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.Get(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Detail permohonan", app)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req UpdateRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.Update(r.Context(), principal(r), id, req.DataPemohon)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Permohonan berhasil diperbarui", app)
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.Submit(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Permohonan berhasil diajukan", app)
}

func (h *Handler) updateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req StatusUpdateRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.UpdateStatus(r.Context(), principal(r), id, req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status permohonan diperbarui", app)
}

func (h *Handler) getStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	view, err := h.svc.GetStatus(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status permohonan", view)
}

func (h *Handler) addDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req DocumentRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	doc, err := h.svc.AddDocument(r.Context(), principal(r), id, req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Dokumen berhasil ditambahkan", doc)
}

func (h *Handler) listDocuments(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	docs, err := h.svc.ListDocuments(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Daftar dokumen", docs)
}

func (h *Handler) verifyDocument(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req VerifyRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	doc, err := h.svc.VerifyDocument(r.Context(), principal(r), id, req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Dokumen berhasil diverifikasi", doc)
}

func (h *Handler) requestCorrection(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req CorrectionRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	notice, err := h.svc.RequestCorrection(r.Context(), principal(r), id, req.Catatan)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Notifikasi perbaikan dikirim", notice)
}

func (h *Handler) assignRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.AssignRegistration(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Nomor registrasi diterbitkan", app)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	var req CallbackRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Callback(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status permohonan diperbarui dari OSS", res)
}

func (h *Handler) triggerWorkflow(w http.ResponseWriter, r *http.Request) {
	var req TriggerWorkflowRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	out, err := h.svc.TriggerWorkflow(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Workflow dipicu", out)
}

func (h *Handler) updateDownloadStatus(w http.ResponseWriter, r *http.Request) {
	var req DownloadStatusRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.SetDownloadStatus(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status download diperbarui", map[string]interface{}{
		"permohonan_id":       app.ID,
		"download_enabled":    app.DownloadEnabled,
		"download_enabled_at": app.DownloadEnabledAt,
	})
}

func (h *Handler) setOSSReference(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req OSSReferenceRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.SetOSSReference(r.Context(), id, req.OSSReferenceID)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Referensi OSS disimpan", map[string]interface{}{
		"permohonan_id":    app.ID,
		"oss_reference_id": app.OSSReferenceID,
	})
}

func (h *Handler) lookup(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	view, err := h.svc.Lookup(r.Context(), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status permohonan", view)
}

func (h *Handler) internalStatus(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	var req StatusUpdateRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	app, err := h.svc.ApplyInternalStatus(r.Context(), id, req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status permohonan diperbarui", statusView(app))
}
