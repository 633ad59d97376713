// internal/services/archive/handler.go
package archive

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
	r.Handle("/api/arsip/archive-izin", mw.Require(auth.CapArchiveLicense, h.archiveLicense)).Methods(http.MethodPost)
	r.Handle("/api/arsip/set-hak-akses", mw.Require(auth.CapGrantArchive, h.setAccess)).Methods(http.MethodPost)
	r.Handle("/api/arsip/search", mw.Require(auth.CapSearchArchive, h.search)).Methods(http.MethodGet)
	r.Handle("/api/arsip/{id:[0-9]+}", mw.Require(auth.CapViewArchive, h.get)).Methods(http.MethodGet)

	// Trusted network only.
	r.HandleFunc("/api/internal/arsipkan-dokumen", h.trigger).Methods(http.MethodPost)
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) trigger(w http.ResponseWriter, r *http.Request) {
	var req TriggerRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Trigger(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	if res.Created {
		httpapi.Created(w, "Dokumen berhasil diarsipkan", res)
		return
	}
	httpapi.OK(w, "Trigger arsip diterima (arsip sudah ada)", res)
}

func (h *Handler) archiveLicense(w http.ResponseWriter, r *http.Request) {
	var req ArchiveLicenseRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	a, err := h.svc.ArchiveLicense(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "Izin berhasil diarsipkan", a)
}

func (h *Handler) setAccess(w http.ResponseWriter, r *http.Request) {
	var req SetAccessRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.SetAccess(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Hak akses berhasil diperbarui", res)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	a, err := h.svc.Get(r.Context(), principal(r), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Data arsip berhasil diambil", a)
}

func (h *Handler) search(w http.ResponseWriter, r *http.Request) {
	size, err := httpapi.QueryInt(r, "size", 0)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Search(r.Context(), r.URL.Query().Get("q"), size)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Pencarian arsip", res)
}
