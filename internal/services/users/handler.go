// internal/services/users/handler.go
package users

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
	r.HandleFunc("/api/auth/signin", h.signin).Methods(http.MethodPost)
	r.Handle("/api/auth/validate", mw.Authenticated(h.validate)).Methods(http.MethodGet)
	r.Handle("/api/auth/signout", mw.Authenticated(h.signout)).Methods(http.MethodPost)
	r.Handle("/api/users", mw.Require(auth.CapManageUsers, h.create)).Methods(http.MethodPost)
	r.Handle("/api/users/{id}/peran", mw.Authenticated(h.role)).Methods(http.MethodGet)
}

func principal(r *http.Request) *auth.Principal {
	p, _ := auth.PrincipalFrom(r.Context())
	return p
}

func (h *Handler) signin(w http.ResponseWriter, r *http.Request) {
	var req SigninRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	session, err := h.svc.Signin(r.Context(), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Signin successful", session)
}

func (h *Handler) validate(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Validate(r.Context(), principal(r), token)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Token valid", res)
}

func (h *Handler) signout(w http.ResponseWriter, r *http.Request) {
	token, err := auth.BearerToken(r)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.Signout(r.Context(), principal(r), token)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Logout successful", res)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateUserRequest
	if err := httpapi.Decode(r, &req); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	u, err := h.svc.CreateUser(r.Context(), principal(r), req)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.Created(w, "User berhasil dibuat", u)
}

func (h *Handler) role(w http.ResponseWriter, r *http.Request) {
	id, err := httpapi.PathID(r, "id")
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.GetRole(r.Context(), id)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Peran pengguna", res)
}
