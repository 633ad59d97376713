// internal/services/gateway/handler.go
package gateway

import (
	"net/http"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/httpapi"

	"github.com/gorilla/mux"
)

type Handler struct {
	svc     *Service
	limiter *RateLimiter
	errs    *apperrors.ErrorHandler
}

func NewHandler(svc *Service, limiter *RateLimiter, errs *apperrors.ErrorHandler) *Handler {
	return &Handler{svc: svc, limiter: limiter, errs: errs}
}

// Routes also installs the audit and rate-limit middleware; every matched
// gateway route, /health included, passes through both.
func (h *Handler) Routes(r *mux.Router, mw *auth.Middleware) {
	r.Use(Audit(h.svc.audit), h.limiter.Middleware())

	r.HandleFunc("/api/v1/service-directory", h.directory).Methods(http.MethodGet)
	r.Handle("/api/v1/audit-logs", mw.Authenticated(h.auditLogs)).Methods(http.MethodGet)

	r.Handle("/api/oss/submit", mw.Require(auth.CapSubmitOSS, h.submit)).Methods(http.MethodPost)
	r.Handle("/api/oss/status/{trackingId}", mw.Authenticated(h.status)).Methods(http.MethodGet)
	r.HandleFunc("/api/oss/health", h.ossHealth).Methods(http.MethodGet)

	r.HandleFunc("/api/webhooks/oss/status-update", h.callback).Methods(http.MethodPost)
}

func (h *Handler) directory(w http.ResponseWriter, _ *http.Request) {
	httpapi.OK(w, "Service directory", h.svc.Directory())
}

func (h *Handler) auditLogs(w http.ResponseWriter, r *http.Request) {
	limit, err := httpapi.QueryInt(r, "limit", 10)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Audit logs", h.svc.AuditLogs(r.URL.Query().Get("correlation_id"), limit))
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var doc map[string]interface{}
	if err := httpapi.Decode(r, &doc); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	p, _ := auth.PrincipalFrom(r.Context())
	res, err := h.svc.Submit(r.Context(), p, doc, r.Header.Get(CorrelationIDHeader))
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	w.Header().Set(CorrelationIDHeader, res.CorrelationID)
	httpapi.Created(w, "Permohonan dikirim ke OSS-RBA", res)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Status(r.Context(), mux.Vars(r)["trackingId"])
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Status OSS", res)
}

func (h *Handler) ossHealth(w http.ResponseWriter, r *http.Request) {
	res, err := h.svc.Health(r.Context())
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "OSS-RBA reachable", res)
}

func (h *Handler) callback(w http.ResponseWriter, r *http.Request) {
	var payload map[string]interface{}
	if err := httpapi.Decode(r, &payload); err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	res, err := h.svc.RelayCallback(r.Context(), payload)
	if err != nil {
		h.errs.HandleHTTPError(w, r, err)
		return
	}
	httpapi.OK(w, "Callback diteruskan", res)
}
