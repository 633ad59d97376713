// internal/services/registration/service.go
package registration

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"jelita/internal/common/auth"
	"jelita/internal/common/cache"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/metrics"
	"jelita/internal/common/observability"
	"jelita/internal/common/sideeffect"
	"jelita/internal/models"

	"github.com/google/uuid"
)

const entity = "permohonan"

// externalStatuses maps the OSS status vocabulary onto application states.
var externalStatuses = map[string]models.ApplicationStatus{
	"DISETUJUI":       models.StatusApproved,
	"APPROVED":        models.StatusApproved,
	"DITOLAK":         models.StatusRejected,
	"REJECTED":        models.StatusRejected,
	"PERLU_PERBAIKAN": models.StatusNeedsCorrection,
	"SEDANG_DIPROSES": models.StatusSubmitted,
	"DIPROSES":        models.StatusSubmitted,
	"PENDING":         models.StatusSubmitted,
	"SUBMITTED":       models.StatusSubmitted,
}

// MapExternalStatus resolves a callback status. Empty means approved.
func MapExternalStatus(raw string) (models.ApplicationStatus, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return models.StatusApproved, nil
	}
	if s := models.ApplicationStatus(raw); s.Valid() {
		return s, nil
	}
	if s, ok := externalStatuses[strings.ToUpper(raw)]; ok {
		return s, nil
	}
	return "", apperrors.NewValidationError(fmt.Sprintf("unknown status %q", raw))
}

// NewRegistrationNumber returns REG-<yyyymmddhhmmss>-<6 hex>.
func NewRegistrationNumber(t time.Time) string {
	nonce := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "REG-" + t.Format("20060102150405") + "-" + nonce
}

type Service struct {
	cfg     *Config
	store   Store
	cache   cache.Cache
	peers   Peers
	effects *sideeffect.Dispatcher
	obs     *observability.Observability
	logger  logger.Logger

	now       func() time.Time
	newNumber func(time.Time) string
}

func NewService(cfg *Config, store Store, c cache.Cache, peers Peers, effects *sideeffect.Dispatcher, obs *observability.Observability, log logger.Logger) *Service {
	if c == nil {
		c = cache.Noop{}
	}
	return &Service{
		cfg:       cfg,
		store:     store,
		cache:     c,
		peers:     peers,
		effects:   effects,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"service": ServiceName}),
		now:       time.Now,
		newNumber: NewRegistrationNumber,
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NewResourceNotFoundError("Permohonan", "permohonan tidak ditemukan")
	case errors.Is(err, ErrDocumentNotFound):
		return apperrors.NewResourceNotFoundError("Dokumen", "dokumen tidak ditemukan")
	case errors.Is(err, ErrReferenceTaken):
		return apperrors.NewValidationError("oss_reference_id already belongs to another permohonan")
	default:
		return apperrors.NewQueryExecutionFailedError(op, err)
	}
}

func canAccess(p *auth.Principal, a *models.Application) bool {
	return p.Privileged() || p.UserID == a.UserID
}

// load fetches an application the caller may see.
func (s *Service) load(ctx context.Context, p *auth.Principal, id int64) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get permohonan", err)
	}
	if !canAccess(p, app) {
		return nil, apperrors.NewAuthorizationError("permohonan belongs to another user")
	}
	return app, nil
}

func (s *Service) invalidate(ctx context.Context) {
	if err := s.cache.Purge(ctx); err != nil {
		s.log(ctx).Warn("Failed to purge list cache", map[string]interface{}{"error": err.Error()})
	}
}

func (s *Service) Create(ctx context.Context, p *auth.Principal, data models.RawJSON) (*models.Application, error) {
	app, err := s.store.Create(ctx, p.UserID, data)
	if err != nil {
		return nil, s.storeError("create permohonan", err)
	}
	s.invalidate(ctx)
	s.obs.RecordTransition(ctx, entity, string(app.Status))

	s.log(ctx).Info("Permohonan created", map[string]interface{}{
		"permohonanId": app.ID,
		"userId":       p.UserID,
	})
	return app, nil
}

// List returns one page of applications. Non-privileged callers only ever see
// their own rows and cannot filter by status.
func (s *Service) List(ctx context.Context, p *auth.Principal, q ListQuery) ([]models.Application, error) {
	limit, offset := s.cfg.clampPage(q.Limit, q.Offset)
	filter := ListFilter{Limit: limit, Offset: offset}

	scope := "all"
	if p.Privileged() {
		if q.Status != "" {
			st := models.ApplicationStatus(q.Status)
			if !st.Valid() {
				return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", q.Status))
			}
			filter.Status = st
		}
	} else {
		uid := p.UserID
		filter.UserID = &uid
		scope = fmt.Sprintf("user-%d", uid)
	}

	key := cache.Key(p.Role, scope, filter.Status, limit, offset)
	var cached []models.Application
	if hit, err := s.cache.Get(ctx, key, &cached); err != nil {
		s.log(ctx).Warn("List cache lookup failed", map[string]interface{}{"error": err.Error()})
	} else if hit {
		return cached, nil
	}

	apps, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, s.storeError("list permohonan", err)
	}
	if err := s.cache.Set(ctx, key, apps); err != nil {
		s.log(ctx).Warn("List cache store failed", map[string]interface{}{"error": err.Error()})
	}
	return apps, nil
}

func (s *Service) Get(ctx context.Context, p *auth.Principal, id int64) (*models.Application, error) {
	return s.load(ctx, p, id)
}

func (s *Service) GetStatus(ctx context.Context, p *auth.Principal, id int64) (StatusView, error) {
	app, err := s.load(ctx, p, id)
	if err != nil {
		return StatusView{}, err
	}
	return statusView(app), nil
}

func (s *Service) Update(ctx context.Context, p *auth.Principal, id int64, data models.RawJSON) (*models.Application, error) {
	app, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != p.UserID {
		return nil, apperrors.NewAuthorizationError("only the owner may edit data_pemohon")
	}
	if !app.Status.Editable() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("permohonan in status %s cannot be edited", app.Status))
	}

	updated, err := s.store.UpdateData(ctx, id, data)
	if errors.Is(err, ErrStatusConflict) {
		return nil, apperrors.NewValidationError("permohonan is no longer editable")
	}
	if err != nil {
		return nil, s.storeError("update permohonan", err)
	}
	s.invalidate(ctx)
	return updated, nil
}

// Submit moves a draft to submitted and assigns its registration number.
// Repeating it on a submitted application returns the current record.
func (s *Service) Submit(ctx context.Context, p *auth.Principal, id int64) (*models.Application, error) {
	log := s.log(ctx).WithFields(map[string]interface{}{"permohonanId": id, "userId": p.UserID})

	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get permohonan", err)
	}
	if app.UserID != p.UserID && !p.Can(auth.CapSubmitAnyApplication) {
		return nil, apperrors.NewAuthorizationError("only the owner may submit this permohonan")
	}
	if app.Status == models.StatusSubmitted {
		return app, nil
	}
	if !app.Status.Submittable() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("permohonan in status %s cannot be submitted", app.Status))
	}

	var submitted *models.Application
	for attempt := 1; attempt <= s.cfg.RegistrationAttempts; attempt++ {
		submitted, err = s.store.Submit(ctx, id, s.newNumber(s.now()))
		if errors.Is(err, ErrRegistrationTaken) {
			metrics.RegistrationNumberCollisions.Inc()
			log.Warn("Registration number collision, retrying", map[string]interface{}{"attempt": attempt})
			continue
		}
		break
	}

	switch {
	case errors.Is(err, ErrRegistrationTaken):
		return nil, apperrors.NewInternalError(fmt.Errorf("no free registration number after %d attempts", s.cfg.RegistrationAttempts))
	case errors.Is(err, ErrStatusConflict):
		// Another request moved the row first.
		current, gerr := s.store.Get(ctx, id)
		if gerr != nil {
			return nil, s.storeError("get permohonan", gerr)
		}
		if current.Status == models.StatusSubmitted {
			return current, nil
		}
		return nil, apperrors.NewValidationError(fmt.Sprintf("permohonan in status %s cannot be submitted", current.Status))
	case err != nil:
		return nil, s.storeError("submit permohonan", err)
	}

	s.invalidate(ctx)
	s.obs.RecordTransition(ctx, entity, string(submitted.Status))
	log.Info("Permohonan submitted", map[string]interface{}{"nomorRegistrasi": submitted.Registration()})

	s.ensureSurvey(ctx, submitted)
	return submitted, nil
}

func (s *Service) ensureSurvey(ctx context.Context, app *models.Application) {
	_ = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "survey.ensure",
		Criticality: sideeffect.BestEffort,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			return s.peers.EnsureSurvey(ctx, ensureSurveyRequest{
				PermohonanID:    app.ID,
				UserID:          app.UserID,
				NomorRegistrasi: app.NomorRegistrasi,
			})
		},
	})
}

// UpdateStatus overwrites the status. Terminal values need the approve capability.
func (s *Service) UpdateStatus(ctx context.Context, p *auth.Principal, id int64, req StatusUpdateRequest) (*models.Application, error) {
	status := models.ApplicationStatus(req.Status)
	if !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", req.Status))
	}
	if status.Terminal() && !p.Can(auth.CapApproveApplication) {
		return nil, apperrors.NewAuthorizationError(fmt.Sprintf("role %s may not set status %s", p.Role, status))
	}
	return s.applyStatus(ctx, id, status, req.Catatan, p.UserID)
}

// ApplyInternalStatus is the trusted-network variant used by the workflow service.
func (s *Service) ApplyInternalStatus(ctx context.Context, id int64, req StatusUpdateRequest) (*models.Application, error) {
	status := models.ApplicationStatus(req.Status)
	if !status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", req.Status))
	}
	return s.applyStatus(ctx, id, status, req.Catatan, 0)
}

func (s *Service) applyStatus(ctx context.Context, id int64, status models.ApplicationStatus, note string, actor int64) (*models.Application, error) {
	var catatan *string
	if note != "" {
		catatan = &note
	}
	app, err := s.store.SetStatus(ctx, id, status, catatan)
	if err != nil {
		return nil, s.storeError("update status", err)
	}

	s.invalidate(ctx)
	s.obs.RecordTransition(ctx, entity, string(status))
	s.log(ctx).Info("Permohonan status updated", map[string]interface{}{
		"permohonanId": id,
		"status":       status,
		"updatedBy":    actor,
	})

	if status == models.StatusApproved {
		s.ensureSurvey(ctx, app)
	}
	return app, nil
}

// Lookup returns the status view without an ownership check.
func (s *Service) Lookup(ctx context.Context, id int64) (StatusView, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return StatusView{}, s.storeError("get permohonan", err)
	}
	return statusView(app), nil
}

// RequestCorrection sends an application back to the applicant with a note.
func (s *Service) RequestCorrection(ctx context.Context, p *auth.Principal, id int64, catatan string) (*CorrectionNotice, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get permohonan", err)
	}
	if app.Status.Terminal() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("permohonan in status %s cannot be sent back", app.Status))
	}

	app, err = s.store.SetStatus(ctx, id, models.StatusNeedsCorrection, &catatan)
	if err != nil {
		return nil, s.storeError("request correction", err)
	}
	s.invalidate(ctx)
	s.obs.RecordTransition(ctx, entity, string(app.Status))

	return &CorrectionNotice{
		PermohonanID:    app.ID,
		NomorRegistrasi: app.NomorRegistrasi,
		Status:          app.Status,
		Catatan:         catatan,
		DikirimOleh:     p.UserID,
		DikirimPada:     s.now(),
	}, nil
}

// AssignRegistration gives an application a number when it has none.
func (s *Service) AssignRegistration(ctx context.Context, p *auth.Principal, id int64) (*models.Application, error) {
	app, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get permohonan", err)
	}
	if app.NomorRegistrasi != nil {
		return nil, apperrors.NewValidationError("permohonan already has a registration number")
	}

	for attempt := 1; attempt <= s.cfg.RegistrationAttempts; attempt++ {
		app, err = s.store.AssignRegistration(ctx, id, s.newNumber(s.now()))
		if !errors.Is(err, ErrRegistrationTaken) {
			break
		}
		metrics.RegistrationNumberCollisions.Inc()
	}
	switch {
	case errors.Is(err, ErrStatusConflict):
		return nil, apperrors.NewValidationError("permohonan already has a registration number")
	case errors.Is(err, ErrRegistrationTaken):
		return nil, apperrors.NewInternalError(fmt.Errorf("no free registration number after %d attempts", s.cfg.RegistrationAttempts))
	case err != nil:
		return nil, s.storeError("assign registration", err)
	}

	s.invalidate(ctx)
	s.log(ctx).Info("Registration number assigned", map[string]interface{}{
		"permohonanId":    id,
		"nomorRegistrasi": app.Registration(),
		"assignedBy":      p.UserID,
	})
	return app, nil
}

// resolveCallback finds the target by internal id, then OSS reference, then a
// numeric reference treated as an internal id.
func (s *Service) resolveCallback(ctx context.Context, req CallbackRequest) (*models.Application, error) {
	if req.PermohonanID > 0 {
		app, err := s.store.Get(ctx, req.PermohonanID)
		if err != nil {
			return nil, s.storeError("get permohonan", err)
		}
		return app, nil
	}
	if req.ReferenceID == "" {
		return nil, apperrors.NewValidationError("permohonan_id or reference_id is required")
	}

	app, err := s.store.GetByOSSReference(ctx, string(req.ReferenceID))
	if err == nil {
		return app, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return nil, s.storeError("get permohonan by reference", err)
	}
	if id, ok := req.ReferenceID.NumericID(); ok {
		app, err = s.store.Get(ctx, id)
		if err != nil {
			return nil, s.storeError("get permohonan", err)
		}
		return app, nil
	}
	return nil, s.storeError("get permohonan by reference", ErrNotFound)
}

// Callback applies an OSS status update. Archiving is attempted in the
// background and never fails the callback.
func (s *Service) Callback(ctx context.Context, req CallbackRequest) (*CallbackResult, error) {
	status, err := MapExternalStatus(req.Status)
	if err != nil {
		return nil, err
	}
	app, err := s.resolveCallback(ctx, req)
	if err != nil {
		return nil, err
	}
	log := s.log(ctx).WithFields(map[string]interface{}{
		"permohonanId": app.ID,
		"referenceId":  string(req.ReferenceID),
	})

	var updated *models.Application
	for attempt := 1; attempt <= s.cfg.RegistrationAttempts; attempt++ {
		candidate := s.newNumber(s.now())
		if attempt == 1 && req.ApprovalNumber != "" {
			candidate = req.ApprovalNumber
		}
		updated, err = s.store.ApplyCallback(ctx, app.ID, status, candidate)
		if !errors.Is(err, ErrRegistrationTaken) {
			break
		}
		metrics.RegistrationNumberCollisions.Inc()
		log.Warn("Callback registration number taken, retrying", map[string]interface{}{"attempt": attempt})
	}
	if errors.Is(err, ErrRegistrationTaken) {
		return nil, apperrors.NewInternalError(fmt.Errorf("no free registration number after %d attempts", s.cfg.RegistrationAttempts))
	}
	if err != nil {
		return nil, s.storeError("apply callback", err)
	}

	s.invalidate(ctx)
	s.obs.RecordTransition(ctx, entity, string(status))
	log.Info("OSS callback applied", map[string]interface{}{
		"status":          status,
		"nomorRegistrasi": updated.Registration(),
	})

	_ = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "archive.trigger",
		Criticality: sideeffect.BestEffort,
		Async:       true,
		Timeout:     s.cfg.ArchiveTimeout,
		Run: func(ctx context.Context) error {
			return s.peers.TriggerArchive(ctx, archiveTriggerRequest{
				PermohonanID:    updated.ID,
				NomorRegistrasi: updated.Registration(),
				UserID:          updated.UserID,
				TriggeredFrom:   "oss-callback",
			})
		},
	})

	return &CallbackResult{
		PermohonanID:    updated.ID,
		NomorRegistrasi: updated.NomorRegistrasi,
		Status:          updated.Status,
		OSSReferenceID:  updated.OSSReferenceID,
	}, nil
}

// TriggerWorkflow hands an application to the workflow service for disposition.
func (s *Service) TriggerWorkflow(ctx context.Context, req TriggerWorkflowRequest) (json.RawMessage, error) {
	app, err := s.store.Get(ctx, req.PermohonanID)
	if err != nil {
		return nil, s.storeError("get permohonan", err)
	}

	var out json.RawMessage
	err = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "workflow.receive_trigger",
		Criticality: sideeffect.Critical,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			var err error
			out, err = s.peers.TriggerWorkflow(ctx, workflowTriggerRequest{
				PermohonanID:     app.ID,
				NomorRegistrasi:  app.NomorRegistrasi,
				OPDID:            req.OPDID,
				CatatanDisposisi: req.CatatanDisposisi,
			})
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Service) SetDownloadStatus(ctx context.Context, req DownloadStatusRequest) (*models.Application, error) {
	enabled := true
	if req.DownloadEnabled != nil {
		enabled = *req.DownloadEnabled
	}
	app, err := s.store.SetDownloadEnabled(ctx, req.PermohonanID, enabled)
	if err != nil {
		return nil, s.storeError("update download status", err)
	}
	s.invalidate(ctx)
	s.log(ctx).Info("Download status updated", map[string]interface{}{
		"permohonanId":    app.ID,
		"downloadEnabled": enabled,
	})
	return app, nil
}

func (s *Service) SetOSSReference(ctx context.Context, id int64, ref string) (*models.Application, error) {
	app, err := s.store.SetOSSReference(ctx, id, ref)
	if err != nil {
		return nil, s.storeError("set oss reference", err)
	}
	s.invalidate(ctx)
	return app, nil
}

func (s *Service) AddDocument(ctx context.Context, p *auth.Principal, id int64, req DocumentRequest) (*models.Document, error) {
	app, err := s.load(ctx, p, id)
	if err != nil {
		return nil, err
	}
	if app.UserID != p.UserID {
		return nil, apperrors.NewAuthorizationError("only the owner may attach documents")
	}

	doc, err := s.store.CreateDocument(ctx, &models.Document{
		PermohonanID: app.ID,
		JenisDokumen: req.JenisDokumen,
		NamaFile:     req.NamaFile,
		FilePath:     req.FilePath,
		UkuranFile:   req.UkuranFile,
	})
	if err != nil {
		return nil, s.storeError("create dokumen", err)
	}
	return doc, nil
}

func (s *Service) ListDocuments(ctx context.Context, p *auth.Principal, id int64) ([]models.Document, error) {
	if _, err := s.load(ctx, p, id); err != nil {
		return nil, err
	}
	docs, err := s.store.ListDocuments(ctx, id)
	if err != nil {
		return nil, s.storeError("list dokumen", err)
	}
	return docs, nil
}

func (s *Service) VerifyDocument(ctx context.Context, p *auth.Principal, docID int64, req VerifyRequest) (*models.Document, error) {
	var catatan *string
	if req.CatatanVerifikasi != "" {
		catatan = &req.CatatanVerifikasi
	}
	doc, err := s.store.VerifyDocument(ctx, docID, models.VerificationStatus(req.StatusVerifikasi), catatan, p.UserID)
	if err != nil {
		return nil, s.storeError("verify dokumen", err)
	}
	s.log(ctx).Info("Dokumen verified", map[string]interface{}{
		"dokumenId": docID,
		"status":    doc.StatusVerifikasi,
		"verifier":  p.UserID,
	})
	return doc, nil
}
