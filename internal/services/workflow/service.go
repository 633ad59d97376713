// internal/services/workflow/service.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/observability"
	"jelita/internal/common/sideeffect"
	"jelita/internal/models"

	"github.com/google/uuid"
)

const (
	defaultDispositionNote = "Auto generated"
	// advanceAttempts bounds the reload loop when a status row moves under us.
	advanceAttempts = 3
)

// NewDraftNumber returns DRAFT-<yyyymmdd>-<6 hex>.
func NewDraftNumber(t time.Time) string {
	nonce := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return "DRAFT-" + t.Format("20060102") + "-" + nonce
}

type Service struct {
	cfg          *Config
	store        Store
	registration Registration
	effects      *sideeffect.Dispatcher
	obs          *observability.Observability
	logger       logger.Logger

	now func() time.Time
}

func NewService(cfg *Config, store Store, registration Registration, effects *sideeffect.Dispatcher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		cfg:          cfg,
		store:        store,
		registration: registration,
		effects:      effects,
		obs:          obs,
		logger:       log.WithFields(map[string]interface{}{"service": ServiceName}),
		now:          time.Now,
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrDispositionNotFound):
		return apperrors.NewResourceNotFoundError("Disposisi", "disposisi tidak ditemukan")
	case errors.Is(err, ErrDraftNotFound):
		return apperrors.NewResourceNotFoundError("DraftIzin", "draft izin tidak ditemukan")
	case errors.Is(err, ErrRevisionNotFound):
		return apperrors.NewResourceNotFoundError("RevisiDraft", "revisi draft tidak ditemukan")
	default:
		return apperrors.NewQueryExecutionFailedError(op, err)
	}
}

// requireSubmitted enforces the strict routing guard against registration.
func (s *Service) requireSubmitted(ctx context.Context, permohonanID int64) error {
	var status models.ApplicationStatus
	err := s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "registration.lookup",
		Criticality: sideeffect.Critical,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			var err error
			status, err = s.registration.Lookup(ctx, permohonanID)
			if errors.Is(err, ErrApplicationNotFound) {
				return apperrors.NewResourceNotFoundError("Permohonan", "permohonan tidak ditemukan")
			}
			return err
		},
	})
	if err != nil {
		if apperrors.HasCode(err, apperrors.ErrCodeDownstream) {
			if stdErr, ok := apperrors.As(errors.Unwrap(err)); ok && stdErr.Code == apperrors.ErrCodeNotFound {
				return stdErr
			}
		}
		return err
	}
	if status != models.StatusSubmitted {
		return apperrors.NewValidationError(fmt.Sprintf("permohonan in status %s cannot be routed", status))
	}
	return nil
}

func (s *Service) createDisposition(ctx context.Context, req DispositionRequest, from *int64) (*models.Disposition, error) {
	if s.cfg.StrictDisposition {
		if err := s.requireSubmitted(ctx, req.PermohonanID); err != nil {
			return nil, err
		}
	}

	opdID := req.OPDID
	if opdID == 0 {
		opdID = s.cfg.DefaultOPDID
	}
	note := req.CatatanDisposisi
	if strings.TrimSpace(note) == "" {
		note = defaultDispositionNote
	}

	d, err := s.store.CreateDisposition(ctx, &models.Disposition{
		PermohonanID:     req.PermohonanID,
		NomorRegistrasi:  optional(req.NomorRegistrasi),
		OPDID:            opdID,
		DisposisiDari:    from,
		CatatanDisposisi: note,
	})
	if err != nil {
		return nil, s.storeError("create disposisi", err)
	}
	s.obs.RecordTransition(ctx, "disposisi", string(d.Status))
	s.log(ctx).Info("Disposisi created", map[string]interface{}{
		"disposisiId":  d.ID,
		"permohonanId": d.PermohonanID,
		"opdId":        d.OPDID,
	})
	return d, nil
}

// CreateDisposition routes an application to a reviewing office. Duplicate
// dispositions per application are allowed.
func (s *Service) CreateDisposition(ctx context.Context, p *auth.Principal, req DispositionRequest) (*models.Disposition, error) {
	from := p.UserID
	return s.createDisposition(ctx, req, &from)
}

// ReceiveTrigger is the trusted-network variant called by registration.
func (s *Service) ReceiveTrigger(ctx context.Context, req DispositionRequest) (*models.Disposition, error) {
	return s.createDisposition(ctx, req, nil)
}

// ListDispositions pins reviewing-office callers to their own office.
func (s *Service) ListDispositions(ctx context.Context, p *auth.Principal, f DispositionFilter) ([]models.Disposition, error) {
	if f.Status != "" && !f.Status.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", f.Status))
	}
	if p.Role == auth.RoleOffice {
		office := p.OfficeID
		f.OPDID = &office
	}
	if f.Limit <= 0 || f.Limit > s.cfg.ListLimit {
		f.Limit = s.cfg.ListLimit
	}
	out, err := s.store.ListDispositions(ctx, f)
	if err != nil {
		return nil, s.storeError("list disposisi", err)
	}
	return out, nil
}

// UpdateDispositionStatus moves a disposition forward. Done is final.
func (s *Service) UpdateDispositionStatus(ctx context.Context, p *auth.Principal, id int64, next models.TaskStatus) (*models.Disposition, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", next))
	}

	for attempt := 1; attempt <= advanceAttempts; attempt++ {
		current, err := s.store.GetDisposition(ctx, id)
		if err != nil {
			return nil, s.storeError("get disposisi", err)
		}
		if p.Role == auth.RoleOffice && current.OPDID != p.OfficeID {
			return nil, apperrors.NewAuthorizationError("disposisi is assigned to another office")
		}
		if !current.Status.CanAdvanceTo(next) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("disposisi cannot move from %s to %s", current.Status, next))
		}

		updated, err := s.store.AdvanceDisposition(ctx, id, current.Status, next)
		if errors.Is(err, ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, s.storeError("update disposisi", err)
		}
		s.obs.RecordTransition(ctx, "disposisi", string(updated.Status))
		s.log(ctx).Info("Disposisi status updated", map[string]interface{}{
			"disposisiId": id,
			"from":        current.Status,
			"to":          updated.Status,
			"updatedBy":   p.UserID,
		})
		return updated, nil
	}
	return nil, apperrors.NewValidationError("disposisi changed concurrently, retry the request")
}

// CreateReview files a kajian teknis for the caller's office.
func (s *Service) CreateReview(ctx context.Context, p *auth.Principal, req ReviewRequest) (*models.TechnicalReview, error) {
	outcome, ok := parseOutcome(req.HasilKajian)
	if !ok {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown hasil_kajian %q", req.HasilKajian))
	}

	if req.DisposisiID != nil {
		d, err := s.store.GetDisposition(ctx, *req.DisposisiID)
		if err != nil {
			return nil, s.storeError("get disposisi", err)
		}
		if d.OPDID != p.OfficeID {
			return nil, apperrors.NewAuthorizationError("disposisi is assigned to another office")
		}
		if d.PermohonanID != req.PermohonanID {
			return nil, apperrors.NewValidationError("disposisi belongs to another permohonan")
		}
	}

	review, err := s.store.CreateReview(ctx, &models.TechnicalReview{
		DisposisiID:   req.DisposisiID,
		PermohonanID:  req.PermohonanID,
		OPDID:         p.OfficeID,
		ReviewerID:    p.UserID,
		HasilKajian:   outcome,
		Rekomendasi:   req.Rekomendasi,
		CatatanTeknis: req.CatatanTeknis,
		Lampiran:      req.Lampiran.OrDefault(models.RawJSON(`[]`)),
	})
	if err != nil {
		return nil, s.storeError("create kajian teknis", err)
	}
	s.obs.RecordTransition(ctx, "kajian_teknis", string(review.HasilKajian))
	s.log(ctx).Info("Kajian teknis recorded", map[string]interface{}{
		"kajianId":     review.ID,
		"permohonanId": review.PermohonanID,
		"hasil":        review.HasilKajian,
	})
	return review, nil
}

func (s *Service) ListReviews(ctx context.Context, permohonanID int64) ([]models.TechnicalReview, error) {
	out, err := s.store.ListReviews(ctx, permohonanID)
	if err != nil {
		return nil, s.storeError("list kajian teknis", err)
	}
	return out, nil
}

// ForwardDraft sends a draft izin to leadership.
func (s *Service) ForwardDraft(ctx context.Context, p *auth.Principal, req ForwardDraftRequest) (*models.DraftLicense, error) {
	number := strings.TrimSpace(req.NomorDraft)
	if number == "" {
		number = NewDraftNumber(s.now())
	}
	d, err := s.store.CreateDraft(ctx, &models.DraftLicense{
		PermohonanID:    req.PermohonanID,
		NomorRegistrasi: optional(req.NomorRegistrasi),
		NomorDraft:      number,
		IsiDraft:        req.IsiDraft,
		DibuatOleh:      p.UserID,
	})
	if err != nil {
		return nil, s.storeError("create draft izin", err)
	}
	s.obs.RecordTransition(ctx, "draft_izin", string(d.Status))
	s.log(ctx).Info("Draft izin forwarded to leadership", map[string]interface{}{
		"draftId":      d.ID,
		"permohonanId": d.PermohonanID,
		"nomorDraft":   d.NomorDraft,
	})
	return d, nil
}

func (s *Service) ListDrafts(ctx context.Context, f DraftFilter) ([]models.DraftLicense, error) {
	if f.Limit <= 0 || f.Limit > s.cfg.ListLimit {
		f.Limit = s.cfg.ListLimit
	}
	out, err := s.store.ListDrafts(ctx, f)
	if err != nil {
		return nil, s.storeError("list draft izin", err)
	}
	return out, nil
}

// ApproveDraft signs a draft. With ApproveOnDraft the application is marked
// approved in the background; failure there does not undo the signature.
func (s *Service) ApproveDraft(ctx context.Context, p *auth.Principal, id int64) (*models.DraftLicense, error) {
	d, err := s.store.ApproveDraft(ctx, id, p.UserID)
	if err != nil {
		return nil, s.storeError("approve draft izin", err)
	}
	s.obs.RecordTransition(ctx, "draft_izin", string(d.Status))
	s.log(ctx).Info("Draft izin approved", map[string]interface{}{
		"draftId":      d.ID,
		"permohonanId": d.PermohonanID,
		"approvedBy":   p.UserID,
	})

	if s.cfg.ApproveOnDraft {
		_ = s.effects.Dispatch(ctx, sideeffect.Effect{
			Name:        "registration.approve",
			Criticality: sideeffect.BestEffort,
			Async:       true,
			Timeout:     s.cfg.DownstreamTimeout,
			Run: func(ctx context.Context) error {
				return s.registration.SetStatus(ctx, d.PermohonanID, models.StatusApproved,
					fmt.Sprintf("Draft izin %s disetujui", d.NomorDraft))
			},
		})
	}
	return d, nil
}

// RequestRevision flags the draft and opens a revision request together.
// Concurrent requests on one draft each open their own revision.
func (s *Service) RequestRevision(ctx context.Context, p *auth.Principal, req RevisionRequestBody) (*RevisionResult, error) {
	draft, revision, err := s.store.RequestRevision(ctx, req.DraftID, p.UserID, req.CatatanRevisi)
	if err != nil {
		return nil, s.storeError("request revisi draft", err)
	}
	s.obs.RecordTransition(ctx, "draft_izin", string(draft.Status))
	s.obs.RecordTransition(ctx, "revisi_draft", string(revision.Status))
	s.log(ctx).Info("Revisi draft requested", map[string]interface{}{
		"draftId":     draft.ID,
		"revisiId":    revision.ID,
		"requestedBy": p.UserID,
	})
	return &RevisionResult{Revisi: revision, Draft: draft}, nil
}

// UpdateRevisionStatus advances a revision; the draft itself is left alone.
func (s *Service) UpdateRevisionStatus(ctx context.Context, p *auth.Principal, id int64, next models.TaskStatus) (*models.RevisionRequest, error) {
	if !next.Valid() {
		return nil, apperrors.NewValidationError(fmt.Sprintf("unknown status %q", next))
	}

	for attempt := 1; attempt <= advanceAttempts; attempt++ {
		current, err := s.store.GetRevision(ctx, id)
		if err != nil {
			return nil, s.storeError("get revisi draft", err)
		}
		if !current.Status.CanAdvanceTo(next) {
			return nil, apperrors.NewValidationError(fmt.Sprintf("revisi cannot move from %s to %s", current.Status, next))
		}

		var completer *int64
		if next == models.TaskDone {
			uid := p.UserID
			completer = &uid
		}
		updated, err := s.store.AdvanceRevision(ctx, id, current.Status, next, completer)
		if errors.Is(err, ErrStatusConflict) {
			continue
		}
		if err != nil {
			return nil, s.storeError("update revisi draft", err)
		}
		s.obs.RecordTransition(ctx, "revisi_draft", string(updated.Status))
		return updated, nil
	}
	return nil, apperrors.NewValidationError("revisi changed concurrently, retry the request")
}

func (s *Service) ListRevisions(ctx context.Context, draftID int64) ([]models.RevisionRequest, error) {
	out, err := s.store.ListRevisions(ctx, draftID)
	if err != nil {
		return nil, s.storeError("list revisi draft", err)
	}
	return out, nil
}
