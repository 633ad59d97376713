// internal/services/archive/service.go
package archive

import (
	"context"
	"errors"
	"strings"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/observability"
	"jelita/internal/common/sideeffect"
	"jelita/internal/models"
)

const entity = "arsip"

type Service struct {
	cfg     *Config
	store   Store
	index   Index
	effects *sideeffect.Dispatcher
	obs     *observability.Observability
	logger  logger.Logger
}

// NewService accepts a nil index; search then reports the index unavailable.
func NewService(cfg *Config, store Store, index Index, effects *sideeffect.Dispatcher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		cfg:     cfg,
		store:   store,
		index:   index,
		effects: effects,
		obs:     obs,
		logger:  log.WithFields(map[string]interface{}{"service": ServiceName}),
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NewResourceNotFoundError("Arsip", "Arsip tidak ditemukan")
	default:
		return apperrors.NewQueryExecutionFailedError(op, err)
	}
}

func optional(v string) *string {
	v = strings.TrimSpace(v)
	if v == "" {
		return nil
	}
	return &v
}

// Trigger is idempotent per application id.
func (s *Service) Trigger(ctx context.Context, req TriggerRequest) (*TriggerResult, error) {
	from := strings.TrimSpace(req.TriggeredFrom)
	if from == "" {
		from = "unknown"
	}
	a, created, err := s.store.Trigger(ctx, &models.Archive{
		PermohonanID:    req.PermohonanID,
		NomorRegistrasi: optional(req.NomorRegistrasi),
		TriggeredFrom:   from,
	})
	if err != nil {
		return nil, s.storeError("trigger arsip", err)
	}
	if created {
		s.obs.RecordTransition(ctx, entity, string(a.Status))
	}
	s.log(ctx).Info("Archive trigger received", map[string]interface{}{
		"permohonanId":  a.PermohonanID,
		"arsipId":       a.ID,
		"triggeredFrom": from,
		"created":       created,
		"status":        a.Status,
	})
	return &TriggerResult{
		ArsipID:         a.ID,
		PermohonanID:    a.PermohonanID,
		NomorRegistrasi: a.NomorRegistrasi,
		Status:          a.Status,
		TriggeredFrom:   a.TriggeredFrom,
		Created:         created,
	}, nil
}

func (s *Service) ArchiveLicense(ctx context.Context, p *auth.Principal, req ArchiveLicenseRequest) (*models.Archive, error) {
	a, err := s.store.ArchiveLicense(ctx, &models.Archive{
		PermohonanID:    req.PermohonanID,
		NomorRegistrasi: optional(req.NomorRegistrasi),
		JenisIzin:       optional(req.JenisIzin),
		FilePath:        optional(req.FilePath),
		MetadataJSON:    models.RawJSON(req.MetadataJSON),
	})
	if err != nil {
		return nil, s.storeError("archive izin", err)
	}
	s.obs.RecordTransition(ctx, entity, string(a.Status))
	s.log(ctx).Info("Licence archived", map[string]interface{}{
		"permohonanId": a.PermohonanID,
		"arsipId":      a.ID,
		"archivedBy":   p.UserID,
	})
	s.reindex(ctx, a)
	return a, nil
}

// SetAccess only ever adds grants.
func (s *Service) SetAccess(ctx context.Context, p *auth.Principal, req SetAccessRequest) (*AccessResult, error) {
	a, err := s.store.GrantAccess(ctx, req.ArsipID, req.OPDIDs)
	if err != nil {
		return nil, s.storeError("grant arsip", err)
	}
	s.log(ctx).Info("Archive access granted", map[string]interface{}{
		"arsipId":   a.ID,
		"offices":   a.HakAksesOPD,
		"grantedBy": p.UserID,
	})
	if a.FilePath != nil {
		s.reindex(ctx, a)
	}
	return &AccessResult{
		ArsipID:         a.ID,
		PermohonanID:    a.PermohonanID,
		NomorRegistrasi: a.NomorRegistrasi,
		HakAksesOPD:     a.HakAksesOPD,
	}, nil
}

// Get enforces office grants and records the first read of an archived licence.
func (s *Service) Get(ctx context.Context, p *auth.Principal, id int64) (*models.Archive, error) {
	a, err := s.store.Get(ctx, id)
	if err != nil {
		return nil, s.storeError("get arsip", err)
	}
	if p.Role == auth.RoleOffice && !a.GrantedTo(p.OfficeID) {
		return nil, apperrors.NewAuthorizationError("OPD tidak memiliki hak akses ke arsip ini")
	}
	if a.Status != models.ArchiveArchived {
		return a, nil
	}

	accessed, err := s.store.MarkAccessed(ctx, id)
	switch {
	case errors.Is(err, ErrStatusConflict):
		// A concurrent read already advanced it.
		if accessed, err = s.store.Get(ctx, id); err != nil {
			return nil, s.storeError("get arsip", err)
		}
		return accessed, nil
	case err != nil:
		return nil, s.storeError("mark arsip accessed", err)
	}
	s.obs.RecordTransition(ctx, entity, string(accessed.Status))
	s.log(ctx).Info("Archive accessed", map[string]interface{}{"arsipId": id, "accessedBy": p.UserID})
	return accessed, nil
}

func (s *Service) Search(ctx context.Context, q string, size int) (*SearchResult, error) {
	if s.index == nil {
		return nil, apperrors.NewDownstreamError("elasticsearch", ErrIndexUnavailable)
	}
	res, err := s.index.Search(ctx, strings.TrimSpace(q), s.cfg.clampSize(size))
	switch {
	case errors.Is(err, ErrIndexUnavailable):
		return nil, apperrors.NewDownstreamError("elasticsearch", err)
	case err != nil:
		return nil, apperrors.NewSearchQueryFailedError(s.cfg.IndexName, err)
	}
	return res, nil
}

func (s *Service) reindex(ctx context.Context, a *models.Archive) {
	if s.index == nil {
		return
	}
	snapshot := *a
	_ = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "elasticsearch.index",
		Criticality: sideeffect.BestEffort,
		Async:       true,
		Timeout:     s.cfg.IndexTimeout,
		Run: func(ctx context.Context) error {
			return s.index.Put(ctx, &snapshot)
		},
	})
}
