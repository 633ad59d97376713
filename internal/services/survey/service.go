// internal/services/survey/service.go
package survey

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	"jelita/internal/common/logger"
	"jelita/internal/common/metrics"
	"jelita/internal/common/observability"
	"jelita/internal/common/sideeffect"
	"jelita/internal/common/validation"
	"jelita/internal/models"
)

const entity = "skm"

type Service struct {
	cfg      *Config
	store    Store
	peers    Peers
	notifier Notifier
	effects  *sideeffect.Dispatcher
	obs      *observability.Observability
	logger   logger.Logger
}

func NewService(cfg *Config, store Store, peers Peers, notifier Notifier, effects *sideeffect.Dispatcher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		cfg:      cfg,
		store:    store,
		peers:    peers,
		notifier: notifier,
		effects:  effects,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"service": ServiceName}),
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

func (s *Service) storeError(op string, err error) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NewResourceNotFoundError("SKM", "SKM tidak ditemukan")
	case errors.Is(err, ErrNotCompleted):
		return apperrors.NewValidationError("SKM belum diselesaikan")
	default:
		return apperrors.NewQueryExecutionFailedError(op, err)
	}
}

// SurveyLink is deterministic in the application id; the link carries no token.
func (s *Service) SurveyLink(permohonanID int64) string {
	return fmt.Sprintf("%s/survey/%d", s.cfg.LinkBaseURL, permohonanID)
}

// Notify finds or creates the survey, refreshes notified_at and sends the
// invitation. Delivery failures are reported per channel, never as an error.
func (s *Service) Notify(ctx context.Context, p *auth.Principal, req NotifyRequest) (*NotifyResult, error) {
	var nomor *string
	if req.NomorRegistrasi != "" {
		nomor = &req.NomorRegistrasi
	}
	sv, err := s.store.Ensure(ctx, &models.Survey{
		PermohonanID:    req.PermohonanID,
		UserID:          req.UserID,
		NomorRegistrasi: nomor,
	}, true)
	if err != nil {
		return nil, s.storeError("ensure skm", err)
	}

	link := s.SurveyLink(sv.PermohonanID)
	deliveries := s.deliver(ctx, sv, req.Email, link)

	s.log(ctx).Info("SKM notification sent", map[string]interface{}{
		"permohonanId": sv.PermohonanID,
		"skmId":        sv.ID,
		"notifiedBy":   p.UserID,
	})
	return &NotifyResult{
		SKMID:           sv.ID,
		PermohonanID:    sv.PermohonanID,
		NomorRegistrasi: sv.NomorRegistrasi,
		SurveyLink:      link,
		NotifiedAt:      sv.NotifiedAt,
		Deliveries:      deliveries,
	}, nil
}

func (s *Service) deliver(ctx context.Context, sv *models.Survey, email, link string) []models.Notification {
	subject := "Survei Kepuasan Masyarakat JELITA"
	body := fmt.Sprintf("Permohonan %s telah diproses. Mohon isi survei kepuasan di %s", sv.Registration(), link)

	channels := []string{models.ChannelSNS}
	if email != "" {
		channels = append([]string{models.ChannelEmail}, channels...)
	}

	out := make([]models.Notification, 0, len(channels))
	for _, ch := range channels {
		note := models.Notification{
			PermohonanID: sv.PermohonanID,
			Recipient:    email,
			Channel:      ch,
			Subject:      subject,
			Body:         body,
		}
		_ = s.effects.Dispatch(ctx, sideeffect.Effect{
			Name:        "notify." + ch,
			Criticality: sideeffect.BestEffort,
			Timeout:     s.cfg.DownstreamTimeout,
			Run: func(ctx context.Context) error {
				var err error
				note, err = s.notifier.Deliver(ctx, note)
				return err
			},
		})
		metrics.NotificationsTotal.WithLabelValues(ch, note.Status).Inc()
		out = append(out, note)
	}
	return out
}

// Ensure is the trusted-network find-or-create used by registration.
func (s *Service) Ensure(ctx context.Context, req EnsureRequest) (*models.Survey, error) {
	sv := &models.Survey{PermohonanID: req.PermohonanID, NomorRegistrasi: req.NomorRegistrasi}
	if req.UserID > 0 {
		uid := req.UserID
		sv.UserID = &uid
	}
	out, err := s.store.Ensure(ctx, sv, false)
	if err != nil {
		return nil, s.storeError("ensure skm", err)
	}
	return out, nil
}

// parseAnswers validates the raw answer document and decodes it.
func parseAnswers(raw json.RawMessage) (models.SurveyAnswers, error) {
	var doc interface{}
	if err := json.Unmarshal(raw, &doc); err != nil {
		return models.SurveyAnswers{}, apperrors.NewValidationError(fmt.Sprintf("jawaban_json is not valid JSON: %v", err))
	}
	res, err := validation.ValidateDocument(doc, answersSchema)
	if err != nil {
		return models.SurveyAnswers{}, apperrors.NewInternalError(err)
	}
	if !res.Valid {
		return models.SurveyAnswers{}, apperrors.NewValidationError(res.Summary())
	}
	var answers models.SurveyAnswers
	if err := json.Unmarshal(raw, &answers); err != nil {
		return models.SurveyAnswers{}, apperrors.NewValidationError(fmt.Sprintf("jawaban_json: %v", err))
	}
	return answers, nil
}

// Submit records the applicant's answers. Repeats overwrite the answer set.
func (s *Service) Submit(ctx context.Context, p *auth.Principal, req SubmitRequest) (*SubmitResult, error) {
	answers, err := parseAnswers(req.JawabanJSON)
	if err != nil {
		return nil, err
	}

	existing, err := s.store.GetByPermohonan(ctx, req.PermohonanID)
	switch {
	case errors.Is(err, ErrNotFound):
	case err != nil:
		return nil, s.storeError("get skm", err)
	case existing.UserID != nil && *existing.UserID != p.UserID:
		return nil, apperrors.NewAuthorizationError("SKM belongs to another applicant")
	}

	sv, err := s.store.SubmitAnswers(ctx, req.PermohonanID, p.UserID, models.RawJSON(req.JawabanJSON))
	if err != nil {
		return nil, s.storeError("submit skm", err)
	}

	score := models.ComputeScore(answers.Answers)
	metrics.SurveySubmissions.WithLabelValues(score.Category).Inc()
	s.obs.RecordTransition(ctx, entity, string(sv.Status))
	s.log(ctx).Info("SKM submitted", map[string]interface{}{
		"permohonanId": sv.PermohonanID,
		"skmValue":     score.SKMValue,
		"category":     score.Category,
	})

	result := &SubmitResult{
		SKMID:            sv.ID,
		PermohonanID:     sv.PermohonanID,
		Status:           sv.Status,
		SubmittedAt:      sv.SubmittedAt,
		Score:            score,
		DownloadUnlocked: sv.DownloadUnlocked,
	}

	if s.cfg.AutoUnlock {
		if unlocked, err := s.UnlockDownload(ctx, sv.PermohonanID); err != nil {
			s.log(ctx).Warn("Automatic download unlock failed", map[string]interface{}{
				"permohonanId": sv.PermohonanID,
				"error":        err.Error(),
			})
		} else {
			result.DownloadUnlocked = unlocked.DownloadUnlocked
		}
	}
	if s.cfg.AutoArchive {
		_ = s.effects.Dispatch(ctx, sideeffect.Effect{
			Name:        "archive.trigger",
			Criticality: sideeffect.BestEffort,
			Async:       true,
			Timeout:     s.cfg.DownstreamTimeout,
			Run: func(ctx context.Context) error {
				_, err := s.peers.TriggerArchive(ctx, archiveTriggerRequest{
					PermohonanID:    sv.PermohonanID,
					NomorRegistrasi: sv.Registration(),
					UserID:          p.UserID,
					TriggeredFrom:   "survey_service",
				})
				return err
			},
		})
	}
	return result, nil
}

// Recap scores every matching survey with the same routine as Submit.
func (s *Service) Recap(ctx context.Context, q RecapQuery) (*Recap, error) {
	surveys, err := s.store.List(ctx, q)
	if err != nil {
		return nil, s.storeError("list skm", err)
	}

	recap := &Recap{
		TotalSurveys:         len(surveys),
		CategoryDistribution: make(map[string]int, len(models.Categories)),
		Surveys:              make([]RecapRow, 0, len(surveys)),
	}
	for _, c := range models.Categories {
		recap.CategoryDistribution[c] = 0
	}

	var total float64
	for i := range surveys {
		sv := &surveys[i]
		answers := sv.Answers().Answers
		score := models.ComputeScore(answers)
		switch sv.Status {
		case models.SurveyCompleted:
			recap.Completed++
			total += models.SKMValue(answers)
			recap.CategoryDistribution[score.Category]++
		case models.SurveyPending:
			recap.Pending++
		}
		recap.Surveys = append(recap.Surveys, RecapRow{
			ID:              sv.ID,
			PermohonanID:    sv.PermohonanID,
			NomorRegistrasi: sv.NomorRegistrasi,
			Status:          sv.Status,
			SubmittedAt:     sv.SubmittedAt,
			SKMValue:        score.SKMValue,
		})
	}
	if recap.Completed > 0 {
		recap.AverageSKMValue = models.Round2(total / float64(recap.Completed))
	}
	return recap, nil
}

// GetByPermohonan lets the owning applicant or any privileged role read a survey.
func (s *Service) GetByPermohonan(ctx context.Context, p *auth.Principal, permohonanID int64) (*models.Survey, error) {
	sv, err := s.store.GetByPermohonan(ctx, permohonanID)
	if err != nil {
		return nil, s.storeError("get skm", err)
	}
	if !p.Privileged() && (sv.UserID == nil || *sv.UserID != p.UserID) {
		return nil, apperrors.NewAuthorizationError("SKM belongs to another applicant")
	}
	return sv, nil
}

// UnlockDownload requires a completed survey. Telling registration is best
// effort and never rolls the unlock back.
func (s *Service) UnlockDownload(ctx context.Context, permohonanID int64) (*models.Survey, error) {
	sv, err := s.store.UnlockDownload(ctx, permohonanID)
	if err != nil {
		return nil, s.storeError("unlock download", err)
	}
	s.log(ctx).Info("Download unlocked", map[string]interface{}{"permohonanId": permohonanID})

	_ = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "registration.update_download_status",
		Criticality: sideeffect.BestEffort,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			return s.peers.UpdateDownloadStatus(ctx, permohonanID, true)
		},
	})
	return sv, nil
}

// TriggerArchive forwards to the archive service and surfaces its failure.
func (s *Service) TriggerArchive(ctx context.Context, req ArchiveRequest) (*ArchiveResult, error) {
	var resp json.RawMessage
	err := s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "archive.trigger",
		Criticality: sideeffect.Critical,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			var err error
			resp, err = s.peers.TriggerArchive(ctx, archiveTriggerRequest{
				PermohonanID:    req.PermohonanID,
				NomorRegistrasi: req.NomorRegistrasi,
				UserID:          req.UserID,
				TriggeredFrom:   "survey_service",
			})
			return err
		},
	})
	if err != nil {
		return nil, err
	}
	return &ArchiveResult{PermohonanID: req.PermohonanID, ArchiveResponse: resp}, nil
}

func parseDate(raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return &t, nil
		}
	}
	return nil, apperrors.NewValidationError(fmt.Sprintf("invalid date %q", raw))
}
