// internal/services/gateway/service.go
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"jelita/internal/common/auth"
	apperrors "jelita/internal/common/errors"
	commonhttp "jelita/internal/common/http"
	"jelita/internal/common/logger"
	"jelita/internal/common/sideeffect"
	"jelita/internal/common/validation"

	"github.com/google/uuid"
)

type Service struct {
	cfg          *Config
	oss          OSS
	registration Registration
	effects      *sideeffect.Dispatcher
	audit        *AuditLog
	logger       logger.Logger
}

func NewService(cfg *Config, oss OSS, registration Registration, effects *sideeffect.Dispatcher, audit *AuditLog, log logger.Logger) *Service {
	return &Service{
		cfg:          cfg,
		oss:          oss,
		registration: registration,
		effects:      effects,
		audit:        audit,
		logger:       log.WithFields(map[string]interface{}{"service": ServiceName}),
	}
}

func (s *Service) log(ctx context.Context) logger.Logger {
	return logger.FromContext(ctx, s.logger)
}

// upstreamMessage pulls the message out of a JSON error body. OSS-RBA nests
// it under "error"; sibling services use the envelope.
func upstreamMessage(body string) string {
	var oss struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal([]byte(body), &oss) == nil && oss.Error.Message != "" {
		return oss.Error.Message
	}
	var env apperrors.ErrorResponse
	if json.Unmarshal([]byte(body), &env) == nil {
		if env.Error != "" {
			return env.Error
		}
		if env.Message != "" {
			return env.Message
		}
	}
	return body
}

// peerError keeps a sibling's 4xx verdict and turns everything else into a DownstreamError.
func peerError(service, resource string, err error) error {
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) {
		switch {
		case statusErr.StatusCode == http.StatusNotFound:
			return apperrors.NewResourceNotFoundError(resource, upstreamMessage(statusErr.Body))
		case statusErr.StatusCode >= 400 && statusErr.StatusCode < 500:
			return apperrors.NewValidationError(upstreamMessage(statusErr.Body))
		}
	}
	return apperrors.NewDownstreamError(service, err)
}

func (s *Service) Directory() Directory {
	return Directory{Total: len(s.cfg.Directory), Services: s.cfg.Directory}
}

func (s *Service) AuditLogs(correlationID string, limit int) AuditPage {
	if limit > s.cfg.AuditCapacity {
		limit = s.cfg.AuditCapacity
	}
	return s.audit.Query(correlationID, limit)
}

func parseSubmit(doc map[string]interface{}) (SubmitRequest, error) {
	res, err := validation.ValidateDocument(doc, submitSchema)
	if err != nil {
		return SubmitRequest{}, apperrors.NewInternalError(err)
	}
	if !res.Valid {
		return SubmitRequest{}, apperrors.NewValidationError(res.Summary())
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		return SubmitRequest{}, apperrors.NewInternalError(err)
	}
	var req SubmitRequest
	if err := json.Unmarshal(raw, &req); err != nil {
		return SubmitRequest{}, apperrors.NewValidationError(err.Error())
	}
	return req, nil
}

// Submit forwards an application to OSS-RBA. The idempotency key is derived
// from the application id so retried or repeated submits cannot register twice.
// Recording the returned reference on the registration service is critical:
// without it later callbacks cannot be resolved.
func (s *Service) Submit(ctx context.Context, p *auth.Principal, doc map[string]interface{}, correlationID string) (*SubmitResult, error) {
	req, err := parseSubmit(doc)
	if err != nil {
		return nil, err
	}
	if req.SubmittedAt == "" {
		req.SubmittedAt = time.Now().UTC().Format(time.RFC3339)
	}
	if correlationID == "" {
		correlationID = uuid.NewString()
	}
	key := fmt.Sprintf("permohonan-%d", req.PermohonanID)

	log := s.log(ctx).WithFields(map[string]interface{}{
		"permohonanId":   req.PermohonanID,
		"correlationId":  correlationID,
		"idempotencyKey": key,
	})

	var submission *OSSSubmission
	attempts, err := retryWithBackoff(ctx, func(ctx context.Context) error {
		out, err := s.oss.Submit(ctx, key, correlationID, req.OSSApplication)
		if err != nil {
			return err
		}
		submission = out
		return nil
	}, s.cfg.MaxRetries, s.cfg.RetryDelay, log, "oss submit")
	if err != nil {
		log.Error("OSS submission failed", map[string]interface{}{"attempts": attempts, "error": err.Error()})
		return nil, peerError("oss-rba", "OSS application", err)
	}

	err = s.effects.Dispatch(ctx, sideeffect.Effect{
		Name:        "registration.oss_reference",
		Criticality: sideeffect.Critical,
		Timeout:     s.cfg.DownstreamTimeout,
		Run: func(ctx context.Context) error {
			return s.registration.RecordOSSReference(ctx, req.PermohonanID, submission.OSSReferenceID)
		},
	})
	if err != nil {
		return nil, err
	}

	log.Info("Application submitted to OSS", map[string]interface{}{
		"ossReferenceId": submission.OSSReferenceID,
		"attempts":       attempts,
		"submittedBy":    p.UserID,
	})
	return &SubmitResult{
		PermohonanID:   req.PermohonanID,
		OSSReferenceID: submission.OSSReferenceID,
		Status:         submission.Status,
		CreatedAt:      submission.CreatedAt,
		IdempotencyKey: key,
		CorrelationID:  correlationID,
		Attempts:       attempts,
		SubmittedAt:    time.Now().UTC(),
	}, nil
}

func (s *Service) Status(ctx context.Context, trackingID string) (*OSSStatus, error) {
	trackingID = strings.TrimSpace(trackingID)
	if trackingID == "" {
		return nil, apperrors.NewValidationError("trackingId is required")
	}
	st, err := s.oss.Status(ctx, trackingID)
	if err != nil {
		return nil, peerError("oss-rba", "OSS application", err)
	}
	return st, nil
}

func (s *Service) Health(ctx context.Context) (*OSSHealth, error) {
	upstream, err := s.oss.Health(ctx)
	if err != nil {
		s.log(ctx).Warn("OSS-RBA unreachable", map[string]interface{}{"error": err.Error()})
		return nil, apperrors.NewDownstreamError("oss-rba", err)
	}
	return &OSSHealth{
		BaseURL:   s.cfg.OSSBaseURL,
		Reachable: true,
		Upstream:  upstream,
		CheckedAt: time.Now().UTC(),
	}, nil
}

// RelayCallback hands an OSS status callback to the registration service and
// returns its answer unchanged.
func (s *Service) RelayCallback(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	if _, ok := payload["status"]; !ok {
		return nil, apperrors.NewValidationError("status is required")
	}
	_, hasRef := payload["reference_id"]
	_, hasID := payload["permohonan_id"]
	if !hasRef && !hasID {
		return nil, apperrors.NewValidationError("reference_id or permohonan_id is required")
	}

	out, err := s.registration.RelayCallback(ctx, payload)
	if err != nil {
		s.log(ctx).Warn("OSS callback relay failed", map[string]interface{}{
			"referenceId": payload["reference_id"],
			"error":       err.Error(),
		})
		return nil, peerError("registration", "Permohonan", err)
	}
	s.log(ctx).Info("OSS callback relayed", map[string]interface{}{
		"referenceId": payload["reference_id"],
		"status":      payload["status"],
	})
	return out, nil
}
