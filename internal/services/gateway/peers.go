// internal/services/gateway/peers.go
package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	commonhttp "jelita/internal/common/http"
)

const (
	IdempotencyKeyHeader = "Idempotency-Key"
	CorrelationIDHeader  = "X-Correlation-ID"
)

// OSS is the external risk-based licensing platform.
type OSS interface {
	Submit(ctx context.Context, idempotencyKey, correlationID string, app OSSApplication) (*OSSSubmission, error)
	Status(ctx context.Context, referenceID string) (*OSSStatus, error)
	Health(ctx context.Context) (json.RawMessage, error)
}

// Registration is the registration service as seen from the gateway.
type Registration interface {
	RecordOSSReference(ctx context.Context, permohonanID int64, referenceID string) error
	RelayCallback(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error)
}

type HTTPOSS struct {
	client *commonhttp.ServiceClient
}

func NewHTTPOSS(baseURL string, timeout time.Duration) *HTTPOSS {
	return &HTTPOSS{client: commonhttp.NewServiceClient("oss-rba", baseURL, timeout)}
}

func (o *HTTPOSS) Submit(ctx context.Context, idempotencyKey, correlationID string, app OSSApplication) (*OSSSubmission, error) {
	var out OSSSubmission
	headers := map[string]string{
		IdempotencyKeyHeader: idempotencyKey,
		CorrelationIDHeader:  correlationID,
	}
	if err := o.client.DoJSON(ctx, http.MethodPost, "/oss/api/v1/applications", app, &out, headers); err != nil {
		return nil, err
	}
	if out.OSSReferenceID == "" {
		return nil, fmt.Errorf("oss-rba accepted the application without a reference id")
	}
	return &out, nil
}

func (o *HTTPOSS) Status(ctx context.Context, referenceID string) (*OSSStatus, error) {
	var out OSSStatus
	if err := o.client.GetJSON(ctx, "/oss/api/v1/applications/"+url.PathEscape(referenceID), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (o *HTTPOSS) Health(ctx context.Context) (json.RawMessage, error) {
	var out json.RawMessage
	if err := o.client.GetJSON(ctx, "/health", &out); err != nil {
		return nil, err
	}
	return out, nil
}

type HTTPRegistration struct {
	client *commonhttp.ServiceClient
}

func NewHTTPRegistration(baseURL string, timeout time.Duration) *HTTPRegistration {
	return &HTTPRegistration{client: commonhttp.NewServiceClient("registration", baseURL, timeout)}
}

func (p *HTTPRegistration) RecordOSSReference(ctx context.Context, permohonanID int64, referenceID string) error {
	path := fmt.Sprintf("/api/internal/permohonan/%d/oss-reference", permohonanID)
	return p.client.PostJSON(ctx, path, ossReferenceRequest{OSSReferenceID: referenceID}, nil)
}

func (p *HTTPRegistration) RelayCallback(ctx context.Context, payload map[string]interface{}) (json.RawMessage, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := p.client.PostJSON(ctx, "/api/webhooks/oss/status-update", payload, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
