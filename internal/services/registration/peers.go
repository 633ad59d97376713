// internal/services/registration/peers.go
package registration

import (
	"context"
	"encoding/json"
	"time"

	commonhttp "jelita/internal/common/http"
)

// Peers are the sibling services registration calls into.
type Peers interface {
	EnsureSurvey(ctx context.Context, req ensureSurveyRequest) error
	TriggerArchive(ctx context.Context, req archiveTriggerRequest) error
	TriggerWorkflow(ctx context.Context, req workflowTriggerRequest) (json.RawMessage, error)
}

type HTTPPeers struct {
	survey   *commonhttp.ServiceClient
	workflow *commonhttp.ServiceClient
	archive  *commonhttp.ServiceClient
}

func NewHTTPPeers(surveyURL, workflowURL, archiveURL string, timeout time.Duration) *HTTPPeers {
	return &HTTPPeers{
		survey:   commonhttp.NewServiceClient("survey", surveyURL, timeout),
		workflow: commonhttp.NewServiceClient("workflow", workflowURL, timeout),
		archive:  commonhttp.NewServiceClient("archive", archiveURL, timeout),
	}
}

func (p *HTTPPeers) EnsureSurvey(ctx context.Context, req ensureSurveyRequest) error {
	return p.survey.PostJSON(ctx, "/api/internal/skm/ensure", req, nil)
}

func (p *HTTPPeers) TriggerArchive(ctx context.Context, req archiveTriggerRequest) error {
	return p.archive.PostJSON(ctx, "/api/internal/arsipkan-dokumen", req, nil)
}

func (p *HTTPPeers) TriggerWorkflow(ctx context.Context, req workflowTriggerRequest) (json.RawMessage, error) {
	var resp struct {
		Data json.RawMessage `json:"data"`
	}
	if err := p.workflow.PostJSON(ctx, "/api/internal/receive-trigger", req, &resp); err != nil {
		return nil, err
	}
	return resp.Data, nil
}
