// internal/services/survey/peers.go
package survey

import (
	"context"
	"encoding/json"
	"time"

	commonhttp "jelita/internal/common/http"
	"jelita/internal/models"
)

type Peers interface {
	UpdateDownloadStatus(ctx context.Context, permohonanID int64, enabled bool) error
	TriggerArchive(ctx context.Context, req archiveTriggerRequest) (json.RawMessage, error)
}

// Notifier delivers survey invitations; aws.Notifier satisfies it.
type Notifier interface {
	Deliver(ctx context.Context, n models.Notification) (models.Notification, error)
}

type HTTPPeers struct {
	registration *commonhttp.ServiceClient
	archive      *commonhttp.ServiceClient
}

func NewHTTPPeers(registrationURL, archiveURL string, timeout time.Duration) *HTTPPeers {
	return &HTTPPeers{
		registration: commonhttp.NewServiceClient("registration", registrationURL, timeout),
		archive:      commonhttp.NewServiceClient("archive", archiveURL, timeout),
	}
}

func (p *HTTPPeers) UpdateDownloadStatus(ctx context.Context, permohonanID int64, enabled bool) error {
	body := map[string]interface{}{"permohonan_id": permohonanID, "download_enabled": enabled}
	return p.registration.PostJSON(ctx, "/api/internal/update-download-status", body, nil)
}

func (p *HTTPPeers) TriggerArchive(ctx context.Context, req archiveTriggerRequest) (json.RawMessage, error) {
	var out json.RawMessage
	if err := p.archive.PostJSON(ctx, "/api/internal/arsipkan-dokumen", req, &out); err != nil {
		return nil, err
	}
	return out, nil
}
