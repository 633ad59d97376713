// internal/services/workflow/peers.go
package workflow

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	commonhttp "jelita/internal/common/http"
	"jelita/internal/models"
)

// ErrApplicationNotFound is returned by Registration.Lookup on a 404.
var ErrApplicationNotFound = errors.New("PERMOHONAN_NOT_FOUND")

// Registration is the slice of the registration service workflow depends on.
type Registration interface {
	Lookup(ctx context.Context, id int64) (models.ApplicationStatus, error)
	SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, note string) error
}

type HTTPRegistration struct {
	client *commonhttp.ServiceClient
}

func NewHTTPRegistration(baseURL string, timeout time.Duration) *HTTPRegistration {
	return &HTTPRegistration{client: commonhttp.NewServiceClient("registration", baseURL, timeout)}
}

func (r *HTTPRegistration) Lookup(ctx context.Context, id int64) (models.ApplicationStatus, error) {
	var resp struct {
		Data struct {
			Status models.ApplicationStatus `json:"status"`
		} `json:"data"`
	}
	err := r.client.GetJSON(ctx, fmt.Sprintf("/api/internal/permohonan/%d", id), &resp)
	var statusErr *commonhttp.StatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return "", ErrApplicationNotFound
	}
	if err != nil {
		return "", err
	}
	return resp.Data.Status, nil
}

func (r *HTTPRegistration) SetStatus(ctx context.Context, id int64, status models.ApplicationStatus, note string) error {
	body := map[string]string{"status": string(status), "catatan": note}
	return r.client.PostJSON(ctx, fmt.Sprintf("/api/internal/permohonan/%d/status", id), body, nil)
}
