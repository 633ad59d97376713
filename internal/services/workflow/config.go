// internal/services/workflow/config.go
package workflow

import (
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "workflow"

type Config struct {
	// StrictDisposition only routes applications that are currently submitted.
	StrictDisposition bool
	// ApproveOnDraft marks the application approved when leadership signs the draft.
	ApproveOnDraft    bool
	DefaultOPDID      int64
	ListLimit         int
	RegistrationURL   string
	DownstreamTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		StrictDisposition: cfg.Workflow.StrictDisposition,
		ApproveOnDraft:    cfg.Workflow.ApproveOnDraft,
		DefaultOPDID:      1,
		ListLimit:         20,
		RegistrationURL:   cfg.Services.RegistrationURL,
		DownstreamTimeout: config.GetDuration(cfg.Services.Timeout),
	}
}
