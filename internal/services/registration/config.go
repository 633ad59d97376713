// internal/services/registration/config.go
package registration

import (
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "registration"

type Config struct {
	DefaultListLimit     int
	MaxListLimit         int
	RegistrationAttempts int
	ArchiveTimeout       time.Duration
	DownstreamTimeout    time.Duration
	SurveyURL            string
	WorkflowURL          string
	ArchiveURL           string
}

func LoadConfig(cfg *config.Config) *Config {
	return &Config{
		DefaultListLimit:     5,
		MaxListLimit:         25,
		RegistrationAttempts: 5,
		ArchiveTimeout:       5 * time.Second,
		DownstreamTimeout:    config.GetDuration(cfg.Services.Timeout),
		SurveyURL:            cfg.Services.SurveyURL,
		WorkflowURL:          cfg.Services.WorkflowURL,
		ArchiveURL:           cfg.Services.ArchiveURL,
	}
}

// clampPage applies the list defaults; offset never goes negative.
func (c *Config) clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = c.DefaultListLimit
	}
	if limit > c.MaxListLimit {
		limit = c.MaxListLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}
