// internal/services/survey/config.go
package survey

import (
	"strings"
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "survey"

type Config struct {
	LinkBaseURL string
	// AutoUnlock opens the licence download as soon as the survey is submitted.
	AutoUnlock bool
	// AutoArchive asks the archive service to file the licence after submission.
	AutoArchive       bool
	RegistrationURL   string
	ArchiveURL        string
	DownstreamTimeout time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	base := strings.TrimRight(cfg.Survey.LinkBaseURL, "/")
	if base == "" {
		base = "http://localhost:3030"
	}
	return &Config{
		LinkBaseURL:       base,
		AutoUnlock:        cfg.Survey.AutoUnlock,
		AutoArchive:       cfg.Survey.AutoArchive,
		RegistrationURL:   cfg.Services.RegistrationURL,
		ArchiveURL:        cfg.Services.ArchiveURL,
		DownstreamTimeout: config.GetDuration(cfg.Services.Timeout),
	}
}
