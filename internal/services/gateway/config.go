// internal/services/gateway/config.go
package gateway

import (
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "gateway"

type Config struct {
	OSSBaseURL        string
	OSSTimeout        time.Duration
	MaxRetries        int
	RetryDelay        time.Duration
	RegistrationURL   string
	DownstreamTimeout time.Duration
	RequestsPerSecond int
	Burst             int
	// LimiterSize bounds how many distinct clients are tracked; idle ones expire after LimiterIdle.
	LimiterSize   int
	LimiterIdle   time.Duration
	AuditCapacity int
	Directory     []DirectoryEntry
}

func LoadConfig(cfg *config.Config) *Config {
	c := &Config{
		OSSBaseURL:        cfg.OSS.BaseURL,
		OSSTimeout:        config.GetDuration(cfg.OSS.Timeout),
		MaxRetries:        cfg.OSS.MaxRetries,
		RetryDelay:        200 * time.Millisecond,
		RegistrationURL:   cfg.Services.RegistrationURL,
		DownstreamTimeout: config.GetDuration(cfg.Services.Timeout),
		RequestsPerSecond: cfg.Gateway.RateLimit.RequestsPerSecond,
		Burst:             cfg.Gateway.RateLimit.Burst,
		LimiterSize:       10000,
		LimiterIdle:       10 * time.Minute,
		AuditCapacity:     cfg.Gateway.AuditCapacity,
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 20
	}
	if c.Burst <= 0 {
		c.Burst = c.RequestsPerSecond * 2
	}
	if c.AuditCapacity <= 0 {
		c.AuditCapacity = 1000
	}

	version := cfg.App.Version
	c.Directory = []DirectoryEntry{
		{Name: "api-gateway", Version: version, URL: "http://" + cfg.Server.Addr(ServiceName)},
		{Name: "users-service", Version: version, URL: cfg.Services.UsersURL},
		{Name: "registration-service", Version: version, URL: cfg.Services.RegistrationURL},
		{Name: "workflow-service", Version: version, URL: cfg.Services.WorkflowURL},
		{Name: "survey-service", Version: version, URL: cfg.Services.SurveyURL},
		{Name: "archive-service", Version: version, URL: cfg.Services.ArchiveURL},
		{Name: "oss-rba", Version: "v1", URL: cfg.OSS.BaseURL},
	}
	for i := range c.Directory {
		c.Directory[i].Owner = "JELITA"
		c.Directory[i].SLA = "99.0%"
	}
	return c
}
