// internal/services/archive/config.go
package archive

import (
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "archive"

type Config struct {
	IndexName string
	// SearchEnabled is false when no Elasticsearch cluster is configured.
	SearchEnabled     bool
	DefaultSearchSize int
	MaxSearchSize     int
	IndexTimeout      time.Duration
}

func LoadConfig(cfg *config.Config) *Config {
	index := cfg.Database.Elasticsearch.ArchiveIdx
	if index == "" {
		index = "jelita-arsip"
	}
	timeout := config.GetDuration(cfg.Services.Timeout)
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Config{
		IndexName:         index,
		SearchEnabled:     cfg.Database.Elasticsearch.Enabled,
		DefaultSearchSize: 20,
		MaxSearchSize:     100,
		IndexTimeout:      timeout,
	}
}

func (c *Config) clampSize(size int) int {
	if size <= 0 {
		return c.DefaultSearchSize
	}
	if size > c.MaxSearchSize {
		return c.MaxSearchSize
	}
	return size
}
