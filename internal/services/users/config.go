// internal/services/users/config.go
package users

import (
	"time"

	"jelita/internal/common/config"
)

const ServiceName = "users"

type Config struct {
	TokenTTL   time.Duration
	BcryptCost int
}

func LoadConfig(cfg *config.Config) *Config {
	ttl := config.GetDuration(cfg.Auth.JWT.TTL)
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Config{
		TokenTTL:   ttl,
		BcryptCost: cfg.Auth.BcryptCost,
	}
}
