// internal/common/config/config.go
package config

import "fmt"

type Config struct {
	App           AppConfig           `mapstructure:"app"`
	Server        ServerConfig        `mapstructure:"server"`
	Database      DatabaseConfig      `mapstructure:"database"`
	Auth          AuthConfig          `mapstructure:"auth"`
	Services      ServicesConfig      `mapstructure:"services"`
	Cache         CacheConfig         `mapstructure:"cache"`
	Survey        SurveyConfig        `mapstructure:"survey"`
	Workflow      WorkflowConfig      `mapstructure:"workflow"`
	Notifications NotificationConfig  `mapstructure:"notifications"`
	OSS           OSSConfig           `mapstructure:"oss"`
	Gateway       GatewayConfig       `mapstructure:"gateway"`
	Logging       LoggingConfig       `mapstructure:"logging"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Version     string `mapstructure:"version"`
	Environment string `mapstructure:"environment"`
}

// IsProduction reports whether internal error detail must be withheld from responses.
func (a AppConfig) IsProduction() bool {
	return a.Environment == "production"
}

type ServerConfig struct {
	Host         string         `mapstructure:"host"`
	ReadTimeout  int            `mapstructure:"read_timeout"`  // milliseconds
	WriteTimeout int            `mapstructure:"write_timeout"` // milliseconds
	Ports        map[string]int `mapstructure:"ports"`
}

func (s ServerConfig) Addr(service string) string {
	return fmt.Sprintf("%s:%d", s.Host, s.Ports[service])
}

type DatabaseConfig struct {
	Postgres      PostgresConfig      `mapstructure:"postgres"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
	Redis         RedisConfig         `mapstructure:"redis"`
}

type PostgresConfig struct {
	Host           string `mapstructure:"host"`
	Port           int    `mapstructure:"port"`
	Database       string `mapstructure:"database"`
	User           string `mapstructure:"user"`
	Password       string `mapstructure:"password"`
	MaxConnections int    `mapstructure:"max_connections"`
	MaxIdle        int    `mapstructure:"max_idle"`
	SSLMode        string `mapstructure:"sslmode"`
}

func (p PostgresConfig) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.Database, p.SSLMode,
	)
}

// GetURL is the form golang-migrate expects.
func (p PostgresConfig) GetURL() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		p.User, p.Password, p.Host, p.Port, p.Database, p.SSLMode,
	)
}

type ElasticsearchConfig struct {
	Enabled    bool     `mapstructure:"enabled"`
	Addresses  []string `mapstructure:"addresses"`
	Username   string   `mapstructure:"username"`
	Password   string   `mapstructure:"password"`
	SSLEnabled bool     `mapstructure:"ssl_enabled"`
	URL        string   `mapstructure:"url"`
	ArchiveIdx string   `mapstructure:"archive_index"`
}

func (e ElasticsearchConfig) GetURL() string {
	if e.URL != "" {
		return e.URL
	}
	if len(e.Addresses) > 0 {
		return e.Addresses[0]
	}
	return ""
}

type RedisConfig struct {
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWT struct {
		Secret string `mapstructure:"secret"`
		Issuer string `mapstructure:"issuer"`
		TTL    int    `mapstructure:"ttl"` // milliseconds
	} `mapstructure:"jwt"`
	BcryptCost int `mapstructure:"bcrypt_cost"`
}

type ServicesConfig struct {
	RegistrationURL string `mapstructure:"registration_url"`
	WorkflowURL     string `mapstructure:"workflow_url"`
	SurveyURL       string `mapstructure:"survey_url"`
	ArchiveURL      string `mapstructure:"archive_url"`
	UsersURL        string `mapstructure:"users_url"`
	Timeout         int    `mapstructure:"timeout"` // milliseconds
}

type CacheConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	Backend string `mapstructure:"backend"` // memory or redis
	TTL     int    `mapstructure:"ttl"`     // milliseconds
	Size    int    `mapstructure:"size"`
}

type SurveyConfig struct {
	LinkBaseURL string `mapstructure:"link_base_url"`
	AutoUnlock  bool   `mapstructure:"auto_unlock"`
	AutoArchive bool   `mapstructure:"auto_archive"`
}

type WorkflowConfig struct {
	// StrictDisposition rejects dispositions for applications that are not submitted.
	StrictDisposition bool `mapstructure:"strict_disposition"`
	ApproveOnDraft    bool `mapstructure:"approve_on_draft"`
}

type NotificationConfig struct {
	AWS struct {
		Region string `mapstructure:"region"`
		SES    struct {
			Enabled   bool   `mapstructure:"enabled"`
			FromEmail string `mapstructure:"from_email"`
		} `mapstructure:"ses"`
		SNS struct {
			Enabled  bool   `mapstructure:"enabled"`
			TopicARN string `mapstructure:"topic_arn"`
		} `mapstructure:"sns"`
	} `mapstructure:"aws"`
}

type OSSConfig struct {
	BaseURL    string `mapstructure:"base_url"`
	Timeout    int    `mapstructure:"timeout"` // milliseconds
	MaxRetries int    `mapstructure:"max_retries"`
}

type GatewayConfig struct {
	RateLimit struct {
		RequestsPerSecond int `mapstructure:"requests_per_second"`
		Burst             int `mapstructure:"burst"`
	} `mapstructure:"rate_limit"`
	AuditCapacity int `mapstructure:"audit_capacity"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Output string `mapstructure:"output"`
}

type ObservabilityConfig struct {
	JaegerEndpoint string  `mapstructure:"jaeger_endpoint"`
	SampleRatio    float64 `mapstructure:"sample_ratio"`
}
