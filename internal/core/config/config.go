package config

import (
	"time"

	"github.com/vietddude/keypool/internal/infra/api"
	redisclient "github.com/vietddude/keypool/internal/infra/redis"
	"github.com/vietddude/keypool/internal/infra/storage/postgres"
)

// AppConfig represents the top-level configuration.
type AppConfig struct {
	Server   ServerConfig       `yaml:"server"`
	Logging  LoggingConfig      `yaml:"logging"`
	Pool     PoolConfig         `yaml:"pool"`
	API      api.Config         `yaml:"api"`
	Redis    redisclient.Config `yaml:"redis"`
	Database postgres.Config    `yaml:"database"`
	Audit    AuditConfig        `yaml:"audit"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // json, text
}

// PoolConfig holds the credential pool policy.
type PoolConfig struct {
	Name               string        `yaml:"name"`
	Credentials        string        `yaml:"credentials"` // comma-separated
	RateLimitCooldown  time.Duration `yaml:"rate_limit_cooldown"`
	FailureCooldown    time.Duration `yaml:"failure_cooldown"`
	UnhealthyThreshold int           `yaml:"unhealthy_threshold"`
	MinSpacing         time.Duration `yaml:"min_spacing"`
	MaxWait            time.Duration `yaml:"max_wait"`
	MaxWaits           int           `yaml:"max_waits"` // 0 = unbounded
}

// AuditConfig holds attempt audit settings.
type AuditConfig struct {
	Buffer int `yaml:"buffer"`
}
