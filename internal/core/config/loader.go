package config

import (
	"fmt"
	"os"
	"time"

	"github.com/vietddude/keypool/internal/pool"
	"gopkg.in/yaml.v2"
)

// Load reads configuration from a YAML file.
func Load(path string) (*AppConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var cfg AppConfig
	// Expand environment variables in the YAML content
	expandedData := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expandedData), &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

func applyDefaults(cfg *AppConfig) {
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}

	p := &cfg.Pool
	if p.Name == "" {
		p.Name = "default"
	}
	if p.RateLimitCooldown == 0 {
		p.RateLimitCooldown = pool.DefaultRateLimitCooldown
	}
	if p.FailureCooldown == 0 {
		p.FailureCooldown = pool.DefaultFailureCooldown
	}
	if p.UnhealthyThreshold == 0 {
		p.UnhealthyThreshold = pool.DefaultUnhealthyThreshold
	}
	if p.MinSpacing == 0 {
		p.MinSpacing = pool.DefaultMinSpacing
	}
	if p.MaxWait == 0 {
		p.MaxWait = pool.DefaultMaxWait
	}

	if cfg.API.ProbePath == "" {
		cfg.API.ProbePath = "/"
	}
	if cfg.API.Timeout == 0 {
		cfg.API.Timeout = 30 * time.Second
	}

	if cfg.Redis.KeyPrefix == "" {
		cfg.Redis.KeyPrefix = "keypool"
	}
	if cfg.Redis.SnapshotInterval == 0 {
		cfg.Redis.SnapshotInterval = 15 * time.Second
	}

	if cfg.Audit.Buffer == 0 {
		cfg.Audit.Buffer = 256
	}
}

// PoolSettings converts the pool section to dispatcher settings.
func (c PoolConfig) PoolSettings() pool.Settings {
	return pool.Settings{
		Name:               c.Name,
		RateLimitCooldown:  c.RateLimitCooldown,
		FailureCooldown:    c.FailureCooldown,
		UnhealthyThreshold: c.UnhealthyThreshold,
		MinSpacing:         c.MinSpacing,
		MaxWait:            c.MaxWait,
		MaxWaits:           c.MaxWaits,
	}
}
