package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

// DefaultConfigPath is read when present; every field can also come from the environment.
const DefaultConfigPath = "config.yaml"

// Config holds all configuration for pg-discover.
// Configuration can come from YAML file (config.yaml) or environment variables.
// Environment variables always override YAML values for fields that support both.
// Secrets (passwords) must only come from environment variables.
type Config struct {
	// Server configuration
	BindAddr string `yaml:"bind_addr" env:"BIND_ADDR" env-default:"127.0.0.1"`
	Port     string `yaml:"port" env:"PORT" env-default:"8080"`
	Env      string `yaml:"env" env:"ENVIRONMENT" env-default:"local"`
	LogLevel string `yaml:"log_level" env:"LOG_LEVEL" env-default:"info"`
	Version  string `yaml:"-"` // Set at load time, not from config

	// ShutdownTimeoutSeconds bounds graceful shutdown of in-flight requests.
	ShutdownTimeoutSeconds int `yaml:"shutdown_timeout_seconds" env:"SHUTDOWN_TIMEOUT_SECONDS" env-default:"15"`

	Cache     CacheConfig     `yaml:"cache"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	MCP       MCPConfig       `yaml:"mcp"`
}

// CacheConfig controls the discovery result cache.
type CacheConfig struct {
	TTLSeconds int `yaml:"ttl_seconds" env:"CACHE_TTL_SECONDS" env-default:"360"`
	MaxEntries int `yaml:"max_entries" env:"CACHE_MAX_ENTRIES" env-default:"100"`
}

// TTL returns TTLSeconds as a duration.
func (c CacheConfig) TTL() time.Duration {
	return time.Duration(c.TTLSeconds) * time.Second
}

// DiscoveryConfig holds defaults applied to caller-supplied connection parameters.
type DiscoveryConfig struct {
	ConnectTimeoutSeconds int    `yaml:"connect_timeout_seconds" env:"DISCOVERY_CONNECT_TIMEOUT_SECONDS" env-default:"10"`
	SSLMode               string `yaml:"ssl_mode" env:"DISCOVERY_SSL_MODE" env-default:"prefer"`
	DefaultSampleLimit    int    `yaml:"default_sample_limit" env:"DISCOVERY_DEFAULT_SAMPLE_LIMIT" env-default:"10"`
	MaxSampleLimit        int    `yaml:"max_sample_limit" env:"DISCOVERY_MAX_SAMPLE_LIMIT" env-default:"1000"`
	// ResolveDockerHosts rewrites localhost to host.docker.internal when running in Docker.
	ResolveDockerHosts bool `yaml:"resolve_docker_hosts" env:"DISCOVERY_RESOLVE_DOCKER_HOSTS" env-default:"true"`
}

// MCPConfig configures the MCP tool endpoint. Tools run against a single
// pre-configured target database.
type MCPConfig struct {
	Enabled bool         `yaml:"enabled" env:"MCP_ENABLED" env-default:"false"`
	Target  TargetConfig `yaml:"target"`
}

// TargetConfig is the database the MCP tools discover.
type TargetConfig struct {
	Host     string `yaml:"host" env:"PGHOST" env-default:"localhost"`
	Port     int    `yaml:"port" env:"PGPORT" env-default:"5432"`
	User     string `yaml:"user" env:"PGUSER" env-default:"postgres"`
	Password string `yaml:"-" env:"PGPASSWORD"` // Secret - not in YAML
	Database string `yaml:"database" env:"PGDATABASE" env-default:"postgres"`
	SSLMode  string `yaml:"ssl_mode" env:"PGSSLMODE" env-default:"prefer"`
}

// Load reads configuration from config.yaml (if present) with environment variable overrides.
// The version parameter is injected at build time and set on the returned Config.
func Load(version string) (*Config, error) {
	return LoadFile(DefaultConfigPath, version)
}

// LoadFile is Load with an explicit path. A missing file falls back to
// environment variables and defaults.
func LoadFile(path, version string) (*Config, error) {
	cfg := &Config{
		Version: version,
	}

	if _, err := os.Stat(path); err == nil {
		if err := cleanenv.ReadConfig(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to read %s: %w", path, err)
		}
	} else if errors.Is(err, os.ErrNotExist) {
		if err := cleanenv.ReadEnv(cfg); err != nil {
			return nil, fmt.Errorf("failed to read environment: %w", err)
		}
	} else {
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Config) validate() error {
	if c.Cache.TTLSeconds <= 0 {
		return fmt.Errorf("cache.ttl_seconds must be positive, got %d", c.Cache.TTLSeconds)
	}
	if c.Cache.MaxEntries <= 0 {
		return fmt.Errorf("cache.max_entries must be positive, got %d", c.Cache.MaxEntries)
	}
	if c.Discovery.ConnectTimeoutSeconds < 0 {
		return fmt.Errorf("discovery.connect_timeout_seconds must not be negative")
	}
	if c.Discovery.DefaultSampleLimit <= 0 || c.Discovery.MaxSampleLimit <= 0 {
		return fmt.Errorf("discovery sample limits must be positive")
	}
	if c.Discovery.DefaultSampleLimit > c.Discovery.MaxSampleLimit {
		return fmt.Errorf("discovery.default_sample_limit (%d) exceeds max_sample_limit (%d)",
			c.Discovery.DefaultSampleLimit, c.Discovery.MaxSampleLimit)
	}
	return nil
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return c.BindAddr + ":" + c.Port
}
