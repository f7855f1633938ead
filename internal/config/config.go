// Package config handles loading and validating the application configuration
// from YAML files with environment variable substitution.
package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/opay/pkg/types"
)

// Settings backends.
const (
	BackendFile     = "file"
	BackendPostgres = "postgres"
	BackendRedis    = "redis"
)

// Config is the top-level application configuration.
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	OPay     OPayConfig     `yaml:"opay"`
	Settings SettingsConfig `yaml:"settings"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Logging  LoggingConfig  `yaml:"logging"`
}

// ServerConfig defines the Echo HTTP server settings.
type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// OPayConfig defines the API client settings. The credential fields seed an
// empty settings store on serve; once the store holds valid credentials it wins.
type OPayConfig struct {
	Token      string        `yaml:"token"`
	MerchantID string        `yaml:"merchant_id"`
	APIURI     string        `yaml:"api_uri"`
	Timeout    time.Duration `yaml:"timeout"`
}

// Credentials returns the configured credentials, which may be incomplete.
func (o *OPayConfig) Credentials() *domain.Credentials {
	return &domain.Credentials{
		Token:      o.Token,
		MerchantID: o.MerchantID,
		BaseURI:    o.APIURI,
	}
}

// SettingsConfig selects where the OPay credentials are persisted.
type SettingsConfig struct {
	Backend string `yaml:"backend"` // file, postgres, redis
	Path    string `yaml:"path"`    // file backend only
}

// DatabaseConfig defines PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
	PoolSize int32  `yaml:"pool_size"`
}

// DSN returns a PostgreSQL connection string.
func (d *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d dbname=%s user=%s password=%s sslmode=%s",
		d.Host, d.Port, d.Name, d.User, d.Password, d.SSLMode,
	)
}

// RedisConfig defines Redis connection settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

// LoggingConfig defines logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json, pretty
}

// Load reads and parses a YAML config file, performing environment variable
// substitution and validation.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path) //nolint:gosec // config path from trusted CLI flag
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	return Parse(data)
}

// Parse is Load for config already in memory.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(cfg)

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns a configuration with every default applied, for use
// when no config file exists.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	applyServerDefaults(&cfg.Server)
	applyOPayDefaults(&cfg.OPay)
	applySettingsDefaults(&cfg.Settings)
	applyDatabaseDefaults(&cfg.Database)
	applyRedisDefaults(&cfg.Redis)
	applyLoggingDefaults(&cfg.Logging)
}

func applyServerDefaults(s *ServerConfig) {
	if s.Host == "" {
		s.Host = "0.0.0.0"
	}
	if s.Port == 0 {
		s.Port = 8080
	}
	if s.ReadTimeout == 0 {
		s.ReadTimeout = 30 * time.Second
	}
	if s.WriteTimeout == 0 {
		s.WriteTimeout = 30 * time.Second
	}
}

func applyOPayDefaults(o *OPayConfig) {
	if o.Timeout == 0 {
		o.Timeout = 30 * time.Second
	}
}

func applySettingsDefaults(s *SettingsConfig) {
	if s.Backend == "" {
		s.Backend = BackendFile
	}
	if s.Backend == BackendFile && s.Path == "" {
		s.Path = "opay.settings.yaml"
	}
}

func applyDatabaseDefaults(d *DatabaseConfig) {
	if d.Port == 0 {
		d.Port = 5432
	}
	if d.SSLMode == "" {
		d.SSLMode = "disable"
	}
	if d.PoolSize == 0 {
		d.PoolSize = 4
	}
}

func applyRedisDefaults(r *RedisConfig) {
	if r.Addr == "" {
		r.Addr = "localhost:6379"
	}
}

func applyLoggingDefaults(l *LoggingConfig) {
	if l.Level == "" {
		l.Level = "info"
	}
	if l.Format == "" {
		l.Format = "text"
	}
}

func validate(cfg *Config) error {
	var errs []error

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port must be between 1 and 65535 (got %d)", cfg.Server.Port))
	}
	if cfg.OPay.Timeout < 0 {
		errs = append(errs, errors.New("opay.timeout must not be negative"))
	}

	switch cfg.Settings.Backend {
	case BackendFile:
		// Path defaulted above.
	case BackendPostgres:
		if cfg.Database.Host == "" {
			errs = append(errs, errors.New("database.host is required when settings.backend is postgres"))
		}
		if cfg.Database.Name == "" {
			errs = append(errs, errors.New("database.name is required when settings.backend is postgres"))
		}
		if cfg.Database.User == "" {
			errs = append(errs, errors.New("database.user is required when settings.backend is postgres"))
		}
	case BackendRedis:
		// Addr defaulted above.
	default:
		errs = append(
			errs,
			fmt.Errorf(
				"settings.backend must be one of: file, postgres, redis (got %q)",
				cfg.Settings.Backend,
			),
		)
	}

	switch cfg.Logging.Format {
	case "text", "json", "pretty":
	default:
		errs = append(errs, fmt.Errorf("logging.format must be one of: text, json, pretty (got %q)", cfg.Logging.Format))
	}

	return errors.Join(errs...)
}
