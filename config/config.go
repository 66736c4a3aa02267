/*
Package config loads and validates application configuration.

PURPOSE:
  One place where the deployment decides the things the engine refuses
  to guess: which bucket each leave type charges, what a fresh
  employee's allocations are, where the database lives, how the server
  and logger behave.

SOURCES (increasing precedence):
  1. Built-in defaults
  2. YAML config file (default ./config.yaml)
  3. Environment variables (LEAVEDESK_ prefix, e.g. LEAVEDESK_SERVER_PORT)

FAIL-FAST:
  Load validates everything up front. A leave-type mapping naming an
  unknown bucket, or an allocation that does not parse as a
  non-negative decimal, aborts startup rather than surfacing as a
  mapping error on the first approval.
*/
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/crewpoint/leavedesk/leave"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Database DatabaseConfig `mapstructure:"database"`
	Logger   LoggerConfig   `mapstructure:"logger"`
	Leave    LeaveConfig    `mapstructure:"leave"`
}

// ServerConfig holds HTTP server configuration.
type ServerConfig struct {
	Host           string        `mapstructure:"host"`
	Port           int           `mapstructure:"port"`
	ReadTimeout    time.Duration `mapstructure:"read_timeout"`
	WriteTimeout   time.Duration `mapstructure:"write_timeout"`
	AllowedOrigins []string      `mapstructure:"allowed_origins"`
}

// DatabaseConfig holds database configuration.
type DatabaseConfig struct {
	Path string `mapstructure:"path"`
}

// LoggerConfig holds logger configuration.
type LoggerConfig struct {
	Level      string `mapstructure:"level"`       // debug, info, warn, error
	OutputPath string `mapstructure:"output_path"` // stdout, stderr, or file path
	Format     string `mapstructure:"format"`      // json or console
}

// LeaveConfig holds the domain tables: which bucket each leave-type
// name charges, and the allocations seeded at onboarding.
type LeaveConfig struct {
	// BucketMap maps leave-type names (case-insensitive) to bucket tags.
	BucketMap map[string]string `mapstructure:"bucket_map"`
	// Allocations maps bucket tags to the starting available balance,
	// as decimal strings.
	Allocations map[string]string `mapstructure:"allocations"`
}

// Load loads configuration from file and environment variables.
// An empty configPath uses ./config.yaml if present, defaults otherwise.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix("LEAVEDESK")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			// Defaults are a complete configuration; only a malformed
			// file is fatal.
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("failed to read config file: %w", err)
			}
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})

	v.SetDefault("database.path", "data/leavedesk.db")

	v.SetDefault("logger.level", "info")
	v.SetDefault("logger.output_path", "stdout")
	v.SetDefault("logger.format", "console")

	v.SetDefault("leave.bucket_map", map[string]string{
		"earned leave":   string(leave.BucketEarned),
		"casual leave":   string(leave.BucketEarned),
		"sick leave":     string(leave.BucketSick),
		"personal leave": string(leave.BucketPersonal),
		"vacation leave": string(leave.BucketVacation),
	})
	v.SetDefault("leave.allocations", map[string]string{
		string(leave.BucketEarned):   "15",
		string(leave.BucketSick):     "10",
		string(leave.BucketPersonal): "5",
		string(leave.BucketVacation): "10",
		string(leave.BucketWFH):      "52",
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("server port must be between 1 and 65535, got %d", c.Server.Port)
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database path is required")
	}

	if _, err := c.Buckets(); err != nil {
		return err
	}
	if _, err := c.BucketAllocations(); err != nil {
		return err
	}
	return nil
}

// Buckets builds the validated leave-type mapping table.
func (c *Config) Buckets() (leave.BucketMap, error) {
	entries := make(map[string]leave.Bucket, len(c.Leave.BucketMap))
	for name, tag := range c.Leave.BucketMap {
		entries[name] = leave.Bucket(strings.ToLower(strings.TrimSpace(tag)))
	}
	return leave.NewBucketMap(entries)
}

// BucketAllocations parses the onboarding allocations.
func (c *Config) BucketAllocations() (map[leave.Bucket]decimal.Decimal, error) {
	known := make(map[leave.Bucket]bool)
	for _, b := range leave.Buckets() {
		known[b] = true
	}

	out := make(map[leave.Bucket]decimal.Decimal, len(c.Leave.Allocations))
	for tag, raw := range c.Leave.Allocations {
		bucket := leave.Bucket(strings.ToLower(strings.TrimSpace(tag)))
		if !known[bucket] {
			return nil, fmt.Errorf("allocation for unknown bucket %q", tag)
		}
		amount, err := decimal.NewFromString(raw)
		if err != nil {
			return nil, fmt.Errorf("allocation for bucket %q is not a decimal: %w", tag, err)
		}
		if amount.IsNegative() {
			return nil, fmt.Errorf("allocation for bucket %q is negative", tag)
		}
		out[bucket] = amount
	}
	return out, nil
}

// Addr returns the server listen address.
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
