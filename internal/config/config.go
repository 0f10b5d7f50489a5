// Package config loads and validates the warehub configuration using Viper.
//
// Configuration is layered: built-in defaults < YAML config file < environment
// variables. Environment variables use the WAREHUB_ prefix (e.g.,
// WAREHUB_INGEST_MAX_FILE_SIZE overrides ingest.max_file_size in the YAML), so a
// CI job can tune the tool without shipping a config file.
//
// The published site itself is described by a separate config.json in the
// repository root; see LoadSite.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Size units used by the ingest limits.
const (
	OneMB = 1024 * 1024
	OneGB = 1024 * 1024 * 1024
)

// Config holds all application configuration
type Config struct {
	Paths     PathsConfig     `mapstructure:"paths"`
	Ingest    IngestConfig    `mapstructure:"ingest"`
	Mirror    MirrorConfig    `mapstructure:"mirror"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// PathsConfig locates the repository the tool works in. Relative paths are
// resolved against Root.
type PathsConfig struct {
	Root       string `mapstructure:"root"`
	Database   string `mapstructure:"database"`
	SiteConfig string `mapstructure:"site_config"`
}

// Resolve joins p onto the repository root unless it is already absolute
func (c *PathsConfig) Resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.Root, p)
}

// DatabasePath returns the location of the record store document
func (c *PathsConfig) DatabasePath() string {
	return c.Resolve(c.Database)
}

// SiteConfigPath returns the location of the site config.json
func (c *PathsConfig) SiteConfigPath() string {
	return c.Resolve(c.SiteConfig)
}

// IngestConfig holds the limits and checks applied to every artifact
type IngestConfig struct {
	// MaxFileSize is the per-file ceiling in bytes
	MaxFileSize int64 `mapstructure:"max_file_size"`
	// MaxProjectSize is the ceiling on the sum of all files of one project
	MaxProjectSize int64 `mapstructure:"max_project_size"`
	// MaxSignatureSize bounds detached .asc signatures
	MaxSignatureSize int64 `mapstructure:"max_signature_size"`
	// VerifySignatures checks every attached signature against KeyringFile
	VerifySignatures bool   `mapstructure:"verify_signatures"`
	KeyringFile      string `mapstructure:"keyring_file"`
}

// MirrorConfig holds the GitHub releases client settings. Username and
// Password may be ##NAME## secret references.
type MirrorConfig struct {
	Domain          string        `mapstructure:"domain"`
	Username        string        `mapstructure:"username"`
	Password        string        `mapstructure:"password"`
	PerPage         int           `mapstructure:"per_page"`
	Timeout         time.Duration `mapstructure:"timeout"`
	DownloadTimeout time.Duration `mapstructure:"download_timeout"`
}

// StorageConfig holds artifact storage configuration
type StorageConfig struct {
	DefaultBackend string             `mapstructure:"default_backend"`
	Local          LocalStorageConfig `mapstructure:"local"`
}

// LocalStorageConfig holds local filesystem storage configuration
type LocalStorageConfig struct {
	// BasePath is where artifacts are copied; relative to paths.root
	BasePath string `mapstructure:"base_path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// TelemetryConfig holds metrics configuration
type TelemetryConfig struct {
	Metrics MetricsConfig `mapstructure:"metrics"`
}

// MetricsConfig controls the Prometheus registry export. Runs are short lived,
// so metrics are written to a node-exporter textfile instead of being served.
type MetricsConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Textfile string `mapstructure:"textfile"`
}

// bindEnvVars explicitly binds environment variables to config keys.
// This is necessary because AutomaticEnv() doesn't work well with nested structs during Unmarshal.
func bindEnvVars(v *viper.Viper) error {
	keys := []string{
		"paths.root",
		"paths.database",
		"paths.site_config",

		"ingest.max_file_size",
		"ingest.max_project_size",
		"ingest.max_signature_size",
		"ingest.verify_signatures",
		"ingest.keyring_file",

		"mirror.domain",
		"mirror.username",
		"mirror.password",
		"mirror.per_page",
		"mirror.timeout",
		"mirror.download_timeout",

		"storage.default_backend",
		"storage.local.base_path",

		"logging.level",
		"logging.format",

		"telemetry.metrics.enabled",
		"telemetry.metrics.textfile",
	}
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("failed to bind env var %q: %w", key, err)
		}
	}
	return nil
}

// Load loads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("warehub")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
		v.AddConfigPath("/etc/warehub")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found; use defaults and environment variables
	}

	v.SetEnvPrefix("WAREHUB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := bindEnvVars(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	cfg.Ingest.KeyringFile = expandEnv(cfg.Ingest.KeyringFile)
	cfg.Telemetry.Metrics.Textfile = expandEnv(cfg.Telemetry.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values
func setDefaults(v *viper.Viper) {
	v.SetDefault("paths.root", ".")
	v.SetDefault("paths.database", "data.json")
	v.SetDefault("paths.site_config", "config.json")

	v.SetDefault("ingest.max_file_size", 100*OneMB)
	v.SetDefault("ingest.max_project_size", 10*OneGB)
	v.SetDefault("ingest.max_signature_size", 8*1024)
	v.SetDefault("ingest.verify_signatures", false)
	v.SetDefault("ingest.keyring_file", "")

	v.SetDefault("mirror.domain", "https://api.github.com")
	v.SetDefault("mirror.username", "##USERNAME##")
	v.SetDefault("mirror.password", "##PASSWORD##")
	v.SetDefault("mirror.per_page", 100)
	v.SetDefault("mirror.timeout", "60s")
	v.SetDefault("mirror.download_timeout", "10m")

	v.SetDefault("storage.default_backend", "local")
	v.SetDefault("storage.local.base_path", "files")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")

	v.SetDefault("telemetry.metrics.enabled", true)
	v.SetDefault("telemetry.metrics.textfile", "")
}

// expandEnv expands environment variables in the format ${VAR_NAME}
func expandEnv(s string) string {
	return os.ExpandEnv(s)
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Paths.Root == "" {
		return fmt.Errorf("paths.root is required")
	}
	if c.Paths.Database == "" {
		return fmt.Errorf("paths.database is required")
	}
	if c.Paths.SiteConfig == "" {
		return fmt.Errorf("paths.site_config is required")
	}

	if c.Ingest.MaxFileSize <= 0 {
		return fmt.Errorf("invalid ingest.max_file_size: %d", c.Ingest.MaxFileSize)
	}
	if c.Ingest.MaxProjectSize < c.Ingest.MaxFileSize {
		return fmt.Errorf("ingest.max_project_size (%d) must not be smaller than ingest.max_file_size (%d)",
			c.Ingest.MaxProjectSize, c.Ingest.MaxFileSize)
	}
	if c.Ingest.MaxSignatureSize <= 0 {
		return fmt.Errorf("invalid ingest.max_signature_size: %d", c.Ingest.MaxSignatureSize)
	}
	if c.Ingest.VerifySignatures && c.Ingest.KeyringFile == "" {
		return fmt.Errorf("ingest.keyring_file is required when signature verification is enabled")
	}

	if c.Mirror.Domain == "" {
		return fmt.Errorf("mirror.domain is required")
	}
	if c.Mirror.PerPage < 1 || c.Mirror.PerPage > 100 {
		return fmt.Errorf("invalid mirror.per_page: %d (must be between 1 and 100)", c.Mirror.PerPage)
	}

	if c.Storage.DefaultBackend != "local" {
		return fmt.Errorf("invalid storage backend: %s (must be local)", c.Storage.DefaultBackend)
	}
	if c.Storage.Local.BasePath == "" {
		return fmt.Errorf("storage.local.base_path is required when using local backend")
	}

	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s (must be debug, info, warn, or error)", c.Logging.Level)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[c.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s (must be json or text)", c.Logging.Format)
	}

	return nil
}
