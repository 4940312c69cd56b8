// Package config loads the desk client configuration from YAML with
// CIVICDESK_* environment overrides.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"golang.org/x/text/language"
	"gopkg.in/yaml.v3"

	"civicdesk/internal/audit"
	"civicdesk/internal/blob"
)

// Config is the full client configuration.
type Config struct {
	API     APIConfig     `yaml:"api"`
	User    string        `yaml:"user"`
	Locale  string        `yaml:"locale"`
	Refresh string        `yaml:"refresh_interval"`
	Export  blob.Config   `yaml:"export"`
	Audit   audit.Config  `yaml:"audit"`
	Logging LoggingConfig `yaml:"logging"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// APIConfig locates the records service.
type APIConfig struct {
	URL     string `yaml:"url"`
	Timeout string `yaml:"timeout"`
}

// LoggingConfig configures zap.
type LoggingConfig struct {
	Level string `yaml:"level"`
	JSON  bool   `yaml:"json"`
}

// MetricsConfig configures the prometheus endpoint. An empty address disables it.
type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() *Config {
	return &Config{
		API: APIConfig{
			URL:     "http://localhost:8080",
			Timeout: "15s",
		},
		Locale:  "en",
		Refresh: "5s",
		Export: blob.Config{
			Driver: blob.DriverFilesystem,
			Dir:    DocumentsDir(),
		},
		Audit:   audit.Config{Driver: audit.DriverMemory},
		Logging: LoggingConfig{Level: "info"},
	}
}

// DocumentsDir returns the operator's documents directory, falling back to the
// working directory when no home is known.
func DocumentsDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "."
	}
	return filepath.Join(home, "Documents")
}

// DefaultPath returns $XDG_CONFIG_HOME/civicdesk/config.yaml or its platform
// equivalent.
func DefaultPath() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "civicdesk.yaml"
	}
	return filepath.Join(dir, "civicdesk", "config.yaml")
}

// Load reads path over the defaults and applies environment overrides. A
// missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config: %w", err)
			}
		}
	}
	if err := cfg.applyEnvOverrides(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Save writes the configuration as YAML.
func (c *Config) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	return nil
}

func (c *Config) applyEnvOverrides() error {
	set := func(name string, dst *string) {
		if v, ok := os.LookupEnv(name); ok && strings.TrimSpace(v) != "" {
			*dst = strings.TrimSpace(v)
		}
	}
	set("CIVICDESK_API_URL", &c.API.URL)
	set("CIVICDESK_API_TIMEOUT", &c.API.Timeout)
	set("CIVICDESK_USER", &c.User)
	set("CIVICDESK_LOCALE", &c.Locale)
	set("CIVICDESK_REFRESH_INTERVAL", &c.Refresh)
	set("CIVICDESK_LOG_LEVEL", &c.Logging.Level)
	set("CIVICDESK_METRICS_ADDR", &c.Metrics.Addr)
	set("CIVICDESK_EXPORT_DIR", &c.Export.Dir)
	set("CIVICDESK_EXPORT_S3_BUCKET", &c.Export.S3.Bucket)
	set("CIVICDESK_EXPORT_S3_REGION", &c.Export.S3.Region)
	set("CIVICDESK_EXPORT_S3_PREFIX", &c.Export.S3.Prefix)
	set("CIVICDESK_EXPORT_S3_ENDPOINT", &c.Export.S3.Endpoint)
	set("CIVICDESK_AUDIT_DRIVER", &c.Audit.Driver)
	set("CIVICDESK_AUDIT_DSN", &c.Audit.DSN)

	var driver string
	set("CIVICDESK_EXPORT_DRIVER", &driver)
	if driver != "" {
		c.Export.Driver = blob.Driver(driver)
	}
	var pathStyle string
	set("CIVICDESK_EXPORT_S3_PATH_STYLE", &pathStyle)
	if pathStyle != "" {
		v, err := strconv.ParseBool(pathStyle)
		if err != nil {
			return fmt.Errorf("CIVICDESK_EXPORT_S3_PATH_STYLE: %w", err)
		}
		c.Export.S3.PathStyle = v
	}
	var logJSON string
	set("CIVICDESK_LOG_JSON", &logJSON)
	if logJSON != "" {
		v, err := strconv.ParseBool(logJSON)
		if err != nil {
			return fmt.Errorf("CIVICDESK_LOG_JSON: %w", err)
		}
		c.Logging.JSON = v
	}
	return nil
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if u, err := url.Parse(c.API.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		errs = append(errs, fmt.Errorf("api.url %q must be an absolute http(s) URL", c.API.URL))
	}
	if d, err := time.ParseDuration(c.API.Timeout); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("api.timeout %q must be a positive duration", c.API.Timeout))
	}
	if d, err := time.ParseDuration(c.Refresh); err != nil || d <= 0 {
		errs = append(errs, fmt.Errorf("refresh_interval %q must be a positive duration", c.Refresh))
	}
	if _, err := language.Parse(c.Locale); err != nil {
		errs = append(errs, fmt.Errorf("locale %q: %w", c.Locale, err))
	}
	switch c.Export.Driver {
	case "", blob.DriverFilesystem, blob.DriverMemory:
	case blob.DriverS3:
		if c.Export.S3.Bucket == "" {
			errs = append(errs, errors.New("export.s3.bucket is required for the s3 driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("export.driver %q is not one of fs, s3, memory", c.Export.Driver))
	}
	switch c.Audit.Driver {
	case "", audit.DriverMemory, audit.DriverPostgres:
	case audit.DriverSQLite:
		if c.Audit.DSN == "" {
			errs = append(errs, errors.New("audit.dsn is required for the sqlite driver"))
		}
	default:
		errs = append(errs, fmt.Errorf("audit.driver %q is not one of memory, sqlite, postgres", c.Audit.Driver))
	}
	return errors.Join(errs...)
}

// APITimeout returns the request timeout, defaulting to 15s.
func (c *Config) APITimeout() time.Duration {
	d, err := time.ParseDuration(c.API.Timeout)
	if err != nil || d <= 0 {
		return 15 * time.Second
	}
	return d
}

// RefreshInterval returns the collection refresh period, defaulting to 5s.
func (c *Config) RefreshInterval() time.Duration {
	d, err := time.ParseDuration(c.Refresh)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// Language returns the configured locale, defaulting to English.
func (c *Config) Language() language.Tag {
	tag, err := language.Parse(c.Locale)
	if err != nil {
		return language.English
	}
	return tag
}
