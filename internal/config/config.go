package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix is prepended to every environment override, e.g.
// SIGNALDASH_BACKEND_BASE_URL.
const EnvPrefix = "SIGNALDASH_"

// DotEnvFile is loaded into the process environment, if present, before
// overrides are applied.
var DotEnvFile = ".env"

// ---------------------------------------------------------------------------
// Configuration structs
// ---------------------------------------------------------------------------

// Config is the top-level configuration for the dashboard clients.
type Config struct {
	Backend Backend `yaml:"backend" envPrefix:"BACKEND_"`
	Refresh Refresh `yaml:"refresh" envPrefix:"REFRESH_"`
	Logging Logging `yaml:"logging" envPrefix:"LOG_"`
	Display Display `yaml:"display" envPrefix:"DISPLAY_"`
	Journal Journal `yaml:"journal" envPrefix:"JOURNAL_"`
	Export  Export  `yaml:"export" envPrefix:"EXPORT_"`
	HTTP    HTTP    `yaml:"http" envPrefix:"HTTP_"`
}

// Backend locates the signal backend.
type Backend struct {
	BaseURL      string `yaml:"base_url" env:"BASE_URL" default:"http://localhost:8000" validate:"required,url"`
	StatePath    string `yaml:"state_path" env:"STATE_PATH" default:"/api/state" validate:"required,startswith=/"`
	SettingsPath string `yaml:"settings_path" env:"SETTINGS_PATH" default:"/settings" validate:"required,startswith=/"`
	TimeoutSec   int    `yaml:"timeout_sec" env:"TIMEOUT_SEC" default:"10" validate:"gt=0"`
}

// Timeout returns the per-request timeout.
func (b Backend) Timeout() time.Duration {
	return time.Duration(b.TimeoutSec) * time.Second
}

// Refresh holds the polling interval used until the backend advertises one.
type Refresh struct {
	DefaultSeconds int `yaml:"default_seconds" env:"DEFAULT_SECONDS" default:"300" validate:"gt=0"`
}

// Interval returns the default polling interval.
func (r Refresh) Interval() time.Duration {
	return time.Duration(r.DefaultSeconds) * time.Second
}

// Logging configures the application logger. An empty File means stderr,
// except for the TUI which always logs to a file.
type Logging struct {
	Level  string `yaml:"level" env:"LEVEL" default:"info" validate:"oneof=debug info warn error"`
	Format string `yaml:"format" env:"FORMAT" default:"json" validate:"oneof=json text"`
	File   string `yaml:"file" env:"FILE"`
}

// Display holds presentation settings.
type Display struct {
	Locale      string `yaml:"locale" env:"LOCALE" default:"en" validate:"oneof=en de"`
	Timezone    string `yaml:"timezone" env:"TIMEZONE" default:"Local"`
	ChartHeight int    `yaml:"chart_height" env:"CHART_HEIGHT" default:"12" validate:"min=4,max=60"`
}

// Location resolves Timezone.
func (d Display) Location() (*time.Location, error) {
	return time.LoadLocation(d.Timezone)
}

// Journal configures the signal timeline store. The default keeps it in
// memory only.
type Journal struct {
	Path         string `yaml:"path" env:"PATH" default:":memory:" validate:"required"`
	TimelineSize int    `yaml:"timeline_size" env:"TIMELINE_SIZE" default:"5" validate:"min=1,max=50"`
}

// Export configures chart exports.
type Export struct {
	Dir string `yaml:"dir" env:"DIR" default:"." validate:"required"`
}

// HTTP configures the optional read-only mirror. Empty Addr disables it.
type HTTP struct {
	Addr string `yaml:"addr" env:"ADDR" validate:"omitempty,hostname_port"`
}

// ---------------------------------------------------------------------------
// Loading
// ---------------------------------------------------------------------------

var validate = validator.New()

// Load builds the configuration in layers: struct defaults, the YAML file at
// path (skipped when path is empty), the optional .env file, SIGNALDASH_*
// environment overrides, and finally validation.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("applying defaults: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, err
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing %s: %w", path, err)
		}
	}

	if err := godotenv.Load(DotEnvFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading %s: %w", DotEnvFile, err)
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyEnvOverrides overrides fields whose SIGNALDASH_* variable is set.
func applyEnvOverrides(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return fmt.Errorf("parsing environment: %w", err)
	}
	cfg.Backend.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.Backend.BaseURL), "/")
	cfg.Display.Locale = strings.ToLower(strings.TrimSpace(cfg.Display.Locale))
	return nil
}

// Validate checks field constraints and that the time zone exists.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			e := verrs[0]
			return fmt.Errorf("invalid config: %s fails %q (value %v)", e.Namespace(), e.Tag(), e.Value())
		}
		return fmt.Errorf("invalid config: %w", err)
	}
	if _, err := c.Display.Location(); err != nil {
		return fmt.Errorf("invalid config: display.timezone: %w", err)
	}
	return nil
}
