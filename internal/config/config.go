// Package config loads server settings from defaults and ULTRATEXT_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is stripped from environment variable names; the rest, lower
// cased, is the config key. ULTRATEXT_MAX_UPLOAD_BYTES sets max_upload_bytes.
const EnvPrefix = "ULTRATEXT_"

type Config struct {
	Port string `koanf:"port"`

	// Auth. Empty disables bearer-token checks.
	APIKey string `koanf:"api_key"`

	// Files opened and saved through the API resolve inside DataDir.
	DataDir string `koanf:"data_dir"`

	// Upload limits
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`

	// Editing sessions idle longer than SessionTTL are dropped.
	SessionTTL time.Duration `koanf:"session_ttl"`

	// Import worker pool
	WorkerCount  int           `koanf:"worker_count"`
	MaxQueueSize int           `koanf:"max_queue_size"`
	JobTTL       time.Duration `koanf:"job_ttl"`

	// Logging
	LogLevel string `koanf:"log_level"`
	LogJSON  bool   `koanf:"log_json"`

	// PDF
	PDFFallbackPdftotext bool `koanf:"pdf_fallback_pdftotext"`
}

// Default returns the built-in settings.
func Default() Config {
	return Config{
		Port:                 "8090",
		DataDir:              "./data",
		MaxUploadBytes:       52428800, // 50MB
		SessionTTL:           2 * time.Hour,
		WorkerCount:          2,
		MaxQueueSize:         50,
		JobTTL:               time.Hour,
		LogLevel:             "info",
		PDFFallbackPdftotext: true,
	}
}

// Load reads the defaults overlaid with the process environment.
func Load() (Config, error) {
	return LoadFrom(os.Environ)
}

// LoadFrom is Load with an explicit environment, in os.Environ form.
func LoadFrom(environ func() []string) (Config, error) {
	k := koanf.New(".")
	if err := k.Load(structs.Provider(Default(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}
	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		EnvironFunc:   environ,
		TransformFunc: transformEnvKey,
	}), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "koanf",
		DecoderConfig: &mapstructure.DecoderConfig{
			WeaklyTypedInput: true,
			Result:           &cfg,
			TagName:          "koanf",
			DecodeHook:       mapstructure.StringToTimeDurationHookFunc(),
		},
	}); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

func transformEnvKey(key, value string) (string, any) {
	return strings.ToLower(strings.TrimPrefix(key, EnvPrefix)), value
}

func (c Config) Validate() error {
	if c.Port == "" {
		return fmt.Errorf("port is required")
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.MaxUploadBytes <= 0 {
		return fmt.Errorf("max_upload_bytes must be positive, got %d", c.MaxUploadBytes)
	}
	if c.WorkerCount <= 0 {
		return fmt.Errorf("worker_count must be positive, got %d", c.WorkerCount)
	}
	if c.MaxQueueSize <= 0 {
		return fmt.Errorf("max_queue_size must be positive, got %d", c.MaxQueueSize)
	}
	if c.SessionTTL <= 0 || c.JobTTL <= 0 {
		return fmt.Errorf("session_ttl and job_ttl must be positive")
	}
	switch strings.ToLower(c.LogLevel) {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log_level %q", c.LogLevel)
	}
	return nil
}
