package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/docker/go-units"
	"github.com/joho/godotenv"

	"doc-translator/internal/domain"
)

const (
	// EnvAPIURL overrides the processing service base address.
	EnvAPIURL = "DOC_TRANSLATOR_API_URL"

	// EnvContract overrides the transfer contract.
	EnvContract = "DOC_TRANSLATOR_CONTRACT"

	EnvLogLevel  = "DOC_TRANSLATOR_LOG_LEVEL"
	EnvLogFormat = "DOC_TRANSLATOR_LOG_FORMAT"
)

var dotenvOnce sync.Once

// Merge applies non-zero values from overlay onto cfg.
func Merge(cfg *domain.Settings, overlay domain.Settings) {
	if v := strings.TrimSpace(overlay.BaseURL); v != "" {
		cfg.BaseURL = v
	}
	if overlay.Contract != "" {
		cfg.Contract = overlay.Contract
	}
	if v := strings.TrimSpace(overlay.RequestTimeout); v != "" {
		cfg.RequestTimeout = v
	}
	if v := strings.TrimSpace(overlay.MaxUploadSize); v != "" {
		cfg.MaxUploadSize = v
	}
	if v := strings.TrimSpace(overlay.MaxResultSize); v != "" {
		cfg.MaxResultSize = v
	}
	if v := strings.TrimSpace(overlay.DownloadDir); v != "" {
		cfg.DownloadDir = v
	}
	cfg.AutoDownload = overlay.AutoDownload
	if overlay.Logging.Level != "" {
		cfg.Logging.Level = overlay.Logging.Level
	}
	if overlay.Logging.Format != "" {
		cfg.Logging.Format = overlay.Logging.Format
	}
}

// Finalize applies defaults, loads environment overrides, and validates the settings.
func Finalize(cfg *domain.Settings) error {
	loadDefaults(cfg)
	loadEnv(cfg)
	return validate(*cfg)
}

// RequestTimeout parses the configured timeout; invalid values yield zero (no timeout).
func RequestTimeout(cfg domain.Settings) time.Duration {
	d, _ := time.ParseDuration(cfg.RequestTimeout)
	return d
}

// MaxUploadBytes parses the configured upload limit.
func MaxUploadBytes(cfg domain.Settings) int64 {
	size, _ := units.FromHumanSize(cfg.MaxUploadSize)
	return size
}

// MaxResultBytes parses the configured response body limit.
func MaxResultBytes(cfg domain.Settings) int64 {
	size, _ := units.FromHumanSize(cfg.MaxResultSize)
	return size
}

func loadDefaults(cfg *domain.Settings) {
	defaults := DefaultSettings()
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaults.BaseURL
	}
	if cfg.Contract == "" {
		cfg.Contract = defaults.Contract
	}
	if cfg.RequestTimeout == "" {
		cfg.RequestTimeout = defaults.RequestTimeout
	}
	if cfg.MaxUploadSize == "" {
		cfg.MaxUploadSize = defaults.MaxUploadSize
	}
	if cfg.MaxResultSize == "" {
		cfg.MaxResultSize = defaults.MaxResultSize
	}
	if cfg.DownloadDir == "" {
		cfg.DownloadDir = defaults.DownloadDir
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = defaults.Logging.Level
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = defaults.Logging.Format
	}
}

func loadEnv(cfg *domain.Settings) {
	dotenvOnce.Do(func() {
		_ = godotenv.Load()
	})

	if v := strings.TrimSpace(os.Getenv(EnvAPIURL)); v != "" {
		cfg.BaseURL = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvContract)); v != "" {
		cfg.Contract = domain.Contract(v)
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogLevel)); v != "" {
		cfg.Logging.Level = v
	}
	if v := strings.TrimSpace(os.Getenv(EnvLogFormat)); v != "" {
		cfg.Logging.Format = v
	}
}

func validate(cfg domain.Settings) error {
	if err := ValidateBaseURL(cfg.BaseURL); err != nil {
		return err
	}

	switch cfg.Contract {
	case domain.ContractTwoStep, domain.ContractCombined:
	default:
		return fmt.Errorf("invalid contract: %s (must be %s or %s)", cfg.Contract, domain.ContractTwoStep, domain.ContractCombined)
	}

	if _, err := time.ParseDuration(cfg.RequestTimeout); err != nil {
		return fmt.Errorf("invalid request_timeout: %w", err)
	}

	for name, raw := range map[string]string{
		"max_upload_size": cfg.MaxUploadSize,
		"max_result_size": cfg.MaxResultSize,
	} {
		size, err := units.FromHumanSize(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
		if size <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}

	switch cfg.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", cfg.Logging.Level)
	}
	switch cfg.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("invalid log format: %s (must be text or json)", cfg.Logging.Format)
	}

	return nil
}

// ValidateBaseURL checks that raw is an absolute http(s) URL.
func ValidateBaseURL(raw string) error {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return fmt.Errorf("invalid base_url: %w", err)
	}
	if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("invalid base_url: %q must be an absolute http(s) URL", raw)
	}
	return nil
}
