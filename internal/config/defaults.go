package config

import (
	"os"
	"path/filepath"

	"doc-translator/internal/domain"
)

const (
	DefaultBaseURL        = "http://localhost:5000"
	DefaultRequestTimeout = "2m"
	DefaultMaxUploadSize  = "100MB"
	DefaultMaxResultSize  = "100MB"
	DefaultLogLevel       = "info"
	DefaultLogFormat      = "text"
)

// DefaultSettings returns baseline local configuration for first launch.
func DefaultSettings() domain.Settings {
	return domain.Settings{
		BaseURL:        DefaultBaseURL,
		Contract:       domain.ContractTwoStep,
		RequestTimeout: DefaultRequestTimeout,
		MaxUploadSize:  DefaultMaxUploadSize,
		MaxResultSize:  DefaultMaxResultSize,
		DownloadDir:    DefaultDownloadDir(),
		Logging: domain.LoggingSettings{
			Level:  DefaultLogLevel,
			Format: DefaultLogFormat,
		},
	}
}

// DefaultDownloadDir returns ~/Downloads, or the working directory when home is unknown.
func DefaultDownloadDir() string {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(homeDir, "Downloads")
}

// DefaultPath returns the settings file location under the user's home.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".doc-translator", "settings.toml"), nil
}
