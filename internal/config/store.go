package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"

	"doc-translator/internal/domain"
)

// Store defines persistence operations for app settings.
type Store interface {
	// Load returns the effective settings: file, environment overrides, validation.
	Load() (domain.Settings, error)
	// LoadFile returns the persisted settings without environment overrides.
	LoadFile() (domain.Settings, error)
	Save(domain.Settings) error
}

// TOMLStore persists settings in a single TOML file on disk.
type TOMLStore struct {
	path string
}

// NewTOMLStore creates a TOML-backed settings store.
func NewTOMLStore(path string) *TOMLStore {
	return &TOMLStore{path: path}
}

// Load reads settings from disk, falling back to defaults when the file is missing,
// then applies environment overrides and validation.
func (s *TOMLStore) Load() (domain.Settings, error) {
	cfg, err := s.read()
	if err != nil {
		return domain.Settings{}, err
	}
	if err := Finalize(&cfg); err != nil {
		return domain.Settings{}, err
	}
	return cfg, nil
}

// LoadFile reads settings as persisted, with defaults for missing fields. It is
// what an editor should show and save back, so invalid values are returned
// for correction rather than rejected.
func (s *TOMLStore) LoadFile() (domain.Settings, error) {
	cfg, err := s.read()
	if err != nil {
		return domain.Settings{}, err
	}
	loadDefaults(&cfg)
	return cfg, nil
}

func (s *TOMLStore) read() (domain.Settings, error) {
	cfg := DefaultSettings()

	data, err := os.ReadFile(s.path)
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return domain.Settings{}, fmt.Errorf("read settings: %w", err)
	default:
		var stored domain.Settings
		if err := toml.Unmarshal(data, &stored); err != nil {
			return domain.Settings{}, fmt.Errorf("parse settings: %w", err)
		}
		Merge(&cfg, stored)
	}
	return cfg, nil
}

// Save validates settings and writes them as TOML, creating parent directories.
func (s *TOMLStore) Save(cfg domain.Settings) error {
	if err := validate(cfg); err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return err
	}

	data, err := toml.Marshal(cfg)
	if err != nil {
		return err
	}

	return os.WriteFile(s.path, data, 0o644)
}
