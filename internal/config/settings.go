package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Settings are the operator's runtime overrides. They survive restarts and
// take precedence over the layered configuration.
type Settings struct {
	AnomaliesURL string `yaml:"custom_anomalies_url,omitempty" json:"custom_anomalies_url"`
	TowersURL    string `yaml:"custom_towers_url,omitempty" json:"custom_towers_url"`
	UseJSON      *bool  `yaml:"override_use_json,omitempty" json:"override_use_json"`
}

// Validate checks the override locations. Each is either an absolute http(s)
// URL or a local file path.
func (s Settings) Validate() error {
	for name, raw := range map[string]string{"custom_anomalies_url": s.AnomaliesURL, "custom_towers_url": s.TowersURL} {
		if raw == "" {
			continue
		}
		u, err := url.Parse(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", name, err)
		}
		if u.Scheme == "" {
			continue
		}
		if (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
			return fmt.Errorf("%s must be an http(s) URL or a file path", name)
		}
	}
	return nil
}

// Store persists Settings as YAML.
type Store struct {
	mu   sync.Mutex
	path string
}

func NewStore(path string) *Store {
	return &Store{path: path}
}

func (s *Store) Path() string { return s.path }

// Load returns the saved settings; a missing file yields zero Settings.
func (s *Store) Load() (Settings, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out Settings
	if s.path == "" {
		return out, nil
	}
	b, err := os.ReadFile(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return out, nil
		}
		return out, fmt.Errorf("read settings: %w", err)
	}
	if err := yaml.Unmarshal(b, &out); err != nil {
		return Settings{}, fmt.Errorf("parse settings %s: %w", s.path, err)
	}
	return out, nil
}

// Save validates and writes settings, replacing the file atomically.
func (s *Store) Save(in Settings) error {
	if err := in.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.path == "" {
		return errors.New("settings path not configured")
	}
	b, err := yaml.Marshal(in)
	if err != nil {
		return err
	}
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create settings dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".ranpulse-settings-*")
	if err != nil {
		return fmt.Errorf("write settings: %w", err)
	}
	if _, err := tmp.Write(b); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("write settings: %w", err)
	}
	return nil
}

// Reset removes the saved overrides.
func (s *Store) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.path == "" {
		return nil
	}
	if err := os.Remove(s.path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("reset settings: %w", err)
	}
	return nil
}
