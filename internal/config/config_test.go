package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.HTTPAddr != ":8081" || cfg.Sources.Mode != ModeAuto {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.Poll.Anomalies != 5*time.Second || cfg.Poll.TowersJSON != 15*time.Second || cfg.Poll.Recovery != 30*time.Second {
		t.Fatalf("unexpected poll defaults: %+v", cfg.Poll)
	}
	if cfg.Sources.AnomaliesFile != "anomalies.json" {
		t.Fatalf("unexpected anomalies file %q", cfg.Sources.AnomaliesFile)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "ranpulse.yaml")
	body := strings.Join([]string{
		"sources:",
		"  mode: json",
		"  anomalies_url: http://file.example/anomalies",
		"poll:",
		"  calls: 2s",
		"chat:",
		"  url: http://chat.example/api",
	}, "\n")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	t.Setenv("RANPULSE_ANOMALIES_URL", "http://env.example/anomalies")
	t.Setenv("RANPULSE_POLL_CALLS", "3s")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Sources.Mode != ModeJSON {
		t.Fatalf("expected json mode from file, got %q", cfg.Sources.Mode)
	}
	if cfg.Sources.AnomaliesURL != "http://env.example/anomalies" {
		t.Fatalf("expected env alias to win, got %q", cfg.Sources.AnomaliesURL)
	}
	if cfg.Poll.Calls != 3*time.Second {
		t.Fatalf("expected env poll override, got %s", cfg.Poll.Calls)
	}
	if cfg.Chat.URL != "http://chat.example/api" {
		t.Fatalf("unexpected chat url %q", cfg.Chat.URL)
	}
}

func TestLoad_ExplicitMissingFileFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing explicit config file")
	}
}

func TestLoad_RejectsInvalidMode(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RANPULSE_SOURCES_MODE", "carrier-pigeon")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected invalid mode error")
	}
}

func TestLoad_PostgresModeNeedsDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("RANPULSE_SOURCES_MODE", "postgres")
	if _, err := Load(""); err == nil {
		t.Fatalf("expected error without database.url")
	}
}
