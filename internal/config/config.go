// Package config loads the service configuration: built-in defaults, an
// optional ranpulse.yaml file and RANPULSE_* environment variables, with the
// operator's runtime overrides kept in a separate settings file.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const EnvPrefix = "RANPULSE"

// Source modes.
const (
	ModeAuto     = "auto"
	ModeJSON     = "json"
	ModePostgres = "postgres"
	ModeMock     = "mock"
)

type Config struct {
	HTTPAddr     string
	LogLevel     string
	DatabaseURL  string
	SettingsPath string

	Sources          SourcesConfig
	Poll             PollConfig
	CallsLimit       int
	RemediationLimit int
	Chat             ChatConfig
	OAM              OAMConfig
}

type SourcesConfig struct {
	Mode          string
	TowersURL     string
	TowersFile    string
	AnomaliesURL  string
	AnomaliesFile string
	FetchTimeout  time.Duration
}

// PollConfig holds the per-stream refresh intervals. Towers poll slower when
// served from JSON.
type PollConfig struct {
	Towers      time.Duration
	TowersJSON  time.Duration
	Anomalies   time.Duration
	Remediation time.Duration
	Calls       time.Duration
	Recovery    time.Duration
}

type ChatConfig struct {
	URL     string
	Timeout time.Duration
}

type OAMConfig struct {
	Enabled       bool
	SNMPCommunity string
	SNMPPort      uint16
	SNMPTimeout   time.Duration
	DNSServer     string
	Workers       int
	Interval      time.Duration
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("http.addr", ":8081")
	v.SetDefault("log.level", "info")
	v.SetDefault("database.url", "")
	v.SetDefault("settings.path", "ranpulse-settings.yaml")

	v.SetDefault("sources.mode", ModeAuto)
	v.SetDefault("sources.towers_url", "")
	v.SetDefault("sources.towers_file", "")
	v.SetDefault("sources.anomalies_url", "")
	v.SetDefault("sources.anomalies_file", "anomalies.json")
	v.SetDefault("sources.fetch_timeout", "10s")

	v.SetDefault("poll.towers", "10s")
	v.SetDefault("poll.towers_json", "15s")
	v.SetDefault("poll.anomalies", "5s")
	v.SetDefault("poll.remediation", "10s")
	v.SetDefault("poll.calls", "5s")
	v.SetDefault("poll.recovery", "30s")

	v.SetDefault("calls.limit", 100)
	v.SetDefault("remediation.limit", 50)

	v.SetDefault("chat.url", "")
	v.SetDefault("chat.timeout", "60s")

	v.SetDefault("oam.enabled", false)
	v.SetDefault("oam.snmp_community", "public")
	v.SetDefault("oam.snmp_port", 161)
	v.SetDefault("oam.snmp_timeout", "2s")
	v.SetDefault("oam.dns_server", "")
	v.SetDefault("oam.workers", 8)
	v.SetDefault("oam.interval", "60s")
}

// Short environment aliases accepted in addition to the RANPULSE_<KEY> form.
var envAliases = map[string]string{
	"sources.towers_url":    "RANPULSE_TOWERS_URL",
	"sources.anomalies_url": "RANPULSE_ANOMALIES_URL",
	"poll.towers":           "RANPULSE_TOWERS_POLL",
	"poll.anomalies":        "RANPULSE_ANOMALIES_POLL",
}

// Load reads configuration. An empty path searches ./ranpulse.yaml and
// /etc/ranpulse/ranpulse.yaml and tolerates neither existing; an explicit path
// must exist.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	for key, env := range envAliases {
		canonical := EnvPrefix + "_" + strings.ToUpper(strings.ReplaceAll(key, ".", "_"))
		if err := v.BindEnv(key, canonical, env); err != nil {
			return Config{}, fmt.Errorf("binding %s: %w", key, err)
		}
	}

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("ranpulse")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/ranpulse")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	cfg := Config{
		HTTPAddr:     v.GetString("http.addr"),
		LogLevel:     v.GetString("log.level"),
		DatabaseURL:  v.GetString("database.url"),
		SettingsPath: v.GetString("settings.path"),
		Sources: SourcesConfig{
			Mode:          strings.ToLower(v.GetString("sources.mode")),
			TowersURL:     v.GetString("sources.towers_url"),
			TowersFile:    v.GetString("sources.towers_file"),
			AnomaliesURL:  v.GetString("sources.anomalies_url"),
			AnomaliesFile: v.GetString("sources.anomalies_file"),
			FetchTimeout:  v.GetDuration("sources.fetch_timeout"),
		},
		Poll: PollConfig{
			Towers:      v.GetDuration("poll.towers"),
			TowersJSON:  v.GetDuration("poll.towers_json"),
			Anomalies:   v.GetDuration("poll.anomalies"),
			Remediation: v.GetDuration("poll.remediation"),
			Calls:       v.GetDuration("poll.calls"),
			Recovery:    v.GetDuration("poll.recovery"),
		},
		CallsLimit:       v.GetInt("calls.limit"),
		RemediationLimit: v.GetInt("remediation.limit"),
		Chat: ChatConfig{
			URL:     v.GetString("chat.url"),
			Timeout: v.GetDuration("chat.timeout"),
		},
		OAM: OAMConfig{
			Enabled:       v.GetBool("oam.enabled"),
			SNMPCommunity: v.GetString("oam.snmp_community"),
			SNMPPort:      uint16(v.GetUint("oam.snmp_port")),
			SNMPTimeout:   v.GetDuration("oam.snmp_timeout"),
			DNSServer:     v.GetString("oam.dns_server"),
			Workers:       v.GetInt("oam.workers"),
			Interval:      v.GetDuration("oam.interval"),
		},
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate rejects values the service cannot run with.
func (c Config) Validate() error {
	switch c.Sources.Mode {
	case ModeAuto, ModeJSON, ModePostgres, ModeMock:
	default:
		return fmt.Errorf("sources.mode must be one of auto|json|postgres|mock, got %q", c.Sources.Mode)
	}
	if c.Sources.Mode == ModePostgres && c.DatabaseURL == "" {
		return errors.New("sources.mode=postgres requires database.url")
	}
	polls := map[string]time.Duration{
		"poll.towers":      c.Poll.Towers,
		"poll.towers_json": c.Poll.TowersJSON,
		"poll.anomalies":   c.Poll.Anomalies,
		"poll.remediation": c.Poll.Remediation,
		"poll.calls":       c.Poll.Calls,
		"poll.recovery":    c.Poll.Recovery,
	}
	for key, d := range polls {
		if d <= 0 {
			return fmt.Errorf("%s must be positive, got %s", key, d)
		}
	}
	if c.CallsLimit <= 0 || c.RemediationLimit <= 0 {
		return errors.New("calls.limit and remediation.limit must be positive")
	}
	return nil
}
