package source

import (
	"os"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/notify"
)

// Selector builds the active Set from configuration and runtime overrides.
type Selector struct {
	Config   config.Config
	Queries  Queries // nil when no database is configured
	Fetcher  *Fetcher
	Mock     *Mock
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Notifier notify.Notifier
}

func (s *Selector) opts(title string) FallbackOptions {
	return FallbackOptions{Log: s.Log, Metrics: s.Metrics, Notifier: s.Notifier, Title: title}
}

// TowersURL returns the effective towers location: the override, then the
// configured URL.
func TowersURL(cfg config.Config, st config.Settings) string {
	if st.TowersURL != "" {
		return st.TowersURL
	}
	return cfg.Sources.TowersURL
}

// AnomaliesURL returns the effective anomalies location. The runtime override
// wins over the configured URL.
func AnomaliesURL(cfg config.Config, st config.Settings) string {
	if st.AnomaliesURL != "" {
		return st.AnomaliesURL
	}
	return cfg.Sources.AnomaliesURL
}

// UseJSONTowers reports whether towers are served from JSON.
func UseJSONTowers(cfg config.Config, st config.Settings) bool {
	if st.UseJSON != nil {
		return *st.UseJSON
	}
	switch cfg.Sources.Mode {
	case config.ModeJSON:
		return true
	case config.ModeAuto:
		return TowersURL(cfg, st) != "" || cfg.Sources.TowersFile != ""
	default:
		return false
	}
}

// Build returns the source set for the given overrides.
func (s *Selector) Build(st config.Settings) Set {
	cfg := s.Config
	mode := cfg.Sources.Mode
	useDB := s.Queries != nil && mode != config.ModeMock && mode != config.ModeJSON

	set := Set{
		Towers:      s.towers(cfg, st, useDB),
		Anomalies:   s.anomalies(cfg, st, useDB),
		Calls:       s.Mock.Calls(cfg.CallsLimit),
		Remediation: s.Mock.Remediation(cfg.RemediationLimit),
		Recovery:    s.Mock.Recovery(),
		Realtime:    useDB,
	}
	set.TowersFromJSON = UseJSONTowers(cfg, st)

	if useDB {
		set.Calls = WithFallback(StreamCalls, PostgresCalls(s.Queries, cfg.CallsLimit), s.Mock.Calls(cfg.CallsLimit), s.opts(""))
		set.Remediation = WithFallback(StreamRemediation, PostgresRemediation(s.Queries, cfg.RemediationLimit, s.Log), Empty[[]network.Remediation](), s.opts("Remediation events unavailable"))
		set.Recovery = WithFallback(StreamRecovery, PostgresRecovery(s.Queries), s.Mock.Recovery(), s.opts(""))
	}
	return set
}

func (s *Selector) towers(cfg config.Config, st config.Settings, useDB bool) Source[[]network.Tower] {
	if UseJSONTowers(cfg, st) {
		var chain Source[[]network.Tower] = Empty[[]network.Tower]()
		if f := cfg.Sources.TowersFile; f != "" {
			chain = WithFallback(StreamTowers, JSONTowers(s.Fetcher, f, s.Log), chain, s.opts("Towers loading error"))
		}
		if u := TowersURL(cfg, st); u != "" {
			chain = WithFallback(StreamTowers, JSONTowers(s.Fetcher, u, s.Log), chain, s.opts("Towers source unavailable"))
		}
		return chain
	}
	if useDB {
		return WithFallback(StreamTowers, PostgresTowers(s.Queries), s.Mock.Towers(), s.opts(""))
	}
	return s.Mock.Towers()
}

func (s *Selector) anomalies(cfg config.Config, st config.Settings, useDB bool) Source[[]anomaly.Record] {
	url := AnomaliesURL(cfg, st)
	file := cfg.Sources.AnomaliesFile

	jsonChain := func() Source[[]anomaly.Record] {
		var chain Source[[]anomaly.Record] = Empty[[]anomaly.Record]()
		if file != "" {
			chain = WithFallback(StreamAnomalies, JSONAnomalies(s.Fetcher, file, s.Log), chain, s.opts("Anomalies loading error"))
		}
		if url != "" {
			chain = WithFallback(StreamAnomalies, JSONAnomalies(s.Fetcher, url, s.Log), chain, s.opts("Anomalies source unavailable"))
		}
		return chain
	}

	switch {
	case cfg.Sources.Mode == config.ModeMock:
		return s.Mock.Anomalies()
	case cfg.Sources.Mode == config.ModeJSON, url != "":
		return jsonChain()
	case useDB:
		return WithFallback(StreamAnomalies, PostgresAnomalies(s.Queries), jsonChain(), s.opts("Anomalies source unavailable"))
	case fileExists(file):
		return jsonChain()
	default:
		return s.Mock.Anomalies()
	}
}

func fileExists(path string) bool {
	if path == "" {
		return false
	}
	st, err := os.Stat(path)
	return err == nil && !st.IsDir()
}
