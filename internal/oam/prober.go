// Package oam probes tower management interfaces. A tower whose controller
// does not answer is treated as down regardless of what the data source says.
package oam

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/network"
)

type Resolver interface {
	Resolve(ctx context.Context, host string) (string, error)
}

type SystemGetter interface {
	GetSystem(ctx context.Context, address string) (System, error)
}

// Result is the outcome of probing one tower.
type Result struct {
	TowerID   string        `json:"tower_id"`
	Host      string        `json:"host"`
	Address   string        `json:"address,omitempty"`
	Reachable bool          `json:"reachable"`
	SysName   string        `json:"sys_name,omitempty"`
	Uptime    time.Duration `json:"uptime,omitempty"`
	Error     string        `json:"error,omitempty"`
	CheckedAt time.Time     `json:"checked_at"`
}

type Prober struct {
	resolver Resolver
	snmp     SystemGetter
	workers  int
	log      zerolog.Logger
	metrics  *metrics.Metrics
	nowFn    func() time.Time
}

func NewProber(resolver Resolver, snmp SystemGetter, workers int, log zerolog.Logger, m *metrics.Metrics) *Prober {
	if workers <= 0 {
		workers = 8
	}
	return &Prober{resolver: resolver, snmp: snmp, workers: workers, log: log, metrics: m, nowFn: time.Now}
}

// FromConfig wires a Prober with the miekg/dns resolver and the gosnmp client.
func FromConfig(cfg config.OAMConfig, log zerolog.Logger, m *metrics.Metrics) (*Prober, error) {
	resolver, err := NewDNSResolver(cfg.DNSServer, cfg.SNMPTimeout)
	if err != nil {
		return nil, err
	}
	client := NewSNMPClient(SNMPConfig{
		Community: cfg.SNMPCommunity,
		Port:      cfg.SNMPPort,
		Timeout:   cfg.SNMPTimeout,
	})
	return NewProber(resolver, client, cfg.Workers, log, m), nil
}

// Probe checks every tower with a management host and returns the results
// keyed by tower ID. Towers without a host are not probed.
func (p *Prober) Probe(ctx context.Context, towers []network.Tower) map[string]Result {
	out := make(map[string]Result)
	var mu sync.Mutex

	jobs := make(chan network.Tower)
	wg := sync.WaitGroup{}
	worker := func() {
		defer wg.Done()
		for t := range jobs {
			if ctx.Err() != nil {
				continue
			}
			r := p.probeOne(ctx, t)
			mu.Lock()
			out[t.ID] = r
			mu.Unlock()
		}
	}

	n := p.workers
	if n > len(towers) {
		n = len(towers)
	}
	wg.Add(n)
	for i := 0; i < n; i++ {
		go worker()
	}
	for _, t := range towers {
		if t.MgmtHost == "" {
			continue
		}
		jobs <- t
	}
	close(jobs)
	wg.Wait()
	return out
}

func (p *Prober) probeOne(ctx context.Context, t network.Tower) Result {
	r := Result{TowerID: t.ID, Host: t.MgmtHost, CheckedAt: p.nowFn().UTC()}

	addr, err := p.resolver.Resolve(ctx, t.MgmtHost)
	if err != nil {
		r.Error = err.Error()
		p.metrics.IncProbe("unresolved")
		p.log.Debug().Err(err).Str("tower_id", t.ID).Str("host", t.MgmtHost).Msg("tower host resolution failed")
		return r
	}
	r.Address = addr

	sys, err := p.snmp.GetSystem(ctx, addr)
	if err != nil {
		r.Error = err.Error()
		p.metrics.IncProbe("unreachable")
		p.log.Debug().Err(err).Str("tower_id", t.ID).Str("address", addr).Msg("tower snmp probe failed")
		return r
	}
	r.Reachable = true
	r.SysName = sys.SysName
	r.Uptime = sys.Uptime
	p.metrics.IncProbe("ok")
	return r
}

// Apply marks towers with a failed probe as down since the probe's
// CheckedAt. A tower that was already down keeps its DownSince; reachable and
// unprobed towers are unchanged.
func Apply(towers []network.Tower, results map[string]Result) []network.Tower {
	out := make([]network.Tower, len(towers))
	copy(out, towers)
	for i := range out {
		r, ok := results[out[i].ID]
		if !ok || r.Reachable || !out[i].IsUp() {
			continue
		}
		since := r.CheckedAt
		out[i].Status = network.TowerDown
		out[i].DownSince = &since
	}
	return out
}
