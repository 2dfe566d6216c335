package oam

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/network"
)

type fakeResolver map[string]string

func (f fakeResolver) Resolve(_ context.Context, host string) (string, error) {
	if addr, ok := f[host]; ok {
		return addr, nil
	}
	return "", ErrNoAddress
}

type fakeSNMP struct {
	mu    sync.Mutex
	up    map[string]bool
	calls []string
}

func (f *fakeSNMP) GetSystem(_ context.Context, address string) (System, error) {
	f.mu.Lock()
	f.calls = append(f.calls, address)
	f.mu.Unlock()
	if f.up[address] {
		return System{SysName: "enb-" + address, Uptime: time.Hour}, nil
	}
	return System{}, errors.New("request timeout")
}

func TestProber_ProbeAndApply(t *testing.T) {
	towers := []network.Tower{
		{ID: "1", Name: "Tower A", Status: network.TowerUp, MgmtHost: "enb1.oam"},
		{ID: "2", Name: "Tower B", Status: network.TowerUp, MgmtHost: "enb2.oam"},
		{ID: "3", Name: "Tower C", Status: network.TowerUp, MgmtHost: "missing.oam"},
		{ID: "4", Name: "Tower D", Status: network.TowerUp},
	}
	snmp := &fakeSNMP{up: map[string]bool{"10.0.0.1": true}}
	p := NewProber(fakeResolver{"enb1.oam": "10.0.0.1", "enb2.oam": "10.0.0.2"}, snmp, 2, zerolog.Nop(), metrics.New())
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p.nowFn = func() time.Time { return checked }

	results := p.Probe(context.Background(), towers)
	if len(results) != 3 {
		t.Fatalf("expected 3 probed towers, got %d", len(results))
	}
	if !results["1"].Reachable || results["1"].SysName != "enb-10.0.0.1" {
		t.Fatalf("unexpected result for tower 1: %+v", results["1"])
	}
	if results["2"].Reachable || results["2"].Error == "" {
		t.Fatalf("expected tower 2 unreachable, got %+v", results["2"])
	}
	if results["3"].Address != "" || results["3"].Reachable {
		t.Fatalf("expected tower 3 unresolved, got %+v", results["3"])
	}
	if len(snmp.calls) != 2 {
		t.Fatalf("expected snmp only for resolved hosts, got %v", snmp.calls)
	}

	applied := Apply(towers, results)
	if !applied[0].IsUp() || !applied[3].IsUp() {
		t.Fatalf("expected reachable and unprobed towers unchanged")
	}
	if applied[1].IsUp() || applied[1].DownSince == nil || !applied[1].DownSince.Equal(checked) {
		t.Fatalf("expected tower 2 down since the probe time, got %+v", applied[1])
	}
	if towers[1].Status != network.TowerUp {
		t.Fatalf("Apply must not modify its input")
	}
}

func TestApply_KeepsExistingDownSince(t *testing.T) {
	since := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	towers := []network.Tower{{ID: "1", Status: network.TowerDown, DownSince: &since}}
	out := Apply(towers, map[string]Result{"1": {TowerID: "1", CheckedAt: since.Add(time.Hour)}})
	if !out[0].DownSince.Equal(since) {
		t.Fatalf("expected down_since preserved, got %v", out[0].DownSince)
	}
}

func TestApply_DownSinceStableAcrossRebuilds(t *testing.T) {
	checked := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	towers := []network.Tower{{ID: "1", Status: network.TowerUp}}
	results := map[string]Result{"1": {TowerID: "1", CheckedAt: checked}}

	first := Apply(towers, results)
	second := Apply(towers, results)
	if !first[0].DownSince.Equal(checked) || !second[0].DownSince.Equal(checked) {
		t.Fatalf("expected down_since pinned to the probe time, got %v and %v", first[0].DownSince, second[0].DownSince)
	}
}

func TestProber_NoTowers(t *testing.T) {
	p := NewProber(fakeResolver{}, &fakeSNMP{}, 4, zerolog.Nop(), nil)
	if got := p.Probe(context.Background(), nil); len(got) != 0 {
		t.Fatalf("expected no results, got %v", got)
	}
}
