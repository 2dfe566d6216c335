package source

import (
	"context"
	"reflect"
	"sort"
	"testing"
	"time"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/health"
	"ranpulse/core-go/internal/network"
)

func newTestMock(now time.Time) *Mock {
	m := NewMock(7)
	m.nowFn = func() time.Time { return now }
	return m
}

func TestMock_TowersOnePerCellAndStable(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMock(now)

	first, err := m.Towers().Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, _ := m.Towers().Fetch(context.Background())
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expected consecutive polls to agree")
	}

	var ids []string
	for _, tw := range first {
		ids = append(ids, tw.ID)
		rate := *tw.DropRate
		if tw.IsUp() == (rate > mockDownDropRate) {
			t.Fatalf("tower %s status %s disagrees with drop rate %.1f", tw.ID, tw.Status, rate)
		}
		if tw.IsUp() != (tw.DownSince == nil) {
			t.Fatalf("tower %s: down_since must be set exactly when down", tw.ID)
		}
	}
	sort.Strings(ids)
	if !reflect.DeepEqual(ids, mockCells) {
		t.Fatalf("expected one tower per mock cell, got %v", ids)
	}
}

func TestMock_HealthStatesCoverEveryKind(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	m := newTestMock(now)

	records, _ := m.Anomalies().Fetch(context.Background())
	rem, _ := m.Remediation(0).Fetch(context.Background())
	byCell := anomaly.Aggregate(records)
	verified := health.LatestVerifications(rem)

	want := map[string]health.State{
		"CELL_A": health.StateRemediated,
		"CELL_B": health.StateAnomalous,
		"CELL_C": health.StateAnomalous,
		"CELL_D": health.StateHealthy,
		"CELL_E": health.StateHealthy,
	}
	for cell, state := range want {
		if got := health.Classify(cell, byCell, verified); got != state {
			t.Fatalf("%s: expected %s, got %s", cell, state, got)
		}
	}
	for _, r := range records {
		if r.Timestamp.After(now) {
			t.Fatalf("mock anomaly in the future: %+v", r)
		}
	}
}

func TestMock_LimitsAndRecoveryRange(t *testing.T) {
	m := newTestMock(time.Now())

	calls, _ := m.Calls(100).Fetch(context.Background())
	if len(calls) != 100 {
		t.Fatalf("expected 100 calls, got %d", len(calls))
	}
	for i := 1; i < len(calls); i++ {
		if calls[i].Timestamp.After(calls[i-1].Timestamp) {
			t.Fatalf("calls must be newest first")
		}
	}

	rem, _ := m.Remediation(3).Fetch(context.Background())
	if len(rem) != 3 {
		t.Fatalf("expected 3 remediation events, got %d", len(rem))
	}

	for i := 0; i < 20; i++ {
		v, _ := m.Recovery().Fetch(context.Background())
		if v < 18*60 || v > 30*60 {
			t.Fatalf("recovery %.0fs outside 18-30 minutes", v)
		}
	}
}

func TestClusterCalls(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	var calls []network.CallRecord
	add := func(n, dropped int, lat, lng float64, cell string) {
		for i := 0; i < n; i++ {
			calls = append(calls, network.CallRecord{Timestamp: at, Lat: lat, Lng: lng, Dropped: i < dropped, CellID: cell})
		}
	}
	add(6, 2, 40.7101, -74.0049, "X")
	add(4, 0, 41.0, -73.0, "SMALL")
	add(5, 0, 42.0012, -72.0031, "")

	towers := ClusterCalls(calls, 10)
	if len(towers) != 2 {
		t.Fatalf("expected 2 clusters, got %+v", towers)
	}
	if towers[0].ID != "X" || towers[0].Name != "Tower A" || towers[0].IsUp() {
		t.Fatalf("unexpected first tower %+v", towers[0])
	}
	if towers[0].Lat != 40.71 || towers[0].Lng != -74.0 {
		t.Fatalf("expected rounded coordinates, got %v,%v", towers[0].Lat, towers[0].Lng)
	}
	if towers[1].ID != "2" || towers[1].Name != "Tower B" || !towers[1].IsUp() {
		t.Fatalf("unexpected second tower %+v", towers[1])
	}
}
