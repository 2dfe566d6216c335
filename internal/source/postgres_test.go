package source

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/sqlcgen"
)

type fakeQueries struct {
	clusters    []sqlcgen.TowerCluster
	towers      []sqlcgen.Tower
	calls       []sqlcgen.CallRecord
	remediation []sqlcgen.RemediationEvent
	anomalies   []sqlcgen.AnomalyEvent
	recovery    *float64
	err         error
}

func (f *fakeQueries) GetTowerClusters(context.Context) ([]sqlcgen.TowerCluster, error) {
	return f.clusters, f.err
}

func (f *fakeQueries) ListTowers(context.Context) ([]sqlcgen.Tower, error) {
	return f.towers, f.err
}

func (f *fakeQueries) ListCallRecords(_ context.Context, limit int32) ([]sqlcgen.CallRecord, error) {
	if f.err != nil {
		return nil, f.err
	}
	if int(limit) < len(f.calls) {
		return f.calls[:limit], nil
	}
	return f.calls, nil
}

func (f *fakeQueries) ListRemediationEvents(context.Context, int32) ([]sqlcgen.RemediationEvent, error) {
	return f.remediation, f.err
}

func (f *fakeQueries) ListAnomalyEvents(context.Context, int32) ([]sqlcgen.AnomalyEvent, error) {
	return f.anomalies, f.err
}

func (f *fakeQueries) GetAvgRecoveryTime(context.Context) (*float64, error) {
	return f.recovery, f.err
}

func strPtr(s string) *string { return &s }

func TestPostgresTowers_FromClusters(t *testing.T) {
	lastDown := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	q := &fakeQueries{clusters: []sqlcgen.TowerCluster{
		{CellID: "101", Lat: 40.71, Lng: -74.0, TotalCalls: 100, DroppedCalls: 6, DropRate: 0.06, LastDown: &lastDown},
		{CellID: "102", Name: strPtr("Harbor"), Lat: 40.72, Lng: -74.01, TotalCalls: 100, DroppedCalls: 5, DropRate: 0.05},
	}}

	towers, err := PostgresTowers(q).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if towers[0].Name != "Tower A" || towers[0].IsUp() || towers[0].DownSince == nil || !towers[0].DownSince.Equal(lastDown) {
		t.Fatalf("expected first tower down since last_down, got %+v", towers[0])
	}
	if *towers[0].DropRate != 6 {
		t.Fatalf("expected drop rate as percentage, got %v", *towers[0].DropRate)
	}
	if towers[1].Name != "Harbor" || !towers[1].IsUp() {
		t.Fatalf("expected a 5%% drop rate to stay up, got %+v", towers[1])
	}
}

func TestPostgresTowers_RegistryWhenNoClusters(t *testing.T) {
	zero := int32(0)
	q := &fakeQueries{towers: []sqlcgen.Tower{
		{CellID: "7", Lat: 1, Lng: 2, Status: "up", Bands: []string{"n78"}},
		{CellID: "8", Lat: 3, Lng: 4, Status: "up", MaxCapacity: &zero},
	}}

	towers, err := PostgresTowers(q).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(towers) != 2 || towers[0].Name != "Cell 7" || !towers[0].IsUp() || towers[1].IsUp() {
		t.Fatalf("unexpected towers %+v", towers)
	}
}

func TestPostgresSources_WrapTransportErrors(t *testing.T) {
	q := &fakeQueries{err: errors.New("connection refused")}
	if _, err := PostgresTowers(q).Fetch(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
	if _, err := PostgresRecovery(q).Fetch(context.Background()); !errors.Is(err, ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}
}

func TestPostgresRemediation_SkipsUnknownStages(t *testing.T) {
	at := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &fakeQueries{remediation: []sqlcgen.RemediationEvent{
		{ID: 1, EventType: "remediation-verified", EventTime: at, TowerID: "101"},
		{ID: 2, EventType: "rolled-back", EventTime: at, TowerID: "101"},
		{ID: 3, EventType: "started", EventTime: at, TowerID: "102"},
	}}

	got, err := PostgresRemediation(q, 50, zerolog.Nop()).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 || got[0].CellID != "101" || got[1].Stage != "started" {
		t.Fatalf("unexpected events %+v", got)
	}
}

func TestPostgresAnomalies_ClampsFutureTimestamps(t *testing.T) {
	future := time.Now().Add(time.Hour)
	past := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	q := &fakeQueries{anomalies: []sqlcgen.AnomalyEvent{
		{ID: 1, EventTime: future, CellID: strPtr("101"), AnomalyType: strPtr("Low SINR"), Message: "SINR low"},
		{ID: 2, EventTime: past, CellID: strPtr("102"), Message: "no type"},
		{ID: 3, EventTime: past, Message: "no cell"},
	}}

	got, err := PostgresAnomalies(q).Fetch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected rows without cell skipped, got %+v", got)
	}
	if got[0].Timestamp.After(time.Now()) {
		t.Fatalf("expected future timestamp clamped, got %v", got[0].Timestamp)
	}
	if got[1].Type != "" || !got[1].Timestamp.Equal(past) {
		t.Fatalf("unexpected second record %+v", got[1])
	}
}

func TestPostgresRecovery_NullIsZero(t *testing.T) {
	v, err := PostgresRecovery(&fakeQueries{}).Fetch(context.Background())
	if err != nil || v != 0 {
		t.Fatalf("expected 0, got %v err=%v", v, err)
	}
	secs := 1260.0
	v, _ = PostgresRecovery(&fakeQueries{recovery: &secs}).Fetch(context.Background())
	if v != 1260 {
		t.Fatalf("expected 1260, got %v", v)
	}
}
