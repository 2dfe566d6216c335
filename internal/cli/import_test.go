package cli

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/source"
	"ranpulse/core-go/internal/sqlcgen"
)

type fakeUpserter struct {
	params []sqlcgen.UpsertTowerParams
	err    error
}

func (f *fakeUpserter) UpsertTower(_ context.Context, arg sqlcgen.UpsertTowerParams) error {
	if f.err != nil {
		return f.err
	}
	f.params = append(f.params, arg)
	return nil
}

func TestRunImportTowers(t *testing.T) {
	capacity := 120
	towers := []network.Tower{
		{ID: "101", Name: "Harbor", Lat: 40.7, Lng: -74.0, Status: network.TowerUp, Bands: []string{"3", "7"}, MaxCapacity: &capacity, MgmtHost: "enb-101.ran.local"},
		{ID: "102", Name: "Cell 102", Lat: 40.8, Lng: -73.9, Status: network.TowerDown},
	}
	src := source.Func("file:towers.json", func(context.Context) ([]network.Tower, error) { return towers, nil })

	q := &fakeUpserter{}
	var out bytes.Buffer
	if err := runImportTowers(context.Background(), src, q, &out); err != nil {
		t.Fatalf("runImportTowers: %v", err)
	}
	if out.String() != "Imported 2 towers\n" {
		t.Fatalf("unexpected output %q", out.String())
	}
	if len(q.params) != 2 {
		t.Fatalf("expected 2 upserts, got %d", len(q.params))
	}
	first := q.params[0]
	if first.CellID != "101" || *first.Name != "Harbor" || *first.MaxCapacity != 120 || *first.MgmtHost != "enb-101.ran.local" || len(first.Bands) != 2 {
		t.Fatalf("unexpected params %+v", first)
	}
	if first.City != nil || first.AreaType != nil {
		t.Fatalf("expected empty optional fields to stay NULL, got %+v", first)
	}
	if q.params[1].Status != "down" {
		t.Fatalf("expected down status, got %q", q.params[1].Status)
	}
}

func TestRunImportTowers_Errors(t *testing.T) {
	failing := source.Func("file:towers.json", func(context.Context) ([]network.Tower, error) {
		return nil, source.ErrTransport
	})
	if err := runImportTowers(context.Background(), failing, &fakeUpserter{}, &bytes.Buffer{}); !errors.Is(err, source.ErrTransport) {
		t.Fatalf("expected transport error, got %v", err)
	}

	ok := source.Func("file:towers.json", func(context.Context) ([]network.Tower, error) {
		return []network.Tower{{ID: "101"}}, nil
	})
	if err := runImportTowers(context.Background(), ok, &fakeUpserter{err: errors.New("boom")}, &bytes.Buffer{}); err == nil {
		t.Fatal("expected upsert error")
	}
}
