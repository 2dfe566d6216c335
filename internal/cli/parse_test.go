package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"ranpulse/core-go/internal/anomalyparse"
	"ranpulse/core-go/internal/sqlcgen"
)

type fakeInserter struct {
	rows []sqlcgen.InsertAnomalyEventParams
}

func (f *fakeInserter) InsertAnomalyEvent(_ context.Context, arg sqlcgen.InsertAnomalyEventParams) (int64, error) {
	f.rows = append(f.rows, arg)
	return int64(len(f.rows)), nil
}

func TestRunParseAnomalies(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "payload.json")
	payload := `[
  {"id": "run-1", "creation_date": "2025-03-01T10:00:00", "event": "Cell ID 12, Band 3:\n- Low SINR: SINR averaged 2 dB\nRecommended fix: Re-tilt antenna sector B."},
  {"id": "run-2", "event": {"not": "text"}}
]`
	if err := os.WriteFile(in, []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	outJSON := filepath.Join(dir, "anomalies.json")
	outCSV := filepath.Join(dir, "anomalies.csv")

	ins := &fakeInserter{}
	var out bytes.Buffer
	if err := runParseAnomalies(context.Background(), in, outJSON, outCSV, ins, &out); err != nil {
		t.Fatalf("runParseAnomalies: %v", err)
	}
	if !strings.Contains(out.String(), "Parsed 1 anomalies from 2 records") {
		t.Fatalf("unexpected summary %q", out.String())
	}

	b, err := os.ReadFile(outJSON)
	if err != nil {
		t.Fatal(err)
	}
	var rows []anomalyparse.Row
	if err := json.Unmarshal(b, &rows); err != nil {
		t.Fatalf("decode json output: %v", err)
	}
	if len(rows) != 1 || rows[0].CellID != 12 || rows[0].SourceID != "run-1" || rows[0].RecommendedFix != "Re-tilt antenna sector B" {
		t.Fatalf("unexpected rows %+v", rows)
	}

	csv, err := os.ReadFile(outCSV)
	if err != nil {
		t.Fatal(err)
	}
	if lines := strings.Split(strings.TrimSpace(string(csv)), "\n"); len(lines) != 2 || !strings.HasPrefix(lines[0], "cell_id,band,") {
		t.Fatalf("unexpected csv %q", csv)
	}

	if len(ins.rows) != 1 {
		t.Fatalf("expected one inserted row, got %d", len(ins.rows))
	}
	got := ins.rows[0]
	if got.CellID != "12" || *got.Band != "3" || got.AnomalyType != anomalyparse.TypeLowSINR || *got.SourceID != "run-1" {
		t.Fatalf("unexpected insert params %+v", got)
	}
	if want := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC); !got.EventTime.Equal(want) {
		t.Fatalf("expected event time %s, got %s", want, got.EventTime)
	}
}

func TestRunParseAnomalies_MissingInput(t *testing.T) {
	dir := t.TempDir()
	err := runParseAnomalies(context.Background(), filepath.Join(dir, "nope.json"), filepath.Join(dir, "a.json"), filepath.Join(dir, "a.csv"), nil, &bytes.Buffer{})
	if err == nil {
		t.Fatal("expected error for missing input")
	}
}

func TestAnomalyEventParams_UndatedRowsUseNow(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	p := anomalyEventParams(anomalyparse.Row{CellID: 4, Band: 7, AnomalyType: anomalyparse.TypeLowRSRP, Anomaly: "Low RSRP: weak"}, now)
	if !p.EventTime.Equal(now) || p.SourceID != nil || p.RecommendedFix != nil {
		t.Fatalf("unexpected params %+v", p)
	}

	p = anomalyEventParams(anomalyparse.Row{CellID: 4, CreationDate: "2030-01-01T00:00:00Z"}, now)
	if !p.EventTime.Equal(now) {
		t.Fatalf("expected future date clamped to now, got %s", p.EventTime)
	}
}
