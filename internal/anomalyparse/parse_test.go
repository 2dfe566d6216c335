package anomalyparse

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

const report = `Summary of detected anomalies
Cell ID 12, Band 3:
- Throughput Drop: throughput fell 45% below baseline.
- Low SINR:   SINR averaged 2 dB ;
Recommended fix: Re-tilt antenna sector B.
2. Cell ID 7, Band 1
• UE Spike/Drop: connected UEs doubled
LLM_FORMAT_ERROR (raw): Low RSRP: RSRP -118 dBm LLM failed to format: garbage
Remediation: Reset the baseband unit.
- Throughput Drop: throughput fell 45% below baseline.
`

func TestParse_Report(t *testing.T) {
	rows := Parse(report)
	if len(rows) != 5 {
		t.Fatalf("expected 5 rows, got %d: %+v", len(rows), rows)
	}

	first := rows[0]
	if first.CellID != 12 || first.Band != 3 || first.AnomalyType != TypeThroughputDrop {
		t.Fatalf("unexpected first row %+v", first)
	}
	if first.Anomaly != "Throughput Drop: throughput fell 45% below baseline" {
		t.Fatalf("unexpected cleaned text %q", first.Anomaly)
	}
	if first.RecommendedFix != "Re-tilt antenna sector B" {
		t.Fatalf("expected fix to apply to the block, got %q", first.RecommendedFix)
	}
	if rows[1].Anomaly != "Low SINR: SINR averaged 2 dB" {
		t.Fatalf("unexpected SINR text %q", rows[1].Anomaly)
	}

	ue := rows[2]
	if ue.CellID != 7 || ue.Band != 1 || ue.AnomalyType != TypeUEsSpikeDrop {
		t.Fatalf("unexpected UE row %+v", ue)
	}
	rsrp := rows[3]
	if rsrp.AnomalyType != TypeLowRSRP || rsrp.Anomaly != "Low RSRP: RSRP -118 dBm" {
		t.Fatalf("unexpected inline error row %+v", rsrp)
	}
	if ue.RecommendedFix != "Reset the baseband unit" || rsrp.RecommendedFix != "Reset the baseband unit" {
		t.Fatalf("expected remediation to apply to block, got %q / %q", ue.RecommendedFix, rsrp.RecommendedFix)
	}

	// Throughput drop on cell 7 arrives after the fix line.
	if rows[4].CellID != 7 || rows[4].RecommendedFix != "" {
		t.Fatalf("unexpected trailing row %+v", rows[4])
	}
}

func TestParse_IgnoresLinesBeforeHeaderAndDedupes(t *testing.T) {
	text := `Low SINR: orphan line
Cell ID 1, Band Band 8 (FORMAT ERROR):
Low SINR: poor
Low SINR: poor.
`
	rows := Parse(text)
	if len(rows) != 1 {
		t.Fatalf("expected one deduplicated row, got %+v", rows)
	}
	if rows[0].CellID != 1 || rows[0].Band != 8 {
		t.Fatalf("unexpected header parse %+v", rows[0])
	}
}

func TestLoadItems_Shapes(t *testing.T) {
	arr, err := LoadItems(strings.NewReader(`[{"id":1,"event":"x"},{"id":2,"Event":"y"}]`))
	if err != nil || len(arr) != 2 {
		t.Fatalf("array: got %d items, err=%v", len(arr), err)
	}

	obj, err := LoadItems(strings.NewReader(`{"id":"abc","event":"x"}`))
	if err != nil || len(obj) != 1 {
		t.Fatalf("object: got %d items, err=%v", len(obj), err)
	}

	nd, err := LoadItems(strings.NewReader("{\"id\":1,\"event\":\"a\"}\n\n{\"id\":2,\"event\":\"b\"}\n"))
	if err != nil || len(nd) != 2 {
		t.Fatalf("ndjson: got %d items, err=%v", len(nd), err)
	}

	if _, err := LoadItems(strings.NewReader("not json")); err == nil {
		t.Fatalf("expected error for garbage input")
	}
}

func TestFlatten_AttachesMetadata(t *testing.T) {
	items, err := LoadItems(strings.NewReader(`[
		{"id": 9001, "creation_date": "2025-03-01 10:00:00", "event": "Cell ID 4, Band 2:\nLow RSRP: weak coverage"},
		{"id": 9002, "event": 42}
	]`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	rows := Flatten(items)
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %+v", rows)
	}
	if rows[0].SourceID != "9001" || rows[0].CreationDate != "2025-03-01 10:00:00" {
		t.Fatalf("unexpected metadata %+v", rows[0])
	}
}

func TestWriteJSONAndCSV(t *testing.T) {
	rows := []Row{{CellID: 4, Band: 2, AnomalyType: TypeLowRSRP, Anomaly: "Low RSRP: weak, coverage", SourceID: "9001"}}

	var js bytes.Buffer
	if err := WriteJSON(&js, rows); err != nil {
		t.Fatalf("json: %v", err)
	}
	var decoded []map[string]any
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if decoded[0]["cell_id"] != float64(4) || decoded[0]["anomaly_type"] != TypeLowRSRP {
		t.Fatalf("unexpected json %s", js.String())
	}

	var empty bytes.Buffer
	if err := WriteJSON(&empty, nil); err != nil || strings.TrimSpace(empty.String()) != "[]" {
		t.Fatalf("expected empty array, got %q err=%v", empty.String(), err)
	}

	var out bytes.Buffer
	if err := WriteCSV(&out, rows); err != nil {
		t.Fatalf("csv: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if lines[0] != "cell_id,band,anomaly_type,anomaly,recommended_fix,source_id,creation_date" {
		t.Fatalf("unexpected header %q", lines[0])
	}
	if lines[1] != `4,2,Low RSRP,"Low RSRP: weak, coverage",,9001,` {
		t.Fatalf("unexpected row %q", lines[1])
	}
}
