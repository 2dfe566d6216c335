package anomaly

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"
)

var anomalyTypes = []string{"Throughput Drop", "Low RSRP", "UEs Spike/Drop", "Low SINR"}

func genRecords(t *rapid.T) []Record {
	n := rapid.IntRange(0, 40).Draw(t, "n")
	base := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]Record, 0, n)
	for i := 0; i < n; i++ {
		cell := fmt.Sprintf("%d", rapid.IntRange(1, 6).Draw(t, fmt.Sprintf("cell_%d", i)))
		typ := rapid.SampledFrom(anomalyTypes).Draw(t, fmt.Sprintf("type_%d", i))
		mins := rapid.IntRange(0, 600).Draw(t, fmt.Sprintf("mins_%d", i))
		out = append(out, Record{
			CellID:    cell,
			Type:      typ,
			Message:   fmt.Sprintf("msg-%d", i),
			Timestamp: base.Add(time.Duration(mins) * time.Minute),
		})
	}
	return out
}

func TestProperty_CountMatchesInput(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		got := Aggregate(records)

		want := map[string]int{}
		for _, r := range records {
			want[r.CellID]++
		}
		if len(got) != len(want) {
			t.Fatalf("expected %d cells, got %d", len(want), len(got))
		}
		for cell, n := range want {
			if got[cell].Count != n {
				t.Fatalf("cell %s: expected count %d, got %d", cell, n, got[cell].Count)
			}
		}
	})
}

func TestProperty_TypesUniqueFirstSeenOrder(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		got := Aggregate(records)

		want := map[string][]string{}
		for _, r := range records {
			if !containsString(want[r.CellID], r.Type) {
				want[r.CellID] = append(want[r.CellID], r.Type)
			}
		}
		for cell, types := range want {
			gotTypes := got[cell].Types
			if len(gotTypes) != len(types) {
				t.Fatalf("cell %s: expected types %v, got %v", cell, types, gotTypes)
			}
			for i := range types {
				if gotTypes[i] != types[i] {
					t.Fatalf("cell %s: expected types %v, got %v", cell, types, gotTypes)
				}
			}
		}
	})
}

func TestProperty_LatestIsMaxAndOrderIndependent(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		records := genRecords(t)
		perm := rapid.Permutation(records).Draw(t, "perm")

		a := Aggregate(records)
		b := Aggregate(perm)

		for cell, p := range a {
			var latest time.Time
			msgs := map[string]bool{}
			for _, r := range records {
				if r.CellID != cell {
					continue
				}
				if r.Timestamp.After(latest) {
					latest = r.Timestamp
				}
			}
			for _, r := range records {
				if r.CellID == cell && r.Timestamp.Equal(latest) {
					msgs[r.Message] = true
				}
			}
			if !p.LatestDate.Equal(latest) {
				t.Fatalf("cell %s: latest %v, want max %v", cell, p.LatestDate, latest)
			}
			if !msgs[p.LatestAnomaly] {
				t.Fatalf("cell %s: latest anomaly %q not among records at max timestamp", cell, p.LatestAnomaly)
			}
			q := b[cell]
			if q.Count != p.Count || !q.LatestDate.Equal(p.LatestDate) {
				t.Fatalf("cell %s: aggregate differs under reordering: %+v vs %+v", cell, p, q)
			}
		}
	})
}
