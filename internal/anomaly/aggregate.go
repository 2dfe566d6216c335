package anomaly

import (
	"sort"
	"time"
)

// Processed is the per-cell anomaly aggregate.
type Processed struct {
	CellID        string    `json:"cell_id"`
	Count         int       `json:"count"`
	Types         []string  `json:"types"`
	LatestAnomaly string    `json:"latest_anomaly"`
	LatestDate    time.Time `json:"latest_date"`
}

// Aggregate folds records into a per-cell map. Types keep first-seen order
// without duplicates; the latest fields only move forward on a strictly newer
// timestamp, so LatestDate is always the maximum seen for the cell.
func Aggregate(records []Record) map[string]Processed {
	out := make(map[string]Processed)
	for _, r := range records {
		existing, ok := out[r.CellID]
		if !ok {
			p := Processed{
				CellID:        r.CellID,
				Count:         1,
				LatestAnomaly: r.Message,
				LatestDate:    r.Timestamp,
			}
			if r.Type != "" {
				p.Types = []string{r.Type}
			} else {
				p.Types = []string{}
			}
			out[r.CellID] = p
			continue
		}

		existing.Count++
		if r.Type != "" && !containsString(existing.Types, r.Type) {
			existing.Types = append(existing.Types, r.Type)
		}
		if r.Timestamp.After(existing.LatestDate) {
			existing.LatestAnomaly = r.Message
			existing.LatestDate = r.Timestamp
		}
		out[r.CellID] = existing
	}
	return out
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// HasAnomaly reports whether the cell has at least one aggregated anomaly.
func HasAnomaly(cellID string, m map[string]Processed) bool {
	_, ok := m[cellID]
	return ok
}

// Info returns the aggregate for cellID, if any.
func Info(cellID string, m map[string]Processed) (Processed, bool) {
	p, ok := m[cellID]
	return p, ok
}

// Sorted returns the aggregates ordered by latest anomaly, newest first.
func Sorted(m map[string]Processed) []Processed {
	out := make([]Processed, 0, len(m))
	for _, p := range m {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].LatestDate.Equal(out[j].LatestDate) {
			return out[i].LatestDate.After(out[j].LatestDate)
		}
		return out[i].CellID < out[j].CellID
	})
	return out
}
