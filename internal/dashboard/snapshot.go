package dashboard

import (
	"time"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/feed"
	"ranpulse/core-go/internal/health"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/oam"
)

// TowerView is a tower as the map renders it.
type TowerView struct {
	network.Tower
	Health  health.State          `json:"health"`
	Marker  health.MarkerSeverity `json:"marker"`
	Anomaly *anomaly.Processed    `json:"anomaly,omitempty"`
	Probe   *oam.Result           `json:"probe,omitempty"`
}

// Snapshot is the complete dashboard state at one instant.
type Snapshot struct {
	GeneratedAt time.Time           `json:"generated_at"`
	Sources     map[string]string   `json:"sources"`
	Towers      []TowerView         `json:"towers"`
	Anomalies   []anomaly.Processed `json:"anomalies"`
	Feed        []network.Event     `json:"feed"`
	Cells       []string            `json:"cells"`
	Summary     health.Summary      `json:"summary"`
}

// Tower returns the view of the tower with the given id.
func (s Snapshot) Tower(id string) (TowerView, bool) {
	for _, t := range s.Towers {
		if t.ID == id {
			return t, true
		}
	}
	return TowerView{}, false
}

// Input is the per-stream state a snapshot is built from.
type Input struct {
	Towers      []network.Tower
	Anomalies   anomaly.Snapshot
	Calls       []network.CallRecord
	Remediation []network.Remediation
	Recovery    float64
	Transitions []network.Event
	Probes      map[string]oam.Result
	Sources     map[string]string
}

// Build derives a snapshot. Health is re-evaluated from scratch and the feed
// is re-merged on every call.
func Build(in Input, now time.Time, feedLimit int) Snapshot {
	byCell := in.Anomalies.ByCell
	if byCell == nil {
		byCell = map[string]anomaly.Processed{}
	}
	verified := health.LatestVerifications(in.Remediation)

	views := make([]TowerView, 0, len(in.Towers))
	states := make(map[string]health.State, len(in.Towers))
	for _, t := range in.Towers {
		v := TowerView{
			Tower:  t,
			Health: health.Classify(t.ID, byCell, verified),
			Marker: health.Marker(t),
		}
		if info, ok := anomaly.Info(t.ID, byCell); ok {
			v.Anomaly = &info
		}
		if r, ok := in.Probes[t.ID]; ok {
			v.Probe = &r
		}
		states[t.ID] = v.Health
		views = append(views, v)
	}

	calls := make([]network.Event, 0, len(in.Calls))
	for _, c := range in.Calls {
		calls = append(calls, network.NewCall(c))
	}
	rem := make([]network.Event, 0, len(in.Remediation))
	for _, r := range in.Remediation {
		rem = append(rem, r)
	}
	merged := feed.Merge(calls, rem, anomaly.ToEvents(in.Anomalies.Records), in.Transitions)

	sources := in.Sources
	if sources == nil {
		sources = map[string]string{}
	}
	return Snapshot{
		GeneratedAt: now.UTC(),
		Sources:     sources,
		Towers:      views,
		Anomalies:   anomaly.Sorted(byCell),
		Feed:        feed.Limit(merged, feedLimit),
		Cells:       feed.CellIDs(merged),
		Summary:     health.Summarize(in.Towers, states, in.Recovery),
	}
}
