package source

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
)

const (
	mockCallCount    = 500
	mockDropChance   = 0.15
	mockMinCluster   = 5
	mockMaxTowers    = 10
	mockDownDropRate = 10.0
	// mockJitter keeps every call of a site inside one rounded cluster.
	mockJitter = 0.004
)

var (
	mockCells        = []string{"CELL_A", "CELL_B", "CELL_C", "CELL_D", "CELL_E"}
	mockAnomalyTypes = []string{"Throughput Drop", "Low RSRP", "UEs Spike/Drop", "Low SINR"}
	mockAnomalyText  = map[string]string{
		"Throughput Drop": "downlink throughput below baseline",
		"Low RSRP":        "reference signal power under -110 dBm",
		"UEs Spike/Drop":  "connected UE count changed sharply",
		"Low SINR":        "SINR degraded below 3 dB",
	}
	mockBands = []string{"1", "3", "7", "20"}
)

// Mock generates a consistent synthetic network. Everything is generated once
// on first use and served from memory afterwards, so consecutive polls agree.
type Mock struct {
	mu    sync.Mutex
	rng   *rand.Rand
	nowFn func() time.Time

	generated   bool
	calls       []network.CallRecord
	towers      []network.Tower
	anomalies   []anomaly.Record
	remediation []network.Remediation
}

func NewMock(seed uint64) *Mock {
	return &Mock{
		rng:   rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		nowFn: time.Now,
	}
}

func (m *Mock) ensure() {
	if m.generated {
		return
	}
	m.generated = true
	now := m.nowFn().UTC()

	m.calls = m.generateCalls(now)
	m.towers = m.clusterTowers(now)
	m.anomalies = m.generateAnomalies(now)
	m.remediation = m.generateRemediation()
}

func (m *Mock) generateCalls(now time.Time) []network.CallRecord {
	type site struct{ lat, lng float64 }
	sites := make(map[string]site, len(mockCells))
	for _, c := range mockCells {
		// Site centres sit exactly on the 0.01 degree grid used for clustering.
		sites[c] = site{
			lat: math.Round((32+m.rng.Float64()*10)*100) / 100,
			lng: math.Round((-115+m.rng.Float64()*30)*100) / 100,
		}
	}

	calls := make([]network.CallRecord, 0, mockCallCount)
	for i := 0; i < mockCallCount; i++ {
		cell := mockCells[m.rng.IntN(len(mockCells))]
		s := sites[cell]
		calls = append(calls, network.CallRecord{
			Timestamp:      now.Add(-time.Duration(m.rng.Int64N(int64(24 * time.Hour)))),
			Lat:            s.lat + (m.rng.Float64()*2-1)*mockJitter,
			Lng:            s.lng + (m.rng.Float64()*2-1)*mockJitter,
			SignalStrength: m.rng.IntN(101),
			Dropped:        m.rng.Float64() < mockDropChance,
			CellID:         cell,
		})
	}
	sort.Slice(calls, func(i, j int) bool { return calls[i].Timestamp.After(calls[j].Timestamp) })
	return calls
}

type cluster struct {
	key        string
	lat, lng   float64
	calls      int
	dropped    int
	cellCounts map[string]int
}

// ClusterCalls groups calls by location rounded to two decimals and turns the
// busiest clusters (at least five calls, at most ten clusters) into towers. A
// tower is down when more than downDropRate percent of its calls dropped.
func ClusterCalls(calls []network.CallRecord, downDropRate float64) []network.Tower {
	byKey := make(map[string]*cluster)
	for _, c := range calls {
		lat := math.Round(c.Lat*100) / 100
		lng := math.Round(c.Lng*100) / 100
		key := fmt.Sprintf("%.2f,%.2f", lat, lng)
		cl, ok := byKey[key]
		if !ok {
			cl = &cluster{key: key, lat: lat, lng: lng, cellCounts: map[string]int{}}
			byKey[key] = cl
		}
		cl.calls++
		if c.Dropped {
			cl.dropped++
		}
		if c.CellID != "" {
			cl.cellCounts[c.CellID]++
		}
	}

	list := make([]*cluster, 0, len(byKey))
	for _, cl := range byKey {
		if cl.calls >= mockMinCluster {
			list = append(list, cl)
		}
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].calls != list[j].calls {
			return list[i].calls > list[j].calls
		}
		return list[i].key < list[j].key
	})
	if len(list) > mockMaxTowers {
		list = list[:mockMaxTowers]
	}

	used := make(map[string]bool, len(list))
	towers := make([]network.Tower, 0, len(list))
	for i, cl := range list {
		id := dominantCell(cl.cellCounts)
		if id == "" || used[id] {
			id = fmt.Sprintf("%d", i+1)
		}
		used[id] = true

		rate := float64(cl.dropped) / float64(cl.calls) * 100
		dropped := cl.dropped
		t := network.Tower{
			ID:           id,
			Name:         towerLetterName(i),
			Lat:          cl.lat,
			Lng:          cl.lng,
			Status:       network.TowerUp,
			DroppedCalls: &dropped,
			DropRate:     &rate,
		}
		if rate > downDropRate {
			t.Status = network.TowerDown
		}
		towers = append(towers, t)
	}
	return towers
}

func dominantCell(counts map[string]int) string {
	best, bestN := "", 0
	for cell, n := range counts {
		if n > bestN || (n == bestN && cell < best) {
			best, bestN = cell, n
		}
	}
	return best
}

func (m *Mock) clusterTowers(now time.Time) []network.Tower {
	towers := ClusterCalls(m.calls, mockDownDropRate)
	for i := range towers {
		if !towers[i].IsUp() {
			since := now.Add(-time.Duration(m.rng.Int64N(int64(12 * time.Hour))))
			towers[i].DownSince = &since
		}
	}
	return towers
}

func (m *Mock) generateAnomalies(now time.Time) []anomaly.Record {
	var out []anomaly.Record
	for i, cell := range mockCells[:3] {
		n := 1 + m.rng.IntN(3)
		for j := 0; j < n; j++ {
			typ := mockAnomalyTypes[m.rng.IntN(len(mockAnomalyTypes))]
			// Anomalies of cell i fall inside hour window [i+2, i+3) before now.
			at := now.Add(-time.Duration(i+2)*time.Hour + time.Duration(m.rng.Int64N(int64(time.Hour))))
			out = append(out, anomaly.Record{
				CellID:    cell,
				Band:      mockBands[m.rng.IntN(len(mockBands))],
				Type:      typ,
				Message:   mockAnomalyText[typ],
				SourceID:  fmt.Sprintf("mock-%d-%d", i, j),
				Timestamp: at.Truncate(time.Second),
			})
		}
	}
	// A fresh anomaly on the second cell after its remediation was verified.
	out = append(out, anomaly.Record{
		CellID:    mockCells[1],
		Band:      mockBands[0],
		Type:      "Low SINR",
		Message:   mockAnomalyText["Low SINR"],
		SourceID:  "mock-recurrence",
		Timestamp: now.Add(-20 * time.Minute).Truncate(time.Second),
	})
	return out
}

func (m *Mock) generateRemediation() []network.Remediation {
	latest := make(map[string]time.Time)
	for _, a := range m.anomalies {
		if a.Timestamp.After(latest[a.CellID]) {
			latest[a.CellID] = a.Timestamp
		}
	}

	var out []network.Remediation
	add := func(cell string, stage network.RemediationStage, at time.Time) {
		ev, ok := network.NewRemediation(network.RemediationRecord{
			EventType: string(stage),
			EventTime: at,
			TowerID:   network.FlexString(cell),
		})
		if ok {
			out = append(out, ev)
		}
	}

	// Full lifecycle on the first two cells, verified after their older
	// anomalies. The second cell's recurrence above is newer than its
	// verification, so it reads as anomalous again.
	for _, cell := range mockCells[:2] {
		base := latest[cell]
		if cell == mockCells[1] {
			base = latest[cell].Add(-time.Hour)
		}
		add(cell, network.StageStarted, base.Add(2*time.Minute))
		add(cell, network.StageProposed, base.Add(4*time.Minute))
		add(cell, network.StageExecuting, base.Add(6*time.Minute))
		add(cell, network.StageVerified, base.Add(10*time.Minute))
		add(cell, network.StageCompleted, base.Add(11*time.Minute))
	}
	// A remediation in progress on a cell without anomalies.
	start := m.nowFn().UTC().Add(-15 * time.Minute).Truncate(time.Second)
	add(mockCells[3], network.StageStarted, start)
	add(mockCells[3], network.StageProposed, start.Add(3*time.Minute))

	sort.Slice(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })
	return out
}

func (m *Mock) Calls(limit int) Source[[]network.CallRecord] {
	return Func("mock", func(context.Context) ([]network.CallRecord, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.ensure()
		n := len(m.calls)
		if limit > 0 && limit < n {
			n = limit
		}
		out := make([]network.CallRecord, n)
		copy(out, m.calls[:n])
		return out, nil
	})
}

func (m *Mock) Towers() Source[[]network.Tower] {
	return Func("mock", func(context.Context) ([]network.Tower, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.ensure()
		out := make([]network.Tower, len(m.towers))
		copy(out, m.towers)
		return out, nil
	})
}

func (m *Mock) Anomalies() Source[[]anomaly.Record] {
	return Func("mock", func(context.Context) ([]anomaly.Record, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.ensure()
		out := make([]anomaly.Record, len(m.anomalies))
		copy(out, m.anomalies)
		return out, nil
	})
}

func (m *Mock) Remediation(limit int) Source[[]network.Remediation] {
	return Func("mock", func(context.Context) ([]network.Remediation, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		m.ensure()
		n := len(m.remediation)
		if limit > 0 && limit < n {
			n = limit
		}
		out := make([]network.Remediation, n)
		copy(out, m.remediation[:n])
		return out, nil
	})
}

// Recovery returns a fresh average between 18 and 30 minutes, in seconds.
func (m *Mock) Recovery() Source[float64] {
	return Func("mock", func(context.Context) (float64, error) {
		m.mu.Lock()
		defer m.mu.Unlock()
		return (18 + m.rng.Float64()*12) * 60, nil
	})
}
