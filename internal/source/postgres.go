package source

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/sqlcgen"
)

// Queries is the subset of sqlcgen.Queries the Postgres sources read from.
type Queries interface {
	GetTowerClusters(ctx context.Context) ([]sqlcgen.TowerCluster, error)
	ListTowers(ctx context.Context) ([]sqlcgen.Tower, error)
	ListCallRecords(ctx context.Context, limit int32) ([]sqlcgen.CallRecord, error)
	ListRemediationEvents(ctx context.Context, limit int32) ([]sqlcgen.RemediationEvent, error)
	ListAnomalyEvents(ctx context.Context, limit int32) ([]sqlcgen.AnomalyEvent, error)
	GetAvgRecoveryTime(ctx context.Context) (*float64, error)
}

// dbDownDropRate is the drop-rate percentage above which a clustered tower is
// reported down.
const dbDownDropRate = 5.0

const anomalyEventLimit = 1000

// PostgresTowers derives towers from get_tower_clusters(). When no calls have
// been recorded yet the static towers table is served instead.
func PostgresTowers(q Queries) Source[[]network.Tower] {
	return Func("postgres", func(ctx context.Context) ([]network.Tower, error) {
		clusters, err := q.GetTowerClusters(ctx)
		if err != nil {
			return nil, fmt.Errorf("%w: get_tower_clusters: %v", ErrTransport, err)
		}
		if len(clusters) == 0 {
			rows, err := q.ListTowers(ctx)
			if err != nil {
				return nil, fmt.Errorf("%w: list towers: %v", ErrTransport, err)
			}
			return towersFromRegistry(rows), nil
		}
		return towersFromClusters(clusters), nil
	})
}

func towersFromClusters(clusters []sqlcgen.TowerCluster) []network.Tower {
	towers := make([]network.Tower, 0, len(clusters))
	for i, c := range clusters {
		id := c.CellID
		if id == "" {
			id = strconv.Itoa(i + 1)
		}
		name := towerLetterName(i)
		if c.Name != nil && *c.Name != "" {
			name = *c.Name
		}
		rate := c.DropRate * 100
		dropped := int(c.DroppedCalls)
		t := network.Tower{
			ID:           id,
			Name:         name,
			Lat:          c.Lat,
			Lng:          c.Lng,
			Status:       network.TowerUp,
			DroppedCalls: &dropped,
			DropRate:     &rate,
		}
		if c.MgmtHost != nil {
			t.MgmtHost = *c.MgmtHost
		}
		if rate > dbDownDropRate {
			t.Status = network.TowerDown
			if c.LastDown != nil {
				since := c.LastDown.UTC()
				t.DownSince = &since
			}
		}
		towers = append(towers, t)
	}
	return towers
}

func towersFromRegistry(rows []sqlcgen.Tower) []network.Tower {
	towers := make([]network.Tower, 0, len(rows))
	for _, r := range rows {
		t := network.Tower{
			ID:            r.CellID,
			Name:          "Cell " + r.CellID,
			Lat:           r.Lat,
			Lng:           r.Lng,
			Status:        network.TowerUp,
			Bands:         r.Bands,
			AdjacentCells: r.AdjacentCells,
		}
		if r.Name != nil && *r.Name != "" {
			t.Name = *r.Name
		}
		if r.Status == string(network.TowerDown) || (r.MaxCapacity != nil && *r.MaxCapacity == 0) {
			t.Status = network.TowerDown
			if r.LastDown != nil {
				since := r.LastDown.UTC()
				t.DownSince = &since
			}
		}
		if r.MaxCapacity != nil {
			c := int(*r.MaxCapacity)
			t.MaxCapacity = &c
		}
		if r.City != nil {
			t.City = *r.City
		}
		if r.AreaType != nil {
			t.AreaType = *r.AreaType
		}
		if r.MgmtHost != nil {
			t.MgmtHost = *r.MgmtHost
		}
		towers = append(towers, t)
	}
	return towers
}

// PostgresCalls serves the latest limit call records.
func PostgresCalls(q Queries, limit int) Source[[]network.CallRecord] {
	return Func("postgres", func(ctx context.Context) ([]network.CallRecord, error) {
		rows, err := q.ListCallRecords(ctx, int32(limit))
		if err != nil {
			return nil, fmt.Errorf("%w: list call records: %v", ErrTransport, err)
		}
		out := make([]network.CallRecord, 0, len(rows))
		for _, r := range rows {
			c := network.CallRecord{
				Timestamp:      r.Timestamp.UTC(),
				Lat:            r.Lat,
				Lng:            r.Lng,
				SignalStrength: int(r.SignalStrength),
				Dropped:        r.IsDropped,
			}
			if r.CellID != nil {
				c.CellID = *r.CellID
			}
			out = append(out, c)
		}
		return out, nil
	})
}

// PostgresRemediation serves the latest limit remediation events. Rows with an
// unknown stage are skipped.
func PostgresRemediation(q Queries, limit int, log zerolog.Logger) Source[[]network.Remediation] {
	return Func("postgres", func(ctx context.Context) ([]network.Remediation, error) {
		rows, err := q.ListRemediationEvents(ctx, int32(limit))
		if err != nil {
			return nil, fmt.Errorf("%w: list remediation events: %v", ErrTransport, err)
		}
		out := make([]network.Remediation, 0, len(rows))
		for _, r := range rows {
			ev, ok := network.NewRemediation(network.RemediationRecord{
				EventType: r.EventType,
				EventTime: r.EventTime.UTC(),
				TowerID:   network.FlexString(r.TowerID),
			})
			if !ok {
				log.Warn().Int64("id", r.ID).Str("event_type", r.EventType).Msg("unknown remediation stage skipped")
				continue
			}
			out = append(out, ev)
		}
		return out, nil
	})
}

// PostgresAnomalies serves anomaly-detected rows of the events table.
func PostgresAnomalies(q Queries) Source[[]anomaly.Record] {
	return Func("postgres", func(ctx context.Context) ([]anomaly.Record, error) {
		rows, err := q.ListAnomalyEvents(ctx, anomalyEventLimit)
		if err != nil {
			return nil, fmt.Errorf("%w: list anomaly events: %v", ErrTransport, err)
		}
		now := time.Now().UTC()
		out := make([]anomaly.Record, 0, len(rows))
		for _, r := range rows {
			if r.CellID == nil || *r.CellID == "" {
				continue
			}
			ts := r.EventTime.UTC()
			if ts.After(now) {
				ts = now
			}
			out = append(out, anomaly.Record{
				CellID:         *r.CellID,
				Band:           deref(r.Band),
				Type:           deref(r.AnomalyType),
				Message:        r.Message,
				SourceID:       deref(r.SourceID),
				RecommendedFix: deref(r.RecommendedFix),
				Timestamp:      ts,
			})
		}
		return out, nil
	})
}

// PostgresRecovery serves get_avg_recovery_time() in seconds; 0 when no outage
// has recovered yet.
func PostgresRecovery(q Queries) Source[float64] {
	return Func("postgres", func(ctx context.Context) (float64, error) {
		v, err := q.GetAvgRecoveryTime(ctx)
		if err != nil {
			return 0, fmt.Errorf("%w: get_avg_recovery_time: %v", ErrTransport, err)
		}
		if v == nil {
			return 0, nil
		}
		return *v, nil
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// towerLetterName returns "Tower A", "Tower B", ... for cluster index i.
func towerLetterName(i int) string {
	if i < 26 {
		return "Tower " + string(rune('A'+i))
	}
	return "Tower " + strconv.Itoa(i+1)
}
