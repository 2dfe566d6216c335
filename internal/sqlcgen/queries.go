package sqlcgen

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DBTX matches the minimal interface needed from pgxpool.Pool or pgx.Tx.
type DBTX interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, optionsAndArgs ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, optionsAndArgs ...any) pgx.Row
}

type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

const listTowers = `-- name: ListTowers :many
SELECT cell_id,
       name,
       lat,
       lng,
       status,
       max_capacity,
       bands,
       city,
       area_type,
       adjacent_cells,
       mgmt_host,
       last_down
FROM towers
ORDER BY cell_id ASC
`

func (q *Queries) ListTowers(ctx context.Context) ([]Tower, error) {
	rows, err := q.db.Query(ctx, listTowers)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Tower
	for rows.Next() {
		var i Tower
		if err := rows.Scan(
			&i.CellID,
			&i.Name,
			&i.Lat,
			&i.Lng,
			&i.Status,
			&i.MaxCapacity,
			&i.Bands,
			&i.City,
			&i.AreaType,
			&i.AdjacentCells,
			&i.MgmtHost,
			&i.LastDown,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const upsertTower = `-- name: UpsertTower :exec
INSERT INTO towers (cell_id, name, lat, lng, status, max_capacity, bands, city, area_type, adjacent_cells, mgmt_host)
VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7::text[], '{}'), $8, $9, COALESCE($10::text[], '{}'), $11)
ON CONFLICT (cell_id) DO UPDATE
SET name = EXCLUDED.name,
    lat = EXCLUDED.lat,
    lng = EXCLUDED.lng,
    status = EXCLUDED.status,
    max_capacity = EXCLUDED.max_capacity,
    bands = EXCLUDED.bands,
    city = EXCLUDED.city,
    area_type = EXCLUDED.area_type,
    adjacent_cells = EXCLUDED.adjacent_cells,
    mgmt_host = EXCLUDED.mgmt_host,
    last_down = CASE
      WHEN EXCLUDED.status = 'down' AND towers.status <> 'down' THEN now()
      ELSE towers.last_down
    END,
    updated_at = now()
`

type UpsertTowerParams struct {
	CellID        string
	Name          *string
	Lat           float64
	Lng           float64
	Status        string
	MaxCapacity   *int32
	Bands         []string
	City          *string
	AreaType      *string
	AdjacentCells []string
	MgmtHost      *string
}

func (q *Queries) UpsertTower(ctx context.Context, arg UpsertTowerParams) error {
	_, err := q.db.Exec(ctx, upsertTower,
		arg.CellID,
		arg.Name,
		arg.Lat,
		arg.Lng,
		arg.Status,
		arg.MaxCapacity,
		arg.Bands,
		arg.City,
		arg.AreaType,
		arg.AdjacentCells,
		arg.MgmtHost,
	)
	return err
}

const listCallRecords = `-- name: ListCallRecords :many
SELECT id,
       "timestamp",
       lat,
       lng,
       signal_strength,
       is_dropped,
       cell_id
FROM call_records
ORDER BY "timestamp" DESC, id DESC
LIMIT $1
`

func (q *Queries) ListCallRecords(ctx context.Context, limit int32) ([]CallRecord, error) {
	rows, err := q.db.Query(ctx, listCallRecords, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []CallRecord
	for rows.Next() {
		var i CallRecord
		if err := rows.Scan(&i.ID, &i.Timestamp, &i.Lat, &i.Lng, &i.SignalStrength, &i.IsDropped, &i.CellID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertCallRecord = `-- name: InsertCallRecord :one
INSERT INTO call_records ("timestamp", lat, lng, signal_strength, is_dropped, cell_id)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING id
`

type InsertCallRecordParams struct {
	Timestamp      time.Time
	Lat            float64
	Lng            float64
	SignalStrength int32
	IsDropped      bool
	CellID         *string
}

func (q *Queries) InsertCallRecord(ctx context.Context, arg InsertCallRecordParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertCallRecord, arg.Timestamp, arg.Lat, arg.Lng, arg.SignalStrength, arg.IsDropped, arg.CellID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listRemediationEvents = `-- name: ListRemediationEvents :many
SELECT id,
       event_type,
       event_time,
       tower_id
FROM remediation_events
ORDER BY event_time DESC, id DESC
LIMIT $1
`

func (q *Queries) ListRemediationEvents(ctx context.Context, limit int32) ([]RemediationEvent, error) {
	rows, err := q.db.Query(ctx, listRemediationEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []RemediationEvent
	for rows.Next() {
		var i RemediationEvent
		if err := rows.Scan(&i.ID, &i.EventType, &i.EventTime, &i.TowerID); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertRemediationEvent = `-- name: InsertRemediationEvent :one
INSERT INTO remediation_events (event_type, event_time, tower_id)
VALUES ($1, $2, $3)
RETURNING id
`

type InsertRemediationEventParams struct {
	EventType string
	EventTime time.Time
	TowerID   string
}

func (q *Queries) InsertRemediationEvent(ctx context.Context, arg InsertRemediationEventParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertRemediationEvent, arg.EventType, arg.EventTime, arg.TowerID)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const listAnomalyEvents = `-- name: ListAnomalyEvents :many
SELECT id,
       event_time,
       cell_id,
       band,
       anomaly_type,
       message,
       source_id,
       recommended_fix
FROM events
WHERE event_type = 'anomaly-detected'
ORDER BY event_time DESC, id DESC
LIMIT $1
`

func (q *Queries) ListAnomalyEvents(ctx context.Context, limit int32) ([]AnomalyEvent, error) {
	rows, err := q.db.Query(ctx, listAnomalyEvents, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []AnomalyEvent
	for rows.Next() {
		var i AnomalyEvent
		if err := rows.Scan(
			&i.ID,
			&i.EventTime,
			&i.CellID,
			&i.Band,
			&i.AnomalyType,
			&i.Message,
			&i.SourceID,
			&i.RecommendedFix,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const insertAnomalyEvent = `-- name: InsertAnomalyEvent :one
INSERT INTO events (event_type, event_time, cell_id, band, anomaly_type, message, source_id, recommended_fix)
VALUES ('anomaly-detected', $1, $2, $3, $4, $5, $6, $7)
RETURNING id
`

type InsertAnomalyEventParams struct {
	EventTime      time.Time
	CellID         string
	Band           *string
	AnomalyType    string
	Message        string
	SourceID       *string
	RecommendedFix *string
}

func (q *Queries) InsertAnomalyEvent(ctx context.Context, arg InsertAnomalyEventParams) (int64, error) {
	row := q.db.QueryRow(ctx, insertAnomalyEvent,
		arg.EventTime,
		arg.CellID,
		arg.Band,
		arg.AnomalyType,
		arg.Message,
		arg.SourceID,
		arg.RecommendedFix,
	)
	var id int64
	err := row.Scan(&id)
	return id, err
}

const getTowerClusters = `-- name: GetTowerClusters :many
SELECT cell_id,
       name,
       lat,
       lng,
       total_calls,
       dropped_calls,
       drop_rate,
       last_down,
       mgmt_host
FROM get_tower_clusters()
`

func (q *Queries) GetTowerClusters(ctx context.Context) ([]TowerCluster, error) {
	rows, err := q.db.Query(ctx, getTowerClusters)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []TowerCluster
	for rows.Next() {
		var i TowerCluster
		if err := rows.Scan(
			&i.CellID,
			&i.Name,
			&i.Lat,
			&i.Lng,
			&i.TotalCalls,
			&i.DroppedCalls,
			&i.DropRate,
			&i.LastDown,
			&i.MgmtHost,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getAvgRecoveryTime = `-- name: GetAvgRecoveryTime :one
SELECT get_avg_recovery_time()
`

// GetAvgRecoveryTime returns the mean outage duration in seconds, or nil when
// no outage has recovered yet.
func (q *Queries) GetAvgRecoveryTime(ctx context.Context) (*float64, error) {
	row := q.db.QueryRow(ctx, getAvgRecoveryTime)
	var seconds *float64
	err := row.Scan(&seconds)
	return seconds, err
}

const openTowerOutage = `-- name: OpenTowerOutage :exec
INSERT INTO tower_outages (cell_id, down_at)
VALUES ($1, $2)
`

func (q *Queries) OpenTowerOutage(ctx context.Context, cellID string, downAt time.Time) error {
	_, err := q.db.Exec(ctx, openTowerOutage, cellID, downAt)
	return err
}

const closeTowerOutage = `-- name: CloseTowerOutage :execrows
UPDATE tower_outages
SET recovered_at = $2
WHERE cell_id = $1
  AND recovered_at IS NULL
  AND down_at <= $2
`

func (q *Queries) CloseTowerOutage(ctx context.Context, cellID string, recoveredAt time.Time) (int64, error) {
	tag, err := q.db.Exec(ctx, closeTowerOutage, cellID, recoveredAt)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
