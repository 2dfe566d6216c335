package sqlcgen

import "time"

type Tower struct {
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
	LastDown      *time.Time
}

type CallRecord struct {
	ID             int64
	Timestamp      time.Time
	Lat            float64
	Lng            float64
	SignalStrength int32
	IsDropped      bool
	CellID         *string
}

type RemediationEvent struct {
	ID        int64
	EventType string
	EventTime time.Time
	TowerID   string
}

type AnomalyEvent struct {
	ID             int64
	EventTime      time.Time
	CellID         *string
	Band           *string
	AnomalyType    *string
	Message        string
	SourceID       *string
	RecommendedFix *string
}

// TowerCluster is one row of get_tower_clusters(). DropRate is a fraction.
type TowerCluster struct {
	CellID       string
	Name         *string
	Lat          float64
	Lng          float64
	TotalCalls   int64
	DroppedCalls int64
	DropRate     float64
	LastDown     *time.Time
	MgmtHost     *string
}
