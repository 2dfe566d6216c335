package network

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

type Status string

const (
	TowerUp   Status = "up"
	TowerDown Status = "down"
)

// Tower is a radio site as rendered on the map. Towers are rebuilt from the
// active source on every poll; only ID ties one poll's tower to the next.
type Tower struct {
	ID            string     `json:"id"`
	Name          string     `json:"name"`
	Lat           float64    `json:"lat"`
	Lng           float64    `json:"lng"`
	Status        Status     `json:"status"`
	DownSince     *time.Time `json:"down_since,omitempty"`
	DroppedCalls  *int       `json:"dropped_calls,omitempty"`
	DropRate      *float64   `json:"drop_rate,omitempty"`
	Bands         []string   `json:"bands,omitempty"`
	City          string     `json:"city,omitempty"`
	AreaType      string     `json:"area_type,omitempty"`
	MaxCapacity   *int       `json:"max_capacity,omitempty"`
	AdjacentCells []string   `json:"adjacent_cells,omitempty"`
	MgmtHost      string     `json:"mgmt_host,omitempty"`
}

func (t Tower) IsUp() bool {
	return t.Status == TowerUp
}

// CallRecord is a single call observation.
type CallRecord struct {
	Timestamp      time.Time `json:"timestamp"`
	Lat            float64   `json:"lat"`
	Lng            float64   `json:"lng"`
	SignalStrength int       `json:"signal_strength"`
	Dropped        bool      `json:"is_dropped"`
	CellID         string    `json:"cell_id,omitempty"`
}

// FlexString decodes from either a JSON string or a JSON number. Cell and
// band identifiers arrive in both shapes depending on the producer.
type FlexString string

func (f *FlexString) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = ""
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		*f = FlexString(strings.TrimSpace(s))
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string {
	return string(f)
}

// TowerRecord is the towers JSON wire shape.
type TowerRecord struct {
	CellID        FlexString   `json:"cell_id"`
	ID            FlexString   `json:"id"`
	Name          string       `json:"name"`
	Lat           *float64     `json:"lat"`
	Lon           *float64     `json:"lon"`
	Lng           *float64     `json:"lng"`
	Status        string       `json:"status"`
	MaxCapacity   *int         `json:"max_capacity"`
	Bands         []FlexString `json:"bands"`
	City          string       `json:"city"`
	AreaType      string       `json:"area_type"`
	AdjacentCells []FlexString `json:"adjacent_cells"`
	MgmtHost      string       `json:"mgmt_host"`
}

// ToTower converts a wire record. ok is false when the record has no usable
// identifier or coordinates.
func (r TowerRecord) ToTower() (Tower, bool) {
	id := r.CellID.String()
	if id == "" {
		id = r.ID.String()
	}
	if id == "" || r.Lat == nil {
		return Tower{}, false
	}
	lng := r.Lng
	if lng == nil {
		lng = r.Lon
	}
	if lng == nil {
		return Tower{}, false
	}

	status := TowerUp
	if strings.EqualFold(strings.TrimSpace(r.Status), string(TowerDown)) {
		status = TowerDown
	}
	if r.MaxCapacity != nil && *r.MaxCapacity == 0 {
		status = TowerDown
	}

	name := strings.TrimSpace(r.Name)
	if name == "" {
		name = "Cell " + id
	}

	t := Tower{
		ID:          id,
		Name:        name,
		Lat:         *r.Lat,
		Lng:         *lng,
		Status:      status,
		City:        r.City,
		AreaType:    r.AreaType,
		MaxCapacity: r.MaxCapacity,
		MgmtHost:    strings.TrimSpace(r.MgmtHost),
	}
	for _, b := range r.Bands {
		if s := b.String(); s != "" {
			t.Bands = append(t.Bands, s)
		}
	}
	for _, c := range r.AdjacentCells {
		if s := c.String(); s != "" {
			t.AdjacentCells = append(t.AdjacentCells, s)
		}
	}
	return t, true
}

// AnomalyRecord is the anomalies JSON/API wire shape.
type AnomalyRecord struct {
	CellID         FlexString `json:"cell_id"`
	Band           FlexString `json:"band"`
	AnomalyType    string     `json:"anomaly_type"`
	Anomaly        string     `json:"anomaly"`
	SourceID       FlexString `json:"source_id"`
	CreationDate   string     `json:"creation_date"`
	RecommendedFix string     `json:"recommended_fix,omitempty"`
}

// RemediationRecord is a remediation lifecycle row keyed by tower/cell id.
type RemediationRecord struct {
	EventType string     `json:"event_type"`
	EventTime time.Time  `json:"event_time"`
	TowerID   FlexString `json:"tower_id"`
}
