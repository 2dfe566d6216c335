package anomaly

import (
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/network"
)

// Record is a normalized anomaly observation on a cell.
type Record struct {
	CellID         string
	Band           string
	Type           string
	Message        string
	SourceID       string
	RecommendedFix string
	Timestamp      time.Time
}

var zonelessLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var zonedLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999Z07",
	"2006-01-02T15:04:05.999999999Z07",
}

// ParseTimestamp parses an anomaly creation date. Values without zone
// information are read as UTC.
func ParseTimestamp(raw string) (time.Time, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	for _, layout := range zonelessLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t, true
		}
	}
	return time.Time{}, false
}

// Normalize converts wire records into Records. Malformed and future-dated
// timestamps are clamped to now; records without a cell id are skipped.
func Normalize(log zerolog.Logger, raw []network.AnomalyRecord, now time.Time) []Record {
	out := make([]Record, 0, len(raw))
	for _, r := range raw {
		cell := r.CellID.String()
		if cell == "" {
			log.Warn().Str("anomaly_type", r.AnomalyType).Msg("anomaly without cell id skipped")
			continue
		}

		ts, ok := ParseTimestamp(r.CreationDate)
		switch {
		case !ok:
			log.Warn().Str("cell_id", cell).Str("creation_date", r.CreationDate).Msg("invalid anomaly timestamp, using current time")
			ts = now
		case ts.After(now):
			log.Warn().Str("cell_id", cell).Str("creation_date", r.CreationDate).Msg("anomaly timestamp is in the future, using current time")
			ts = now
		}

		out = append(out, Record{
			CellID:         cell,
			Band:           r.Band.String(),
			Type:           strings.TrimSpace(r.AnomalyType),
			Message:        strings.TrimSpace(r.Anomaly),
			SourceID:       r.SourceID.String(),
			RecommendedFix: strings.TrimSpace(r.RecommendedFix),
			Timestamp:      ts,
		})
	}
	return out
}

// FromEvents recovers records from anomaly-detected feed events, as stored by
// the realtime database backend.
func FromEvents(events []network.Anomaly) []Record {
	out := make([]Record, 0, len(events))
	for _, e := range events {
		if e.CellID == "" {
			continue
		}
		out = append(out, Record{
			CellID:         e.CellID,
			Band:           e.Band,
			Type:           e.AnomalyType,
			Message:        e.Message,
			SourceID:       e.SourceID,
			RecommendedFix: e.RecommendedFix,
			Timestamp:      e.Timestamp,
		})
	}
	return out
}

// ToEvents converts records into anomaly-detected feed events.
func ToEvents(records []Record) []network.Event {
	out := make([]network.Event, 0, len(records))
	for _, r := range records {
		out = append(out, network.NewAnomaly(r.CellID, r.Type, r.Message, r.Band, r.SourceID, r.RecommendedFix, r.Timestamp))
	}
	return out
}
