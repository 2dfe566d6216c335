package health

import (
	"fmt"
	"math"
	"time"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
)

type State string

const (
	StateHealthy    State = "healthy"
	StateAnomalous  State = "anomalous"
	StateRemediated State = "remediated"
)

// LatestVerifications returns, per cell, the newest remediation-verified
// timestamp.
func LatestVerifications(events []network.Remediation) map[string]time.Time {
	out := make(map[string]time.Time)
	for _, e := range events {
		if e.Stage != network.StageVerified || e.CellID == "" {
			continue
		}
		if cur, ok := out[e.CellID]; !ok || e.Timestamp.After(cur) {
			out[e.CellID] = e.Timestamp
		}
	}
	return out
}

// Classify derives the health state of one cell. Without a verification the
// cell is anomalous whenever it has anomalies. With one, only an anomaly
// strictly newer than the latest verification makes it anomalous again; a
// tie counts as remediated.
func Classify(cellID string, anomalies map[string]anomaly.Processed, verifications map[string]time.Time) State {
	info, hasAnomaly := anomalies[cellID]
	verifiedAt, verified := verifications[cellID]

	if !verified {
		if hasAnomaly {
			return StateAnomalous
		}
		return StateHealthy
	}
	if hasAnomaly && info.LatestDate.After(verifiedAt) {
		return StateAnomalous
	}
	return StateRemediated
}

// IsHealthy treats remediated cells as healthy.
func (s State) IsHealthy() bool {
	return s == StateHealthy || s == StateRemediated
}

type MarkerSeverity string

const (
	MarkerOK       MarkerSeverity = "ok"
	MarkerDegraded MarkerSeverity = "degraded"
	MarkerDown     MarkerSeverity = "down"
)

// DegradedDropRate is the drop-rate percentage from which an up tower is
// drawn as degraded.
const DegradedDropRate = 2.0

// Marker returns the map marker severity for a tower.
func Marker(t network.Tower) MarkerSeverity {
	if !t.IsUp() {
		return MarkerDown
	}
	if t.DropRate != nil && *t.DropRate >= DegradedDropRate {
		return MarkerDegraded
	}
	return MarkerOK
}

// Summary backs the dashboard status header.
type Summary struct {
	TotalTowers        int     `json:"total_towers"`
	ActiveTowers       int     `json:"active_towers"`
	DownTowers         int     `json:"down_towers"`
	AnomalousTowers    int     `json:"anomalous_towers"`
	RemediatedTowers   int     `json:"remediated_towers"`
	HealthPercentage   int     `json:"health_percentage"`
	HealthBand         string  `json:"health_band"`
	AvgRecoverySeconds float64 `json:"avg_recovery_seconds"`
	AvgRecovery        string  `json:"avg_recovery"`
}

// Summarize computes header stats. states is keyed by tower ID.
func Summarize(towers []network.Tower, states map[string]State, avgRecoverySeconds float64) Summary {
	s := Summary{TotalTowers: len(towers), AvgRecoverySeconds: avgRecoverySeconds}
	for _, t := range towers {
		if t.IsUp() {
			s.ActiveTowers++
		}
		switch states[t.ID] {
		case StateAnomalous:
			s.AnomalousTowers++
		case StateRemediated:
			s.RemediatedTowers++
		}
	}
	s.DownTowers = s.TotalTowers - s.ActiveTowers
	if s.TotalTowers > 0 {
		s.HealthPercentage = int(math.Floor(float64(s.ActiveTowers) / float64(s.TotalTowers) * 100))
	}
	s.HealthBand = Band(s.HealthPercentage)
	s.AvgRecovery = FormatRecovery(avgRecoverySeconds)
	return s
}

// Band buckets a health percentage the way the header colours it.
func Band(pct int) string {
	switch {
	case pct >= 90:
		return "good"
	case pct >= 70:
		return "fair"
	default:
		return "poor"
	}
}

// FormatRecovery renders a recovery time in seconds for humans.
func FormatRecovery(seconds float64) string {
	if seconds <= 0 {
		return "N/A"
	}
	if seconds < 60 {
		return fmt.Sprintf("%d seconds", int(math.Round(seconds)))
	}

	minutes := seconds / 60
	if minutes < 60 {
		whole := int(math.Floor(minutes))
		rem := int(math.Round(math.Mod(seconds, 60)))
		if rem == 60 {
			whole++
			rem = 0
		}
		if rem == 0 {
			if whole == 1 {
				return "1 minute"
			}
			return fmt.Sprintf("%d minutes", whole)
		}
		return fmt.Sprintf("%dm %ds", whole, rem)
	}

	hours := int(math.Floor(minutes / 60))
	rem := int(math.Round(math.Mod(minutes, 60)))
	if rem == 60 {
		hours++
		rem = 0
	}
	if rem == 0 {
		if hours == 1 {
			return "1 hour"
		}
		return fmt.Sprintf("%d hours", hours)
	}
	return fmt.Sprintf("%dh %dm", hours, rem)
}
