package health

import (
	"fmt"
	"testing"
	"time"

	"pgregory.net/rapid"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
)

func TestProperty_ClassificationFollowsLatestTimestamps(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)

		var records []anomaly.Record
		nAnomalies := rapid.IntRange(0, 5).Draw(t, "nAnomalies")
		var latestAnomaly time.Time
		for i := 0; i < nAnomalies; i++ {
			at := base.Add(time.Duration(rapid.IntRange(0, 1000).Draw(t, fmt.Sprintf("a_%d", i))) * time.Minute)
			records = append(records, anomaly.Record{CellID: "c", Timestamp: at})
			if at.After(latestAnomaly) {
				latestAnomaly = at
			}
		}

		var events []network.Remediation
		nVerified := rapid.IntRange(0, 5).Draw(t, "nVerified")
		var latestVerified time.Time
		for i := 0; i < nVerified; i++ {
			at := base.Add(time.Duration(rapid.IntRange(0, 1000).Draw(t, fmt.Sprintf("v_%d", i))) * time.Minute)
			events = append(events, verified("c", at))
			if at.After(latestVerified) {
				latestVerified = at
			}
		}

		got := Classify("c", anomaly.Aggregate(records), LatestVerifications(events))

		switch {
		case nVerified == 0 && nAnomalies == 0:
			if got != StateHealthy {
				t.Fatalf("expected healthy, got %s", got)
			}
		case nVerified == 0:
			if got != StateAnomalous {
				t.Fatalf("expected anomalous without verification, got %s", got)
			}
		case nAnomalies > 0 && latestAnomaly.After(latestVerified):
			if got != StateAnomalous {
				t.Fatalf("expected anomalous when anomaly %v is after verification %v, got %s", latestAnomaly, latestVerified, got)
			}
		default:
			if got != StateRemediated {
				t.Fatalf("expected remediated, got %s", got)
			}
		}
	})
}
