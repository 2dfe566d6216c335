package network

import (
	"encoding/json"
	"testing"
	"time"
)

func TestEventIDs_StableAcrossRebuilds(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	rec := CallRecord{Timestamp: at, Lat: 40.7, Lng: -74.0, SignalStrength: 62, Dropped: true, CellID: "101"}

	a, b := NewCall(rec), NewCall(rec)
	if a.ID == "" || a.ID != b.ID {
		t.Fatalf("expected stable id, got %q and %q", a.ID, b.ID)
	}
	rec.Dropped = false
	if NewCall(rec).ID == a.ID {
		t.Fatal("expected placed and dropped calls to have different ids")
	}
	if a.Message != "Call dropped on 101 (signal 62%)" {
		t.Fatalf("unexpected message %q", a.Message)
	}
}

func TestEvents_MarshalTypeTag(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	recovery := 20 * time.Minute
	events := []Event{
		NewCall(CallRecord{Timestamp: at, CellID: "101"}),
		NewTowerStatus(Tower{ID: "101", Name: "Harbor", Status: TowerUp}, at, &recovery),
		NewAlert("101", at, true, "Call drop rate on Harbor back to normal"),
		NewAnomaly("101", "Low SINR", "SINR degraded", "3", "run-1", "", at),
	}
	want := []EventType{EventCallPlaced, EventTowerUp, EventAlertResolved, EventAnomalyDetected}

	for i, e := range events {
		b, err := json.Marshal(e)
		if err != nil {
			t.Fatalf("marshal %d: %v", i, err)
		}
		var m map[string]any
		if err := json.Unmarshal(b, &m); err != nil {
			t.Fatalf("unmarshal %d: %v", i, err)
		}
		if m["type"] != string(want[i]) || m["id"] != e.EventID() || m["cell_id"] != "101" {
			t.Fatalf("event %d: unexpected json %s", i, b)
		}
	}

	b, _ := json.Marshal(events[1])
	var status map[string]any
	_ = json.Unmarshal(b, &status)
	if status["recovery_time"] != 20.0 || status["message"] != "Harbor is now online and operational." {
		t.Fatalf("unexpected tower-up json %s", b)
	}
}

func TestNewRemediation(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	ev, ok := NewRemediation(RemediationRecord{EventType: "remediation-verified", EventTime: at, TowerID: "101"})
	if !ok || ev.Stage != StageVerified || ev.Type() != EventRemediationVerified || ev.CellID != "101" {
		t.Fatalf("unexpected remediation %+v", ev)
	}
	if ev.Message != "Network remediation verified" {
		t.Fatalf("unexpected message %q", ev.Message)
	}
	if _, ok := NewRemediation(RemediationRecord{EventType: "rolled-back", EventTime: at}); ok {
		t.Fatal("expected unknown stage to be rejected")
	}
}

func TestNewAnomaly_PrefixesType(t *testing.T) {
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	if got := NewAnomaly("7", "Low RSRP", "RSRP -118 dBm", "", "", "", at).Message; got != "Low RSRP: RSRP -118 dBm" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := NewAnomaly("7", "Low RSRP", "Low RSRP: RSRP -118 dBm", "", "", "", at).Message; got != "Low RSRP: RSRP -118 dBm" {
		t.Fatalf("expected no double prefix, got %q", got)
	}
}
