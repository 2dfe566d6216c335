package network

import (
	"encoding/json"
	"testing"
)

func TestFlexString_DecodesStringsAndNumbers(t *testing.T) {
	var v struct {
		A FlexString `json:"a"`
		B FlexString `json:"b"`
		C FlexString `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 101, "b": " 7 ", "c": null}`), &v); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if v.A != "101" || v.B != "7" || v.C != "" {
		t.Fatalf("unexpected values %+v", v)
	}
	if err := json.Unmarshal([]byte(`{"a": true}`), &v); err == nil {
		t.Fatal("expected error for boolean id")
	}
}

func TestTowerRecord_ToTower(t *testing.T) {
	var records []TowerRecord
	raw := `[
  {"cell_id": 101, "name": "Harbor", "lat": 40.7, "lon": -74.0, "bands": [3, "7"], "adjacent_cells": [102], "mgmt_host": " enb-101.ran.local "},
  {"id": "102", "lat": 40.8, "lng": -73.9, "status": "DOWN"},
  {"id": "103", "lat": 40.9, "lng": -73.8, "max_capacity": 0},
  {"name": "no id", "lat": 1, "lng": 2},
  {"id": "105", "lat": 1}
]`
	if err := json.Unmarshal([]byte(raw), &records); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}

	harbor, ok := records[0].ToTower()
	if !ok || harbor.ID != "101" || harbor.Name != "Harbor" || harbor.Lng != -74.0 || !harbor.IsUp() {
		t.Fatalf("unexpected tower %+v", harbor)
	}
	if len(harbor.Bands) != 2 || harbor.Bands[0] != "3" || harbor.AdjacentCells[0] != "102" || harbor.MgmtHost != "enb-101.ran.local" {
		t.Fatalf("unexpected tower details %+v", harbor)
	}

	down, ok := records[1].ToTower()
	if !ok || down.IsUp() || down.Name != "Cell 102" {
		t.Fatalf("expected case-insensitive down status and default name, got %+v", down)
	}
	if full, _ := records[2].ToTower(); full.IsUp() {
		t.Fatalf("expected zero capacity to mark the tower down")
	}
	if _, ok := records[3].ToTower(); ok {
		t.Fatal("expected record without id to be rejected")
	}
	if _, ok := records[4].ToTower(); ok {
		t.Fatal("expected record without longitude to be rejected")
	}
}
