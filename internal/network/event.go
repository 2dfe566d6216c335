package network

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	EventCallPlaced           EventType = "call-placed"
	EventCallDropped          EventType = "call-dropped"
	EventTowerUp              EventType = "tower-up"
	EventTowerDown            EventType = "tower-down"
	EventAlertTriggered       EventType = "alert-triggered"
	EventAlertResolved        EventType = "alert-resolved"
	EventRemediationStarted   EventType = "remediation-started"
	EventRemediationProposed  EventType = "remediation-proposed"
	EventRemediationExecuting EventType = "remediation-executing"
	EventRemediationVerified  EventType = "remediation-verified"
	EventRemediationCompleted EventType = "remediation-completed"
	EventAnomalyDetected      EventType = "anomaly-detected"
)

// Event is one entry of the live feed. The concrete variants are Call,
// TowerStatus, Alert, Remediation and Anomaly; each carries only the fields
// relevant to its kind.
type Event interface {
	Type() EventType
	EventID() string
	Time() time.Time
	Cell() string
	Text() string

	isEvent()
}

// eventNamespace scopes the name-based event IDs so the same record keeps the
// same ID across polls.
var eventNamespace = uuid.MustParse("5d3f7c1e-2b8a-4f0e-9c61-7a2d9e4b8f10")

func eventID(kind EventType, cell string, at time.Time, parts ...string) string {
	var b strings.Builder
	b.WriteString(string(kind))
	b.WriteByte('|')
	b.WriteString(cell)
	b.WriteByte('|')
	b.WriteString(strconv.FormatInt(at.UnixNano(), 10))
	for _, p := range parts {
		b.WriteByte('|')
		b.WriteString(p)
	}
	return uuid.NewSHA1(eventNamespace, []byte(b.String())).String()
}

// Header holds the fields every event variant shares.
type Header struct {
	ID        string    `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	CellID    string    `json:"cell_id,omitempty"`
	Message   string    `json:"message"`
}

func (h Header) EventID() string { return h.ID }
func (h Header) Time() time.Time { return h.Timestamp }
func (h Header) Cell() string    { return h.CellID }
func (h Header) Text() string    { return h.Message }

type Location struct {
	Lat float64 `json:"lat"`
	Lng float64 `json:"lng"`
}

// Call is a call-placed or call-dropped event.
type Call struct {
	Header
	Dropped        bool     `json:"-"`
	Location       Location `json:"location"`
	SignalStrength int      `json:"signal_strength"`
}

func (c Call) Type() EventType {
	if c.Dropped {
		return EventCallDropped
	}
	return EventCallPlaced
}

func (Call) isEvent() {}

func (c Call) MarshalJSON() ([]byte, error) {
	type alias Call
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{c.Type(), alias(c)})
}

// NewCall builds the feed event for a call record.
func NewCall(r CallRecord) Call {
	c := Call{
		Dropped:        r.Dropped,
		Location:       Location{Lat: r.Lat, Lng: r.Lng},
		SignalStrength: r.SignalStrength,
	}
	cell := r.CellID
	where := cell
	if where == "" {
		where = "unknown cell"
	}
	msg := fmt.Sprintf("Call connected on %s (signal %d%%)", where, r.SignalStrength)
	if r.Dropped {
		msg = fmt.Sprintf("Call dropped on %s (signal %d%%)", where, r.SignalStrength)
	}
	c.Header = Header{
		Timestamp: r.Timestamp,
		CellID:    cell,
		Message:   msg,
	}
	c.ID = eventID(c.Type(), cell, r.Timestamp, strconv.FormatFloat(r.Lat, 'f', 6, 64), strconv.FormatFloat(r.Lng, 'f', 6, 64))
	return c
}

// TowerStatus is a tower-up or tower-down transition.
type TowerStatus struct {
	Header
	Up bool `json:"-"`
	// RecoveryMinutes is set on tower-up events that end an outage.
	RecoveryMinutes *float64 `json:"recovery_time,omitempty"`
}

func (t TowerStatus) Type() EventType {
	if t.Up {
		return EventTowerUp
	}
	return EventTowerDown
}

func (TowerStatus) isEvent() {}

func (t TowerStatus) MarshalJSON() ([]byte, error) {
	type alias TowerStatus
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{t.Type(), alias(t)})
}

// NewTowerStatus builds a status transition event for tower.
func NewTowerStatus(tower Tower, at time.Time, recovery *time.Duration) TowerStatus {
	ev := TowerStatus{Up: tower.IsUp()}
	msg := fmt.Sprintf("%s has gone offline.", tower.Name)
	if ev.Up {
		msg = fmt.Sprintf("%s is now online and operational.", tower.Name)
		if recovery != nil {
			m := recovery.Minutes()
			ev.RecoveryMinutes = &m
		}
	}
	ev.Header = Header{Timestamp: at, CellID: tower.ID, Message: msg}
	ev.ID = eventID(ev.Type(), tower.ID, at)
	return ev
}

// Alert is an alert-triggered or alert-resolved event.
type Alert struct {
	Header
	Resolved bool `json:"-"`
}

func (a Alert) Type() EventType {
	if a.Resolved {
		return EventAlertResolved
	}
	return EventAlertTriggered
}

func (Alert) isEvent() {}

func (a Alert) MarshalJSON() ([]byte, error) {
	type alias Alert
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{a.Type(), alias(a)})
}

// NewAlert builds an alert event.
func NewAlert(cell string, at time.Time, resolved bool, msg string) Alert {
	a := Alert{Resolved: resolved}
	a.Header = Header{Timestamp: at, CellID: cell, Message: msg}
	a.ID = eventID(a.Type(), cell, at, msg)
	return a
}

type RemediationStage string

const (
	StageStarted   RemediationStage = "started"
	StageProposed  RemediationStage = "proposed"
	StageExecuting RemediationStage = "executing"
	StageVerified  RemediationStage = "verified"
	StageCompleted RemediationStage = "completed"
)

// ParseRemediationStage accepts the bare stage ("verified") or the event tag
// form ("remediation-verified").
func ParseRemediationStage(raw string) (RemediationStage, bool) {
	s := strings.ToLower(strings.TrimSpace(raw))
	s = strings.TrimPrefix(s, "remediation-")
	switch RemediationStage(s) {
	case StageStarted, StageProposed, StageExecuting, StageVerified, StageCompleted:
		return RemediationStage(s), true
	default:
		return "", false
	}
}

// Remediation is a lifecycle marker for an automated fix on a cell.
type Remediation struct {
	Header
	Stage RemediationStage `json:"stage"`
}

func (r Remediation) Type() EventType {
	return EventType("remediation-" + string(r.Stage))
}

func (Remediation) isEvent() {}

func (r Remediation) MarshalJSON() ([]byte, error) {
	type alias Remediation
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{r.Type(), alias(r)})
}

var remediationMessages = map[RemediationStage]string{
	StageStarted:   "Network remediation process started",
	StageProposed:  "Network remediation proposed",
	StageExecuting: "Network remediation executing",
	StageVerified:  "Network remediation verified",
	StageCompleted: "Network remediation process completed",
}

// NewRemediation converts a wire record. ok is false for unknown stages.
func NewRemediation(r RemediationRecord) (Remediation, bool) {
	stage, ok := ParseRemediationStage(r.EventType)
	if !ok {
		return Remediation{}, false
	}
	cell := r.TowerID.String()
	ev := Remediation{Stage: stage}
	ev.Header = Header{Timestamp: r.EventTime, CellID: cell, Message: remediationMessages[stage]}
	ev.ID = eventID(ev.Type(), cell, r.EventTime)
	return ev, true
}

// Anomaly is an anomaly-detected event.
type Anomaly struct {
	Header
	AnomalyType    string `json:"anomaly_type"`
	Band           string `json:"band,omitempty"`
	SourceID       string `json:"source_id,omitempty"`
	RecommendedFix string `json:"recommended_fix,omitempty"`
}

func (Anomaly) Type() EventType { return EventAnomalyDetected }

func (Anomaly) isEvent() {}

func (a Anomaly) MarshalJSON() ([]byte, error) {
	type alias Anomaly
	return json.Marshal(struct {
		Type EventType `json:"type"`
		alias
	}{a.Type(), alias(a)})
}

// NewAnomaly builds an anomaly event; the message is "<type>: <text>".
func NewAnomaly(cell, anomalyType, text, band, sourceID, fix string, at time.Time) Anomaly {
	a := Anomaly{
		AnomalyType:    anomalyType,
		Band:           band,
		SourceID:       sourceID,
		RecommendedFix: fix,
	}
	msg := text
	if anomalyType != "" && !strings.HasPrefix(text, anomalyType+":") {
		msg = anomalyType + ": " + text
	}
	a.Header = Header{Timestamp: at, CellID: cell, Message: msg}
	a.ID = eventID(a.Type(), cell, at, anomalyType, band, sourceID, text)
	return a
}
