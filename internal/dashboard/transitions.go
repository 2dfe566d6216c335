package dashboard

import (
	"fmt"
	"time"

	"ranpulse/core-go/internal/health"
	"ranpulse/core-go/internal/network"
)

type towerState struct {
	up        bool
	downSince *time.Time
	highDrop  bool
}

// statusChange is a tower going down or coming back.
type statusChange struct {
	CellID string
	Name   string
	Up     bool
	At     time.Time
}

// tracker turns consecutive tower snapshots into tower-up/down and alert
// events. Towers seen for the first time set a baseline and emit nothing.
type tracker struct {
	prev    map[string]towerState
	history []network.Event
	limit   int
}

func newTracker(limit int) *tracker {
	if limit <= 0 {
		limit = 100
	}
	return &tracker{prev: make(map[string]towerState), limit: limit}
}

func (tr *tracker) observe(towers []network.Tower, now time.Time) []statusChange {
	var changes []statusChange
	next := make(map[string]towerState, len(towers))

	for _, t := range towers {
		cur := towerState{
			up:        t.IsUp(),
			downSince: t.DownSince,
			highDrop:  t.DropRate != nil && *t.DropRate >= health.DegradedDropRate,
		}
		prev, seen := tr.prev[t.ID]
		if !cur.up && cur.downSince == nil {
			if seen && !prev.up && prev.downSince != nil {
				cur.downSince = prev.downSince
			} else {
				at := now
				cur.downSince = &at
			}
		}
		next[t.ID] = cur
		if !seen {
			continue
		}

		switch {
		case prev.up && !cur.up:
			at := now
			if t.DownSince != nil && !t.DownSince.After(now) {
				at = *t.DownSince
			}
			tr.add(network.NewTowerStatus(t, at, nil))
			changes = append(changes, statusChange{CellID: t.ID, Name: t.Name, Up: false, At: at})
		case !prev.up && cur.up:
			var recovery *time.Duration
			if prev.downSince != nil {
				d := now.Sub(*prev.downSince)
				recovery = &d
			}
			tr.add(network.NewTowerStatus(t, now, recovery))
			changes = append(changes, statusChange{CellID: t.ID, Name: t.Name, Up: true, At: now})
		}

		switch {
		case cur.highDrop && !prev.highDrop:
			tr.add(network.NewAlert(t.ID, now, false,
				fmt.Sprintf("High call drop rate on %s: %.1f%%", t.Name, *t.DropRate)))
		case !cur.highDrop && prev.highDrop:
			tr.add(network.NewAlert(t.ID, now, true,
				fmt.Sprintf("Call drop rate on %s back to normal", t.Name)))
		}
	}

	tr.prev = next
	return changes
}

func (tr *tracker) add(e network.Event) {
	tr.history = append(tr.history, e)
	if over := len(tr.history) - tr.limit; over > 0 {
		tr.history = append(tr.history[:0:0], tr.history[over:]...)
	}
}

func (tr *tracker) events() []network.Event {
	out := make([]network.Event, len(tr.history))
	copy(out, tr.history)
	return out
}
