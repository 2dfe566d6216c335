// Package feed merges the dashboard's independent event streams into the
// single live feed.
package feed

import (
	"sort"

	"ranpulse/core-go/internal/network"
)

// AllCells is the filter value that keeps every event.
const AllCells = "all"

// Merge concatenates the streams and orders the result newest first. Events
// with equal timestamps are ordered by type tag, then cell id, then event id,
// so the same inputs always produce the same feed.
func Merge(streams ...[]network.Event) []network.Event {
	n := 0
	for _, s := range streams {
		n += len(s)
	}
	out := make([]network.Event, 0, n)
	for _, s := range streams {
		for _, e := range s {
			if e != nil {
				out = append(out, e)
			}
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return less(out[i], out[j])
	})
	return out
}

func less(a, b network.Event) bool {
	ta, tb := a.Time(), b.Time()
	if !ta.Equal(tb) {
		return ta.After(tb)
	}
	if a.Type() != b.Type() {
		return a.Type() < b.Type()
	}
	if a.Cell() != b.Cell() {
		return a.Cell() < b.Cell()
	}
	return a.EventID() < b.EventID()
}

// FilterByCell keeps the events of one cell. An empty cell or AllCells
// returns events unchanged.
func FilterByCell(events []network.Event, cell string) []network.Event {
	if cell == "" || cell == AllCells {
		return events
	}
	out := make([]network.Event, 0)
	for _, e := range events {
		if e.Cell() == cell {
			out = append(out, e)
		}
	}
	return out
}

// CellIDs returns the sorted distinct non-empty cell ids in events.
func CellIDs(events []network.Event) []string {
	seen := make(map[string]struct{})
	out := make([]string, 0)
	for _, e := range events {
		c := e.Cell()
		if c == "" {
			continue
		}
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Limit truncates events to at most n entries; n <= 0 means no limit.
func Limit(events []network.Event, n int) []network.Event {
	if n <= 0 || len(events) <= n {
		return events
	}
	return events[:n]
}
