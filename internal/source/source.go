// Package source holds the interchangeable data-source adapters behind the
// dashboard streams: JSON (HTTP or file), Postgres and generated mock data.
package source

import (
	"context"
	"errors"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/network"
)

var (
	// ErrTransport covers network failures, unreadable files and non-2xx
	// HTTP responses.
	ErrTransport = errors.New("source transport error")
	// ErrSchema covers responses that are not the expected JSON shape.
	ErrSchema = errors.New("source schema error")
)

// Stream names, also used as metric labels.
const (
	StreamTowers      = "towers"
	StreamAnomalies   = "anomalies"
	StreamCalls       = "calls"
	StreamRemediation = "remediation"
	StreamRecovery    = "recovery"
)

// Source fetches the current value of one stream.
type Source[T any] interface {
	Fetch(ctx context.Context) (T, error)
	Name() string
}

type funcSource[T any] struct {
	name string
	fn   func(ctx context.Context) (T, error)
}

func (f funcSource[T]) Fetch(ctx context.Context) (T, error) { return f.fn(ctx) }
func (f funcSource[T]) Name() string                         { return f.name }

// Func adapts a function into a Source.
func Func[T any](name string, fn func(ctx context.Context) (T, error)) Source[T] {
	return funcSource[T]{name: name, fn: fn}
}

// Empty always returns the zero value of T.
func Empty[T any]() Source[T] {
	return Func("empty", func(context.Context) (T, error) {
		var zero T
		return zero, nil
	})
}

// Set is the active source for every stream.
type Set struct {
	Towers      Source[[]network.Tower]
	Anomalies   Source[[]anomaly.Record]
	Calls       Source[[]network.CallRecord]
	Remediation Source[[]network.Remediation]
	Recovery    Source[float64]

	// Realtime is set when the streams are backed by Postgres and can be
	// refreshed from LISTEN/NOTIFY instead of polling.
	Realtime bool
	// TowersFromJSON selects the slower JSON polling interval for towers.
	TowersFromJSON bool
}

// Describe names the source chain of every stream.
func (s Set) Describe() map[string]string {
	out := make(map[string]string, 5)
	if s.Towers != nil {
		out[StreamTowers] = s.Towers.Name()
	}
	if s.Anomalies != nil {
		out[StreamAnomalies] = s.Anomalies.Name()
	}
	if s.Calls != nil {
		out[StreamCalls] = s.Calls.Name()
	}
	if s.Remediation != nil {
		out[StreamRemediation] = s.Remediation.Name()
	}
	if s.Recovery != nil {
		out[StreamRecovery] = s.Recovery.Name()
	}
	return out
}
