package source

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/notify"
)

// FallbackOptions carries the side channels a fallback reports through.
type FallbackOptions struct {
	Log      zerolog.Logger
	Metrics  *metrics.Metrics
	Notifier notify.Notifier
	// Title of the notification raised when the primary starts failing. An
	// empty title disables notifications for this chain.
	Title string
}

type fallback[T any] struct {
	stream    string
	primary   Source[T]
	secondary Source[T]
	opts      FallbackOptions

	failing atomic.Bool
}

// WithFallback returns a Source that answers from secondary whenever primary
// fails. Failures are logged and counted on every fetch; a notification is
// raised only when the primary goes from healthy to failing. There is no
// retry: the next fetch tries the primary again.
func WithFallback[T any](stream string, primary, secondary Source[T], opts FallbackOptions) Source[T] {
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	return &fallback[T]{stream: stream, primary: primary, secondary: secondary, opts: opts}
}

func (f *fallback[T]) Name() string {
	return f.primary.Name() + " > " + f.secondary.Name()
}

func (f *fallback[T]) Fetch(ctx context.Context) (T, error) {
	start := time.Now()
	v, err := f.primary.Fetch(ctx)
	if err == nil {
		f.opts.Metrics.ObserveSourcePoll(f.stream, f.primary.Name(), "ok")
		if f.failing.Swap(false) {
			f.opts.Log.Info().Str("stream", f.stream).Str("source", f.primary.Name()).Msg("primary source recovered")
		}
		return v, nil
	}
	if ctx.Err() != nil {
		return v, err
	}

	f.opts.Metrics.ObserveSourcePoll(f.stream, f.primary.Name(), "error")
	f.opts.Metrics.IncSourceFallback(f.stream)
	f.opts.Log.Warn().
		Err(err).
		Str("stream", f.stream).
		Str("source", f.primary.Name()).
		Str("fallback", f.secondary.Name()).
		Dur("elapsed", time.Since(start)).
		Msg("source fetch failed, using fallback")

	if !f.failing.Swap(true) && f.opts.Title != "" {
		f.opts.Notifier.Notify(notify.LevelError, f.opts.Title,
			fmt.Sprintf("Failed to load %s from %s (%v); using %s.", f.stream, f.primary.Name(), err, f.secondary.Name()))
	}
	return f.secondary.Fetch(ctx)
}
