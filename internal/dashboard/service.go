// Package dashboard polls every data stream on its own schedule and keeps the
// derived dashboard snapshot current.
package dashboard

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"ranpulse/core-go/internal/anomaly"
	"ranpulse/core-go/internal/config"
	"ranpulse/core-go/internal/db"
	"ranpulse/core-go/internal/livefeed"
	"ranpulse/core-go/internal/metrics"
	"ranpulse/core-go/internal/network"
	"ranpulse/core-go/internal/notify"
	"ranpulse/core-go/internal/oam"
	"ranpulse/core-go/internal/source"
)

type SetBuilder interface {
	Build(st config.Settings) source.Set
}

type SettingsLoader interface {
	Load() (config.Settings, error)
}

// Subscriber delivers database change notifications until ctx is done.
type Subscriber interface {
	Run(ctx context.Context, handle func(db.Notification)) error
}

// OutageRecorder persists tower outages so the average recovery time can be
// computed in the database.
type OutageRecorder interface {
	OpenTowerOutage(ctx context.Context, cellID string, downAt time.Time) error
	CloseTowerOutage(ctx context.Context, cellID string, recoveredAt time.Time) (int64, error)
}

type Prober interface {
	Probe(ctx context.Context, towers []network.Tower) map[string]oam.Result
}

type Options struct {
	Builder  SetBuilder
	Settings SettingsLoader
	Poll     config.PollConfig

	Publisher notify.Publisher
	Notifier  notify.Notifier

	// Optional.
	Listener      Subscriber
	Outages       OutageRecorder
	Prober        Prober
	ProbeInterval time.Duration

	FeedLimit    int
	HistoryLimit int
}

var streams = []string{
	source.StreamTowers,
	source.StreamAnomalies,
	source.StreamCalls,
	source.StreamRemediation,
	source.StreamRecovery,
}

// Service owns the per-stream state. Each stream replaces its own slot; the
// snapshot is rebuilt after every update, so streams may be up to one poll
// interval apart.
type Service struct {
	log     zerolog.Logger
	opts    Options
	metrics *metrics.Metrics
	nowFn   func() time.Time

	cache *anomaly.Cache

	mu          sync.RWMutex
	set         source.Set
	towers      []network.Tower
	calls       []network.CallRecord
	remediation []network.Remediation
	recovery    float64
	probes      map[string]oam.Result
	tracker     *tracker

	snap atomic.Pointer[Snapshot]
	kick map[string]chan struct{}
}

func New(log zerolog.Logger, opts Options, m *metrics.Metrics) *Service {
	if opts.FeedLimit <= 0 {
		opts.FeedLimit = 200
	}
	if opts.ProbeInterval <= 0 {
		opts.ProbeInterval = time.Minute
	}
	if opts.Notifier == nil {
		opts.Notifier = notify.Nop{}
	}
	s := &Service{
		log:     log,
		opts:    opts,
		metrics: m,
		nowFn:   time.Now,
		cache:   anomaly.NewCache(nil),
		tracker: newTracker(opts.HistoryLimit),
		kick:    make(map[string]chan struct{}, len(streams)),
	}
	for _, st := range streams {
		s.kick[st] = make(chan struct{}, 1)
	}
	return s
}

// Run loads the sources, fetches every stream once and then polls until ctx
// is done.
func (s *Service) Run(ctx context.Context) error {
	if err := s.Reload(ctx); err != nil {
		return err
	}

	var wg sync.WaitGroup
	for _, st := range streams {
		wg.Add(1)
		go func(stream string) {
			defer wg.Done()
			s.poll(ctx, stream)
		}(st)
	}
	if s.opts.Listener != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.opts.Listener.Run(ctx, s.handleNotification); err != nil {
				s.log.Error().Err(err).Msg("database listener stopped")
			}
		}()
	}
	if s.opts.Prober != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.probeLoop(ctx)
		}()
	}

	<-ctx.Done()
	wg.Wait()
	return nil
}

// Reload rebuilds the source set from the current settings and refetches
// every stream. Cached anomalies are replaced once the new source answers.
func (s *Service) Reload(ctx context.Context) error {
	st, err := s.opts.Settings.Load()
	if err != nil {
		return err
	}
	set := s.opts.Builder.Build(st)

	s.mu.Lock()
	s.set = set
	s.mu.Unlock()

	s.log.Info().Interface("sources", set.Describe()).Bool("realtime", set.Realtime).Msg("data sources loaded")
	if _, err := s.cache.Replace(ctx, set.Anomalies.Fetch); err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Str("stream", source.StreamAnomalies).Msg("anomalies unavailable after reload, keeping previous data")
	}
	for _, stream := range streams {
		if stream == source.StreamAnomalies {
			continue
		}
		s.fetch(ctx, stream)
	}
	s.rebuild()
	return nil
}

// Snapshot returns the latest snapshot; ok is false before the first build.
func (s *Service) Snapshot() (Snapshot, bool) {
	p := s.snap.Load()
	if p == nil {
		return Snapshot{}, false
	}
	return *p, true
}

// Refresh asks the poller of stream to fetch now. It never blocks.
func (s *Service) Refresh(stream string) {
	ch, ok := s.kick[stream]
	if !ok {
		return
	}
	select {
	case ch <- struct{}{}:
	default:
	}
}

func (s *Service) currentSet() source.Set {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.set
}

func (s *Service) interval(stream string) time.Duration {
	p := s.opts.Poll
	switch stream {
	case source.StreamTowers:
		if s.currentSet().TowersFromJSON && p.TowersJSON > 0 {
			return p.TowersJSON
		}
		return p.Towers
	case source.StreamAnomalies:
		return p.Anomalies
	case source.StreamCalls:
		return p.Calls
	case source.StreamRemediation:
		return p.Remediation
	default:
		return p.Recovery
	}
}

func (s *Service) poll(ctx context.Context, stream string) {
	timer := time.NewTimer(s.interval(stream))
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
			// Remediation is pushed by the database in realtime mode.
			if stream == source.StreamRemediation && s.currentSet().Realtime && s.opts.Listener != nil {
				break
			}
			s.fetch(ctx, stream)
			s.rebuild()
		case <-s.kick[stream]:
			timer.Stop()
			s.fetch(ctx, stream)
			s.rebuild()
		}
		timer.Reset(s.interval(stream))
	}
}

func (s *Service) handleNotification(n db.Notification) {
	s.log.Debug().Str("channel", n.Channel).Msg("database notification")
	switch n.Channel {
	case db.ChannelCallRecords:
		s.Refresh(source.StreamCalls)
		s.Refresh(source.StreamTowers)
	case db.ChannelRemediationEvents:
		s.Refresh(source.StreamRemediation)
	case db.ChannelEvents:
		s.Refresh(source.StreamAnomalies)
	}
}

// fetch refreshes one stream. Errors leave the previous value in place.
func (s *Service) fetch(ctx context.Context, stream string) {
	start := time.Now()
	set := s.currentSet()
	var err error

	switch stream {
	case source.StreamTowers:
		var towers []network.Tower
		if towers, err = set.Towers.Fetch(ctx); err == nil {
			s.mu.Lock()
			s.towers = towers
			changes := s.observeLocked()
			s.mu.Unlock()
			s.recordChanges(ctx, changes)
		}
	case source.StreamAnomalies:
		_, err = s.cache.Refresh(ctx)
	case source.StreamCalls:
		var calls []network.CallRecord
		if calls, err = set.Calls.Fetch(ctx); err == nil {
			s.mu.Lock()
			s.calls = calls
			s.mu.Unlock()
		}
	case source.StreamRemediation:
		var rem []network.Remediation
		if rem, err = set.Remediation.Fetch(ctx); err == nil {
			s.mu.Lock()
			s.remediation = rem
			s.mu.Unlock()
		}
	case source.StreamRecovery:
		var v float64
		if v, err = set.Recovery.Fetch(ctx); err == nil {
			s.mu.Lock()
			s.recovery = v
			s.mu.Unlock()
		}
	}

	s.metrics.ObservePollDuration(stream, time.Since(start))
	if err != nil && ctx.Err() == nil {
		s.log.Warn().Err(err).Str("stream", stream).Msg("stream refresh failed, keeping previous data")
	}
}

// observeLocked feeds the effective towers to the transition tracker. s.mu
// must be held for writing.
func (s *Service) observeLocked() []statusChange {
	return s.tracker.observe(s.effectiveTowersLocked(), s.nowFn().UTC())
}

func (s *Service) effectiveTowersLocked() []network.Tower {
	if len(s.probes) == 0 {
		return s.towers
	}
	return oam.Apply(s.towers, s.probes)
}

func (s *Service) recordChanges(ctx context.Context, changes []statusChange) {
	for _, c := range changes {
		if !c.Up {
			s.opts.Notifier.Notify(notify.LevelWarning, "Tower offline", c.Name+" has gone offline.")
		}
		if s.opts.Outages == nil {
			continue
		}
		var err error
		if c.Up {
			_, err = s.opts.Outages.CloseTowerOutage(ctx, c.CellID, c.At)
		} else {
			err = s.opts.Outages.OpenTowerOutage(ctx, c.CellID, c.At)
		}
		if err != nil {
			s.log.Warn().Err(err).Str("cell_id", c.CellID).Bool("up", c.Up).Msg("recording tower outage failed")
		}
	}
}

func (s *Service) probeLoop(ctx context.Context) {
	timer := time.NewTimer(0)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		s.mu.RLock()
		towers := make([]network.Tower, len(s.towers))
		copy(towers, s.towers)
		s.mu.RUnlock()

		results := s.opts.Prober.Probe(ctx, towers)
		s.mu.Lock()
		s.probes = results
		changes := s.observeLocked()
		s.mu.Unlock()
		s.recordChanges(ctx, changes)
		s.rebuild()

		timer.Reset(s.opts.ProbeInterval)
	}
}

func (s *Service) rebuild() {
	anomalies, _ := s.cache.Peek()

	s.mu.RLock()
	in := Input{
		Towers:      s.effectiveTowersLocked(),
		Anomalies:   anomalies,
		Calls:       s.calls,
		Remediation: s.remediation,
		Recovery:    s.recovery,
		Transitions: s.tracker.events(),
		Probes:      s.probes,
		Sources:     s.set.Describe(),
	}
	s.mu.RUnlock()

	snap := Build(in, s.nowFn(), s.opts.FeedLimit)
	s.snap.Store(&snap)
	if s.opts.Publisher != nil {
		s.opts.Publisher.Publish(livefeed.TypeSnapshot, snap)
	}
}
