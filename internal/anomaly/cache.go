package anomaly

import (
	"context"
	"sync"
	"time"
)

// Loader fetches the current raw anomaly set from whichever source is active.
type Loader func(ctx context.Context) ([]Record, error)

// Snapshot is one consistent view of the anomaly data: the records and their
// per-cell aggregate, computed from scratch together.
type Snapshot struct {
	Records   []Record
	ByCell    map[string]Processed
	FetchedAt time.Time
}

// Cache owns the last aggregated anomaly snapshot. It is replaced whole on
// every refresh and never cleared while a replacement is loading.
type Cache struct {
	mu     sync.RWMutex
	load   Loader
	cur    *Snapshot
	nowFn  func() time.Time
	loadMu sync.Mutex
}

func NewCache(load Loader) *Cache {
	return &Cache{load: load, nowFn: time.Now}
}

// Replace switches to a new loader. The previous snapshot stays visible until
// load answers, then loader and snapshot are swapped together. If load fails
// the new loader is kept along with the previous snapshot, and the error is
// returned.
func (c *Cache) Replace(ctx context.Context, load Loader) (Snapshot, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	var (
		records []Record
		err     error
	)
	if load != nil {
		records, err = load(ctx)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.load = load
	if err != nil {
		return Snapshot{}, err
	}
	c.cur = &Snapshot{
		Records:   records,
		ByCell:    Aggregate(records),
		FetchedAt: c.nowFn(),
	}
	return *c.cur, nil
}

// Get returns the cached snapshot, loading it on a miss.
func (c *Cache) Get(ctx context.Context) (Snapshot, error) {
	c.mu.RLock()
	cur := c.cur
	c.mu.RUnlock()
	if cur != nil {
		return *cur, nil
	}
	return c.Refresh(ctx)
}

// Peek returns the cached snapshot without loading.
func (c *Cache) Peek() (Snapshot, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.cur == nil {
		return Snapshot{}, false
	}
	return *c.cur, true
}

// Refresh reloads from the loader and replaces the cached snapshot. On error
// the previous snapshot is kept.
func (c *Cache) Refresh(ctx context.Context) (Snapshot, error) {
	c.loadMu.Lock()
	defer c.loadMu.Unlock()

	c.mu.RLock()
	load := c.load
	c.mu.RUnlock()
	if load == nil {
		return Snapshot{ByCell: map[string]Processed{}}, nil
	}

	records, err := load(ctx)
	if err != nil {
		return Snapshot{}, err
	}

	snap := &Snapshot{
		Records:   records,
		ByCell:    Aggregate(records),
		FetchedAt: c.nowFn(),
	}

	c.mu.Lock()
	c.cur = snap
	c.mu.Unlock()
	return *snap, nil
}

// Invalidate drops the cached snapshot; the next Get reloads.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	c.cur = nil
	c.mu.Unlock()
}
