package statcache

import (
	"context"
	"time"

	"statcard-backend/lib/scrapers/faceitanalyser"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

const defaultCapacity = 2048

// Memory is the in-process backend. The LRU bound keeps memory flat
// no matter how many distinct handles pass through, staleness is
// still decided on read against the freshness window.
type Memory struct {
	entries *expirable.LRU[string, entry]
	window  time.Duration
	now     Clock
}

type MemoryOptions struct {
	// freshness window, how long a record stays servable
	Window time.Duration
	// maximum distinct handles held, defaults to 2048
	Capacity int
	// defaults to time.Now
	Now Clock
}

func NewMemory(opts MemoryOptions) *Memory {
	if opts.Capacity <= 0 {
		opts.Capacity = defaultCapacity
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Memory{
		// the lru's own ttl only garbage-collects entries well past
		// the window, freshness is checked against the clock below
		entries: expirable.NewLRU[string, entry](opts.Capacity, nil, opts.Window*2),
		window:  opts.Window,
		now:     opts.Now,
	}
}

func (m *Memory) Get(ctx context.Context, handle string) (faceitanalyser.StatRecord, error) {
	cached, hit := m.entries.Get(Key(handle))
	if !hit {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	if m.now().Sub(cached.CapturedAt) >= m.window {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	return cached.Record, nil
}

func (m *Memory) Put(ctx context.Context, handle string, record faceitanalyser.StatRecord) error {
	m.entries.Add(Key(handle), entry{
		Record:     record,
		CapturedAt: m.now(),
	})
	return nil
}
