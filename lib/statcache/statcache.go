// Package statcache bounds the rate of expensive profile fetches by
// remembering the last extracted record per handle for a freshness
// window. Entries past the window behave as misses even when they
// still physically exist.
package statcache

import (
	"context"
	"errors"
	"strings"
	"time"

	"statcard-backend/lib/scrapers/faceitanalyser"
)

var (
	ErrMiss = errors.New("statcache: miss")
	// the persisted backing store is unreachable. callers should
	// degrade to fetching rather than failing the request.
	ErrUnavailable = errors.New("statcache: backing store unavailable")
)

type Cache interface {
	// Get returns the cached record only while its age is within the
	// freshness window, otherwise ErrMiss.
	Get(ctx context.Context, handle string) (faceitanalyser.StatRecord, error)
	// Put unconditionally overwrites the entry for the handle with
	// the record and the current timestamp.
	Put(ctx context.Context, handle string, record faceitanalyser.StatRecord) error
}

// Key normalizes a handle for use as a cache key. Lookups and writes
// must agree on this or the same player caches under several keys.
func Key(handle string) string {
	return strings.ToLower(strings.TrimSpace(handle))
}

// Clock exists so freshness tests don't have to sleep through real
// windows.
type Clock func() time.Time

type entry struct {
	Record     faceitanalyser.StatRecord `json:"record"`
	CapturedAt time.Time                 `json:"captured_at"`
}
