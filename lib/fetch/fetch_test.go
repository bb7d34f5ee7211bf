package fetch

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestProfileURL(t *testing.T) {
	testCases := []struct {
		handle string
		expect string
	}{
		{handle: "proplayer1", expect: "https://faceitanalyser.com/stats/proplayer1/cs2"},
		{handle: "name with space", expect: "https://faceitanalyser.com/stats/name%20with%20space/cs2"},
		{handle: "weird/slash", expect: "https://faceitanalyser.com/stats/weird%2Fslash/cs2"},
	}

	for _, test := range testCases {
		require.Equal(t, test.expect, ProfileURL("https://faceitanalyser.com", test.handle))
	}
}

type blockingFetcher struct {
	inflight atomic.Int32
	peak     atomic.Int32
	release  chan struct{}
}

func (f *blockingFetcher) Fetch(ctx context.Context, handle string) (Page, error) {
	n := f.inflight.Add(1)
	defer f.inflight.Add(-1)
	for {
		peak := f.peak.Load()
		if n <= peak || f.peak.CompareAndSwap(peak, n) {
			break
		}
	}
	select {
	case <-f.release:
	case <-ctx.Done():
		return Page{}, ctx.Err()
	}
	return Page{Handle: handle, HTML: "<html></html>"}, nil
}

func (f *blockingFetcher) Close() error { return nil }

func TestLimitedCapsConcurrentSessions(t *testing.T) {
	inner := &blockingFetcher{release: make(chan struct{})}
	limited := NewLimited(inner, 2)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 6; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := limited.Fetch(ctx, "proplayer1")
			require.NoError(t, err)
		}()
	}

	// let the goroutines pile up against the semaphore
	time.Sleep(time.Millisecond * 100)
	close(inner.release)
	wg.Wait()

	require.LessOrEqual(t, inner.peak.Load(), int32(2))
}

func TestLimitedRespectsContext(t *testing.T) {
	inner := &blockingFetcher{release: make(chan struct{})}
	limited := NewLimited(inner, 1)

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		// occupy the only session
		limited.Fetch(context.Background(), "occupier")
	}()
	time.Sleep(time.Millisecond * 50)

	cancel()
	_, err := limited.Fetch(ctx, "proplayer1")
	require.ErrorIs(t, err, context.Canceled)

	close(inner.release)
}
