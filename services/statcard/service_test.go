package statcard

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"statcard-backend/lib/cardimage"
	"statcard-backend/lib/fetch"
	"statcard-backend/lib/scrapers/faceitanalyser"
	"statcard-backend/lib/statcache"
	"statcard-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
	"golang.org/x/image/font/basicfont"
)

func profileHTML(matches, rating, winrate string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html><body>
<span class="stats_profile_name_span">proplayer1</span>
<span class="stats_profile_elo_span">2,145</span>
<div id="recent_results">
  <span class="recent_match_result">W</span>
  <span class="recent_match_result">L</span>
  <span class="recent_match_result">W</span>
</div>
<div id="view1_stats">
  <div class="stats_totals_block_wrapper">
    <span class="stats_totals_block_title_text">Matches</span>
    <span class="stats_totals_block_main_value_span">%s</span>
  </div>
  <div class="stats_totals_block_wrapper">
    <span class="stats_totals_block_title_text">FA Rating</span>
    <span class="stats_totals_block_main_value_span">%s</span>
  </div>
  <div class="stats_totals_block_wrapper">
    <span class="stats_totals_block_title_text">Winrate</span>
    <span class="stats_totals_block_main_value_span">%s</span>
  </div>
</div>
<div id="view2_stats">
  <div class="stats_totals_block_wrapper">
    <span class="stats_totals_block_title_text">Matches</span>
    <span class="stats_totals_block_main_value_span">50</span>
  </div>
</div>
</body></html>`, matches, rating, winrate)
}

type fakeFetcher struct {
	html  string
	err   error
	calls atomic.Int32
	// when set, Fetch blocks until the gate closes
	gate chan struct{}
}

func (f *fakeFetcher) Fetch(ctx context.Context, handle string) (fetch.Page, error) {
	f.calls.Add(1)
	if f.gate != nil {
		<-f.gate
	}
	if f.err != nil {
		return fetch.Page{}, f.err
	}
	return fetch.Page{
		Handle: handle,
		URL:    fetch.ProfileURL("https://faceitanalyser.com", handle),
		HTML:   f.html,
	}, nil
}

func (f *fakeFetcher) Close() error { return nil }

type fakeClock struct {
	mu      sync.Mutex
	current time.Time
}

func (c *fakeClock) now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.current
}

func (c *fakeClock) advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.current = c.current.Add(d)
}

func testComposer() *cardimage.Composer {
	face := basicfont.Face7x13
	return cardimage.NewComposer(cardimage.Assets{
		Fonts: cardimage.Fonts{
			Name:       face,
			Elo:        face,
			Section:    face,
			BlockTitle: face,
			BlockValue: face,
			ItemValue:  face,
		},
	}, nil)
}

func newTestService(t *testing.T, fetcher fetch.Fetcher, clock *fakeClock) *Service {
	t.Helper()
	cleanup := telemetry.SetupForTesting(t, "test:services/statcard")
	t.Cleanup(cleanup)

	cache := statcache.NewMemory(statcache.MemoryOptions{
		Window: time.Second * 120,
		Now:    clock.now,
	})
	return NewService(fetcher, cache, testComposer())
}

func TestPipelineEndToEnd(t *testing.T) {
	fetcher := &fakeFetcher{html: profileHTML("500", "2,10", "55%")}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	// first request misses the cache and fetches
	first, err := service.GetStatsImage(ctx, "ProPlayer1")
	require.NoError(t, err)
	require.NotEmpty(t, first)
	require.Equal(t, int32(1), fetcher.calls.Load())

	// within the freshness window the fetcher stays idle and the
	// composed bytes are identical
	clock.advance(time.Second * 30)
	second, err := service.GetStatsImage(ctx, "proplayer1")
	require.NoError(t, err)
	require.True(t, bytes.Equal(first, second))
	require.Equal(t, int32(1), fetcher.calls.Load())

	// past the window the entry is stale and a fetch happens again
	clock.advance(time.Second * 120)
	_, err = service.GetStatsImage(ctx, "proplayer1")
	require.NoError(t, err)
	require.Equal(t, int32(2), fetcher.calls.Load())
}

func TestSingleFlight(t *testing.T) {
	fetcher := &fakeFetcher{
		html: profileHTML("500", "2,10", "55%"),
		gate: make(chan struct{}),
	}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
	defer cancel()

	results := make([][]byte, 2)
	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			results[i], errs[i] = service.GetStatsImage(ctx, "proplayer1")
		}(i)
	}

	// both callers are in flight before the fetch completes
	require.Eventually(t, func() bool {
		return fetcher.calls.Load() >= 1
	}, time.Second*5, time.Millisecond*10)
	time.Sleep(time.Millisecond * 100)
	close(fetcher.gate)
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	require.Equal(t, int32(1), fetcher.calls.Load(), "concurrent requests must share one fetch")
	require.True(t, bytes.Equal(results[0], results[1]), "coalesced callers must receive the same image")
}

func TestHandleNotFound(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: \"ghost\"", fetch.ErrNotFound)}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	_, err := service.GetStatsImage(context.Background(), "ghost")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageFetch, perr.Stage)
	require.Equal(t, KindHandleNotFound, perr.Kind)
	require.ErrorIs(t, err, fetch.ErrNotFound)
}

func TestFetchTimeout(t *testing.T) {
	fetcher := &fakeFetcher{err: fmt.Errorf("%w: budget exceeded", fetch.ErrTimeout)}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	_, err := service.GetStatsImage(context.Background(), "proplayer1")
	require.Equal(t, KindFetchTimeout, KindOf(err))
}

func TestMissingCoreFieldsNeverComposes(t *testing.T) {
	// rating and match count both unparsable
	fetcher := &fakeFetcher{html: profileHTML("n/a", "", "55%")}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	_, err := service.GetStatsImage(context.Background(), "proplayer1")
	require.Error(t, err)

	var perr *PipelineError
	require.ErrorAs(t, err, &perr)
	require.Equal(t, StageExtract, perr.Stage)
	require.Equal(t, KindMissingCoreFields, perr.Kind)
	require.ErrorIs(t, err, faceitanalyser.ErrMissingCoreFields)
}

func TestLayoutChanged(t *testing.T) {
	fetcher := &fakeFetcher{html: "<html><body><p>redesigned</p></body></html>"}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	_, err := service.GetStatsImage(context.Background(), "proplayer1")
	require.Equal(t, KindLayoutChanged, KindOf(err))
}

func TestInvalidHandle(t *testing.T) {
	fetcher := &fakeFetcher{html: profileHTML("500", "2,10", "55%")}
	clock := &fakeClock{current: time.Unix(1700000000, 0)}
	service := newTestService(t, fetcher, clock)

	_, err := service.GetStatsImage(context.Background(), "   ")
	require.Equal(t, KindInvalidHandle, KindOf(err))
	require.Equal(t, int32(0), fetcher.calls.Load())
}

type brokenCache struct{}

func (brokenCache) Get(ctx context.Context, handle string) (faceitanalyser.StatRecord, error) {
	return faceitanalyser.StatRecord{}, fmt.Errorf("%w: connection refused", statcache.ErrUnavailable)
}

func (brokenCache) Put(ctx context.Context, handle string, record faceitanalyser.StatRecord) error {
	return fmt.Errorf("%w: connection refused", statcache.ErrUnavailable)
}

func TestCacheDegradationLogsStages(t *testing.T) {
	var logged bytes.Buffer
	previous := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&logged, nil)))
	defer slog.SetDefault(previous)

	fetcher := &fakeFetcher{html: profileHTML("500", "2,10", "55%")}
	service := NewService(fetcher, brokenCache{}, testComposer())

	_, err := service.GetStatsImage(context.Background(), "proplayer1")
	require.NoError(t, err)

	require.Contains(t, logged.String(), "stage="+string(StageCacheRead))
	require.Contains(t, logged.String(), "stage="+string(StageCacheWrite))
}

func TestBrokenCacheDegradesToFetch(t *testing.T) {
	cleanup := telemetry.SetupForTesting(t, "test:services/statcard")
	t.Cleanup(cleanup)

	fetcher := &fakeFetcher{html: profileHTML("500", "2,10", "55%")}
	service := NewService(fetcher, brokenCache{}, testComposer())

	out, err := service.GetStatsImage(context.Background(), "proplayer1")
	require.NoError(t, err)
	require.NotEmpty(t, out)
	require.Equal(t, int32(1), fetcher.calls.Load())

	// with the cache down every request pays for a fetch, but none fail
	_, err = service.GetStatsImage(context.Background(), "proplayer1")
	require.NoError(t, err)
	require.Equal(t, int32(2), fetcher.calls.Load())
}
