package fetch

import (
	"context"
	"fmt"
)

// Limited caps the number of concurrent fetch sessions on the wrapped
// fetcher. Browser pages are expensive, letting every request open one
// unbounded will eat the host under load.
type Limited struct {
	inner Fetcher
	sem   chan struct{}
}

func NewLimited(inner Fetcher, maxSessions int) *Limited {
	if maxSessions <= 0 {
		maxSessions = 1
	}
	return &Limited{
		inner: inner,
		sem:   make(chan struct{}, maxSessions),
	}
}

func (l *Limited) Fetch(ctx context.Context, handle string) (Page, error) {
	select {
	case l.sem <- struct{}{}:
	case <-ctx.Done():
		return Page{}, fmt.Errorf("waiting for a fetch session: %w", ctx.Err())
	}
	defer func() { <-l.sem }()

	return l.inner.Fetch(ctx, handle)
}

func (l *Limited) Close() error {
	return l.inner.Close()
}
