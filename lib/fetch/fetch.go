// Package fetch drives a real browser against the stats site and hands
// back rendered page snapshots. The engine sits behind the Fetcher
// interface so tests never need a browser.
package fetch

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"
)

var (
	// navigation did not complete within the fetch budget
	ErrTimeout = errors.New("fetch: navigation timed out")
	// the handle does not exist on the stats site
	ErrNotFound = errors.New("fetch: handle not found")
	// navigation succeeded but the stats container never rendered,
	// either the site layout changed or the player has no recorded data
	ErrReadinessTimeout = errors.New("fetch: stats container never appeared")
)

// Page is a snapshot of a fully rendered profile page.
type Page struct {
	Handle    string
	URL       string
	HTML      string
	FetchedAt time.Time
}

type Fetcher interface {
	Fetch(ctx context.Context, handle string) (Page, error)
	Close() error
}

// ProfileURL builds the stats page url for a handle.
// The handle is path-escaped, stats site routing is `<base>/stats/<handle>/cs2`.
func ProfileURL(baseUrl, handle string) string {
	return fmt.Sprintf("%s/stats/%s/cs2", baseUrl, url.PathEscape(handle))
}
