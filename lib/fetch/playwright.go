package fetch

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"statcard-backend/lib/telemetry"

	pw "github.com/playwright-community/playwright-go"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

var tracer = telemetry.Tracer("statcard.lib.fetch")

const (
	// the stats tables render asynchronously after document load,
	// nothing useful exists on the page until this container appears
	readySelector = "#view1_stats"
	// rendered on every existing profile, missing on the site's
	// "player not found" page state
	profileSelector = "span.stats_profile_name_span"
)

type PlaywrightOptions struct {
	BaseUrl string
	// per-fetch navigation + readiness budget
	Timeout time.Duration
	// path to a system chromium, leave empty to use the driver-managed one
	ExecutablePath string
}

// PlaywrightFetcher owns a single headless chromium process and opens
// one browser page per fetch.
type PlaywrightFetcher struct {
	runner  *pw.Playwright
	browser pw.Browser
	opts    PlaywrightOptions
}

func NewPlaywright(opts PlaywrightOptions) (*PlaywrightFetcher, error) {
	if opts.BaseUrl == "" {
		opts.BaseUrl = "https://faceitanalyser.com"
	}
	if opts.Timeout <= 0 {
		opts.Timeout = time.Second * 30
	}

	runner, err := pw.Run()
	if err != nil {
		return nil, fmt.Errorf("start playwright driver: %w", err)
	}

	launch := pw.BrowserTypeLaunchOptions{
		Headless: pw.Bool(true),
	}
	if opts.ExecutablePath != "" {
		launch.ExecutablePath = pw.String(opts.ExecutablePath)
	}
	browser, err := runner.Chromium.Launch(launch)
	if err != nil {
		runner.Stop()
		return nil, fmt.Errorf("launch chromium: %w", err)
	}

	return &PlaywrightFetcher{
		runner:  runner,
		browser: browser,
		opts:    opts,
	}, nil
}

func (f *PlaywrightFetcher) Fetch(ctx context.Context, handle string) (Page, error) {
	ctx, span := tracer.Start(ctx, "Fetch")
	defer span.End()
	span.SetAttributes(attribute.String("handle", handle))

	link := ProfileURL(f.opts.BaseUrl, handle)
	budget := float64(f.opts.Timeout.Milliseconds())

	page, err := f.browser.NewPage()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to open browser page")
		return Page{}, fmt.Errorf("open browser page: %w", err)
	}
	// the page must die with this call, even on timeout, or chromium
	// accumulates renderer processes under repeated fetches
	defer page.Close()

	start := time.Now()
	_, err = page.Goto(link, pw.PageGotoOptions{
		WaitUntil: pw.WaitUntilStateDomcontentloaded,
		Timeout:   pw.Float(budget),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "navigation failed")
		if isPlaywrightTimeout(err) {
			return Page{}, fmt.Errorf("%w: %s", ErrTimeout, link)
		}
		return Page{}, fmt.Errorf("navigate to %s: %w", link, err)
	}

	remaining := budget - float64(time.Since(start).Milliseconds())
	if remaining < 1000 {
		remaining = 1000
	}
	err = page.Locator(readySelector).First().WaitFor(pw.LocatorWaitForOptions{
		State:   pw.WaitForSelectorStateAttached,
		Timeout: pw.Float(remaining),
	})
	if err != nil {
		span.RecordError(err)
		// the profile span renders with the initial document, its
		// absence means the handle does not exist on the site, not
		// that the stats were slow
		count, countErr := page.Locator(profileSelector).Count()
		if countErr == nil && count == 0 {
			span.SetStatus(codes.Error, "handle not found")
			return Page{}, fmt.Errorf("%w: %q", ErrNotFound, handle)
		}
		span.SetStatus(codes.Error, "stats container never appeared")
		return Page{}, fmt.Errorf("%w: %s", ErrReadinessTimeout, link)
	}

	html, err := page.Content()
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "failed to snapshot page content")
		return Page{}, fmt.Errorf("snapshot page content: %w", err)
	}

	slog.DebugContext(ctx, "fetched profile page",
		"handle", handle,
		"url", link,
		"bytes", len(html),
		"elapsed", time.Since(start),
	)

	return Page{
		Handle:    handle,
		URL:       link,
		HTML:      html,
		FetchedAt: time.Now(),
	}, nil
}

func (f *PlaywrightFetcher) Close() error {
	err := f.browser.Close()
	stopErr := f.runner.Stop()
	if err != nil {
		return err
	}
	return stopErr
}

// the playwright driver reports deadline overruns as a named
// "TimeoutError" in the message rather than a sentinel error value
func isPlaywrightTimeout(err error) bool {
	return strings.Contains(err.Error(), "Timeout")
}
