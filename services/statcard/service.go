// Package statcard sequences the fetch → extract → cache → compose
// pipeline into the single operation the command layer consumes.
package statcard

import (
	"context"
	"errors"
	"log/slog"

	"statcard-backend/lib/cardimage"
	"statcard-backend/lib/fetch"
	"statcard-backend/lib/scrapers/faceitanalyser"
	"statcard-backend/lib/statcache"
	"statcard-backend/lib/telemetry"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/singleflight"
)

var tracer = telemetry.Tracer("statcard.services.statcard")

// Composer is the rendering capability the pipeline needs, satisfied
// by cardimage.Composer.
type Composer interface {
	Compose(ctx context.Context, record faceitanalyser.StatRecord) ([]byte, error)
}

type Service struct {
	fetcher  fetch.Fetcher
	cache    statcache.Cache
	composer Composer
	group    singleflight.Group
}

func NewService(fetcher fetch.Fetcher, cache statcache.Cache, composer Composer) *Service {
	return &Service{
		fetcher:  fetcher,
		cache:    cache,
		composer: composer,
	}
}

// GetStatsImage runs the pipeline for one handle and returns the
// rendered card png. Failures come back as *PipelineError. Concurrent
// callers for the same normalized handle coalesce onto one underlying
// run and all receive the same bytes.
func (s *Service) GetStatsImage(ctx context.Context, handle string) ([]byte, error) {
	key := statcache.Key(handle)
	if key == "" {
		return nil, failure(StageRequest, KindInvalidHandle, errors.New("empty handle"))
	}

	// a caller that cancels merely discards interest in the shared
	// result, the in-flight run keeps the context of whoever started it
	out, err, shared := s.group.Do(key, func() (any, error) {
		return s.run(ctx, key)
	})
	if err != nil {
		return nil, err
	}
	if shared {
		slog.DebugContext(ctx, "coalesced concurrent stats request", "handle", key)
	}
	return out.([]byte), nil
}

func (s *Service) run(ctx context.Context, handle string) ([]byte, error) {
	ctx, span := tracer.Start(ctx, "GetStatsImage")
	defer span.End()
	span.SetAttributes(attribute.String("handle", handle))

	record, hit := s.lookup(ctx, handle)
	if !hit {
		var err error
		record, err = s.refresh(ctx, handle)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			return nil, err
		}
	}
	span.SetAttributes(attribute.Bool("cache_hit", hit))

	image, err := s.composer.Compose(ctx, record)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compose failed")
		if errors.Is(err, cardimage.ErrTemplateMissing) {
			return nil, failure(StageCompose, KindTemplateMissing, err)
		}
		return nil, failure(StageCompose, KindInternal, err)
	}

	return image, nil
}

func (s *Service) lookup(ctx context.Context, handle string) (faceitanalyser.StatRecord, bool) {
	record, err := s.cache.Get(ctx, handle)
	if err == nil {
		return record, true
	}
	if errors.Is(err, statcache.ErrUnavailable) {
		// a dead backing store must not take the feature down with
		// it, degrade to fetching
		slog.WarnContext(ctx, "stats cache unavailable, bypassing",
			"stage", StageCacheRead,
			"handle", handle,
			"err", err,
		)
	}
	return faceitanalyser.StatRecord{}, false
}

func (s *Service) refresh(ctx context.Context, handle string) (faceitanalyser.StatRecord, error) {
	page, err := s.fetcher.Fetch(ctx, handle)
	if err != nil {
		switch {
		case errors.Is(err, fetch.ErrNotFound):
			return faceitanalyser.StatRecord{}, failure(StageFetch, KindHandleNotFound, err)
		case errors.Is(err, fetch.ErrTimeout):
			return faceitanalyser.StatRecord{}, failure(StageFetch, KindFetchTimeout, err)
		case errors.Is(err, fetch.ErrReadinessTimeout):
			return faceitanalyser.StatRecord{}, failure(StageFetch, KindReadinessTimeout, err)
		}
		return faceitanalyser.StatRecord{}, failure(StageFetch, KindInternal, err)
	}

	record, err := faceitanalyser.Extract(ctx, page)
	if err != nil {
		switch {
		case errors.Is(err, faceitanalyser.ErrLayoutChanged):
			// the primary long-term failure mode, log loudly so an
			// operator notices before users do
			slog.ErrorContext(ctx, "stats site layout changed", "handle", handle, "err", err)
			return faceitanalyser.StatRecord{}, failure(StageExtract, KindLayoutChanged, err)
		case errors.Is(err, faceitanalyser.ErrMissingCoreFields):
			return faceitanalyser.StatRecord{}, failure(StageExtract, KindMissingCoreFields, err)
		}
		return faceitanalyser.StatRecord{}, failure(StageExtract, KindInternal, err)
	}

	err = s.cache.Put(ctx, handle, record)
	if err != nil {
		// a failed write only costs the next request a fetch
		slog.WarnContext(ctx, "failed to write stats cache",
			"stage", StageCacheWrite,
			"handle", handle,
			"err", err,
		)
	}

	return record, nil
}
