package statcache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"statcard-backend/lib/scrapers/faceitanalyser"

	"github.com/redis/go-redis/v9"
)

const redisKeyPrefix = "statcard:record:"

// Redis is the shared backend for running more than one process
// against the same cache. Staleness rides on the key ttl, the
// captured-at timestamp is still stored for the window check in case
// the server's ttl config disagrees with ours.
type Redis struct {
	client *redis.Client
	window time.Duration
	now    Clock
}

type RedisOptions struct {
	Addr     string
	Password string
	DB       int
	Window   time.Duration
	// defaults to time.Now
	Now Clock
}

func NewRedis(opts RedisOptions) *Redis {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Redis{
		client: redis.NewClient(&redis.Options{
			Addr:     opts.Addr,
			Password: opts.Password,
			DB:       opts.DB,
		}),
		window: opts.Window,
		now:    opts.Now,
	}
}

func (r *Redis) Get(ctx context.Context, handle string) (faceitanalyser.StatRecord, error) {
	raw, err := r.client.Get(ctx, redisKeyPrefix+Key(handle)).Bytes()
	if err == redis.Nil {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	if err != nil {
		return faceitanalyser.StatRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	var cached entry
	err = json.Unmarshal(raw, &cached)
	if err != nil {
		// a corrupt entry is as good as no entry, the next Put
		// overwrites it
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	if r.now().Sub(cached.CapturedAt) >= r.window {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	return cached.Record, nil
}

func (r *Redis) Put(ctx context.Context, handle string, record faceitanalyser.StatRecord) error {
	serialized, err := json.Marshal(entry{
		Record:     record,
		CapturedAt: r.now(),
	})
	if err != nil {
		return err
	}

	err = r.client.Set(ctx, redisKeyPrefix+Key(handle), serialized, r.window).Err()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

func (r *Redis) Close() error {
	return r.client.Close()
}
