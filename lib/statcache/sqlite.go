package statcache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"statcard-backend/lib/scrapers/faceitanalyser"

	_ "embed"
)

//go:embed schema.sql
var Schema string

// Sqlite persists the cache across restarts. Stale rows are left in
// place and simply overwritten by the next successful extraction.
type Sqlite struct {
	db     *sql.DB
	window time.Duration
	now    Clock
}

type SqliteOptions struct {
	DB     *sql.DB
	Window time.Duration
	// defaults to time.Now
	Now Clock
}

func NewSqlite(opts SqliteOptions) *Sqlite {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Sqlite{
		db:     opts.DB,
		window: opts.Window,
		now:    opts.Now,
	}
}

func (s *Sqlite) Get(ctx context.Context, handle string) (faceitanalyser.StatRecord, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT record, captured_at FROM stat_records WHERE handle = ?",
		Key(handle),
	)

	var serialized string
	var capturedAt int64
	err := row.Scan(&serialized, &capturedAt)
	if err == sql.ErrNoRows {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	if err != nil {
		return faceitanalyser.StatRecord{}, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if s.now().Sub(time.Unix(capturedAt, 0)) >= s.window {
		return faceitanalyser.StatRecord{}, ErrMiss
	}

	var record faceitanalyser.StatRecord
	err = json.Unmarshal([]byte(serialized), &record)
	if err != nil {
		return faceitanalyser.StatRecord{}, ErrMiss
	}
	return record, nil
}

func (s *Sqlite) Put(ctx context.Context, handle string, record faceitanalyser.StatRecord) error {
	serialized, err := json.Marshal(record)
	if err != nil {
		return err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO stat_records (handle, record, captured_at) VALUES (?, ?, ?)
		 ON CONFLICT (handle) DO UPDATE SET record = excluded.record, captured_at = excluded.captured_at`,
		Key(handle),
		string(serialized),
		s.now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}
