// Package db persists the telegram-user to player-handle links behind
// the bot's /register command.
package db

import (
	"context"
	"database/sql"
	"errors"
	"time"

	_ "embed"

	_ "github.com/tursodatabase/libsql-client-go/libsql"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var Schema string

var ErrNotRegistered = errors.New("user has no registered handle")

type Store struct {
	db *sql.DB
}

func NewStore(database *sql.DB) Store {
	return Store{db: database}
}

// Handle returns the registered player handle for a telegram user.
func (s Store) Handle(ctx context.Context, telegramId int64) (string, error) {
	row := s.db.QueryRowContext(
		ctx,
		"SELECT handle FROM users WHERE telegram_id = ?",
		telegramId,
	)

	var handle string
	err := row.Scan(&handle)
	if err == sql.ErrNoRows {
		return "", ErrNotRegistered
	}
	if err != nil {
		return "", err
	}
	return handle, nil
}

// Register links a telegram user to a handle, replacing any previous
// link for that user.
func (s Store) Register(ctx context.Context, telegramId int64, handle string) error {
	_, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (telegram_id, handle, registered_at) VALUES (?, ?, ?)
		 ON CONFLICT (telegram_id) DO UPDATE SET handle = excluded.handle, registered_at = excluded.registered_at`,
		telegramId,
		handle,
		time.Now().Unix(),
	)
	return err
}
