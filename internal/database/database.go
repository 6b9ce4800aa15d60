package database

import (
	"database/sql"

	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/rs/zerolog"

	_ "modernc.org/sqlite"
)

// DB wraps the on-device SQLite handle. SQLite is the only backend: the
// store lives on one device and is never shared with another process except
// the OS storage layer.
type DB struct {
	log     zerolog.Logger
	handler *sql.DB

	DSN string
}

func NewDB(cfg *domain.Config, log logger.Logger) (*DB, error) {
	db := &DB{
		log: log.With().Str("module", "database").Logger(),
	}

	if cfg.Database.Path == "" {
		return nil, errors.New("database path not configured")
	}
	db.DSN = cfg.Database.Path

	return db, nil
}

func (db *DB) Open() error {
	if db.DSN == "" {
		return errors.New("database DSN required")
	}

	var err error
	db.handler, err = sql.Open("sqlite", db.DSN)
	if err != nil {
		db.log.Error().Err(err).Msg("could not open db connection")
		return errors.Wrap(err, "could not open db connection")
	}

	// single writer; concurrent readers are fine with WAL
	db.handler.SetMaxOpenConns(1)

	if _, err = db.handler.Exec(`PRAGMA journal_mode = wal; PRAGMA busy_timeout = 1000;`); err != nil {
		return errors.Wrap(err, "could not enable WAL mode")
	}

	if err = db.migrate(); err != nil {
		db.log.Error().Err(err).Msg("could not migrate db")
		return errors.Wrap(err, "could not migrate db")
	}

	return nil
}

func (db *DB) migrate() error {
	_, err := db.handler.Exec(`
		CREATE TABLE IF NOT EXISTS client_state (
			key        TEXT PRIMARY KEY,
			value      TEXT NOT NULL,
			updated_at TIMESTAMP NOT NULL
		);
	`)
	return err
}

func (db *DB) Ping() error {
	if db.handler == nil {
		return errors.New("database not open")
	}
	return db.handler.Ping()
}

func (db *DB) Close() error {
	if db.handler == nil {
		return nil
	}
	return db.handler.Close()
}

// Get exposes the raw handle to repositories in this package.
func (db *DB) Get() *sql.DB {
	return db.handler
}
