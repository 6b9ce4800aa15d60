package database

import (
	"context"
	"database/sql"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/dojopool/pocketsync/internal/domain"
	"github.com/dojopool/pocketsync/internal/logger"
	"github.com/dojopool/pocketsync/pkg/errors"
	"github.com/rs/zerolog"
)

// KVRepo implements domain.KVStore on the client_state table. Values are
// whole JSON documents replaced in full on every write.
type KVRepo struct {
	log zerolog.Logger
	db  *DB
}

func NewKVRepo(log logger.Logger, db *DB) domain.KVStore {
	return &KVRepo{
		log: log.With().Str("repo", "kv").Logger(),
		db:  db,
	}
}

// Get returns the stored value, or nil with no error when the key is absent.
func (r *KVRepo) Get(ctx context.Context, key string) ([]byte, error) {
	query, args, err := sq.Select("value").
		From("client_state").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return nil, errors.Wrap(err, "could not build query")
	}

	var value string
	if err := r.db.Get().QueryRowContext(ctx, query, args...).Scan(&value); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		r.log.Error().Err(err).Str("key", key).Msg("could not read value")
		return nil, errors.Wrap(err, "could not read value for key: %s", key)
	}

	return []byte(value), nil
}

func (r *KVRepo) Set(ctx context.Context, key string, value []byte) error {
	query, args, err := sq.Insert("client_state").
		Columns("key", "value", "updated_at").
		Values(key, string(value), time.Now().UTC()).
		Suffix("ON CONFLICT (key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at").
		ToSql()
	if err != nil {
		return errors.Wrap(err, "could not build query")
	}

	if _, err := r.db.Get().ExecContext(ctx, query, args...); err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("could not write value")
		return errors.Wrap(err, "could not write value for key: %s", key)
	}

	return nil
}

func (r *KVRepo) Remove(ctx context.Context, key string) error {
	query, args, err := sq.Delete("client_state").
		Where(sq.Eq{"key": key}).
		ToSql()
	if err != nil {
		return errors.Wrap(err, "could not build query")
	}

	if _, err := r.db.Get().ExecContext(ctx, query, args...); err != nil {
		r.log.Error().Err(err).Str("key", key).Msg("could not remove value")
		return errors.Wrap(err, "could not remove value for key: %s", key)
	}

	return nil
}
