package database

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
)

// Store keeps client entries in the client_storage table.
type Store struct {
	db  *sqlx.DB
	now func() time.Time
}

type bucket struct {
	store    *Store
	clientID string
}

var _ core.StorageBackend = (*Store)(nil)

func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Bucket(clientID string) core.Storage {
	return &bucket{store: s, clientID: clientID}
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Purge removes the entries of clients untouched since `before`, and returns how many rows went.
func (s *Store) Purge(ctx context.Context, before time.Time) (int64, error) {
	q := s.db.Rebind(`
		DELETE FROM client_storage
		WHERE client_id IN (
			SELECT client_id FROM client_storage GROUP BY client_id HAVING MAX(updated_at) < ?
		)`)
	res, err := s.db.ExecContext(ctx, q, before.UnixMilli())
	if err != nil {
		return 0, errors.Wrap(err, "purging client storage")
	}
	return res.RowsAffected()
}

func (b *bucket) Get(ctx context.Context, key string) (string, error) {
	var val string
	q := b.store.db.Rebind(`SELECT value FROM client_storage WHERE client_id = ? AND name = ?`)
	err := b.store.db.GetContext(ctx, &val, q, b.clientID, key)
	if err == sql.ErrNoRows {
		return "", core.ErrKeyNotFound
	}
	if err != nil {
		return "", errors.Wrapf(err, "selecting %s", key)
	}
	return val, nil
}

func (b *bucket) Set(ctx context.Context, key, value string) error {
	q := b.store.db.Rebind(`
		INSERT INTO client_storage (client_id, name, value, updated_at) VALUES (?, ?, ?, ?)
		ON CONFLICT (client_id, name) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`)
	if _, err := b.store.db.ExecContext(ctx, q, b.clientID, key, value, b.store.now().UnixMilli()); err != nil {
		return errors.Wrapf(err, "upserting %s", key)
	}
	return nil
}

func (b *bucket) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	q, args, err := sqlx.In(`DELETE FROM client_storage WHERE client_id = ? AND name IN (?)`, b.clientID, keys)
	if err != nil {
		return errors.Wrap(err, "building delete")
	}
	if _, err = b.store.db.ExecContext(ctx, b.store.db.Rebind(q), args...); err != nil {
		return errors.Wrap(err, "deleting entries")
	}
	return nil
}

func (b *bucket) Clear(ctx context.Context) error {
	q := b.store.db.Rebind(`DELETE FROM client_storage WHERE client_id = ?`)
	if _, err := b.store.db.ExecContext(ctx, q, b.clientID); err != nil {
		return errors.Wrap(err, "clearing entries")
	}
	return nil
}
