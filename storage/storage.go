// Package storage opens the client storage backend selected by the configuration.
package storage

import (
	"context"

	"github.com/pkg/errors"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/storage/database"
	"github.com/trezcool/masomoweb/storage/inmem"
	redisdb "github.com/trezcool/masomoweb/storage/redis"
)

// Open returns the backend named by session.storage. Database backends are migrated up.
func Open(ctx context.Context, conf *core.Config) (core.StorageBackend, error) {
	switch conf.Session.Storage {
	case core.StorageMemory, "":
		return inmem.Open(), nil
	case core.StorageRedis:
		db, err := redisdb.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening redis storage")
		}
		return db, nil
	case core.StorageDatabase:
		db, err := database.Open(ctx, conf)
		if err != nil {
			return nil, errors.Wrap(err, "opening database storage")
		}
		if err = database.Migrate(db); err != nil {
			_ = db.Close()
			return nil, err
		}
		return database.NewStore(db), nil
	}
	return nil, errors.Errorf("unknown session storage %q", conf.Session.Storage)
}
