package inmem

import (
	"context"
	"sync"

	"github.com/trezcool/masomoweb/core"
)

type (
	// DB keeps every client's entries in process memory.
	DB struct {
		table map[string]map[string]string
		mutex sync.RWMutex
	}

	bucket struct {
		db       *DB
		clientID string
	}
)

var _ core.StorageBackend = (*DB)(nil)

func Open() *DB {
	return &DB{table: make(map[string]map[string]string)}
}

func (db *DB) Bucket(clientID string) core.Storage {
	return &bucket{db: db, clientID: clientID}
}

func (db *DB) Close() error {
	db.mutex.Lock()
	defer db.mutex.Unlock()
	db.table = make(map[string]map[string]string)
	return nil
}

func (b *bucket) Get(_ context.Context, key string) (string, error) {
	b.db.mutex.RLock()
	defer b.db.mutex.RUnlock()

	val, ok := b.db.table[b.clientID][key]
	if !ok {
		return "", core.ErrKeyNotFound
	}
	return val, nil
}

func (b *bucket) Set(_ context.Context, key, value string) error {
	b.db.mutex.Lock()
	defer b.db.mutex.Unlock()

	entries, ok := b.db.table[b.clientID]
	if !ok {
		entries = make(map[string]string)
		b.db.table[b.clientID] = entries
	}
	entries[key] = value
	return nil
}

func (b *bucket) Delete(_ context.Context, keys ...string) error {
	b.db.mutex.Lock()
	defer b.db.mutex.Unlock()

	entries := b.db.table[b.clientID]
	for _, key := range keys {
		delete(entries, key)
	}
	if len(entries) == 0 {
		delete(b.db.table, b.clientID)
	}
	return nil
}

func (b *bucket) Clear(_ context.Context) error {
	b.db.mutex.Lock()
	defer b.db.mutex.Unlock()

	delete(b.db.table, b.clientID)
	return nil
}
