package storage

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/masomoweb/core"
	"github.com/trezcool/masomoweb/storage/database"
	"github.com/trezcool/masomoweb/storage/inmem"
	redisdb "github.com/trezcool/masomoweb/storage/redis"
)

func TestOpen(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	defer mr.Close()

	tests := []struct {
		name     string
		storage  string
		wantType interface{}
		wantErr  bool
	}{
		{name: "default", storage: "", wantType: &inmem.DB{}},
		{name: "memory", storage: core.StorageMemory, wantType: &inmem.DB{}},
		{name: "redis", storage: core.StorageRedis, wantType: &redisdb.DB{}},
		{name: "database", storage: core.StorageDatabase, wantType: &database.Store{}},
		{name: "unknown", storage: "etcd", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conf := &core.Config{WorkDir: t.TempDir()}
			conf.Session.Storage = tt.storage
			conf.Redis.Addr = mr.Addr()
			conf.Database.Engine = database.EngineSQLite
			conf.Database.Path = "web.db"

			backend, err := Open(context.Background(), conf)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			if assert.NoError(t, err) {
				assert.IsType(t, tt.wantType, backend)
				assert.NoError(t, backend.Bucket("c").Set(context.Background(), core.KeyToken, "x"))
				assert.NoError(t, backend.Close())
			}
		})
	}
}
