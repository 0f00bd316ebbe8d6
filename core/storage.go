package core

import (
	"context"

	"github.com/pkg/errors"
)

// Persisted client entries.
const (
	KeyToken       = "token"
	KeyUserID      = "userId"
	KeySidebarOpen = "sidebarOpen"
)

var ErrKeyNotFound = errors.New("key not found")

type (
	// Storage holds the persisted key-value entries of a single client.
	// Values are plain strings: parsing happens at the call site.
	Storage interface {
		// Get returns ErrKeyNotFound when the key is not set.
		Get(ctx context.Context, key string) (string, error)
		Set(ctx context.Context, key, value string) error
		// Delete ignores keys that are not set.
		Delete(ctx context.Context, keys ...string) error
		// Clear removes every entry of the client.
		Clear(ctx context.Context) error
	}

	// StorageBackend hands out the Storage of each client.
	StorageBackend interface {
		Bucket(clientID string) Storage
		Close() error
	}
)
