// Package memorystorage provides a purely in-memory entity store.
// It reuses the jsondb cache without binding it to a file, so nothing
// survives a restart. Intended for tests and local runs.
package memorystorage

import (
	"github.com/patric-chuzhbe/fittrack/internal/db/jsondb"
)

// MemoryStorage is the in-memory entity store.
type MemoryStorage struct {
	*jsondb.JSONDB
}

// New returns an empty in-memory store.
func New() (*MemoryStorage, error) {
	return &MemoryStorage{
		JSONDB: &jsondb.JSONDB{
			Cache: jsondb.NewCache(),
		},
	}, nil
}
