package storage

import (
	"errors"
	"fmt"
	"strings"

	"compras/internal/core"
)

var (
	// ErrStorageUnavailable marks every failure of the underlying database.
	ErrStorageUnavailable = errors.New("storage unavailable")

	ErrNotFound = core.ErrNotFound

	// ErrInMemoryDatabase rejects ":memory:" paths: migrations use their own
	// connection, which would get a separate empty database.
	ErrInMemoryDatabase = errors.New("in-memory sqlite databases are not supported")
)

func unavailable(op string, err error) error {
	return fmt.Errorf("%w: %s: %w", ErrStorageUnavailable, op, err)
}

func isInMemory(dbPath string) bool {
	dbPath = strings.ToLower(strings.TrimSpace(dbPath))
	return dbPath == ":memory:" || strings.Contains(dbPath, "mode=memory")
}
