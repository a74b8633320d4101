package storage

import (
	"fmt"
	"strings"
)

const (
	KindMemory = "memory"
	KindSQLite = "sqlite"

	DefaultStoreKind = KindMemory
)

// Kinds lists the store backends NewStore understands. SQLite is listed even
// when this build lacks it; opening it then fails with a rebuild hint.
func Kinds() []string {
	return []string{KindMemory, KindSQLite}
}

// NewStore opens a store of kind. The empty kind selects DefaultStoreKind and
// dbPath is only read by the sqlite backend.
func NewStore(kind, dbPath string) (Store, error) {
	switch kind {
	case "", KindMemory:
		return NewMemoryStore(), nil
	case KindSQLite:
		return newSQLiteStore(dbPath)
	default:
		return nil, fmt.Errorf("unsupported store backend %q (want one of %s)", kind, strings.Join(Kinds(), ", "))
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}
