//go:build !sqlite

package storage

import "fmt"

func newSQLiteStore(dbPath string) (Store, error) {
	return nil, fmt.Errorf("sqlite store %q unavailable: rebuild with -tags sqlite", dbPath)
}
