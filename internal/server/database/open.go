package database

import (
	"context"
	"fmt"
)

// Backend selects a Store implementation.
type Backend struct {
	Type       string // "sqlite" or "postgres"
	URL        string // postgres DSN
	SQLiteFile string
}

// Open connects to the configured backend. Callers run migrations separately.
func Open(ctx context.Context, b Backend) (Store, error) {
	switch b.Type {
	case "postgres":
		db, err := NewPostgres(ctx, b.URL)
		if err != nil {
			return nil, err
		}
		return NewRepository(db), nil
	case "sqlite", "":
		return NewSQLite(b.SQLiteFile)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", b.Type)
	}
}
