package database

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrLinkNotFound = errors.New("link not found")
	ErrLinkExists   = errors.New("link already exists")
)

// Store persists links. Implementations guarantee at most one record per
// custom link at any time.
type Store interface {
	// CreateVersioned inserts link under link.CustomLink. If a record already
	// holds that name it is first renamed to the smallest free "<name>-v<n>",
	// and the new name returned; renamed is empty when nothing collided.
	// Rename and insert commit atomically. ID and CreatedAt are filled in.
	CreateVersioned(ctx context.Context, link *Link) (renamed string, err error)
	GetByCustomLink(ctx context.Context, customLink string) (*Link, error)
	// List returns all links in creation order.
	List(ctx context.Context) ([]*Link, error)
	ToggleVisibility(ctx context.Context, customLink string) (*Link, error)
	Delete(ctx context.Context, customLink string) error
	ReferencesFile(ctx context.Context, filePath string) (bool, error)
	RunMigrations(ctx context.Context) error
	HealthCheck(ctx context.Context) error
	Close() error
}

// VersionedName is the n-th archived name for customLink.
func VersionedName(customLink string, n int) string {
	return fmt.Sprintf("%s-v%d", customLink, n)
}

// isUniqueConstraintError recognises unique violations from both backends.
func isUniqueConstraintError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "duplicate key value violates unique constraint")
}
