package database

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const linkColumns = `id, custom_link, file_path, is_public, password_hash, created_at`

// Repository is the postgres Store.
type Repository struct {
	*DB
}

var _ Store = (*Repository)(nil)

// NewRepository creates a new Repository.
func NewRepository(db *DB) *Repository {
	return &Repository{DB: db}
}

// CreateVersioned renames any current holder of the name and inserts the new
// link inside one transaction. A transaction-scoped advisory lock on the name
// serializes concurrent uploads of the same link across processes.
func (r *Repository) CreateVersioned(ctx context.Context, link *Link) (string, error) {
	tx, err := r.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, "SELECT pg_advisory_xact_lock(hashtext($1))", link.CustomLink); err != nil {
		return "", fmt.Errorf("failed to lock link name: %w", err)
	}

	var renamed string
	var existingID int64
	err = tx.QueryRow(ctx,
		"SELECT id FROM links WHERE custom_link = $1 FOR UPDATE", link.CustomLink,
	).Scan(&existingID)
	switch {
	case err == nil:
		renamed, err = nextFreeVersion(ctx, tx, link.CustomLink)
		if err != nil {
			return "", err
		}
		if _, err := tx.Exec(ctx,
			"UPDATE links SET custom_link = $1 WHERE id = $2", renamed, existingID,
		); err != nil {
			return "", fmt.Errorf("failed to rename existing link: %w", translatePgError(err))
		}
	case errors.Is(err, pgx.ErrNoRows):
	default:
		return "", fmt.Errorf("failed to check existing link: %w", err)
	}

	err = tx.QueryRow(ctx, `
		INSERT INTO links (custom_link, file_path, is_public, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at
	`,
		link.CustomLink,
		link.FilePath,
		link.IsPublic,
		link.PasswordHash,
	).Scan(&link.ID, &link.CreatedAt)
	if err != nil {
		return "", fmt.Errorf("failed to create link: %w", translatePgError(err))
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("failed to commit link: %w", err)
	}
	return renamed, nil
}

func nextFreeVersion(ctx context.Context, tx pgx.Tx, customLink string) (string, error) {
	for n := 1; ; n++ {
		candidate := VersionedName(customLink, n)
		var exists bool
		if err := tx.QueryRow(ctx,
			"SELECT EXISTS(SELECT 1 FROM links WHERE custom_link = $1)", candidate,
		).Scan(&exists); err != nil {
			return "", fmt.Errorf("failed to check version %s: %w", candidate, err)
		}
		if !exists {
			return candidate, nil
		}
	}
}

// GetByCustomLink retrieves a link by its custom link.
func (r *Repository) GetByCustomLink(ctx context.Context, customLink string) (*Link, error) {
	link, err := scanLink(r.Pool.QueryRow(ctx,
		"SELECT "+linkColumns+" FROM links WHERE custom_link = $1", customLink))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return link, nil
}

// List returns every link ordered by id.
func (r *Repository) List(ctx context.Context) ([]*Link, error) {
	rows, err := r.Pool.Query(ctx, "SELECT "+linkColumns+" FROM links ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	defer rows.Close()

	var links []*Link
	for rows.Next() {
		link, err := scanLink(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan link: %w", err)
		}
		links = append(links, link)
	}
	return links, rows.Err()
}

// ToggleVisibility flips is_public atomically and returns the updated link.
func (r *Repository) ToggleVisibility(ctx context.Context, customLink string) (*Link, error) {
	link, err := scanLink(r.Pool.QueryRow(ctx,
		"UPDATE links SET is_public = NOT is_public WHERE custom_link = $1 RETURNING "+linkColumns,
		customLink))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to toggle visibility: %w", err)
	}
	return link, nil
}

// Delete removes a link record.
func (r *Repository) Delete(ctx context.Context, customLink string) error {
	tag, err := r.Pool.Exec(ctx, "DELETE FROM links WHERE custom_link = $1", customLink)
	if err != nil {
		return fmt.Errorf("failed to delete link: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLinkNotFound
	}
	return nil
}

// ReferencesFile reports whether any link points at filePath.
func (r *Repository) ReferencesFile(ctx context.Context, filePath string) (bool, error) {
	var exists bool
	if err := r.Pool.QueryRow(ctx,
		"SELECT EXISTS(SELECT 1 FROM links WHERE file_path = $1)", filePath,
	).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check file reference: %w", err)
	}
	return exists, nil
}

func scanLink(row pgx.Row) (*Link, error) {
	link := &Link{}
	err := row.Scan(
		&link.ID,
		&link.CustomLink,
		&link.FilePath,
		&link.IsPublic,
		&link.PasswordHash,
		&link.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return link, nil
}

func translatePgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return fmt.Errorf("%w: %s", ErrLinkExists, pgErr.ConstraintName)
	}
	return err
}
