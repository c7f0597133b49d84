package database

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// linkRow is the gorm model behind SQLiteStore.
type linkRow struct {
	ID           int64     `gorm:"primaryKey;autoIncrement"`
	CustomLink   string    `gorm:"size:255;not null;uniqueIndex:idx_links_custom_link"`
	FilePath     string    `gorm:"type:text;not null;index:idx_links_file_path"`
	IsPublic     bool      `gorm:"not null"`
	PasswordHash *string   `gorm:"size:255"`
	CreatedAt    time.Time `gorm:"not null"`
}

func (linkRow) TableName() string { return "links" }

func (r *linkRow) toLink() *Link {
	return &Link{
		ID:           r.ID,
		CustomLink:   r.CustomLink,
		FilePath:     r.FilePath,
		IsPublic:     r.IsPublic,
		PasswordHash: r.PasswordHash,
		CreatedAt:    r.CreatedAt,
	}
}

// SQLiteStore is the single-node Store backed by a pure-Go SQLite driver.
type SQLiteStore struct {
	db *gorm.DB
}

var _ Store = (*SQLiteStore)(nil)

// NewSQLite opens (creating if needed) the database file at path.
func NewSQLite(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	// - journal_mode(WAL): concurrent readers, single writer
	// - busy_timeout(5000): wait up to 5s on a locked database
	dsn := path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open sqlite database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying database: %w", err)
	}
	// One writer at a time; avoids SQLITE_BUSY on read-to-write upgrades.
	sqlDB.SetMaxOpenConns(1)

	slog.Info("connected to database", "type", "sqlite", "path", path)
	return &SQLiteStore{db: db}, nil
}

// RunMigrations creates or extends the links table.
func (s *SQLiteStore) RunMigrations(ctx context.Context) error {
	if err := s.db.WithContext(ctx).AutoMigrate(&linkRow{}); err != nil {
		return fmt.Errorf("failed to run database migration: %w", err)
	}
	return nil
}

func (s *SQLiteStore) CreateVersioned(ctx context.Context, link *Link) (string, error) {
	var renamed string
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing linkRow
		err := tx.Where("custom_link = ?", link.CustomLink).Take(&existing).Error
		switch {
		case err == nil:
			for n := 1; ; n++ {
				candidate := VersionedName(link.CustomLink, n)
				var count int64
				if err := tx.Model(&linkRow{}).Where("custom_link = ?", candidate).Count(&count).Error; err != nil {
					return fmt.Errorf("failed to check version %s: %w", candidate, err)
				}
				if count == 0 {
					renamed = candidate
					break
				}
			}
			if err := tx.Model(&existing).Update("custom_link", renamed).Error; err != nil {
				return fmt.Errorf("failed to rename existing link: %w", translateGormError(err))
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
		default:
			return fmt.Errorf("failed to check existing link: %w", err)
		}

		row := linkRow{
			CustomLink:   link.CustomLink,
			FilePath:     link.FilePath,
			IsPublic:     link.IsPublic,
			PasswordHash: link.PasswordHash,
			CreatedAt:    time.Now().UTC(),
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("failed to create link: %w", translateGormError(err))
		}
		link.ID = row.ID
		link.CreatedAt = row.CreatedAt
		return nil
	})
	if err != nil {
		return "", err
	}
	return renamed, nil
}

func (s *SQLiteStore) GetByCustomLink(ctx context.Context, customLink string) (*Link, error) {
	var row linkRow
	err := s.db.WithContext(ctx).Where("custom_link = ?", customLink).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLinkNotFound
		}
		return nil, fmt.Errorf("failed to get link: %w", err)
	}
	return row.toLink(), nil
}

func (s *SQLiteStore) List(ctx context.Context) ([]*Link, error) {
	var rows []linkRow
	if err := s.db.WithContext(ctx).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to query links: %w", err)
	}
	links := make([]*Link, 0, len(rows))
	for i := range rows {
		links = append(links, rows[i].toLink())
	}
	return links, nil
}

func (s *SQLiteStore) ToggleVisibility(ctx context.Context, customLink string) (*Link, error) {
	var row linkRow
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&linkRow{}).
			Where("custom_link = ?", customLink).
			Update("is_public", gorm.Expr("NOT is_public"))
		if res.Error != nil {
			return fmt.Errorf("failed to toggle visibility: %w", res.Error)
		}
		if res.RowsAffected == 0 {
			return ErrLinkNotFound
		}
		return tx.Where("custom_link = ?", customLink).Take(&row).Error
	})
	if err != nil {
		return nil, err
	}
	return row.toLink(), nil
}

func (s *SQLiteStore) Delete(ctx context.Context, customLink string) error {
	res := s.db.WithContext(ctx).Where("custom_link = ?", customLink).Delete(&linkRow{})
	if res.Error != nil {
		return fmt.Errorf("failed to delete link: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrLinkNotFound
	}
	return nil
}

func (s *SQLiteStore) ReferencesFile(ctx context.Context, filePath string) (bool, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&linkRow{}).Where("file_path = ?", filePath).Count(&count).Error; err != nil {
		return false, fmt.Errorf("failed to check file reference: %w", err)
	}
	return count > 0, nil
}

func (s *SQLiteStore) HealthCheck(ctx context.Context) error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func translateGormError(err error) error {
	if isUniqueConstraintError(err) {
		return fmt.Errorf("%w: %v", ErrLinkExists, err)
	}
	return err
}
