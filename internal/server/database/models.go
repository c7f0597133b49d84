package database

import (
	"path/filepath"
	"time"
)

// Link is a shared file record addressed by its custom link.
type Link struct {
	ID           int64
	CustomLink   string
	FilePath     string
	IsPublic     bool
	PasswordHash *string // nil when no password set
	CreatedAt    time.Time
}

// Filename is the display name of the stored file.
func (l *Link) Filename() string {
	return filepath.Base(l.FilePath)
}

// HasPassword reports whether downloads need a file password.
func (l *Link) HasPassword() bool {
	return l.PasswordHash != nil && *l.PasswordHash != ""
}
