package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"fileshare/internal/linkname"
	"fileshare/internal/server/auth"
	"fileshare/internal/server/database"
	"fileshare/internal/server/storage"
)

// Sentinel errors for the service layer.
var (
	ErrNotFound       = errors.New("link not found")
	ErrInvalidLink    = errors.New("invalid custom link")
	ErrFileTooLarge   = errors.New("file exceeds maximum allowed size")
	ErrStorageFailure = errors.New("failed to store file")
	ErrDeleteFailed   = errors.New("failed to delete file")
)

// CreateRequest describes an upload.
type CreateRequest struct {
	CustomLink string
	Filename   string
	Data       io.Reader
	Size       int64 // declared size, -1 when unknown
	IsPublic   bool
	Password   string
}

// CreateResult is returned after a successful upload.
type CreateResult struct {
	Link *database.Link
	// Renamed is the archived name of the record that previously held the
	// link, empty when there was none.
	Renamed string
	Size    int64
}

// Registry owns the lifecycle of link records and their stored files.
type Registry struct {
	store       database.Store
	files       storage.Store
	maxFileSize int64
	locks       *keyedMutex
}

// NewRegistry creates a registry. maxFileSize <= 0 disables the size limit.
func NewRegistry(store database.Store, files storage.Store, maxFileSize int64) *Registry {
	return &Registry{
		store:       store,
		files:       files,
		maxFileSize: maxFileSize,
		locks:       newKeyedMutex(),
	}
}

// Create stores the file, then commits the record under req.CustomLink,
// archiving any previous holder as "<link>-v<n>". If the record cannot be
// committed the stored file is removed again.
func (r *Registry) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if !linkname.Valid(req.CustomLink) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidLink, req.CustomLink)
	}
	if r.maxFileSize > 0 && req.Size > r.maxFileSize {
		return nil, ErrFileTooLarge
	}

	passwordHash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	data := req.Data
	if r.maxFileSize > 0 {
		data = io.LimitReader(req.Data, r.maxFileSize+1)
	}

	path, size, err := r.files.Save(sanitizeFilename(req.Filename), data)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrStorageFailure, err)
	}
	if r.maxFileSize > 0 && size > r.maxFileSize {
		r.discard(path)
		return nil, ErrFileTooLarge
	}

	link := &database.Link{
		CustomLink:   req.CustomLink,
		FilePath:     path,
		IsPublic:     req.IsPublic,
		PasswordHash: passwordHash,
	}

	unlock := r.locks.Lock(req.CustomLink)
	renamed, err := r.store.CreateVersioned(ctx, link)
	unlock()
	if err != nil {
		r.discard(path)
		return nil, fmt.Errorf("failed to create link record: %w", err)
	}

	if renamed != "" {
		slog.Info("archived previous link", "custom_link", req.CustomLink, "renamed_to", renamed)
	}
	slog.Info("upload processed",
		"custom_link", link.CustomLink,
		"filename", link.Filename(),
		"size", size,
		"is_public", link.IsPublic,
		"has_password", link.HasPassword(),
	)

	return &CreateResult{Link: link, Renamed: renamed, Size: size}, nil
}

// Find returns the link or ErrNotFound.
func (r *Registry) Find(ctx context.Context, customLink string) (*database.Link, error) {
	link, err := r.store.GetByCustomLink(ctx, customLink)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return link, nil
}

// List returns all links in creation order.
func (r *Registry) List(ctx context.Context) ([]*database.Link, error) {
	return r.store.List(ctx)
}

// ToggleVisibility flips the public flag and returns the updated link.
func (r *Registry) ToggleVisibility(ctx context.Context, customLink string) (*database.Link, error) {
	unlock := r.locks.Lock(customLink)
	defer unlock()

	link, err := r.store.ToggleVisibility(ctx, customLink)
	if err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	slog.Info("visibility changed", "custom_link", customLink, "is_public", link.IsPublic)
	return link, nil
}

// Delete removes the stored file and then the record. When the file cannot
// be removed the record is kept and ErrDeleteFailed returned.
func (r *Registry) Delete(ctx context.Context, customLink string) error {
	unlock := r.locks.Lock(customLink)
	defer unlock()

	link, err := r.Find(ctx, customLink)
	if err != nil {
		return err
	}

	if err := r.files.Delete(link.FilePath); err != nil {
		slog.Error("failed to delete file from storage", "custom_link", customLink, "error", err)
		return fmt.Errorf("%w: %v", ErrDeleteFailed, err)
	}

	if err := r.store.Delete(ctx, customLink); err != nil {
		if errors.Is(err, database.ErrLinkNotFound) {
			return ErrNotFound
		}
		return fmt.Errorf("failed to delete link record: %w", err)
	}

	slog.Info("link deleted", "custom_link", customLink, "filename", link.Filename())
	return nil
}

// IsPublic reports whether customLink exists and is public. Lookup errors
// count as not public.
func (r *Registry) IsPublic(ctx context.Context, customLink string) bool {
	link, err := r.store.GetByCustomLink(ctx, customLink)
	return err == nil && link.IsPublic
}

// FileSize returns the stored size of a link's file.
func (r *Registry) FileSize(link *database.Link) (int64, error) {
	return r.files.Size(link.FilePath)
}

// HealthCheck pings the persistence backend.
func (r *Registry) HealthCheck(ctx context.Context) error {
	return r.store.HealthCheck(ctx)
}

func (r *Registry) discard(path string) {
	if err := r.files.Delete(path); err != nil {
		slog.Error("failed to remove stored file after failed upload", "path", path, "error", err)
	}
}

// sanitizeFilename strips directory components and limits length.
func sanitizeFilename(name string) string {
	// Normalize Windows-style backslashes to forward slashes before
	// calling filepath.Base, which is platform-specific.
	name = strings.ReplaceAll(name, "\\", "/")

	name = filepath.Base(name)

	if len(name) > 255 {
		ext := filepath.Ext(name)
		if len(ext) > 32 {
			ext = ""
		}
		cut := 255 - len(ext)
		for cut > 0 && !utf8.RuneStart(name[cut]) {
			cut--
		}
		name = name[:cut] + ext
	}

	if name == "" || name == "." || name == "/" || name == ".." {
		name = "upload.bin"
	}

	return name
}
