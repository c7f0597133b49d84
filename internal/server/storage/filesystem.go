package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

var ErrFileNotFound = errors.New("file not found")

// Store defines the interface for file storage backends.
type Store interface {
	// Save writes data under a fresh directory and returns the stored path.
	Save(filename string, data io.Reader) (path string, size int64, err error)
	Size(path string) (int64, error)
	// Delete removes a stored file. A file that is already gone is not an error.
	Delete(path string) error
	List() ([]StoredFile, error)
	EnsureDir() error
}

// StoredFile is a file found under the storage root.
type StoredFile struct {
	Path    string
	ModTime time.Time
}

// FileSystemStore stores uploaded files on the local filesystem as
// <base>/<uuid>/<filename>.
type FileSystemStore struct {
	basePath string
}

// NewFileSystemStore creates a new filesystem storage backend. The base path
// is made absolute so stored paths survive a change of working directory.
func NewFileSystemStore(basePath string) *FileSystemStore {
	if abs, err := filepath.Abs(basePath); err == nil {
		basePath = abs
	}
	return &FileSystemStore{basePath: filepath.Clean(basePath)}
}

// BasePath returns the storage root.
func (fs *FileSystemStore) BasePath() string {
	return fs.basePath
}

// EnsureDir creates the storage directory if it doesn't exist.
func (fs *FileSystemStore) EnsureDir() error {
	if err := os.MkdirAll(fs.basePath, 0755); err != nil {
		return fmt.Errorf("failed to create storage directory %s: %w", fs.basePath, err)
	}
	return nil
}

// Save writes data to a new file. A partial file is removed on error.
func (fs *FileSystemStore) Save(filename string, data io.Reader) (string, int64, error) {
	dir := filepath.Join(fs.basePath, uuid.NewString())
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", 0, fmt.Errorf("failed to create upload directory: %w", err)
	}
	filePath := filepath.Join(dir, filename)

	file, err := os.Create(filePath)
	if err != nil {
		os.RemoveAll(dir)
		return "", 0, fmt.Errorf("failed to create file %s: %w", filePath, err)
	}

	n, err := io.Copy(file, data)
	if closeErr := file.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.RemoveAll(dir)
		return "", 0, fmt.Errorf("failed to write file: %w", err)
	}

	return filePath, n, nil
}

// Size returns the size in bytes of a stored file.
func (fs *FileSystemStore) Size(path string) (int64, error) {
	info, err := os.Stat(path)
	if err != nil {
		if os.IsNotExist(err) {
			return 0, fmt.Errorf("%w: %s", ErrFileNotFound, path)
		}
		return 0, fmt.Errorf("failed to stat file: %w", err)
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, path)
	}
	return info.Size(), nil
}

// Delete removes the file and, when it sits in its own upload directory,
// that directory too. Paths outside the storage root are refused.
func (fs *FileSystemStore) Delete(path string) error {
	if !fs.contains(path) {
		return fmt.Errorf("refusing to delete %s outside storage root %s", path, fs.basePath)
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete file %s: %w", path, err)
	}

	dir := filepath.Dir(path)
	if abs, err := filepath.Abs(dir); err == nil && abs != fs.basePath && fs.contains(abs) {
		// only succeeds when empty
		os.Remove(abs)
	}
	return nil
}

// List walks the storage root and returns every regular file.
func (fs *FileSystemStore) List() ([]StoredFile, error) {
	var files []StoredFile
	err := filepath.WalkDir(fs.basePath, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		files = append(files, StoredFile{Path: path, ModTime: info.ModTime()})
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list storage: %w", err)
	}
	return files, nil
}

func (fs *FileSystemStore) contains(path string) bool {
	if abs, err := filepath.Abs(path); err == nil {
		path = abs
	}
	rel, err := filepath.Rel(fs.basePath, path)
	if err != nil {
		return false
	}
	return rel != "." && rel != ".." && !strings.HasPrefix(rel, ".."+string(filepath.Separator))
}
