package service

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"fileshare/internal/server/database"
	"fileshare/internal/server/storage"

	"github.com/stretchr/testify/require"
)

type testEnv struct {
	db       database.Store
	files    *flakyStorage
	registry *Registry
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.NewSQLite(filepath.Join(t.TempDir(), "links.db"))
	require.NoError(t, err)
	require.NoError(t, db.RunMigrations(context.Background()))
	t.Cleanup(func() { db.Close() })

	files := &flakyStorage{FileSystemStore: storage.NewFileSystemStore(t.TempDir())}
	require.NoError(t, files.EnsureDir())

	return &testEnv{
		db:       db,
		files:    files,
		registry: NewRegistry(db, files, 1024*1024),
	}
}

func (e *testEnv) upload(t *testing.T, link, content string, public bool, password string) *CreateResult {
	t.Helper()
	res, err := e.registry.Create(context.Background(), CreateRequest{
		CustomLink: link,
		Filename:   link + ".txt",
		Data:       strings.NewReader(content),
		Size:       int64(len(content)),
		IsPublic:   public,
		Password:   password,
	})
	require.NoError(t, err)
	return res
}

// flakyStorage is a filesystem store whose Delete can be made to fail.
type flakyStorage struct {
	*storage.FileSystemStore
	failDelete bool
}

func (f *flakyStorage) Delete(path string) error {
	if f.failDelete {
		return errors.New("permission denied")
	}
	return f.FileSystemStore.Delete(path)
}

// failingCreateStore rejects every insert.
type failingCreateStore struct {
	database.Store
}

func (failingCreateStore) CreateVersioned(context.Context, *database.Link) (string, error) {
	return "", errors.New("disk I/O error")
}

type staticAdmin struct {
	username, password string
}

func (a staticAdmin) VerifyAdmin(username, password string) bool {
	return username == a.username && password == a.password
}
