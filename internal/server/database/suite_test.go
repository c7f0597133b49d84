package database

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// runStoreSuite exercises the Store contract against any backend.
func runStoreSuite(t *testing.T, newStore func(t *testing.T) Store) {
	ctx := context.Background()

	t.Run("create and get", func(t *testing.T) {
		store := newStore(t)
		hash := "$2a$10$abcdefghijklmnopqrstuv"

		link := &Link{CustomLink: "alpha", FilePath: "uploads/1/alpha.txt", PasswordHash: &hash}
		renamed, err := store.CreateVersioned(ctx, link)
		require.NoError(t, err)
		assert.Empty(t, renamed)
		assert.NotZero(t, link.ID)
		assert.False(t, link.CreatedAt.IsZero())

		got, err := store.GetByCustomLink(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, link.ID, got.ID)
		assert.Equal(t, "uploads/1/alpha.txt", got.FilePath)
		assert.False(t, got.IsPublic)
		require.NotNil(t, got.PasswordHash)
		assert.Equal(t, hash, *got.PasswordHash)
		assert.Equal(t, "alpha.txt", got.Filename())
	})

	t.Run("get missing", func(t *testing.T) {
		store := newStore(t)
		_, err := store.GetByCustomLink(ctx, "nope")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("versioned rename on collision", func(t *testing.T) {
		store := newStore(t)

		first := &Link{CustomLink: "report", FilePath: "uploads/a/report.pdf"}
		_, err := store.CreateVersioned(ctx, first)
		require.NoError(t, err)

		second := &Link{CustomLink: "report", FilePath: "uploads/b/report.pdf"}
		renamed, err := store.CreateVersioned(ctx, second)
		require.NoError(t, err)
		assert.Equal(t, "report-v1", renamed)

		third := &Link{CustomLink: "report", FilePath: "uploads/c/report.pdf"}
		renamed, err = store.CreateVersioned(ctx, third)
		require.NoError(t, err)
		assert.Equal(t, "report-v2", renamed)

		want := map[string]string{
			"report-v1": "uploads/a/report.pdf",
			"report-v2": "uploads/b/report.pdf",
			"report":    "uploads/c/report.pdf",
		}
		for name, path := range want {
			got, err := store.GetByCustomLink(ctx, name)
			require.NoError(t, err, name)
			assert.Equal(t, path, got.FilePath, name)
		}

		links, err := store.List(ctx)
		require.NoError(t, err)
		assert.Len(t, links, 3)
	})

	t.Run("versioning fills the smallest gap", func(t *testing.T) {
		store := newStore(t)

		for _, name := range []string{"doc", "doc-v2"} {
			_, err := store.CreateVersioned(ctx, &Link{CustomLink: name, FilePath: "uploads/" + name})
			require.NoError(t, err)
		}

		renamed, err := store.CreateVersioned(ctx, &Link{CustomLink: "doc", FilePath: "uploads/new"})
		require.NoError(t, err)
		assert.Equal(t, "doc-v1", renamed)
	})

	t.Run("list in creation order", func(t *testing.T) {
		store := newStore(t)
		for _, name := range []string{"c", "a", "b"} {
			_, err := store.CreateVersioned(ctx, &Link{CustomLink: name, FilePath: "uploads/" + name})
			require.NoError(t, err)
		}

		links, err := store.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, 3)
		assert.Equal(t, "c", links[0].CustomLink)
		assert.Equal(t, "a", links[1].CustomLink)
		assert.Equal(t, "b", links[2].CustomLink)
	})

	t.Run("toggle visibility", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreateVersioned(ctx, &Link{CustomLink: "vis", FilePath: "uploads/vis"})
		require.NoError(t, err)

		link, err := store.ToggleVisibility(ctx, "vis")
		require.NoError(t, err)
		assert.True(t, link.IsPublic)

		link, err = store.ToggleVisibility(ctx, "vis")
		require.NoError(t, err)
		assert.False(t, link.IsPublic)

		_, err = store.ToggleVisibility(ctx, "missing")
		assert.ErrorIs(t, err, ErrLinkNotFound)
	})

	t.Run("delete", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreateVersioned(ctx, &Link{CustomLink: "gone", FilePath: "uploads/gone"})
		require.NoError(t, err)

		require.NoError(t, store.Delete(ctx, "gone"))
		_, err = store.GetByCustomLink(ctx, "gone")
		assert.ErrorIs(t, err, ErrLinkNotFound)

		assert.ErrorIs(t, store.Delete(ctx, "gone"), ErrLinkNotFound)
	})

	t.Run("references file", func(t *testing.T) {
		store := newStore(t)
		_, err := store.CreateVersioned(ctx, &Link{CustomLink: "ref", FilePath: "uploads/x/ref.bin"})
		require.NoError(t, err)

		ok, err := store.ReferencesFile(ctx, "uploads/x/ref.bin")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = store.ReferencesFile(ctx, "uploads/y/other.bin")
		require.NoError(t, err)
		assert.False(t, ok)
	})
}
