package service

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"testing"
	"unicode/utf8"

	"fileshare/internal/linkname"
	"fileshare/internal/server/auth"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_Create(t *testing.T) {
	ctx := context.Background()

	t.Run("stores file and record", func(t *testing.T) {
		env := newTestEnv(t)
		res := env.upload(t, "alpha", "hello", false, "hunter2")

		assert.Empty(t, res.Renamed)
		assert.Equal(t, int64(5), res.Size)

		link, err := env.registry.Find(ctx, "alpha")
		require.NoError(t, err)
		assert.Equal(t, "alpha.txt", link.Filename())
		assert.False(t, link.IsPublic)
		require.True(t, link.HasPassword())
		assert.NotEqual(t, "hunter2", *link.PasswordHash)
		assert.True(t, auth.VerifyPassword("hunter2", link.PasswordHash))

		content, err := os.ReadFile(link.FilePath)
		require.NoError(t, err)
		assert.Equal(t, "hello", string(content))
	})

	t.Run("empty password stores no hash", func(t *testing.T) {
		env := newTestEnv(t)
		env.upload(t, "nopass", "x", false, "")

		link, err := env.registry.Find(ctx, "nopass")
		require.NoError(t, err)
		assert.Nil(t, link.PasswordHash)
	})

	t.Run("repeated names are versioned", func(t *testing.T) {
		env := newTestEnv(t)

		env.upload(t, "report", "first", false, "")
		second := env.upload(t, "report", "second", false, "")
		assert.Equal(t, "report-v1", second.Renamed)
		third := env.upload(t, "report", "third", true, "")
		assert.Equal(t, "report-v2", third.Renamed)

		want := map[string]string{
			"report-v1": "first",
			"report-v2": "second",
			"report":    "third",
		}
		for name, body := range want {
			link, err := env.registry.Find(ctx, name)
			require.NoError(t, err, name)
			content, err := os.ReadFile(link.FilePath)
			require.NoError(t, err)
			assert.Equal(t, body, string(content), name)
		}
	})

	t.Run("longest name still fits when versioned", func(t *testing.T) {
		env := newTestEnv(t)
		name := strings.Repeat("x", linkname.MaxLength)

		env.upload(t, name, "first", false, "")
		second := env.upload(t, name, "second", false, "")
		assert.Equal(t, name+"-v1", second.Renamed)
		assert.LessOrEqual(t, len(second.Renamed), 255)

		archived, err := env.registry.Find(ctx, second.Renamed)
		require.NoError(t, err)
		content, err := os.ReadFile(archived.FilePath)
		require.NoError(t, err)
		assert.Equal(t, "first", string(content))
	})

	t.Run("invalid link name", func(t *testing.T) {
		env := newTestEnv(t)
		for _, name := range []string{"", "../etc", "a/b", ".hidden", "-flag", "with space", strings.Repeat("x", linkname.MaxLength+1)} {
			_, err := env.registry.Create(ctx, CreateRequest{
				CustomLink: name, Filename: "f.txt", Data: strings.NewReader("x"), Size: 1,
			})
			assert.ErrorIs(t, err, ErrInvalidLink, "name %q", name)
		}
	})

	t.Run("declared size over limit", func(t *testing.T) {
		env := newTestEnv(t)
		_, err := env.registry.Create(ctx, CreateRequest{
			CustomLink: "big", Filename: "big.bin", Data: strings.NewReader("x"), Size: 2 * 1024 * 1024,
		})
		assert.ErrorIs(t, err, ErrFileTooLarge)
	})

	t.Run("streamed size over limit is discarded", func(t *testing.T) {
		env := newTestEnv(t)
		body := strings.Repeat("x", 1024*1024+10)
		_, err := env.registry.Create(ctx, CreateRequest{
			CustomLink: "sneaky", Filename: "big.bin", Data: strings.NewReader(body), Size: -1,
		})
		assert.ErrorIs(t, err, ErrFileTooLarge)

		files, err := env.files.List()
		require.NoError(t, err)
		assert.Empty(t, files)
		_, err = env.registry.Find(ctx, "sneaky")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("record failure removes stored file", func(t *testing.T) {
		env := newTestEnv(t)
		registry := NewRegistry(failingCreateStore{env.db}, env.files, 0)

		_, err := registry.Create(ctx, CreateRequest{
			CustomLink: "doomed", Filename: "doomed.txt", Data: strings.NewReader("x"), Size: 1,
		})
		require.Error(t, err)

		files, err := env.files.List()
		require.NoError(t, err)
		assert.Empty(t, files, "no orphaned file after failed commit")
	})

	t.Run("concurrent creates of one name", func(t *testing.T) {
		env := newTestEnv(t)
		const n = 8

		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_, err := env.registry.Create(ctx, CreateRequest{
					CustomLink: "race",
					Filename:   "race.txt",
					Data:       strings.NewReader(fmt.Sprintf("body-%d", i)),
					Size:       -1,
				})
				errs <- err
			}(i)
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			assert.NoError(t, err)
		}

		links, err := env.registry.List(ctx)
		require.NoError(t, err)
		require.Len(t, links, n)

		names := make(map[string]bool)
		for _, l := range links {
			names[l.CustomLink] = true
		}
		assert.True(t, names["race"])
		for v := 1; v < n; v++ {
			assert.True(t, names[fmt.Sprintf("race-v%d", v)], "missing race-v%d", v)
		}
		assert.Equal(t, 0, env.registry.locks.held())
	})
}

func TestRegistry_ToggleVisibility(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.upload(t, "vis", "x", false, "")

	link, err := env.registry.ToggleVisibility(ctx, "vis")
	require.NoError(t, err)
	assert.True(t, link.IsPublic)
	assert.True(t, env.registry.IsPublic(ctx, "vis"))

	link, err = env.registry.ToggleVisibility(ctx, "vis")
	require.NoError(t, err)
	assert.False(t, link.IsPublic)
	assert.False(t, env.registry.IsPublic(ctx, "vis"))

	_, err = env.registry.ToggleVisibility(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.False(t, env.registry.IsPublic(ctx, "missing"))
}

func TestRegistry_Delete(t *testing.T) {
	ctx := context.Background()

	t.Run("removes file and record", func(t *testing.T) {
		env := newTestEnv(t)
		env.upload(t, "gone", "x", false, "")
		link, err := env.registry.Find(ctx, "gone")
		require.NoError(t, err)

		require.NoError(t, env.registry.Delete(ctx, "gone"))

		_, err = env.registry.Find(ctx, "gone")
		assert.ErrorIs(t, err, ErrNotFound)
		_, err = os.Stat(link.FilePath)
		assert.True(t, os.IsNotExist(err))
	})

	t.Run("missing link", func(t *testing.T) {
		env := newTestEnv(t)
		assert.ErrorIs(t, env.registry.Delete(ctx, "nothing"), ErrNotFound)
	})

	t.Run("file already gone still deletes record", func(t *testing.T) {
		env := newTestEnv(t)
		env.upload(t, "stale", "x", false, "")
		link, _ := env.registry.Find(ctx, "stale")
		require.NoError(t, os.Remove(link.FilePath))

		require.NoError(t, env.registry.Delete(ctx, "stale"))
	})

	t.Run("file deletion failure keeps record", func(t *testing.T) {
		env := newTestEnv(t)
		env.upload(t, "sticky", "x", false, "")
		env.files.failDelete = true

		err := env.registry.Delete(ctx, "sticky")
		assert.ErrorIs(t, err, ErrDeleteFailed)
		assert.NotErrorIs(t, err, ErrNotFound)

		link, err := env.registry.Find(ctx, "sticky")
		require.NoError(t, err)
		_, err = os.Stat(link.FilePath)
		assert.NoError(t, err)
	})
}

func TestRegistry_FileSize(t *testing.T) {
	env := newTestEnv(t)
	env.upload(t, "sized", "12345", false, "")
	link, err := env.registry.Find(context.Background(), "sized")
	require.NoError(t, err)

	size, err := env.registry.FileSize(link)
	require.NoError(t, err)
	assert.Equal(t, int64(5), size)
}

func TestSanitizeFilename(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"simple name", "file.zip", "file.zip"},
		{"strips directory", "/path/to/file.zip", "file.zip"},
		{"strips windows path", "C:\\Users\\test\\file.zip", "file.zip"},
		{"empty name", "", "upload.bin"},
		{"dot name", ".", "upload.bin"},
		{"parent dir", "..", "upload.bin"},
		{"replaces slashes", "a/b/c.zip", "c.zip"},
		{"truncates keeping extension", strings.Repeat("n", 300) + ".pdf", strings.Repeat("n", 251) + ".pdf"},
		{"truncates on rune boundary", strings.Repeat("é", 200) + ".pdf", strings.Repeat("é", 125) + ".pdf"},
		{"truncates four byte runes", strings.Repeat("😀", 100), strings.Repeat("😀", 63)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sanitizeFilename(tt.input)
			if result != tt.expected {
				t.Errorf("sanitizeFilename(%q) = %q, want %q", tt.input, result, tt.expected)
			}
			if !utf8.ValidString(result) || len(result) > 255 {
				t.Errorf("sanitizeFilename(%q) = %q is not a valid name of at most 255 bytes", tt.input, result)
			}
		})
	}
}

func TestKeyedMutex(t *testing.T) {
	km := newKeyedMutex()

	var mu sync.Mutex
	counter := map[string]int{}
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			key := fmt.Sprintf("k%d", i%3)
			unlock := km.Lock(key)
			mu.Lock()
			counter[key]++
			mu.Unlock()
			unlock()
		}(i)
	}
	wg.Wait()

	assert.Equal(t, 0, km.held())
	assert.Equal(t, 20, counter["k0"]+counter["k1"]+counter["k2"])
}
