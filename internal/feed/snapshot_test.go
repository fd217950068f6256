package feed_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"wall/internal/feed"
	"wall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileSnapshot_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "feed.yml")
	snap := feed.NewFileSnapshot(path)

	author := "Ada"
	url := "http://localhost/media/posts/a.png"
	posts := []models.Post{
		{ID: 2, Author: &author, Body: "with image", ImageURL: &url, CreatedAt: t0.Add(time.Minute)},
		{ID: 1, Body: "plain", CreatedAt: t0},
	}
	require.NoError(t, snap.Save(posts))

	loaded, err := snap.Load()
	require.NoError(t, err)
	require.Len(t, loaded, 2)
	assert.Equal(t, uint(2), loaded[0].ID)
	require.NotNil(t, loaded[0].Author)
	assert.Equal(t, "Ada", *loaded[0].Author)
	require.NotNil(t, loaded[0].ImageURL)
	assert.Equal(t, url, *loaded[0].ImageURL)
	assert.True(t, loaded[0].CreatedAt.Equal(t0.Add(time.Minute)))
	assert.Nil(t, loaded[1].Author)
	assert.Nil(t, loaded[1].ImageURL)
}

func TestFileSnapshot_MissingFile(t *testing.T) {
	snap := feed.NewFileSnapshot(filepath.Join(t.TempDir(), "absent.yml"))
	posts, err := snap.Load()
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestFileSnapshot_RejectsUnknownVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yml")
	require.NoError(t, os.WriteFile(path, []byte("version: 9\nposts: []\n"), 0o600))

	_, err := feed.NewFileSnapshot(path).Load()
	assert.ErrorContains(t, err, "unsupported snapshot version")
}

func TestFileSnapshot_RejectsGarbage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "feed.yml")
	require.NoError(t, os.WriteFile(path, []byte("posts: [unterminated"), 0o600))

	_, err := feed.NewFileSnapshot(path).Load()
	assert.Error(t, err)
}
