package backend

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"wall/internal/config"
	"wall/internal/database"
	"wall/internal/feed"
	"wall/internal/notifications"
	"wall/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newDataStore(t *testing.T) (*DataStore, *notifications.Notifier) {
	t.Helper()
	db, err := database.Connect(&config.Config{
		DBDriver:   "sqlite",
		SQLitePath: filepath.Join(t.TempDir(), "wall.db"),
	})
	require.NoError(t, err)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	n := notifications.NewNotifier(rdb)
	return NewDataStore(repository.NewPostRepository(db), n), n
}

func TestDataStore_InsertAndQuery(t *testing.T) {
	ds, _ := newDataStore(t)
	ctx := context.Background()
	author := "Ada"

	first, err := ds.Insert(ctx, feed.Collection, feed.NewPost{Author: &author, Body: "first"})
	require.NoError(t, err)
	assert.NotZero(t, first.ID)
	assert.False(t, first.CreatedAt.IsZero())

	time.Sleep(5 * time.Millisecond)
	url := "http://localhost/media/posts/x.png"
	second, err := ds.Insert(ctx, feed.Collection, feed.NewPost{Body: "second", ImageURL: &url})
	require.NoError(t, err)

	desc, err := ds.Query(ctx, feed.Collection, feed.OrderField, feed.Descending)
	require.NoError(t, err)
	require.Len(t, desc, 2)
	assert.Equal(t, second.ID, desc[0].ID)
	require.NotNil(t, desc[0].ImageURL)
	assert.Equal(t, url, *desc[0].ImageURL)
	require.NotNil(t, desc[1].Author)
	assert.Equal(t, "Ada", *desc[1].Author)

	asc, err := ds.Query(ctx, feed.Collection, feed.OrderField, feed.Ascending)
	require.NoError(t, err)
	assert.Equal(t, first.ID, asc[0].ID)
}

func TestDataStore_RejectsUnknownCollection(t *testing.T) {
	ds, _ := newDataStore(t)
	ctx := context.Background()

	_, err := ds.Query(ctx, "comments", feed.OrderField, feed.Descending)
	assert.Error(t, err)
	_, err = ds.Query(ctx, feed.Collection, "body", feed.Descending)
	assert.Error(t, err)
	_, err = ds.Insert(ctx, "comments", feed.NewPost{Body: "x"})
	assert.Error(t, err)
	_, err = ds.Subscribe(ctx, "comments", func(feed.ChangeEvent) {})
	assert.Error(t, err)
}

func TestDataStore_InsertPublishesChange(t *testing.T) {
	ds, _ := newDataStore(t)
	ctx := context.Background()

	events := make(chan feed.ChangeEvent, 1)
	dispose, err := ds.Subscribe(ctx, feed.Collection, func(ev feed.ChangeEvent) { events <- ev })
	require.NoError(t, err)
	defer dispose()

	post, err := ds.Insert(ctx, feed.Collection, feed.NewPost{Body: "hello"})
	require.NoError(t, err)

	select {
	case ev := <-events:
		assert.Equal(t, feed.ChangeInsert, ev.Type)
		assert.Equal(t, feed.Collection, ev.Collection)
		assert.Equal(t, post.ID, ev.RecordID)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}
}

func TestDataStore_UndecodablePayloadStillNotifies(t *testing.T) {
	ds, n := newDataStore(t)
	ctx := context.Background()

	events := make(chan feed.ChangeEvent, 1)
	dispose, err := ds.Subscribe(ctx, feed.Collection, func(ev feed.ChangeEvent) { events <- ev })
	require.NoError(t, err)
	defer dispose()

	require.NoError(t, n.PublishChange(ctx, feed.Collection, "not json"))
	select {
	case ev := <-events:
		assert.Equal(t, feed.ChangeUpdate, ev.Type)
	case <-time.After(2 * time.Second):
		t.Fatal("no change event")
	}
}

// A wall mounted on the real backend picks up another actor's insert.
func TestDataStore_WallReconcilesExternalInsert(t *testing.T) {
	ds, _ := newDataStore(t)
	ctx := context.Background()

	w := feed.NewWall(feed.WallConfig{Backend: ds})
	require.NoError(t, w.Mount(ctx))
	defer w.Unmount(ctx)

	other, err := ds.Insert(ctx, feed.Collection, feed.NewPost{Body: "from elsewhere"})
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return w.Store().Contains(other.ID) }, 2*time.Second, 10*time.Millisecond)
}
