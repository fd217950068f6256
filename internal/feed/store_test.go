package feed_test

import (
	"sync"
	"testing"
	"time"

	"wall/internal/feed"
	"wall/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func post(id uint, offset time.Duration, body string) models.Post {
	return models.Post{ID: id, Body: body, CreatedAt: t0.Add(offset)}
}

func ids(posts []models.Post) []uint {
	out := make([]uint, 0, len(posts))
	for _, p := range posts {
		out = append(out, p.ID)
	}
	return out
}

func TestStore_ReplaceAllSortsDescending(t *testing.T) {
	s := feed.NewStore()
	ok := s.ReplaceAll([]models.Post{
		post(1, 0, "oldest"),
		post(3, 2*time.Minute, "newest"),
		post(2, time.Minute, "middle"),
	})
	require.True(t, ok)
	assert.Equal(t, []uint{3, 2, 1}, ids(s.Posts()))
}

func TestStore_ReplaceAllStableTies(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{
		post(5, 0, "a"),
		post(7, 0, "b"),
		post(6, 0, "c"),
		post(9, time.Second, "d"),
	})
	assert.Equal(t, []uint{9, 5, 7, 6}, ids(s.Posts()))
}

func TestStore_ReplaceAllDeduplicates(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{
		post(1, 0, "first"),
		post(1, time.Hour, "duplicate"),
		post(2, time.Minute, "other"),
	})
	posts := s.Posts()
	require.Len(t, posts, 2)
	assert.Equal(t, []uint{2, 1}, ids(posts))
	assert.Equal(t, "first", posts[1].Body)
}

func TestStore_ReplaceAllCopiesInput(t *testing.T) {
	s := feed.NewStore()
	in := []models.Post{post(1, 0, "x")}
	s.ReplaceAll(in)
	in[0].Body = "mutated"
	assert.Equal(t, "x", s.Posts()[0].Body)
}

func TestStore_PrependAtHead(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{post(1, 0, "a"), post(2, time.Minute, "b")})

	require.True(t, s.Prepend(post(3, 2*time.Minute, "c")))
	assert.Equal(t, []uint{3, 2, 1}, ids(s.Posts()))
}

func TestStore_PrependKeepsOrderForOlderPost(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{post(1, 0, "a"), post(3, 2*time.Minute, "c")})

	require.True(t, s.Prepend(post(2, time.Minute, "b")))
	assert.Equal(t, []uint{3, 2, 1}, ids(s.Posts()))
}

func TestStore_PrependDuplicateIsNoop(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{post(1, 0, "a")})

	assert.False(t, s.Prepend(post(1, time.Hour, "again")))
	assert.Equal(t, 1, s.Len())
	assert.Equal(t, "a", s.Posts()[0].Body)
}

func TestStore_PrependThenReplaceAllHasNoDuplicates(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	s.Prepend(post(2, time.Minute, "mine"))

	s.ReplaceAll([]models.Post{post(2, time.Minute, "mine"), post(1, 0, "a")})

	count := 0
	for _, p := range s.Posts() {
		if p.ID == 2 {
			count++
		}
	}
	assert.Equal(t, 1, count)
	assert.True(t, s.Contains(2))
}

func TestStore_ReplaceAllDropsUnconfirmedPrependByDefault(t *testing.T) {
	s := feed.NewStore()
	s.Prepend(post(2, time.Minute, "mine"))

	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	assert.False(t, s.Contains(2))
}

func TestStore_OptimisticRetention(t *testing.T) {
	now := t0
	s := feed.NewStore(
		feed.WithOptimisticRetention(5*time.Second),
		feed.WithClock(func() time.Time { return now }),
	)
	s.Prepend(post(2, time.Minute, "mine"))

	now = now.Add(2 * time.Second)
	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	assert.Equal(t, []uint{2, 1}, ids(s.Posts()))

	now = now.Add(10 * time.Second)
	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	assert.Equal(t, []uint{1}, ids(s.Posts()))
}

func TestStore_OptimisticRetentionClearsConfirmed(t *testing.T) {
	now := t0
	s := feed.NewStore(
		feed.WithOptimisticRetention(time.Minute),
		feed.WithClock(func() time.Time { return now }),
	)
	s.Prepend(post(2, time.Minute, "mine"))
	s.ReplaceAll([]models.Post{post(2, time.Minute, "mine")})

	// Once confirmed, a later external deletion is honoured.
	s.ReplaceAll(nil)
	assert.Equal(t, 0, s.Len())
}

func TestStore_ClosedIgnoresMutations(t *testing.T) {
	s := feed.NewStore()
	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	s.Close()

	assert.True(t, s.Closed())
	assert.False(t, s.ReplaceAll(nil))
	assert.False(t, s.Prepend(post(2, time.Minute, "b")))
	assert.Equal(t, []uint{1}, ids(s.Posts()))
}

func TestStore_WatchReceivesSnapshots(t *testing.T) {
	s := feed.NewStore()
	var got [][]uint
	stop := s.Watch(func(posts []models.Post) {
		got = append(got, ids(posts))
	})

	s.ReplaceAll([]models.Post{post(1, 0, "a")})
	s.Prepend(post(2, time.Minute, "b"))
	s.Prepend(post(2, time.Minute, "b"))
	stop()
	s.Prepend(post(3, 2*time.Minute, "c"))

	assert.Equal(t, [][]uint{{1}, {2, 1}}, got)
}

func TestStore_WatcherMayReadStore(t *testing.T) {
	s := feed.NewStore()
	var lens []int
	s.Watch(func([]models.Post) { lens = append(lens, s.Len()) })
	s.Prepend(post(1, 0, "a"))
	assert.Equal(t, []int{1}, lens)
}

func TestStore_ConcurrentReadersSeeSortedSnapshots(t *testing.T) {
	s := feed.NewStore()
	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			posts := s.Posts()
			for i := 1; i < len(posts); i++ {
				if posts[i].CreatedAt.After(posts[i-1].CreatedAt) {
					t.Errorf("unsorted snapshot: %v", ids(posts))
					return
				}
			}
		}
	}()

	for i := 0; i < 200; i++ {
		batch := []models.Post{
			post(uint(i*3+1), time.Duration(i)*time.Second, "x"),
			post(uint(i*3+2), time.Duration(i+5)*time.Second, "y"),
			post(uint(i*3+3), time.Duration(i+2)*time.Second, "z"),
		}
		s.ReplaceAll(batch)
		s.Prepend(post(uint(10000+i), time.Duration(i+1)*time.Second, "p"))
	}
	close(stop)
	wg.Wait()
}

type memPersister struct {
	saved  []models.Post
	loaded []models.Post
	err    error
}

func (m *memPersister) Load() ([]models.Post, error) { return m.loaded, m.err }
func (m *memPersister) Save(posts []models.Post) error {
	m.saved = posts
	return m.err
}

func TestStore_RestoreAndPersist(t *testing.T) {
	p := &memPersister{loaded: []models.Post{post(1, 0, "a"), post(2, time.Minute, "b")}}
	s := feed.NewStore(feed.WithPersister(p))

	require.NoError(t, s.Restore())
	assert.Equal(t, []uint{2, 1}, ids(s.Posts()))

	s.Prepend(post(3, 2*time.Minute, "c"))
	require.NoError(t, s.Persist())
	assert.Equal(t, []uint{3, 2, 1}, ids(p.saved))
}

func TestStore_RestoreWithoutPersister(t *testing.T) {
	s := feed.NewStore()
	assert.NoError(t, s.Restore())
	assert.NoError(t, s.Persist())
}
