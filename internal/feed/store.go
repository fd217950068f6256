package feed

import (
	"fmt"
	"slices"
	"sort"
	"sync"
	"time"

	"wall/internal/models"
	"wall/internal/observability"
)

// Persister loads and saves the feed between runs.
type Persister interface {
	Load() ([]models.Post, error)
	Save(posts []models.Post) error
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithPersister attaches a persistence collaborator used by Restore and Persist.
func WithPersister(p Persister) StoreOption {
	return func(s *Store) { s.persister = p }
}

// WithOptimisticRetention keeps locally prepended posts younger than d when a
// reload does not include them yet. Zero disables retention.
func WithOptimisticRetention(d time.Duration) StoreOption {
	return func(s *Store) { s.retention = d }
}

// WithClock overrides the time source.
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) { s.now = now }
}

// Store is the ordered post collection the wall renders from. Posts are unique
// by ID and sorted by CreatedAt descending; ties keep the order in which the
// mutation introduced them. Readers always receive copies.
type Store struct {
	mu         sync.RWMutex
	posts      []models.Post
	closed     bool
	retention  time.Duration
	optimistic map[uint]time.Time
	persister  Persister
	now        func() time.Time

	version uint64

	// notifyMu serializes observer calls; notified is the last version
	// delivered, so observers never see an older snapshot after a newer one.
	notifyMu sync.Mutex
	notified uint64
	watchMu  sync.Mutex
	watchers map[int]func([]models.Post)
	nextID   int
}

// NewStore creates an empty store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		optimistic: make(map[uint]time.Time),
		watchers:   make(map[int]func([]models.Post)),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ReplaceAll swaps the store's contents for posts, de-duplicated by ID (first
// occurrence wins) and stable-sorted by CreatedAt descending. It reports false
// when the store is closed.
func (s *Store) ReplaceAll(posts []models.Post) bool {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return false
	}

	seen := make(map[uint]struct{}, len(posts))
	next := make([]models.Post, 0, len(posts))
	for _, p := range posts {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		next = append(next, p)
	}
	next = s.retainOptimisticLocked(next, seen)

	slices.SortStableFunc(next, func(a, b models.Post) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})
	s.posts = next
	s.version++
	version, snapshot := s.version, slices.Clone(next)
	s.mu.Unlock()

	s.notify(version, snapshot)
	return true
}

// retainOptimisticLocked appends locally prepended posts that the incoming set
// lacks and that are still within the retention window.
func (s *Store) retainOptimisticLocked(next []models.Post, seen map[uint]struct{}) []models.Post {
	if s.retention <= 0 || len(s.optimistic) == 0 {
		return next
	}
	now := s.now()
	for id, at := range s.optimistic {
		if _, ok := seen[id]; ok || now.Sub(at) >= s.retention {
			delete(s.optimistic, id)
			continue
		}
		for _, p := range s.posts {
			if p.ID == id {
				next = append(next, p)
				seen[id] = struct{}{}
				break
			}
		}
	}
	return next
}

// Prepend inserts post at the position that keeps the order, which is the head
// for a post newer than everything held. It is a no-op returning false when a
// post with the same ID is present or the store is closed.
func (s *Store) Prepend(post models.Post) bool {
	s.mu.Lock()
	if s.closed || s.containsLocked(post.ID) {
		s.mu.Unlock()
		return false
	}

	idx := sort.Search(len(s.posts), func(i int) bool {
		return !s.posts[i].CreatedAt.After(post.CreatedAt)
	})
	s.posts = slices.Insert(s.posts, idx, post)
	if s.retention > 0 {
		s.optimistic[post.ID] = s.now()
	}
	s.version++
	version, snapshot := s.version, slices.Clone(s.posts)
	s.mu.Unlock()

	s.notify(version, snapshot)
	return true
}

// Posts returns a copy of the current sequence.
func (s *Store) Posts() []models.Post {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.posts)
}

// Len returns the number of posts held.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.posts)
}

// Contains reports whether a post with id is held.
func (s *Store) Contains(id uint) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.containsLocked(id)
}

func (s *Store) containsLocked(id uint) bool {
	for i := range s.posts {
		if s.posts[i].ID == id {
			return true
		}
	}
	return false
}

// Watch registers fn to receive a snapshot after every applied mutation. fn
// runs outside the store lock and must not mutate the store. The returned
// function unregisters it.
func (s *Store) Watch(fn func([]models.Post)) func() {
	s.watchMu.Lock()
	id := s.nextID
	s.nextID++
	s.watchers[id] = fn
	s.watchMu.Unlock()

	return func() {
		s.watchMu.Lock()
		delete(s.watchers, id)
		s.watchMu.Unlock()
	}
}

func (s *Store) notify(version uint64, snapshot []models.Post) {
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if version <= s.notified {
		return
	}
	s.notified = version
	observability.FeedSize.Set(float64(len(snapshot)))

	s.watchMu.Lock()
	fns := make([]func([]models.Post), 0, len(s.watchers))
	for _, fn := range s.watchers {
		fns = append(fns, fn)
	}
	s.watchMu.Unlock()

	for _, fn := range fns {
		fn(slices.Clone(snapshot))
	}
}

// Close stops the store from accepting mutations. Late load or submission
// results are dropped afterwards.
func (s *Store) Close() {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()
}

// Closed reports whether Close has been called.
func (s *Store) Closed() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.closed
}

// Restore replaces the contents with the persisted snapshot, if any.
func (s *Store) Restore() error {
	if s.persister == nil {
		return nil
	}
	posts, err := s.persister.Load()
	if err != nil {
		return fmt.Errorf("restore feed snapshot: %w", err)
	}
	if len(posts) > 0 {
		s.ReplaceAll(posts)
	}
	return nil
}

// Persist saves the current contents through the persister, if any. It waits
// for observer calls in progress, so a save made by a watcher cannot land
// after it.
func (s *Store) Persist() error {
	if s.persister == nil {
		return nil
	}
	s.notifyMu.Lock()
	defer s.notifyMu.Unlock()
	if err := s.persister.Save(s.Posts()); err != nil {
		return fmt.Errorf("persist feed snapshot: %w", err)
	}
	return nil
}
