// Package testutil provides shared test doubles and fixtures for wall tests.
package testutil

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"slices"
	"sync"
	"time"

	"wall/internal/feed"
	"wall/internal/models"
)

// FakeBackend is an in-memory feed.Backend. Inserts assign increasing IDs and
// timestamps from Clock and notify subscribers synchronously.
type FakeBackend struct {
	mu          sync.Mutex
	posts       []models.Post
	nextID      uint
	subscribers map[int]func(feed.ChangeEvent)
	nextSub     int

	// QueryErr and InsertErr, when set, are returned by Query and Insert.
	QueryErr  error
	InsertErr error
	// SubscribeErr, when set, is returned by Subscribe.
	SubscribeErr error
	// Clock supplies CreatedAt for inserted posts.
	Clock func() time.Time
	// QueryHook runs before Query returns, outside the lock.
	QueryHook func(ctx context.Context)

	QueryCalls  int
	InsertCalls int
	Inserted    []feed.NewPost
}

// NewFakeBackend creates an empty backend whose clock advances one second per insert.
func NewFakeBackend() *FakeBackend {
	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	var tick int
	return &FakeBackend{
		nextID:      1,
		subscribers: make(map[int]func(feed.ChangeEvent)),
		Clock: func() time.Time {
			tick++
			return base.Add(time.Duration(tick) * time.Second)
		},
	}
}

// Query returns all posts sorted by CreatedAt descending.
func (b *FakeBackend) Query(ctx context.Context, _ string, _ string, _ feed.Direction) ([]models.Post, error) {
	b.mu.Lock()
	b.QueryCalls++
	if b.QueryErr != nil {
		err := b.QueryErr
		b.mu.Unlock()
		return nil, err
	}
	out := slices.Clone(b.posts)
	hook := b.QueryHook
	b.mu.Unlock()

	slices.SortStableFunc(out, func(a, c models.Post) int {
		return c.CreatedAt.Compare(a.CreatedAt)
	})
	if hook != nil {
		hook(ctx)
	}
	return out, nil
}

// Insert stores rec and notifies subscribers.
func (b *FakeBackend) Insert(_ context.Context, collection string, rec feed.NewPost) (*models.Post, error) {
	b.mu.Lock()
	b.InsertCalls++
	if b.InsertErr != nil {
		err := b.InsertErr
		b.mu.Unlock()
		return nil, err
	}
	b.Inserted = append(b.Inserted, rec)
	post := models.Post{
		ID:        b.nextID,
		Author:    rec.Author,
		Body:      rec.Body,
		ImageURL:  rec.ImageURL,
		CreatedAt: b.Clock(),
	}
	b.nextID++
	b.posts = append(b.posts, post)
	b.mu.Unlock()

	b.Emit(feed.ChangeEvent{Type: feed.ChangeInsert, Collection: collection, RecordID: post.ID, At: post.CreatedAt})
	return &post, nil
}

// Seed adds a post as another actor would, without notifying subscribers.
func (b *FakeBackend) Seed(body string) models.Post {
	b.mu.Lock()
	defer b.mu.Unlock()
	post := models.Post{ID: b.nextID, Body: body, CreatedAt: b.Clock()}
	b.nextID++
	b.posts = append(b.posts, post)
	return post
}

// Delete removes a post without notifying subscribers.
func (b *FakeBackend) Delete(id uint) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.posts = slices.DeleteFunc(b.posts, func(p models.Post) bool { return p.ID == id })
}

// Subscribe registers onAnyChange until the disposer is called.
func (b *FakeBackend) Subscribe(_ context.Context, _ string, onAnyChange func(feed.ChangeEvent)) (feed.Disposer, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.SubscribeErr != nil {
		return nil, b.SubscribeErr
	}
	id := b.nextSub
	b.nextSub++
	b.subscribers[id] = onAnyChange
	return func() {
		b.mu.Lock()
		delete(b.subscribers, id)
		b.mu.Unlock()
	}, nil
}

// Emit delivers ev to every subscriber.
func (b *FakeBackend) Emit(ev feed.ChangeEvent) {
	b.mu.Lock()
	subs := make([]func(feed.ChangeEvent), 0, len(b.subscribers))
	for _, fn := range b.subscribers {
		subs = append(subs, fn)
	}
	b.mu.Unlock()
	for _, fn := range subs {
		fn(ev)
	}
}

// QueryCount returns how many times Query has been called.
func (b *FakeBackend) QueryCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.QueryCalls
}

// Subscribers returns the number of active subscriptions.
func (b *FakeBackend) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subscribers)
}

// ErrFakeUpload is the default error returned by a failing FakeBlobStore.
var ErrFakeUpload = errors.New("fake upload failure")

// FakeBlobStore is an in-memory feed.BlobStore.
type FakeBlobStore struct {
	mu    sync.Mutex
	blobs map[string][]byte

	UploadErr   error
	UploadCalls int
}

// NewFakeBlobStore creates an empty blob store.
func NewFakeBlobStore() *FakeBlobStore {
	return &FakeBlobStore{blobs: make(map[string][]byte)}
}

// Upload stores data under key.
func (s *FakeBlobStore) Upload(_ context.Context, key string, data []byte, contentType string) (feed.Reference, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.UploadCalls++
	if s.UploadErr != nil {
		return feed.Reference{}, s.UploadErr
	}
	s.blobs[key] = slices.Clone(data)
	return feed.Reference{Key: key, ContentType: contentType, Size: int64(len(data))}, nil
}

// PublicURL returns a fake URL for ref.
func (s *FakeBlobStore) PublicURL(ref feed.Reference) string {
	return "https://blobs.test/" + ref.Key
}

// Keys returns the stored keys.
func (s *FakeBlobStore) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	keys := make([]string, 0, len(s.blobs))
	for k := range s.blobs {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// TinyPNG returns an in-memory PNG byte slice with the requested dimensions.
func TinyPNG(t interface {
	Helper()
	Fatalf(string, ...any)
}, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	buf := bytes.NewBuffer(nil)
	if err := png.Encode(buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}
