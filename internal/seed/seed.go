// Package seed provides helpers to populate the wall with demo posts. These
// helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"wall/internal/backend"
	"wall/internal/feed"
	"wall/internal/models"
	"wall/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	NumPosts int
	// NumAuthors is the size of the author pool; zero leaves posts anonymous.
	NumAuthors int
	// ImageRatio is the fraction of posts carrying an image URL.
	ImageRatio float64
	// MaxAge bounds how far back created_at is spread.
	MaxAge time.Duration
	// Seed makes the generated content reproducible when non-zero.
	Seed int64
}

// DefaultOptions returns the options used by the seed command.
func DefaultOptions() Options {
	return Options{
		NumPosts:   40,
		NumAuthors: 8,
		ImageRatio: 0.25,
		MaxAge:     72 * time.Hour,
	}
}

// Seeder writes demo posts to the database.
type Seeder struct {
	db    *gorm.DB
	posts repository.PostRepository
	store *backend.DataStore
	now   func() time.Time
}

// NewSeeder creates a seeder. store may be nil; when set, a change is
// announced after seeding so mounted walls reload.
func NewSeeder(db *gorm.DB, store *backend.DataStore) *Seeder {
	return &Seeder{
		db:    db,
		posts: repository.NewPostRepository(db),
		store: store,
		now:   time.Now,
	}
}

// ClearAll removes every post.
func (s *Seeder) ClearAll(ctx context.Context) error {
	if err := s.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).
		Delete(&models.Post{}).Error; err != nil {
		return fmt.Errorf("clear posts: %w", err)
	}
	return nil
}

// Seed inserts opts.NumPosts generated posts and returns them in insertion order.
func (s *Seeder) Seed(ctx context.Context, opts Options) ([]models.Post, error) {
	faker := gofakeit.New(opts.Seed)
	if opts.Seed == 0 {
		faker = gofakeit.New(time.Now().UnixNano())
	}

	authors := make([]string, opts.NumAuthors)
	for i := range authors {
		authors[i] = faker.Name()
	}

	now := s.now().UTC()
	created := make([]models.Post, 0, opts.NumPosts)
	for range opts.NumPosts {
		post := BuildPost(faker, authors, opts, now)
		if err := s.posts.Create(ctx, &post); err != nil {
			return created, fmt.Errorf("seed post: %w", err)
		}
		created = append(created, post)
	}

	if s.store != nil && len(created) > 0 {
		s.store.Announce(ctx, feed.ChangeEvent{
			Type:       feed.ChangeInsert,
			Collection: feed.Collection,
			At:         now,
		})
	}
	return created, nil
}

// BuildPost generates a post without persisting it.
func BuildPost(faker *gofakeit.Faker, authors []string, opts Options, now time.Time) models.Post {
	post := models.Post{
		Body: truncate(faker.Sentence(faker.IntRange(4, 30)), models.CharLimit),
	}

	if len(authors) > 0 {
		name := authors[faker.IntRange(0, len(authors)-1)]
		post.Author = &name
	}

	if opts.ImageRatio > 0 && faker.Float64() < opts.ImageRatio {
		url := fmt.Sprintf("https://picsum.photos/seed/%s/800/600", faker.UUID())
		post.ImageURL = &url
	}

	maxAge := opts.MaxAge
	if maxAge <= 0 {
		maxAge = time.Hour
	}
	back := time.Duration(faker.Int64()) % maxAge
	if back < 0 {
		back = -back
	}
	post.CreatedAt = now.Add(-back)
	return post
}

// truncate cuts s to at most n runes without splitting a rune.
func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	runes := []rune(s)
	return strings.TrimSpace(string(runes[:n]))
}
