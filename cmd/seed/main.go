// Command main seeds the wall with demo posts.
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"wall/internal/backend"
	"wall/internal/cache"
	"wall/internal/config"
	"wall/internal/database"
	"wall/internal/notifications"
	"wall/internal/repository"
	"wall/internal/seed"
)

func main() {
	defaults := seed.DefaultOptions()
	numPosts := flag.Int("posts", defaults.NumPosts, "Number of posts to create")
	numAuthors := flag.Int("authors", defaults.NumAuthors, "Size of the author pool (0 for anonymous posts)")
	imageRatio := flag.Float64("images", defaults.ImageRatio, "Fraction of posts with an image")
	maxAge := flag.Duration("max-age", defaults.MaxAge, "How far back post timestamps are spread")
	seedValue := flag.Int64("seed", 0, "Random seed for reproducible content (0 for random)")
	shouldClean := flag.Bool("clean", false, "Delete existing posts before seeding")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	// Without Redis the posts are still written; open walls pick them up on reload.
	var store *backend.DataStore
	if rdb, err := cache.Connect(ctx, cfg.RedisURL); err != nil {
		log.Printf("Redis unavailable, change will not be announced: %v", err)
	} else {
		defer func() { _ = rdb.Close() }()
		store = backend.NewDataStore(repository.NewPostRepository(db), notifications.NewNotifier(rdb))
	}

	s := seed.NewSeeder(db, store)
	if *shouldClean {
		if err := s.ClearAll(ctx); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	posts, err := s.Seed(ctx, seed.Options{
		NumPosts:   *numPosts,
		NumAuthors: *numAuthors,
		ImageRatio: *imageRatio,
		MaxAge:     *maxAge,
		Seed:       *seedValue,
	})
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	log.Printf("Seeded %d posts", len(posts))
}
