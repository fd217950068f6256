// Package backend implements the feed's backend collaborator on top of the
// SQL repository and Redis change notifications.
package backend

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"wall/internal/feed"
	"wall/internal/models"
	"wall/internal/notifications"
	"wall/internal/observability"
	"wall/internal/repository"
)

// DataStore serves queries and inserts from the repository and publishes a
// change event after every write.
type DataStore struct {
	posts    repository.PostRepository
	notifier *notifications.Notifier
}

// NewDataStore creates a DataStore.
func NewDataStore(posts repository.PostRepository, notifier *notifications.Notifier) *DataStore {
	return &DataStore{posts: posts, notifier: notifier}
}

var _ feed.Backend = (*DataStore)(nil)

func checkCollection(collection string) error {
	if collection != feed.Collection {
		return fmt.Errorf("unknown collection %q", collection)
	}
	return nil
}

// Query returns every post ordered by created_at.
func (d *DataStore) Query(ctx context.Context, collection, orderBy string, dir feed.Direction) ([]models.Post, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	if orderBy != feed.OrderField {
		return nil, fmt.Errorf("unsupported order field %q", orderBy)
	}

	posts, err := d.posts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list posts: %w", err)
	}
	if dir == feed.Ascending {
		slices.Reverse(posts)
	}
	return posts, nil
}

// Insert creates the post and announces it on the change channel. A failed
// announcement is logged; the insert itself has succeeded.
func (d *DataStore) Insert(ctx context.Context, collection string, rec feed.NewPost) (*models.Post, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	post := &models.Post{
		Author:   rec.Author,
		Body:     rec.Body,
		ImageURL: rec.ImageURL,
	}
	if err := d.posts.Create(ctx, post); err != nil {
		return nil, fmt.Errorf("create post: %w", err)
	}

	d.Announce(ctx, feed.ChangeEvent{
		Type:       feed.ChangeInsert,
		Collection: collection,
		RecordID:   post.ID,
		At:         time.Now().UTC(),
	})
	return post, nil
}

// Announce publishes ev on the collection's change channel. Failures are
// logged, never returned.
func (d *DataStore) Announce(ctx context.Context, ev feed.ChangeEvent) {
	payload, err := json.Marshal(ev)
	if err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "marshal change event", slog.String("error", err.Error()))
		return
	}
	if err := d.notifier.PublishChange(ctx, ev.Collection, string(payload)); err != nil {
		observability.GlobalLogger.WarnContext(ctx, "publish change event failed",
			slog.String("collection", ev.Collection),
			slog.String("error", err.Error()),
		)
	}
}

// Subscribe forwards every change published for collection to onAnyChange.
// Payloads that do not decode are still delivered as an update.
func (d *DataStore) Subscribe(ctx context.Context, collection string, onAnyChange func(feed.ChangeEvent)) (feed.Disposer, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}

	stop, err := d.notifier.SubscribeChanges(ctx, collection, func(payload string) {
		var ev feed.ChangeEvent
		if err := json.Unmarshal([]byte(payload), &ev); err != nil {
			observability.GlobalLogger.Warn("undecodable change event",
				slog.String("collection", collection),
				slog.String("error", err.Error()),
			)
			ev = feed.ChangeEvent{Type: feed.ChangeUpdate, Collection: collection}
		}
		onAnyChange(ev)
	})
	if err != nil {
		return nil, err
	}
	return feed.Disposer(stop), nil
}
