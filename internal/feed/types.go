// Package feed keeps an in-memory, ordered view of the wall's posts consistent
// across bulk loads, local submissions, and push notifications.
package feed

import (
	"context"
	"time"

	"wall/internal/models"
)

// Collection is the backend collection holding posts.
const Collection = "posts"

// OrderField is the sole sort key of the feed.
const OrderField = "created_at"

// Direction is a query sort direction.
type Direction int

const (
	Ascending Direction = iota
	Descending
)

func (d Direction) String() string {
	if d == Ascending {
		return "asc"
	}
	return "desc"
}

// ChangeType is the kind of write reported on the push channel.
type ChangeType string

const (
	ChangeInsert ChangeType = "INSERT"
	ChangeUpdate ChangeType = "UPDATE"
	ChangeDelete ChangeType = "DELETE"
)

// ChangeEvent describes a write against a backend collection. The wall ignores
// the payload and reloads; RecordID is kept for an incremental upsert path.
type ChangeEvent struct {
	Type       ChangeType `json:"type"`
	Collection string     `json:"collection"`
	RecordID   uint       `json:"record_id,omitempty"`
	At         time.Time  `json:"at"`
}

// Disposer tears down a subscription.
type Disposer func()

// NewPost is the record sent to the backend on insert. The backend assigns
// ID and CreatedAt.
type NewPost struct {
	Author   *string
	Body     string
	ImageURL *string
}

// Attachment is an image selected for a submission.
type Attachment struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Size returns the attachment size in bytes.
func (a *Attachment) Size() int {
	return len(a.Data)
}

// Reference identifies a completed upload in the binary store.
type Reference struct {
	Key         string
	ContentType string
	Size        int64
}

// Backend is the persistent store and push channel the feed is a client of.
type Backend interface {
	Query(ctx context.Context, collection, orderBy string, dir Direction) ([]models.Post, error)
	Insert(ctx context.Context, collection string, rec NewPost) (*models.Post, error)
	Subscribe(ctx context.Context, collection string, onAnyChange func(ChangeEvent)) (Disposer, error)
}

// BlobStore stores uploaded binaries.
type BlobStore interface {
	Upload(ctx context.Context, key string, data []byte, contentType string) (Reference, error)
	PublicURL(ref Reference) string
}
