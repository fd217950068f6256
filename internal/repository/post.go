// Package repository provides data access layer implementations for the wall.
package repository

import (
	"context"
	"errors"
	"fmt"

	"wall/internal/models"
	"wall/internal/observability"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

var (
	// ErrConstraint reports a write rejected by a database constraint.
	ErrConstraint = errors.New("constraint violation")
	// ErrUnavailable reports a database that refused or dropped the connection.
	ErrUnavailable = errors.New("database unavailable")
)

// PostRepository defines the interface for post data operations
type PostRepository interface {
	List(ctx context.Context) ([]models.Post, error)
	Create(ctx context.Context, post *models.Post) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

// List returns every post, newest first. Equal timestamps fall back to the
// higher ID so the order is deterministic.
func (r *postRepository) List(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list")
		return nil, classify(err)
	}
	r.log.LogRead(ctx, map[string]interface{}{"count": len(posts)})
	return posts, nil
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return classify(err)
	}
	r.log.LogCreate(ctx, map[string]interface{}{"id": post.ID, "has_image": post.HasImage()})
	return nil
}

// classify maps Postgres SQLSTATE classes onto repository errors.
func classify(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	switch {
	case len(pgErr.Code) >= 2 && pgErr.Code[:2] == "23":
		return fmt.Errorf("%w: %s (%s)", ErrConstraint, pgErr.Message, pgErr.Code)
	case len(pgErr.Code) >= 2 && (pgErr.Code[:2] == "08" || pgErr.Code[:2] == "57"):
		return fmt.Errorf("%w: %s (%s)", ErrUnavailable, pgErr.Message, pgErr.Code)
	default:
		return err
	}
}
