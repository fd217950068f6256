package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	"wall/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{})
	require.NoError(t, err)

	return gormDB, mock
}

func TestPostRepository_Create(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	post := &models.Post{Body: "Hello"}

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(7))
	mock.ExpectCommit()

	require.NoError(t, repo.Create(context.Background(), post))
	assert.Equal(t, uint(7), post.ID)
	assert.False(t, post.CreatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_CreateClassifiesConstraintErrors(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectBegin()
	mock.ExpectQuery(regexp.QuoteMeta(`INSERT INTO "posts"`)).
		WillReturnError(&pgconn.PgError{Code: "23502", Message: "null value in column \"body\""})
	mock.ExpectRollback()

	err := repo.Create(context.Background(), &models.Post{})
	assert.ErrorIs(t, err, ErrConstraint)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_List(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)
	now := time.Now().UTC()

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts" ORDER BY created_at DESC,id DESC`)).
		WillReturnRows(sqlmock.NewRows([]string{"id", "author", "body", "image_url", "created_at"}).
			AddRow(2, nil, "second", "http://x/media/a.png", now).
			AddRow(1, "Ada", "first", nil, now.Add(-time.Minute)))

	posts, err := repo.List(context.Background())
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, uint(2), posts[0].ID)
	assert.Nil(t, posts[0].Author)
	require.NotNil(t, posts[0].ImageURL)
	require.NotNil(t, posts[1].Author)
	assert.Equal(t, "Ada", *posts[1].Author)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostRepository_ListUnavailable(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewPostRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta(`SELECT * FROM "posts"`)).
		WillReturnError(&pgconn.PgError{Code: "57P01", Message: "terminating connection"})

	_, err := repo.List(context.Background())
	assert.ErrorIs(t, err, ErrUnavailable)
}
