package server

import (
	"time"

	"wall/internal/feed"
	"wall/internal/models"

	"github.com/gofiber/fiber/v2"
)

// PostView is a post as rendered on the wall.
type PostView struct {
	ID        uint      `json:"id"`
	Author    *string   `json:"author"`
	Body      string    `json:"body"`
	ImageURL  *string   `json:"image_url,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	Posted    string    `json:"posted"`
}

func (s *Server) postViews(posts []models.Post) []PostView {
	now := s.now()
	out := make([]PostView, 0, len(posts))
	for _, p := range posts {
		out = append(out, PostView{
			ID:        p.ID,
			Author:    p.Author,
			Body:      p.Body,
			ImageURL:  p.ImageURL,
			CreatedAt: p.CreatedAt,
			Posted:    feed.FormatTimestamp(now, p.CreatedAt),
		})
	}
	return out
}

// GetPosts handles GET /api/posts
// @Summary List wall posts
// @Description Returns the wall's current view, newest first.
// @Tags posts
// @Produce json
// @Success 200 {array} PostView
// @Router /posts [get]
func (s *Server) GetPosts(c *fiber.Ctx) error {
	return c.JSON(s.postViews(s.wall.Store().Posts()))
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts a JSON body or a multipart form with a body field and an optional image file.
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Param body formData string true "Post text (max 280 characters)"
// @Param image formData file false "Image attachment (max 5 MiB)"
// @Success 201 {object} PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	body, image, err := parseSubmission(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}

	post, err := s.wall.Pipeline().Submit(c.UserContext(), body, image)
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}

	return c.Status(fiber.StatusCreated).JSON(s.postViews([]models.Post{*post})[0])
}

// ReloadFeed handles POST /api/feed/reload
// @Summary Reload the feed
// @Description Re-fetches the full post list from the backend. Failures are not retried.
// @Tags feed
// @Produce json
// @Success 200 {array} PostView
// @Failure 503 {object} models.ErrorResponse
// @Router /feed/reload [post]
func (s *Server) ReloadFeed(c *fiber.Ctx) error {
	if err := s.wall.Reload(c.UserContext()); err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	return c.JSON(s.postViews(s.wall.Store().Posts()))
}
