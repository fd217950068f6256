package server

import (
	"wall/internal/feed"
	"wall/internal/models"

	"github.com/gofiber/fiber/v2"
)

// DraftView is the composer's state as shown next to the input fields.
type DraftView struct {
	feed.Draft
	SubmissionState string `json:"submission_state"`
}

func (s *Server) draftView() DraftView {
	return DraftView{
		Draft:           s.wall.Composer().Draft(),
		SubmissionState: s.wall.Pipeline().State().String(),
	}
}

// GetDraft handles GET /api/draft
// @Summary Get the draft
// @Tags draft
// @Produce json
// @Success 200 {object} DraftView
// @Router /draft [get]
func (s *Server) GetDraft(c *fiber.Ctx) error {
	return c.JSON(s.draftView())
}

// UpdateDraft handles PUT /api/draft
// @Summary Update the draft
// @Description Replaces the draft body. A multipart image replaces the attachment; clear_image removes it.
// @Tags draft
// @Accept json,mpfd
// @Produce json
// @Param body formData string false "Draft text"
// @Param image formData file false "Image attachment"
// @Param clear_image formData bool false "Remove the attachment"
// @Success 200 {object} DraftView
// @Failure 400 {object} models.ErrorResponse
// @Router /draft [put]
func (s *Server) UpdateDraft(c *fiber.Ctx) error {
	var req struct {
		Body       *string `json:"body" form:"body"`
		ClearImage bool    `json:"clear_image" form:"clear_image"`
	}
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	image, err := formAttachment(c)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest, err)
	}
	if image != nil {
		if err := feed.ValidateAttachment(image); err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
	}

	// SetBody is the last step that can fail; nothing is applied before it.
	composer := s.wall.Composer()
	if req.Body != nil {
		if err := composer.SetBody(*req.Body); err != nil {
			return models.RespondWithError(c, models.StatusFor(err), err)
		}
	}
	switch {
	case image != nil:
		composer.Attach(image)
	case req.ClearImage:
		composer.Attach(nil)
	}

	return c.JSON(s.draftView())
}

// SubmitDraft handles POST /api/draft/submit
// @Summary Submit the draft
// @Description Posts the draft. The draft is cleared only when the post is created.
// @Tags draft
// @Produce json
// @Success 201 {object} PostView
// @Failure 400 {object} models.ErrorResponse
// @Failure 409 {object} models.ErrorResponse
// @Failure 502 {object} models.ErrorResponse
// @Router /draft/submit [post]
func (s *Server) SubmitDraft(c *fiber.Ctx) error {
	post, err := s.wall.Composer().Submit(c.UserContext())
	if err != nil {
		return models.RespondWithError(c, models.StatusFor(err), err)
	}
	return c.Status(fiber.StatusCreated).JSON(s.postViews([]models.Post{*post})[0])
}
