package server

import (
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"wall/internal/feed"
	"wall/internal/models"

	"github.com/gofiber/fiber/v2"
)

const imageField = "image"

func isMultipart(c *fiber.Ctx) bool {
	return strings.HasPrefix(string(c.Request().Header.ContentType()), fiber.MIMEMultipartForm)
}

// parseSubmission reads a post body and optional image from a JSON or
// multipart request.
func parseSubmission(c *fiber.Ctx) (string, *feed.Attachment, error) {
	if isMultipart(c) {
		image, err := formAttachment(c)
		if err != nil {
			return "", nil, err
		}
		return c.FormValue("body"), image, nil
	}

	var req struct {
		Body string `json:"body"`
	}
	if err := c.BodyParser(&req); err != nil {
		return "", nil, models.NewValidationError("Invalid request body")
	}
	return req.Body, nil, nil
}

// formAttachment returns the uploaded image file, or nil when the request
// carries none.
func formAttachment(c *fiber.Ctx) (*feed.Attachment, error) {
	if !isMultipart(c) {
		return nil, nil
	}
	form, err := c.MultipartForm()
	if err != nil {
		return nil, models.NewValidationError("Invalid multipart form")
	}
	files := form.File[imageField]
	if len(files) == 0 {
		return nil, nil
	}
	return readAttachment(files[0])
}

func readAttachment(fh *multipart.FileHeader) (*feed.Attachment, error) {
	f, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer func() { _ = f.Close() }()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}

	contentType := fh.Header.Get(fiber.HeaderContentType)
	if contentType == "" || contentType == fiber.MIMEOctetStream {
		contentType = http.DetectContentType(data)
	}

	return &feed.Attachment{
		Filename:    fh.Filename,
		ContentType: contentType,
		Data:        data,
	}, nil
}
