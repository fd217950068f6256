package feed

import (
	"context"
	"sync"
	"unicode/utf8"

	"wall/internal/models"
)

// Draft is a read-only view of the composer's input fields.
type Draft struct {
	Body      string `json:"body"`
	Remaining int    `json:"remaining"`
	HasImage  bool   `json:"has_image"`
	ImageName string `json:"image_name,omitempty"`
}

// Composer holds the unsubmitted input and hands it to a pipeline. The
// fields are reset only after a successful submission.
type Composer struct {
	pipeline *Pipeline

	mu    sync.Mutex
	body  string
	image *Attachment
}

// NewComposer creates a composer submitting through p.
func NewComposer(p *Pipeline) *Composer {
	return &Composer{pipeline: p}
}

// SetBody replaces the draft body. Input longer than the character limit is
// rejected and the previous draft is kept.
func (c *Composer) SetBody(body string) error {
	if utf8.RuneCountInString(body) > models.CharLimit {
		return models.NewValidationError("Post body exceeds the character limit")
	}
	c.mu.Lock()
	c.body = body
	c.mu.Unlock()
	return nil
}

// Attach selects an image for the next submission; nil clears it.
func (c *Composer) Attach(a *Attachment) {
	c.mu.Lock()
	c.image = a
	c.mu.Unlock()
}

// Remaining returns how many characters can still be typed.
func (c *Composer) Remaining() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return models.CharLimit - utf8.RuneCountInString(c.body)
}

// Draft returns the current input fields.
func (c *Composer) Draft() Draft {
	c.mu.Lock()
	defer c.mu.Unlock()
	d := Draft{
		Body:      c.body,
		Remaining: models.CharLimit - utf8.RuneCountInString(c.body),
		HasImage:  c.image != nil,
	}
	if c.image != nil {
		d.ImageName = c.image.Filename
	}
	return d
}

// Submit sends the current draft through the pipeline. On success the fields
// are cleared unless they were edited while the submission was in flight.
func (c *Composer) Submit(ctx context.Context) (*models.Post, error) {
	c.mu.Lock()
	body, image := c.body, c.image
	c.mu.Unlock()

	post, err := c.pipeline.Submit(ctx, body, image)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	if c.body == body && c.image == image {
		c.body = ""
		c.image = nil
	}
	c.mu.Unlock()
	return post, nil
}
