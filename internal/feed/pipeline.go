package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"path/filepath"
	"strings"
	"sync"
	"unicode/utf8"

	"wall/internal/models"
	"wall/internal/observability"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

// State is a submission pipeline state.
type State int

const (
	StateIdle State = iota
	StateValidating
	StateUploadingImage
	StateInserting
	StateSucceeded
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateValidating:
		return "validating"
	case StateUploadingImage:
		return "uploading_image"
	case StateInserting:
		return "inserting"
	case StateSucceeded:
		return "settled_success"
	case StateFailed:
		return "settled_failure"
	default:
		return fmt.Sprintf("state(%d)", int(s))
	}
}

// Settled reports whether s is a terminal state.
func (s State) Settled() bool {
	return s == StateSucceeded || s == StateFailed
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithAuthor sets the identity attached to every submitted post.
func WithAuthor(author *string) PipelineOption {
	return func(p *Pipeline) { p.author = author }
}

// WithKeyFunc overrides how upload keys are generated from a file extension.
func WithKeyFunc(fn func(ext string) string) PipelineOption {
	return func(p *Pipeline) { p.newKey = fn }
}

// Pipeline validates, uploads, and inserts one submission at a time.
type Pipeline struct {
	backend Backend
	blobs   BlobStore
	store   *Store
	author  *string
	newKey  func(ext string) string

	mu       sync.Mutex
	state    State
	inFlight bool
}

// NewPipeline creates a submission pipeline.
func NewPipeline(backend Backend, blobs BlobStore, store *Store, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		backend: backend,
		blobs:   blobs,
		store:   store,
		newKey:  defaultKey,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func defaultKey(ext string) string {
	return "posts/" + uuid.NewString() + ext
}

// State returns the current pipeline state.
func (p *Pipeline) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

func (p *Pipeline) setState(s State) {
	p.mu.Lock()
	p.state = s
	p.mu.Unlock()
}

// Submit creates a post from body and an optional image. On success the
// backend's canonical record is prepended to the store and returned. On
// failure the store is unchanged.
func (p *Pipeline) Submit(ctx context.Context, body string, image *Attachment) (*models.Post, error) {
	p.mu.Lock()
	if p.inFlight {
		p.mu.Unlock()
		observability.Submissions.WithLabelValues(models.CodeBusy).Inc()
		return nil, models.NewBusyError()
	}
	p.inFlight = true
	p.state = StateValidating
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.inFlight = false
		p.mu.Unlock()
	}()

	ctx, span := observability.StartSpan(ctx, "feed.submit",
		attribute.Bool("feed.submit.has_image", image != nil),
	)
	defer span.End()

	post, err := p.run(ctx, body, image)
	if err != nil {
		p.setState(StateFailed)
		span.SetError(err)
		observability.Submissions.WithLabelValues(errorCode(err)).Inc()
		return nil, err
	}

	p.setState(StateSucceeded)
	span.AddAttributes(attribute.Int64("feed.post.id", int64(post.ID)))
	observability.Submissions.WithLabelValues("ok").Inc()
	return post, nil
}

func (p *Pipeline) run(ctx context.Context, body string, image *Attachment) (*models.Post, error) {
	trimmed, err := ValidateBody(body)
	if err != nil {
		return nil, err
	}

	var imageURL *string
	if image != nil {
		p.setState(StateUploadingImage)
		url, err := p.upload(ctx, image)
		if err != nil {
			return nil, err
		}
		imageURL = &url
	}

	p.setState(StateInserting)
	rec, err := p.backend.Insert(ctx, Collection, NewPost{
		Author:   p.author,
		Body:     trimmed,
		ImageURL: imageURL,
	})
	if err == nil && rec == nil {
		err = errors.New("backend returned no record")
	}
	if err != nil {
		if imageURL != nil {
			observability.GlobalLogger.WarnContext(ctx, "insert failed after upload; image left orphaned",
				slog.String("image_url", *imageURL),
			)
		}
		return nil, models.NewInsertError(err)
	}

	p.store.Prepend(*rec)
	return rec, nil
}

func (p *Pipeline) upload(ctx context.Context, image *Attachment) (string, error) {
	if err := ValidateAttachment(image); err != nil {
		return "", err
	}
	key := p.newKey(extensionFor(image))
	ref, err := p.blobs.Upload(ctx, key, image.Data, image.ContentType)
	if err != nil {
		return "", models.NewUploadError(err)
	}
	return p.blobs.PublicURL(ref), nil
}

// ValidateBody checks a post body and returns it trimmed.
func ValidateBody(body string) (string, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return "", models.NewValidationError("Post body cannot be empty")
	}
	if utf8.RuneCountInString(body) > models.CharLimit {
		return "", models.NewValidationError(fmt.Sprintf("Post body exceeds %d characters", models.CharLimit))
	}
	return trimmed, nil
}

// ValidateAttachment checks the declared media type and size of an image.
func ValidateAttachment(a *Attachment) error {
	if !strings.HasPrefix(strings.ToLower(a.ContentType), models.ImageMediaPrefix) {
		return models.NewValidationError("Attachment must be an image")
	}
	if a.Size() == 0 {
		return models.NewValidationError("Attachment is empty")
	}
	if a.Size() > models.MaxUploadBytes {
		return models.NewValidationError(fmt.Sprintf("Image too large (max %dMB)", models.MaxUploadBytes>>20))
	}
	return nil
}

func extensionFor(a *Attachment) string {
	if ext := strings.ToLower(filepath.Ext(a.Filename)); ext != "" {
		return ext
	}
	if exts, err := mime.ExtensionsByType(a.ContentType); err == nil && len(exts) > 0 {
		return exts[0]
	}
	return ""
}

func errorCode(err error) string {
	var appErr *models.AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return models.CodeInternal
}
