package feed

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"wall/internal/models"
	"wall/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithStaleDiscard makes each load take an increasing token and drops a
// response when a later-issued load has already been applied.
func WithStaleDiscard() LoaderOption {
	return func(l *Loader) { l.discardStale = true }
}

// Loader fetches the full collection and replaces the store's contents.
// Overlapping loads are not coalesced; the last ReplaceAll wins unless stale
// discard is enabled.
type Loader struct {
	backend Backend
	store   *Store

	discardStale bool
	issued       atomic.Uint64
	mu           sync.Mutex
	applied      uint64
}

// NewLoader creates a loader reading from backend into store.
func NewLoader(backend Backend, store *Store, opts ...LoaderOption) *Loader {
	l := &Loader{backend: backend, store: store}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Load runs one reconciliation pass. On failure it returns a FetchError and the
// store keeps its last-known-good contents.
func (l *Loader) Load(ctx context.Context) error {
	token := l.issued.Add(1)
	ctx, span := observability.StartSpan(ctx, "feed.load",
		attribute.Int64("feed.load.token", int64(token)),
	)
	defer span.End()

	posts, err := l.backend.Query(ctx, Collection, OrderField, Descending)
	if err != nil {
		fetchErr := models.NewFetchError(err)
		span.SetError(fetchErr)
		observability.FeedReloads.WithLabelValues("failed").Inc()
		observability.GlobalLogger.WarnContext(ctx, "feed load failed",
			slog.Uint64("token", token),
			slog.String("error", err.Error()),
		)
		return fetchErr
	}
	span.AddAttributes(attribute.Int("feed.load.posts", len(posts)))

	result := l.apply(token, posts)
	span.AddAttributes(attribute.String("feed.load.result", result))
	observability.FeedReloads.WithLabelValues(result).Inc()
	if result != "applied" {
		observability.GlobalLogger.DebugContext(ctx, "feed load dropped",
			slog.Uint64("token", token),
			slog.String("result", result),
		)
	}
	return nil
}

func (l *Loader) apply(token uint64, posts []models.Post) string {
	if !l.discardStale {
		if !l.store.ReplaceAll(posts) {
			return "closed"
		}
		return "applied"
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	if token < l.applied {
		return "stale"
	}
	if !l.store.ReplaceAll(posts) {
		return "closed"
	}
	l.applied = token
	return "applied"
}
