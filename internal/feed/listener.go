package feed

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"wall/internal/observability"
)

// Listener subscribes to change notifications for the post collection.
type Listener struct {
	backend Backend
}

// NewListener creates a listener over backend's push channel.
func NewListener(backend Backend) *Listener {
	return &Listener{backend: backend}
}

// Subscribe invokes onChange for every insert, update, or delete on the post
// collection. The returned Disposer is idempotent; once it returns, onChange is
// not invoked again. onChange must not call the Disposer itself.
func (l *Listener) Subscribe(ctx context.Context, onChange func(ChangeEvent)) (Disposer, error) {
	var (
		mu     sync.RWMutex
		closed bool
	)

	deliver := func(ev ChangeEvent) {
		mu.RLock()
		defer mu.RUnlock()
		if closed {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				observability.GlobalLogger.Error("panic in change handler",
					slog.Any("panic", r),
					slog.String("event_type", string(ev.Type)),
				)
			}
		}()
		observability.ChangeEvents.WithLabelValues(string(ev.Type)).Inc()
		onChange(ev)
	}

	stop, err := l.backend.Subscribe(ctx, Collection, deliver)
	if err != nil {
		return nil, fmt.Errorf("subscribe to %s: %w", Collection, err)
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			mu.Lock()
			closed = true
			mu.Unlock()
			if stop != nil {
				stop()
			}
		})
	}, nil
}
