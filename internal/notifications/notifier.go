// Package notifications carries change notifications over Redis and fans feed
// updates out to websocket clients.
package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"runtime/debug"
	"sync"

	"wall/internal/observability"

	"github.com/redis/go-redis/v9"
)

// Notifier publishes and subscribes to collection change channels in Redis.
type Notifier struct {
	rdb *redis.Client
}

// NewNotifier creates a new Notifier instance using the provided Redis client.
func NewNotifier(rdb *redis.Client) *Notifier {
	return &Notifier{rdb: rdb}
}

// ChangesChannel derives the Redis channel name for a collection's changes.
func ChangesChannel(collection string) string {
	return "changes:" + collection
}

// PublishChange sends a change payload on the collection's channel.
func (n *Notifier) PublishChange(ctx context.Context, collection, payload string) error {
	if n.rdb == nil {
		return nil
	}
	return n.rdb.Publish(ctx, ChangesChannel(collection), payload).Err()
}

// SubscribeChanges calls onMessage for every payload published on the
// collection's channel. It returns once the subscription is confirmed by the
// server. The returned stop function closes the subscription and waits for the
// delivery goroutine to exit; it is safe to call more than once.
func (n *Notifier) SubscribeChanges(
	ctx context.Context, collection string, onMessage func(payload string),
) (func(), error) {
	if n.rdb == nil {
		return func() {}, nil
	}

	channel := ChangesChannel(collection)
	sub := n.rdb.Subscribe(ctx, channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return nil, fmt.Errorf("subscribe %s: %w", channel, err)
	}
	ch := sub.Channel()

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer func() { _ = sub.Close() }()
		for {
			select {
			case <-runCtx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				func() {
					defer func() {
						if r := recover(); r != nil {
							observability.GlobalLogger.Error("panic in change subscriber",
								slog.String("channel", channel),
								slog.Any("panic", r),
								slog.String("stack", string(debug.Stack())),
							)
						}
					}()
					onMessage(msg.Payload)
				}()
			}
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
		})
	}, nil
}
