package notifications

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRedis(t *testing.T) *redis.Client {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return rdb
}

func TestChangesChannel(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "changes:posts", ChangesChannel("posts"))
}

func TestNotifier_NilClientIsNoop(t *testing.T) {
	n := NewNotifier(nil)
	assert.NoError(t, n.PublishChange(context.Background(), "posts", "{}"))

	stop, err := n.SubscribeChanges(context.Background(), "posts", func(string) {})
	require.NoError(t, err)
	stop()
}

func TestNotifier_SubscribeChangesDelivers(t *testing.T) {
	n := NewNotifier(newTestRedis(t))

	payloads := make(chan string, 4)
	stop, err := n.SubscribeChanges(context.Background(), "posts", func(p string) { payloads <- p })
	require.NoError(t, err)
	defer stop()

	require.NoError(t, n.PublishChange(context.Background(), "posts", `{"type":"INSERT"}`))
	require.NoError(t, n.PublishChange(context.Background(), "other", `{"type":"INSERT"}`))

	select {
	case p := <-payloads:
		assert.Equal(t, `{"type":"INSERT"}`, p)
	case <-time.After(2 * time.Second):
		t.Fatal("change not delivered")
	}
	assert.Never(t, func() bool { return len(payloads) > 0 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_StopEndsDelivery(t *testing.T) {
	n := NewNotifier(newTestRedis(t))

	var received int32
	stop, err := n.SubscribeChanges(context.Background(), "posts", func(string) {
		atomic.AddInt32(&received, 1)
	})
	require.NoError(t, err)

	require.NoError(t, n.PublishChange(context.Background(), "posts", "before"))
	require.Eventually(t, func() bool { return atomic.LoadInt32(&received) == 1 }, 2*time.Second, 10*time.Millisecond)

	stop()
	stop()
	require.NoError(t, n.PublishChange(context.Background(), "posts", "after"))
	assert.Never(t, func() bool { return atomic.LoadInt32(&received) > 1 }, 100*time.Millisecond, 10*time.Millisecond)
}

func TestNotifier_RecoversFromHandlerPanic(t *testing.T) {
	n := NewNotifier(newTestRedis(t))

	var calls int32
	stop, err := n.SubscribeChanges(context.Background(), "posts", func(string) {
		if atomic.AddInt32(&calls, 1) == 1 {
			panic("boom")
		}
	})
	require.NoError(t, err)
	defer stop()

	require.NoError(t, n.PublishChange(context.Background(), "posts", "1"))
	require.NoError(t, n.PublishChange(context.Background(), "posts", "2"))
	assert.Eventually(t, func() bool { return atomic.LoadInt32(&calls) == 2 }, 2*time.Second, 10*time.Millisecond)
}
