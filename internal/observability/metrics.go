package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// FeedReloads counts bulk loads by result (applied, failed, stale, closed).
	FeedReloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_feed_reloads_total",
		Help: "Total number of feed bulk loads by result",
	}, []string{"result"})

	// FeedSize is the number of posts currently held by the feed store.
	FeedSize = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wall_feed_size",
		Help: "Number of posts in the feed store",
	})

	// ChangeEvents counts push-channel change notifications by event type.
	ChangeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_change_events_total",
		Help: "Total number of change events received from the push channel",
	}, []string{"event_type"})

	// Submissions counts submission pipeline outcomes by error code ("ok" on success).
	Submissions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_submissions_total",
		Help: "Total number of post submissions by outcome",
	}, []string{"outcome"})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "wall_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "wall_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)
