package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"wall/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func recordSpans(t *testing.T) *tracetest.SpanRecorder {
	t.Helper()
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	prev := observability.Tracer
	observability.Tracer = tp.Tracer("test")
	t.Cleanup(func() { observability.Tracer = prev })
	return rec
}

func tracedApp() *fiber.App {
	app := fiber.New()
	app.Use(TracingMiddleware())
	app.Get("/health/live", func(c *fiber.Ctx) error { return c.SendString("up") })
	app.Get("/api/posts/:id", func(c *fiber.Ctx) error { return c.SendString(c.Params("id")) })
	app.Post("/api/feed/reload", func(c *fiber.Ctx) error {
		return fiber.NewError(fiber.StatusServiceUnavailable, "offline")
	})
	return app
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (attribute.Value, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

func TestTracingMiddleware_NamesSpanAfterRoute(t *testing.T) {
	rec := recordSpans(t)

	resp, err := tracedApp().Test(httptest.NewRequest(http.MethodGet, "/api/posts/7", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "GET /api/posts/:id", spans[0].Name())
	assert.Equal(t, spans[0].SpanContext().TraceID().String(), resp.Header.Get("X-Trace-ID"))

	status, ok := spanAttr(spans[0], "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())
	assert.Equal(t, codes.Unset, spans[0].Status().Code)
}

func TestTracingMiddleware_MarksServerErrors(t *testing.T) {
	rec := recordSpans(t)

	resp, err := tracedApp().Test(httptest.NewRequest(http.MethodPost, "/api/feed/reload", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	status, ok := spanAttr(spans[0], "http.response.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusServiceUnavailable), status.AsInt64())
}

func TestTracingMiddleware_SkipsHealthChecks(t *testing.T) {
	rec := recordSpans(t)

	resp, err := tracedApp().Test(httptest.NewRequest(http.MethodGet, "/health/live", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Trace-ID"))
	assert.Empty(t, rec.Ended())
}
