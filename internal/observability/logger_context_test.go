package observability

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoggerRoundTrip(t *testing.T) {
	lg := slog.New(slog.NewJSONHandler(&bytes.Buffer{}, nil))
	base := context.Background()

	ctx := ContextWithLogger(base, lg)
	assert.Same(t, lg, LoggerFromContext(ctx))
	assert.Equal(t, base, ContextWithLogger(base, nil), "nil logger leaves ctx unchanged")
	assert.Same(t, slog.Default(), LoggerFromContext(base))
}

func TestWith_PropagatesAttributes(t *testing.T) {
	var buf bytes.Buffer
	ctx := ContextWithLogger(context.Background(), slog.New(slog.NewJSONHandler(&buf, nil)))

	ctx, lg := With(ctx, slog.String("analysis_key", "7:42:3"))
	require.NotNil(t, lg)

	// a deeper layer picks the enriched logger up from ctx
	LoggerFromContext(ctx).Info("dimension scored", slog.String("dimension", "skills"))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "7:42:3", line["analysis_key"])
	assert.Equal(t, "skills", line["dimension"])
}

func TestRequestID(t *testing.T) {
	ctx := context.Background()
	assert.Equal(t, "", RequestIDFromContext(ctx))
	assert.Equal(t, ctx, ContextWithRequestID(ctx, ""))

	ctx = ContextWithRequestID(ctx, "req-123")
	assert.Equal(t, "req-123", RequestIDFromContext(ctx))

	// survives detachment from cancellation
	assert.Equal(t, "req-123", RequestIDFromContext(context.WithoutCancel(ctx)))
}
