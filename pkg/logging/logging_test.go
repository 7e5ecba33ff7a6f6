package logging

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestParseLevel(t *testing.T) {
	assert.Equal(t, DEBUG, ParseLevel("debug"))
	assert.Equal(t, ERROR, ParseLevel("ERROR"))
	assert.Equal(t, INFO, ParseLevel(""))
	assert.Equal(t, INFO, ParseLevel("loud"))
}

func TestRequestIDIsAttached(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	logger := (&Logger{logger: zap.New(core)}).Named("book")

	ctx := WithRequestID(context.Background(), "req-1")
	logger.Info(ctx, "trade", zap.Int64("size", 3))
	logger.Debug(context.Background(), "no request")

	entries := logs.AllUntimed()
	require.Len(t, entries, 2)
	assert.Equal(t, "book", entries[0].LoggerName)
	assert.Equal(t, "req-1", entries[0].ContextMap()["request_id"])
	assert.Equal(t, int64(3), entries[0].ContextMap()["size"])
	assert.NotContains(t, entries[1].ContextMap(), "request_id")
}

func TestGetLogger(t *testing.T) {
	assert.Empty(t, RequestID(context.Background()))

	logger, ctx := GetLogger(context.Background())
	require.NotNil(t, logger)
	assert.NotEmpty(t, RequestID(ctx), "a request id is assigned")

	again, ctx2 := GetLogger(ctx)
	assert.Same(t, logger, again)
	assert.Equal(t, RequestID(ctx), RequestID(ctx2))

	own := NewNopLogger()
	got, _ := GetLogger(WithLogger(context.Background(), own))
	assert.Same(t, own, got)
}
