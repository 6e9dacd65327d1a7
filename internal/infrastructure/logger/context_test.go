package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestFromContext_NoLogger(t *testing.T) {
	log := FromContext(context.Background())
	assert.NotNil(t, log)
	log.Info("discarded")
}

func TestWithContext_RoundTrip(t *testing.T) {
	log := zap.NewNop()
	ctx := WithContext(context.Background(), log)
	assert.Same(t, log, FromContext(ctx))
}

func TestWithBatchID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	ctx = WithBatchID(ctx, "batch-1")
	assert.Equal(t, "batch-1", GetBatchID(ctx))

	ForOffer(ctx, "SKU-1").Info("item priced")

	entries := recorded.All()
	if assert.Len(t, entries, 1) {
		fields := entries[0].ContextMap()
		assert.Equal(t, "batch-1", fields["batch_id"])
		assert.Equal(t, "SKU-1", fields["offer_id"])
	}
}

func TestWithRequestID(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithContext(context.Background(), zap.New(core))

	ctx = WithRequestID(ctx, "req-42")
	assert.Equal(t, "req-42", GetRequestID(ctx))

	FromContext(ctx).Info("handled")
	assert.Equal(t, "req-42", recorded.All()[0].ContextMap()["request_id"])
}

func TestGetters_Empty(t *testing.T) {
	ctx := context.Background()
	assert.Empty(t, GetRequestID(ctx))
	assert.Empty(t, GetBatchID(ctx))
}
