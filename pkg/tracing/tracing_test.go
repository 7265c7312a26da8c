package tracing

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func TestInitTracer_Disabled(t *testing.T) {
	shutdown, err := InitTracer(context.Background(), DefaultConfig("quaich"))
	require.NoError(t, err)
	require.NotNil(t, shutdown)
	assert.NoError(t, shutdown(context.Background()))
}

func TestInitTracer_Enabled(t *testing.T) {
	prev := otel.GetTracerProvider()
	t.Cleanup(func() { otel.SetTracerProvider(prev) })

	cfg := DefaultConfig("quaich")
	cfg.Enabled = true
	cfg.OTLPEndpoint = "127.0.0.1:0"

	shutdown, err := InitTracer(context.Background(), cfg)
	require.NoError(t, err)

	_, ok := otel.GetTracerProvider().(*sdktrace.TracerProvider)
	assert.True(t, ok, "global provider should be the SDK provider")

	// The endpoint is unreachable, so the flush may fail; only the call matters.
	_ = shutdown(context.Background())
}

func TestSampler(t *testing.T) {
	assert.True(t, strings.Contains(sampler(1).Description(), "AlwaysOnSampler"))
	assert.True(t, strings.Contains(sampler(0).Description(), "AlwaysOffSampler"))
	assert.True(t, strings.Contains(sampler(-2).Description(), "AlwaysOffSampler"))
	assert.True(t, strings.Contains(sampler(0.25).Description(), "TraceIDRatioBased"))
	assert.True(t, strings.HasPrefix(sampler(0.25).Description(), "ParentBased"))
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig("quaich")
	assert.Equal(t, "quaich", cfg.ServiceName)
	assert.False(t, cfg.Enabled)
	assert.Equal(t, 1.0, cfg.SampleRate)
	assert.Equal(t, "localhost:4318", cfg.OTLPEndpoint)
}

func TestTracer_NoPanicWithoutSDK(t *testing.T) {
	_, span := Tracer("quaich/test").Start(context.Background(), "op")
	assert.NotPanics(t, func() { span.End() })
}
