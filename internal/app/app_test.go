package app

import (
	"context"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/utafrali/QuaichGo/internal/cache"
	"github.com/utafrali/QuaichGo/internal/cache/breaker"
	"github.com/utafrali/QuaichGo/internal/cache/memory"
	"github.com/utafrali/QuaichGo/internal/config"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testConfig() *config.Config {
	return &config.Config{
		CacheStore:           config.CacheStoreMemory,
		CacheTagTTL:          time.Hour,
		BreakerTimeout:       time.Second,
		BreakerMinRequests:   5,
		BreakerFailureRatio:  0.5,
		KafkaBrokers:         []string{"localhost:9092"},
		InvalidationGroupPfx: "quaich-cache",
	}
}

func TestNewCacheStore_Memory(t *testing.T) {
	store, client, err := newCacheStore(context.Background(), testConfig(), testLogger())

	require.NoError(t, err)
	assert.Nil(t, client)
	assert.IsType(t, &memory.Store{}, store)
}

func TestNewCacheStore_RedisBehindBreaker(t *testing.T) {
	mr := miniredis.RunT(t)
	port, err := strconv.Atoi(mr.Port())
	require.NoError(t, err)

	cfg := testConfig()
	cfg.CacheStore = config.CacheStoreRedis
	cfg.RedisHost = mr.Host()
	cfg.RedisPort = port

	store, client, err := newCacheStore(context.Background(), cfg, testLogger())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	assert.IsType(t, &breaker.Store{}, store)

	ctx := context.Background()
	c := cache.New(store, testLogger())
	got, err := cache.GetOrCompute(ctx, c, "k", []string{"t"}, time.Minute, func(context.Context) (int, error) {
		return 42, nil
	})
	require.NoError(t, err)
	assert.Equal(t, 42, got)
	assert.NotEmpty(t, mr.Keys())
}

func TestNewCacheStore_RedisUnreachable(t *testing.T) {
	cfg := testConfig()
	cfg.CacheStore = config.CacheStoreRedis
	cfg.RedisHost = "127.0.0.1"
	cfg.RedisPort = 1

	_, client, err := newCacheStore(context.Background(), cfg, testLogger())

	require.Error(t, err)
	assert.Nil(t, client)
	assert.Contains(t, err.Error(), "connect to redis")
}

func TestResolveInstanceID(t *testing.T) {
	assert.Equal(t, "pod-7", resolveInstanceID("pod-7"))

	a, b := resolveInstanceID(""), resolveInstanceID("")
	assert.NotEqual(t, a, b)
	assert.True(t, strings.Contains(a, "-"))
}

func TestNewInvalidationConsumer(t *testing.T) {
	c := cache.New(memory.New(), testLogger())
	d := cache.NewDispatcher(c, testLogger())

	consumer := newInvalidationConsumer(testConfig(), d, nil, "pod-7", testLogger())

	require.NotNil(t, consumer)
	assert.NoError(t, consumer.Close())
}
