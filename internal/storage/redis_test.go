package storage_test

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueryVectorKey(t *testing.T) {
	k1 := storage.QueryVectorKey("text-embedding-3-small", "java backend developer")
	k2 := storage.QueryVectorKey("text-embedding-3-small", "  java   backend developer ")
	k3 := storage.QueryVectorKey("text-embedding-3-large", "java backend developer")

	assert.True(t, strings.HasPrefix(k1, "app:search:vector:"))
	assert.Equal(t, k1, k2, "空白不同的查询应命中同一缓存")
	assert.NotEqual(t, k1, k3, "不同模型不能共用缓存")
}

func newTestRedis(t *testing.T) *storage.Redis {
	t.Helper()
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("未设置 TEST_REDIS_ADDR，跳过Redis集成测试")
	}
	r, err := storage.NewRedis(context.Background(), &config.RedisConfig{
		Address:       addr,
		QueryCacheTTL: "1m",
		IngestLockTTL: "1m",
	})
	require.NoError(t, err)
	t.Cleanup(func() { r.Close() })
	return r
}

func TestRedis_QueryVectorCache(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	query := "redis cache test " + time.Now().String()

	_, hit, err := r.GetQueryVector(ctx, "m1", query)
	require.NoError(t, err)
	assert.False(t, hit)

	require.NoError(t, r.SetQueryVector(ctx, "m1", query, []float32{0.5, -1, 2}))

	vec, hit, err := r.GetQueryVector(ctx, "m1", query)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, []float32{0.5, -1, 2}, vec)

	r.Client.Del(ctx, storage.QueryVectorKey("m1", query))
}

func TestRedis_IngestLock(t *testing.T) {
	r := newTestRedis(t)
	ctx := context.Background()
	source := "folder:/tmp/lock-test-" + time.Now().Format("150405.000")

	token, err := r.AcquireIngestLock(ctx, source)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	_, err = r.AcquireIngestLock(ctx, source)
	assert.ErrorIs(t, err, storage.ErrLockHeld)

	require.NoError(t, r.ReleaseIngestLock(ctx, source, token))

	token2, err := r.AcquireIngestLock(ctx, source)
	require.NoError(t, err)
	require.NoError(t, r.ReleaseIngestLock(ctx, source, token2))
}
