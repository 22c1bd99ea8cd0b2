package biz

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lattice-io/doclens/internal/model"
)

// 辅助函数：创建测试用 Redis 客户端
func setupTestRedis(t *testing.T) *redis.Client {
	client := redis.NewClient(&redis.Options{
		Addr: "localhost:6379",
		DB:   15, // 使用测试专用数据库
	})

	ctx := context.Background()
	if err := client.Ping(ctx).Err(); err != nil {
		t.Skip("Redis 不可用，跳过测试")
	}

	client.FlushDB(ctx)
	return client
}

func testCacheConfig() *QueryCacheConfig {
	return &QueryCacheConfig{
		Enabled:   true,
		TTL:       1 * time.Hour,
		KeyPrefix: "test:doclens:",
	}
}

func TestNewQueryCacheWithNilConfig(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	assert.NotNil(t, cache)
	assert.False(t, cache.config.Enabled)
	assert.Equal(t, 1*time.Hour, cache.config.TTL)
	assert.Equal(t, "doclens:query:", cache.config.KeyPrefix)
}

func TestQueryCacheDisabledIsNoop(t *testing.T) {
	cache := NewQueryCache(nil, nil)
	ctx := context.Background()

	result, err := cache.Get(ctx, "question", 3, "")
	require.NoError(t, err)
	assert.Nil(t, result)

	assert.NoError(t, cache.Set(ctx, "question", 3, "", &model.QueryResult{Answer: "a"}))
	assert.NoError(t, cache.Clear(ctx))
}

func TestQueryCacheGenerateCacheKey(t *testing.T) {
	cache := NewQueryCache(nil, testCacheConfig())

	key1 := cache.generateCacheKey("什么是向量检索？", 3, "")
	key2 := cache.generateCacheKey("什么是向量检索？", 3, "")
	key3 := cache.generateCacheKey("向量检索是什么？", 3, "")
	key4 := cache.generateCacheKey("什么是向量检索？", 5, "")
	key5 := cache.generateCacheKey("什么是向量检索？", 3, "doc1")

	// 相同参数生成相同键
	assert.Equal(t, key1, key2)
	// 问题、k、文档过滤任一不同则键不同
	assert.NotEqual(t, key1, key3)
	assert.NotEqual(t, key1, key4)
	assert.NotEqual(t, key1, key5)
	assert.Contains(t, key1, "test:doclens:")
}

func TestQueryCacheSetAndGet(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, testCacheConfig())
	ctx := context.Background()

	result := &model.QueryResult{
		Answer: "cached answer",
		Sources: []model.ChunkSource{
			{DocumentID: "d1", Filename: "f.txt", ChunkIndex: 0, Content: "chunk", Score: 0.9},
		},
	}

	require.NoError(t, cache.Set(ctx, "question", 3, "", result))

	got, err := cache.Get(ctx, "question", 3, "")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, result.Answer, got.Answer)
	assert.Equal(t, result.Sources, got.Sources)
}

func TestQueryCacheMiss(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, testCacheConfig())

	got, err := cache.Get(context.Background(), "never asked", 3, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheClear(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, testCacheConfig())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", 3, "", &model.QueryResult{Answer: "a1"}))
	require.NoError(t, cache.Set(ctx, "q2", 3, "", &model.QueryResult{Answer: "a2"}))

	require.NoError(t, cache.Clear(ctx))

	got, err := cache.Get(ctx, "q1", 3, "")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestQueryCacheStats(t *testing.T) {
	client := setupTestRedis(t)
	defer func() { _ = client.Close() }()

	cache := NewQueryCache(client, testCacheConfig())
	ctx := context.Background()

	require.NoError(t, cache.Set(ctx, "q1", 3, "", &model.QueryResult{Answer: "a1"}))

	stats, err := cache.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, true, stats["enabled"])
	assert.Equal(t, 1, stats["key_count"])
}
