package storage

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/constants"
	"candidate-search/internal/tracing"

	"github.com/google/uuid"
	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
)

// ErrNotFound 缓存未命中
var ErrNotFound = redis.Nil

// ErrLockHeld 导入锁已被其它进程持有
var ErrLockHeld = errors.New("导入锁已被占用")

var redisTracer = otel.Tracer("candidate-search/storage/redis")

// Redis 查询向量缓存与导入锁
type Redis struct {
	Client   *redis.Client
	cacheTTL time.Duration
	lockTTL  time.Duration
}

// NewRedis 创建 Redis 客户端并检查连接
func NewRedis(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	opt := &redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
		PoolSize: cfg.PoolSize,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
	}

	client := redis.NewClient(opt)

	// 记录所有Redis操作
	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if _, err := client.Ping(pingCtx).Result(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{
		Client:   client,
		cacheTTL: config.GetDuration(cfg.QueryCacheTTL, constants.QueryCacheDuration),
		lockTTL:  config.GetDuration(cfg.IngestLockTTL, constants.IngestLockDuration),
	}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// QueryVectorKey 查询文本先折叠空白，再与模型名一起取 sha256
func QueryVectorKey(model, query string) string {
	normalized := strings.Join(strings.Fields(query), " ")
	sum := sha256.Sum256([]byte(model + "\x00" + normalized))
	return fmt.Sprintf(constants.KeyQueryVector, hex.EncodeToString(sum[:]))
}

// GetQueryVector 读取缓存的查询向量，未命中时返回 nil, false, nil
func (r *Redis) GetQueryVector(ctx context.Context, model, query string) ([]float32, bool, error) {
	key := QueryVectorKey(model, query)
	ctx, span := redisTracer.Start(ctx, "Redis.GetQueryVector", trace.WithAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	))
	defer span.End()

	vals, err := r.Client.HMGet(ctx, key, "vector", "model").Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return nil, false, err
	}
	if len(vals) < 2 || vals[0] == nil {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}

	vectorJSON, ok := vals[0].(string)
	if !ok || vectorJSON == "" {
		return nil, false, fmt.Errorf("向量缓存格式错误")
	}
	// 模型不一致视为未命中
	if m, _ := vals[1].(string); m != model {
		span.SetAttributes(attribute.Bool("cache.hit", false))
		return nil, false, nil
	}
	var vector []float32
	if err := json.Unmarshal([]byte(vectorJSON), &vector); err != nil {
		return nil, false, fmt.Errorf("反序列化向量失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("cache.hit", true))
	return vector, true, nil
}

// SetQueryVector 缓存查询向量和模型名
func (r *Redis) SetQueryVector(ctx context.Context, model, query string, vector []float32) error {
	key := QueryVectorKey(model, query)
	vectorJSON, err := json.Marshal(vector)
	if err != nil {
		return fmt.Errorf("序列化向量失败: %w", err)
	}

	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, key, "vector", vectorJSON, "model", model)
	pipe.Expire(ctx, key, r.cacheTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("设置查询向量缓存失败: %w", err)
	}
	return nil
}

// AcquireLock 尝试获取一个分布式锁，未获取到时返回空字符串
func (r *Redis) AcquireLock(ctx context.Context, lockKey string, expiration time.Duration) (string, error) {
	lockValue := uuid.NewString()
	ok, err := r.Client.SetNX(ctx, lockKey, lockValue, expiration).Result()
	if err != nil {
		return "", err
	}
	if ok {
		return lockValue, nil
	}
	return "", nil
}

var releaseLockScript = redis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
else
	return 0
end
`)

// ReleaseLock 只有持有者才能释放
func (r *Redis) ReleaseLock(ctx context.Context, lockKey string, lockValue string) (bool, error) {
	res, err := releaseLockScript.Run(ctx, r.Client, []string{lockKey}, lockValue).Int64()
	if err != nil {
		return false, err
	}
	return res == 1, nil
}

// AcquireIngestLock 同一来源同时只允许一个导入任务
func (r *Redis) AcquireIngestLock(ctx context.Context, source string) (string, error) {
	token, err := r.AcquireLock(ctx, fmt.Sprintf(constants.KeyIngestLock, source), r.lockTTL)
	if err != nil {
		return "", fmt.Errorf("获取导入锁失败: %w", err)
	}
	if token == "" {
		return "", fmt.Errorf("%w: %s", ErrLockHeld, source)
	}
	return token, nil
}

// ReleaseIngestLock 释放导入锁
func (r *Redis) ReleaseIngestLock(ctx context.Context, source, token string) error {
	if _, err := r.ReleaseLock(ctx, fmt.Sprintf(constants.KeyIngestLock, source), token); err != nil {
		return fmt.Errorf("释放导入锁失败: %w", err)
	}
	return nil
}
