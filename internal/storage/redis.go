package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/extra/redisotel/v9"
	"github.com/redis/go-redis/v9"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
	"go.opentelemetry.io/otel/trace"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/constants"
	"resume-ner-go/internal/tracing"
	"resume-ner-go/internal/types"
)

var redisTracer = otel.Tracer("resume-ner-go/storage/redis")

// Redis 封装 go-redis 客户端
type Redis struct {
	Client *redis.Client
	config *config.RedisConfig
}

// NewRedisAdapter 创建 Redis 连接并挂载 OpenTelemetry 钩子
func NewRedisAdapter(ctx context.Context, cfg *config.RedisConfig) (*Redis, error) {
	if cfg == nil {
		return nil, fmt.Errorf("redis config cannot be nil")
	}
	if cfg.Address == "" {
		return nil, fmt.Errorf("redis address is required")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,

		PoolSize:     cfg.PoolSize,
		MinIdleConns: cfg.MinIdleConns,

		DialTimeout:  time.Duration(cfg.DialTimeoutSeconds) * time.Second,
		ReadTimeout:  time.Duration(cfg.ReadTimeoutSeconds) * time.Second,
		WriteTimeout: time.Duration(cfg.WriteTimeoutSeconds) * time.Second,
		MaxRetries:   cfg.MaxRetries,
	})

	if err := redisotel.InstrumentTracing(client); err != nil {
		return nil, fmt.Errorf("failed to instrument Redis with OpenTelemetry: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", cfg.Address, err)
	}

	return &Redis{Client: client, config: cfg}, nil
}

// Close closes the Redis client connection
func (r *Redis) Close() error {
	if r.Client != nil {
		return r.Client.Close()
	}
	return nil
}

// Ping checks the Redis connection
func (r *Redis) Ping(ctx context.Context) error {
	if r.Client == nil {
		return fmt.Errorf("redis client is not initialized")
	}
	return r.Client.Ping(ctx).Err()
}

// MD5ExpireDuration 文件去重记录的过期时间
func (r *Redis) MD5ExpireDuration() time.Duration {
	days := r.config.MD5RecordExpireDays
	if days <= 0 {
		days = 365
	}
	return time.Duration(days) * 24 * time.Hour
}

// CheckAndSetFileMD5 原子地登记文件 MD5。
// 首次出现返回 (false, "")；已存在返回 (true, 之前的 submission_uuid)。
func (r *Redis) CheckAndSetFileMD5(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error) {
	key := fmt.Sprintf(constants.KeyFileMD5ToSubmission, md5Hex)

	ctx, span := redisTracer.Start(ctx, "Redis.CheckAndSetFileMD5", trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()
	span.SetAttributes(
		semconv.DBSystemRedis,
		attribute.String("db.operation", "SETNX"),
		attribute.String("db.redis.key", tracing.SafeRedisKey(key)),
	)

	ok, err := r.Client.SetNX(ctx, key, submissionUUID, r.MD5ExpireDuration()).Result()
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return false, "", fmt.Errorf("登记文件MD5失败: %w", err)
	}
	if ok {
		span.SetAttributes(attribute.Bool("already_exists", false))
		return false, "", nil
	}

	existing, err := r.Client.Get(ctx, key).Result()
	if err != nil && !errors.Is(err, redis.Nil) {
		tracing.RecordError(span, err, tracing.ErrorTypeRedis)
		return true, "", fmt.Errorf("获取已存在的submission_uuid失败: %w", err)
	}
	span.SetAttributes(attribute.Bool("already_exists", true))
	return true, existing, nil
}

// RemoveFileMD5 撤销登记，上传流程后续步骤失败时调用
func (r *Redis) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	return r.Client.Del(ctx, fmt.Sprintf(constants.KeyFileMD5ToSubmission, md5Hex)).Err()
}

// GetCachedRecord 按文本 MD5 读取抽取结果，未命中返回 ErrNotFound
func (r *Redis) GetCachedRecord(ctx context.Context, textMD5 string) (*types.ResumeRecord, error) {
	raw, err := r.Client.Get(ctx, fmt.Sprintf(constants.KeyExtractedRecord, textMD5)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取抽取缓存失败: %w", err)
	}
	var rec types.ResumeRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("解析抽取缓存失败: %w", err)
	}
	return &rec, nil
}

// CacheRecord 缓存抽取结果
func (r *Redis) CacheRecord(ctx context.Context, textMD5 string, rec *types.ResumeRecord, ttl time.Duration) error {
	raw, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("序列化抽取结果失败: %w", err)
	}
	return r.Client.Set(ctx, fmt.Sprintf(constants.KeyExtractedRecord, textMD5), raw, ttl).Err()
}
