package storage

import (
	"context"
	"errors"
	"strings"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
)

// ErrNotFound 记录、缓存或对象不存在
var ErrNotFound = errors.New("storage: not found")

// Storage 聚合所有存储后端，未配置或连接失败的后端为 nil
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	Qdrant   *Qdrant
	MySQL    *MySQL
	Redis    *Redis
}

// NewStorage 逐个初始化后端，单个失败只记录警告
func NewStorage(ctx context.Context, cfg *config.Config) (*Storage, error) {
	if cfg == nil {
		return nil, errors.New("配置不能为空")
	}

	s := &Storage{}
	var failed []string
	var err error

	if cfg.MinIO.Endpoint != "" {
		if s.MinIO, err = NewMinIO(ctx, &cfg.MinIO); err != nil {
			failed = append(failed, "MinIO")
			logger.Warn().Err(err).Msg("初始化MinIO失败")
		}
	}

	if cfg.RabbitMQ.URL != "" {
		if s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ); err != nil {
			failed = append(failed, "RabbitMQ")
			logger.Warn().Err(err).Msg("初始化RabbitMQ失败")
		}
	}

	if cfg.Qdrant.Endpoint != "" {
		if s.Qdrant, err = NewQdrant(ctx, &cfg.Qdrant); err != nil {
			failed = append(failed, "Qdrant")
			logger.Warn().Err(err).Msg("初始化Qdrant失败")
		}
	}

	if cfg.MySQL.Host != "" {
		if s.MySQL, err = NewMySQL(&cfg.MySQL); err != nil {
			failed = append(failed, "MySQL")
			logger.Warn().Err(err).Msg("初始化MySQL失败")
		}
	}

	if cfg.Redis.Address != "" {
		if s.Redis, err = NewRedisAdapter(ctx, &cfg.Redis); err != nil {
			failed = append(failed, "Redis")
			logger.Warn().Err(err).Msg("初始化Redis失败")
		}
	}

	if len(failed) > 0 {
		logger.Warn().Str("backends", strings.Join(failed, ",")).Msg("部分存储组件不可用，相关步骤将被跳过")
	}
	return s, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.MySQL != nil {
		if err := s.MySQL.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭MySQL连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
