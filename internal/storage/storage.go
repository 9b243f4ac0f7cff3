package storage

import (
	"context"
	"fmt"
	"sync"

	"candidate-search/internal/config"

	"github.com/rs/zerolog"
)

// Storage 存储管理器，聚合所有存储相关依赖。
// MinIO、RabbitMQ、Redis 未配置时为 nil；记录存储在第一次使用时才连接。
type Storage struct {
	MinIO    *MinIO
	RabbitMQ *RabbitMQ
	Redis    *Redis

	cfg    *config.Config
	logger zerolog.Logger

	mu      sync.Mutex
	records RecordStore
}

// NewStorage 初始化已配置的辅助组件，任何一个失败都返回错误
func NewStorage(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (*Storage, error) {
	if cfg == nil {
		return nil, fmt.Errorf("配置不能为空")
	}
	s := &Storage{cfg: cfg, logger: logger}
	var err error

	if cfg.Source.Type == config.SourceMinIO {
		s.MinIO, err = NewMinIO(ctx, &cfg.MinIO, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化MinIO失败: %w", err)
		}
		logger.Info().Str("bucket", s.MinIO.Bucket()).Msg("MinIO客户端初始化成功")
	}

	if cfg.RabbitMQ.URL != "" {
		s.RabbitMQ, err = NewRabbitMQ(&cfg.RabbitMQ, logger)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化RabbitMQ失败: %w", err)
		}
	}

	if cfg.Redis.Address != "" {
		s.Redis, err = NewRedis(ctx, &cfg.Redis)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("初始化Redis失败: %w", err)
		}
		logger.Info().Str("address", cfg.Redis.Address).Msg("Redis客户端初始化成功")
	} else {
		logger.Debug().Msg("Redis未配置, 跳过初始化")
	}

	return s, nil
}

// RecordStore 返回记录存储，首次调用时建立连接，之后复用同一连接
func (s *Storage) RecordStore(ctx context.Context) (RecordStore, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records != nil {
		return s.records, nil
	}
	store, err := NewRecordStore(ctx, s.cfg, s.logger)
	if err != nil {
		return nil, err
	}
	s.logger.Info().Str("driver", s.cfg.Store.Driver).Str("table", s.cfg.Store.Table).Msg("记录存储已连接")
	s.records = store
	return store, nil
}

// Close 关闭所有连接
func (s *Storage) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.records != nil {
		if err := s.records.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("关闭记录存储失败")
		}
		s.records = nil
	}
	if s.RabbitMQ != nil {
		if err := s.RabbitMQ.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("关闭RabbitMQ连接失败")
		}
	}
	if s.Redis != nil {
		if err := s.Redis.Close(); err != nil {
			s.logger.Warn().Err(err).Msg("关闭Redis连接失败")
		}
	}
}
