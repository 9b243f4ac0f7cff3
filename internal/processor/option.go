package processor

import (
	"io"

	"candidate-search/internal/config"

	"github.com/rs/zerolog"
)

// IngestOption 导入器选项
type IngestOption func(*CandidateIngestor)

// WithIngestLogger 设置结构化日志
func WithIngestLogger(logger zerolog.Logger) IngestOption {
	return func(i *CandidateIngestor) {
		i.logger = logger
	}
}

// WithConsole 设置面向操作者的状态行输出，默认 io.Discard
func WithConsole(w io.Writer) IngestOption {
	return func(i *CandidateIngestor) {
		if w != nil {
			i.console = w
		}
	}
}

// WithDedupPolicy 设置重复文件处理策略
func WithDedupPolicy(policy string) IngestOption {
	return func(i *CandidateIngestor) {
		if policy == config.DedupSkipExisting || policy == config.DedupAppend {
			i.dedup = policy
		}
	}
}

// WithEventPublisher 每条记录入库后发布事件
func WithEventPublisher(p EventPublisher) IngestOption {
	return func(i *CandidateIngestor) {
		i.publisher = p
	}
}

// WithIngestLocker 导入期间持有分布式锁
func WithIngestLocker(l IngestLocker) IngestOption {
	return func(i *CandidateIngestor) {
		i.locker = l
	}
}

// SearchOption 检索服务选项
type SearchOption func(*CandidateSearcher)

// WithSearchLogger 设置结构化日志
func WithSearchLogger(logger zerolog.Logger) SearchOption {
	return func(s *CandidateSearcher) {
		s.logger = logger
	}
}

// WithQueryCache 启用查询向量缓存，model 参与缓存键
func WithQueryCache(cache QueryCache, model string) SearchOption {
	return func(s *CandidateSearcher) {
		s.cache = cache
		s.model = model
	}
}
