package processor

import (
	"context"

	"candidate-search/internal/storage"
	"candidate-search/internal/types"
)

//
// 文档来源
//

// TextSource 待导入文档的来源
type TextSource interface {
	// Name 来源标识，例如 "folder:/data/resumes"
	Name() string
	// ListDocuments 按名称顺序返回全部文档
	ListDocuments(ctx context.Context) ([]types.SourceDocument, error)
	// ExtractText 返回文档全文，各页以单个空格连接
	ExtractText(ctx context.Context, doc types.SourceDocument) (string, error)
}

//
// 抽取与向量化
//

// FieldExtractor 结构化字段抽取。
// 回复无法解析时返回降级结果而不是错误；只有模型调用失败才返回错误。
type FieldExtractor interface {
	Extract(ctx context.Context, source, text string) (*types.ExtractionResult, error)
}

// TextEmbedder 文档和查询使用同一个向量化实现
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

//
// 存储
//

// CandidateStore 记录存储
type CandidateStore = storage.RecordStore

// StoreOpener 在确认有文档需要导入后才建立存储连接
type StoreOpener func(ctx context.Context) (CandidateStore, error)

// EventPublisher 入库事件发布
type EventPublisher interface {
	PublishJSON(ctx context.Context, data interface{}) error
}

// QueryCache 查询向量缓存
type QueryCache interface {
	GetQueryVector(ctx context.Context, model, query string) ([]float32, bool, error)
	SetQueryVector(ctx context.Context, model, query string, vector []float32) error
}

// IngestLocker 导入锁，同一来源同时只允许一个导入任务
type IngestLocker interface {
	AcquireIngestLock(ctx context.Context, source string) (string, error)
	ReleaseIngestLock(ctx context.Context, source, token string) error
}
