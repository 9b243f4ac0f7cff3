package storage

import (
	"context"
	"fmt"
	"regexp"

	"candidate-search/internal/config"
	"candidate-search/internal/types"

	"github.com/rs/zerolog"
)

// RecordStore 候选人记录的持久化与最近邻检索
type RecordStore interface {
	// EnsureSchema 建表，表已存在时不做任何事，每次运行都会调用
	EnsureSchema(ctx context.Context) error
	// Insert 一次原子写入十四列和向量，返回存储分配的ID
	Insert(ctx context.Context, record *types.CandidateRecord) (int64, error)
	// NearestNeighbor 返回距离最小的一条记录，库为空时返回 nil, nil
	NearestNeighbor(ctx context.Context, query []float32) (*types.QueryResult, error)
	// ExistsByFilename 是否已有同名文件的记录
	ExistsByFilename(ctx context.Context, filename string) (bool, error)
	// Count 记录总数
	Count(ctx context.Context) (int64, error)
	Close() error
}

var tableNamePattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]{0,62}$`)

// validateTable 表名会拼接进DDL，只允许标识符字符
func validateTable(table string) error {
	if !tableNamePattern.MatchString(table) {
		return fmt.Errorf("%w: 非法表名 %q", types.ErrInvalidConfig, table)
	}
	return nil
}

// checkDimension 向量维度必须与库的固定维度一致，否则属于配置错误
func checkDimension(source string, vec []float32, want int) error {
	if len(vec) != want {
		return types.NewDimensionError(source, len(vec), want)
	}
	return nil
}

// NewRecordStore 按配置创建记录存储，不会建表
func NewRecordStore(ctx context.Context, cfg *config.Config, logger zerolog.Logger) (RecordStore, error) {
	opts := StoreOptions{
		Table:      cfg.Store.Table,
		Metric:     cfg.Store.Metric,
		Dimensions: cfg.Embedding.Dimensions,
	}
	var (
		store RecordStore
		err   error
	)
	switch cfg.Store.Driver {
	case config.StoreDriverPostgres:
		store, err = NewPostgresStore(ctx, &cfg.Postgres, opts, WithPostgresLogger(logger))
	case config.StoreDriverMySQL:
		store, err = NewMySQLStore(ctx, &cfg.MySQL, opts, WithMySQLLogger(logger))
	case config.StoreDriverMemory:
		store, err = NewMemoryStore(opts)
	default:
		return nil, fmt.Errorf("%w: 未知的存储驱动 %q", types.ErrInvalidConfig, cfg.Store.Driver)
	}
	if err != nil {
		return nil, err
	}
	return store, nil
}

// StoreOptions 各存储实现共用的选项
type StoreOptions struct {
	Table      string
	Metric     string // l2 或 cosine
	Dimensions int
}

func (o StoreOptions) normalize() (StoreOptions, error) {
	if o.Table == "" {
		o.Table = "docvectors"
	}
	if o.Metric == "" {
		o.Metric = config.MetricL2
	}
	if err := validateTable(o.Table); err != nil {
		return o, err
	}
	if o.Metric != config.MetricL2 && o.Metric != config.MetricCosine {
		return o, fmt.Errorf("%w: 未知的距离度量 %q", types.ErrInvalidConfig, o.Metric)
	}
	if o.Dimensions <= 0 {
		return o, fmt.Errorf("%w: 向量维度必须为正数", types.ErrInvalidConfig)
	}
	return o, nil
}

func resultFromColumns(id int64, filename, name, email, skillset string, score float64) *types.QueryResult {
	return &types.QueryResult{
		RecordID:      id,
		FileName:      filename,
		CandidateName: name,
		Email:         email,
		Skillset:      skillset,
		Score:         score,
	}
}
