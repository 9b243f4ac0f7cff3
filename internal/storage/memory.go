package storage

import (
	"context"
	"sync"
	"time"

	"candidate-search/internal/metrics"
	"candidate-search/internal/types"
)

// MemoryStore 进程内记录存储，逐条计算距离
type MemoryStore struct {
	mu       sync.RWMutex
	opts     StoreOptions
	distance func(a, b []float32) float64
	schema   bool
	nextID   int64
	records  []types.CandidateRecord
}

var _ RecordStore = (*MemoryStore)(nil)

// NewMemoryStore 创建进程内存储
func NewMemoryStore(opts StoreOptions) (*MemoryStore, error) {
	opts, err := opts.normalize()
	if err != nil {
		return nil, err
	}
	return &MemoryStore{opts: opts, distance: distanceFunc(opts.Metric)}, nil
}

// EnsureSchema 重复调用不会清空已有记录
func (s *MemoryStore) EnsureSchema(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.schema = true
	return nil
}

// Insert 保存记录副本
func (s *MemoryStore) Insert(ctx context.Context, record *types.CandidateRecord) (int64, error) {
	defer metrics.ObserveStore("memory", "insert", time.Now())
	if err := checkDimension(record.SourceFileName, record.Embedding, s.opts.Dimensions); err != nil {
		return 0, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	stored := types.CandidateRecord{
		ID:             s.nextID,
		SourceFileName: record.SourceFileName,
		Fields:         make(types.Fields, len(record.Fields)),
		Embedding:      append([]float32(nil), record.Embedding...),
	}
	for k, v := range record.Fields {
		stored.Fields[k] = v
	}
	s.records = append(s.records, stored)
	return stored.ID, nil
}

// NearestNeighbor 全量扫描，距离相同时保留先插入的记录
func (s *MemoryStore) NearestNeighbor(ctx context.Context, query []float32) (*types.QueryResult, error) {
	defer metrics.ObserveStore("memory", "nearest", time.Now())
	if err := checkDimension("query", query, s.opts.Dimensions); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	if len(s.records) == 0 {
		return nil, nil
	}

	best := -1
	var bestDist float64
	for i := range s.records {
		d := s.distance(query, s.records[i].Embedding)
		if best < 0 || d < bestDist {
			best, bestDist = i, d
		}
	}
	r := s.records[best]
	return resultFromColumns(r.ID, r.SourceFileName,
		r.Fields.Text(types.FieldCandidateName),
		r.Fields.Text(types.FieldEmail),
		r.Fields.Text(types.FieldSkillset),
		bestDist), nil
}

// ExistsByFilename 按文件名查找，区分大小写
func (s *MemoryStore) ExistsByFilename(ctx context.Context, filename string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.SourceFileName == filename {
			return true, nil
		}
	}
	return false, nil
}

// Count 记录总数
func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

// Records 返回全部记录的副本，按插入顺序
func (s *MemoryStore) Records() []types.CandidateRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]types.CandidateRecord(nil), s.records...)
}

// SchemaReady 是否执行过 EnsureSchema
func (s *MemoryStore) SchemaReady() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.schema
}

func (s *MemoryStore) Close() error { return nil }

