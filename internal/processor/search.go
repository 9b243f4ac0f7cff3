package processor

import (
	"context"
	"strings"

	"candidate-search/internal/metrics"
	"candidate-search/internal/tracing"
	"candidate-search/internal/types"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var searchTracer = otel.Tracer("candidate-search/processor/search")

// CandidateSearcher 检索服务：查询文本向量化后取最近的一条记录
type CandidateSearcher struct {
	embedder TextEmbedder
	store    CandidateStore
	cache    QueryCache
	model    string
	logger   zerolog.Logger
}

// NewCandidateSearcher 创建检索服务
func NewCandidateSearcher(embedder TextEmbedder, store CandidateStore, opts ...SearchOption) *CandidateSearcher {
	s := &CandidateSearcher{
		embedder: embedder,
		store:    store,
		logger:   zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search 空白查询返回 ErrEmptyQuery，不调用向量服务和存储；库为空或无结果时返回 nil, nil
func (s *CandidateSearcher) Search(ctx context.Context, query string) (*types.QueryResult, error) {
	if strings.TrimSpace(query) == "" {
		metrics.SearchesTotal.WithLabelValues("empty_query").Inc()
		return nil, types.ErrEmptyQuery
	}

	ctx, span := searchTracer.Start(ctx, "CandidateSearcher.Search")
	defer span.End()
	span.SetAttributes(attribute.String("search.query", tracing.SafeQuery(query)))

	vector, err := s.queryVector(ctx, query)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return nil, err
	}

	result, err := s.store.NearestNeighbor(ctx, vector)
	if err != nil {
		metrics.SearchesTotal.WithLabelValues("error").Inc()
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return nil, err
	}
	if result == nil {
		metrics.SearchesTotal.WithLabelValues("no_match").Inc()
		span.SetAttributes(attribute.Bool("search.matched", false))
		return nil, nil
	}

	metrics.SearchesTotal.WithLabelValues("match").Inc()
	span.SetAttributes(
		attribute.Bool("search.matched", true),
		attribute.Int64("search.record_id", result.RecordID),
		attribute.Float64("search.score", result.Score),
	)
	s.logger.Debug().
		Str("query", tracing.SafeQuery(query)).
		Int64("record_id", result.RecordID).
		Float64("score", result.Score).
		Msg("检索完成")
	return result, nil
}

// queryVector 缓存读写失败只记录日志
func (s *CandidateSearcher) queryVector(ctx context.Context, query string) ([]float32, error) {
	if s.cache != nil {
		vector, hit, err := s.cache.GetQueryVector(ctx, s.model, query)
		switch {
		case err != nil:
			s.logger.Warn().Err(err).Msg("读取查询向量缓存失败")
		case hit:
			metrics.QueryCacheTotal.WithLabelValues("hit").Inc()
			return vector, nil
		default:
			metrics.QueryCacheTotal.WithLabelValues("miss").Inc()
		}
	}

	vector, err := s.embedder.EmbedText(ctx, query)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.SetQueryVector(ctx, s.model, query, vector); err != nil {
			s.logger.Warn().Err(err).Msg("写入查询向量缓存失败")
		}
	}
	return vector, nil
}
