package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/logger"
	"candidate-search/internal/metrics"
	"candidate-search/internal/parser"
	"candidate-search/internal/processor"
	"candidate-search/internal/source"
	"candidate-search/internal/storage"
	"candidate-search/internal/tracing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
)

// components 各子命令共用的依赖
type components struct {
	cfg      *config.Config
	logger   zerolog.Logger
	storage  *storage.Storage
	pdf      *parser.EinoPDFTextExtractor
	embedder *parser.OpenAIEmbedder

	shutdownTracing tracing.ShutdownFunc
	metricsServer   *metrics.Server
}

// newComponents 初始化链路追踪、指标、存储管理器、PDF解析与向量模型。
// 记录存储不在这里连接，由使用方按需打开。
func newComponents(ctx context.Context, cfg *config.Config, log zerolog.Logger, serveMetrics bool) (*components, error) {
	c := &components{cfg: cfg, logger: log}

	shutdown, err := tracing.InitProvider(ctx, tracing.ProviderConfig{
		ServiceName:    cfg.Tracing.ServiceName,
		ServiceVersion: version,
		Endpoint:       cfg.Tracing.Endpoint,
		Insecure:       cfg.Tracing.Insecure,
		SampleRatio:    cfg.Tracing.SampleRatio,
	}, logger.Component("tracing"))
	if err != nil {
		return nil, fmt.Errorf("初始化链路追踪失败: %w", err)
	}
	c.shutdownTracing = shutdown

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		c.Close()
		return nil, fmt.Errorf("注册指标失败: %w", err)
	}
	if serveMetrics && cfg.Metrics.Address != "" {
		c.metricsServer = metrics.NewServer(cfg.Metrics.Address, logger.Component("metrics"))
		c.metricsServer.Start()
	}

	warnMetric(cfg, log)

	c.storage, err = storage.NewStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.pdf, err = parser.NewEinoPDFTextExtractor(ctx, parser.WithEinoLogger(logger.Component("pdf")))
	if err != nil {
		c.Close()
		return nil, err
	}

	c.embedder, err = parser.NewOpenAIEmbedder(cfg.Embedding, logger.Component("embedding"))
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("初始化向量模型失败: %w", err)
	}
	log.Info().
		Str("model", cfg.Embedding.Model).
		Int("dimensions", c.embedder.Dimensions()).
		Str("store", cfg.Store.Driver).
		Str("metric", cfg.Store.Metric).
		Msg("组件初始化完成")
	return c, nil
}

// textSource 按 source.type 选择文档来源
func (c *components) textSource() (processor.TextSource, error) {
	switch c.cfg.Source.Type {
	case config.SourceMinIO:
		if c.storage.MinIO == nil {
			return nil, fmt.Errorf("MinIO未初始化")
		}
		return source.NewMinIOSource(c.storage.MinIO, c.cfg.Source.Prefix, c.pdf), nil
	default:
		return source.NewFolderSource(c.cfg.Source.Folder, c.pdf), nil
	}
}

// searcher 打开记录存储并创建检索服务，表不存在时先建表
func (c *components) searcher(ctx context.Context) (*processor.CandidateSearcher, storage.RecordStore, error) {
	store, err := c.storage.RecordStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx); err != nil {
		return nil, nil, err
	}

	opts := []processor.SearchOption{processor.WithSearchLogger(logger.Component("search"))}
	if c.storage.Redis != nil {
		opts = append(opts, processor.WithQueryCache(c.storage.Redis, c.cfg.Embedding.Model))
	}
	return processor.NewCandidateSearcher(c.embedder, store, opts...), store, nil
}

// Close 按初始化的逆序释放资源
func (c *components) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if c.storage != nil {
		c.storage.Close()
	}
	if c.metricsServer != nil {
		if err := c.metricsServer.Shutdown(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("关闭指标服务失败")
		}
	}
	if c.shutdownTracing != nil {
		if err := c.shutdownTracing(ctx); err != nil {
			c.logger.Warn().Err(err).Msg("关闭链路追踪失败")
		}
	}
}

// warnMetric OpenAI 的向量已归一化，L2 与余弦排序一致但分数含义不同
func warnMetric(cfg *config.Config, log zerolog.Logger) {
	if cfg.Store.Metric == config.MetricL2 && strings.HasPrefix(cfg.Embedding.Model, "text-embedding") {
		log.Warn().
			Str("model", cfg.Embedding.Model).
			Msg("OpenAI 向量模型通常使用余弦距离，当前为 l2，分数为欧氏距离")
	}
}
