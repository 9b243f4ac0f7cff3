package processor

import (
	"context"
	"fmt"
	"io"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/constants"
	"candidate-search/internal/metrics"
	"candidate-search/internal/tracing"
	"candidate-search/internal/types"

	gofrsuuid "github.com/gofrs/uuid/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

var ingestTracer = otel.Tracer("candidate-search/processor/ingest")

// 面向操作者的状态行
const (
	msgNoDocuments    = "No PDF files found in the specified folder."
	msgProcessingFile = "Processing file: %s\n"
	msgStoredFile     = "Stored embedding for file: %s\n"
	msgSkippedFile    = "Skipping file (already stored): %s\n"
	msgFailedFile     = "Failed to process file: %s (%v)\n"
	msgAllProcessed   = "All PDF files processed and embeddings stored."
	msgIngestSummary  = "Processed: %d, stored: %d, skipped: %d, failed: %d, degraded extractions: %d\n"
)

const (
	statusStored  = "stored"
	statusSkipped = "skipped"
	statusFailed  = "failed"

	auditFieldMaxLength = 80
)

// IngestSummary 一次导入运行的统计
type IngestSummary struct {
	RunID     string        `json:"run_id"`
	Source    string        `json:"source"`
	Found     int           `json:"found"`
	Processed int           `json:"processed"`
	Stored    int           `json:"stored"`
	Skipped   int           `json:"skipped"`
	Failed    int           `json:"failed"`
	Degraded  int           `json:"degraded"`
	Duration  time.Duration `json:"duration"`
}

// CandidateStoredEvent 记录入库事件
type CandidateStoredEvent struct {
	EventID       string    `json:"event_id"`
	EventType     string    `json:"event_type"`
	RunID         string    `json:"run_id"`
	RecordID      int64     `json:"record_id"`
	FileName      string    `json:"filename"`
	CandidateName string    `json:"candidate_name"`
	StoredAt      time.Time `json:"stored_at"`
}

// CandidateIngestor 按目录顺序逐个处理文档：抽取文本、结构化抽取、向量化、入库。
// 单个文档失败只记录并计数，不影响后续文档；配置类错误(如向量维度不一致)终止整个运行。
type CandidateIngestor struct {
	source    TextSource
	extractor FieldExtractor
	embedder  TextEmbedder
	openStore StoreOpener

	publisher EventPublisher
	locker    IngestLocker
	dedup     string
	console   io.Writer
	logger    zerolog.Logger
}

// NewCandidateIngestor 创建导入器。存储连接在确认有文档后才通过 openStore 建立。
func NewCandidateIngestor(source TextSource, extractor FieldExtractor, embedder TextEmbedder, openStore StoreOpener, opts ...IngestOption) *CandidateIngestor {
	i := &CandidateIngestor{
		source:    source,
		extractor: extractor,
		embedder:  embedder,
		openStore: openStore,
		dedup:     config.DedupAppend,
		console:   io.Discard,
		logger:    zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(i)
	}
	return i
}

// Run 执行一次导入。没有文档时直接返回，不连接存储。
func (i *CandidateIngestor) Run(ctx context.Context) (*IngestSummary, error) {
	start := time.Now()
	summary := &IngestSummary{RunID: uuid.NewString(), Source: i.source.Name()}
	log := i.logger.With().Str("run_id", summary.RunID).Str("source", summary.Source).Logger()

	ctx, span := ingestTracer.Start(ctx, "CandidateIngestor.Run", trace.WithAttributes(
		attribute.String("ingest.run_id", summary.RunID),
		attribute.String("ingest.source", summary.Source),
	))
	defer span.End()

	docs, err := i.source.ListDocuments(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeInternal)
		return summary, fmt.Errorf("列出文档失败: %w", err)
	}
	summary.Found = len(docs)
	span.SetAttributes(attribute.Int("ingest.documents", len(docs)))

	if len(docs) == 0 {
		fmt.Fprintln(i.console, msgNoDocuments)
		log.Info().Msg("没有找到待导入的文档")
		summary.Duration = time.Since(start)
		return summary, nil
	}

	if i.locker != nil {
		token, err := i.locker.AcquireIngestLock(ctx, summary.Source)
		if err != nil {
			return summary, err
		}
		defer func() {
			// 原 ctx 可能已取消，释放锁使用独立的超时
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := i.locker.ReleaseIngestLock(releaseCtx, summary.Source, token); err != nil {
				log.Warn().Err(err).Msg("释放导入锁失败")
			}
		}()
	}

	store, err := i.openStore(ctx)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeDB)
		return summary, fmt.Errorf("连接记录存储失败: %w", err)
	}
	if err := store.EnsureSchema(ctx); err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return summary, fmt.Errorf("初始化数据表失败: %w", err)
	}

	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			log.Warn().Err(err).Int("remaining", summary.Found-summary.Processed).Msg("导入被中断")
			summary.Duration = time.Since(start)
			return summary, err
		}

		summary.Processed++
		status, err := i.processDocument(ctx, store, doc, summary)
		metrics.DocumentsTotal.WithLabelValues(status).Inc()
		switch status {
		case statusStored:
			summary.Stored++
		case statusSkipped:
			summary.Skipped++
		case statusFailed:
			summary.Failed++
			fmt.Fprintf(i.console, msgFailedFile, doc.Name, err)
			log.Error().Err(err).
				Str("file", doc.Name).
				Str("kind", string(types.KindOf(err))).
				Msg("文档处理失败，继续处理下一个")
			if types.IsFatal(err) {
				tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
				summary.Duration = time.Since(start)
				return summary, fmt.Errorf("导入终止: %w", err)
			}
		}
	}

	summary.Duration = time.Since(start)
	fmt.Fprintln(i.console, msgAllProcessed)
	fmt.Fprintf(i.console, msgIngestSummary, summary.Processed, summary.Stored, summary.Skipped, summary.Failed, summary.Degraded)
	span.SetAttributes(
		attribute.Int("ingest.stored", summary.Stored),
		attribute.Int("ingest.failed", summary.Failed),
	)
	log.Info().
		Int("found", summary.Found).
		Int("stored", summary.Stored).
		Int("skipped", summary.Skipped).
		Int("failed", summary.Failed).
		Int("degraded", summary.Degraded).
		Dur("duration", summary.Duration).
		Msg("导入完成")
	return summary, nil
}

// processDocument 处理单个文档，返回最终状态
func (i *CandidateIngestor) processDocument(ctx context.Context, store CandidateStore, doc types.SourceDocument, summary *IngestSummary) (string, error) {
	ctx, span := ingestTracer.Start(ctx, "CandidateIngestor.processDocument",
		trace.WithAttributes(attribute.String("document.name", doc.Name)))
	defer span.End()

	fmt.Fprintf(i.console, msgProcessingFile, doc.Name)

	if i.dedup == config.DedupSkipExisting {
		exists, err := store.ExistsByFilename(ctx, doc.Name)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeDB)
			return statusFailed, err
		}
		if exists {
			fmt.Fprintf(i.console, msgSkippedFile, doc.Name)
			span.SetAttributes(attribute.String("document.status", statusSkipped))
			return statusSkipped, nil
		}
	}

	text, err := i.source.ExtractText(ctx, doc)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return statusFailed, fmt.Errorf("提取文本失败: %w", err)
	}

	result, err := i.extractor.Extract(ctx, doc.Name, text)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return statusFailed, err
	}
	if result.Outcome.Degraded() {
		summary.Degraded++
	}
	i.auditFields(doc.Name, result)

	vector, err := i.embedder.EmbedText(ctx, text)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return statusFailed, err
	}

	record := &types.CandidateRecord{
		SourceFileName: doc.Name,
		Fields:         result.Fields,
		Embedding:      vector,
	}
	id, err := store.Insert(ctx, record)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeOf(err))
		return statusFailed, err
	}
	record.ID = id
	span.SetAttributes(
		attribute.Int64("record.id", id),
		attribute.String("document.status", statusStored),
	)
	fmt.Fprintf(i.console, msgStoredFile, doc.Name)

	i.publishStored(ctx, summary.RunID, record)
	return statusStored, nil
}

// auditFields 调试日志中输出抽取结果，敏感字段掩码
func (i *CandidateIngestor) auditFields(source string, result *types.ExtractionResult) {
	if i.logger.GetLevel() > zerolog.DebugLevel {
		return
	}
	dict := zerolog.Dict()
	for _, spec := range types.CandidateFields {
		dict = dict.Str(spec.Column, tracing.SafeAttributeValue(spec.Column, result.Fields.Text(spec.Name), auditFieldMaxLength))
	}
	missing := make([]string, 0)
	for _, name := range result.Fields.Missing() {
		missing = append(missing, string(name))
	}
	i.logger.Debug().
		Str("file", source).
		Str("outcome", string(result.Outcome)).
		Strs("missing", missing).
		Dict("fields", dict).
		Msg("结构化抽取结果")
}

// publishStored 发布失败只记录日志
func (i *CandidateIngestor) publishStored(ctx context.Context, runID string, record *types.CandidateRecord) {
	if i.publisher == nil {
		return
	}
	eventID, err := gofrsuuid.NewV7()
	if err != nil {
		i.logger.Warn().Err(err).Msg("生成事件ID失败")
		return
	}
	event := CandidateStoredEvent{
		EventID:       eventID.String(),
		EventType:     constants.CandidateStoredEventType,
		RunID:         runID,
		RecordID:      record.ID,
		FileName:      record.SourceFileName,
		CandidateName: record.Fields.Text(types.FieldCandidateName),
		StoredAt:      time.Now().UTC(),
	}
	if err := i.publisher.PublishJSON(ctx, event); err != nil {
		i.logger.Warn().Err(err).Str("file", record.SourceFileName).Msg("发布入库事件失败")
	}
}

// Empty 本次运行是否没有发现任何文档
func (s *IngestSummary) Empty() bool { return s.Found == 0 }
