package parser

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"candidate-search/internal/metrics"
	"candidate-search/internal/tracing"
	"candidate-search/internal/types"

	"github.com/cloudwego/eino/components/model"
	einoschema "github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

var extractorTracer = otel.Tracer("candidate-search/parser/extractor")

const defaultExtractionTimeout = 60 * time.Second

// CandidateExtractor 通过一次模型调用把简历文本转换为结构化字段。
// 模型回复不可信：先清理，再解析，失败时补全大括号重试一次，仍失败则退化为空字段。
type CandidateExtractor struct {
	llmModel model.BaseChatModel
	timeout  time.Duration
	logger   zerolog.Logger
	// 提示词模板，%s 依次为字段列表和简历文本
	promptTemplate string
}

// ExtractorOption 结构化抽取器的配置选项
type ExtractorOption func(*CandidateExtractor)

// WithExtractionTimeout 单次模型调用超时
func WithExtractionTimeout(d time.Duration) ExtractorOption {
	return func(c *CandidateExtractor) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithExtractorLogger 设置日志
func WithExtractorLogger(logger zerolog.Logger) ExtractorOption {
	return func(c *CandidateExtractor) {
		c.logger = logger
	}
}

// WithPromptTemplate 自定义提示词模板，需包含两个 %s 占位符
func WithPromptTemplate(tpl string) ExtractorOption {
	return func(c *CandidateExtractor) {
		if strings.Count(tpl, "%s") >= 2 {
			c.promptTemplate = tpl
		}
	}
}

const defaultPromptTemplate = `Extract the following details from the given text and return the result as JSON:

%s
Text:
%s

In the 'Summary' field, provide a comprehensive overview of the whole document.`

// NewCandidateExtractor 创建结构化抽取器
func NewCandidateExtractor(llmModel model.BaseChatModel, options ...ExtractorOption) *CandidateExtractor {
	c := &CandidateExtractor{
		llmModel:       llmModel,
		timeout:        defaultExtractionTimeout,
		logger:         zerolog.Nop(),
		promptTemplate: defaultPromptTemplate,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// BuildPrompt 生成包含十三个编号字段的提示词
func (c *CandidateExtractor) BuildPrompt(text string) string {
	var fields strings.Builder
	for i, spec := range types.CandidateFields {
		fmt.Fprintf(&fields, "%d. %s\n", i+1, spec.PromptKey)
	}
	return fmt.Sprintf(c.promptTemplate, fields.String(), text)
}

// Extract 对一份文档执行结构化抽取。
// 只有模型调用本身失败(含超时)才返回错误；回复为空或无法解析时返回降级结果且 error 为 nil。
func (c *CandidateExtractor) Extract(ctx context.Context, source, text string) (*types.ExtractionResult, error) {
	ctx, span := extractorTracer.Start(ctx, "CandidateExtractor.Extract")
	defer span.End()
	span.SetAttributes(
		attribute.String("document.source", source),
		attribute.Int("document.text_length", len(text)),
	)

	reply, err := c.callLLM(ctx, c.BuildPrompt(text))
	if err != nil {
		metrics.ExtractionsTotal.WithLabelValues("error").Inc()
		wrapped := types.NewTransportError(source, "llm_generate", err)
		tracing.RecordError(span, wrapped, tracing.ErrorTypeExternal)
		return nil, wrapped
	}

	result := ParseReply(reply)
	metrics.ExtractionsTotal.WithLabelValues(string(result.Outcome)).Inc()
	span.SetAttributes(
		attribute.String("extraction.outcome", string(result.Outcome)),
		attribute.Int("extraction.fields", len(result.Fields)),
	)

	switch result.Outcome {
	case types.OutcomeEmpty:
		c.logger.Warn().Str("source", source).Msg("模型回复为空，使用占位字段")
	case types.OutcomeMalformed:
		var pe *types.ProcessError
		if errors.As(result.ParseErr, &pe) {
			pe.Source = source
		}
		c.logger.Warn().
			Str("source", source).
			Err(result.ParseErr).
			Str("reply", tracing.SafeModelReply(result.Reply)).
			Msg("修复后仍无法解析模型回复，使用占位字段")
	case types.OutcomeRepaired:
		c.logger.Info().Str("source", source).Msg("补全大括号后解析成功")
	}
	return result, nil
}

// callLLM 单次调用，不重试，超时由 c.timeout 控制
func (c *CandidateExtractor) callLLM(ctx context.Context, prompt string) (string, error) {
	callCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	messages := []*einoschema.Message{
		einoschema.UserMessage(prompt),
	}

	c.logger.Debug().Int("prompt_length", len(prompt)).Msg("调用模型进行结构化抽取")
	resp, err := c.llmModel.Generate(callCtx, messages)
	if err != nil {
		return "", fmt.Errorf("LLM Generate failed: %w", err)
	}
	if resp == nil {
		return "", nil
	}
	return resp.Content, nil
}

// NormalizeReply 去掉首尾空白、代码块反引号和 "json" 标记
func NormalizeReply(reply string) string {
	s := strings.TrimSpace(reply)
	s = strings.Trim(s, "`")
	s = strings.Trim(s, "jsonJSON")
	return strings.TrimSpace(s)
}

// RepairReply 缺少开头或结尾大括号时补全
func RepairReply(normalized string) string {
	s := normalized
	if !strings.HasPrefix(s, "{") {
		s = "{" + s
	}
	if !strings.HasSuffix(s, "}") {
		s = s + "}"
	}
	return s
}

// ParseReply 清理、解析并在需要时修复一次模型回复
func ParseReply(reply string) *types.ExtractionResult {
	normalized := NormalizeReply(reply)
	if normalized == "" {
		return &types.ExtractionResult{Fields: types.Fields{}, Outcome: types.OutcomeEmpty}
	}

	obj, err := parseObject(normalized)
	if err == nil {
		return &types.ExtractionResult{Fields: types.FieldsFromObject(obj), Outcome: types.OutcomeParsed, Reply: normalized}
	}

	repaired := RepairReply(normalized)
	obj, repairErr := parseObject(repaired)
	if repairErr == nil {
		return &types.ExtractionResult{Fields: types.FieldsFromObject(obj), Outcome: types.OutcomeRepaired, Reply: repaired}
	}

	return &types.ExtractionResult{
		Fields:   types.Fields{},
		Outcome:  types.OutcomeMalformed,
		Reply:    repaired,
		ParseErr: types.NewMalformedReplyError("", repairErr),
	}
}

func parseObject(s string) (map[string]types.Value, error) {
	raw, err := types.DecodeJSON([]byte(s))
	if err != nil {
		return nil, err
	}
	m, ok := raw.(map[string]interface{})
	if !ok {
		return nil, fmt.Errorf("模型回复不是JSON对象")
	}
	obj := make(map[string]types.Value, len(m))
	for k, v := range m {
		obj[k] = types.FromAny(v)
	}
	return obj, nil
}
