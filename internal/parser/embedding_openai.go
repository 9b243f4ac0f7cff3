package parser

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/metrics"
	"candidate-search/internal/types"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

const defaultEmbeddingTimeout = 30 * time.Second

// OpenAIEmbedder 通过 OpenAI 兼容接口生成向量，实现 embedding.Embedder
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	// 只有支持降维的模型才在请求中带 dimensions，否则接口返回 400
	sendDimensions bool
	timeout        time.Duration
	logger         zerolog.Logger
}

// NewOpenAIEmbedder 创建向量化组件，维度在整个库中固定
func NewOpenAIEmbedder(cfg config.EmbeddingConfig, logger zerolog.Logger) (*OpenAIEmbedder, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: 向量模型API密钥不能为空", types.ErrInvalidConfig)
	}
	if cfg.Dimensions <= 0 {
		return nil, fmt.Errorf("%w: 向量维度必须为正数", types.ErrInvalidConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	return &OpenAIEmbedder{
		client:         openai.NewClientWithConfig(clientCfg),
		model:          openai.EmbeddingModel(cfg.Model),
		dimensions:     cfg.Dimensions,
		sendDimensions: requestDimensions(cfg),
		timeout:        config.GetDuration(cfg.Timeout, defaultEmbeddingTimeout),
		logger:         logger,
	}, nil
}

// requestDimensions text-embedding-3 之前的模型(如 ada-002)和部分兼容网关不接受 dimensions 参数
func requestDimensions(cfg config.EmbeddingConfig) bool {
	if cfg.RequestDimensions != nil {
		return *cfg.RequestDimensions
	}
	return strings.HasPrefix(cfg.Model, "text-embedding-3")
}

// Dimensions 返回配置的向量维度
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// EmbedStrings 实现 eino embedding.Embedder 接口
func (e *OpenAIEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	options := embedding.GetCommonOptions(&embedding.Options{}, opts...)
	modelName := e.model
	if options.Model != nil && *options.Model != "" {
		modelName = openai.EmbeddingModel(*options.Model)
	}

	vectors, err := e.create(ctx, modelName, texts)
	if err != nil {
		return nil, err
	}

	out := make([][]float64, len(vectors))
	for i, v := range vectors {
		f := make([]float64, len(v))
		for j, x := range v {
			f[j] = float64(x)
		}
		out[i] = f
	}
	return out, nil
}

// EmbedText 单条文本向量化，返回存储使用的 float32 向量
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.create(ctx, e.model, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) create(ctx context.Context, modelName openai.EmbeddingModel, texts []string) ([][]float32, error) {
	callCtx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	req := openai.EmbeddingRequest{
		Input:          texts,
		Model:          modelName,
		EncodingFormat: openai.EmbeddingEncodingFormatFloat,
	}
	if e.sendDimensions {
		req.Dimensions = e.dimensions
	}

	start := time.Now()
	resp, err := e.client.CreateEmbeddings(callCtx, req)
	duration := time.Since(start)

	if err != nil {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(modelName), "error").Inc()
		e.logger.Error().Err(err).Str("model", string(modelName)).Int("texts", len(texts)).Msg("向量化请求失败")
		return nil, types.NewTransportError("embedding", "create_embeddings", parseAPIError(err))
	}
	if len(resp.Data) != len(texts) {
		metrics.EmbeddingRequestsTotal.WithLabelValues(string(modelName), "error").Inc()
		return nil, types.NewTransportError("embedding", "create_embeddings",
			fmt.Errorf("返回向量数量(%d)与输入数量(%d)不一致", len(resp.Data), len(texts)))
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues(string(modelName), "success").Inc()
	metrics.EmbeddingRequestDuration.WithLabelValues(string(modelName)).Observe(duration.Seconds())

	vectors := make([][]float32, len(resp.Data))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vectors) {
			return nil, types.NewTransportError("embedding", "create_embeddings", fmt.Errorf("向量下标越界: %d", d.Index))
		}
		if len(d.Embedding) != e.dimensions {
			return nil, types.NewDimensionError("embedding", len(d.Embedding), e.dimensions)
		}
		vectors[d.Index] = d.Embedding
	}

	e.logger.Debug().
		Str("model", string(modelName)).
		Int("texts", len(texts)).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Dur("duration", duration).
		Msg("向量化完成")
	return vectors, nil
}

// parseAPIError 从接口错误中提取可读信息
func parseAPIError(err error) error {
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		if detail := extractDetail(reqErr.Body); detail != "" {
			return fmt.Errorf("接口返回错误 %d: %s: %w", reqErr.HTTPStatusCode, detail, err)
		}
		return fmt.Errorf("接口返回错误 %d: %w", reqErr.HTTPStatusCode, err)
	}

	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return fmt.Errorf("接口返回错误 %d: %s: %w", apiErr.HTTPStatusCode, apiErr.Message, err)
	}
	return err
}

// extractDetail 兼容部分服务商 {"detail": "..."} 格式的错误体
func extractDetail(body []byte) string {
	var parsed struct {
		Detail string `json:"detail"`
	}
	if json.Unmarshal(body, &parsed) == nil && parsed.Detail != "" {
		return parsed.Detail
	}
	return ""
}
