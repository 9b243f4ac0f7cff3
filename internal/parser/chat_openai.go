package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"candidate-search/internal/config"
	"candidate-search/internal/metrics"
	"candidate-search/internal/types"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	openai "github.com/sashabaranov/go-openai"
)

// OpenAIChatModel 通过 OpenAI 兼容接口(默认 GitHub Models)实现 model.BaseChatModel
type OpenAIChatModel struct {
	client      *openai.Client
	modelName   string
	temperature float32
	maxTokens   int
	logger      zerolog.Logger
}

// NewOpenAIChatModel 创建对话模型客户端
func NewOpenAIChatModel(cfg config.LLMConfig, logger zerolog.Logger) (*OpenAIChatModel, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: 模型API密钥不能为空", types.ErrInvalidConfig)
	}

	clientCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientCfg.BaseURL = cfg.BaseURL
	}

	logger.Debug().Str("base_url", clientCfg.BaseURL).Str("model", cfg.Model).Msg("初始化对话模型客户端")
	return &OpenAIChatModel{
		client:      openai.NewClientWithConfig(clientCfg),
		modelName:   cfg.Model,
		temperature: cfg.Temperature,
		maxTokens:   cfg.MaxTokens,
		logger:      logger,
	}, nil
}

// Generate 实现 model.BaseChatModel 接口
func (m *OpenAIChatModel) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	req := m.buildRequest(input, opts...)

	start := time.Now()
	resp, err := m.client.CreateChatCompletion(ctx, req)
	if err != nil {
		metrics.LLMRequestDuration.WithLabelValues(req.Model, "error").Observe(time.Since(start).Seconds())
		return nil, parseAPIError(err)
	}
	metrics.LLMRequestDuration.WithLabelValues(req.Model, "success").Observe(time.Since(start).Seconds())

	m.logger.Debug().
		Str("model", req.Model).
		Int("prompt_tokens", resp.Usage.PromptTokens).
		Int("completion_tokens", resp.Usage.CompletionTokens).
		Msg("对话模型调用完成")

	// 没有候选回复时按空回复处理，由上层降级
	if len(resp.Choices) == 0 {
		return schema.AssistantMessage("", nil), nil
	}
	choice := resp.Choices[0]
	return &schema.Message{
		Role:    schema.Assistant,
		Content: choice.Message.Content,
		ResponseMeta: &schema.ResponseMeta{
			FinishReason: string(choice.FinishReason),
			Usage: &schema.TokenUsage{
				PromptTokens:     resp.Usage.PromptTokens,
				CompletionTokens: resp.Usage.CompletionTokens,
				TotalTokens:      resp.Usage.TotalTokens,
			},
		},
	}, nil
}

// Stream 不使用流式接口，一次生成后包装为单元素流
func (m *OpenAIChatModel) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	msg, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{msg}), nil
}

func (m *OpenAIChatModel) buildRequest(input []*schema.Message, opts ...model.Option) openai.ChatCompletionRequest {
	options := model.GetCommonOptions(&model.Options{
		Model:       &m.modelName,
		Temperature: &m.temperature,
		MaxTokens:   &m.maxTokens,
	}, opts...)

	req := openai.ChatCompletionRequest{
		Model:    m.modelName,
		Messages: make([]openai.ChatCompletionMessage, 0, len(input)),
	}
	if options.Model != nil && *options.Model != "" {
		req.Model = *options.Model
	}
	if options.Temperature != nil && *options.Temperature > 0 {
		req.Temperature = *options.Temperature
	}
	if options.MaxTokens != nil && *options.MaxTokens > 0 {
		req.MaxTokens = *options.MaxTokens
	}
	for _, msg := range input {
		if msg == nil {
			continue
		}
		req.Messages = append(req.Messages, openai.ChatCompletionMessage{
			Role:    string(msg.Role),
			Content: msg.Content,
		})
	}
	return req
}
