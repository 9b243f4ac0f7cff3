package handler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"candidate-search/internal/tracing"
	"candidate-search/internal/types"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/rs/zerolog"
)

// Searcher 检索服务
type Searcher interface {
	Search(ctx context.Context, query string) (*types.QueryResult, error)
}

// RecordCounter 健康检查时读取记录数
type RecordCounter interface {
	Count(ctx context.Context) (int64, error)
}

// SearchHandler 负责检索与健康检查请求
type SearchHandler struct {
	searcher Searcher
	counter  RecordCounter
	logger   zerolog.Logger
}

// NewSearchHandler 创建一个新的 SearchHandler 实例
func NewSearchHandler(searcher Searcher, counter RecordCounter, logger zerolog.Logger) *SearchHandler {
	return &SearchHandler{
		searcher: searcher,
		counter:  counter,
		logger:   logger,
	}
}

// SearchRequest POST 请求体
type SearchRequest struct {
	Query string `json:"query"`
}

// HandleSearch 返回与查询最相近的一位候选人。
// GET /api/v1/search?q=...  或  POST /api/v1/search {"query": "..."}
func (h *SearchHandler) HandleSearch(ctx context.Context, c *app.RequestContext) {
	query := c.Query("q")
	if strings.TrimSpace(query) == "" && string(c.Method()) == consts.MethodPost {
		var req SearchRequest
		if body := c.Request.Body(); len(body) > 0 {
			if err := json.Unmarshal(body, &req); err != nil {
				c.JSON(consts.StatusBadRequest, utils.H{"error": "请求体不是合法的JSON"})
				return
			}
		}
		query = req.Query
	}

	result, err := h.searcher.Search(ctx, query)
	switch {
	case errors.Is(err, types.ErrEmptyQuery):
		c.JSON(consts.StatusBadRequest, utils.H{"error": "查询内容不能为空"})
		return
	case types.IsFatal(err):
		h.logger.WithLevel(zerolog.FatalLevel).
			Err(err).
			Str("kind", string(types.KindOf(err))).
			Msg("检索配置错误，需检查向量模型与存储维度")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "检索失败"})
		return
	case err != nil:
		h.logger.Error().
			Err(err).
			Str("query", tracing.SafeQuery(query)).
			Str("kind", string(types.KindOf(err))).
			Msg("检索失败")
		c.JSON(consts.StatusInternalServerError, utils.H{"error": "检索失败"})
		return
	case result == nil:
		c.JSON(consts.StatusNotFound, utils.H{"error": "no matching candidate"})
		return
	}

	c.JSON(consts.StatusOK, result)
}

// HandleHealth 健康检查，同时返回记录总数
// GET /api/v1/health
func (h *SearchHandler) HandleHealth(ctx context.Context, c *app.RequestContext) {
	n, err := h.counter.Count(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Msg("健康检查读取记录数失败")
		c.JSON(consts.StatusServiceUnavailable, utils.H{"status": "unavailable", "error": err.Error()})
		return
	}
	c.JSON(consts.StatusOK, utils.H{"status": "ok", "records": n})
}
