package router

import (
	"context"
	"errors"
	"time"

	"candidate-search/internal/api/handler"

	"github.com/cloudwego/hertz/pkg/app"
	"github.com/cloudwego/hertz/pkg/app/server"
	"github.com/cloudwego/hertz/pkg/common/utils"
	"github.com/cloudwego/hertz/pkg/protocol/consts"
	"github.com/hertz-contrib/keyauth"
	"github.com/rs/zerolog"
)

const healthPath = "/api/v1/health"

var errInvalidAPIKey = errors.New("invalid api key")

// RegisterRoutes 注册 API 路由。apiKey 为空时不启用认证，健康检查始终不需要认证。
func RegisterRoutes(h *server.Hertz, searchHandler *handler.SearchHandler, apiKey string, logger zerolog.Logger) {
	h.Use(RequestLogger(logger))
	if apiKey != "" {
		h.Use(APIKeyAuth(apiKey))
	}

	api := h.Group("/api/v1")
	api.GET("/health", searchHandler.HandleHealth)
	api.GET("/search", searchHandler.HandleSearch)
	api.POST("/search", searchHandler.HandleSearch)
}

// APIKeyAuth 校验 Authorization: Bearer <key>
func APIKeyAuth(apiKey string) app.HandlerFunc {
	return keyauth.New(
		keyauth.WithKeyLookUp("header:Authorization", "Bearer"),
		keyauth.WithFilter(func(ctx context.Context, c *app.RequestContext) bool {
			return string(c.Path()) == healthPath
		}),
		keyauth.WithValidator(func(ctx context.Context, c *app.RequestContext, key string) (bool, error) {
			if key == apiKey {
				return true, nil
			}
			return false, errInvalidAPIKey
		}),
		keyauth.WithErrorHandler(func(ctx context.Context, c *app.RequestContext, err error) {
			c.AbortWithStatusJSON(consts.StatusUnauthorized, utils.H{"error": "未授权"})
		}),
	)
}

// RequestLogger 记录每个请求的方法、路径、状态码和耗时
func RequestLogger(logger zerolog.Logger) app.HandlerFunc {
	return func(ctx context.Context, c *app.RequestContext) {
		start := time.Now()
		c.Next(ctx)
		logger.Info().
			Str("method", string(c.Method())).
			Str("path", string(c.Path())).
			Int("status", c.Response.StatusCode()).
			Dur("latency", time.Since(start)).
			Msg("HTTP请求")
	}
}
