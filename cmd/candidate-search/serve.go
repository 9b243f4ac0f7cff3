package main

import (
	"context"
	"time"

	"candidate-search/internal/api/handler"
	"candidate-search/internal/api/router"
	"candidate-search/internal/config"
	"candidate-search/internal/logger"

	"github.com/cloudwego/hertz/pkg/app/server"
	hertztracing "github.com/hertz-contrib/obs-opentelemetry/tracing"
	"github.com/rs/zerolog"
)

func runServe(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	c, err := newComponents(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer c.Close()

	searcher, store, err := c.searcher(ctx)
	if err != nil {
		return err
	}

	logger.InitHertz(cfg.Logger.Level)

	tracer, tracerCfg := hertztracing.NewServerTracer()
	h := server.Default(
		tracer,
		server.WithHostPorts(cfg.Server.Address),
		server.WithHandleMethodNotAllowed(true),
		server.WithExitWaitTime(3*time.Second),
	)
	h.Use(hertztracing.ServerMiddleware(tracerCfg))

	searchHandler := handler.NewSearchHandler(searcher, store, logger.Component("api"))
	router.RegisterRoutes(h, searchHandler, cfg.Server.APIKey, logger.Component("http"))
	if cfg.Server.APIKey == "" {
		log.Warn().Msg("未配置 server.api_key，检索接口不做鉴权")
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("address", cfg.Server.Address).Msg("HTTP 服务器启动中")
		errCh <- h.Run()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info().Msg("接收到终止信号，正在优雅退出...")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := h.Shutdown(shutdownCtx); err != nil {
		return err
	}
	log.Info().Msg("优雅退出完成")
	return nil
}
