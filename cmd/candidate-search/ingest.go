package main

import (
	"context"
	"os"

	"candidate-search/internal/config"
	"candidate-search/internal/logger"
	"candidate-search/internal/parser"
	"candidate-search/internal/processor"

	"github.com/rs/zerolog"
)

func runIngest(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	c, err := newComponents(ctx, cfg, log, true)
	if err != nil {
		return err
	}
	defer c.Close()

	src, err := c.textSource()
	if err != nil {
		return err
	}

	chatModel, err := parser.NewOpenAIChatModel(cfg.LLM, logger.Component("llm"))
	if err != nil {
		return err
	}
	extractor := parser.NewCandidateExtractor(chatModel,
		parser.WithExtractionTimeout(config.GetDuration(cfg.LLM.ExtractionTimeout, 0)),
		parser.WithExtractorLogger(logger.Component("extractor")),
	)

	opts := []processor.IngestOption{
		processor.WithIngestLogger(logger.Component("ingest")),
		processor.WithConsole(os.Stdout),
		processor.WithDedupPolicy(cfg.Ingest.Dedup),
	}
	if c.storage.RabbitMQ != nil {
		opts = append(opts, processor.WithEventPublisher(c.storage.RabbitMQ))
	}
	if c.storage.Redis != nil {
		opts = append(opts, processor.WithIngestLocker(c.storage.Redis))
	}

	ingestor := processor.NewCandidateIngestor(src, extractor, c.embedder, c.storage.RecordStore, opts...)
	summary, err := ingestor.Run(ctx)
	if err != nil {
		return err
	}
	log.Info().
		Str("run_id", summary.RunID).
		Int("stored", summary.Stored).
		Int("failed", summary.Failed).
		Dur("duration", summary.Duration).
		Msg("导入完成")
	return nil
}
