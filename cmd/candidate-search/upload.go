package main

import (
	"context"
	"fmt"
	"os"
	"path"

	"candidate-search/internal/config"
	"candidate-search/internal/logger"
	"candidate-search/internal/source"
	"candidate-search/internal/storage"

	"github.com/rs/zerolog"
)

// runUpload 把 source.folder 下的PDF上传到 MinIO 的 source.prefix 下，之后可用 ingest 导入
func runUpload(ctx context.Context, cfg *config.Config, log zerolog.Logger) error {
	if cfg.Source.Type != config.SourceMinIO {
		return fmt.Errorf("upload 需要 source.type=minio，当前为 %q", cfg.Source.Type)
	}

	st, err := storage.NewStorage(ctx, cfg, logger.Component("storage"))
	if err != nil {
		return err
	}
	defer st.Close()

	docs, err := source.NewFolderSource(cfg.Source.Folder, nil).ListDocuments(ctx)
	if err != nil {
		return err
	}
	if len(docs) == 0 {
		fmt.Println("No PDF files found in the specified folder.")
		return nil
	}

	uploaded := 0
	for _, doc := range docs {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := os.ReadFile(doc.Location)
		if err != nil {
			log.Error().Err(err).Str("file", doc.Name).Msg("读取文件失败")
			continue
		}
		key, err := st.MinIO.UploadFile(ctx, path.Join(cfg.Source.Prefix, doc.Name), data)
		if err != nil {
			log.Error().Err(err).Str("file", doc.Name).Msg("上传失败")
			continue
		}
		uploaded++
		fmt.Printf("Uploaded file: %s -> %s/%s\n", doc.Name, st.MinIO.Bucket(), key)
	}
	log.Info().Int("found", len(docs)).Int("uploaded", uploaded).Msg("上传完成")
	return nil
}
