package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"candidate-search/internal/config"
	"candidate-search/internal/logger"

	"github.com/spf13/pflag"
)

var version = "1.0.0" //nolint:gochecknoglobals

const usage = `用法: candidate-search <命令> [参数]

命令:
  ingest       导入文档目录(或MinIO前缀)下的所有PDF简历
  search       交互式检索，输入空行退出
  serve        启动HTTP检索服务
  upload       把本地目录中的PDF上传到MinIO (source.type=minio)
  init-config  在 --config 指定的位置生成示例配置

参数:
`

func main() {
	var (
		configPath string
		folder     string
		logLevel   string
	)
	pflag.StringVarP(&configPath, "config", "c", "", "配置文件路径，为空时在默认位置查找")
	pflag.StringVarP(&folder, "folder", "f", "", "文档目录，覆盖 source.folder")
	pflag.StringVar(&logLevel, "log-level", "", "日志级别，覆盖 logger.level")
	pflag.Usage = func() {
		fmt.Fprint(os.Stderr, usage)
		pflag.PrintDefaults()
	}
	pflag.Parse()

	if pflag.NArg() != 1 {
		pflag.Usage()
		os.Exit(2)
	}
	command := pflag.Arg(0)

	if command == "init-config" {
		path := configPath
		if path == "" {
			path = "config.yaml"
		}
		if err := config.CreateSampleConfig(path); err != nil {
			fmt.Fprintf(os.Stderr, "生成示例配置失败: %v\n", err)
			os.Exit(1)
		}
		fmt.Printf("示例配置已写入 %s\n", path)
		return
	}

	cfg, err := config.LoadConfig(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	if folder != "" {
		cfg.Source.Folder = folder
	}
	if logLevel != "" {
		cfg.Logger.Level = logLevel
	}

	log := logger.Init(logger.Config{
		Level:        cfg.Logger.Level,
		Format:       cfg.Logger.Format,
		TimeFormat:   cfg.Logger.TimeFormat,
		ReportCaller: cfg.Logger.ReportCaller,
	})
	if err := cfg.Validate(); err != nil {
		log.Fatal().Err(err).Msg("配置校验失败")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var runErr error
	switch command {
	case "ingest":
		runErr = runIngest(ctx, cfg, log)
	case "search":
		runErr = runSearch(ctx, cfg, log)
	case "serve":
		runErr = runServe(ctx, cfg, log)
	case "upload":
		runErr = runUpload(ctx, cfg, log)
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'\n\n", command)
		pflag.Usage()
		os.Exit(2)
	}
	if runErr != nil {
		log.Error().Err(runErr).Str("command", command).Msg("执行失败")
		stop()
		os.Exit(1)
	}
}
