// reindex 为写入向量库失败的提交补建索引。
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/pflag"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/processor"
	"resume-ner-go/internal/storage"
)

var (
	configPath  = pflag.StringP("config", "c", "", "配置文件路径")
	batchSize   = pflag.Int("batch", 20, "每批处理的提交数")
	concurrency = pflag.Int("concurrency", 5, "并发数")
	maxBatches  = pflag.Int("max-batches", 0, "最多处理的批次，0 表示直到没有待处理提交")
	pause       = pflag.Duration("pause", 5*time.Second, "批次间隔")
	submission  = pflag.String("id", "", "只处理指定的 submission_uuid")
)

func main() {
	pflag.Parse()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "加载配置失败: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format, Service: "resume-reindex"})

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	storageManager, err := storage.NewStorage(ctx, cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化存储失败")
	}
	defer storageManager.Close()
	if storageManager.MySQL == nil || storageManager.Qdrant == nil {
		logger.Fatal().Msg("补建索引需要 MySQL 和 Qdrant")
	}

	components, err := processor.BuildComponents(ctx, cfg, storageManager)
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化处理组件失败")
	}
	svc, err := processor.NewResumeService(components, processor.WithConfig(cfg))
	if err != nil {
		logger.Fatal().Err(err).Msg("初始化简历服务失败")
	}

	if *submission != "" {
		if err := svc.ReindexSubmission(ctx, *submission); err != nil {
			logger.Fatal().Err(err).Str("submission_uuid", *submission).Msg("补建索引失败")
		}
		logger.Info().Str("submission_uuid", *submission).Msg("补建索引完成")
		return
	}

	total := &processor.ReindexReport{Failed: []string{}}
	failed := map[string]bool{}
	for batch := 1; *maxBatches == 0 || batch <= *maxBatches; batch++ {
		report, err := svc.ReindexPending(ctx, *batchSize, *concurrency)
		if err != nil {
			logger.Error().Err(err).Int("batch", batch).Msg("批次处理中断")
			break
		}
		total.Total += report.Total
		total.Indexed += report.Indexed
		for _, id := range report.Failed {
			if !failed[id] {
				failed[id] = true
				total.Failed = append(total.Failed, id)
			}
		}
		logger.Info().Int("batch", batch).Int("total", report.Total).Int("indexed", report.Indexed).
			Int("failed", len(report.Failed)).Msg("批次处理完成")

		// 整批失败时不再重试同一批，避免死循环
		if report.Total < *batchSize || report.Indexed == 0 {
			break
		}
		select {
		case <-ctx.Done():
		case <-time.After(*pause):
		}
		if ctx.Err() != nil {
			break
		}
	}

	out, _ := json.MarshalIndent(total, "", "  ")
	fmt.Println(string(out))
	if len(total.Failed) > 0 {
		os.Exit(1)
	}
}
