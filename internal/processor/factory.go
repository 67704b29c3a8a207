package processor

import (
	"context"
	"fmt"
	"time"

	"resume-ner-go/internal/agent"
	"resume-ner-go/internal/config"
	"resume-ner-go/internal/extractor"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/ner"
	"resume-ner-go/internal/parser"
	"resume-ner-go/internal/ratelimit"
	"resume-ner-go/internal/storage"
)

// NewEntityAggregator 按配置创建抽取器，识别器使用进程级单例
func NewEntityAggregator(cfg *config.Config) *extractor.EntityAggregator {
	return extractor.NewEntityAggregator(
		ner.Default(cfg.Extraction.LexiconPath),
		extractor.WithMaxSectionChars(cfg.Extraction.MaxSectionChars),
		extractor.WithMaxDocumentChars(cfg.Extraction.MaxDocumentChars),
		extractor.WithNameWindowLines(cfg.Extraction.NameWindowLines),
	)
}

// BuildComponents 根据配置创建全部组件。没有 API Key 时跳过评分和向量化，
// 存储后端按 NewStorage 的连接结果注入
func BuildComponents(ctx context.Context, cfg *config.Config, st *storage.Storage) ([]ComponentOpt, error) {
	textExtractor, err := parser.NewMultiFormatExtractor(ctx)
	if err != nil {
		return nil, fmt.Errorf("创建文本提取器失败: %w", err)
	}

	opts := []ComponentOpt{
		WithTextExtractor(textExtractor),
		WithRecordExtractor(NewEntityAggregator(cfg)),
		WithStorage(st),
	}

	if cfg.Aliyun.APIKey == "" {
		logger.Warn().Msg("未配置 aliyun.api_key，评分和向量检索不可用")
		return opts, nil
	}

	if cfg.Aliyun.Scoring.Enabled {
		modelName := cfg.Aliyun.Scoring.Model
		if modelName == "" {
			modelName = cfg.Aliyun.Model
		}
		qwen, err := agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, modelName, cfg.Aliyun.APIURL, agent.WithJSONOutput())
		if err != nil {
			return nil, fmt.Errorf("创建评分模型失败: %w", err)
		}
		limited := ratelimit.NewRateLimitedChatModel(qwen, cfg.Aliyun.Scoring.QPM, cfg.Aliyun.Scoring.MaxRetries, time.Second)
		opts = append(opts, WithScorer(parser.NewResumeScorer(limited, cfg.Aliyun.Scoring)))
	}

	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		return nil, fmt.Errorf("创建向量化组件失败: %w", err)
	}
	opts = append(opts, WithEmbedder(ratelimit.NewRateLimitedEmbedder(embedder, cfg.Aliyun.Embedding.QPM, 2, 500*time.Millisecond)))
	return opts, nil
}
