package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"resume-ner-go/internal/agent"
	"resume-ner-go/internal/config"
	"resume-ner-go/internal/extractor"
	"resume-ner-go/internal/parser"
	"resume-ner-go/internal/processor"
	"resume-ner-go/internal/types"
)

// handleTextCommand 仅提取文本
func handleTextCommand() {
	start := time.Now()
	text := mustReadDocument(30 * time.Second)
	fmt.Fprintf(os.Stderr, "提取完成! 耗时: %v, 共 %d 字符\n", time.Since(start), len([]rune(text)))

	display := text
	if runes := []rune(text); *maxLen >= 0 && len(runes) > *maxLen {
		display = string(runes[:*maxLen]) + "...(已截断，使用 --maxlen 显示更多)"
	}
	emit([]byte(display))
}

// handleExtractCommand 输出抽取结果和实习标签
func handleExtractCommand(cfg *config.Config) {
	text := mustReadDocument(30 * time.Second)
	record := mustExtract(cfg, text)
	emitJSON(map[string]interface{}{
		"extracted":  record,
		"quick_tags": extractor.MatchInternshipKeywords(text),
	})
}

func handleTagsCommand() {
	text := mustReadDocument(30 * time.Second)
	emitJSON(extractor.MatchInternshipKeywords(text))
}

// handleScoreCommand 抽取后调用 LLM 评分
func handleScoreCommand(cfg *config.Config) {
	if cfg.Aliyun.APIKey == "" {
		fatalf("score 命令需要配置 aliyun.api_key 或环境变量 RESUME_ALIYUN_API_KEY")
	}
	text := mustReadDocument(30 * time.Second)
	record := mustExtract(cfg, text)

	modelName := cfg.Aliyun.Scoring.Model
	if modelName == "" {
		modelName = cfg.Aliyun.Model
	}
	llm, err := agent.NewAliyunQwenChatModel(cfg.Aliyun.APIKey, modelName, cfg.Aliyun.APIURL, agent.WithJSONOutput())
	if err != nil {
		fatalf("创建评分模型失败: %v", err)
	}
	scorer := parser.NewResumeScorer(llm, cfg.Aliyun.Scoring)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()
	score, err := scorer.Score(ctx, record)
	if err != nil {
		fatalf("评分失败: %v", err)
	}
	emitJSON(map[string]interface{}{
		"extracted": record,
		"scores":    score,
	})
}

// handleEmbedCommand 按服务端相同的方式生成向量并输出摘要
func handleEmbedCommand(cfg *config.Config) {
	if cfg.Aliyun.APIKey == "" {
		fatalf("embed 命令需要配置 aliyun.api_key 或环境变量 RESUME_ALIYUN_API_KEY")
	}
	text := mustReadDocument(30 * time.Second)
	record := mustExtract(cfg, text)

	embedder, err := parser.NewAliyunEmbedder(cfg.Aliyun.APIKey, cfg.Aliyun.Embedding)
	if err != nil {
		fatalf("创建向量化组件失败: %v", err)
	}
	input, err := processor.EmbeddingInput(record)
	if err != nil {
		fatalf("序列化抽取结果失败: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	vector, err := parser.EmbedText(ctx, embedder, input, cfg.Aliyun.Embedding.MaxInputChars, cfg.Qdrant.Dimension)
	if err != nil {
		fatalf("向量化失败: %v", err)
	}

	preview := vector
	if len(preview) > 8 {
		preview = preview[:8]
	}
	emitJSON(map[string]interface{}{
		"dimensions": len(vector),
		"preview":    preview,
	})
}

func mustExtract(cfg *config.Config, text string) *types.ResumeRecord {
	record, err := processor.NewEntityAggregator(cfg).Extract(text)
	if err != nil {
		fatalf("实体抽取失败: %v", err)
	}
	return record
}
