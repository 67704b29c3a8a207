// resumeprocessor 命令行工具：离线提取简历文本、抽取实体、打标签、评分和向量化。
package main

import (
	"fmt"
	"os"

	"github.com/spf13/pflag"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
)

// 命令行参数定义
var (
	inputFile  = pflag.StringP("file", "f", "", "简历文件路径 (.pdf/.docx/.txt)，为空时从标准输入读取纯文本")
	configPath = pflag.StringP("config", "c", "", "配置文件路径，评分和向量化需要 aliyun.api_key")
	command    = pflag.String("cmd", "extract", "执行的命令: text=仅提取文本, extract=实体抽取, tags=实习关键词, score=LLM评分, embed=向量化")
	maxLen     = pflag.Int("maxlen", 1000, "text 命令显示的最大字符数，设为-1显示全部")
	pretty     = pflag.Bool("pretty", false, "JSON 缩进输出")
	tagsOnly   = pflag.Bool("tags", false, "只输出实习关键词标签，等同 --cmd tags")
	saveFile   = pflag.String("save", "", "把输出同时保存到文件")
	verbose    = pflag.BoolP("verbose", "v", false, "输出调试日志")
)

func main() {
	pflag.Parse()

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger.InitWithWriter(logger.Config{Level: level, Format: "pretty"}, os.Stderr)

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		fatalf("加载配置失败: %v", err)
	}

	if *tagsOnly {
		*command = "tags"
	}
	switch *command {
	case "text":
		handleTextCommand()
	case "extract":
		handleExtractCommand(cfg)
	case "tags":
		handleTagsCommand()
	case "score":
		handleScoreCommand(cfg)
	case "embed":
		handleEmbedCommand(cfg)
	default:
		fmt.Fprintf(os.Stderr, "错误: 未知命令 '%s'。支持的命令: text, extract, tags, score, embed\n", *command)
		pflag.Usage()
		os.Exit(2)
	}
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
	os.Exit(1)
}
