package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"resume-ner-go/internal/parser"
)

// readDocument 读取 --file 指定的文件并提取文本，未指定时读标准输入
func readDocument(ctx context.Context) (string, error) {
	if *inputFile == "" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", fmt.Errorf("读取标准输入失败: %w", err)
		}
		return parser.NormalizeText(string(data)), nil
	}

	absPath, err := filepath.Abs(*inputFile)
	if err != nil {
		return "", fmt.Errorf("无法获取文件的绝对路径: %w", err)
	}
	f, err := os.Open(absPath)
	if err != nil {
		return "", fmt.Errorf("无法访问文件 %s: %w", absPath, err)
	}
	defer f.Close()

	textExtractor, err := parser.NewMultiFormatExtractor(ctx)
	if err != nil {
		return "", err
	}
	if !textExtractor.Supports(absPath) {
		return "", fmt.Errorf("%w: %s", parser.ErrUnsupportedFormat, filepath.Ext(absPath))
	}
	return textExtractor.ExtractText(ctx, f, filepath.Base(absPath))
}

func mustReadDocument(timeout time.Duration) string {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	text, err := readDocument(ctx)
	if err != nil {
		fatalf("提取文本失败: %v", err)
	}
	return text
}

// emit 输出结果，--save 时同时写文件
func emit(out []byte) {
	fmt.Println(string(out))
	if *saveFile != "" {
		if err := os.WriteFile(*saveFile, out, 0o644); err != nil {
			fatalf("保存到文件失败: %v", err)
		}
		fmt.Fprintf(os.Stderr, "已保存到: %s\n", *saveFile)
	}
}

func emitJSON(v interface{}) {
	var (
		out []byte
		err error
	)
	if *pretty {
		out, err = json.MarshalIndent(v, "", "  ")
	} else {
		out, err = json.Marshal(v)
	}
	if err != nil {
		fatalf("序列化结果失败: %v", err)
	}
	emit(out)
}
