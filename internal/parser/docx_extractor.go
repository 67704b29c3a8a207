package parser

import (
	"context"
	"fmt"
	"io"

	"code.sajari.com/docconv"

	"resume-ner-go/internal/logger"
)

// DocxTextExtractor 使用 docconv 提取 docx 正文
type DocxTextExtractor struct {
	convert func(io.Reader) (string, map[string]string, error)
}

// NewDocxTextExtractor 创建 docx 提取器
func NewDocxTextExtractor() *DocxTextExtractor {
	return &DocxTextExtractor{convert: docconv.ConvertDocx}
}

func (d *DocxTextExtractor) ExtractText(ctx context.Context, reader io.Reader, fileName string) (string, error) {
	text, meta, err := d.convert(reader)
	if err != nil {
		return "", fmt.Errorf("解析docx文件 %s 失败: %w", fileName, err)
	}
	logger.Ctx(ctx).Debug().
		Str("file", fileName).
		Int("chars", len(text)).
		Str("author", meta["Author"]).
		Msg("docx文本提取完成")
	return text, nil
}
