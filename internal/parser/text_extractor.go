// Package parser 负责简历文件转文本、文本向量化和 LLM 评分。
package parser

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"unicode/utf8"
)

// ErrUnsupportedFormat 文件扩展名没有对应的提取器
var ErrUnsupportedFormat = errors.New("unsupported file format")

// TextExtractor 从文件内容中提取纯文本
type TextExtractor interface {
	ExtractText(ctx context.Context, reader io.Reader, fileName string) (string, error)
}

// MultiFormatExtractor 按扩展名分派到具体提取器
type MultiFormatExtractor struct {
	byExt map[string]TextExtractor
}

// NewMultiFormatExtractor 注册 pdf、docx、txt 三种格式
func NewMultiFormatExtractor(ctx context.Context) (*MultiFormatExtractor, error) {
	pdfExtractor, err := NewEinoPDFTextExtractor(ctx)
	if err != nil {
		return nil, err
	}
	return &MultiFormatExtractor{
		byExt: map[string]TextExtractor{
			".pdf":  pdfExtractor,
			".docx": NewDocxTextExtractor(),
			".txt":  PlainTextExtractor{},
		},
	}, nil
}

// Register 覆盖或新增某个扩展名的提取器
func (m *MultiFormatExtractor) Register(ext string, extractor TextExtractor) {
	m.byExt[strings.ToLower(ext)] = extractor
}

// Supports 是否支持该文件名
func (m *MultiFormatExtractor) Supports(fileName string) bool {
	_, ok := m.byExt[strings.ToLower(filepath.Ext(fileName))]
	return ok
}

// ExtractText 提取并规范化文本
func (m *MultiFormatExtractor) ExtractText(ctx context.Context, reader io.Reader, fileName string) (string, error) {
	ext := strings.ToLower(filepath.Ext(fileName))
	extractor, ok := m.byExt[ext]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	text, err := extractor.ExtractText(ctx, reader, fileName)
	if err != nil {
		return "", err
	}
	return NormalizeText(text), nil
}

// NormalizeText 统一换行符并替换非法 UTF-8
func NormalizeText(text string) string {
	if !utf8.ValidString(text) {
		text = strings.ToValidUTF8(text, "�")
	}
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	return strings.ReplaceAll(text, "\x00", "")
}

// PlainTextExtractor 直接读取 txt
type PlainTextExtractor struct{}

func (PlainTextExtractor) ExtractText(ctx context.Context, reader io.Reader, fileName string) (string, error) {
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", fmt.Errorf("读取文本文件 %s 失败: %w", fileName, err)
	}
	// UTF-8 BOM
	return strings.TrimPrefix(string(data), "\ufeff"), nil
}
