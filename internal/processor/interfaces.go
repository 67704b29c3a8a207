package processor

import (
	"context"
	"io"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"resume-ner-go/internal/parser"
	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/types"
)

// RecordExtractor 文本到结构化记录，extractor.EntityAggregator 实现
type RecordExtractor interface {
	Extract(document string) (*types.ResumeRecord, error)
}

// ResumeScorer LLM 评分，parser.ResumeScorer 实现
type ResumeScorer interface {
	Score(ctx context.Context, record *types.ResumeRecord) (*types.ResumeScore, error)
}

// TextExtractor 文件转文本
type TextExtractor = parser.TextExtractor

// Embedder eino 向量化接口
type Embedder = embedding.Embedder

// FileDeduper 按文件 MD5 去重，storage.Redis 实现
type FileDeduper interface {
	CheckAndSetFileMD5(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error)
	RemoveFileMD5(ctx context.Context, md5Hex string) error
}

// RecordCache 按文本 MD5 缓存抽取结果，storage.Redis 实现
type RecordCache interface {
	GetCachedRecord(ctx context.Context, textMD5 string) (*types.ResumeRecord, error)
	CacheRecord(ctx context.Context, textMD5 string, rec *types.ResumeRecord, ttl time.Duration) error
}

// ObjectStorage 原始文件存储
type ObjectStorage interface {
	UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error)
	GetResumeFile(ctx context.Context, objectKey string) (io.ReadCloser, int64, error)
}

var (
	_ FileDeduper   = (*storage.Redis)(nil)
	_ RecordCache   = (*storage.Redis)(nil)
	_ ObjectStorage = (*storage.MinIO)(nil)
)
