// Package processor 编排简历上传、抽取、评分、向量化和持久化流程。
package processor

import (
	"bytes"
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"
	"gorm.io/datatypes"

	"resume-ner-go/internal/constants"
	"resume-ner-go/internal/extractor"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/outbox"
	"resume-ner-go/internal/parser"
	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/storage/models"
	"resume-ner-go/internal/tracing"
	"resume-ner-go/internal/types"
)

var tracer = otel.Tracer("resume-ner-go/processor")

// UploadRequest 一次上传的文件
type UploadRequest struct {
	FileName string
	Size     int64 // 未知时为 -1
	Reader   io.Reader
}

// OriginalFile 原始简历文件流，调用方负责关闭
type OriginalFile struct {
	Reader      io.ReadCloser
	Size        int64
	FileName    string
	ContentType string
}

// SubmissionDetail 已保存的提交记录
type SubmissionDetail struct {
	SubmissionUUID   string              `json:"submission_uuid"`
	FileName         string              `json:"file_name"`
	CandidateName    string              `json:"candidate_name,omitempty"`
	Extracted        *types.ResumeRecord `json:"extracted"`
	Scores           *types.ResumeScore  `json:"scores"`
	QuickTags        []string            `json:"quick_tags"`
	Indexed          bool                `json:"indexed"`
	ExtractorVersion string              `json:"extractor_version"`
	CreatedAt        time.Time           `json:"created_at"`
}

// ResumeService 简历处理服务，持有全部组件，对外只暴露业务操作
type ResumeService struct {
	components Components
	settings   Settings
	group      singleflight.Group
}

// NewResumeService Extractor 必须提供
func NewResumeService(compOpts []ComponentOpt, setOpts ...SettingOpt) (*ResumeService, error) {
	s := &ResumeService{settings: defaultSettings()}
	for _, opt := range compOpts {
		opt(&s.components)
	}
	for _, opt := range setOpts {
		opt(&s.settings)
	}
	if s.components.Extractor == nil {
		return nil, errors.New("processor: record extractor is required")
	}
	return s, nil
}

// Settings 当前生效的处理参数
func (s *ResumeService) Settings() Settings {
	return s.settings
}

// Ingest 上传流水线：校验、去重、存储原件、抽取文本与记录、评分、向量化、落库并写 outbox
func (s *ResumeService) Ingest(ctx context.Context, req UploadRequest) (result *types.IngestResult, err error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Ingest", trace.WithSpanKind(trace.SpanKindInternal))
	defer func() {
		if err != nil {
			tracing.RecordError(span, err, errorTypeOf(err))
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()
	ctx, cancel := context.WithTimeout(ctx, s.settings.ProcessTimeout)
	defer cancel()

	fileName := filepath.Base(strings.TrimSpace(req.FileName))
	ext := strings.ToLower(filepath.Ext(fileName))
	span.SetAttributes(attribute.String("resume.file_ext", ext), attribute.Int64("resume.size", req.Size))

	// 1. 校验
	if _, ok := s.settings.AllowedExtensions[ext]; !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedFile, ext)
	}
	if req.Size > s.settings.MaxUploadBytes {
		return nil, fmt.Errorf("%w: %d > %d bytes", ErrFileTooLarge, req.Size, s.settings.MaxUploadBytes)
	}
	data, err := io.ReadAll(io.LimitReader(req.Reader, s.settings.MaxUploadBytes+1))
	if err != nil {
		return nil, fmt.Errorf("读取上传文件失败: %w", err)
	}
	if int64(len(data)) > s.settings.MaxUploadBytes {
		return nil, fmt.Errorf("%w: more than %d bytes", ErrFileTooLarge, s.settings.MaxUploadBytes)
	}
	if len(data) == 0 {
		return nil, ErrEmptyFile
	}

	submissionID, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("生成提交ID失败: %w", err)
	}
	submissionUUID := submissionID.String()
	fileMD5 := md5Hex(data)

	// 2. 文件级去重
	dedupKeySet := false
	if s.components.Deduper != nil {
		exists, existingUUID, dErr := s.components.Deduper.CheckAndSetFileMD5(ctx, fileMD5, submissionUUID)
		switch {
		case dErr != nil:
			logger.Ctx(ctx).Warn().Err(dErr).Msg("Redis检查文件MD5失败，跳过去重")
		case exists && existingUUID != "":
			if dup, ok := s.duplicateResult(ctx, existingUUID); ok {
				span.SetAttributes(attribute.Bool("resume.duplicate", true))
				return dup, nil
			}
			// 之前的处理没有落库，沿用旧ID重新处理
			submissionUUID = existingUUID
		default:
			dedupKeySet = true
		}
	}
	ctx = logger.WithFields(ctx, map[string]interface{}{"submission_uuid": submissionUUID})
	span.SetAttributes(attribute.String("submission_uuid", submissionUUID))
	log := logger.Ctx(ctx)

	// 流程失败时撤销 MD5 记录，允许重新上传
	defer func() {
		if err != nil && dedupKeySet {
			if rmErr := s.components.Deduper.RemoveFileMD5(context.WithoutCancel(ctx), fileMD5); rmErr != nil {
				log.Warn().Err(rmErr).Msg("撤销文件MD5记录失败")
			}
		}
	}()

	// 3. 保存原件
	objectKey := ""
	if s.components.Objects != nil {
		objectKey, err = s.components.Objects.UploadResumeFile(ctx, submissionUUID, ext, bytes.NewReader(data), int64(len(data)))
		if err != nil {
			return nil, NewStoreError(submissionUUID, err)
		}
		span.AddEvent("original_stored")
	}

	// 4. 提取文本
	if s.components.TextExtractor == nil {
		return nil, NewParseError(submissionUUID, errors.New("no text extractor configured"))
	}
	text, err := s.components.TextExtractor.ExtractText(ctx, bytes.NewReader(data), fileName)
	if err != nil {
		return nil, NewParseError(submissionUUID, err)
	}
	span.SetAttributes(attribute.Int("resume.text_length", len(text)))

	// 5. 抽取记录
	textMD5 := md5Hex([]byte(text))
	record, err := s.extractRecord(ctx, text, textMD5)
	if err != nil {
		return nil, NewExtractError(submissionUUID, err)
	}

	// 6. 评分失败不中断
	scores := s.score(ctx, record)

	quickTags := extractor.MatchInternshipKeywords(text)

	// 7. 向量化失败不中断
	indexed := s.index(ctx, submissionUUID, fileName, record)

	// 8. 落库 + outbox
	if s.components.Submissions != nil {
		sub, msg, buildErr := s.buildSubmission(submissionUUID, fileName, objectKey, fileMD5, textMD5, record, scores, quickTags, indexed)
		if buildErr != nil {
			return nil, NewDatabaseError(submissionUUID, buildErr)
		}
		if err = s.components.Submissions.SaveSubmissionWithOutbox(ctx, sub, msg); err != nil {
			return nil, NewDatabaseError(submissionUUID, err)
		}
	}

	log.Info().
		Str("file_name", fileName).
		Bool("scored", scores != nil).
		Bool("indexed", indexed).
		Int("quick_tags", len(quickTags)).
		Msg("简历处理完成")

	return &types.IngestResult{
		SubmissionUUID: submissionUUID,
		FileName:       fileName,
		Scores:         scores,
		Extracted:      record,
		QuickTags:      quickTags,
	}, nil
}

// duplicateResult 查询已存在的提交，查不到时返回 false
func (s *ResumeService) duplicateResult(ctx context.Context, existingUUID string) (*types.IngestResult, bool) {
	if s.components.Submissions == nil {
		return nil, false
	}
	detail, err := s.Submission(ctx, existingUUID)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("existing_uuid", existingUUID).Msg("重复文件的历史记录不可用，重新处理")
		return nil, false
	}
	logger.Ctx(ctx).Info().Str("existing_uuid", existingUUID).Msg("检测到重复文件，返回已有结果")
	return &types.IngestResult{
		SubmissionUUID: detail.SubmissionUUID,
		FileName:       detail.FileName,
		Duplicate:      true,
		Scores:         detail.Scores,
		Extracted:      detail.Extracted,
		QuickTags:      detail.QuickTags,
	}, true
}

// Extract 只做实体抽取，不持久化
func (s *ResumeService) Extract(ctx context.Context, text string) (*types.ResumeRecord, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Extract")
	defer span.End()

	record, err := s.extractRecord(ctx, text, md5Hex([]byte(text)))
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExtraction)
		return nil, err
	}
	return record, nil
}

// EmbeddingInput 向量化输入为记录的 JSON 序列化，截断由 EmbedText 完成
func EmbeddingInput(record *types.ResumeRecord) (string, error) {
	data, err := json.Marshal(record)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

// extractRecord 先查缓存，相同文本的并发请求只抽取一次
func (s *ResumeService) extractRecord(ctx context.Context, text, textMD5 string) (*types.ResumeRecord, error) {
	if strings.TrimSpace(text) == "" {
		return nil, extractor.ErrInvalidInput
	}
	log := logger.Ctx(ctx)

	if s.components.Cache != nil {
		cached, err := s.components.Cache.GetCachedRecord(ctx, textMD5)
		switch {
		case err == nil && cached != nil:
			log.Debug().Str("text_md5", textMD5).Msg("抽取结果命中缓存")
			return cached, nil
		case err != nil && !errors.Is(err, storage.ErrNotFound):
			log.Warn().Err(err).Msg("读取抽取缓存失败")
		}
	}

	v, err, shared := s.group.Do(textMD5, func() (interface{}, error) {
		return s.components.Extractor.Extract(text)
	})
	if err != nil {
		return nil, err
	}
	record := v.(*types.ResumeRecord)
	if shared {
		log.Debug().Str("text_md5", textMD5).Msg("复用并发抽取结果")
	}

	if s.components.Cache != nil {
		if err := s.components.Cache.CacheRecord(ctx, textMD5, record, s.settings.RecordCacheTTL); err != nil {
			log.Warn().Err(err).Msg("写入抽取缓存失败")
		}
	}
	return record, nil
}

func (s *ResumeService) score(ctx context.Context, record *types.ResumeRecord) *types.ResumeScore {
	if s.components.Scorer == nil {
		return nil
	}
	scores, err := s.components.Scorer.Score(ctx, record)
	if err != nil {
		logger.Ctx(ctx).Warn().Err(err).Msg("简历评分失败，scores 置空")
		return nil
	}
	return scores
}

// index 向量化并写入向量库，返回是否成功
func (s *ResumeService) index(ctx context.Context, submissionUUID, fileName string, record *types.ResumeRecord) bool {
	if s.components.Embedder == nil || s.components.Vectors == nil {
		return false
	}
	log := logger.Ctx(ctx)

	input, err := EmbeddingInput(record)
	if err != nil {
		log.Warn().Err(err).Msg("序列化记录失败，跳过向量化")
		return false
	}
	vector, err := parser.EmbedText(ctx, s.components.Embedder, input, s.settings.EmbeddingMaxRunes, s.settings.VectorDimensions)
	if err != nil {
		log.Warn().Err(err).Msg("简历向量化失败")
		return false
	}

	payload := map[string]interface{}{
		"file_name":  fileName,
		"skills":     record.Skills,
		"job_titles": record.JobTitles,
	}
	if record.Name != nil {
		payload["name"] = *record.Name
	}
	pointID, err := s.components.Vectors.UpsertResume(ctx, submissionUUID, vector, payload)
	if err != nil {
		log.Warn().Err(err).Msg("写入向量库失败")
		return false
	}
	log.Debug().Str("point_id", pointID).Msg("简历向量已写入")
	return true
}

func (s *ResumeService) buildSubmission(submissionUUID, fileName, objectKey, fileMD5, textMD5 string,
	record *types.ResumeRecord, scores *types.ResumeScore, quickTags []string, indexed bool) (*models.ResumeSubmission, *models.OutboxMessage, error) {

	recordJSON, err := json.Marshal(record)
	if err != nil {
		return nil, nil, err
	}
	scoresJSON, err := json.Marshal(scores)
	if err != nil {
		return nil, nil, err
	}
	tagsJSON, err := json.Marshal(quickTags)
	if err != nil {
		return nil, nil, err
	}

	candidate := ""
	if record.Name != nil {
		candidate = *record.Name
	}
	sub := &models.ResumeSubmission{
		SubmissionUUID:   submissionUUID,
		OriginalFilename: fileName,
		ObjectKey:        objectKey,
		FileMD5:          fileMD5,
		TextMD5:          textMD5,
		CandidateName:    candidate,
		ExtractedRecord:  datatypes.JSON(recordJSON),
		Scores:           datatypes.JSON(scoresJSON),
		QuickTags:        datatypes.JSON(tagsJSON),
		Indexed:          indexed,
		ExtractorVersion: constants.ExtractorVersion,
	}

	event := types.ResumeExtractedEvent{
		SubmissionUUID: submissionUUID,
		FileName:       fileName,
		ObjectKey:      objectKey,
		CandidateName:  candidate,
		Skills:         record.Skills,
		QuickTags:      quickTags,
		Scored:         scores != nil,
		Indexed:        indexed,
		ExtractedAt:    time.Now().Unix(),
	}
	msg, err := outbox.NewMessage(submissionUUID, constants.EventResumeExtracted, s.settings.EventsExchange, s.settings.EventsRoutingKey, event)
	if err != nil {
		return nil, nil, err
	}
	return sub, msg, nil
}

// Search 相似简历检索，limit<=0 时使用默认 topK
func (s *ResumeService) Search(ctx context.Context, query string, limit int) ([]types.ResumeSearchHit, error) {
	ctx, span := tracer.Start(ctx, "ResumeService.Search")
	defer span.End()

	if strings.TrimSpace(query) == "" {
		return nil, ErrEmptyQuery
	}
	if s.components.Embedder == nil || s.components.Vectors == nil {
		return nil, ErrSearchUnavailable
	}
	if limit <= 0 {
		limit = s.settings.SearchLimit
	}

	vector, err := parser.EmbedText(ctx, s.components.Embedder, query, s.settings.EmbeddingMaxRunes, s.settings.VectorDimensions)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExternal)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}
	results, err := s.components.Vectors.SearchResumes(ctx, vector, limit, s.settings.ScoreThreshold)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return nil, fmt.Errorf("%w: %v", ErrSearchUnavailable, err)
	}

	hits := make([]types.ResumeSearchHit, 0, len(results))
	for _, r := range results {
		hits = append(hits, types.ResumeSearchHit{
			SubmissionUUID: payloadString(r.Payload, "submission_uuid"),
			FileName:       payloadString(r.Payload, "file_name"),
			Name:           payloadString(r.Payload, "name"),
			Skills:         payloadStrings(r.Payload, "skills"),
			JobTitles:      payloadStrings(r.Payload, "job_titles"),
			Score:          r.Score,
		})
	}
	span.SetAttributes(attribute.Int("search.hits", len(hits)))
	return hits, nil
}

// Submission 查询已保存的提交记录
func (s *ResumeService) Submission(ctx context.Context, id string) (*SubmissionDetail, error) {
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}

	detail := &SubmissionDetail{
		SubmissionUUID:   sub.SubmissionUUID,
		FileName:         sub.OriginalFilename,
		CandidateName:    sub.CandidateName,
		QuickTags:        []string{},
		Indexed:          sub.Indexed,
		ExtractorVersion: sub.ExtractorVersion,
		CreatedAt:        sub.CreatedAt,
	}
	if len(sub.ExtractedRecord) > 0 {
		if err := json.Unmarshal(sub.ExtractedRecord, &detail.Extracted); err != nil {
			return nil, NewDatabaseError(id, err)
		}
	}
	if len(sub.Scores) > 0 {
		if err := json.Unmarshal(sub.Scores, &detail.Scores); err != nil {
			return nil, NewDatabaseError(id, err)
		}
	}
	if len(sub.QuickTags) > 0 {
		if err := json.Unmarshal(sub.QuickTags, &detail.QuickTags); err != nil {
			return nil, NewDatabaseError(id, err)
		}
	}
	return detail, nil
}

// OriginalFile 打开保存的原始简历
func (s *ResumeService) OriginalFile(ctx context.Context, id string) (*OriginalFile, error) {
	if s.components.Objects == nil {
		return nil, ErrStorageNotInit
	}
	sub, err := s.loadSubmission(ctx, id)
	if err != nil {
		return nil, err
	}
	if sub.ObjectKey == "" {
		return nil, ErrSubmissionNotFound
	}
	reader, size, err := s.components.Objects.GetResumeFile(ctx, sub.ObjectKey)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, NewStoreError(id, err)
	}
	return &OriginalFile{
		Reader:      reader,
		Size:        size,
		FileName:    sub.OriginalFilename,
		ContentType: storage.ContentTypeForKey(sub.ObjectKey),
	}, nil
}

// QuickTags 实习关键词标签
func (s *ResumeService) QuickTags(text string) []string {
	return extractor.MatchInternshipKeywords(text)
}

func (s *ResumeService) loadSubmission(ctx context.Context, id string) (*models.ResumeSubmission, error) {
	parsed, err := uuid.FromString(strings.TrimSpace(id))
	if err != nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSubmissionID, id)
	}
	if s.components.Submissions == nil {
		return nil, ErrStorageNotInit
	}
	sub, err := s.components.Submissions.GetSubmission(ctx, parsed.String())
	if errors.Is(err, storage.ErrNotFound) {
		return nil, ErrSubmissionNotFound
	}
	if err != nil {
		return nil, NewDatabaseError(id, err)
	}
	return sub, nil
}

func md5Hex(data []byte) string {
	sum := md5.Sum(data)
	return hex.EncodeToString(sum[:])
}

func payloadString(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

func payloadStrings(payload map[string]interface{}, key string) []string {
	switch v := payload[key].(type) {
	case []string:
		return v
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if str, ok := item.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

func errorTypeOf(err error) tracing.ErrorType {
	switch {
	case errors.Is(err, ErrUnsupportedFile), errors.Is(err, ErrFileTooLarge), errors.Is(err, ErrEmptyFile):
		return tracing.ErrorTypeValidation
	case errors.Is(err, ErrExtractionUnavailable), errors.Is(err, ErrParseTextFailed):
		return tracing.ErrorTypeExtraction
	case errors.Is(err, ErrStoreFileFailed):
		return tracing.ErrorTypeStorage
	case errors.Is(err, ErrDatabaseFailed):
		return tracing.ErrorTypeDB
	}
	return tracing.ErrorTypeInternal
}
