package processor

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/constants"
	"resume-ner-go/internal/extractor"
	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/types"
)

const janeDoe = "Jane Doe\n\nEducation\nBachelor of Science in Computer Science at MIT, 2019\n\nSkills\nPython, SQL, React\n"

type fixture struct {
	text      *mockTextExtractor
	extractor *countingExtractor
	scorer    *mockScorer
	embedder  *mockEmbedder
	deduper   *mockDeduper
	cache     *mockCache
	objects   *mockObjects
	vectors   *mockVectors
	store     *mockStore
	svc       *ResumeService
}

func newFixture(t *testing.T, setOpts ...SettingOpt) *fixture {
	t.Helper()
	f := &fixture{
		text:      &mockTextExtractor{text: janeDoe},
		extractor: &countingExtractor{inner: NewEntityAggregator(config.DefaultConfig())},
		scorer:    &mockScorer{score: &types.ResumeScore{Overall: 7.5, Skills: 8}},
		embedder:  &mockEmbedder{vector: []float64{0.1, 0.2, 0.3}},
		deduper:   &mockDeduper{},
		cache:     &mockCache{},
		objects:   &mockObjects{},
		vectors:   &mockVectors{},
		store:     &mockStore{},
	}
	svc, err := NewResumeService([]ComponentOpt{
		WithTextExtractor(f.text),
		WithRecordExtractor(f.extractor),
		WithScorer(f.scorer),
		WithEmbedder(f.embedder),
		WithDeduper(f.deduper),
		WithRecordCache(f.cache),
		WithObjectStorage(f.objects),
		WithVectorDatabase(f.vectors),
		WithSubmissionStore(f.store),
	}, append([]SettingOpt{WithVectorDimensions(4)}, setOpts...)...)
	require.NoError(t, err)
	f.svc = svc
	return f
}

func upload(name, content string) UploadRequest {
	return UploadRequest{FileName: name, Size: int64(len(content)), Reader: strings.NewReader(content)}
}

func TestNewResumeServiceRequiresExtractor(t *testing.T) {
	_, err := NewResumeService(nil)
	assert.Error(t, err)
}

func TestIngestFullPipeline(t *testing.T) {
	f := newFixture(t)

	res, err := f.svc.Ingest(context.Background(), upload("jane.PDF", "%PDF-1.4 fake"))
	require.NoError(t, err)

	id, err := uuid.FromString(res.SubmissionUUID)
	require.NoError(t, err)
	assert.Equal(t, uuid.V7, id.Version())
	assert.Equal(t, "jane.PDF", res.FileName)
	assert.False(t, res.Duplicate)
	require.NotNil(t, res.Extracted)
	require.NotNil(t, res.Extracted.Name)
	assert.Equal(t, "Jane Doe", *res.Extracted.Name)
	assert.Equal(t, 7.5, res.Scores.Overall)
	assert.Equal(t, []string{"python", "react", "sql"}, res.QuickTags)

	// 原件按扩展名小写保存
	key := "resumes/" + res.SubmissionUUID + ".pdf"
	assert.Equal(t, []byte("%PDF-1.4 fake"), f.objects.files[key])

	// 向量补齐到配置维度，payload 带检索展示字段
	require.Len(t, f.vectors.upserts, 1)
	up := f.vectors.upserts[0]
	assert.Equal(t, res.SubmissionUUID, up.uuid)
	assert.Equal(t, []float64{0.1, 0.2, 0.3, 0}, up.vector)
	assert.Equal(t, "Jane Doe", up.payload["name"])
	assert.Equal(t, "jane.PDF", up.payload["file_name"])
	require.Len(t, f.embedder.inputs, 1)
	assert.LessOrEqual(t, len([]rune(f.embedder.inputs[0])), constants.EmbeddingMaxInputRunes)
	assert.True(t, strings.HasPrefix(f.embedder.inputs[0], `{"name":"Jane Doe"`))

	// 提交记录和 outbox 同时写入
	sub := f.store.submissions[res.SubmissionUUID]
	require.NotNil(t, sub)
	assert.Equal(t, key, sub.ObjectKey)
	assert.Equal(t, "Jane Doe", sub.CandidateName)
	assert.True(t, sub.Indexed)
	assert.Equal(t, constants.ExtractorVersion, sub.ExtractorVersion)
	assert.Len(t, sub.FileMD5, 32)
	assert.Len(t, sub.TextMD5, 32)

	require.Len(t, f.store.outbox, 1)
	msg := f.store.outbox[0]
	assert.Equal(t, constants.EventResumeExtracted, msg.EventType)
	assert.Equal(t, res.SubmissionUUID, msg.AggregateID)
	assert.Equal(t, "resume.events.exchange", msg.TargetExchange)
	assert.Equal(t, "resume.extracted", msg.TargetRoutingKey)
	var event types.ResumeExtractedEvent
	require.NoError(t, json.Unmarshal([]byte(msg.Payload), &event))
	assert.True(t, event.Scored)
	assert.True(t, event.Indexed)
	assert.Equal(t, []string{"python", "sql", "Skills", "React"}, event.Skills)

	// 抽取结果进入缓存
	assert.Len(t, f.cache.records, 1)
	assert.Equal(t, time.Hour, f.cache.ttl)
}

func TestIngestValidation(t *testing.T) {
	f := newFixture(t, WithMaxUploadBytes(8), WithAllowedExtensions("pdf", ".TXT"))

	_, err := f.svc.Ingest(context.Background(), upload("cv.rtf", "abc"))
	assert.ErrorIs(t, err, ErrUnsupportedFile)

	_, err = f.svc.Ingest(context.Background(), upload("cv.txt", "123456789"))
	assert.ErrorIs(t, err, ErrFileTooLarge)

	// 声明大小未知时按实际读取字节判断
	_, err = f.svc.Ingest(context.Background(), UploadRequest{FileName: "cv.txt", Size: -1, Reader: strings.NewReader("123456789")})
	assert.ErrorIs(t, err, ErrFileTooLarge)

	_, err = f.svc.Ingest(context.Background(), upload("cv.txt", ""))
	assert.ErrorIs(t, err, ErrEmptyFile)

	assert.Zero(t, f.text.calls)
	assert.Empty(t, f.deduper.existing)
}

func TestIngestDuplicateFile(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Ingest(context.Background(), upload("a.txt", "same bytes"))
	require.NoError(t, err)
	require.Equal(t, 1, f.extractor.calls)

	second, err := f.svc.Ingest(context.Background(), upload("b.txt", "same bytes"))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.SubmissionUUID, second.SubmissionUUID)
	assert.Equal(t, "a.txt", second.FileName)
	assert.Equal(t, first.QuickTags, second.QuickTags)
	assert.Equal(t, *first.Extracted.Name, *second.Extracted.Name)
	assert.Equal(t, first.Scores, second.Scores)

	assert.Equal(t, 1, f.text.calls)
	assert.Equal(t, 1, f.scorer.calls)
	assert.Len(t, f.store.outbox, 1)
}

func TestIngestDuplicateWithoutStoredRowReprocesses(t *testing.T) {
	f := newFixture(t)
	prev := "0190b7c2-5a3e-7c4d-8e2f-1234567890ab"
	f.deduper.existing = map[string]string{md5Hex([]byte("content")): prev}

	res, err := f.svc.Ingest(context.Background(), upload("a.txt", "content"))
	require.NoError(t, err)
	assert.False(t, res.Duplicate)
	assert.Equal(t, prev, res.SubmissionUUID)
	assert.Contains(t, f.store.submissions, prev)
}

func TestIngestExtractionFailure(t *testing.T) {
	f := newFixture(t)
	f.text.text = "  \n  "

	res, err := f.svc.Ingest(context.Background(), upload("scan.pdf", "%PDF image only"))
	assert.Nil(t, res)
	assert.ErrorIs(t, err, ErrExtractionUnavailable)
	assert.ErrorIs(t, err, extractor.ErrInvalidInput)

	var perr *ResumeProcessError
	require.True(t, errors.As(err, &perr))
	assert.Equal(t, "extract", perr.Op)

	assert.Zero(t, f.scorer.calls)
	assert.Empty(t, f.vectors.upserts)
	assert.Empty(t, f.store.outbox)
	// 失败后撤销 MD5，允许重新上传
	assert.Equal(t, []string{md5Hex([]byte("%PDF image only"))}, f.deduper.removed)
}

func TestIngestTextExtractionError(t *testing.T) {
	f := newFixture(t)
	f.text.err = errBoom

	_, err := f.svc.Ingest(context.Background(), upload("cv.docx", "PK"))
	assert.ErrorIs(t, err, ErrParseTextFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.Len(t, f.deduper.removed, 1)
}

func TestIngestDegradedSteps(t *testing.T) {
	f := newFixture(t)
	f.scorer.err = errBoom
	f.embedder.err = errBoom

	res, err := f.svc.Ingest(context.Background(), upload("cv.txt", "text"))
	require.NoError(t, err)
	assert.Nil(t, res.Scores)

	sub := f.store.submissions[res.SubmissionUUID]
	require.NotNil(t, sub)
	assert.False(t, sub.Indexed)
	assert.JSONEq(t, "null", string(sub.Scores))

	var event types.ResumeExtractedEvent
	require.NoError(t, json.Unmarshal([]byte(f.store.outbox[0].Payload), &event))
	assert.False(t, event.Scored)
	assert.False(t, event.Indexed)
}

func TestIngestStorageErrors(t *testing.T) {
	f := newFixture(t)
	f.objects.err = errBoom
	_, err := f.svc.Ingest(context.Background(), upload("cv.txt", "one"))
	assert.ErrorIs(t, err, ErrStoreFileFailed)

	f = newFixture(t)
	f.store.err = errBoom
	_, err = f.svc.Ingest(context.Background(), upload("cv.txt", "two"))
	assert.ErrorIs(t, err, ErrDatabaseFailed)
	assert.Len(t, f.deduper.removed, 1)
}

func TestIngestWithoutBackends(t *testing.T) {
	text := &mockTextExtractor{text: janeDoe}
	svc, err := NewResumeService([]ComponentOpt{
		WithTextExtractor(text),
		WithRecordExtractor(NewEntityAggregator(config.DefaultConfig())),
		WithStorage(nil),
	})
	require.NoError(t, err)

	res, err := svc.Ingest(context.Background(), upload("cv.txt", janeDoe))
	require.NoError(t, err)
	assert.Nil(t, res.Scores)
	assert.Equal(t, "Jane Doe", *res.Extracted.Name)

	_, err = svc.Search(context.Background(), "python", 0)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
	_, err = svc.Submission(context.Background(), res.SubmissionUUID)
	assert.ErrorIs(t, err, ErrStorageNotInit)
	_, err = svc.OriginalFile(context.Background(), res.SubmissionUUID)
	assert.ErrorIs(t, err, ErrStorageNotInit)
}

func TestExtractUsesCache(t *testing.T) {
	f := newFixture(t)

	first, err := f.svc.Extract(context.Background(), janeDoe)
	require.NoError(t, err)
	second, err := f.svc.Extract(context.Background(), janeDoe)
	require.NoError(t, err)

	assert.Equal(t, 1, f.extractor.calls)
	assert.Same(t, first, second)

	_, err = f.svc.Extract(context.Background(), " ")
	assert.ErrorIs(t, err, extractor.ErrInvalidInput)
}

func TestSearch(t *testing.T) {
	f := newFixture(t)
	f.vectors.results = []storage.SearchResult{{
		ID:    "p1",
		Score: 0.87,
		Payload: map[string]interface{}{
			"submission_uuid": "0190b7c2-5a3e-7c4d-8e2f-1234567890ab",
			"file_name":       "jane.pdf",
			"name":            "Jane Doe",
			"skills":          []interface{}{"python", "sql", 3},
		},
	}}

	hits, err := f.svc.Search(context.Background(), "python engineer", 0)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, types.ResumeSearchHit{
		SubmissionUUID: "0190b7c2-5a3e-7c4d-8e2f-1234567890ab",
		FileName:       "jane.pdf",
		Name:           "Jane Doe",
		Skills:         []string{"python", "sql"},
		Score:          0.87,
	}, hits[0])
	assert.Equal(t, 5, f.vectors.limit)
	assert.Equal(t, 0.1, f.vectors.threshold)

	_, err = f.svc.Search(context.Background(), "python", 2)
	require.NoError(t, err)
	assert.Equal(t, 2, f.vectors.limit)

	_, err = f.svc.Search(context.Background(), "  ", 0)
	assert.ErrorIs(t, err, ErrEmptyQuery)

	f.vectors.err = errBoom
	_, err = f.svc.Search(context.Background(), "python", 0)
	assert.ErrorIs(t, err, ErrSearchUnavailable)
}

func TestSubmissionAndOriginalFile(t *testing.T) {
	f := newFixture(t)
	res, err := f.svc.Ingest(context.Background(), upload("jane.docx", "PK docx bytes"))
	require.NoError(t, err)

	detail, err := f.svc.Submission(context.Background(), res.SubmissionUUID)
	require.NoError(t, err)
	assert.Equal(t, "jane.docx", detail.FileName)
	assert.Equal(t, "Jane Doe", detail.CandidateName)
	assert.Equal(t, res.QuickTags, detail.QuickTags)
	assert.True(t, detail.Indexed)
	require.NotNil(t, detail.Scores)
	assert.Equal(t, 7.5, detail.Scores.Overall)

	file, err := f.svc.OriginalFile(context.Background(), res.SubmissionUUID)
	require.NoError(t, err)
	defer file.Reader.Close()
	data, err := io.ReadAll(file.Reader)
	require.NoError(t, err)
	assert.Equal(t, "PK docx bytes", string(data))
	assert.Equal(t, int64(len(data)), file.Size)
	assert.Equal(t, "jane.docx", file.FileName)
	assert.Equal(t, "application/vnd.openxmlformats-officedocument.wordprocessingml.document", file.ContentType)

	_, err = f.svc.Submission(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, ErrInvalidSubmissionID)
	_, err = f.svc.Submission(context.Background(), "0190b7c2-5a3e-7c4d-8e2f-1234567890ab")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
	_, err = f.svc.OriginalFile(context.Background(), "0190b7c2-5a3e-7c4d-8e2f-1234567890ab")
	assert.ErrorIs(t, err, ErrSubmissionNotFound)
}

func TestQuickTags(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, []string{"python", "react"}, f.svc.QuickTags("I used React and Python for my internship"))
	assert.Empty(t, f.svc.QuickTags(""))
}

func TestWithConfigSettings(t *testing.T) {
	cfg := config.DefaultConfig()
	cfg.Upload.MaxSizeMB = 2
	cfg.Upload.AllowedExtensions = []string{"PDF"}
	cfg.Qdrant.Dimension = 768
	cfg.RabbitMQ.ResumeEventsExchange = "ex"

	var s = defaultSettings()
	WithConfig(cfg)(&s)
	assert.Equal(t, int64(2<<20), s.MaxUploadBytes)
	assert.Contains(t, s.AllowedExtensions, ".pdf")
	assert.Len(t, s.AllowedExtensions, 1)
	assert.Equal(t, 768, s.VectorDimensions)
	assert.Equal(t, "ex", s.EventsExchange)
	assert.Equal(t, 512, s.EmbeddingMaxRunes)
}

func TestResumeProcessError(t *testing.T) {
	err := NewStoreError("id-1", errBoom)
	assert.ErrorIs(t, err, ErrStoreFileFailed)
	assert.ErrorIs(t, err, errBoom)
	assert.False(t, errors.Is(err, ErrDatabaseFailed))
	assert.Equal(t, "保存原始文件失败 (操作:store, UUID:id-1): boom", err.Error())

	noCause := &ResumeProcessError{SubmissionUUID: "id-2", Op: "parse", BaseErr: ErrParseTextFailed}
	assert.Equal(t, "提取简历文本失败 (操作:parse, UUID:id-2)", noCause.Error())
}
