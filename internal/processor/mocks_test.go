package processor

import (
	"bytes"
	"context"
	"errors"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/cloudwego/eino/components/embedding"

	"resume-ner-go/internal/storage"
	"resume-ner-go/internal/storage/models"
	"resume-ner-go/internal/types"
)

type mockTextExtractor struct {
	text  string
	err   error
	calls int
}

func (m *mockTextExtractor) ExtractText(ctx context.Context, r io.Reader, fileName string) (string, error) {
	m.calls++
	return m.text, m.err
}

type countingExtractor struct {
	inner RecordExtractor
	mu    sync.Mutex
	calls int
}

func (c *countingExtractor) Extract(doc string) (*types.ResumeRecord, error) {
	c.mu.Lock()
	c.calls++
	c.mu.Unlock()
	return c.inner.Extract(doc)
}

type mockScorer struct {
	score *types.ResumeScore
	err   error
	calls int
}

func (m *mockScorer) Score(ctx context.Context, rec *types.ResumeRecord) (*types.ResumeScore, error) {
	m.calls++
	return m.score, m.err
}

type mockEmbedder struct {
	vector []float64
	err    error
	inputs []string
}

func (m *mockEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) ([][]float64, error) {
	m.inputs = append(m.inputs, texts...)
	if m.err != nil {
		return nil, m.err
	}
	return [][]float64{m.vector}, nil
}

type mockDeduper struct {
	existing map[string]string
	err      error
	removed  []string
}

func (m *mockDeduper) CheckAndSetFileMD5(ctx context.Context, md5Hex, submissionUUID string) (bool, string, error) {
	if m.err != nil {
		return false, "", m.err
	}
	if m.existing == nil {
		m.existing = map[string]string{}
	}
	if id, ok := m.existing[md5Hex]; ok {
		return true, id, nil
	}
	m.existing[md5Hex] = submissionUUID
	return false, "", nil
}

func (m *mockDeduper) RemoveFileMD5(ctx context.Context, md5Hex string) error {
	m.removed = append(m.removed, md5Hex)
	delete(m.existing, md5Hex)
	return nil
}

type mockCache struct {
	records map[string]*types.ResumeRecord
	ttl     time.Duration
}

func (m *mockCache) GetCachedRecord(ctx context.Context, textMD5 string) (*types.ResumeRecord, error) {
	if rec, ok := m.records[textMD5]; ok {
		return rec, nil
	}
	return nil, storage.ErrNotFound
}

func (m *mockCache) CacheRecord(ctx context.Context, textMD5 string, rec *types.ResumeRecord, ttl time.Duration) error {
	if m.records == nil {
		m.records = map[string]*types.ResumeRecord{}
	}
	m.records[textMD5] = rec
	m.ttl = ttl
	return nil
}

type mockObjects struct {
	files map[string][]byte
	err   error
}

func (m *mockObjects) UploadResumeFile(ctx context.Context, submissionUUID, fileExt string, reader io.Reader, fileSize int64) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", err
	}
	if m.files == nil {
		m.files = map[string][]byte{}
	}
	key := storage.ResumeObjectKey(submissionUUID, fileExt)
	m.files[key] = data
	return key, nil
}

func (m *mockObjects) GetResumeFile(ctx context.Context, objectKey string) (io.ReadCloser, int64, error) {
	data, ok := m.files[objectKey]
	if !ok {
		return nil, 0, storage.ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), int64(len(data)), nil
}

type upsertCall struct {
	uuid    string
	vector  []float64
	payload map[string]interface{}
}

type mockVectors struct {
	upserts   []upsertCall
	results   []storage.SearchResult
	err       error
	limit     int
	threshold float64
}

func (m *mockVectors) UpsertResume(ctx context.Context, submissionUUID string, vector []float64, payload map[string]interface{}) (string, error) {
	if m.err != nil {
		return "", m.err
	}
	m.upserts = append(m.upserts, upsertCall{submissionUUID, vector, payload})
	return storage.PointID(submissionUUID), nil
}

func (m *mockVectors) SearchResumes(ctx context.Context, queryVector []float64, limit int, scoreThreshold float64) ([]storage.SearchResult, error) {
	m.limit = limit
	m.threshold = scoreThreshold
	return m.results, m.err
}

type mockStore struct {
	submissions map[string]*models.ResumeSubmission
	outbox      []*models.OutboxMessage
	err         error
}

func (m *mockStore) SaveSubmissionWithOutbox(ctx context.Context, sub *models.ResumeSubmission, msg *models.OutboxMessage) error {
	if m.err != nil {
		return m.err
	}
	if m.submissions == nil {
		m.submissions = map[string]*models.ResumeSubmission{}
	}
	m.submissions[sub.SubmissionUUID] = sub
	if msg != nil {
		m.outbox = append(m.outbox, msg)
	}
	return nil
}

func (m *mockStore) GetSubmission(ctx context.Context, id string) (*models.ResumeSubmission, error) {
	if sub, ok := m.submissions[id]; ok {
		return sub, nil
	}
	if m.err != nil {
		return nil, m.err
	}
	return nil, storage.ErrNotFound
}

func (m *mockStore) ListUnindexedSubmissions(ctx context.Context, limit int) ([]string, error) {
	if m.err != nil {
		return nil, m.err
	}
	var ids []string
	for id, sub := range m.submissions {
		if !sub.Indexed {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	if len(ids) > limit {
		ids = ids[:limit]
	}
	return ids, nil
}

func (m *mockStore) MarkIndexed(ctx context.Context, id string) error {
	sub, ok := m.submissions[id]
	if !ok {
		return storage.ErrNotFound
	}
	sub.Indexed = true
	return nil
}

var errBoom = errors.New("boom")
