package storage

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gofrs/uuid/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/tracing"
)

var qdrantTracer = otel.Tracer("resume-ner-go/storage/qdrant")

// QdrantPointIDNamespace 由 submission_uuid 生成确定性 point id 的命名空间，
// 同一份简历重复写入会覆盖同一个点。
var QdrantPointIDNamespace = uuid.Must(uuid.FromString("fd6c72c2-5a33-4b53-8e7c-8298f3f5a7e1"))

// VectorDatabase 简历向量的写入与检索
type VectorDatabase interface {
	UpsertResume(ctx context.Context, submissionUUID string, vector []float64, payload map[string]interface{}) (string, error)
	SearchResumes(ctx context.Context, queryVector []float64, limit int, scoreThreshold float64) ([]SearchResult, error)
}

var _ VectorDatabase = (*Qdrant)(nil)

// Qdrant 通过 REST API 访问 Qdrant
type Qdrant struct {
	endpoint       string
	apiKey         string
	collectionName string
	vectorSize     int
	distanceMetric string
	httpClient     *http.Client
}

// SearchResult 检索结果
type SearchResult struct {
	ID      string                 `json:"id"`
	Score   float32                `json:"score"`
	Payload map[string]interface{} `json:"payload"`
}

// QdrantStatusError 非 2xx 响应
type QdrantStatusError struct {
	StatusCode int
	Body       string
}

func (e *QdrantStatusError) Error() string {
	return fmt.Sprintf("qdrant API error: status=%d, body=%s", e.StatusCode, e.Body)
}

// QdrantOption Qdrant 构造选项
type QdrantOption func(*Qdrant)

// WithDistanceMetric 设置距离度量
func WithDistanceMetric(metric string) QdrantOption {
	return func(q *Qdrant) {
		q.distanceMetric = metric
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) QdrantOption {
	return func(q *Qdrant) {
		q.httpClient = c
	}
}

// NewQdrant 创建客户端，集合不存在时按配置维度创建
func NewQdrant(ctx context.Context, cfg *config.QdrantConfig, opts ...QdrantOption) (*Qdrant, error) {
	if cfg == nil {
		return nil, fmt.Errorf("qdrant配置不能为空")
	}
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("qdrant endpoint 未配置")
	}

	q := &Qdrant{
		endpoint:       cfg.Endpoint,
		apiKey:         cfg.APIKey,
		collectionName: cfg.Collection,
		vectorSize:     cfg.Dimension,
		distanceMetric: "Cosine",
		httpClient:     &http.Client{Timeout: 30 * time.Second},
	}
	if q.collectionName == "" {
		q.collectionName = "resumes"
	}
	if q.vectorSize <= 0 {
		q.vectorSize = 1024
	}
	for _, opt := range opts {
		opt(q)
	}

	if err := q.ensureCollectionExists(ctx); err != nil {
		return nil, fmt.Errorf("确保集合 '%s' 存在失败: %w", q.collectionName, err)
	}
	logger.Info().Str("endpoint", q.endpoint).Str("collection", q.collectionName).Msg("成功连接到Qdrant")
	return q, nil
}

// ensureCollectionExists 集合存在时只校验维度，不匹配记录警告
func (q *Qdrant) ensureCollectionExists(ctx context.Context) error {
	var info struct {
		Result struct {
			Config struct {
				Params struct {
					Vectors struct {
						Size     int    `json:"size"`
						Distance string `json:"distance"`
					} `json:"vectors"`
				} `json:"params"`
			} `json:"config"`
		} `json:"result"`
	}

	err := q.doRequest(ctx, http.MethodGet, "/collections/"+q.collectionName, nil, &info)
	var statusErr *QdrantStatusError
	if errors.As(err, &statusErr) && statusErr.StatusCode == http.StatusNotFound {
		return q.createCollection(ctx)
	}
	if err != nil {
		return err
	}

	vectors := info.Result.Config.Params.Vectors
	if vectors.Size != q.vectorSize || vectors.Distance != q.distanceMetric {
		logger.Warn().
			Int("existing_size", vectors.Size).
			Str("existing_distance", vectors.Distance).
			Int("expected_size", q.vectorSize).
			Str("expected_distance", q.distanceMetric).
			Msg("现有Qdrant集合配置与当前配置不匹配")
	}
	return nil
}

func (q *Qdrant) createCollection(ctx context.Context) error {
	body := map[string]interface{}{
		"vectors": map[string]interface{}{
			"size":     q.vectorSize,
			"distance": q.distanceMetric,
		},
	}
	if err := q.doRequest(ctx, http.MethodPut, "/collections/"+q.collectionName, body, nil); err != nil {
		return fmt.Errorf("创建集合失败: %w", err)
	}
	logger.Info().Str("collection", q.collectionName).Int("size", q.vectorSize).Msg("已创建Qdrant集合")
	return nil
}

// PointID submission_uuid 对应的确定性 point id
func PointID(submissionUUID string) string {
	return uuid.NewV5(QdrantPointIDNamespace, submissionUUID).String()
}

// UpsertResume 写入一份简历的向量，返回 point id
func (q *Qdrant) UpsertResume(ctx context.Context, submissionUUID string, vector []float64, payload map[string]interface{}) (string, error) {
	if len(vector) != q.vectorSize {
		return "", fmt.Errorf("向量维度 %d 与集合维度 %d 不一致", len(vector), q.vectorSize)
	}
	pointID := PointID(submissionUUID)
	if payload == nil {
		payload = map[string]interface{}{}
	}
	payload["submission_uuid"] = submissionUUID

	body := map[string]interface{}{
		"points": []map[string]interface{}{
			{"id": pointID, "vector": vector, "payload": payload},
		},
	}
	path := fmt.Sprintf("/collections/%s/points?wait=true", q.collectionName)
	if err := q.doRequest(ctx, http.MethodPut, path, body, nil); err != nil {
		return "", fmt.Errorf("写入向量失败: %w", err)
	}
	return pointID, nil
}

// SearchResumes 相似度检索，低于阈值的结果由 Qdrant 过滤
func (q *Qdrant) SearchResumes(ctx context.Context, queryVector []float64, limit int, scoreThreshold float64) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 5
	}
	body := map[string]interface{}{
		"vector":       queryVector,
		"limit":        limit,
		"with_payload": true,
	}
	if scoreThreshold > 0 {
		body["score_threshold"] = scoreThreshold
	}

	var resp struct {
		Result []SearchResult `json:"result"`
	}
	path := fmt.Sprintf("/collections/%s/points/search", q.collectionName)
	if err := q.doRequest(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, fmt.Errorf("向量检索失败: %w", err)
	}
	return resp.Result, nil
}

func (q *Qdrant) doRequest(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	ctx, span := qdrantTracer.Start(ctx, fmt.Sprintf("%s %s", method, path),
		trace.WithSpanKind(trace.SpanKindClient))
	defer span.End()

	span.SetAttributes(
		attribute.String("net.peer.name", q.endpoint),
		attribute.String("db.system", "qdrant"),
		attribute.String("db.operation", path),
	)

	var reader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
		reader = bytes.NewReader(jsonBody)
		span.SetAttributes(attribute.Int("http.request.body.size", len(jsonBody)))
	}

	req, err := http.NewRequestWithContext(ctx, method, q.endpoint+path, reader)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if q.apiKey != "" {
		req.Header.Set("api-key", q.apiKey)
	}
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := q.httpClient.Do(req)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}
	defer resp.Body.Close()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeHTTP)
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &QdrantStatusError{StatusCode: resp.StatusCode, Body: tracing.TruncateString(string(respBody), tracing.DefaultMaxLength)}
		if resp.StatusCode != http.StatusNotFound {
			tracing.RecordHTTPError(span, statusErr, resp.StatusCode)
		}
		return statusErr
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeVectorDB)
			return err
		}
	}
	span.SetStatus(codes.Ok, "")
	return nil
}
