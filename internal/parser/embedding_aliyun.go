package parser

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/embedding"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"resume-ner-go/internal/config"
	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/tracing"
)

const (
	defaultEmbeddingModel = "text-embedding-v3"
	defaultEmbeddingURL   = "https://dashscope.aliyuncs.com/compatible-mode/v1/embeddings"
	// DefaultEmbeddingDimensions 与向量库集合维度保持一致
	DefaultEmbeddingDimensions = 1024
)

var embedTracer = otel.Tracer("resume-ner-go/parser/embedding")

// ErrEmptyEmbedding 接口返回了空向量
var ErrEmptyEmbedding = errors.New("embedding api returned no vectors")

// AliyunEmbedder 实现 embedding.Embedder 接口（DashScope OpenAI 兼容端点）
type AliyunEmbedder struct {
	apiKey     string
	model      string
	dimensions int
	httpClient *http.Client
	baseURL    string
}

// EmbedderOption 嵌入器选项
type EmbedderOption func(*AliyunEmbedder)

// WithEmbeddingHTTPClient 替换 HTTP 客户端
func WithEmbeddingHTTPClient(c *http.Client) EmbedderOption {
	return func(a *AliyunEmbedder) {
		if c != nil {
			a.httpClient = c
		}
	}
}

// NewAliyunEmbedder 创建新的阿里云Embedder
func NewAliyunEmbedder(apiKey string, embeddingCfg config.EmbeddingConfig, opts ...EmbedderOption) (*AliyunEmbedder, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("API密钥不能为空")
	}

	model := embeddingCfg.Model
	if model == "" {
		model = defaultEmbeddingModel
	}
	dimensions := embeddingCfg.Dimensions
	if dimensions <= 0 {
		dimensions = DefaultEmbeddingDimensions
	}
	baseURL := embeddingCfg.BaseURL
	if baseURL == "" {
		baseURL = defaultEmbeddingURL
	}

	a := &AliyunEmbedder{
		apiKey:     apiKey,
		model:      model,
		dimensions: dimensions,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    baseURL,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

// GetDimensions 返回配置的维度
func (a *AliyunEmbedder) GetDimensions() int {
	return a.dimensions
}

type embeddingRequest struct {
	Input          interface{} `json:"input"` // string or []string
	Model          string      `json:"model"`
	Dimensions     int         `json:"dimensions,omitempty"`
	EncodingFormat string      `json:"encoding_format,omitempty"`
}

type embeddingResponse struct {
	Object string           `json:"object"`
	Data   []embeddingEntry `json:"data"`
	Model  string           `json:"model"`
	Usage  embeddingUsage   `json:"usage"`
	ID     string           `json:"id,omitempty"`
	Error  *embeddingError  `json:"error,omitempty"`
}

type embeddingEntry struct {
	Object    string    `json:"object"`
	Embedding []float64 `json:"embedding"`
	Index     int       `json:"index"`
}

type embeddingUsage struct {
	PromptTokens int `json:"prompt_tokens"`
	TotalTokens  int `json:"total_tokens"`
}

// embeddingError 200 OK 时也可能携带的错误
type embeddingError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Param   string `json:"param"`
	Code    string `json:"code"`
}

// EmbedStrings 实现 eino embedding.Embedder
func (a *AliyunEmbedder) EmbedStrings(ctx context.Context, texts []string, opts ...embedding.Option) (vectors [][]float64, err error) {
	options := embedding.GetCommonOptions(&embedding.Options{}, opts...)
	effectiveModel := a.model
	if options.Model != nil && *options.Model != "" {
		effectiveModel = *options.Model
	}

	ctx, span := embedTracer.Start(ctx, "AliyunEmbedder.EmbedStrings",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("embedding.model", effectiveModel),
			attribute.Int("embedding.dimensions", a.dimensions),
			attribute.Int("embedding.texts", len(texts)),
		))
	defer func() {
		if err != nil {
			tracing.RecordError(span, err, tracing.ErrorTypeExternal)
		}
		span.End()
	}()

	if len(texts) == 0 {
		return [][]float64{}, nil
	}

	var input interface{} = texts
	if len(texts) == 1 {
		input = texts[0]
	}
	body, err := json.Marshal(embeddingRequest{
		Input:          input,
		Model:          effectiveModel,
		Dimensions:     a.dimensions,
		EncodingFormat: "float",
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建HTTP请求失败: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("发送HTTP请求失败: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode != http.StatusOK {
		var wrapped struct {
			Error *embeddingError `json:"error"`
		}
		if json.Unmarshal(raw, &wrapped) == nil && wrapped.Error != nil && wrapped.Error.Message != "" {
			return nil, fmt.Errorf("API调用失败, 状态码: %d, 类型: %s, 错误: %s, Code: %s",
				resp.StatusCode, wrapped.Error.Type, wrapped.Error.Message, wrapped.Error.Code)
		}
		return nil, fmt.Errorf("API调用失败, 状态码: %d, 响应: %s", resp.StatusCode, tracing.TruncateString(string(raw), tracing.DefaultMaxLength))
	}

	var parsed embeddingResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("解析响应JSON失败: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return nil, fmt.Errorf("API返回错误: 类型=%s, 消息='%s', Code=%s", parsed.Error.Type, parsed.Error.Message, parsed.Error.Code)
	}

	vectors = make([][]float64, len(texts))
	for _, entry := range parsed.Data {
		if entry.Index < 0 || entry.Index >= len(vectors) {
			continue
		}
		vectors[entry.Index] = entry.Embedding
	}

	logger.Ctx(ctx).Debug().
		Str("model", effectiveModel).
		Int("texts", len(texts)).
		Int("prompt_tokens", parsed.Usage.PromptTokens).
		Int("total_tokens", parsed.Usage.TotalTokens).
		Str("preview", truncateEmbedding(firstVector(vectors))).
		Msg("文本向量化完成")
	return vectors, nil
}

// EmbedText 向量化单段简历文本：先按字符截断，再把结果补齐或截到固定维度
func EmbedText(ctx context.Context, embedder embedding.Embedder, text string, maxRunes, dims int) ([]float64, error) {
	input := PrepareEmbeddingInput(text, maxRunes)
	if input == "" {
		return nil, fmt.Errorf("%w: empty input", ErrEmptyEmbedding)
	}
	vectors, err := embedder.EmbedStrings(ctx, []string{input})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ErrEmptyEmbedding
	}
	return FitDimensions(vectors[0], dims), nil
}

// PrepareEmbeddingInput 取前 maxRunes 个字符，maxRunes<=0 不截断
func PrepareEmbeddingInput(text string, maxRunes int) string {
	text = strings.TrimSpace(text)
	if maxRunes <= 0 {
		return text
	}
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}

// FitDimensions 不足补 0，超出截断
func FitDimensions(vec []float64, dims int) []float64 {
	if dims <= 0 || len(vec) == dims {
		return vec
	}
	out := make([]float64, dims)
	copy(out, vec)
	return out
}

func firstVector(vectors [][]float64) []float64 {
	if len(vectors) == 0 {
		return nil
	}
	return vectors[0]
}

// truncateEmbedding 日志里只打印向量首尾各三个元素
func truncateEmbedding(vector []float64) string {
	const maxLen = 6
	const showEachSide = 3

	if len(vector) <= maxLen {
		return fmt.Sprintf("%v", vector)
	}

	parts := make([]string, 0, showEachSide*2+1)
	for i := 0; i < showEachSide; i++ {
		parts = append(parts, fmt.Sprintf("%.4f", vector[i]))
	}
	parts = append(parts, "...")
	for i := len(vector) - showEachSide; i < len(vector); i++ {
		parts = append(parts, fmt.Sprintf("%.4f", vector[i]))
	}
	return "[" + strings.Join(parts, ", ") + "]"
}
