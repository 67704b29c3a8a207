// Package agent 提供 eino ChatModel 的通义千问实现（OpenAI 兼容接口）以及测试用的模拟模型。
package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"resume-ner-go/internal/logger"
	"resume-ner-go/internal/tracing"
)

const (
	openAICompatibleQwenAPIURL = "https://dashscope.aliyuncs.com/compatible-mode/v1/chat/completions"
	defaultQwenModelName       = "qwen-plus"
)

var qwenTracer = otel.Tracer("resume-ner-go/agent/qwen")

type openAIFunction struct {
	Name        string                 `json:"name"`
	Description string                 `json:"description"`
	Parameters  map[string]interface{} `json:"parameters"`
}

type openAITool struct {
	Type     string         `json:"type"`
	Function openAIFunction `json:"function"`
}

type openAIMessage struct {
	Role       string               `json:"role"`
	Content    *string              `json:"content"`
	ToolCallID string               `json:"tool_call_id,omitempty"`
	ToolCalls  []openAIToolCallData `json:"tool_calls,omitempty"`
}

type openAIToolCallData struct {
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatCompletionRequest struct {
	Model          string          `json:"model"`
	Messages       []openAIMessage `json:"messages"`
	Tools          []openAITool    `json:"tools,omitempty"`
	Temperature    *float32        `json:"temperature,omitempty"`
	MaxTokens      *int            `json:"max_tokens,omitempty"`
	ResponseFormat *responseFormat `json:"response_format,omitempty"`
}

type chatCompletionResponse struct {
	ID      string `json:"id"`
	Model   string `json:"model"`
	Choices []struct {
		Index        int           `json:"index"`
		Message      openAIMessage `json:"message"`
		FinishReason string        `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		PromptTokens     int `json:"prompt_tokens"`
		CompletionTokens int `json:"completion_tokens"`
		TotalTokens      int `json:"total_tokens"`
	} `json:"usage"`
	Error *struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error,omitempty"`
}

// AliyunQwenChatModel 通义千问 ChatModel，走 DashScope 的 OpenAI 兼容接口
type AliyunQwenChatModel struct {
	apiKey     string
	modelName  string
	apiURL     string
	jsonOutput bool
	httpClient *http.Client
	tools      []openAITool
}

// QwenOption 模型构造选项
type QwenOption func(*AliyunQwenChatModel)

// WithJSONOutput 要求模型只输出 JSON 对象
func WithJSONOutput() QwenOption {
	return func(m *AliyunQwenChatModel) {
		m.jsonOutput = true
	}
}

// WithHTTPClient 替换 HTTP 客户端
func WithHTTPClient(c *http.Client) QwenOption {
	return func(m *AliyunQwenChatModel) {
		m.httpClient = c
	}
}

// NewAliyunQwenChatModel 创建模型实例，modelName 与 apiURL 为空时使用默认值
func NewAliyunQwenChatModel(apiKey, modelName, apiURL string, opts ...QwenOption) (*AliyunQwenChatModel, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, fmt.Errorf("API 密钥不能为空")
	}
	if strings.TrimSpace(modelName) == "" {
		modelName = defaultQwenModelName
	}
	if strings.TrimSpace(apiURL) == "" {
		apiURL = openAICompatibleQwenAPIURL
	}

	m := &AliyunQwenChatModel{
		apiKey:     apiKey,
		modelName:  modelName,
		apiURL:     apiURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(m)
	}
	logger.Info().Str("model", modelName).Str("url", apiURL).Msg("使用阿里云通义千问 LLM 客户端")
	return m, nil
}

func toOpenAIMessages(messages []*schema.Message) []openAIMessage {
	out := make([]openAIMessage, 0, len(messages))
	for _, msg := range messages {
		if msg == nil {
			continue
		}
		content := msg.Content
		om := openAIMessage{Role: string(msg.Role), Content: &content, ToolCallID: msg.ToolCallID}
		for _, tc := range msg.ToolCalls {
			call := openAIToolCallData{ID: tc.ID, Type: "function"}
			call.Function.Name = tc.Function.Name
			call.Function.Arguments = tc.Function.Arguments
			om.ToolCalls = append(om.ToolCalls, call)
		}
		out = append(out, om)
	}
	return out
}

// Generate 实现 model.ChatModel
func (m *AliyunQwenChatModel) Generate(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	options := model.GetCommonOptions(&model.Options{}, opts...)

	modelName := m.modelName
	if options.Model != nil && *options.Model != "" {
		modelName = *options.Model
	}

	ctx, span := qwenTracer.Start(ctx, "Qwen.Generate",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("llm.model", modelName),
			attribute.Int("llm.message_count", len(messages)),
		))
	defer span.End()

	req := chatCompletionRequest{
		Model:       modelName,
		Messages:    toOpenAIMessages(messages),
		Tools:       m.tools,
		Temperature: options.Temperature,
		MaxTokens:   options.MaxTokens,
	}
	if m.jsonOutput {
		req.ResponseFormat = &responseFormat{Type: "json_object"}
	}

	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("序列化请求体失败: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, m.apiURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("创建 HTTP 请求失败: %w", err)
	}
	httpReq.Header.Set("Authorization", "Bearer "+m.apiKey)
	httpReq.Header.Set("Content-Type", "application/json")
	otel.GetTextMapPropagator().Inject(ctx, propagation.HeaderCarrier(httpReq.Header))

	httpResp, err := m.httpClient.Do(httpReq)
	if err != nil {
		tracing.RecordError(span, err, tracing.ErrorTypeExternal)
		return nil, fmt.Errorf("发送 HTTP 请求失败: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取响应体失败: %w", err)
	}
	if httpResp.StatusCode != http.StatusOK {
		err := fmt.Errorf("API 请求失败，状态 %s: %s", httpResp.Status, tracing.TruncateString(string(respBody), tracing.DefaultMaxLength))
		tracing.RecordHTTPError(span, err, httpResp.StatusCode)
		return nil, err
	}

	var resp chatCompletionResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, fmt.Errorf("反序列化 API 响应失败: %w", err)
	}
	if resp.Error != nil && resp.Error.Message != "" {
		return nil, fmt.Errorf("API 返回错误: %s (%s)", resp.Error.Message, resp.Error.Code)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("API 未返回任何选项")
	}
	span.SetAttributes(attribute.Int("llm.usage.total_tokens", resp.Usage.TotalTokens))

	apiMsg := resp.Choices[0].Message
	result := &schema.Message{Role: schema.Assistant}
	if apiMsg.Role != "" {
		result.Role = schema.RoleType(apiMsg.Role)
	}
	if apiMsg.Content != nil {
		result.Content = *apiMsg.Content
	}
	for _, tc := range apiMsg.ToolCalls {
		result.ToolCalls = append(result.ToolCalls, schema.ToolCall{
			ID:       tc.ID,
			Function: schema.FunctionCall{Name: tc.Function.Name, Arguments: tc.Function.Arguments},
		})
	}

	logger.Ctx(ctx).Debug().
		Str("model", modelName).
		Int("total_tokens", resp.Usage.TotalTokens).
		Str("finish_reason", resp.Choices[0].FinishReason).
		Msg("通义千问调用完成")
	return result, nil
}

// Stream 暂不支持
func (m *AliyunQwenChatModel) Stream(ctx context.Context, messages []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("AliyunQwenChatModel 不支持流式输出")
}

// BindTools 以空参数 schema 绑定工具，仅传递名称和描述
func (m *AliyunQwenChatModel) BindTools(tools []*schema.ToolInfo) error {
	m.tools = m.tools[:0]
	for _, t := range tools {
		if t == nil {
			continue
		}
		m.tools = append(m.tools, openAITool{
			Type: "function",
			Function: openAIFunction{
				Name:        t.Name,
				Description: t.Desc,
				Parameters:  map[string]interface{}{"type": "object", "properties": map[string]interface{}{}},
			},
		})
	}
	return nil
}

// WithTools 返回绑定了工具的副本，原实例不变
func (m *AliyunQwenChatModel) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	clone := *m
	clone.tools = nil
	if err := clone.BindTools(tools); err != nil {
		return nil, err
	}
	return &clone, nil
}

var (
	_ model.ChatModel            = (*AliyunQwenChatModel)(nil)
	_ model.ToolCallingChatModel = (*AliyunQwenChatModel)(nil)
)
