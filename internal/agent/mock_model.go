package agent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// MockResponse MockChatClient 的单次响应
type MockResponse struct {
	Content string
	Error   error
}

// MockChatClient 测试用 ChatModel，按顺序返回预设响应，最后一条重复使用
type MockChatClient struct {
	mu        sync.Mutex
	responses []MockResponse
	index     int
	received  [][]*schema.Message
}

// NewMockChatClient 返回固定响应的模拟模型
func NewMockChatClient(content string, err error) *MockChatClient {
	return NewMockChatClientSequential([]MockResponse{{Content: content, Error: err}})
}

// NewMockChatClientSequential 按顺序返回响应
func NewMockChatClientSequential(responses []MockResponse) *MockChatClient {
	if len(responses) == 0 {
		responses = []MockResponse{{Error: errors.New("mock client has no responses configured")}}
	}
	return &MockChatClient{responses: responses}
}

// Generate 记录输入并返回下一条预设响应
func (m *MockChatClient) Generate(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.received = append(m.received, append([]*schema.Message(nil), input...))
	resp := m.responses[m.index]
	if m.index < len(m.responses)-1 {
		m.index++
	}
	if resp.Error != nil {
		return nil, resp.Error
	}
	return schema.AssistantMessage(resp.Content, nil), nil
}

// Stream 模拟模型不支持流式输出
func (m *MockChatClient) Stream(ctx context.Context, input []*schema.Message, opts ...model.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, fmt.Errorf("streaming not implemented in MockChatClient")
}

// BindTools 忽略工具
func (m *MockChatClient) BindTools(tools []*schema.ToolInfo) error {
	return nil
}

// WithTools 返回自身，调用记录共享
func (m *MockChatClient) WithTools(tools []*schema.ToolInfo) (model.ToolCallingChatModel, error) {
	return m, nil
}

// Calls 返回 Generate 被调用的次数
func (m *MockChatClient) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.received)
}

// LastMessages 最近一次调用收到的消息
func (m *MockChatClient) LastMessages() []*schema.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.received) == 0 {
		return nil
	}
	return m.received[len(m.received)-1]
}

var (
	_ model.ChatModel            = (*MockChatClient)(nil)
	_ model.ToolCallingChatModel = (*MockChatClient)(nil)
)
