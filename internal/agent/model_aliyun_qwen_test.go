package agent

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAliyunQwenChatModelRequiresKey(t *testing.T) {
	_, err := NewAliyunQwenChatModel("  ", "", "")
	assert.Error(t, err)

	m, err := NewAliyunQwenChatModel("key", "", "")
	require.NoError(t, err)
	assert.Equal(t, defaultQwenModelName, m.modelName)
	assert.Equal(t, openAICompatibleQwenAPIURL, m.apiURL)
}

func TestQwenGenerate(t *testing.T) {
	var got chatCompletionRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = w.Write([]byte(`{
			"id": "cmpl-1",
			"model": "qwen-plus",
			"choices": [{"index": 0, "finish_reason": "stop", "message": {"role": "assistant", "content": "{\"Overall Score\": 7}"}}],
			"usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
		}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("test-key", "qwen-plus", server.URL, WithJSONOutput())
	require.NoError(t, err)

	msg, err := m.Generate(context.Background(), []*schema.Message{
		schema.SystemMessage("score it"),
		schema.UserMessage("resume"),
	}, model.WithTemperature(0.2))
	require.NoError(t, err)

	assert.Equal(t, schema.Assistant, msg.Role)
	assert.Equal(t, `{"Overall Score": 7}`, msg.Content)

	assert.Equal(t, "qwen-plus", got.Model)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, "resume", *got.Messages[1].Content)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, 0.2, *got.Temperature, 1e-6)
	require.NotNil(t, got.ResponseFormat)
	assert.Equal(t, "json_object", got.ResponseFormat.Type)
}

func TestQwenGenerateHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited"}}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("k", "", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestQwenGenerateNoChoices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices": []}`))
	}))
	defer server.Close()

	m, err := NewAliyunQwenChatModel("k", "", server.URL)
	require.NoError(t, err)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("hi")})
	assert.Error(t, err)
}

func TestQwenWithToolsReturnsCopy(t *testing.T) {
	m, err := NewAliyunQwenChatModel("k", "", "")
	require.NoError(t, err)

	withTools, err := m.WithTools([]*schema.ToolInfo{{Name: "lookup_skill", Desc: "查询技能"}})
	require.NoError(t, err)

	assert.Empty(t, m.tools)
	bound := withTools.(*AliyunQwenChatModel)
	require.Len(t, bound.tools, 1)
	assert.Equal(t, "lookup_skill", bound.tools[0].Function.Name)
}

func TestMockChatClient(t *testing.T) {
	boom := errors.New("boom")
	m := NewMockChatClientSequential([]MockResponse{{Content: "first"}, {Error: boom}})

	msg, err := m.Generate(context.Background(), []*schema.Message{schema.UserMessage("a")})
	require.NoError(t, err)
	assert.Equal(t, "first", msg.Content)

	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("b")})
	assert.ErrorIs(t, err, boom)
	_, err = m.Generate(context.Background(), []*schema.Message{schema.UserMessage("c")})
	assert.ErrorIs(t, err, boom)

	assert.Equal(t, 3, m.Calls())
	assert.Equal(t, "c", m.LastMessages()[0].Content)
}
