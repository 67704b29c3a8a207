package parser

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/cloudwego/eino/components/embedding"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"resume-ner-go/internal/config"
)

func TestNewAliyunEmbedderDefaults(t *testing.T) {
	_, err := NewAliyunEmbedder("", config.EmbeddingConfig{})
	assert.Error(t, err)

	e, err := NewAliyunEmbedder("key", config.EmbeddingConfig{})
	require.NoError(t, err)
	assert.Equal(t, defaultEmbeddingModel, e.model)
	assert.Equal(t, DefaultEmbeddingDimensions, e.GetDimensions())
	assert.Equal(t, defaultEmbeddingURL, e.baseURL)
}

func TestEmbedStrings(t *testing.T) {
	var got embeddingRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[{"index":1,"embedding":[0.3,0.4]},{"index":0,"embedding":[0.1,0.2]}],"usage":{"prompt_tokens":3,"total_tokens":3}}`))
	}))
	defer srv.Close()

	e, err := NewAliyunEmbedder("key", config.EmbeddingConfig{BaseURL: srv.URL, Dimensions: 2})
	require.NoError(t, err)

	vectors, err := e.EmbedStrings(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0.1, 0.2}, {0.3, 0.4}}, vectors)
	assert.Equal(t, 2, got.Dimensions)
	assert.Equal(t, defaultEmbeddingModel, got.Model)

	_, err = e.EmbedStrings(context.Background(), []string{"a"}, embedding.WithModel("text-embedding-v4"))
	require.NoError(t, err)
	assert.Equal(t, "text-embedding-v4", got.Model)
	assert.Equal(t, "a", got.Input)
}

func TestEmbedStringsErrors(t *testing.T) {
	t.Run("非200", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":{"message":"input too long","type":"invalid_request_error","code":"400"}}`))
		}))
		defer srv.Close()
		e, _ := NewAliyunEmbedder("key", config.EmbeddingConfig{BaseURL: srv.URL})
		_, err := e.EmbedStrings(context.Background(), []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "input too long")
	})

	t.Run("200但带错误", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"error":{"message":"quota","type":"rate"}}`))
		}))
		defer srv.Close()
		e, _ := NewAliyunEmbedder("key", config.EmbeddingConfig{BaseURL: srv.URL})
		_, err := e.EmbedStrings(context.Background(), []string{"a"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "quota")
	})

	t.Run("空输入", func(t *testing.T) {
		e, _ := NewAliyunEmbedder("key", config.EmbeddingConfig{BaseURL: "http://127.0.0.1:0"})
		vectors, err := e.EmbedStrings(context.Background(), nil)
		require.NoError(t, err)
		assert.Empty(t, vectors)
	})
}

type fakeEmbedder struct {
	vectors [][]float64
	inputs  []string
}

func (f *fakeEmbedder) EmbedStrings(_ context.Context, texts []string, _ ...embedding.Option) ([][]float64, error) {
	f.inputs = texts
	return f.vectors, nil
}

func TestEmbedText(t *testing.T) {
	f := &fakeEmbedder{vectors: [][]float64{{1, 2, 3}}}
	vec, err := EmbedText(context.Background(), f, "  "+strings.Repeat("简", 600)+"  ", 512, 5)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 0, 0}, vec)
	require.Len(t, f.inputs, 1)
	assert.Equal(t, 512, len([]rune(f.inputs[0])))

	_, err = EmbedText(context.Background(), f, "   ", 512, 5)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)

	_, err = EmbedText(context.Background(), &fakeEmbedder{}, "text", 512, 5)
	assert.ErrorIs(t, err, ErrEmptyEmbedding)
}

func TestFitDimensions(t *testing.T) {
	assert.Equal(t, []float64{1, 2}, FitDimensions([]float64{1, 2, 3}, 2))
	assert.Equal(t, []float64{1, 0, 0}, FitDimensions([]float64{1}, 3))
	assert.Equal(t, []float64{1}, FitDimensions([]float64{1}, 0))
}

func TestTruncateEmbedding(t *testing.T) {
	assert.Equal(t, "[1 2]", truncateEmbedding([]float64{1, 2}))
	assert.Equal(t, "[1.0000, 2.0000, 3.0000, ..., 6.0000, 7.0000, 8.0000]", truncateEmbedding([]float64{1, 2, 3, 4, 5, 6, 7, 8}))
}
